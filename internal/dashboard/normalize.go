// Package dashboard turns raw upstream responses into rows ready for the
// charts and the trade table, and tracks each browser's dashboard state.
package dashboard

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"snooptrade/models"
)

// Drop reasons reported to metrics
const (
	ReasonBadDate    = "unparseable_date"
	ReasonFutureDate = "future_date"
)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// ParseDate parses the date formats the upstream is known to emit
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// PriceSeries is a normalized price history
type PriceSeries struct {
	Points  []models.PricePoint
	Dropped int
}

// Empty reports whether there is nothing to chart
func (p PriceSeries) Empty() bool {
	return len(p.Points) == 0
}

// NormalizePrices keeps points with a parseable date, zero-fills missing
// numbers and sorts ascending by date. Equal dates keep their input order.
func NormalizePrices(raw []models.RawPricePoint) PriceSeries {
	out := PriceSeries{Points: make([]models.PricePoint, 0, len(raw))}
	for _, r := range raw {
		date, ok := ParseDate(r.Date)
		if !ok {
			out.Dropped++
			continue
		}
		out.Points = append(out.Points, models.PricePoint{
			Ticker: r.Ticker,
			Date:   date,
			Open:   orZero(r.Open),
			High:   orZero(r.High),
			Low:    orZero(r.Low),
			Close:  orZero(r.Close),
			Volume: orZero(r.Volume),
		})
	}

	sort.SliceStable(out.Points, func(i, j int) bool {
		return out.Points[i].Date.Before(out.Points[j].Date)
	})
	return out
}

func orZero(v *float64) float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0
	}
	return *v
}

// TradeSet holds the same validated trades in the two orders the page needs
type TradeSet struct {
	// Recent is newest first, for the table
	Recent []models.Trade
	// Chronological is oldest first, for the charts
	Chronological []models.Trade
	// Dropped counts discarded records by reason
	Dropped map[string]int
}

// Empty reports whether no trade survived validation
func (t TradeSet) Empty() bool {
	return len(t.Recent) == 0
}

// NormalizeTrades keeps records whose transaction date parses and is not
// after now, and coerces shares to a finite number >= 0.
func NormalizeTrades(raw []models.RawTrade, now time.Time) TradeSet {
	set := TradeSet{Dropped: make(map[string]int)}
	valid := make([]models.Trade, 0, len(raw))

	for _, r := range raw {
		date, ok := ParseDate(r.TransactionDate.Value)
		if !r.TransactionDate.Valid || !ok {
			set.Dropped[ReasonBadDate]++
			continue
		}
		if date.After(now) {
			set.Dropped[ReasonFutureDate]++
			continue
		}
		valid = append(valid, toTrade(r, date))
	}

	set.Chronological = make([]models.Trade, len(valid))
	copy(set.Chronological, valid)
	sort.SliceStable(set.Chronological, func(i, j int) bool {
		return set.Chronological[i].TransactionDate.Before(set.Chronological[j].TransactionDate)
	})

	set.Recent = make([]models.Trade, len(valid))
	copy(set.Recent, valid)
	sort.SliceStable(set.Recent, func(i, j int) bool {
		return set.Recent[i].TransactionDate.After(set.Recent[j].TransactionDate)
	})

	return set
}

func toTrade(r models.RawTrade, date time.Time) models.Trade {
	t := models.NewTrade(
		date,
		models.TransactionCode(strings.TrimSpace(r.TransactionCode.Value)),
		parseShares(r.Shares.Value),
		parsePrice(r.PricePerShare.Value),
	)
	if filed, ok := ParseDate(r.FilingDate.Value); ok {
		t.FilingDate = &filed
	}
	t.IssuerName = r.IssuerName.Value
	t.IssuerCIK = r.IssuerCIK.Value
	t.Symbol = r.TradingSymbol.Value
	t.ReportingOwnerName = r.ReportingOwnerName.Value
	t.ReportingOwnerCIK = r.ReportingOwnerCIK.Value
	t.SecurityTitle = r.SecurityTitle.Value
	t.OwnershipType = r.OwnershipType.Value
	return t
}

func parseShares(s string) float64 {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func parsePrice(s string) decimal.Decimal {
	s = strings.TrimPrefix(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), "$")
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// ForecastInputs converts a normalized series into the forecast request body
func ForecastInputs(points []models.PricePoint) []models.ForecastInput {
	out := make([]models.ForecastInput, len(points))
	for i, p := range points {
		out[i] = models.NewForecastInput(p)
	}
	return out
}

// ClipRange returns the points dated within [from, to]. A zero bound is open.
func ClipRange(points []models.PricePoint, from, to time.Time) []models.PricePoint {
	if from.IsZero() && to.IsZero() {
		return points
	}
	out := make([]models.PricePoint, 0, len(points))
	for _, p := range points {
		if !from.IsZero() && p.Date.Before(from) {
			continue
		}
		if !to.IsZero() && p.Date.After(to) {
			continue
		}
		out = append(out, p)
	}
	return out
}
