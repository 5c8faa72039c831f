package view

import (
	"math"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// DateLayout is the display format for every date on the site
const DateLayout = "Jan 2, 2006"

// FormatDate renders t as "Jan 2, 2006"
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// FormatShares renders a share count with thousands separators
func FormatShares(v float64) string {
	return humanize.Commaf(v)
}

// FormatMoney renders d as "$1,234.56"
func FormatMoney(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return FormatPrice(f)
}

// FormatPrice renders a float price as "$1,234.56"
func FormatPrice(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "$0.00"
	}
	if v < 0 {
		return "-$" + humanize.FormatFloat("#,###.##", -v)
	}
	return "$" + humanize.FormatFloat("#,###.##", v)
}

// FormatNumber renders an axis value with at most two decimals
func FormatNumber(v float64) string {
	if math.Abs(v) >= 1000 {
		return humanize.Comma(int64(math.Round(v)))
	}
	return humanize.FtoaWithDigits(v, 2)
}

// FormatCompact renders large counts as 1.2k, 3.4M
func FormatCompact(v float64) string {
	if math.Abs(v) < 1000 {
		return humanize.FtoaWithDigits(v, 1)
	}
	value, prefix := humanize.ComputeSI(v)
	return humanize.FtoaWithDigits(value, 1) + prefix
}

// FormatPercent renders p (0-100) with one decimal
func FormatPercent(p float64) string {
	return humanize.FtoaWithDigits(p, 1) + "%"
}
