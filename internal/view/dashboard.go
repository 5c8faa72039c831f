package view

import (
	"net/url"
	"strconv"
	"time"

	"snooptrade/config"
	"snooptrade/internal/dashboard"
	"snooptrade/models"
)

// Query is the dashboard selection as carried in the URL
type Query struct {
	Company string
	Search  string
	Window  models.TimeWindow
	Sort    dashboard.Column
	Desc    bool
	Page    int
	Size    int
	Log     bool
	From    string
	To      string
}

// Values encodes q, leaving out defaults
func (q Query) Values() url.Values {
	v := url.Values{}
	set := func(k, val string) {
		if val != "" {
			v.Set(k, val)
		}
	}
	set("company", q.Company)
	set("q", q.Search)
	set("window", string(q.Window))
	set("sort", string(q.Sort))
	if q.Desc {
		v.Set("dir", "desc")
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Size > 0 {
		v.Set("size", strconv.Itoa(q.Size))
	}
	if q.Log {
		v.Set("log", "1")
	}
	set("from", q.From)
	set("to", q.To)
	return v
}

// URL is the dashboard link for q
func (q Query) URL() string {
	if enc := q.Values().Encode(); enc != "" {
		return "/dashboard?" + enc
	}
	return "/dashboard"
}

// Option is a selectable link
type Option struct {
	Label    string
	URL      string
	Selected bool
}

// Header is a sortable table column heading
type Header struct {
	Label  string
	URL    string
	Active bool
	Desc   bool
}

// Row is a formatted trade table row
type Row struct {
	Date   string
	Code   string
	Type   string
	Shares string
	Price  string
	Total  string
}

// TableView is the trade table with its controls
type TableView struct {
	Headers []Header
	Rows    []Row
	Sizes   []Option
	Summary string
	PrevURL string
	NextURL string
}

// DashboardView is everything the dashboard template needs
type DashboardView struct {
	Query       Query
	State       dashboard.State
	Companies   []Option
	Windows     []Option
	Price       LinePlot
	Forecast    ForecastPlot
	HasForecast bool
	Bars        BarPlot
	Pie         PiePlot
	Table       TableView
	PriceError  string
	TradeError  string
	RangeMin    string
	RangeMax    string
}

// LogToggleURL flips the price axis scale
func (v DashboardView) LogToggleURL() string {
	q := v.Query
	q.Log = !q.Log
	return q.URL()
}

// BrushResetURL clears the date range
func (v DashboardView) BrushResetURL() string {
	q := v.Query
	q.From, q.To = "", ""
	return q.URL()
}

// BrushHidden carries the selection through the date-range form
func (v DashboardView) BrushHidden() map[string]string {
	q := v.Query
	q.From, q.To = "", ""
	out := make(map[string]string)
	for k, vals := range q.Values() {
		out[k] = vals[0]
	}
	return out
}

// DashboardOptions are display settings from configuration
type DashboardOptions struct {
	Companies models.Companies
	HueColors bool
	PageSize  int
}

// NewDashboardOptions reads display settings from cfg
func NewDashboardOptions(cfg config.DashboardConfig) DashboardOptions {
	return DashboardOptions{
		Companies: models.NewCompanies(cfg.Companies),
		HueColors: cfg.PieColors == config.PieColorsHue,
		PageSize:  cfg.PageSize,
	}
}

// NewDashboardView builds the dashboard from a board snapshot and the request query
func NewDashboardView(snap dashboard.Snapshot, q Query, opts DashboardOptions) DashboardView {
	v := DashboardView{
		Query:      q,
		State:      snap.State,
		PriceError: snap.PriceError,
		TradeError: snap.TradeError,
	}

	for _, symbol := range opts.Companies.Search(q.Search) {
		link := Query{Company: symbol, Search: q.Search, Window: q.Window, Size: q.Size, Log: q.Log}
		v.Companies = append(v.Companies, Option{Label: symbol, URL: link.URL(), Selected: symbol == q.Company})
	}
	if q.Company == "" {
		return v
	}

	for _, w := range models.TimeWindows {
		link := q
		link.Window, link.Page, link.From, link.To = w, 0, "", ""
		v.Windows = append(v.Windows, Option{Label: w.Label(), URL: link.URL(), Selected: w == q.Window})
	}

	points := snap.Prices.Points
	if len(points) > 0 {
		v.RangeMin = points[0].Date.Format("2006-01-02")
		v.RangeMax = points[len(points)-1].Date.Format("2006-01-02")
	}
	v.Price = PriceChart(dashboard.ClipRange(points, parseBound(q.From), parseBound(q.To)), q.Log)

	if len(snap.Forecast) > 0 {
		v.HasForecast = true
		v.Forecast = ForecastChart(snap.Forecast, q.Log)
	}

	v.Bars = TradeBarChart(snap.Trades.Chronological)
	v.Pie = PieChart(dashboard.Colorize(dashboard.Breakdown(snap.Trades.Recent), opts.HueColors))
	v.Table = newTableView(snap.Trades.Recent, q, opts.PageSize)
	return v
}

func parseBound(s string) time.Time {
	t, _ := dashboard.ParseDate(s)
	return t
}

func newTableView(trades []models.Trade, q Query, defaultSize int) TableView {
	size := q.Size
	if !config.IsPageSize(size) {
		size = defaultSize
	}
	if !config.IsPageSize(size) {
		size = config.PageSizes[1]
	}
	sorted := dashboard.SortRows(trades, q.Sort, q.Desc)
	page := dashboard.Paginate(sorted, q.Page, size)

	var t TableView
	for _, col := range dashboard.Columns {
		link := q
		link.Sort, link.Page = col, 0
		link.Desc = q.Sort == col && !q.Desc
		t.Headers = append(t.Headers, Header{
			Label:  col.Label(),
			URL:    link.URL(),
			Active: q.Sort == col,
			Desc:   q.Sort == col && q.Desc,
		})
	}

	for _, tr := range page.Rows {
		t.Rows = append(t.Rows, Row{
			Date:   FormatDate(tr.TransactionDate),
			Code:   string(tr.Code),
			Type:   tr.Code.Label(),
			Shares: FormatShares(tr.Shares),
			Price:  FormatMoney(tr.PricePerShare),
			Total:  FormatMoney(tr.TotalValue),
		})
	}

	for _, s := range config.PageSizes {
		link := q
		link.Size, link.Page = s, 0
		t.Sizes = append(t.Sizes, Option{Label: strconv.Itoa(s), URL: link.URL(), Selected: s == size})
	}

	if page.Total > 0 {
		t.Summary = strconv.Itoa(page.First()) + "-" + strconv.Itoa(page.Last()) + " of " + strconv.Itoa(page.Total)
		if page.First() == 0 {
			t.Summary = "0 of " + strconv.Itoa(page.Total)
		}
	}
	if page.HasPrev() {
		link := q
		link.Page = page.Index - 1
		if link.Page >= page.Pages() {
			link.Page = page.Pages() - 1
		}
		t.PrevURL = link.URL()
	}
	if page.HasNext() {
		link := q
		link.Page = page.Index + 1
		t.NextURL = link.URL()
	}
	return t
}
