package view

import (
	"fmt"
	"math"
	"strings"
	"time"

	"snooptrade/internal/dashboard"
	"snooptrade/models"
)

// Frame is the SVG canvas and its plot margins
type Frame struct {
	Width, Height            float64
	Left, Right, Top, Bottom float64
}

var (
	wideFrame  = Frame{Width: 800, Height: 300, Left: 64, Right: 16, Top: 16, Bottom: 36}
	shortFrame = Frame{Width: 800, Height: 160, Left: 64, Right: 16, Top: 12, Bottom: 28}
)

// PlotRight is the x coordinate of the right edge of the plot area
func (f Frame) PlotRight() float64 { return f.Width - f.Right }

// PlotBottom is the y coordinate of the x axis
func (f Frame) PlotBottom() float64 { return f.Height - f.Bottom }

func (f Frame) innerW() float64 { return f.Width - f.Left - f.Right }
func (f Frame) innerH() float64 { return f.Height - f.Top - f.Bottom }

// Tick is an axis label at an SVG coordinate
type Tick struct {
	Pos   float64
	Label string
}

// Marker is a hoverable data point
type Marker struct {
	X, Y  float64
	Title string
}

// Series is one polyline on a chart
type Series struct {
	Name    string
	Color   string
	Path    string
	Markers []Marker
}

// Band is a shaded area between a lower and an upper bound
type Band struct {
	Name  string
	Color string
	Path  string
}

// LinePlot is a rendered line chart
type LinePlot struct {
	Frame    Frame
	Title    string
	Series   []Series
	Bands    []Band
	XTicks   []Tick
	YTicks   []Tick
	LogScale bool
	// Skipped counts values that cannot be drawn on a log axis
	Skipped int
	Empty   bool
}

type yScale struct {
	min, max float64
	log      bool
}

// newYScale fits the values; on a log axis only positive values count
func newYScale(values []float64, log bool) (yScale, bool) {
	s := yScale{min: math.Inf(1), max: math.Inf(-1), log: log}
	for _, v := range values {
		if log {
			if v <= 0 {
				continue
			}
			v = math.Log10(v)
		}
		s.min = math.Min(s.min, v)
		s.max = math.Max(s.max, v)
	}
	if math.IsInf(s.min, 1) {
		return s, false
	}
	if s.min == s.max {
		pad := math.Max(math.Abs(s.min)*0.05, 0.5)
		s.min -= pad
		s.max += pad
	}
	return s, true
}

func (s yScale) plottable(v float64) bool {
	return !s.log || v > 0
}

func (s yScale) project(v float64, f Frame) float64 {
	if s.log {
		v = math.Log10(v)
	}
	return f.Top + f.innerH()*(1-(v-s.min)/(s.max-s.min))
}

func (s yScale) ticks(n int, f Frame) []Tick {
	ticks := make([]Tick, 0, n)
	for i := 0; i < n; i++ {
		v := s.min + (s.max-s.min)*float64(i)/float64(n-1)
		if s.log {
			v = math.Pow(10, v)
		}
		ticks = append(ticks, Tick{Pos: round(s.project(v, f)), Label: FormatNumber(v)})
	}
	return ticks
}

type xScale struct {
	start, end time.Time
}

func (s xScale) project(t time.Time, f Frame) float64 {
	span := s.end.Sub(s.start)
	if span <= 0 {
		return f.Left + f.innerW()/2
	}
	return f.Left + f.innerW()*float64(t.Sub(s.start))/float64(span)
}

func (s xScale) ticks(n int, f Frame) []Tick {
	if s.end.Equal(s.start) {
		return []Tick{{Pos: round(s.project(s.start, f)), Label: FormatDate(s.start)}}
	}
	ticks := make([]Tick, 0, n)
	span := s.end.Sub(s.start)
	for i := 0; i < n; i++ {
		t := s.start.Add(time.Duration(float64(span) * float64(i) / float64(n-1)))
		ticks = append(ticks, Tick{Pos: round(s.project(t, f)), Label: FormatDate(t)})
	}
	return ticks
}

func round(v float64) float64 {
	return math.Round(v*10) / 10
}

// pathBuilder accumulates an SVG path, starting a new subpath after a gap
type pathBuilder struct {
	b    strings.Builder
	open bool
}

func (p *pathBuilder) point(x, y float64) {
	cmd := "L"
	if !p.open {
		cmd = "M"
		if p.b.Len() > 0 {
			p.b.WriteByte(' ')
		}
	} else {
		p.b.WriteByte(' ')
	}
	fmt.Fprintf(&p.b, "%s%.1f,%.1f", cmd, x, y)
	p.open = true
}

func (p *pathBuilder) gap() { p.open = false }

func (p *pathBuilder) String() string { return p.b.String() }

type seriesSpec struct {
	name  string
	color string
	value func(i int) (float64, bool)
	label func(v float64) string
}

// plotSeries projects every spec over n points at xs.
// It returns the number of values skipped on a log axis.
func plotSeries(n int, xs []float64, dates []time.Time, specs []seriesSpec, ys yScale, f Frame) ([]Series, int) {
	skipped := 0
	out := make([]Series, 0, len(specs))
	for _, spec := range specs {
		var path pathBuilder
		s := Series{Name: spec.name, Color: spec.color}
		for i := 0; i < n; i++ {
			v, ok := spec.value(i)
			if !ok {
				path.gap()
				continue
			}
			if !ys.plottable(v) {
				skipped++
				path.gap()
				continue
			}
			x, y := round(xs[i]), round(ys.project(v, f))
			path.point(x, y)
			s.Markers = append(s.Markers, Marker{
				X:     x,
				Y:     y,
				Title: fmt.Sprintf("%s %s: %s", FormatDate(dates[i]), spec.name, spec.label(v)),
			})
		}
		s.Path = path.String()
		out = append(out, s)
	}
	return out, skipped
}

// PriceChart plots close and open prices over time
func PriceChart(points []models.PricePoint, logScale bool) LinePlot {
	plot := LinePlot{Frame: wideFrame, Title: "Stock Price", LogScale: logScale}
	if len(points) == 0 {
		plot.Empty = true
		return plot
	}

	values := make([]float64, 0, 2*len(points))
	dates := make([]time.Time, len(points))
	for i, p := range points {
		values = append(values, p.Close, p.Open)
		dates[i] = p.Date
	}
	ys, ok := newYScale(values, logScale)
	if !ok {
		plot.Empty = true
		plot.Skipped = len(values)
		return plot
	}

	xs := xScale{start: points[0].Date, end: points[len(points)-1].Date}
	xpos := make([]float64, len(points))
	for i, p := range points {
		xpos[i] = xs.project(p.Date, plot.Frame)
	}

	plot.Series, plot.Skipped = plotSeries(len(points), xpos, dates, []seriesSpec{
		{name: "Close", color: "#73C2A0", value: func(i int) (float64, bool) { return points[i].Close, true }, label: FormatPrice},
		{name: "Open", color: "#6D727B", value: func(i int) (float64, bool) { return points[i].Open, true }, label: FormatPrice},
	}, ys, plot.Frame)
	plot.XTicks = xs.ticks(5, plot.Frame)
	plot.YTicks = ys.ticks(5, plot.Frame)
	return plot
}

// ForecastPlot is the forecast price chart plus its momentum panel
type ForecastPlot struct {
	Price    LinePlot
	Dynamics LinePlot
	Empty    bool
}

func optional(p *float64) (float64, bool) {
	if p == nil || math.IsNaN(*p) || math.IsInf(*p, 0) {
		return 0, false
	}
	return *p, true
}

// ForecastChart plots the predicted open with its bounds and trend band.
// Momentum and acceleration get their own linear panel.
func ForecastChart(points []models.ForecastPoint, logScale bool) ForecastPlot {
	type dated struct {
		date time.Time
		p    models.ForecastPoint
	}
	rows := make([]dated, 0, len(points))
	for _, p := range points {
		if d, ok := dashboard.ParseDate(p.Date); ok {
			rows = append(rows, dated{date: d, p: p})
		}
	}

	out := ForecastPlot{
		Price:    LinePlot{Frame: wideFrame, Title: "Forecast", LogScale: logScale},
		Dynamics: LinePlot{Frame: shortFrame, Title: "Momentum"},
	}
	if len(rows) == 0 {
		out.Empty = true
		out.Price.Empty = true
		out.Dynamics.Empty = true
		return out
	}

	dates := make([]time.Time, len(rows))
	var values, dynamics []float64
	for i, r := range rows {
		dates[i] = r.date
		values = append(values, r.p.Open)
		for _, ptr := range []*float64{r.p.YhatLower, r.p.YhatUpper, r.p.TrendLower, r.p.TrendUpper} {
			if v, ok := optional(ptr); ok {
				values = append(values, v)
			}
		}
		for _, ptr := range []*float64{r.p.Momentum, r.p.Acceleration} {
			if v, ok := optional(ptr); ok {
				dynamics = append(dynamics, v)
			}
		}
	}

	xs := xScale{start: dates[0], end: dates[len(dates)-1]}
	xpos := make([]float64, len(rows))
	for i, d := range dates {
		xpos[i] = xs.project(d, wideFrame)
	}

	field := func(get func(models.ForecastPoint) *float64) func(int) (float64, bool) {
		return func(i int) (float64, bool) { return optional(get(rows[i].p)) }
	}

	if ys, ok := newYScale(values, logScale); ok {
		out.Price.Series, out.Price.Skipped = plotSeries(len(rows), xpos, dates, []seriesSpec{
			{name: "Predicted Open", color: "#73C2A0", value: func(i int) (float64, bool) { return rows[i].p.Open, true }, label: FormatPrice},
			{name: "Possible Open Lower", color: "#FF0000", value: field(func(p models.ForecastPoint) *float64 { return p.YhatLower }), label: FormatPrice},
			{name: "Possible Open Upper", color: "#00FF00", value: field(func(p models.ForecastPoint) *float64 { return p.YhatUpper }), label: FormatPrice},
		}, ys, out.Price.Frame)
		if band := bandPath(len(rows), xpos, field(func(p models.ForecastPoint) *float64 { return p.TrendLower }),
			field(func(p models.ForecastPoint) *float64 { return p.TrendUpper }), ys, out.Price.Frame); band != "" {
			out.Price.Bands = []Band{{Name: "Trend Range", Color: "#FFA500", Path: band}}
		}
		out.Price.XTicks = xs.ticks(5, out.Price.Frame)
		out.Price.YTicks = ys.ticks(5, out.Price.Frame)
	} else {
		out.Price.Empty = true
	}

	if ys, ok := newYScale(dynamics, false); ok {
		out.Dynamics.Series, _ = plotSeries(len(rows), xpos, dates, []seriesSpec{
			{name: "Momentum", color: "#FF00FF", value: field(func(p models.ForecastPoint) *float64 { return p.Momentum }), label: FormatNumber},
			{name: "Acceleration", color: "#00FFFF", value: field(func(p models.ForecastPoint) *float64 { return p.Acceleration }), label: FormatNumber},
		}, ys, out.Dynamics.Frame)
		out.Dynamics.XTicks = xs.ticks(5, out.Dynamics.Frame)
		out.Dynamics.YTicks = ys.ticks(3, out.Dynamics.Frame)
	} else {
		out.Dynamics.Empty = true
	}
	return out
}

// bandPath closes a polygon along upper left to right and lower right to
// left. Points missing either bound are left out.
func bandPath(n int, xs []float64, lower, upper func(int) (float64, bool), ys yScale, f Frame) string {
	type pt struct{ x, lo, hi float64 }
	var pts []pt
	for i := 0; i < n; i++ {
		lo, ok1 := lower(i)
		hi, ok2 := upper(i)
		if !ok1 || !ok2 || !ys.plottable(lo) || !ys.plottable(hi) {
			continue
		}
		pts = append(pts, pt{x: xs[i], lo: ys.project(lo, f), hi: ys.project(hi, f)})
	}
	if len(pts) < 2 {
		return ""
	}

	var path pathBuilder
	for _, p := range pts {
		path.point(p.x, p.hi)
	}
	for i := len(pts) - 1; i >= 0; i-- {
		path.point(pts[i].x, pts[i].lo)
	}
	return path.String() + " Z"
}

// Bar is one rectangle of a bar chart
type Bar struct {
	X, Y, W, H float64
	Title      string
}

// BarPlot is a rendered bar chart
type BarPlot struct {
	Frame  Frame
	Title  string
	Bars   []Bar
	XTicks []Tick
	YTicks []Tick
	Empty  bool
}

// TradeBarChart plots shares traded per trade, oldest first
func TradeBarChart(trades []models.Trade) BarPlot {
	plot := BarPlot{Frame: wideFrame, Title: "Insider Trades - Shares Traded"}
	if len(trades) == 0 {
		plot.Empty = true
		return plot
	}

	most := 0.0
	for _, t := range trades {
		most = math.Max(most, t.Shares)
	}
	ys := yScale{min: 0, max: most}
	if most == 0 {
		ys.max = 1
	}

	f := plot.Frame
	slot := f.innerW() / float64(len(trades))
	width := math.Max(slot*0.8, 1)
	labelEvery := int(math.Ceil(float64(len(trades)) / 6))

	for i, t := range trades {
		y := ys.project(t.Shares, f)
		x := f.Left + slot*float64(i) + (slot-width)/2
		plot.Bars = append(plot.Bars, Bar{
			X:     round(x),
			Y:     round(y),
			W:     round(width),
			H:     round(f.PlotBottom() - y),
			Title: fmt.Sprintf("%s %s: %s shares", FormatDate(t.TransactionDate), t.Code.Label(), FormatShares(t.Shares)),
		})
		if i%labelEvery == 0 {
			plot.XTicks = append(plot.XTicks, Tick{Pos: round(x + width/2), Label: FormatDate(t.TransactionDate)})
		}
	}
	plot.YTicks = ys.ticks(5, f)
	return plot
}

// PieSlice is one rendered pie wedge
type PieSlice struct {
	dashboard.Slice
	Path string
	// Full is set when a single category covers the whole pie
	Full bool
}

// PiePlot is a rendered pie chart with its legend
type PiePlot struct {
	Title  string
	Size   float64
	Radius float64
	Slices []PieSlice
	Empty  bool
}

// Center is the x and y of the pie's center
func (p PiePlot) Center() float64 { return p.Size / 2 }

// PieChart lays out the breakdown slices clockwise from twelve o'clock
func PieChart(slices []dashboard.Slice) PiePlot {
	plot := PiePlot{Title: "Transaction Types Breakdown", Size: 300, Radius: 120}
	total := 0
	for _, s := range slices {
		total += s.Value
	}
	if total == 0 {
		plot.Empty = true
		return plot
	}

	c := plot.Center()
	angle := -math.Pi / 2
	for _, s := range slices {
		frac := float64(s.Value) / float64(total)
		if frac >= 1 {
			plot.Slices = append(plot.Slices, PieSlice{Slice: s, Full: true})
			continue
		}
		end := angle + frac*2*math.Pi
		large := 0
		if frac > 0.5 {
			large = 1
		}
		x1, y1 := c+plot.Radius*math.Cos(angle), c+plot.Radius*math.Sin(angle)
		x2, y2 := c+plot.Radius*math.Cos(end), c+plot.Radius*math.Sin(end)
		path := fmt.Sprintf("M%.1f,%.1f L%.1f,%.1f A%.1f,%.1f 0 %d 1 %.1f,%.1f Z",
			c, c, x1, y1, plot.Radius, plot.Radius, large, x2, y2)
		plot.Slices = append(plot.Slices, PieSlice{Slice: s, Path: path})
		angle = end
	}
	return plot
}
