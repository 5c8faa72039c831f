package dashboard

import (
	"fmt"

	"snooptrade/models"
)

// Palette is the fixed pie chart palette, cycled when there are more slices
var Palette = []string{"#0088FE", "#00C49F", "#FFBB28", "#FF8042"}

// Slice is one pie chart category
type Slice struct {
	Code    models.TransactionCode
	Name    string
	Value   int
	Percent float64
	Color   string
}

// Tooltip is the hover text for the slice
func (s Slice) Tooltip() string {
	return fmt.Sprintf("%s (%s): %d trades (%.1f%%)", s.Name, s.Code, s.Value, s.Percent)
}

// Breakdown counts trades by transaction code in first-seen order
func Breakdown(trades []models.Trade) []Slice {
	index := make(map[models.TransactionCode]int)
	var slices []Slice
	for _, t := range trades {
		i, ok := index[t.Code]
		if !ok {
			i = len(slices)
			index[t.Code] = i
			slices = append(slices, Slice{Code: t.Code, Name: t.Code.Label()})
		}
		slices[i].Value++
	}

	for i := range slices {
		slices[i].Percent = float64(slices[i].Value) / float64(len(trades)) * 100
	}
	return slices
}

// Colorize assigns colors from the palette, or evenly spaced hues when hue is set
func Colorize(slices []Slice, hue bool) []Slice {
	var colors []string
	if hue {
		colors = HueColors(len(slices))
	}
	out := make([]Slice, len(slices))
	for i, s := range slices {
		if hue {
			s.Color = colors[i]
		} else {
			s.Color = Palette[i%len(Palette)]
		}
		out[i] = s
	}
	return out
}

// Hues returns n hues spaced 360/n degrees apart, starting at 0
func Hues(n int) []float64 {
	hues := make([]float64, n)
	for i := range hues {
		hues[i] = 360 / float64(n) * float64(i)
	}
	return hues
}

// HueColors renders Hues(n) as CSS hsl() colors
func HueColors(n int) []string {
	hues := Hues(n)
	colors := make([]string, n)
	for i, h := range hues {
		colors[i] = fmt.Sprintf("hsl(%g, 70%%, 50%%)", h)
	}
	return colors
}
