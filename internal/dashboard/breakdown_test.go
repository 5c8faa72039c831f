package dashboard

import (
	"testing"

	"snooptrade/models"
)

func trades(codes ...models.TransactionCode) []models.Trade {
	out := make([]models.Trade, len(codes))
	for i, c := range codes {
		out[i].Code = c
	}
	return out
}

func TestBreakdown(t *testing.T) {
	slices := Breakdown(trades("S", "M", "S", "Z", "S", "M"))

	if len(slices) != 3 {
		t.Fatalf("expected 3 categories, got %d", len(slices))
	}

	want := []struct {
		code  models.TransactionCode
		name  string
		value int
	}{
		{"S", "Sale", 3},
		{"M", "Exercise/Conversion", 2},
		{"Z", "Z", 1},
	}
	for i, w := range want {
		if slices[i].Code != w.code || slices[i].Name != w.name || slices[i].Value != w.value {
			t.Errorf("slice %d = %+v, want %+v", i, slices[i], w)
		}
	}

	if slices[0].Percent != 50 {
		t.Errorf("expected 50%%, got %v", slices[0].Percent)
	}
	if got := slices[0].Tooltip(); got != "Sale (S): 3 trades (50.0%)" {
		t.Errorf("Tooltip() = %q", got)
	}
}

func TestBreakdown_Empty(t *testing.T) {
	if got := Breakdown(nil); len(got) != 0 {
		t.Errorf("expected no slices, got %d", len(got))
	}
}

func TestHues(t *testing.T) {
	for _, n := range []int{1, 3, 4, 7} {
		hues := Hues(n)
		if len(hues) != n {
			t.Fatalf("Hues(%d) returned %d", n, len(hues))
		}
		for i, h := range hues {
			if want := 360 / float64(n) * float64(i); h != want {
				t.Errorf("Hues(%d)[%d] = %v, want %v", n, i, h, want)
			}
		}
	}

	if got := HueColors(4); got[1] != "hsl(90, 70%, 50%)" {
		t.Errorf("HueColors(4)[1] = %q", got[1])
	}
}

func TestColorize(t *testing.T) {
	slices := Breakdown(trades("P", "S", "A", "D", "F"))

	palette := Colorize(slices, false)
	if palette[0].Color != "#0088FE" || palette[4].Color != "#0088FE" {
		t.Errorf("palette should cycle, got %s and %s", palette[0].Color, palette[4].Color)
	}
	if slices[0].Color != "" {
		t.Error("Colorize must not modify its input")
	}

	hue := Colorize(slices, true)
	if hue[0].Color != "hsl(0, 70%, 50%)" || hue[1].Color != "hsl(72, 70%, 50%)" {
		t.Errorf("unexpected hue colors %s, %s", hue[0].Color, hue[1].Color)
	}
}
