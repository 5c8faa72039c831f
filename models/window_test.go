package models

import (
	"strings"
	"testing"
	"time"
)

func TestParseTimeWindow(t *testing.T) {
	tests := []struct {
		input   string
		want    TimeWindow
		wantErr bool
	}{
		{"1w", WindowOneWeek, false},
		{"1m", WindowOneMonth, false},
		{"3M", WindowThreeMonth, false},
		{" 6m ", WindowSixMonth, false},
		{"1y", WindowOneYear, false},
		{"2w", "", true},
		{"ytd", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTimeWindow(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTimeWindow(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseTimeWindow(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTimeWindow_Label(t *testing.T) {
	if got := WindowSixMonth.Label(); got != "6 Months" {
		t.Errorf("Label() = %q, want '6 Months'", got)
	}
	if got := TimeWindow("5y").Label(); got != "5y" {
		t.Errorf("unknown window label = %q, want passthrough", got)
	}
	if len(TimeWindows) != 5 {
		t.Errorf("expected 5 windows, got %d", len(TimeWindows))
	}
}

func TestCompanies(t *testing.T) {
	c := NewCompanies([]string{"aapl", "NVDA", " meta ", "AAPL", ""})

	if got := strings.Join(c, ","); got != "AAPL,NVDA,META" {
		t.Fatalf("NewCompanies = %s, want AAPL,NVDA,META", got)
	}

	t.Run("Contains", func(t *testing.T) {
		if !c.Contains("nvda") {
			t.Error("Contains should be case-insensitive")
		}
		if c.Contains("TSLA") {
			t.Error("TSLA is not on the list")
		}
	})

	t.Run("Search", func(t *testing.T) {
		tests := []struct {
			query string
			want  string
		}{
			{"", "AAPL,NVDA,META"},
			{"a", "AAPL,NVDA,META"},
			{"me", "META"},
			{"D", "NVDA"},
			{"xyz", ""},
		}
		for _, tt := range tests {
			if got := strings.Join(c.Search(tt.query), ","); got != tt.want {
				t.Errorf("Search(%q) = %q, want %q", tt.query, got, tt.want)
			}
		}
	})
}

func TestNewForecastInput(t *testing.T) {
	p := PricePoint{
		Ticker: "AAPL",
		Date:   time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
		Open:   1, High: 2, Low: 0.5, Close: 1.5,
	}
	in := NewForecastInput(p)
	if in.Date != "2024-03-09" {
		t.Errorf("Date = %q, want 2024-03-09", in.Date)
	}
	if in.Ticker != "AAPL" || in.Close != 1.5 {
		t.Errorf("unexpected input %+v", in)
	}
}
