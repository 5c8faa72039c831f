package models

import (
	"time"
)

// RawPricePoint is a price row as returned by GET /stocks/{symbol}
type RawPricePoint struct {
	Ticker string   `json:"ticker"`
	Date   string   `json:"date"`
	Open   *float64 `json:"open"`
	High   *float64 `json:"high"`
	Low    *float64 `json:"low"`
	Close  *float64 `json:"close"`
	Volume *float64 `json:"volume"`
}

// PricePoint is a normalized daily price with every number populated
type PricePoint struct {
	Ticker string    `json:"ticker"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// ForecastInput is one element of the POST /future request body
type ForecastInput struct {
	Ticker string  `json:"ticker"`
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
}

// NewForecastInput converts a normalized price into the forecast wire form
func NewForecastInput(p PricePoint) ForecastInput {
	return ForecastInput{
		Ticker: p.Ticker,
		Date:   p.Date.Format("2006-01-02"),
		Open:   p.Open,
		High:   p.High,
		Low:    p.Low,
		Close:  p.Close,
	}
}

// ForecastPoint is a predicted price with its bounds and model components
type ForecastPoint struct {
	Date         string   `json:"date"`
	Open         float64  `json:"open"` // predicted value
	High         *float64 `json:"high,omitempty"`
	Low          *float64 `json:"low,omitempty"`
	Trend        *float64 `json:"trend,omitempty"`
	TrendLower   *float64 `json:"trend_lower,omitempty"`
	TrendUpper   *float64 `json:"trend_upper,omitempty"`
	YhatLower    *float64 `json:"yhat_lower,omitempty"`
	YhatUpper    *float64 `json:"yhat_upper,omitempty"`
	Seasonal     *float64 `json:"seasonal,omitempty"`
	Momentum     *float64 `json:"momentum,omitempty"`
	Acceleration *float64 `json:"acceleration,omitempty"`
}
