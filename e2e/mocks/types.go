package mocks

// User is an account known to the mock upstream.
type User struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"-"`
}

// PriceRow is one element of GET /stocks/{symbol}.
// Pointer fields let tests send nulls.
type PriceRow struct {
	Ticker string   `json:"ticker"`
	Date   string   `json:"date"`
	Open   *float64 `json:"open"`
	High   *float64 `json:"high"`
	Low    *float64 `json:"low"`
	Close  *float64 `json:"close"`
	Volume *float64 `json:"volume"`
}

// TradeRow is one element of GET /transactions/{symbol}.
// Shares and PricePerShare are raw JSON so tests can mix strings and numbers.
type TradeRow struct {
	FilingDate         string `json:"filing_date"`
	IssuerName         string `json:"issuer_name"`
	TradingSymbol      string `json:"trading_symbol"`
	ReportingOwnerName string `json:"reporting_owner_name"`
	TransactionDate    string `json:"transaction_date"`
	SecurityTitle      string `json:"security_title"`
	TransactionCode    string `json:"transaction_code"`
	Shares             any    `json:"shares"`
	PricePerShare      any    `json:"price_per_share"`
	OwnershipType      string `json:"ownership_type"`
}

// ForecastRow is one element of the POST /future response.
type ForecastRow struct {
	Date         string   `json:"date"`
	Open         float64  `json:"open"`
	YhatLower    *float64 `json:"yhat_lower,omitempty"`
	YhatUpper    *float64 `json:"yhat_upper,omitempty"`
	TrendLower   *float64 `json:"trend_lower,omitempty"`
	TrendUpper   *float64 `json:"trend_upper,omitempty"`
	Momentum     *float64 `json:"momentum,omitempty"`
	Acceleration *float64 `json:"acceleration,omitempty"`
}

// Failure is an injected error response.
type Failure struct {
	Status int
	Detail string
}

// F returns a pointer to v for optional JSON fields.
func F(v float64) *float64 {
	return &v
}
