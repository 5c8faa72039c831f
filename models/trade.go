package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// FlexString accepts a JSON string, number or null.
// The upstream is inconsistent about quoting numeric Form 4 fields.
type FlexString struct {
	Value string
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = FlexString{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString{Value: s, Valid: true}
		return nil
	}
	*f = FlexString{Value: string(data), Valid: true}
	return nil
}

// MarshalJSON implements json.Marshaler
func (f FlexString) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// S builds a valid FlexString
func S(v string) FlexString {
	return FlexString{Value: v, Valid: true}
}

// RawTrade is an insider-trading record as returned by GET /transactions/{symbol}
type RawTrade struct {
	FilingDate         FlexString `json:"filing_date"`
	IssuerName         FlexString `json:"issuer_name"`
	IssuerCIK          FlexString `json:"issuer_cik"`
	TradingSymbol      FlexString `json:"trading_symbol"`
	ReportingOwnerName FlexString `json:"reporting_owner_name"`
	ReportingOwnerCIK  FlexString `json:"reporting_owner_cik"`
	TransactionDate    FlexString `json:"transaction_date"`
	SecurityTitle      FlexString `json:"security_title"`
	TransactionCode    FlexString `json:"transaction_code"`
	Shares             FlexString `json:"shares"`
	PricePerShare      FlexString `json:"price_per_share"`
	OwnershipType      FlexString `json:"ownership_type"`
}

// Trade is a validated insider trade ready for display
type Trade struct {
	FilingDate         *time.Time      `json:"filing_date,omitempty"`
	TransactionDate    time.Time       `json:"transaction_date"`
	IssuerName         string          `json:"issuer_name"`
	IssuerCIK          string          `json:"issuer_cik"`
	Symbol             string          `json:"symbol"`
	ReportingOwnerName string          `json:"reporting_owner_name"`
	ReportingOwnerCIK  string          `json:"reporting_owner_cik"`
	SecurityTitle      string          `json:"security_title"`
	Code               TransactionCode `json:"transaction_code"`
	Shares             float64         `json:"shares"`
	PricePerShare      decimal.Decimal `json:"price_per_share"`
	TotalValue         decimal.Decimal `json:"total_value"`
	OwnershipType      string          `json:"ownership_type"`
}

// NewTrade fills in derived fields
func NewTrade(date time.Time, code TransactionCode, shares float64, price decimal.Decimal) Trade {
	return Trade{
		TransactionDate: date,
		Code:            code,
		Shares:          shares,
		PricePerShare:   price,
		TotalValue:      price.Mul(decimal.NewFromFloat(shares)),
	}
}

// SharesString renders shares without a trailing ".0" for whole numbers
func (t Trade) SharesString() string {
	return strconv.FormatFloat(t.Shares, 'f', -1, 64)
}

// TransactionCode is the single-letter SEC Form 4 classification
type TransactionCode string

const (
	CodePurchase      TransactionCode = "P"
	CodeSale          TransactionCode = "S"
	CodeGrant         TransactionCode = "A"
	CodeSaleToLoss    TransactionCode = "D"
	CodePaymentOfExer TransactionCode = "F"
	CodeDiscretionary TransactionCode = "I"
	CodeExercise      TransactionCode = "M"
)

var codeLabels = map[TransactionCode]string{
	CodePurchase:      "Purchase",
	CodeSale:          "Sale",
	CodeGrant:         "Grant",
	CodeSaleToLoss:    "Sale to Loss",
	CodePaymentOfExer: "Payment of Exercise",
	CodeDiscretionary: "Discretionary Transaction",
	CodeExercise:      "Exercise/Conversion",
}

// Label returns the human-readable name; unknown codes pass through verbatim
func (c TransactionCode) Label() string {
	if label, ok := codeLabels[c]; ok {
		return label
	}
	return string(c)
}

// Known reports whether the code has a label
func (c TransactionCode) Known() bool {
	_, ok := codeLabels[c]
	return ok
}
