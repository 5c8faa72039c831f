package dashboard

import (
	"sort"
	"strings"

	"snooptrade/models"
)

// Column is a sortable trade table column
type Column string

const (
	ColumnDefault Column = ""
	ColumnDate    Column = "date"
	ColumnCode    Column = "type"
	ColumnShares  Column = "shares"
	ColumnPrice   Column = "price"
	ColumnTotal   Column = "total"
)

// Columns lists the sortable columns in display order
var Columns = []Column{ColumnDate, ColumnCode, ColumnShares, ColumnPrice, ColumnTotal}

// Label returns the column heading
func (c Column) Label() string {
	switch c {
	case ColumnDate:
		return "Date"
	case ColumnCode:
		return "Transaction Type"
	case ColumnShares:
		return "Shares"
	case ColumnPrice:
		return "Price Per Share"
	case ColumnTotal:
		return "Total Value"
	}
	return ""
}

// ParseColumn returns the column named s, or ColumnDefault
func ParseColumn(s string) Column {
	c := Column(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Columns {
		if c == known {
			return c
		}
	}
	return ColumnDefault
}

// SortRows returns a sorted copy of rows. The input is never modified and
// ties keep their input order, so sorting twice equals sorting once.
// ColumnDefault returns the rows in their given order.
func SortRows(rows []models.Trade, col Column, desc bool) []models.Trade {
	out := make([]models.Trade, len(rows))
	copy(out, rows)

	less := lessFunc(col)
	if less == nil {
		return out
	}

	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}

func lessFunc(col Column) func(a, b models.Trade) bool {
	switch col {
	case ColumnDate:
		return func(a, b models.Trade) bool { return a.TransactionDate.Before(b.TransactionDate) }
	case ColumnCode:
		return func(a, b models.Trade) bool { return a.Code.Label() < b.Code.Label() }
	case ColumnShares:
		return func(a, b models.Trade) bool { return a.Shares < b.Shares }
	case ColumnPrice:
		return func(a, b models.Trade) bool { return a.PricePerShare.LessThan(b.PricePerShare) }
	case ColumnTotal:
		return func(a, b models.Trade) bool { return a.TotalValue.LessThan(b.TotalValue) }
	}
	return nil
}

// Page is one page of the trade table
type Page struct {
	Rows  []models.Trade
	Index int
	Size  int
	Total int
}

// Paginate returns rows [page*size, min((page+1)*size, total)).
// A page past the end yields no rows, not an error.
func Paginate(rows []models.Trade, page, size int) Page {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = 10
	}

	p := Page{Index: page, Size: size, Total: len(rows)}
	// compare page numbers before multiplying so huge pages cannot wrap
	if page >= p.Pages() {
		p.Rows = []models.Trade{}
		return p
	}
	start := page * size
	end := start + size
	if end > len(rows) {
		end = len(rows)
	}
	p.Rows = rows[start:end:end]
	return p
}

// Pages returns the number of non-empty pages
func (p Page) Pages() int {
	if p.Total == 0 {
		return 0
	}
	return (p.Total + p.Size - 1) / p.Size
}

// First is the 1-based position of the first row shown, 0 when empty
func (p Page) First() int {
	if len(p.Rows) == 0 {
		return 0
	}
	return p.Index*p.Size + 1
}

// Last is the 1-based position of the last row shown, 0 when empty
func (p Page) Last() int {
	if len(p.Rows) == 0 {
		return 0
	}
	return p.Index*p.Size + len(p.Rows)
}

// HasPrev reports whether a previous page exists
func (p Page) HasPrev() bool {
	return p.Index > 0
}

// HasNext reports whether a following page has rows
func (p Page) HasNext() bool {
	return p.Index < p.Pages()-1
}
