package models

import "strings"

// Companies is the fixed allow-list of symbols offered on the dashboard
type Companies []string

// NewCompanies normalizes symbols to upper case and drops duplicates
func NewCompanies(symbols []string) Companies {
	seen := make(map[string]bool, len(symbols))
	out := make(Companies, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// Contains reports whether symbol is on the allow-list
func (c Companies) Contains(symbol string) bool {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	for _, s := range c {
		if s == symbol {
			return true
		}
	}
	return false
}

// Search returns the symbols matching the query, case-insensitively.
// Prefix matches come first; an empty query returns the whole list.
func (c Companies) Search(query string) Companies {
	q := strings.ToUpper(strings.TrimSpace(query))
	if q == "" {
		return append(Companies(nil), c...)
	}

	var prefix, inner Companies
	for _, s := range c {
		switch {
		case strings.HasPrefix(s, q):
			prefix = append(prefix, s)
		case strings.Contains(s, q):
			inner = append(inner, s)
		}
	}
	return append(prefix, inner...)
}
