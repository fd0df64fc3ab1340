// Package core holds the ledger domain: entries, enumerations, validation,
// the error taxonomy and report types.
//
// This file contains parsing of user-entered amounts and quantities.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user-entered decimal string into a non-negative
// decimal rounded half-up to two places.
//
// Both dot (12.34) and comma (12,34) separators are accepted. Signs, thousands
// separators and anything non-numeric are rejected.
//
// Examples:
//
//	ParseAmount("amount", "12.34")  -> 12.34
//	ParseAmount("amount", "12,345") -> 12.35
//	ParseAmount("amount", "0")      -> 0
func ParseAmount(field, s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, &ValidationError{Field: field, Reason: "value is required"}
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "-") {
		return decimal.Zero, &ValidationError{Field: field, Reason: "value cannot be negative"}
	}
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, &ValidationError{Field: field, Reason: "malformed number " + s}
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return decimal.Zero, &ValidationError{Field: field, Reason: "malformed number " + s}
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &ValidationError{Field: field, Reason: "malformed number " + s}
	}
	return d.Round(2), nil
}
