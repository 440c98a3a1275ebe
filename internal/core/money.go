// Package core holds the budget domain types: periods, categories, expenses
// and amounts.
//
// This file contains amount parsing and the JSON form of amounts.
package core

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Amount is a decimal money value. Budgets and expense amounts are
// non-negative when written; remaining amounts may be negative.
type Amount struct {
	decimal.Decimal
}

// Zero is the zero amount.
var Zero = Amount{}

// NewAmount wraps d.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d}
}

// AmountFromInt returns a whole amount.
func AmountFromInt(v int64) Amount {
	return Amount{Decimal: decimal.NewFromInt(v)}
}

// MustAmount parses s with ParseAmount and panics on error. Tests and
// constants only.
func MustAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// ParseAmount converts a user supplied decimal string to an amount.
//
// It accepts both dot (12.34) and comma (12,34) separators and rounds
// half-up to cents. Zero is allowed; signs, exponents and anything that is
// not digits are rejected.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,34")  -> 12.34
//	ParseAmount("12.345") -> 12.35
//	ParseAmount("-1")     -> ErrNegativeAmount
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "-") {
		return Zero, ErrNegativeAmount
	}
	s = strings.TrimPrefix(s, "+")
	intPart, fracPart, _ := strings.Cut(s, ".")
	if strings.Contains(fracPart, ".") || (intPart == "" && fracPart == "") {
		return Zero, ErrInvalidAmount
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return Zero, ErrInvalidAmount
		}
	}
	if intPart == "" {
		intPart = "0"
	}
	d, err := decimal.NewFromString(intPart + "." + fracPart + "0")
	if err != nil {
		return Zero, ErrInvalidAmount
	}
	return Amount{Decimal: d.Round(2)}, nil
}

// Add returns a+o.
func (a Amount) Add(o Amount) Amount {
	return Amount{Decimal: a.Decimal.Add(o.Decimal)}
}

// Sub returns a-o.
func (a Amount) Sub(o Amount) Amount {
	return Amount{Decimal: a.Decimal.Sub(o.Decimal)}
}

// Equal compares values, ignoring scale.
func (a Amount) Equal(o Amount) bool {
	return a.Decimal.Equal(o.Decimal)
}

// Validate rejects negative amounts.
func (a Amount) Validate() error {
	if a.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

// MarshalJSON writes the amount as a JSON number.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

// UnmarshalJSON reads a JSON number or numeric string. Stored documents may
// be hand edited or come from older clients, so anything else (null,
// booleans, garbage strings) decodes to zero instead of failing.
func (a *Amount) UnmarshalJSON(b []byte) error {
	a.Decimal = decimal.Zero
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	var raw any
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil
	}
	var s string
	switch v := raw.(type) {
	case json.Number:
		s = v.String()
	case string:
		s = strings.ReplaceAll(strings.TrimSpace(v), ",", ".")
	default:
		return nil
	}
	if d, err := decimal.NewFromString(s); err == nil {
		a.Decimal = d
	}
	return nil
}
