// Package core provides money parsing and handling utilities.
//
// This file contains the Amount type, the parser used on the append path and
// the lenient decoder used when reading stored rows back.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a non-negative decimal quantity. The zero value is an empty
// amount and does not validate.
type Amount struct {
	value decimal.Decimal
	raw   string
	valid bool
}

// NewAmount wraps a decimal value.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{value: d, valid: true}
}

// MustAmount parses s and panics on failure. Intended for tests and constants.
func MustAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// ParseAmount converts user input to an Amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Empty,
// non-numeric and negative inputs are rejected with ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("-1")    -> error
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	// Normalize decimal comma to dot
	if !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return Amount{}, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, s)
	}
	return NewAmount(d), nil
}

// AmountFromText decodes a stored amount. It never fails; text that does not
// parse is kept so it can be reported, or written back, unchanged.
func AmountFromText(s string) Amount {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Amount{raw: s}
	}
	return NewAmount(d)
}

// Valid reports whether the amount holds a number.
func (a Amount) Valid() bool {
	return a.valid
}

// Decimal returns the numeric value, or ErrMalformedAmount when the stored
// text did not parse.
func (a Amount) Decimal() (decimal.Decimal, error) {
	if !a.valid {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformedAmount, a.raw)
	}
	return a.value, nil
}

func (a Amount) Validate() error {
	if !a.valid {
		if a.raw == "" {
			return fmt.Errorf("%w: empty", ErrInvalidAmount)
		}
		return fmt.Errorf("%w: %q", ErrInvalidAmount, a.raw)
	}
	if a.value.IsNegative() {
		return fmt.Errorf("%w: %s is negative", ErrInvalidAmount, a.value.String())
	}
	return nil
}

// String renders the amount in plain notation: two decimals when the value
// has at most two, otherwise every significant digit.
func (a Amount) String() string {
	if !a.valid {
		return a.raw
	}
	return FormatDecimal(a.value)
}

// Equal compares amounts by numeric value; invalid amounts compare by text.
func (a Amount) Equal(o Amount) bool {
	if a.valid != o.valid {
		return false
	}
	if !a.valid {
		return a.raw == o.raw
	}
	return a.value.Equal(o.value)
}

// FormatDecimal renders d without an exponent, padded to two decimals.
func FormatDecimal(d decimal.Decimal) string {
	if d.Exponent() >= -2 {
		return d.StringFixed(2)
	}
	return d.String()
}
