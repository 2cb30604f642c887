package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Bounds on accepted amounts. Arithmetic on a decimal costs time linear in
// its exponent, so values outside these bounds are refused at the edge.
const (
	MaxFractionDigits = 18
	MaxIntegerDigits  = 20

	maxNumericLen = 64
	// Stored doubles reach about 1e-324; anything smaller is treated as junk.
	minStoredExponent = -400
)

var (
	ErrNotANumber       = errors.New("not a number")
	ErrAmountOutOfRange = errors.New("amount out of range")
)

// ParseAmount coerces a loosely typed value into a decimal. It accepts JSON
// numbers, numeric strings, Go integer and float types, and anything with a
// numeric String form (e.g. BSON Decimal128). It returns ErrNotANumber for
// nil, empty strings, NaN, infinities and non-numeric text, and
// ErrAmountOutOfRange for values with more than MaxFractionDigits decimal
// places or more than MaxIntegerDigits integer digits.
func ParseAmount(v any) (decimal.Decimal, error) {
	d, err := parseUnbounded(v)
	if err != nil {
		return decimal.Zero, err
	}
	if !InRange(d) {
		return decimal.Zero, ErrAmountOutOfRange
	}
	return d, nil
}

// ParseNumber is ParseAmount reporting success as a bool.
func ParseNumber(v any) (decimal.Decimal, bool) {
	d, err := ParseAmount(v)
	return d, err == nil
}

// InRange reports whether d is within the amount bounds.
func InRange(d decimal.Decimal) bool {
	exp := int64(d.Exponent())
	if exp < -MaxFractionDigits {
		return false
	}
	return int64(d.NumDigits())+exp <= MaxIntegerDigits
}

func parseUnbounded(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case nil:
		return decimal.Zero, ErrNotANumber
	case decimal.Decimal:
		return n, nil
	case json.Number:
		return parseNumericString(n.String())
	case string:
		return parseNumericString(n)
	case float64:
		return fromFloat(n)
	case float32:
		return fromFloat(float64(n))
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int32:
		return decimal.NewFromInt32(n), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case fmt.Stringer:
		return parseNumericString(n.String())
	default:
		return decimal.Zero, ErrNotANumber
	}
}

// NumberOrZero is ParseNumber with a zero default. Read paths use it so a
// record with a missing or malformed numeric field still renders. Stored
// values with more than MaxFractionDigits decimal places are rounded.
func NumberOrZero(v any) decimal.Decimal {
	d, err := parseUnbounded(v)
	if err != nil {
		return decimal.Zero
	}
	if InRange(d) {
		return d
	}
	if exp := d.Exponent(); exp < minStoredExponent || exp > 0 {
		return decimal.Zero
	}
	if d = d.Round(MaxFractionDigits); !InRange(d) {
		return decimal.Zero
	}
	return d
}

func parseNumericString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrNotANumber
	}
	if len(s) > maxNumericLen {
		return decimal.Zero, ErrAmountOutOfRange
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrNotANumber
	}
	return d, nil
}

func fromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, ErrNotANumber
	}
	return decimal.NewFromFloat(f), nil
}

// WeightedAverage merges a new purchase into an existing cost basis:
// (heldQty*heldAvg + qty*price) / (heldQty + qty). It reports false when the
// combined quantity is not positive.
func WeightedAverage(heldQty, heldAvg, qty, price decimal.Decimal) (decimal.Decimal, bool) {
	total := heldQty.Add(qty)
	if !total.IsPositive() {
		return decimal.Zero, false
	}
	value := heldQty.Mul(heldAvg).Add(qty.Mul(price))
	return value.Div(total), true
}
