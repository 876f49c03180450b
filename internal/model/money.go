package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// DisplayPlaces is the number of fractional digits shown to users.
	DisplayPlaces = 2
	// MaxScale is the most fractional digits an amount may carry.
	MaxScale = 6
	// MaxIntegerDigits bounds the whole-dollar part of any amount or balance.
	MaxIntegerDigits = 13

	maxAmountLength = 64
)

var (
	// ErrMalformedAmount is returned when an amount is not a decimal number.
	ErrMalformedAmount = errors.New("malformed amount")
	// ErrAmountOutOfRange is returned for amounts with too many digits.
	ErrAmountOutOfRange = errors.New("amount out of range")
)

// ParseAmount parses a decimal amount exactly. Sign is preserved; callers decide
// whether non-positive values are acceptable. Amounts outside CheckAmount's
// bounds are rejected before any arithmetic touches them.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrMalformedAmount)
	}
	if len(s) > maxAmountLength {
		return decimal.Zero, fmt.Errorf("%w: %w: too long", ErrMalformedAmount, ErrAmountOutOfRange)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformedAmount, s)
	}
	if err := CheckAmount(d); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %w", ErrMalformedAmount, err)
	}
	return d, nil
}

// CheckAmount reports ErrAmountOutOfRange when d has more than MaxScale
// fractional digits or more than MaxIntegerDigits whole digits. It only
// inspects the exponent and coefficient, so it is safe on hostile values.
func CheckAmount(d decimal.Decimal) error {
	exp := d.Exponent()
	if exp < -MaxScale {
		return fmt.Errorf("%w: more than %d decimal places", ErrAmountOutOfRange, MaxScale)
	}
	if exp > MaxIntegerDigits {
		return fmt.Errorf("%w: more than %d integer digits", ErrAmountOutOfRange, MaxIntegerDigits)
	}
	coefficient := d.Coefficient()
	if coefficient.Sign() == 0 {
		return nil
	}
	// Whole digits of coefficient * 10^exp.
	digits := len(coefficient.Abs(coefficient).String()) + int(exp)
	if digits > MaxIntegerDigits {
		return fmt.Errorf("%w: more than %d integer digits", ErrAmountOutOfRange, MaxIntegerDigits)
	}
	return nil
}

// RoundForDisplay rounds half away from zero to two places. Stored values keep
// full precision; only presentation goes through here.
func RoundForDisplay(d decimal.Decimal) decimal.Decimal {
	return d.Round(DisplayPlaces)
}

// DisplayString renders d with exactly two fractional digits.
func DisplayString(d decimal.Decimal) string {
	return d.StringFixed(DisplayPlaces)
}

// FormatCurrency renders d as dollars with thousands separators, e.g. "$1,234.56".
func FormatCurrency(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	return sign + "$" + groupThousands(d.StringFixed(DisplayPlaces))
}

// FormatSigned renders d with an explicit sign, e.g. "+$40.00" or "-$40.00".
func FormatSigned(d decimal.Decimal) string {
	if d.IsNegative() {
		return FormatCurrency(d)
	}
	return "+" + FormatCurrency(d)
}

func groupThousands(fixed string) string {
	whole, frac, _ := strings.Cut(fixed, ".")
	if len(whole) <= 3 {
		return fixed
	}

	var b strings.Builder
	lead := len(whole) % 3
	if lead > 0 {
		b.WriteString(whole[:lead])
	}
	for i := lead; i < len(whole); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(whole[i : i+3])
	}
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}
