/*
Package generic provides the primitives shared by the compliance engine.

PURPOSE:
  Domain-agnostic building blocks: decimal quantities (money, hours, rates),
  calendar dates, half-open effective ranges and the error taxonomy. Every
  other package builds on these so that arithmetic and date handling behave
  the same way everywhere.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: pounds sterling as decimal.Decimal
  - Hours: worked hours as decimal.Decimal
  - Rate helpers: hourly rate and percentage arithmetic

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors
  2. Rounding happens only at presentation boundaries (RoundMoney, RoundPercent)
  3. Division by zero is never attempted; callers get ok=false instead

USAGE:
  pay := generic.MustParseDecimal("400")
  hours := generic.MustParseDecimal("40")
  rate, ok := generic.HourlyRate(pay, hours) // 10, true

SEE ALSO:
  - time.go: TimePoint and age calculation
  - period.go: EffectiveRange (half-open) and pay period length
  - errors.go: ValidationError / ConfigurationError / ComputationError
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// QUANTITIES
// =============================================================================

// Money is an amount in pounds sterling.
type Money = decimal.Decimal

// Hours is a number of worked hours.
type Hours = decimal.Decimal

var hundred = decimal.NewFromInt(100)

// MustParseDecimal parses s, panicking on malformed input.
// Only use with literals.
func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic("generic: bad decimal literal " + s)
	}
	return d
}

// =============================================================================
// RATE ARITHMETIC
// =============================================================================

// HourlyRate returns pay / hours. ok is false when hours is zero.
func HourlyRate(pay Money, hours Hours) (decimal.Decimal, bool) {
	if hours.IsZero() {
		return decimal.Zero, false
	}
	return pay.Div(hours), true
}

// Ratio returns part / whole, or zero when whole is zero.
func Ratio(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole)
}

// Percent returns part / whole * 100, or zero when whole is zero.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	return Ratio(part, whole).Mul(hundred)
}

func RoundMoney(d decimal.Decimal) decimal.Decimal   { return d.Round(2) }
func RoundPercent(d decimal.Decimal) decimal.Decimal { return d.Round(2) }
func RoundRate(d decimal.Decimal) decimal.Decimal    { return d.Round(4) }

// DecimalPtr returns a pointer to a copy of d.
func DecimalPtr(d decimal.Decimal) *decimal.Decimal { return &d }
