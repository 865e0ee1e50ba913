package prp

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/wage-compliance/generic"
	"github.com/warp/wage-compliance/payroll"
)

// =============================================================================
// INPUT / OUTPUT
// =============================================================================

// Input is one pay reference period with its itemized components.
type Input struct {
	Period     payroll.PayPeriod
	Offsets    []payroll.Offset
	Allowances []payroll.Allowance

	// AccommodationDailyLimit is the statutory limit on the pay date. It caps
	// every capped_offset rule that has no daily_limit of its own.
	AccommodationDailyLimit decimal.Decimal
}

// OffsetViolation records a capped offset charged above its limit.
type OffsetViolation struct {
	Type       payroll.OffsetType `json:"type"`
	Charged    decimal.Decimal    `json:"charged"`
	DailyLimit decimal.Decimal    `json:"daily_limit"`
	Days       int                `json:"days"`
	Cap        decimal.Decimal    `json:"cap"`
	Excess     decimal.Decimal    `json:"excess"`
}

// Flag returns the stable identifier of the violation.
func (v OffsetViolation) Flag() string {
	return "offset_limit_exceeded:" + string(v.Type)
}

// Aggregation is the NMW view of a pay period.
type Aggregation struct {
	TotalPay   decimal.Decimal `json:"total_pay"`
	TotalHours decimal.Decimal `json:"total_hours"`

	EligiblePay decimal.Decimal `json:"eligible_pay"`

	// EffectiveHourlyRate is nil when TotalHours is zero.
	EffectiveHourlyRate *decimal.Decimal `json:"effective_hourly_rate"`

	Deductions         decimal.Decimal `json:"deductions"`     // reduces_pay offsets
	OffsetCharges      decimal.Decimal `json:"offset_charges"` // capped offsets as charged
	OffsetExcess       decimal.Decimal `json:"offset_excess"`  // capped offsets above their cap
	IncludedAllowances decimal.Decimal `json:"included_allowances"`
	ExcludedAllowances decimal.Decimal `json:"excluded_allowances"`

	DeductionRatio   decimal.Decimal   `json:"deduction_ratio"`
	OffsetViolations []OffsetViolation `json:"offset_violations"`
}

// ZeroHours reports whether no hours were recorded.
func (a *Aggregation) ZeroHours() bool {
	return a.TotalHours.IsZero()
}

// AccommodationOffsetFlags returns one flag per offset limit breach.
func (a *Aggregation) AccommodationOffsetFlags() []string {
	flags := make([]string, 0, len(a.OffsetViolations))
	for _, v := range a.OffsetViolations {
		flags = append(flags, v.Flag())
	}
	return flags
}

// =============================================================================
// AGGREGATOR
// =============================================================================

// Aggregator applies a rule table to pay periods. It holds no mutable state.
type Aggregator struct {
	rules *Rules
}

func NewAggregator(rules *Rules) *Aggregator {
	return &Aggregator{rules: rules}
}

// Rules returns the rule table in use.
func (a *Aggregator) Rules() *Rules {
	return a.rules
}

// Aggregate computes eligible pay and the effective hourly rate.
// Negative or unknown inputs are rejected with a *generic.ValidationError.
func (a *Aggregator) Aggregate(in Input) (*Aggregation, error) {
	if err := validatePeriod(in.Period); err != nil {
		return nil, err
	}
	if in.AccommodationDailyLimit.IsNegative() {
		return nil, generic.NewValidationError("accommodation_daily_limit", in.AccommodationDailyLimit, "must not be negative")
	}

	agg := &Aggregation{
		TotalPay:         in.Period.TotalPay,
		TotalHours:       in.Period.TotalHours,
		OffsetViolations: []OffsetViolation{},
	}

	for i, al := range in.Allowances {
		rule, err := a.ruleFor(al.Type, fmt.Sprintf("allowances[%d]", i))
		if err != nil {
			return nil, err
		}
		if al.Amount.IsNegative() {
			return nil, generic.NewValidationError(fmt.Sprintf("allowances[%d].amount", i), al.Amount, "must not be negative")
		}
		switch rule.Treatment {
		case TreatmentAddsToPay:
			agg.IncludedAllowances = agg.IncludedAllowances.Add(al.Amount)
		default:
			agg.ExcludedAllowances = agg.ExcludedAllowances.Add(al.Amount)
		}
	}

	periodDays := in.Period.Range().Days()
	for i, off := range in.Offsets {
		field := fmt.Sprintf("offsets[%d]", i)
		rule, err := a.ruleFor(off.Type, field)
		if err != nil {
			return nil, err
		}
		if err := validateOffset(off, field); err != nil {
			return nil, err
		}

		switch rule.Treatment {
		case TreatmentReducesPay:
			agg.Deductions = agg.Deductions.Add(off.Amount)
		case TreatmentCappedOffset:
			limit := in.AccommodationDailyLimit
			if rule.DailyLimit != nil {
				limit = *rule.DailyLimit
			}
			charged, days := offsetCharge(off, periodDays)
			agg.OffsetCharges = agg.OffsetCharges.Add(charged)

			capAmount := limit.Mul(decimal.NewFromInt(int64(days)))
			if charged.GreaterThan(capAmount) {
				excess := charged.Sub(capAmount)
				agg.OffsetExcess = agg.OffsetExcess.Add(excess)
				agg.OffsetViolations = append(agg.OffsetViolations, OffsetViolation{
					Type:       off.Type,
					Charged:    charged,
					DailyLimit: limit,
					Days:       days,
					Cap:        capAmount,
					Excess:     excess,
				})
			}
		}
	}

	agg.EligiblePay = agg.TotalPay.
		Sub(agg.Deductions).
		Add(agg.IncludedAllowances).
		Sub(agg.OffsetExcess)

	if rate, ok := generic.HourlyRate(agg.EligiblePay, agg.TotalHours); ok {
		agg.EffectiveHourlyRate = &rate
	}
	agg.DeductionRatio = generic.Ratio(agg.Deductions.Add(agg.OffsetCharges), agg.TotalPay)

	return agg, nil
}

func (a *Aggregator) ruleFor(c payroll.ComponentType, field string) (Rule, error) {
	rule, ok := a.rules.For(c)
	if !ok {
		return Rule{}, generic.NewValidationError(field+".type", c.ComponentID(), "unknown component type")
	}
	return rule, nil
}

// offsetCharge returns the charged amount and the number of days it covers.
func offsetCharge(off payroll.Offset, periodDays int) (decimal.Decimal, int) {
	days := periodDays
	if off.DaysApplied != nil {
		days = *off.DaysApplied
	}
	charged := off.Amount
	if charged.IsZero() && off.DailyRate != nil {
		charged = off.DailyRate.Mul(decimal.NewFromInt(int64(days)))
	}
	return charged, days
}

func validatePeriod(p payroll.PayPeriod) error {
	if p.Start.IsZero() {
		return generic.NewValidationError("period_start", nil, "required")
	}
	if p.End.IsZero() {
		return generic.NewValidationError("period_end", nil, "required")
	}
	if p.End.Before(p.Start) {
		return generic.NewValidationError("period_end", p.End, "before period_start "+p.Start.String())
	}
	if p.TotalHours.IsNegative() {
		return generic.NewValidationError("total_hours", p.TotalHours, "must not be negative")
	}
	if p.TotalPay.IsNegative() {
		return generic.NewValidationError("total_pay", p.TotalPay, "must not be negative")
	}
	return nil
}

func validateOffset(off payroll.Offset, field string) error {
	if off.Amount.IsNegative() {
		return generic.NewValidationError(field+".amount", off.Amount, "must not be negative")
	}
	if off.DailyRate != nil && off.DailyRate.IsNegative() {
		return generic.NewValidationError(field+".daily_rate", *off.DailyRate, "must not be negative")
	}
	if off.DaysApplied != nil && *off.DaysApplied < 0 {
		return generic.NewValidationError(field+".days_applied", *off.DaysApplied, "must not be negative")
	}
	return nil
}
