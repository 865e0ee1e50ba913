package rates

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/wage-compliance/generic"
)

const (
	// MaxAge is the upper bound accepted for a worker's age.
	MaxAge = 120

	// ApprenticeAgeThreshold is the age below which apprentices always get the apprentice rate.
	ApprenticeAgeThreshold = 19

	// ApprenticeFirstYearMonths is how long the apprentice rate applies to older apprentices.
	ApprenticeFirstYearMonths = 12
)

// RequiredRate resolves the hourly rate for a worker of age on payDate.
//
// apprenticeshipStart is only consulted for apprentices aged 19 or over; when
// it is nil they fall through to the ordinary age band.
func (s *Snapshot) RequiredRate(age int, payDate generic.TimePoint, isApprentice bool, apprenticeshipStart *generic.TimePoint) (*Lookup, error) {
	if age < 0 || age > MaxAge {
		return nil, generic.NewValidationError("age", age, fmt.Sprintf("must be between 0 and %d", MaxAge))
	}
	if payDate.IsZero() {
		return nil, generic.NewValidationError("pay_date", nil, "required")
	}

	period, err := s.PeriodFor(payDate)
	if err != nil {
		return nil, err
	}

	lookup := &Lookup{
		Age:     age,
		PayDate: payDate,
		Period:  period.Range,
	}

	if isApprentice {
		if reason, ok := apprenticeReason(age, payDate, apprenticeshipStart); ok {
			band := period.apprentice
			lookup.fill(band, reason)
			return lookup, nil
		}
	}

	for _, band := range period.ageBands {
		if band.Covers(age) {
			lookup.fill(band, ReasonAgeBand)
			return lookup, nil
		}
	}

	return nil, fmt.Errorf("%w: age %d in period %s", generic.ErrNoApplicableRateBand, age, period.Range)
}

func (l *Lookup) fill(band RateBand, reason LookupReason) {
	l.HourlyRate = band.HourlyRate
	l.Category = band.Category
	l.BandKey = band.Key
	l.Description = band.Description
	l.Reason = reason
}

// apprenticeReason reports whether the apprentice rate applies and why.
func apprenticeReason(age int, payDate generic.TimePoint, start *generic.TimePoint) (LookupReason, bool) {
	if age < ApprenticeAgeThreshold {
		return ReasonApprenticeUnder19, true
	}
	if start == nil || start.IsZero() {
		return "", false
	}
	firstYear := generic.EffectiveRange{From: *start, To: ptr(start.AddMonths(ApprenticeFirstYearMonths))}
	if firstYear.Contains(payDate) {
		return ReasonApprenticeFirstYear, true
	}
	return "", false
}

// PeriodFor returns the period applicable on date. When open-ended periods
// overlap, the most recent one wins.
func (s *Snapshot) PeriodFor(date generic.TimePoint) (*RatePeriod, error) {
	for i := len(s.periods) - 1; i >= 0; i-- {
		if s.periods[i].Range.Contains(date) {
			return s.periods[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", generic.ErrNoApplicableRatePeriod, date)
}

// AccommodationOffsetLimit returns the daily accommodation offset limit on payDate.
func (s *Snapshot) AccommodationOffsetLimit(payDate generic.TimePoint) (decimal.Decimal, error) {
	rule, err := s.AccommodationRuleFor(payDate)
	if err != nil {
		return decimal.Zero, err
	}
	return rule.DailyLimit, nil
}

// AccommodationRuleFor returns the latest rule effective on or before payDate.
func (s *Snapshot) AccommodationRuleFor(payDate generic.TimePoint) (AccommodationOffsetRule, error) {
	if payDate.IsZero() {
		return AccommodationOffsetRule{}, generic.NewValidationError("pay_date", nil, "required")
	}
	for i := len(s.accommodationRules) - 1; i >= 0; i-- {
		r := s.accommodationRules[i]
		if r.EffectiveFrom.BeforeOrEqual(payDate) {
			return r, nil
		}
	}
	return AccommodationOffsetRule{}, fmt.Errorf("%w: %s", generic.ErrNoOffsetRule, payDate)
}

func ptr[T any](v T) *T { return &v }
