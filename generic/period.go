package generic

// =============================================================================
// EFFECTIVE RANGE - Half-open validity window for versioned configuration
// =============================================================================

// EffectiveRange is the half-open interval [From, To). A nil To means the
// range is still current.
//
// Examples:
//   - 2024 rates: From 2024-04-01, To 2025-04-01
//   - Current rates: From 2025-04-01, To nil
type EffectiveRange struct {
	From TimePoint
	To   *TimePoint
}

// Contains returns true if From <= t < To.
func (r EffectiveRange) Contains(t TimePoint) bool {
	if t.Before(r.From) {
		return false
	}
	return r.To == nil || t.Before(*r.To)
}

// IsOpen returns true if the range has no end.
func (r EffectiveRange) IsOpen() bool { return r.To == nil }

func (r EffectiveRange) String() string {
	if r.To == nil {
		return "[" + r.From.String() + ", open)"
	}
	return "[" + r.From.String() + ", " + r.To.String() + ")"
}

// =============================================================================
// PERIOD - Closed pay reference period
// =============================================================================

// Period is a closed date interval [Start, End], used for pay reference periods.
type Period struct {
	Start TimePoint
	End   TimePoint
}

// Contains returns true if the time point is within the period [Start, End]
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// Days returns the number of calendar days in the period, counting both ends.
func (p Period) Days() int {
	return DaysBetween(p.Start, p.End) + 1
}

// Valid returns false when End is before Start or either bound is missing.
func (p Period) Valid() bool {
	return !p.Start.IsZero() && !p.End.IsZero() && !p.End.Before(p.Start)
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
