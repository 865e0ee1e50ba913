/*
Package rates implements the statutory rate table.

PURPOSE:
  Holds the versioned NMW/NLW rate configuration and resolves the hourly
  rate that applies to a worker of a given age and apprentice status on a
  given pay date. Also exposes the accommodation offset daily limit.

KEY CONCEPTS:
  - RatePeriod: a set of age bands valid over a half-open date range
  - RateBand: one age band (or the apprentice band) with its hourly rate
  - AccommodationOffsetRule: daily accommodation limit from a date onward
  - Snapshot: an immutable, validated copy of the whole document
  - Loader: reads the document, detects newer versions by modification
    time and atomically swaps the current Snapshot

RESOLUTION ORDER:
  1. Validate age and pay date
  2. Select the period whose [EffectiveFrom, EffectiveTo) contains the date
  3. Apprentice under 19, or in the first 12 months → apprentice band
  4. Otherwise the age band whose [MinAge, MaxAge] contains the age

SEE ALSO:
  - table.go: Resolution
  - document.go: YAML schema and validation
  - loader.go: Hot reload
*/
package rates

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/wage-compliance/generic"
)

// =============================================================================
// RATE BANDS
// =============================================================================

// Category is the statutory name of a band.
type Category string

const (
	CategoryNLW        Category = "NLW"
	CategoryNMW        Category = "NMW"
	CategoryApprentice Category = "APPRENTICE"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryNLW, CategoryNMW, CategoryApprentice:
		return true
	}
	return false
}

// RateBand is one row of a rate period. MaxAge nil means open-ended.
type RateBand struct {
	Key         string
	MinAge      int
	MaxAge      *int
	HourlyRate  decimal.Decimal
	Category    Category
	Description string
}

// Covers returns true if MinAge <= age <= MaxAge.
func (b RateBand) Covers(age int) bool {
	if age < b.MinAge {
		return false
	}
	return b.MaxAge == nil || age <= *b.MaxAge
}

// RatePeriod is a set of bands valid over a half-open date range.
type RatePeriod struct {
	Range generic.EffectiveRange
	Bands map[string]RateBand

	// ageBands is Bands without the apprentice band, sorted by MinAge.
	ageBands   []RateBand
	apprentice RateBand
}

// AgeBands returns the non-apprentice bands sorted by MinAge.
func (p *RatePeriod) AgeBands() []RateBand {
	return append([]RateBand(nil), p.ageBands...)
}

// ApprenticeBand returns the apprentice band of the period.
func (p *RatePeriod) ApprenticeBand() RateBand {
	return p.apprentice
}

// AccommodationOffsetRule bounds the daily accommodation offset from EffectiveFrom on.
type AccommodationOffsetRule struct {
	EffectiveFrom generic.TimePoint
	DailyLimit    decimal.Decimal
}

// =============================================================================
// LOOKUP RESULT
// =============================================================================

// LookupReason records why a band was chosen.
type LookupReason string

const (
	ReasonAgeBand             LookupReason = "age_band"
	ReasonApprenticeUnder19   LookupReason = "apprentice_under_19"
	ReasonApprenticeFirstYear LookupReason = "apprentice_first_year"
)

// Lookup is the resolved required rate for one worker on one date.
type Lookup struct {
	HourlyRate  decimal.Decimal
	Category    Category
	BandKey     string
	Description string
	Reason      LookupReason
	Age         int
	PayDate     generic.TimePoint
	Period      generic.EffectiveRange
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is an immutable view of one loaded rate document. Never mutate a
// Snapshot after construction; a reload builds a new one.
type Snapshot struct {
	Version  string
	Source   string
	LoadedAt time.Time

	periods            []*RatePeriod
	accommodationRules []AccommodationOffsetRule
}

// Periods returns the rate periods sorted by EffectiveFrom.
func (s *Snapshot) Periods() []*RatePeriod {
	return append([]*RatePeriod(nil), s.periods...)
}

// AccommodationRules returns the accommodation rules sorted by EffectiveFrom.
func (s *Snapshot) AccommodationRules() []AccommodationOffsetRule {
	return append([]AccommodationOffsetRule(nil), s.accommodationRules...)
}
