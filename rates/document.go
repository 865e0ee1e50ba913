package rates

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/warp/wage-compliance/generic"
)

// =============================================================================
// YAML SCHEMA
// =============================================================================

// Document is the on-disk rate configuration.
//
//	version: "2025-04"
//	rate_periods:
//	  - effective_from: 2024-04-01
//	    effective_to: 2025-04-01     # first day no longer covered; omit for current
//	    rates:
//	      nlw:        {min_age: 21, hourly_rate: "11.44", category: NLW}
//	      age_18_20:  {min_age: 18, max_age: 20, hourly_rate: "8.60", category: NMW}
//	      apprentice: {min_age: 0, hourly_rate: "6.40", category: APPRENTICE}
//	accommodation_offsets:
//	  - effective_from: 2024-04-01
//	    daily_limit: "9.99"
type Document struct {
	Version              string                  `yaml:"version"`
	RatePeriods          []PeriodDocument        `yaml:"rate_periods"`
	AccommodationOffsets []AccommodationDocument `yaml:"accommodation_offsets"`
}

type PeriodDocument struct {
	EffectiveFrom generic.Date            `yaml:"effective_from"`
	EffectiveTo   *generic.Date           `yaml:"effective_to,omitempty"`
	Rates         map[string]BandDocument `yaml:"rates"`
}

type BandDocument struct {
	MinAge      *int             `yaml:"min_age"`
	MaxAge      *int             `yaml:"max_age,omitempty"`
	HourlyRate  *generic.Decimal `yaml:"hourly_rate"`
	Category    Category         `yaml:"category"`
	Description string           `yaml:"description,omitempty"`
}

type AccommodationDocument struct {
	EffectiveFrom generic.Date     `yaml:"effective_from"`
	DailyLimit    *generic.Decimal `yaml:"daily_limit"`
}

// =============================================================================
// PARSING
// =============================================================================

// Parse decodes and validates a rate document into a Snapshot.
// Any schema problem is returned as a *generic.ConfigurationError.
func Parse(data []byte, source string) (*Snapshot, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &generic.ConfigurationError{Source: source, Err: fmt.Errorf("parse rates: %w", err)}
	}
	snap, err := doc.Snapshot()
	if err != nil {
		return nil, &generic.ConfigurationError{Source: source, Err: err}
	}
	snap.Source = source
	return snap, nil
}

// Snapshot validates the document and builds an immutable Snapshot.
func (doc Document) Snapshot() (*Snapshot, error) {
	if len(doc.RatePeriods) == 0 {
		return nil, errors.New("no rate periods defined")
	}
	if len(doc.AccommodationOffsets) == 0 {
		return nil, errors.New("no accommodation offset rule defined")
	}

	snap := &Snapshot{Version: doc.Version, LoadedAt: time.Now()}

	for i, pd := range doc.RatePeriods {
		period, err := pd.build()
		if err != nil {
			return nil, fmt.Errorf("rate_periods[%d] (from %s): %w", i, pd.EffectiveFrom, err)
		}
		snap.periods = append(snap.periods, period)
	}
	sort.SliceStable(snap.periods, func(i, j int) bool {
		return snap.periods[i].Range.From.Before(snap.periods[j].Range.From)
	})
	for i := 1; i < len(snap.periods); i++ {
		prev, next := snap.periods[i-1], snap.periods[i]
		if prev.Range.From.Equal(next.Range.From) {
			return nil, fmt.Errorf("two rate periods start on %s", next.Range.From)
		}
		if prev.Range.To != nil && prev.Range.To.After(next.Range.From) {
			return nil, fmt.Errorf("rate period %s overlaps %s", prev.Range, next.Range)
		}
	}

	for i, ad := range doc.AccommodationOffsets {
		if ad.EffectiveFrom.IsZero() {
			return nil, fmt.Errorf("accommodation_offsets[%d]: effective_from is required", i)
		}
		if ad.DailyLimit == nil || ad.DailyLimit.IsNegative() {
			return nil, fmt.Errorf("accommodation_offsets[%d]: daily_limit must be a non-negative number", i)
		}
		snap.accommodationRules = append(snap.accommodationRules, AccommodationOffsetRule{
			EffectiveFrom: ad.EffectiveFrom.TimePoint,
			DailyLimit:    ad.DailyLimit.Decimal,
		})
	}
	sort.SliceStable(snap.accommodationRules, func(i, j int) bool {
		return snap.accommodationRules[i].EffectiveFrom.Before(snap.accommodationRules[j].EffectiveFrom)
	})

	return snap, nil
}

func (pd PeriodDocument) build() (*RatePeriod, error) {
	if pd.EffectiveFrom.IsZero() {
		return nil, errors.New("effective_from is required")
	}
	period := &RatePeriod{
		Range: generic.EffectiveRange{From: pd.EffectiveFrom.TimePoint},
		Bands: make(map[string]RateBand, len(pd.Rates)),
	}
	if pd.EffectiveTo != nil {
		to := pd.EffectiveTo.TimePoint
		if !to.After(period.Range.From) {
			return nil, fmt.Errorf("effective_to %s is not after effective_from", to)
		}
		period.Range.To = &to
	}

	apprentices := 0
	for key, bd := range pd.Rates {
		band, err := bd.build(key)
		if err != nil {
			return nil, err
		}
		period.Bands[key] = band
		if band.Category == CategoryApprentice {
			apprentices++
			period.apprentice = band
			continue
		}
		period.ageBands = append(period.ageBands, band)
	}
	if apprentices != 1 {
		return nil, fmt.Errorf("expected exactly one APPRENTICE band, found %d", apprentices)
	}
	if len(period.ageBands) == 0 {
		return nil, errors.New("no age bands defined")
	}

	sort.Slice(period.ageBands, func(i, j int) bool {
		return period.ageBands[i].MinAge < period.ageBands[j].MinAge
	})
	if err := checkPartition(period.ageBands); err != nil {
		return nil, err
	}
	return period, nil
}

func (bd BandDocument) build(key string) (RateBand, error) {
	if bd.MinAge == nil {
		return RateBand{}, fmt.Errorf("band %q: min_age is required", key)
	}
	if bd.HourlyRate == nil || !bd.HourlyRate.IsPositive() {
		return RateBand{}, fmt.Errorf("band %q: hourly_rate must be a positive number", key)
	}
	if !bd.Category.Valid() {
		return RateBand{}, fmt.Errorf("band %q: unknown category %q", key, bd.Category)
	}
	if bd.MaxAge != nil && *bd.MaxAge < *bd.MinAge {
		return RateBand{}, fmt.Errorf("band %q: max_age %d below min_age %d", key, *bd.MaxAge, *bd.MinAge)
	}
	return RateBand{
		Key:         key,
		MinAge:      *bd.MinAge,
		MaxAge:      bd.MaxAge,
		HourlyRate:  bd.HourlyRate.Decimal,
		Category:    bd.Category,
		Description: bd.Description,
	}, nil
}

// checkPartition requires sorted age bands to be contiguous, non-overlapping
// and open-ended at the top.
func checkPartition(bands []RateBand) error {
	for i := 0; i < len(bands)-1; i++ {
		cur, next := bands[i], bands[i+1]
		if cur.MaxAge == nil {
			return fmt.Errorf("band %q is open-ended but %q starts at %d", cur.Key, next.Key, next.MinAge)
		}
		if *cur.MaxAge+1 != next.MinAge {
			return fmt.Errorf("bands %q and %q do not meet (max %d, next min %d)", cur.Key, next.Key, *cur.MaxAge, next.MinAge)
		}
	}
	if last := bands[len(bands)-1]; last.MaxAge != nil {
		return fmt.Errorf("top band %q must be open-ended", last.Key)
	}
	return nil
}
