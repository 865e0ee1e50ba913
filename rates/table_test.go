package rates_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/wage-compliance/generic"
	"github.com/warp/wage-compliance/rates"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func date(year int, month time.Month, day int) generic.TimePoint {
	return generic.NewTimePoint(year, month, day)
}

func dec(s string) decimal.Decimal {
	return generic.MustParseDecimal(s)
}

func snapshot(t *testing.T) *rates.Snapshot {
	t.Helper()
	snap, err := rates.Default()
	require.NoError(t, err)
	return snap
}

// =============================================================================
// AGE BAND RESOLUTION
// =============================================================================

func TestRequiredRate_AgeBands2024(t *testing.T) {
	snap := snapshot(t)
	payDate := date(2024, time.June, 30)

	tests := []struct {
		age      int
		rate     string
		category rates.Category
	}{
		{16, "6.40", rates.CategoryNMW},
		{17, "6.40", rates.CategoryNMW},
		{18, "8.60", rates.CategoryNMW},
		{20, "8.60", rates.CategoryNMW},
		{21, "11.44", rates.CategoryNLW},
		{25, "11.44", rates.CategoryNLW},
		{67, "11.44", rates.CategoryNLW},
	}

	for _, tt := range tests {
		lookup, err := snap.RequiredRate(tt.age, payDate, false, nil)
		require.NoError(t, err, "age %d", tt.age)
		assert.True(t, dec(tt.rate).Equal(lookup.HourlyRate), "age %d: expected %s, got %s", tt.age, tt.rate, lookup.HourlyRate)
		assert.Equal(t, tt.category, lookup.Category, "age %d", tt.age)
		assert.Equal(t, rates.ReasonAgeBand, lookup.Reason)
	}
}

func TestRequiredRate_SameAgeDifferentPeriods(t *testing.T) {
	// GIVEN: A 22 year old
	// WHEN: Paid in the 2023/24 year and again in the 2024/25 year
	// THEN: The 21-22 band applies first, then the NLW (which dropped to 21+)
	snap := snapshot(t)

	before, err := snap.RequiredRate(22, date(2024, time.March, 31), false, nil)
	require.NoError(t, err)
	assert.True(t, dec("10.18").Equal(before.HourlyRate), "got %s", before.HourlyRate)
	assert.Equal(t, rates.CategoryNMW, before.Category)
	assert.Equal(t, "age_21_22", before.BandKey)

	after, err := snap.RequiredRate(22, date(2024, time.April, 1), false, nil)
	require.NoError(t, err)
	assert.True(t, dec("11.44").Equal(after.HourlyRate), "got %s", after.HourlyRate)
	assert.Equal(t, rates.CategoryNLW, after.Category)
}

func TestRequiredRate_PeriodBoundaryIsHalfOpen(t *testing.T) {
	snap := snapshot(t)

	lookup, err := snap.RequiredRate(30, date(2025, time.March, 31), false, nil)
	require.NoError(t, err)
	assert.True(t, dec("11.44").Equal(lookup.HourlyRate))

	lookup, err = snap.RequiredRate(30, date(2025, time.April, 1), false, nil)
	require.NoError(t, err)
	assert.True(t, dec("12.21").Equal(lookup.HourlyRate))
	assert.True(t, lookup.Period.IsOpen())
}

// Every age from 16 to 99 resolves to exactly one band in every period.
func TestRequiredRate_BandsPartitionAges(t *testing.T) {
	snap := snapshot(t)

	for _, period := range snap.Periods() {
		for age := 16; age <= 99; age++ {
			matches := 0
			for _, band := range period.AgeBands() {
				if band.Covers(age) {
					matches++
				}
			}
			assert.Equal(t, 1, matches, "period %s age %d", period.Range, age)

			lookup, err := snap.RequiredRate(age, period.Range.From, false, nil)
			require.NoError(t, err, "period %s age %d", period.Range, age)
			assert.NotEqual(t, rates.CategoryApprentice, lookup.Category)
		}
	}
}

// =============================================================================
// APPRENTICE PRECEDENCE
// =============================================================================

func TestRequiredRate_ApprenticeUnder19(t *testing.T) {
	snap := snapshot(t)

	for age := 16; age < 19; age++ {
		lookup, err := snap.RequiredRate(age, date(2024, time.September, 1), true, nil)
		require.NoError(t, err)
		assert.Equal(t, rates.CategoryApprentice, lookup.Category, "age %d", age)
		assert.Equal(t, rates.ReasonApprenticeUnder19, lookup.Reason)
		assert.True(t, dec("6.40").Equal(lookup.HourlyRate))
	}
}

func TestRequiredRate_ApprenticeFirstYear(t *testing.T) {
	// GIVEN: A 19 year old apprentice who started 6 months ago
	// WHEN: Looking up the required rate
	// THEN: The apprentice rate applies, not the 18-20 band
	snap := snapshot(t)
	start := date(2024, time.January, 15)

	lookup, err := snap.RequiredRate(19, date(2024, time.July, 15), true, &start)
	require.NoError(t, err)
	assert.Equal(t, rates.CategoryApprentice, lookup.Category)
	assert.Equal(t, rates.ReasonApprenticeFirstYear, lookup.Reason)
	assert.True(t, dec("6.40").Equal(lookup.HourlyRate))
}

func TestRequiredRate_ApprenticePastFirstYear(t *testing.T) {
	// GIVEN: A 25 year old apprentice more than 12 months in
	// THEN: The ordinary age band applies
	snap := snapshot(t)
	start := date(2023, time.May, 1)

	lookup, err := snap.RequiredRate(25, date(2024, time.May, 1), true, &start)
	require.NoError(t, err)
	assert.Equal(t, rates.CategoryNLW, lookup.Category)
	assert.Equal(t, rates.ReasonAgeBand, lookup.Reason)

	ordinary, err := snap.RequiredRate(25, date(2024, time.May, 1), false, nil)
	require.NoError(t, err)
	assert.Equal(t, ordinary.Category, lookup.Category)
	assert.True(t, ordinary.HourlyRate.Equal(lookup.HourlyRate))
}

func TestRequiredRate_ApprenticeFirstYearEndsAfterTwelveMonths(t *testing.T) {
	snap := snapshot(t)
	start := date(2024, time.May, 1)

	lastDay, err := snap.RequiredRate(20, date(2025, time.April, 30), true, &start)
	require.NoError(t, err)
	assert.Equal(t, rates.CategoryApprentice, lastDay.Category)

	anniversary, err := snap.RequiredRate(20, date(2025, time.May, 1), true, &start)
	require.NoError(t, err)
	assert.Equal(t, rates.CategoryNMW, anniversary.Category)
}

func TestRequiredRate_ApprenticeWithoutStartFallsThrough(t *testing.T) {
	snap := snapshot(t)

	lookup, err := snap.RequiredRate(22, date(2024, time.June, 1), true, nil)
	require.NoError(t, err)
	assert.Equal(t, rates.CategoryNLW, lookup.Category)
	assert.Equal(t, rates.ReasonAgeBand, lookup.Reason)
}

// =============================================================================
// FAILURES
// =============================================================================

func TestRequiredRate_InvalidAge(t *testing.T) {
	snap := snapshot(t)

	for _, age := range []int{-1, 121, 500} {
		_, err := snap.RequiredRate(age, date(2024, time.June, 1), false, nil)
		var vErr *generic.ValidationError
		require.ErrorAs(t, err, &vErr, "age %d", age)
		assert.Equal(t, "age", vErr.Field)
		assert.True(t, generic.IsClientError(err))
	}
}

func TestRequiredRate_MissingPayDate(t *testing.T) {
	_, err := snapshot(t).RequiredRate(30, generic.TimePoint{}, false, nil)
	assert.ErrorIs(t, err, generic.ErrValidation)
}

func TestRequiredRate_NoApplicablePeriod(t *testing.T) {
	_, err := snapshot(t).RequiredRate(30, date(2019, time.January, 1), false, nil)
	assert.ErrorIs(t, err, generic.ErrNoApplicableRatePeriod)
	assert.True(t, generic.IsConfigurationError(err))
	assert.Equal(t, generic.CodeNoRatePeriod, generic.ErrorCode(err))
}

func TestRequiredRate_NoApplicableBand(t *testing.T) {
	doc := []byte(`
version: test
rate_periods:
  - effective_from: 2024-04-01
    rates:
      adult: {min_age: 18, hourly_rate: "10.00", category: NLW}
      apprentice: {min_age: 0, hourly_rate: "6.00", category: APPRENTICE}
accommodation_offsets:
  - effective_from: 2024-04-01
    daily_limit: "9.99"
`)
	snap, err := rates.Parse(doc, "test")
	require.NoError(t, err)

	_, err = snap.RequiredRate(16, date(2024, time.June, 1), false, nil)
	assert.ErrorIs(t, err, generic.ErrNoApplicableRateBand)
	assert.Equal(t, generic.CodeNoRateBand, generic.ErrorCode(err))
}

// =============================================================================
// ACCOMMODATION OFFSET LIMIT
// =============================================================================

func TestAccommodationOffsetLimit(t *testing.T) {
	snap := snapshot(t)

	tests := []struct {
		on    generic.TimePoint
		limit string
	}{
		{date(2023, time.April, 1), "9.10"},
		{date(2024, time.March, 31), "9.10"},
		{date(2024, time.April, 1), "9.99"},
		{date(2024, time.December, 25), "9.99"},
		{date(2025, time.April, 1), "10.66"},
	}
	for _, tt := range tests {
		limit, err := snap.AccommodationOffsetLimit(tt.on)
		require.NoError(t, err)
		assert.True(t, dec(tt.limit).Equal(limit), "%s: expected %s, got %s", tt.on, tt.limit, limit)
	}

	_, err := snap.AccommodationOffsetLimit(date(2020, time.January, 1))
	assert.ErrorIs(t, err, generic.ErrNoOffsetRule)
}
