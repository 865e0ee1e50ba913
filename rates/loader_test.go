package rates_test

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/wage-compliance/generic"
	"github.com/warp/wage-compliance/rates"
)

func writeRates(t *testing.T, path string, data []byte, modTime time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, data, 0o644))
	require.NoError(t, os.Chtimes(path, modTime, modTime))
}

func TestLoader_EmbeddedDefault(t *testing.T) {
	loader := rates.NewLoader("", nil)
	assert.Nil(t, loader.Current())

	require.NoError(t, loader.Load())
	snap := loader.Current()
	require.NotNil(t, snap)
	assert.Equal(t, rates.EmbeddedSource, snap.Source)
	assert.Len(t, snap.Periods(), 5)

	changed, err := loader.Reload()
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Same(t, snap, loader.Current())
}

func TestLoader_ReloadOnlyWhenNewer(t *testing.T) {
	// GIVEN: A rate file loaded once
	path := filepath.Join(t.TempDir(), "rates.yaml")
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	writeRates(t, path, rates.DefaultDocument(), base)

	loader := rates.NewLoader(path, nil)
	require.NoError(t, loader.Load())
	first := loader.Current()
	assert.Equal(t, "2025-04-01", first.Version)

	// WHEN: Reloading without a change
	changed, err := loader.Reload()
	require.NoError(t, err)
	assert.False(t, changed, "same mod time should not reload")
	assert.Same(t, first, loader.Current())

	// WHEN: The file is rewritten with a newer mod time
	updated := strings.Replace(string(rates.DefaultDocument()), `version: "2025-04-01"`, `version: "2025-04-02"`, 1)
	writeRates(t, path, []byte(updated), base.Add(time.Minute))

	changed, err = loader.Reload()
	require.NoError(t, err)
	assert.True(t, changed)

	// THEN: A new snapshot is swapped in and the old one is untouched
	second := loader.Current()
	assert.NotSame(t, first, second)
	assert.Equal(t, "2025-04-02", second.Version)
	assert.Equal(t, "2025-04-01", first.Version)
}

func TestLoader_InvalidReloadKeepsPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.yaml")
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	writeRates(t, path, rates.DefaultDocument(), base)

	loader := rates.NewLoader(path, nil)
	require.NoError(t, loader.Load())
	good := loader.Current()

	writeRates(t, path, []byte("rate_periods: [{effective_from: nope}]"), base.Add(time.Minute))

	changed, err := loader.Reload()
	assert.False(t, changed)
	assert.ErrorIs(t, err, generic.ErrConfiguration)
	assert.Same(t, good, loader.Current())
}

func TestLoader_MissingFile(t *testing.T) {
	loader := rates.NewLoader(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	err := loader.Load()
	var cfgErr *generic.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestLoader_ConcurrentReadsDuringReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.yaml")
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	writeRates(t, path, rates.DefaultDocument(), base)

	loader := rates.NewLoader(path, nil)
	require.NoError(t, loader.Load())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				snap := loader.Current()
				lookup, err := snap.RequiredRate(30, date(2024, time.June, 1), false, nil)
				if assert.NoError(t, err) {
					assert.True(t, dec("11.44").Equal(lookup.HourlyRate))
				}
			}
		}()
	}
	for i := 1; i <= 5; i++ {
		writeRates(t, path, rates.DefaultDocument(), base.Add(time.Duration(i)*time.Minute))
		_, err := loader.Reload()
		require.NoError(t, err)
	}
	wg.Wait()
}

// =============================================================================
// DOCUMENT VALIDATION
// =============================================================================

func TestParse_RejectsBadDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "non-numeric rate",
			doc: `
rate_periods:
  - effective_from: 2024-04-01
    rates:
      adult: {min_age: 0, hourly_rate: "eleven", category: NLW}
      apprentice: {min_age: 0, hourly_rate: "6.40", category: APPRENTICE}
accommodation_offsets: [{effective_from: 2024-04-01, daily_limit: "9.99"}]
`,
			want: "not a number",
		},
		{
			name: "missing apprentice band",
			doc: `
rate_periods:
  - effective_from: 2024-04-01
    rates:
      adult: {min_age: 0, hourly_rate: "11.44", category: NLW}
accommodation_offsets: [{effective_from: 2024-04-01, daily_limit: "9.99"}]
`,
			want: "APPRENTICE",
		},
		{
			name: "overlapping bands",
			doc: `
rate_periods:
  - effective_from: 2024-04-01
    rates:
      young: {min_age: 0, max_age: 21, hourly_rate: "8.60", category: NMW}
      adult: {min_age: 21, hourly_rate: "11.44", category: NLW}
      apprentice: {min_age: 0, hourly_rate: "6.40", category: APPRENTICE}
accommodation_offsets: [{effective_from: 2024-04-01, daily_limit: "9.99"}]
`,
			want: "do not meet",
		},
		{
			name: "closed top band",
			doc: `
rate_periods:
  - effective_from: 2024-04-01
    rates:
      adult: {min_age: 0, max_age: 99, hourly_rate: "11.44", category: NLW}
      apprentice: {min_age: 0, hourly_rate: "6.40", category: APPRENTICE}
accommodation_offsets: [{effective_from: 2024-04-01, daily_limit: "9.99"}]
`,
			want: "open-ended",
		},
		{
			name: "overlapping periods",
			doc: `
rate_periods:
  - effective_from: 2023-04-01
    effective_to: 2024-06-01
    rates:
      adult: {min_age: 0, hourly_rate: "10.42", category: NLW}
      apprentice: {min_age: 0, hourly_rate: "5.28", category: APPRENTICE}
  - effective_from: 2024-04-01
    rates:
      adult: {min_age: 0, hourly_rate: "11.44", category: NLW}
      apprentice: {min_age: 0, hourly_rate: "6.40", category: APPRENTICE}
accommodation_offsets: [{effective_from: 2024-04-01, daily_limit: "9.99"}]
`,
			want: "overlaps",
		},
		{
			name: "no accommodation rule",
			doc: `
rate_periods:
  - effective_from: 2024-04-01
    rates:
      adult: {min_age: 0, hourly_rate: "11.44", category: NLW}
      apprentice: {min_age: 0, hourly_rate: "6.40", category: APPRENTICE}
`,
			want: "accommodation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rates.Parse([]byte(tt.doc), "test")
			require.Error(t, err)
			assert.ErrorIs(t, err, generic.ErrConfiguration)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParse_OpenEndedPeriodsMostRecentWins(t *testing.T) {
	doc := `
rate_periods:
  - effective_from: 2023-04-01
    rates:
      adult: {min_age: 0, hourly_rate: "10.42", category: NLW}
      apprentice: {min_age: 0, hourly_rate: "5.28", category: APPRENTICE}
  - effective_from: 2024-04-01
    rates:
      adult: {min_age: 0, hourly_rate: "11.44", category: NLW}
      apprentice: {min_age: 0, hourly_rate: "6.40", category: APPRENTICE}
accommodation_offsets: [{effective_from: 2023-04-01, daily_limit: "9.10"}]
`
	snap, err := rates.Parse([]byte(doc), "test")
	require.NoError(t, err)

	old, err := snap.RequiredRate(30, date(2023, time.May, 1), false, nil)
	require.NoError(t, err)
	assert.True(t, dec("10.42").Equal(old.HourlyRate))

	current, err := snap.RequiredRate(30, date(2024, time.May, 1), false, nil)
	require.NoError(t, err)
	assert.True(t, dec("11.44").Equal(current.HourlyRate))
}
