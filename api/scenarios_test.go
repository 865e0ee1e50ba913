/*
scenarios_test.go - Unit tests for demo scenarios

PURPOSE:
	Runs every scenario end to end against the embedded rates and checks
	the status it is documented to show. These double as integration tests
	for the worked examples.
*/
package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/wage-compliance/fixes"
	"github.com/warp/wage-compliance/rag"
	"github.com/warp/wage-compliance/rates"
)

func TestScenarios_ExpectedStatus(t *testing.T) {
	s := newTestServer(t)

	for _, sc := range scenarios {
		t.Run(sc.ID, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/scenarios/"+sc.ID+"/run", "")
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			resp := decode[CheckResponse](t, rec)
			assert.True(t, resp.Result.Success, resp.Result.Reason)
			assert.Equal(t, sc.Expected, resp.Result.RAGStatus, resp.Result.Reason)
			assert.NotEmpty(t, resp.CalculationID)
		})
	}
}

func TestScenario_Details(t *testing.T) {
	s := newTestServer(t)
	run := func(id string) CheckResponse {
		rec := s.do(t, http.MethodPost, "/api/scenarios/"+id+"/run", "")
		require.Equal(t, http.StatusOK, rec.Code)
		return decode[CheckResponse](t, rec)
	}

	// Underpaid adult: HIGH severity, arrears of 57.60
	adult := run("underpaid-adult")
	require.NotNil(t, adult.Result.Severity)
	assert.Equal(t, rag.SeverityHigh, *adult.Result.Severity)
	require.NotNil(t, adult.Fixes.Primary)
	assert.Equal(t, fixes.TypeArrearsTopUp, adult.Fixes.Primary.Type)

	// Apprentice: first-year apprentice rate
	apprentice := run("apprentice-first-year")
	assert.Equal(t, rates.CategoryApprentice, apprentice.Result.RateCategory)
	assert.Equal(t, rates.ReasonApprenticeFirstYear, apprentice.Result.RateReason)

	// Zero hours: no rate comparison
	zero := run("zero-hours")
	assert.Equal(t, []string{rag.FlagZeroHoursWithPay}, zero.Result.Flags)
	assert.Nil(t, zero.Result.RequiredHourlyRate)

	// Accommodation: 10.05 excess
	acc := run("accommodation-excess")
	require.NotNil(t, acc.Aggregation)
	assert.Equal(t, "10.05", acc.Aggregation.OffsetExcess.StringFixed(2))

	// Same age, different rate periods
	march := run("age-22-march-2024")
	april := run("age-22-april-2024")
	require.NotNil(t, march.Result.RequiredHourlyRate)
	require.NotNil(t, april.Result.RequiredHourlyRate)
	assert.Equal(t, "10.18", march.Result.RequiredHourlyRate.StringFixed(2))
	assert.Equal(t, "11.44", april.Result.RequiredHourlyRate.StringFixed(2))
}

func TestScenarios_ListAndGet(t *testing.T) {
	s := newTestServer(t)

	list := decode[[]ScenarioDTO](t, s.do(t, http.MethodGet, "/api/scenarios", ""))
	require.Len(t, list, len(scenarios))
	for _, sc := range list {
		assert.Empty(t, sc.Request, sc.ID)
	}

	one := decode[ScenarioDTO](t, s.do(t, http.MethodGet, "/api/scenarios/zero-hours", ""))
	assert.NotEmpty(t, one.Request)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/scenarios/nope", "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPost, "/api/scenarios/nope/run", "").Code)
}
