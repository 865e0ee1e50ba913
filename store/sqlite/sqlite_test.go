package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/warp/wage-compliance/compliance"
	"github.com/warp/wage-compliance/fixes"
	"github.com/warp/wage-compliance/generic"
	"github.com/warp/wage-compliance/payroll"
	"github.com/warp/wage-compliance/rag"
	"github.com/warp/wage-compliance/rates"
	"github.com/warp/wage-compliance/store/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "compliance.db"), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

var engine = compliance.NewEngine(rates.Static{Snapshot: rates.MustDefault()}, compliance.Options{})

func check(workerID string, age int, hours, pay string) (compliance.Request, compliance.Response) {
	req := compliance.Request{
		Worker: payroll.Worker{ID: workerID, Age: &age},
		Period: payroll.PayPeriod{
			ID:         workerID + "-w23",
			WorkerID:   workerID,
			Start:      generic.NewTimePoint(2024, time.June, 3),
			End:        generic.NewTimePoint(2024, time.June, 9),
			TotalHours: generic.MustParseDecimal(hours),
			TotalPay:   generic.MustParseDecimal(pay),
		},
	}
	return req, engine.Check(req)
}

func TestSaveAndGetRecord(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	// GIVEN: A RED check (40h at 10.00/h, age 25)
	req, resp := check("w-1", 25, "40", "400")
	rec := compliance.NewRecord(req, resp, []byte(`{"worker":{"id":"w-1"}}`), time.Now())
	require.NoError(t, store.SaveRecord(ctx, rec))

	// WHEN: Reading it back
	got, err := store.GetRecord(ctx, rec.ID)
	require.NoError(t, err)

	// THEN: Columns and the stored response survive the round trip
	assert.Equal(t, "w-1", got.WorkerID)
	assert.Equal(t, "w-1-w23", got.PeriodID)
	assert.True(t, got.PeriodStart.Equal(req.Period.Start))
	assert.True(t, got.PeriodEnd.Equal(req.Period.End))
	assert.Equal(t, rag.StatusRed, got.Status)
	assert.True(t, got.Success)
	assert.Equal(t, rec.RateVersion, got.RateVersion)
	assert.JSONEq(t, `{"worker":{"id":"w-1"}}`, string(got.Request))
	assert.WithinDuration(t, rec.CreatedAt, got.CreatedAt, time.Microsecond)

	assert.Equal(t, rag.StatusRed, got.Response.Result.RAGStatus)
	require.NotNil(t, got.Response.Result.RequiredHourlyRate)
	assert.True(t, decimal.RequireFromString("11.44").Equal(*got.Response.Result.RequiredHourlyRate))
	require.NotNil(t, got.Response.Fixes.Primary)
	assert.Equal(t, fixes.TypeArrearsTopUp, got.Response.Fixes.Primary.Type)
	assert.NotNil(t, got.Response.Aggregation)
}

func TestGetRecord_NotFound(t *testing.T) {
	store := newStore(t)
	_, err := store.GetRecord(context.Background(), "missing")
	assert.True(t, generic.IsNotFound(err))
}

func TestSaveRecord_DuplicateID(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	req, resp := check("w-1", 25, "40", "500")
	rec := compliance.NewRecord(req, resp, nil, time.Now())
	require.NoError(t, store.SaveRecord(ctx, rec))
	assert.Error(t, store.SaveRecord(ctx, rec))
}

func TestListRecords_FiltersAndOrder(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	base := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)

	// GIVEN: Three checks, two for w-1 (one RED, one GREEN), one for w-2
	for i, c := range []struct{ worker, pay string }{
		{"w-1", "400"},
		{"w-2", "500"},
		{"w-1", "500"},
	} {
		req, resp := check(c.worker, 25, "40", c.pay)
		require.NoError(t, store.SaveRecord(ctx, compliance.NewRecord(req, resp, nil, base.Add(time.Duration(i)*time.Minute))))
	}

	// WHEN/THEN: Unfiltered is newest first
	all, err := store.ListRecords(ctx, compliance.RecordFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "w-1", all[0].WorkerID)
	assert.Equal(t, rag.StatusGreen, all[0].Status)
	assert.Equal(t, "w-2", all[1].WorkerID)

	byWorker, err := store.ListRecords(ctx, compliance.RecordFilter{WorkerID: "w-1"})
	require.NoError(t, err)
	assert.Len(t, byWorker, 2)

	red, err := store.ListRecords(ctx, compliance.RecordFilter{Status: rag.StatusRed})
	require.NoError(t, err)
	require.Len(t, red, 1)
	assert.Equal(t, "w-1", red[0].WorkerID)

	limited, err := store.ListRecords(ctx, compliance.RecordFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestFailedCheckIsStored(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	// GIVEN: A check that fails validation
	req, resp := check("w-3", 25, "-1", "400")
	require.False(t, resp.Result.Success)
	rec := compliance.NewRecord(req, resp, nil, time.Now())
	require.NoError(t, store.SaveRecord(ctx, rec))

	// THEN: The error code is kept and the request column is null
	got, err := store.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.False(t, got.Success)
	assert.Equal(t, generic.CodeValidation, got.ErrorCode)
	assert.Equal(t, rag.StatusAmber, got.Status)
	assert.Nil(t, got.Request)
}

func TestRateVersions(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	base := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveRateVersion(ctx, compliance.RateVersionRecord{Version: "2023.1", Source: "embedded", LoadedAt: base}))
	require.NoError(t, store.SaveRateVersion(ctx, compliance.RateVersionRecord{Version: "2024.1", Source: "/etc/rates.yaml", LoadedAt: base.Add(time.Hour)}))

	versions, err := store.ListRateVersions(ctx)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "2024.1", versions[0].Version)
	assert.Equal(t, "/etc/rates.yaml", versions[0].Source)
	assert.True(t, versions[0].LoadedAt.Equal(base.Add(time.Hour)))
}

func TestMemoryDSN(t *testing.T) {
	store, err := sqlite.New(":memory:", nil)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Ping(context.Background()))
	req, resp := check("w-1", 25, "40", "500")
	require.NoError(t, store.SaveRecord(context.Background(), compliance.NewRecord(req, resp, nil, time.Now())))
	records, err := store.ListRecords(context.Background(), compliance.RecordFilter{})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
