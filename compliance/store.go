package compliance

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/warp/wage-compliance/generic"
	"github.com/warp/wage-compliance/rag"
)

// =============================================================================
// CALCULATION RECORDS - Audit trail of checks
// =============================================================================

// Record is one stored check. Records are append-only: a recheck is a new
// record, never an update.
type Record struct {
	ID          string
	WorkerID    string
	PeriodID    string
	PeriodStart generic.TimePoint
	PeriodEnd   generic.TimePoint
	Status      rag.Status
	Success     bool
	ErrorCode   string
	RateVersion string

	// Request is the caller's JSON as accepted, after normalization.
	Request  json.RawMessage
	Response Response

	CreatedAt time.Time
}

// NewRecord builds a record with a fresh ID.
func NewRecord(req Request, resp Response, requestJSON []byte, now time.Time) Record {
	return Record{
		ID:          uuid.NewString(),
		WorkerID:    req.Worker.ID,
		PeriodID:    req.Period.ID,
		PeriodStart: req.Period.Start,
		PeriodEnd:   req.Period.End,
		Status:      resp.Result.RAGStatus,
		Success:     resp.Result.Success,
		ErrorCode:   resp.Result.ErrorCode,
		RateVersion: resp.Result.RateVersion,
		Request:     json.RawMessage(requestJSON),
		Response:    resp,
		CreatedAt:   now.UTC(),
	}
}

// RecordFilter narrows ListRecords. Zero fields match everything.
type RecordFilter struct {
	WorkerID string
	Status   rag.Status
	Limit    int
}

// Matches reports whether r passes the filter (Limit is not applied).
func (f RecordFilter) Matches(r Record) bool {
	if f.WorkerID != "" && r.WorkerID != f.WorkerID {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	return true
}

// RateVersionRecord notes that a rate snapshot was loaded.
type RateVersionRecord struct {
	Version  string
	Source   string
	LoadedAt time.Time
}

// RecordStore persists calculation records.
type RecordStore interface {
	// SaveRecord appends a record. IDs are unique.
	SaveRecord(ctx context.Context, r Record) error

	// GetRecord returns generic.ErrNotFound for an unknown ID.
	GetRecord(ctx context.Context, id string) (*Record, error)

	// ListRecords returns matching records, newest first.
	ListRecords(ctx context.Context, filter RecordFilter) ([]Record, error)

	// SaveRateVersion notes a loaded rate snapshot.
	SaveRateVersion(ctx context.Context, v RateVersionRecord) error

	// ListRateVersions returns loaded snapshots, newest first.
	ListRateVersions(ctx context.Context) ([]RateVersionRecord, error)
}
