/*
Package sqlite provides a SQLite-backed compliance.RecordStore.

PURPOSE:
  Keeps an audit trail of every compliance check: who was checked, for
  which pay period, against which rate version, and the full response.
  In production the same schema applies to PostgreSQL with minor dialect
  differences.

APPEND-ONLY ENFORCEMENT:
  - No UPDATE statements on calculations
  - No DELETE statements on calculations
  - A recheck is a new record with a new ID

KEY TABLES:
  calculations:  One row per check, request and response as JSON
  rate_versions: One row per rate snapshot loaded by the service

INDEXES:
  - idx_calculations_worker: History of one worker (hot path)
  - idx_calculations_status: RED / AMBER review queues
  - idx_calculations_created: Newest-first listing

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. With PostgreSQL, database-level
  concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time

USAGE:
  store, err := sqlite.New("./data/compliance.db", logger)
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - compliance/store.go: Interface and record types
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/warp/wage-compliance/compliance"
	"github.com/warp/wage-compliance/generic"
	"github.com/warp/wage-compliance/rag"
)

// Fixed-width so created_at sorts lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements compliance.RecordStore using SQLite.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	logger *zap.Logger
}

var _ compliance.RecordStore = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, logger: logger.Named("sqlite")}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	store.logger.Info("store opened", zap.String("path", dbPath))
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Calculations (append-only audit trail)
	CREATE TABLE IF NOT EXISTS calculations (
		id TEXT PRIMARY KEY,
		worker_id TEXT NOT NULL,
		period_id TEXT,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		rag_status TEXT NOT NULL,
		success INTEGER NOT NULL,
		error_code TEXT,
		rate_version TEXT,
		request_json TEXT,
		response_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_calculations_worker
		ON calculations(worker_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_calculations_status
		ON calculations(rag_status);
	CREATE INDEX IF NOT EXISTS idx_calculations_created
		ON calculations(created_at DESC);

	-- Rate snapshots loaded by the service
	CREATE TABLE IF NOT EXISTS rate_versions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		version TEXT NOT NULL,
		source TEXT NOT NULL,
		loaded_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CALCULATION RECORDS
// =============================================================================

// SaveRecord appends a calculation record.
func (s *Store) SaveRecord(ctx context.Context, r compliance.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	responseJSON, err := json.Marshal(r.Response)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}

	query := `
		INSERT INTO calculations
		(id, worker_id, period_id, period_start, period_end, rag_status, success,
		 error_code, rate_version, request_json, response_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		r.ID,
		r.WorkerID,
		nullString(r.PeriodID),
		r.PeriodStart.String(),
		r.PeriodEnd.String(),
		string(r.Status),
		r.Success,
		nullString(r.ErrorCode),
		nullString(r.RateVersion),
		nullString(string(r.Request)),
		string(responseJSON),
		r.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("record %s already exists", r.ID)
		}
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

const recordColumns = `id, worker_id, period_id, period_start, period_end, rag_status, success,
	error_code, rate_version, request_json, response_json, created_at`

// GetRecord retrieves a record by ID.
func (s *Store) GetRecord(ctx context.Context, id string) (*compliance.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+recordColumns+" FROM calculations WHERE id = ?", id)
	r, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("record %s: %w", id, generic.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRecords returns matching records, newest first.
func (s *Store) ListRecords(ctx context.Context, filter compliance.RecordFilter) ([]compliance.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		where []string
		args  []any
	)
	if filter.WorkerID != "" {
		where = append(where, "worker_id = ?")
		args = append(args, filter.WorkerID)
	}
	if filter.Status != "" {
		where = append(where, "rag_status = ?")
		args = append(args, string(filter.Status))
	}

	query := "SELECT " + recordColumns + " FROM calculations"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []compliance.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (compliance.Record, error) {
	var (
		r                                         compliance.Record
		periodID, errorCode, rateVersion, reqJSON sql.NullString
		periodStart, periodEnd, status, createdAt string
		respJSON                                  string
	)
	err := row.Scan(&r.ID, &r.WorkerID, &periodID, &periodStart, &periodEnd, &status, &r.Success,
		&errorCode, &rateVersion, &reqJSON, &respJSON, &createdAt)
	if err != nil {
		return r, err
	}

	r.PeriodID = periodID.String
	r.Status = rag.Status(status)
	r.ErrorCode = errorCode.String
	r.RateVersion = rateVersion.String
	if reqJSON.Valid {
		r.Request = json.RawMessage(reqJSON.String)
	}
	if r.PeriodStart, err = generic.ParseDate(periodStart); err != nil {
		return r, fmt.Errorf("record %s: bad period_start: %w", r.ID, err)
	}
	if r.PeriodEnd, err = generic.ParseDate(periodEnd); err != nil {
		return r, fmt.Errorf("record %s: bad period_end: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(respJSON), &r.Response); err != nil {
		return r, fmt.Errorf("record %s: bad response_json: %w", r.ID, err)
	}
	r.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	return r, nil
}

// =============================================================================
// RATE VERSIONS
// =============================================================================

// SaveRateVersion notes a loaded rate snapshot.
func (s *Store) SaveRateVersion(ctx context.Context, v compliance.RateVersionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO rate_versions (version, source, loaded_at) VALUES (?, ?, ?)",
		v.Version, v.Source, v.LoadedAt.UTC().Format(timeFormat),
	)
	return err
}

// ListRateVersions returns loaded rate snapshots, newest first.
func (s *Store) ListRateVersions(ctx context.Context) ([]compliance.RateVersionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT version, source, loaded_at FROM rate_versions ORDER BY id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []compliance.RateVersionRecord
	for rows.Next() {
		var v compliance.RateVersionRecord
		var loadedAt string
		if err := rows.Scan(&v.Version, &v.Source, &loadedAt); err != nil {
			return nil, err
		}
		v.LoadedAt, _ = time.Parse(timeFormat, loadedAt)
		out = append(out, v)
	}
	return out, rows.Err()
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
