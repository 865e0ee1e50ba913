// Package memory provides an in-memory compliance.RecordStore for tests and
// local runs without a database file.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/wage-compliance/compliance"
	"github.com/warp/wage-compliance/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	records  []compliance.Record // insertion order
	byID     map[string]int
	versions []compliance.RateVersionRecord
}

func New() *Memory {
	return &Memory{byID: make(map[string]int)}
}

var _ compliance.RecordStore = (*Memory)(nil)

// SaveRecord appends a record. Append-only.
func (m *Memory) SaveRecord(_ context.Context, r compliance.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byID[r.ID]; exists {
		return fmt.Errorf("record %s already exists", r.ID)
	}
	m.byID[r.ID] = len(m.records)
	m.records = append(m.records, r)
	return nil
}

func (m *Memory) GetRecord(_ context.Context, id string) (*compliance.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("record %s: %w", id, generic.ErrNotFound)
	}
	r := m.records[i]
	return &r, nil
}

func (m *Memory) ListRecords(_ context.Context, filter compliance.RecordFilter) ([]compliance.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []compliance.Record
	for i := len(m.records) - 1; i >= 0; i-- {
		if filter.Matches(m.records[i]) {
			out = append(out, m.records[i])
		}
	}
	// Stable on CreatedAt so equal timestamps keep insertion order.
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *Memory) SaveRateVersion(_ context.Context, v compliance.RateVersionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.versions = append(m.versions, v)
	return nil
}

func (m *Memory) ListRateVersions(_ context.Context) ([]compliance.RateVersionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]compliance.RateVersionRecord, 0, len(m.versions))
	for i := len(m.versions) - 1; i >= 0; i-- {
		out = append(out, m.versions[i])
	}
	return out, nil
}
