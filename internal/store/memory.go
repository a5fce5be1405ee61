package store

import (
	"context"
	"sync"

	"github.com/go-faster/errors"

	"github.com/ginjaninja78/wfc-ingest/internal/types"
)

// ErrDuplicateRecord is returned when a record's (source, quarter,
// department) key is already stored.
var ErrDuplicateRecord = errors.New("duplicate record")

// MemoryStore keeps records in process memory. It is used for dry runs and
// tests and enforces the same uniqueness rule as the Postgres table.
type MemoryStore struct {
	mu      sync.RWMutex
	records []types.IngestedRecord
	appends int
}

// NewMemoryStore returns a store seeded with records.
func NewMemoryStore(seed ...types.IngestedRecord) *MemoryStore {
	return &MemoryStore{records: append([]types.IngestedRecord(nil), seed...)}
}

// Query returns the records stored under source.
func (m *MemoryStore) Query(_ context.Context, source string) ([]types.IngestedRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []types.IngestedRecord
	for _, r := range m.records {
		if r.Source == source {
			out = append(out, r)
		}
	}
	return out, nil
}

// Append stores records. Either all records are stored or none.
func (m *MemoryStore) Append(_ context.Context, records []types.IngestedRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make(map[recordKey]struct{}, len(m.records)+len(records))
	for _, r := range m.records {
		keys[keyOf(r)] = struct{}{}
	}
	for _, r := range records {
		k := keyOf(r)
		if _, dup := keys[k]; dup {
			return errors.Wrapf(ErrDuplicateRecord, "%s %s %s", k.source, k.quarter, k.department)
		}
		keys[k] = struct{}{}
	}

	m.records = append(m.records, records...)
	m.appends++
	return nil
}

// Appends reports how many Append calls stored records.
func (m *MemoryStore) Appends() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.appends
}

// Len reports the number of stored records.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

type recordKey struct {
	source     string
	quarter    string
	department string
}

func keyOf(r types.IngestedRecord) recordKey {
	return recordKey{source: r.Source, quarter: r.Quarter, department: r.Department.String()}
}
