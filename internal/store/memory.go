package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"cdc-generator/internal/models"

	"github.com/shopspring/decimal"
)

// ErrDuplicateKey is returned by MemoryStore when an INSERT reuses a key
var ErrDuplicateKey = errors.New("duplicate key")

// MemoryStore keeps fact rows in memory. It backs dry runs and tests and
// behaves like Store: batches are all-or-nothing and rows read back carry no
// tax rate.
type MemoryStore struct {
	mu      sync.Mutex
	rows    map[models.Table]map[int64]models.Record
	fail    *injectedFailure
	applied int

	sampleErr error
}

type injectedFailure struct {
	after int
	err   error
}

// NewMemoryStore creates a store holding the given tables
func NewMemoryStore(tables ...models.Table) *MemoryStore {
	rows := make(map[models.Table]map[int64]models.Record, len(tables))
	for _, t := range tables {
		rows[t] = make(map[int64]models.Record)
	}
	return &MemoryStore{rows: rows}
}

// stored strips what the warehouse would not persist
func stored(r models.Record) models.Record {
	c := r.Clone()
	switch v := c.(type) {
	case *models.SalesRecord:
		v.TaxRate = decimal.Zero
	case *models.ReturnsRecord:
		v.TaxRate = decimal.Zero
	}
	return c
}

// Put writes records directly, bypassing batches
func (m *MemoryStore) Put(records ...models.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		if m.rows[r.Table()] == nil {
			m.rows[r.Table()] = make(map[int64]models.Record)
		}
		m.rows[r.Table()][r.Key()] = stored(r)
	}
}

// Drop removes a row directly, as another writer would
func (m *MemoryStore) Drop(table models.Table, key int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows[table], key)
}

// Get returns a copy of a row
func (m *MemoryStore) Get(table models.Table, key int64) (models.Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[table][key]
	if !ok {
		return nil, false
	}
	return r.Clone(), true
}

// Count returns the number of rows in a table
func (m *MemoryStore) Count(table models.Table) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows[table])
}

// Operations returns the number of operations committed so far
func (m *MemoryStore) Operations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applied
}

// FailNextBatch makes the next ExecuteBatch fail with err after applying
// `after` operations to its working copy
func (m *MemoryStore) FailNextBatch(after int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = &injectedFailure{after: after, err: err}
}

// FailSampling makes SampleKeys return err until cleared with nil
func (m *MemoryStore) FailSampling(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sampleErr = err
}

// FetchByKey returns a copy of the row, or nil when absent
func (m *MemoryStore) FetchByKey(_ context.Context, table models.Table, key int64) (models.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows, ok := m.rows[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	r, ok := rows[key]
	if !ok {
		return nil, nil
	}
	return r.Clone(), nil
}

// ExecuteBatch applies ops to a working copy and publishes it only when every
// operation succeeded
func (m *MemoryStore) ExecuteBatch(ctx context.Context, ops []models.Operation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	fail := m.fail
	m.fail = nil

	working := make(map[models.Table]map[int64]models.Record, len(m.rows))
	for t, rows := range m.rows {
		cp := make(map[int64]models.Record, len(rows))
		for k, r := range rows {
			cp[k] = r
		}
		working[t] = cp
	}

	for i, op := range ops {
		if err := ctx.Err(); err != nil {
			return err
		}
		if fail != nil && i == fail.after {
			return fail.err
		}

		rows, ok := working[op.Table]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownTable, op.Table)
		}
		key := op.Key()

		switch op.Kind {
		case models.OperationInsert:
			if _, exists := rows[key]; exists {
				return fmt.Errorf("INSERT %s key=%d: %w", op.Table, key, ErrDuplicateKey)
			}
			rows[key] = stored(op.Data)
		case models.OperationUpdate:
			if _, exists := rows[key]; !exists {
				return fmt.Errorf("UPDATE %s key=%d: %w", op.Table, key, ErrNoRowsAffected)
			}
			rows[key] = stored(op.Data)
		case models.OperationDelete:
			if _, exists := rows[key]; !exists {
				return fmt.Errorf("DELETE %s key=%d: %w", op.Table, key, ErrNoRowsAffected)
			}
			delete(rows, key)
		default:
			return fmt.Errorf("unsupported operation kind %q", op.Kind)
		}
	}

	if fail != nil && fail.after >= len(ops) {
		return fail.err
	}

	m.rows = working
	m.applied += len(ops)
	return nil
}

// TableExists reports whether the store was created with table
func (m *MemoryStore) TableExists(_ context.Context, table models.Table) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[table]
	return ok, nil
}

// SampleKeys returns up to limit keys in ascending order
func (m *MemoryStore) SampleKeys(_ context.Context, table models.Table, limit int) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sampleErr != nil {
		return nil, m.sampleErr
	}
	rows, ok := m.rows[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}

	keys := make([]int64, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	if limit >= 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	return keys, nil
}
