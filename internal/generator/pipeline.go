// Package generator turns selector decisions into micro-batches of change
// operations and commits them, keeping the tracked key set in step with what
// the store actually holds.
package generator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"cdc-generator/internal/models"
	"cdc-generator/internal/selector"
	"cdc-generator/internal/synth"
	"cdc-generator/internal/tracker"
	"cdc-generator/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ErrBatchFailed wraps every commit failure
var ErrBatchFailed = errors.New("batch failed")

// Store is the persistence contract the generator drives
type Store interface {
	FetchByKey(ctx context.Context, table models.Table, key int64) (models.Record, error)
	ExecuteBatch(ctx context.Context, ops []models.Operation) error
	TableExists(ctx context.Context, table models.Table) (bool, error)
	SampleKeys(ctx context.Context, table models.Table, limit int) ([]int64, error)
}

// FallbackReason says why an UPDATE/DELETE slot was emitted as an INSERT
type FallbackReason string

const (
	FallbackTouched    FallbackReason = "touched"
	FallbackMissingRow FallbackReason = "missing_row"
	FallbackFetchError FallbackReason = "fetch_error"
)

// sampleAttempts bounds how often a slot resamples past keys the batch
// already touched
const sampleAttempts = 3

// Batch is one micro-batch for a single table
type Batch struct {
	Table     models.Table
	Ops       []models.Operation
	Counts    models.KindCounts
	Fallbacks map[FallbackReason]int
}

// FallbackCount returns the number of slots that fell back to INSERT
func (b *Batch) FallbackCount() int {
	n := 0
	for _, c := range b.Fallbacks {
		n += c
	}
	return n
}

func (b *Batch) fallback(reason FallbackReason) {
	if b.Fallbacks == nil {
		b.Fallbacks = make(map[FallbackReason]int)
	}
	b.Fallbacks[reason]++
}

// Pipeline generates and commits batches for one table. It is driven by a
// single goroutine; only the Selector may be shared with another pipeline
// running on the same goroutine.
type Pipeline struct {
	table    models.Table
	store    Store
	keys     *tracker.KeySet
	selector *selector.Selector
	synth    *synth.Synthesizer
	rng      *rand.Rand
	logger   *zap.Logger
}

// NewPipeline creates a pipeline for table with an empty key set
func NewPipeline(table models.Table, store Store, sel *selector.Selector, syn *synth.Synthesizer, rng *rand.Rand) *Pipeline {
	return &Pipeline{
		table:    table,
		store:    store,
		keys:     tracker.NewKeySet(),
		selector: sel,
		synth:    syn,
		rng:      rng,
		logger:   util.GetLogger().With(zap.String("table", string(table))),
	}
}

// Table returns the table the pipeline writes to
func (p *Pipeline) Table() models.Table {
	return p.table
}

// Keys returns the tracked key set
func (p *Pipeline) Keys() *tracker.KeySet {
	return p.keys
}

// Selector returns the selector driving the pipeline
func (p *Pipeline) Selector() *selector.Selector {
	return p.selector
}

// Seed loads up to limit existing keys from the store. A failure is logged
// and leaves the key set empty so the run starts insert-only.
func (p *Pipeline) Seed(ctx context.Context, limit int) int {
	if limit <= 0 {
		limit = tracker.DefaultSeedLimit
	}

	keys, err := p.store.SampleKeys(ctx, p.table, limit)
	if err != nil {
		p.logger.Warn("Failed to seed existing keys, starting with none", zap.Error(err))
		p.keys.Seed(nil)
		return 0
	}

	p.keys.Seed(keys)
	util.TrackedKeys.WithLabelValues(string(p.table)).Set(float64(p.keys.Len()))
	p.logger.Info("Seeded existing keys", zap.Int("keys", p.keys.Len()))
	return p.keys.Len()
}

// GenerateBatch builds size operations. UPDATE and DELETE slots that cannot
// proceed become INSERTs so the batch length is always size.
func (p *Pipeline) GenerateBatch(ctx context.Context, size int) (*Batch, error) {
	ctx, span := util.StartSpan(ctx, "Pipeline.GenerateBatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("table", string(p.table)),
		attribute.Int("batch.size", size),
	)

	batch := &Batch{
		Table: p.table,
		Ops:   make([]models.Operation, 0, size),
	}
	touched := make(map[int64]struct{})

	for seq := 0; seq < size; seq++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		kind := p.selector.Next(p.keys)
		if kind != models.OperationInsert {
			op, reason := p.change(ctx, kind, touched)
			if reason == "" {
				touched[op.Key()] = struct{}{}
				batch.Ops = append(batch.Ops, op)
				batch.Counts.Add(op.Kind)
				continue
			}
			batch.fallback(reason)
			util.FallbackInsertsTotal.WithLabelValues(string(p.table), string(reason)).Inc()
		}

		op := p.insert(seq)
		touched[op.Key()] = struct{}{}
		batch.Ops = append(batch.Ops, op)
		batch.Counts.Add(op.Kind)
	}

	return batch, nil
}

func (p *Pipeline) insert(seq int) models.Operation {
	var rec models.Record
	if p.table == models.TableReturns {
		rec = p.synth.Return(seq)
	} else {
		rec = p.synth.Sale(seq)
	}
	return models.Operation{
		Kind:  models.OperationInsert,
		Table: p.table,
		Data:  rec,
	}
}

// change prepares an UPDATE or DELETE against a tracked key. A non-empty
// reason means the slot must fall back to INSERT.
func (p *Pipeline) change(ctx context.Context, kind models.OperationKind, touched map[int64]struct{}) (models.Operation, FallbackReason) {
	key, ok := p.sample(touched)
	if !ok {
		return models.Operation{}, FallbackTouched
	}

	old, err := p.store.FetchByKey(ctx, p.table, key)
	if err != nil {
		p.logger.Debug("Fetch failed, falling back to insert", zap.Int64("key", key), zap.Error(err))
		return models.Operation{}, FallbackFetchError
	}
	if old == nil {
		// deleted behind our back; stop proposing it
		p.keys.Remove(key)
		return models.Operation{}, FallbackMissingRow
	}

	op := models.Operation{
		Kind:    kind,
		Table:   p.table,
		OldData: old,
	}
	if kind == models.OperationUpdate {
		op.Data = p.synth.Mutate(old)
	} else {
		op.Data = old
	}
	return op, ""
}

func (p *Pipeline) sample(touched map[int64]struct{}) (int64, bool) {
	for i := 0; i < sampleAttempts; i++ {
		key, ok := p.keys.Sample(p.rng)
		if !ok {
			return 0, false
		}
		if _, seen := touched[key]; !seen {
			return key, true
		}
	}
	return 0, false
}

// Commit executes the batch atomically. Only a successful commit changes the
// tracked key set.
func (p *Pipeline) Commit(ctx context.Context, batch *Batch) error {
	if err := p.store.ExecuteBatch(ctx, batch.Ops); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBatchFailed, p.table, err)
	}

	for _, op := range batch.Ops {
		switch op.Kind {
		case models.OperationInsert:
			p.keys.Add(op.Key())
		case models.OperationDelete:
			p.keys.Remove(op.Key())
		}
	}
	util.TrackedKeys.WithLabelValues(string(p.table)).Set(float64(p.keys.Len()))
	return nil
}
