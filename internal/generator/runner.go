package generator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"cdc-generator/internal/models"
	"cdc-generator/internal/selector"
	"cdc-generator/internal/synth"
	"cdc-generator/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultTotalBatches  = 50
	DefaultBatchSize     = 200
	DefaultBatchInterval = 2 * time.Second
)

// Config controls a generator run
type Config struct {
	TotalBatches int
	BatchSize    int
	Interval     time.Duration
	Continuous   bool
	Parallel     bool
	Frequency    int
	SeedLimit    int
	// Seed feeds the random source; zero picks one from the clock
	Seed int64
}

func (c *Config) applyDefaults() {
	if c.TotalBatches <= 0 {
		c.TotalBatches = DefaultTotalBatches
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Interval < 0 {
		c.Interval = 0
	}
	if c.Frequency <= 0 {
		c.Frequency = selector.DefaultFrequency
	}
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
}

// ErrLeaseLost stops a run that can no longer prove it owns a table, even in
// continuous mode
var ErrLeaseLost = errors.New("table lease lost")

// Refresher keeps an ownership lease alive between batches
type Refresher interface {
	Refresh(ctx context.Context) error
}

// TableStats summarizes one table's progress
type TableStats struct {
	Table           models.Table      `json:"table"`
	Batches         int               `json:"batches"`
	FailedBatches   int               `json:"failed_batches"`
	Counts          models.KindCounts `json:"counts"`
	Fallbacks       int               `json:"fallbacks"`
	TrackedKeys     int               `json:"tracked_keys"`
	SelectorCounter uint64            `json:"selector_counter"`
	LastBatchAt     *time.Time        `json:"last_batch_at,omitempty"`
	LastError       string            `json:"last_error,omitempty"`
}

// Stats is a point-in-time snapshot of a run
type Stats struct {
	RunID      string            `json:"run_id"`
	StartedAt  time.Time         `json:"started_at"`
	Ready      bool              `json:"ready"`
	Continuous bool              `json:"continuous"`
	Parallel   bool              `json:"parallel"`
	Totals     models.KindCounts `json:"totals"`
	Tables     []TableStats      `json:"tables"`
}

// Runner drives one or more pipelines at a fixed cadence
type Runner struct {
	cfg       Config
	runID     string
	pipelines []*Pipeline
	leases    map[models.Table]Refresher
	logger    *zap.Logger

	mu        sync.RWMutex
	ready     bool
	startedAt time.Time
	totals    models.KindCounts
	tables    map[models.Table]*TableStats
}

// Option configures a Runner
type Option func(*Runner)

// WithLease refreshes lease before every batch of table
func WithLease(table models.Table, lease Refresher) Option {
	return func(r *Runner) {
		r.leases[table] = lease
	}
}

// WithRunID overrides the generated run identifier
func WithRunID(id string) Option {
	return func(r *Runner) {
		r.runID = id
	}
}

// NewRunner builds one pipeline per table. Sequential runs share a single
// random source and Selector, so the UPDATE/DELETE cadence counts proposals
// across all tables. Parallel runs give every pipeline its own.
func NewRunner(cfg Config, store Store, tables []models.Table, opts ...Option) *Runner {
	cfg.applyDefaults()

	r := &Runner{
		cfg:    cfg,
		runID:  uuid.NewString(),
		leases: make(map[models.Table]Refresher),
		logger: util.GetLogger(),
		tables: make(map[models.Table]*TableStats, len(tables)),
	}
	for _, opt := range opts {
		opt(r)
	}

	shared := rand.New(rand.NewSource(cfg.Seed))
	sharedSelector := selector.New(cfg.Frequency, shared)

	for i, table := range tables {
		rng, sel := shared, sharedSelector
		if cfg.Parallel {
			rng = rand.New(rand.NewSource(cfg.Seed + int64(i) + 1))
			sel = selector.New(cfg.Frequency, rng)
		}
		p := NewPipeline(table, store, sel, synth.New(rng), rng)
		r.pipelines = append(r.pipelines, p)
		r.tables[table] = &TableStats{Table: table}
	}
	return r
}

// Pipelines returns the pipelines in table order
func (r *Runner) Pipelines() []*Pipeline {
	return r.pipelines
}

// RunID identifies this run in logs, leases and the status API
func (r *Runner) RunID() string {
	return r.runID
}

// Ready reports whether seeding has finished
func (r *Runner) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ready
}

// Stats returns a snapshot of the run so far
func (r *Runner) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Stats{
		RunID:      r.runID,
		StartedAt:  r.startedAt,
		Ready:      r.ready,
		Continuous: r.cfg.Continuous,
		Parallel:   r.cfg.Parallel,
		Totals:     r.totals,
		Tables:     make([]TableStats, 0, len(r.pipelines)),
	}
	for _, p := range r.pipelines {
		s.Tables = append(s.Tables, *r.tables[p.table])
	}
	return s
}

// Run seeds every pipeline and issues batches until the configured number is
// reached or ctx is cancelled. Cancellation is not an error. In bounded mode
// the first commit failure stops the run and is returned; continuous mode
// logs it and keeps going.
func (r *Runner) Run(ctx context.Context) error {
	r.mu.Lock()
	r.startedAt = time.Now()
	r.mu.Unlock()

	r.logger.Info("Starting generator",
		zap.String("run_id", r.runID),
		zap.Int("tables", len(r.pipelines)),
		zap.Int("batch_size", r.cfg.BatchSize),
		zap.Duration("interval", r.cfg.Interval),
		zap.Bool("continuous", r.cfg.Continuous),
		zap.Bool("parallel", r.cfg.Parallel),
		zap.Int("total_batches", r.cfg.TotalBatches))

	for _, p := range r.pipelines {
		p.Seed(ctx, r.cfg.SeedLimit)
		r.record(p, nil, nil)
	}

	r.mu.Lock()
	r.ready = true
	r.mu.Unlock()

	var err error
	if r.cfg.Parallel && len(r.pipelines) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		for _, p := range r.pipelines {
			p := p
			g.Go(func() error {
				return r.loop(gctx, []*Pipeline{p})
			})
		}
		err = g.Wait()
	} else {
		err = r.loop(ctx, r.pipelines)
	}

	totals := r.Stats().Totals
	r.logger.Info("Generator finished",
		zap.String("run_id", r.runID),
		zap.Int("inserts", totals.Inserts),
		zap.Int("updates", totals.Updates),
		zap.Int("deletes", totals.Deletes),
		zap.Error(err))
	return err
}

func (r *Runner) loop(ctx context.Context, pipelines []*Pipeline) error {
	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for n := 0; r.cfg.Continuous || n < r.cfg.TotalBatches; n++ {
		if ctx.Err() != nil {
			return nil
		}

		for _, p := range pipelines {
			if err := r.runBatch(ctx, p, n+1); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				if !r.cfg.Continuous || errors.Is(err, ErrLeaseLost) {
					return err
				}
			}
		}

		if !r.cfg.Continuous && n+1 >= r.cfg.TotalBatches {
			break
		}
		if r.cfg.Interval > 0 {
			timer.Reset(r.cfg.Interval)
			select {
			case <-ctx.Done():
				return nil
			case <-timer.C:
			}
		}
	}
	return nil
}

func (r *Runner) runBatch(ctx context.Context, p *Pipeline, number int) error {
	table := string(p.table)
	start := time.Now()

	if lease, ok := r.leases[p.table]; ok {
		if err := lease.Refresh(ctx); err != nil {
			err = fmt.Errorf("%w: %s: %w", ErrLeaseLost, table, err)
			r.logger.Error("Lease refresh failed", zap.String("table", table), zap.Error(err))
			return err
		}
	}

	batch, err := p.GenerateBatch(ctx, r.cfg.BatchSize)
	if err == nil {
		err = p.Commit(ctx, batch)
	}
	elapsed := time.Since(start)
	util.BatchDuration.WithLabelValues(table).Observe(elapsed.Seconds())

	if err != nil {
		util.BatchesTotal.WithLabelValues(table, "failed").Inc()
		r.record(p, nil, err)
		if !errors.Is(err, context.Canceled) {
			r.logger.Error("Batch failed, rolled back",
				zap.String("table", table),
				zap.Int("batch", number),
				zap.Duration("duration", elapsed),
				zap.Error(err))
		}
		return err
	}

	util.BatchesTotal.WithLabelValues(table, "committed").Inc()
	util.OperationsTotal.WithLabelValues(table, string(models.OperationInsert)).Add(float64(batch.Counts.Inserts))
	util.OperationsTotal.WithLabelValues(table, string(models.OperationUpdate)).Add(float64(batch.Counts.Updates))
	util.OperationsTotal.WithLabelValues(table, string(models.OperationDelete)).Add(float64(batch.Counts.Deletes))

	totals := r.record(p, batch, nil)
	r.logger.Info("Batch committed",
		zap.String("table", table),
		zap.Int("batch", number),
		zap.Int("inserts", batch.Counts.Inserts),
		zap.Int("updates", batch.Counts.Updates),
		zap.Int("deletes", batch.Counts.Deletes),
		zap.Int("fallbacks", batch.FallbackCount()),
		zap.Int("tracked_keys", p.keys.Len()),
		zap.Duration("duration", elapsed),
		zap.Int("total_inserts", totals.Inserts),
		zap.Int("total_updates", totals.Updates),
		zap.Int("total_deletes", totals.Deletes))
	return nil
}

// record folds a batch outcome into the stats and returns the run totals.
// Pipeline state is read here, on the pipeline's own goroutine.
func (r *Runner) record(p *Pipeline, batch *Batch, err error) models.KindCounts {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := r.tables[p.table]
	ts.TrackedKeys = p.keys.Len()
	ts.SelectorCounter = p.selector.Counter()

	switch {
	case err != nil:
		ts.FailedBatches++
		ts.LastError = err.Error()
	case batch != nil:
		now := time.Now()
		ts.Batches++
		ts.Counts.Merge(batch.Counts)
		ts.Fallbacks += batch.FallbackCount()
		ts.LastBatchAt = &now
		ts.LastError = ""
		r.totals.Merge(batch.Counts)
	}
	return r.totals
}
