package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cdc-generator/config"
	"cdc-generator/internal/api"
	"cdc-generator/internal/generator"
	"cdc-generator/internal/models"
	"cdc-generator/internal/redisclient"
	"cdc-generator/internal/store"
	"cdc-generator/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// options holds the command line flags
type options struct {
	TotalBatches int
	BatchSize    int
	Interval     float64
	Tables       string
	Continuous   bool
	Frequency    int
	SeedLimit    int
	Parallel     bool
	DryRun       bool
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "cdc-generator",
		Short: "Generate CDC traffic against TPC-DS sales and returns tables",
		Long: `Generate a steady stream of INSERT, UPDATE and DELETE operations against
the store_sales and store_returns fact tables of a Cloudberry/Greenplum
warehouse, committed in micro-batches.

Connection settings come from CLOUDBERRY_* environment variables or a .env
file. Flags override the DATA_GENERATOR_* defaults.

Example:
  cdc-generator --total-batches 10 --batch-size 500
  cdc-generator --tables sales --continuous --batch-interval 0.5
  cdc-generator --dry-run --total-batches 3`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			applyFlags(cmd, opts, cfg)
			return run(cmd.Context(), opts, cfg)
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&opts.TotalBatches, "total-batches", generator.DefaultTotalBatches, "number of batches to generate (ignored with --continuous)")
	flags.IntVar(&opts.BatchSize, "batch-size", generator.DefaultBatchSize, "operations per batch")
	flags.Float64Var(&opts.Interval, "batch-interval", generator.DefaultBatchInterval.Seconds(), "seconds between batches")
	flags.StringVar(&opts.Tables, "tables", "both", "tables to write (sales|returns|both)")
	flags.BoolVar(&opts.Continuous, "continuous", false, "run until interrupted")
	flags.IntVar(&opts.Frequency, "update-delete-frequency", 800, "every Nth operation is an UPDATE or DELETE")
	flags.IntVar(&opts.SeedLimit, "seed-limit", 10000, "existing keys to load per table at startup")
	flags.BoolVar(&opts.Parallel, "parallel", false, "drive each table from its own goroutine")
	flags.BoolVar(&opts.DryRun, "dry-run", false, "generate against an in-memory store instead of the database")

	return cmd
}

// applyFlags layers explicitly set flags over the environment
func applyFlags(cmd *cobra.Command, opts *options, cfg *config.Config) {
	flags := cmd.Flags()
	if !flags.Changed("total-batches") {
		opts.TotalBatches = cfg.Generator.TotalBatches
	}
	if !flags.Changed("batch-size") {
		opts.BatchSize = cfg.Generator.BatchSize
	}
	if !flags.Changed("batch-interval") {
		opts.Interval = cfg.Generator.IntervalSeconds
	}
	if !flags.Changed("update-delete-frequency") {
		opts.Frequency = cfg.Generator.UpdateDeleteFrequency
	}
	if !flags.Changed("seed-limit") {
		opts.SeedLimit = cfg.Generator.SeedLimit
	}
}

func run(parent context.Context, opts *options, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer util.SyncLogger()
	logger := util.GetLogger()

	tables, err := models.ParseTables(opts.Tables)
	if err != nil {
		return err
	}

	tp, err := util.InitTracer("cdc-generator", cfg.Observ.JaegerEndpoint)
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}
	if tp != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				logger.Warn("Error shutting down tracer", zap.Error(err))
			}
		}()
	}

	st, closeStore, err := openStore(opts, cfg, tables)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := checkTables(parent, st, tables); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)
	go func() {
		select {
		case sig := <-quit:
			logger.Info("Interrupted, stopping after the current batch", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	runID := uuid.NewString()
	runnerOpts := []generator.Option{generator.WithRunID(runID)}

	if cfg.Redis.Addr != "" {
		leases, release, err := acquireLeases(ctx, cfg.Redis, tables, runID)
		if err != nil {
			return err
		}
		defer release()
		for table, lease := range leases {
			runnerOpts = append(runnerOpts, generator.WithLease(table, lease))
		}
	}

	runner := generator.NewRunner(generator.Config{
		TotalBatches: opts.TotalBatches,
		BatchSize:    opts.BatchSize,
		Interval:     time.Duration(opts.Interval * float64(time.Second)),
		Continuous:   opts.Continuous,
		Parallel:     opts.Parallel,
		Frequency:    opts.Frequency,
		SeedLimit:    opts.SeedLimit,
	}, st, tables, runnerOpts...)

	if cfg.Observ.MetricsPort != "" {
		stopServer := serveStatus(cfg, runner)
		defer stopServer()
	}

	return runner.Run(ctx)
}

func openStore(opts *options, cfg *config.Config, tables []models.Table) (generator.Store, func(), error) {
	logger := util.GetLogger()

	if opts.DryRun {
		logger.Info("Dry run, writing to an in-memory store")
		return store.NewMemoryStore(tables...), func() {}, nil
	}

	db, err := store.NewStore(cfg.Database.URL(), store.TableNames{
		Schema:  cfg.Database.Schema,
		Sales:   cfg.Database.SalesTable,
		Returns: cfg.Database.ReturnsTable,
	})
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Database connected",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Database))

	return db, func() {
		if err := db.Close(); err != nil {
			logger.Warn("Error closing database", zap.Error(err))
		}
	}, nil
}

// checkTables refuses to start when a target table is missing
func checkTables(ctx context.Context, st generator.Store, tables []models.Table) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for _, table := range tables {
		exists, err := st.TableExists(ctx, table)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %s table does not exist, create it first", store.ErrUnknownTable, table)
		}
	}
	return nil
}

func acquireLeases(ctx context.Context, cfg config.RedisConfig, tables []models.Table, owner string) (map[models.Table]*redisclient.Lease, func(), error) {
	logger := util.GetLogger()

	client, err := redisclient.NewClient(cfg.Addr, cfg.Password, cfg.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	leases := make(map[models.Table]*redisclient.Lease, len(tables))
	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, lease := range leases {
			if err := lease.Release(releaseCtx); err != nil {
				logger.Warn("Failed to release lease", zap.String("key", lease.Key()), zap.Error(err))
			}
		}
		_ = client.Close()
	}

	for _, table := range tables {
		lease, err := client.AcquireLock(ctx, string(table), owner, cfg.LockTTL())
		if err != nil {
			release()
			return nil, nil, err
		}
		leases[table] = lease
		logger.Info("Lease acquired", zap.String("key", lease.Key()), zap.String("owner", owner))
	}
	return leases, release, nil
}

func serveStatus(cfg *config.Config, runner *generator.Runner) func() {
	logger := util.GetLogger()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	api.NewHandler(runner).SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Observ.MetricsPort),
		Handler: router,
	}

	go func() {
		logger.Info("Starting status server", zap.String("port", cfg.Observ.MetricsPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Status server failed", zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("Status server forced to shutdown", zap.Error(err))
		}
	}
}
