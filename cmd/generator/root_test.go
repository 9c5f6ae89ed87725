package main

import (
	"testing"

	"cdc-generator/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearOptionalServices(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("METRICS_PORT", "")
	t.Setenv("JAEGER_ENDPOINT", "")
	t.Setenv("DATA_GENERATOR_TOTAL_BATCHES", "")
	t.Setenv("DATA_GENERATOR_BATCH_SIZE", "")
}

func TestDryRunCompletes(t *testing.T) {
	clearOptionalServices(t)

	cmd := newRootCommand()
	cmd.SetArgs([]string{"--dry-run", "--total-batches", "2", "--batch-size", "3", "--batch-interval", "0"})
	assert.NoError(t, cmd.Execute())
}

func TestUnknownTablesSelector(t *testing.T) {
	clearOptionalServices(t)

	cmd := newRootCommand()
	cmd.SetArgs([]string{"--dry-run", "--tables", "inventory"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown table selector")
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	cmd := newRootCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--batch-size", "50"}))

	cfg := &config.Config{Generator: config.GeneratorConfig{
		BatchSize:             200,
		IntervalSeconds:       1.5,
		TotalBatches:          7,
		UpdateDeleteFrequency: 400,
		SeedLimit:             100,
	}}
	opts := &options{BatchSize: 50}
	applyFlags(cmd, opts, cfg)

	assert.Equal(t, 50, opts.BatchSize)
	assert.Equal(t, 7, opts.TotalBatches)
	assert.Equal(t, 1.5, opts.Interval)
	assert.Equal(t, 400, opts.Frequency)
	assert.Equal(t, 100, opts.SeedLimit)
}
