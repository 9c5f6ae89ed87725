package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cdc_operations_total",
		Help: "Total number of committed change operations",
	}, []string{"table", "kind"})

	BatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cdc_batches_total",
		Help: "Total number of batches by outcome",
	}, []string{"table", "status"})

	FallbackInsertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cdc_fallback_inserts_total",
		Help: "Total number of UPDATE/DELETE slots that became an INSERT",
	}, []string{"table", "reason"})

	BatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cdc_batch_duration_seconds",
		Help:    "Time spent generating and committing one batch",
		Buckets: prometheus.DefBuckets,
	}, []string{"table"})

	TrackedKeys = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cdc_tracked_keys",
		Help: "Number of existing keys known to the generator",
	}, []string{"table"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
