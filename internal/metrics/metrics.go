// Package metrics holds the Prometheus instruments exported by the daemon
// and the development aggregator
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sync results used as label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultSkipped = "skipped"
	ResultEmpty   = "empty"
	ResultBusy    = "busy"
)

var (
	Ticks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "codetime_ticks_total",
			Help: "Total number of heartbeat ticks processed",
		},
	)

	AccruedSeconds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codetime_accrued_seconds_total",
			Help: "Seconds accrued by the heartbeat",
		},
		[]string{"kind"}, // "total", "focused"
	)

	AccrualErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "codetime_accrual_errors_total",
			Help: "Heartbeats whose counter write failed",
		},
	)

	SyncAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codetime_sync_attempts_total",
			Help: "Sync attempts by result",
		},
		[]string{"result"},
	)

	SyncPayloadDays = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "codetime_sync_payload_days",
			Help:    "Number of day entries in transmitted payloads",
			Buckets: []float64{1, 2, 3, 5, 7, 14, 30, 90},
		},
	)

	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "codetime_sync_duration_seconds",
			Help:    "Duration of sync transmissions",
			Buckets: prometheus.DefBuckets,
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "codetime_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	AggregatorUpserts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codetime_aggregator_upserts_total",
			Help: "Rows upserted by the development aggregator",
		},
		[]string{"table"},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
