// Package metrics defines the Prometheus collectors exported at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProviderAttemptsTotal counts provider calls.
	// Labels: provider (gemini/openai/mock), outcome (success or an error code)
	ProviderAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digest_provider_attempts_total",
			Help: "Total number of provider calls by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	// DigestsCreatedTotal counts persisted digests.
	// Labels: mode (stream/unary)
	DigestsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digest_created_total",
			Help: "Total number of digests persisted by generation mode",
		},
		[]string{"mode"},
	)

	// StreamEventsTotal counts server-sent events written to clients.
	// Labels: type (start/chunk/complete/error)
	StreamEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digest_stream_events_total",
			Help: "Total number of streaming events emitted by type",
		},
		[]string{"type"},
	)

	// GenerationDuration observes end-to-end generation time.
	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "digest_generation_duration_seconds",
			Help:    "Digest generation duration in seconds by mode",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"mode"},
	)

	// DiagnosticsHealthy is 1 when the last diagnostics pass succeeded.
	DiagnosticsHealthy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "digest_diagnostics_healthy",
			Help: "Outcome of the last diagnostics pass (0=issues detected, 1=healthy)",
		},
	)

	// DiagnosticsLastRun is the unix time of the last completed scheduled pass.
	DiagnosticsLastRun = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "digest_diagnostics_last_run_timestamp_seconds",
			Help: "Unix timestamp of the last completed diagnostics pass",
		},
	)
)

// RecordProviderAttempt records one provider call. An empty outcome means success.
func RecordProviderAttempt(provider, outcome string) {
	if outcome == "" {
		outcome = "success"
	}
	ProviderAttemptsTotal.WithLabelValues(provider, outcome).Inc()
}

// RecordDigestCreated records a persisted digest.
func RecordDigestCreated(mode string) {
	DigestsCreatedTotal.WithLabelValues(mode).Inc()
}

// RecordStreamEvent records one emitted event.
func RecordStreamEvent(eventType string) {
	StreamEventsTotal.WithLabelValues(eventType).Inc()
}

// RecordGeneration observes a generation that started at start.
func RecordGeneration(mode string, start time.Time) {
	GenerationDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
}

// SetDiagnostics records the outcome of a diagnostics pass.
func SetDiagnostics(healthy bool, at time.Time) {
	if healthy {
		DiagnosticsHealthy.Set(1)
	} else {
		DiagnosticsHealthy.Set(0)
	}
	DiagnosticsLastRun.Set(float64(at.Unix()))
}
