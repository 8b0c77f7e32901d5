// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// ExtractionAttempts tracks extraction passes by platform and outcome.
	ExtractionAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extraction_attempts_total",
			Help: "Extraction attempts by platform and outcome",
		},
		[]string{"platform", "outcome"},
	)

	// TurnsExtracted tracks turns produced by extraction.
	TurnsExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "turns_extracted_total",
			Help: "Conversation turns produced by extraction",
		},
		[]string{"platform", "role"},
	)

	// StoreMerges tracks conversation records merged into the store.
	StoreMerges = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "store_merges_total",
			Help: "Conversation records merged into the store",
		},
	)

	// StoreEvictions tracks records dropped by recency eviction.
	StoreEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "store_evictions_total",
			Help: "Conversation records evicted from the store",
		},
	)

	// PasteChecks tracks paste-heuristic evaluations by trigger and outcome.
	PasteChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paste_checks_total",
			Help: "Paste heuristic evaluations by trigger and outcome",
		},
		[]string{"trigger", "outcome"},
	)

	// TransferSlots tracks transfer slot lifecycle events.
	TransferSlots = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transfer_slots_total",
			Help: "Transfer slot operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	// LLMContinuations tracks continuation calls by provider and status.
	LLMContinuations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_continuations_total",
			Help: "LLM continuation requests by provider and status",
		},
		[]string{"provider", "status"},
	)

	// ActiveSessions tracks live extraction sessions.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "extraction_sessions_active",
			Help: "Number of live extraction sessions",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordExtraction records one extraction attempt.
func RecordExtraction(platform, outcome string) {
	ExtractionAttempts.WithLabelValues(platform, outcome).Inc()
}

// RecordTurn records one extracted turn.
func RecordTurn(platform, role string) {
	TurnsExtracted.WithLabelValues(platform, role).Inc()
}
