// Package metrics defines the Prometheus instrumentation for a replay run.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Replay loop metrics
var (
	// RequestsSent counts send attempts, including resends
	RequestsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "replay_requests_sent_total",
			Help: "Total number of generate requests sent, including retries",
		},
	)

	// RequestsCompleted counts requests that obtained a clean response
	RequestsCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "replay_requests_completed_total",
			Help: "Total number of requests that completed with a well-formed, error-free response",
		},
	)

	// RequestRetries counts absorbed per-request failures by reason
	RequestRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replay_request_retries_total",
			Help: "Total number of resends by failure reason",
		},
		[]string{"reason"},
	)

	// RequestsInFlight tracks requests currently awaiting a response
	RequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "replay_requests_in_flight",
			Help: "Number of requests currently awaiting a response",
		},
	)

	// TokensReceived counts tokens reported by the server
	TokensReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "replay_tokens_received_total",
			Help: "Total number of output tokens reported by the server",
		},
	)

	// RequestDuration tracks end-to-end latency of successful requests
	RequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "replay_request_duration_seconds",
			Help:    "End-to-end duration of successful generate requests",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 14), // 50ms to ~6min
		},
	)
)

// Retry reason label values
const (
	ReasonTransport = "transport"
	ReasonMalformed = "malformed_response"
	ReasonAppError  = "application_error"
)
