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

	// AgentStreamDuration tracks agent streaming response duration by outcome.
	AgentStreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agent_stream_duration_seconds",
			Help:    "Agent streaming response duration",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 30, 45, 60, 90, 120},
		},
		[]string{"outcome"},
	)

	// AgentFragmentsTotal tracks decoded text fragments.
	AgentFragmentsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agent_fragments_total",
			Help: "Total text fragments decoded from agent streams",
		},
	)

	// DecodeAnomaliesTotal tracks frames recovered or skipped by the decoder.
	DecodeAnomaliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_decode_anomalies_total",
			Help: "Frames decoded as plain text or skipped",
		},
		[]string{"kind"},
	)

	// AgentTokensTotal tracks tokens reported in finish frames.
	AgentTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_tokens_total",
			Help: "Total agent tokens reported by finish frames",
		},
		[]string{"direction"},
	)

	// StreamsInFlight tracks agent requests currently streaming.
	StreamsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "agent_streams_in_flight",
			Help: "Number of agent requests currently in flight",
		},
	)

	// ConversationsActive tracks live conversations.
	ConversationsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "conversations_active",
			Help: "Number of conversations held in memory",
		},
	)

	// MessagesTotal tracks total conversation entries created.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_total",
			Help: "Total messages created",
		},
		[]string{"role"},
	)

	// SSEConnectionsActive tracks active SSE connections.
	SSEConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sse_connections_active",
			Help: "Number of active SSE connections",
		},
	)

	// NATSPublishFailures tracks events that could not be published.
	NATSPublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nats_publish_failures_total",
			Help: "Conversation events that failed to publish to NATS",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordAgentStream records metrics for a finished agent stream.
func RecordAgentStream(outcome string, duration float64, fragments, fallbacks, skipped int) {
	AgentStreamDuration.WithLabelValues(outcome).Observe(duration)
	AgentFragmentsTotal.Add(float64(fragments))
	if fallbacks > 0 {
		DecodeAnomaliesTotal.WithLabelValues("plain_text").Add(float64(fallbacks))
	}
	if skipped > 0 {
		DecodeAnomaliesTotal.WithLabelValues("skipped").Add(float64(skipped))
	}
}

// RecordTokens records token usage reported by the agent.
func RecordTokens(tokensIn, tokensOut int) {
	AgentTokensTotal.WithLabelValues("in").Add(float64(tokensIn))
	AgentTokensTotal.WithLabelValues("out").Add(float64(tokensOut))
}

// IncrementSSEConnections increments the active SSE connection count.
func IncrementSSEConnections() {
	SSEConnectionsActive.Inc()
}

// DecrementSSEConnections decrements the active SSE connection count.
func DecrementSSEConnections() {
	SSEConnectionsActive.Dec()
}
