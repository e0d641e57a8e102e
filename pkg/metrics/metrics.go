// Package metrics exposes the gateway's Prometheus instrumentation: a
// per-tool call counter and duration histogram, scraped over an
// operator-mounted /metrics endpoint.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns a private Prometheus registry scoped to this gateway
// instance, so embedding it never collides with a host process's own
// default registry.
type Recorder struct {
	registry  *prometheus.Registry
	toolCalls *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewRecorder builds a Recorder with its metrics pre-registered.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	toolCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mcp_gateway_tool_calls_total",
		Help: "Total tools/call dispatches, labeled by tool name and outcome.",
	}, []string{"tool", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mcp_gateway_tool_call_duration_seconds",
		Help:    "tools/call handling latency in seconds, labeled by tool name.",
		Buckets: prometheus.DefBuckets,
	}, []string{"tool"})
	reg.MustRegister(toolCalls, duration)
	return &Recorder{registry: reg, toolCalls: toolCalls, duration: duration}
}

// RecordToolCall records one completed tools/call dispatch.
func (r *Recorder) RecordToolCall(tool string, err error, elapsed time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	r.toolCalls.WithLabelValues(tool, outcome).Inc()
	r.duration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// Handler serves this Recorder's metrics in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
