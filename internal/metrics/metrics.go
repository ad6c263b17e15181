// Package metrics exposes Prometheus metrics for the authorization front end
// and the MCP tools.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application on its own registry
type Metrics struct {
	registry *prometheus.Registry

	ConsentScreens   *prometheus.CounterVec
	ConsentDecisions *prometheus.CounterVec
	EngineFailures   *prometheus.CounterVec
	TokensIssued     *prometheus.CounterVec
	ClientsCreated   prometheus.Counter
	ToolCalls        *prometheus.CounterVec
	ToolDuration     *prometheus.HistogramVec
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ConsentScreens: f.NewCounterVec(prometheus.CounterOpts{
			Name: "remote_mcp_consent_screens_total",
			Help: "Consent screens shown, by flow state",
		}, []string{"state"}),
		ConsentDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "remote_mcp_consent_decisions_total",
			Help: "Consent decisions, by outcome",
		}, []string{"outcome"}),
		EngineFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "remote_mcp_engine_failures_total",
			Help: "Authorization engine failures, by operation",
		}, []string{"op"}),
		TokensIssued: f.NewCounterVec(prometheus.CounterOpts{
			Name: "remote_mcp_token_requests_total",
			Help: "Token endpoint requests, by OAuth result code",
		}, []string{"result"}),
		ClientsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "remote_mcp_clients_registered_total",
			Help: "Total number of dynamically registered clients",
		}),
		ToolCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "remote_mcp_tool_calls_total",
			Help: "MCP tool invocations, by tool and status",
		}, []string{"tool", "status"}),
		ToolDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "remote_mcp_tool_duration_seconds",
			Help:    "Duration of MCP tool invocations",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"tool"}),
	}
}

// Registry returns the registry holding the metrics
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ScreenShown records a rendered consent screen
func (m *Metrics) ScreenShown(state string) {
	m.ConsentScreens.WithLabelValues(state).Inc()
}

// DecisionMade records the outcome of a consent decision
func (m *Metrics) DecisionMade(outcome string) {
	m.ConsentDecisions.WithLabelValues(outcome).Inc()
}

// EngineFailed records a failed authorization engine call
func (m *Metrics) EngineFailed(op string) {
	m.EngineFailures.WithLabelValues(op).Inc()
}

// TokenRequest records a token endpoint result, "ok" or an OAuth error code
func (m *Metrics) TokenRequest(result string) {
	m.TokensIssued.WithLabelValues(result).Inc()
}

// ClientRegistered records a dynamic client registration
func (m *Metrics) ClientRegistered() {
	m.ClientsCreated.Inc()
}

// ObserveToolCall records a tool invocation.
// Call with time.Now() at the start of the invocation.
func (m *Metrics) ObserveToolCall(tool, status string, start time.Time) {
	m.ToolCalls.WithLabelValues(tool, status).Inc()
	m.ToolDuration.WithLabelValues(tool).Observe(time.Since(start).Seconds())
}
