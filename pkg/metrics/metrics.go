// Package metrics defines the Prometheus instruments for the analysis pipeline,
// the review workflow, and the settings store.
//
// All recording methods are safe on a nil *Metrics so components can run without metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "integrity"

// Outcome label values.
const (
	OutcomeSuccess  = "success"
	OutcomeError    = "error"
	OutcomeRejected = "rejected"
	OutcomeSkipped  = "skipped"
)

// Metrics holds every instrument the engine records.
type Metrics struct {
	// ProviderRequests counts provider calls. Labels: provider, outcome
	ProviderRequests *prometheus.CounterVec
	// ProviderDuration measures provider call latency. Labels: provider
	ProviderDuration *prometheus.HistogramVec
	// ProviderRetries counts retried provider attempts. Labels: provider
	ProviderRetries *prometheus.CounterVec
	// CircuitOpen is 1 while a provider's circuit is not closed. Labels: provider
	CircuitOpen *prometheus.GaugeVec
	// Submissions counts create attempts. Labels: outcome (success or a conflict code)
	Submissions *prometheus.CounterVec
	// Analyses counts analysis runs. Labels: status
	Analyses *prometheus.CounterVec
	// Decisions counts review decisions. Labels: status
	Decisions *prometheus.CounterVec
	// RiskVerdicts counts classifier verdicts produced after analysis. Labels: level
	RiskVerdicts *prometheus.CounterVec
	// SettingsUpdates counts per-key settings writes. Labels: outcome
	SettingsUpdates *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates the instruments and registers them with reg.
// Pass prometheus.NewRegistry() in tests to keep them isolated.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "requests_total",
			Help:      "Analysis provider calls by provider and outcome",
		}, []string{"provider", "outcome"}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "request_duration_seconds",
			Help:      "Analysis provider call latency in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"provider"}),
		ProviderRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "retries_total",
			Help:      "Retried analysis provider attempts",
		}, []string{"provider"}),
		CircuitOpen: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "circuit_open",
			Help:      "1 while the provider circuit breaker is open or half-open",
		}, []string{"provider"}),
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "submissions_total",
			Help:      "Submission create attempts by outcome",
		}, []string{"outcome"}),
		Analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "analyses_total",
			Help:      "Analysis runs by resulting analysis status",
		}, []string{"status"}),
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "decisions_total",
			Help:      "Review decisions by new submission status",
		}, []string{"status"}),
		RiskVerdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "verdicts_total",
			Help:      "Overall risk verdicts produced after analysis",
		}, []string{"level"}),
		SettingsUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settings",
			Name:      "updates_total",
			Help:      "Per-key settings writes by outcome",
		}, []string{"outcome"}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.ProviderRequests,
		m.ProviderDuration,
		m.ProviderRetries,
		m.CircuitOpen,
		m.Submissions,
		m.Analyses,
		m.Decisions,
		m.RiskVerdicts,
		m.SettingsUpdates,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveProviderCall records one provider call.
func (m *Metrics) ObserveProviderCall(provider, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ProviderRequests.WithLabelValues(provider, outcome).Inc()
	m.ProviderDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// IncProviderRetry records a retried provider attempt.
func (m *Metrics) IncProviderRetry(provider string) {
	if m == nil {
		return
	}
	m.ProviderRetries.WithLabelValues(provider).Inc()
}

// SetCircuitOpen records whether provider's circuit is blocking calls.
func (m *Metrics) SetCircuitOpen(provider string, open bool) {
	if m == nil {
		return
	}
	v := 0.0
	if open {
		v = 1
	}
	m.CircuitOpen.WithLabelValues(provider).Set(v)
}

// IncSubmission records a create attempt outcome.
func (m *Metrics) IncSubmission(outcome string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(outcome).Inc()
}

// IncAnalysis records an analysis run by its resulting status.
func (m *Metrics) IncAnalysis(status string) {
	if m == nil {
		return
	}
	m.Analyses.WithLabelValues(status).Inc()
}

// IncDecision records a review decision.
func (m *Metrics) IncDecision(status string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(status).Inc()
}

// IncRiskVerdict records an overall verdict.
func (m *Metrics) IncRiskVerdict(level string) {
	if m == nil {
		return
	}
	m.RiskVerdicts.WithLabelValues(level).Inc()
}

// IncSettingsUpdate records a per-key settings write outcome.
func (m *Metrics) IncSettingsUpdate(outcome string) {
	if m == nil {
		return
	}
	m.SettingsUpdates.WithLabelValues(outcome).Inc()
}
