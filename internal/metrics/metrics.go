// Package metrics exposes Prometheus instrumentation for the audit pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for audit submissions. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	// Terminal submission results: completed, failed, rejected
	Submissions *prometheus.CounterVec

	// Failures by error kind
	Failures *prometheus.CounterVec

	// Round-trip duration of the audit endpoint call
	EndpointLatency prometheus.Histogram

	// Findings produced by severity
	Findings *prometheus.CounterVec

	// Successful outcomes without structured findings
	Degraded prometheus.Counter

	// Sessions currently submitting
	InFlight prometheus.Gauge
}

// New registers all audit metrics with reg. Passing nil uses the default
// registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Submissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "medaudit_submissions_total",
			Help: "Total audit submissions by terminal result",
		}, []string{"result"}),

		Failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "medaudit_submission_failures_total",
			Help: "Total failed audit submissions by error kind",
		}, []string{"kind"}), // kind: "extraction", "too_large", "timeout", "endpoint", "network", ...

		EndpointLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "medaudit_endpoint_duration_seconds",
			Help:    "Duration of audit endpoint round trips",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),

		Findings: f.NewCounterVec(prometheus.CounterOpts{
			Name: "medaudit_findings_total",
			Help: "Total normalized findings by severity",
		}, []string{"severity"}),

		Degraded: f.NewCounter(prometheus.CounterOpts{
			Name: "medaudit_degraded_outcomes_total",
			Help: "Successful outcomes whose reply held no parseable findings",
		}),

		InFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "medaudit_submissions_in_flight",
			Help: "Audit submissions currently awaiting the endpoint",
		}),
	}
}

// IncrementSubmission records a terminal submission result.
func (m *Metrics) IncrementSubmission(result string) {
	if m != nil {
		m.Submissions.WithLabelValues(result).Inc()
	}
}

// IncrementFailure records a failed submission by error kind.
func (m *Metrics) IncrementFailure(kind string) {
	if m != nil {
		m.Failures.WithLabelValues(kind).Inc()
	}
}

// ObserveEndpointLatency records the duration of one endpoint round trip.
func (m *Metrics) ObserveEndpointLatency(d time.Duration) {
	if m != nil {
		m.EndpointLatency.Observe(d.Seconds())
	}
}

// AddFindings records count findings of the given severity.
func (m *Metrics) AddFindings(severity string, count int) {
	if m != nil && count > 0 {
		m.Findings.WithLabelValues(severity).Add(float64(count))
	}
}

// IncrementDegraded records an outcome without structured findings.
func (m *Metrics) IncrementDegraded() {
	if m != nil {
		m.Degraded.Inc()
	}
}

// SubmissionStarted increments the in-flight gauge.
func (m *Metrics) SubmissionStarted() {
	if m != nil {
		m.InFlight.Inc()
	}
}

// SubmissionFinished decrements the in-flight gauge.
func (m *Metrics) SubmissionFinished() {
	if m != nil {
		m.InFlight.Dec()
	}
}
