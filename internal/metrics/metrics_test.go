package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"medaudit/internal/metrics"
)

func TestMetrics_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.IncrementSubmission("completed")
	m.IncrementSubmission("completed")
	m.IncrementFailure("timeout")
	m.AddFindings("pass", 3)
	m.AddFindings("fail", 0)
	m.IncrementDegraded()
	m.ObserveEndpointLatency(2 * time.Second)
	m.SubmissionStarted()
	m.SubmissionStarted()
	m.SubmissionFinished()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Submissions.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Failures.WithLabelValues("timeout")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Findings.WithLabelValues("pass")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Degraded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InFlight))
	assert.Equal(t, 1, testutil.CollectAndCount(m.EndpointLatency))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.IncrementSubmission("failed")
		m.IncrementFailure("network")
		m.ObserveEndpointLatency(time.Second)
		m.AddFindings("warning", 2)
		m.IncrementDegraded()
		m.SubmissionStarted()
		m.SubmissionFinished()
	})
}
