package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCronJobMetricsRecordOutcomes(t *testing.T) {
	m := NewCronJobMetrics(prometheus.NewRegistry())

	m.IncSuccess("reservation-expiry")
	m.IncSuccess("reservation-expiry")
	m.IncFailure("due-warning")
	m.ObserveDuration("reservation-expiry", 250*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.success.WithLabelValues("reservation-expiry")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.failure.WithLabelValues("due-warning")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration, "librarium_cron_job_duration_seconds"))
}

func TestCronJobMetricsEmptyJobNameGetsPlaceholderLabel(t *testing.T) {
	m := NewCronJobMetrics(prometheus.NewRegistry())
	m.IncSuccess("")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.success.WithLabelValues("unknown")))
}

func TestCronJobMetricsNoopWithoutRegistry(t *testing.T) {
	var m *CronJobMetrics
	assert.NotPanics(t, func() {
		m.IncSuccess("x")
		m.IncFailure("x")
		m.ObserveDuration("x", time.Second)
	})

	noop := NewCronJobMetrics(nil)
	assert.NotPanics(t, func() {
		noop.IncSuccess("x")
		noop.ObserveDuration("x", time.Second)
	})
}
