package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRecomputeCountsByTriggerAndStatus(t *testing.T) {
	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordRecompute("payment.created", "paid", 100)
	m.RecordRecompute("payment.created", "paid", 100)
	m.RecordRecompute("", "partial", 40)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.recomputations.WithLabelValues("payment.created", "paid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.recomputations.WithLabelValues("unknown", "partial")))
}

func TestRecordHandlerCountsErrors(t *testing.T) {
	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordHandler("payment.deleted", "success", time.Millisecond)
	m.RecordHandler("payment.deleted", "error", time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.handlerErrors.WithLabelValues("payment.deleted")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRecompute("manual", "paid", 100)
	m.RecordOutboxBatch("success", 1, time.Second)
	m.RecordOrderNumber("issued")
	m.RecordRateLimit("/api/orders/:id/recompute-payment-status", "denied")
}

func TestNewMetricsRejectsDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)
	_, err = NewMetrics(reg)
	assert.Error(t, err)
}
