package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus observability primitives for the purchasing service.
type Metrics struct {
	apiRequests        *prometheus.CounterVec
	apiDuration        *prometheus.HistogramVec
	outboxDispatch     *prometheus.CounterVec
	outboxDispatchTime *prometheus.HistogramVec
	outboxBacklog      prometheus.Gauge
	handlerDuration    *prometheus.HistogramVec
	handlerErrors      *prometheus.CounterVec
	recomputations     *prometheus.CounterVec
	paymentPercentage  prometheus.Histogram
	orderNumbers       *prometheus.CounterVec
	rateLimited        *prometheus.CounterVec
}

// NewMetrics registers and returns Prometheus metrics on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "purchasing_api_requests_total",
			Help: "Counts API requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		apiDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "purchasing_api_duration_seconds",
			Help:    "API request latency per method/route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		outboxDispatch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "purchasing_outbox_dispatch_total",
			Help: "Counts dispatcher batches by status.",
		}, []string{"status"}),
		outboxDispatchTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "purchasing_outbox_dispatch_duration_seconds",
			Help:    "Dispatcher batch durations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"}),
		outboxBacklog: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "purchasing_outbox_backlog",
			Help: "Number of pending events in the last polled batch.",
		}),
		handlerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "purchasing_event_handler_duration_seconds",
			Help:    "Event handler durations by subject.",
			Buckets: prometheus.DefBuckets,
		}, []string{"subject", "status"}),
		handlerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "purchasing_event_handler_errors_total",
			Help: "Counts handler errors by subject.",
		}, []string{"subject"}),
		recomputations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "purchasing_payment_status_recompute_total",
			Help: "Payment status recomputations by trigger and resulting status.",
		}, []string{"trigger", "status"}),
		paymentPercentage: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "purchasing_order_payment_percentage",
			Help:    "Distribution of computed payment percentages.",
			Buckets: []float64{0, 25, 50, 75, 99.99, 100, 150},
		}),
		orderNumbers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "purchasing_order_numbers_total",
			Help: "Order numbers issued by outcome.",
		}, []string{"outcome"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "purchasing_rate_limit_decisions_total",
			Help: "Rate limiter decisions by route and outcome.",
		}, []string{"route", "outcome"}),
	}

	collectors := []prometheus.Collector{
		m.apiRequests,
		m.apiDuration,
		m.outboxDispatch,
		m.outboxDispatchTime,
		m.outboxBacklog,
		m.handlerDuration,
		m.handlerErrors,
		m.recomputations,
		m.paymentPercentage,
		m.orderNumbers,
		m.rateLimited,
	}
	if reg != nil {
		for _, c := range collectors {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}

	return m, nil
}

// ObserveAPIRequest records an API request and latency.
func (m *Metrics) ObserveAPIRequest(method, route, status string, duration time.Duration) {
	if m == nil {
		return
	}
	methodLabel := sanitizeLabel(method)
	routeLabel := sanitizeLabel(route)
	m.apiRequests.WithLabelValues(methodLabel, routeLabel, status).Inc()
	m.apiDuration.WithLabelValues(methodLabel, routeLabel).Observe(duration.Seconds())
}

// RecordOutboxBatch registers dispatch batch metrics.
func (m *Metrics) RecordOutboxBatch(status string, count int, duration time.Duration) {
	if m == nil {
		return
	}
	m.outboxDispatch.WithLabelValues(status).Inc()
	m.outboxDispatchTime.WithLabelValues(status).Observe(duration.Seconds())
	m.outboxBacklog.Set(float64(count))
}

// RecordHandler observes handler invocations.
func (m *Metrics) RecordHandler(subject, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.handlerDuration.WithLabelValues(sanitizeLabel(subject), status).Observe(duration.Seconds())
	if status != "success" {
		m.handlerErrors.WithLabelValues(sanitizeLabel(subject)).Inc()
	}
}

// RecordRecompute counts a payment status recomputation.
func (m *Metrics) RecordRecompute(trigger, status string, percentage float64) {
	if m == nil {
		return
	}
	m.recomputations.WithLabelValues(sanitizeLabel(trigger), sanitizeLabel(status)).Inc()
	m.paymentPercentage.Observe(percentage)
}

// RecordOrderNumber counts an issued (or conflicting) order number.
func (m *Metrics) RecordOrderNumber(outcome string) {
	if m == nil {
		return
	}
	m.orderNumbers.WithLabelValues(sanitizeLabel(outcome)).Inc()
}

// RecordRateLimit counts an allowed or denied request on route.
func (m *Metrics) RecordRateLimit(route, outcome string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(sanitizeLabel(route), sanitizeLabel(outcome)).Inc()
}

func sanitizeLabel(val string) string {
	if val == "" {
		return "unknown"
	}
	return val
}
