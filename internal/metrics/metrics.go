package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics checkout and settlement instrumentation. A nil *Metrics is a no-op.
type Metrics struct {
	gatherer            prometheus.Gatherer
	httpRequests        *prometheus.CounterVec
	httpDuration        *prometheus.HistogramVec
	checkouts           *prometheus.CounterVec
	webhooks            *prometheus.CounterVec
	notifications       *prometheus.CounterVec
	orderNumberConflict prometheus.Counter
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry registers the collectors on reg.
func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	m := &Metrics{
		gatherer: gatherer,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "checkout_total",
			Help: "Checkout attempts by payment variant and result.",
		}, []string{"variant", "result"}),
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_webhook_total",
			Help: "Gateway events by gateway and reconcile outcome.",
		}, []string{"gateway", "outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_send_total",
			Help: "Notification sends by channel and result.",
		}, []string{"channel", "result"}),
		orderNumberConflict: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "order_number_conflict_total",
			Help: "Order number unique conflicts that were retried.",
		}),
	}
	reg.MustRegister(m.httpRequests, m.httpDuration, m.checkouts, m.webhooks, m.notifications, m.orderNumberConflict)
	return m
}

// Middleware records request count and latency per route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil || m.httpRequests == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.httpRequests.WithLabelValues(c.Request.Method, route, status).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() gin.HandlerFunc {
	if m == nil || m.gatherer == nil {
		return gin.WrapH(promhttp.Handler())
	}
	return gin.WrapH(promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
}

// IncCheckout counts a checkout attempt.
func (m *Metrics) IncCheckout(variant, result string) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.WithLabelValues(normalizeLabel(variant), normalizeLabel(result)).Inc()
}

// IncWebhook counts a reconciled gateway event.
func (m *Metrics) IncWebhook(gateway, outcome string) {
	if m == nil || m.webhooks == nil {
		return
	}
	m.webhooks.WithLabelValues(normalizeLabel(gateway), normalizeLabel(outcome)).Inc()
}

// IncNotification counts one channel send.
func (m *Metrics) IncNotification(channel, result string) {
	if m == nil || m.notifications == nil {
		return
	}
	m.notifications.WithLabelValues(normalizeLabel(channel), normalizeLabel(result)).Inc()
}

// IncOrderNumberConflict counts a retried order number collision.
func (m *Metrics) IncOrderNumberConflict() {
	if m == nil || m.orderNumberConflict == nil {
		return
	}
	m.orderNumberConflict.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
