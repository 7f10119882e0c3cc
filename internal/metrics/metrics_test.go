package metrics

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCountersExport(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg, reg)
	m.IncCheckout("stripe_checkout", "ok")
	m.IncWebhook("stripe", "settled")
	m.IncWebhook("stripe", "settled")
	m.IncNotification("email", "")
	m.IncOrderNumberConflict()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "payment_webhook_total", "outcome", "settled"); err != nil || got != 2 {
		t.Fatalf("expected webhook settled=2, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "notification_send_total", "result", "unknown"); err != nil || got != 1 {
		t.Fatalf("expected empty label normalized, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "checkout_total", "variant", "stripe_checkout"); err != nil || got != 1 {
		t.Fatalf("expected checkout=1, got %f err=%v", got, err)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.IncCheckout("a", "b")
	m.IncWebhook("a", "b")
	m.IncNotification("a", "b")
	m.IncOrderNumberConflict()
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg, reg)
	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/metrics", m.Handler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(w.Body.String(), `http_requests_total{method="GET",route="/ping",status="200"} 1`) {
		t.Fatalf("expected ping request counted, got=%s", w.Body.String())
	}
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if pair.GetName() == label && pair.GetValue() == value {
					return metric.GetCounter().GetValue(), nil
				}
			}
		}
		return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
	}
	return 0, fmt.Errorf("metric %q not found", name)
}
