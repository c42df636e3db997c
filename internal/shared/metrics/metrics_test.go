package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAndHandler(t *testing.T) {
	m := New("detailing", prometheus.NewRegistry())

	m.DownstreamFailure("auto_purchase_order")
	m.DownstreamFailure("auto_purchase_order")
	m.QuotationCreated(true)
	m.PurchaseOrderCreated(false)
	m.ObserveRequest("GET", "/health/live", "200", 0.01)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.DownstreamFailures.WithLabelValues("auto_purchase_order")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QuotationRequestsCreated.WithLabelValues("automatic")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PurchaseOrdersCreated.WithLabelValues("manual")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "detailing_procurement_downstream_failures_total"))
	assert.True(t, strings.Contains(body, "detailing_http_requests_total"))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.DownstreamFailure("x")
	m.QuotationCreated(false)
	m.SetLowStock("HIGH", 3)
	m.MailSent("low_stock_alert")
	assert.NotNil(t, m.Handler())
}
