package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics prometheus collectors of the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	// HTTP
	RequestCounter           *prometheus.CounterVec
	RequestDurationHistogram *prometheus.HistogramVec

	// Procurement
	QuotationRequestsCreated *prometheus.CounterVec
	PurchaseOrdersCreated    *prometheus.CounterVec
	StockScans               *prometheus.CounterVec
	LowStockProducts         *prometheus.GaugeVec
	MailsSent                *prometheus.CounterVec
	DownstreamFailures       *prometheus.CounterVec
}

// New registers every collector under namespace on reg.
// reg must also be a Gatherer for Handler to serve it.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{}
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}

	m.RequestCounter = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	m.RequestDurationHistogram = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	m.QuotationRequestsCreated = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "procurement_quotation_requests_created_total",
			Help:      "Quotation requests created, by origin",
		},
		[]string{"origin"},
	)

	m.PurchaseOrdersCreated = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "procurement_purchase_orders_created_total",
			Help:      "Purchase orders created, by origin",
		},
		[]string{"origin"},
	)

	m.StockScans = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "procurement_stock_scans_total",
			Help:      "Stock monitor evaluation passes, by trigger",
		},
		[]string{"trigger"},
	)

	m.LowStockProducts = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "procurement_low_stock_products",
			Help:      "Products at or below minimum stock seen by the last scan, by priority",
		},
		[]string{"priority"},
	)

	m.MailsSent = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "procurement_mails_sent_total",
			Help:      "Notification mails handed to the gateway, by kind",
		},
		[]string{"kind"},
	)

	m.DownstreamFailures = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "procurement_downstream_failures_total",
			Help:      "Non-fatal side effect failures (notifications, automatic cascades), by operation",
		},
		[]string{"operation"},
	)

	return m
}

// Handler serves the registry in the prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(method, path, status string, seconds float64) {
	if m == nil {
		return
	}
	m.RequestCounter.WithLabelValues(method, path, status).Inc()
	m.RequestDurationHistogram.WithLabelValues(method, path).Observe(seconds)
}

func (m *Metrics) QuotationCreated(automatic bool) {
	if m == nil {
		return
	}
	m.QuotationRequestsCreated.WithLabelValues(origin(automatic)).Inc()
}

func (m *Metrics) PurchaseOrderCreated(automatic bool) {
	if m == nil {
		return
	}
	m.PurchaseOrdersCreated.WithLabelValues(origin(automatic)).Inc()
}

func (m *Metrics) StockScan(trigger string) {
	if m == nil {
		return
	}
	m.StockScans.WithLabelValues(trigger).Inc()
}

func (m *Metrics) SetLowStock(priority string, count int) {
	if m == nil {
		return
	}
	m.LowStockProducts.WithLabelValues(priority).Set(float64(count))
}

func (m *Metrics) MailSent(kind string) {
	if m == nil {
		return
	}
	m.MailsSent.WithLabelValues(kind).Inc()
}

// DownstreamFailure counts a swallowed side effect failure
func (m *Metrics) DownstreamFailure(operation string) {
	if m == nil {
		return
	}
	m.DownstreamFailures.WithLabelValues(operation).Inc()
}

func origin(automatic bool) string {
	if automatic {
		return "automatic"
	}
	return "manual"
}
