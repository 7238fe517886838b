package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// NotifierMetrics tracks fan-out outcomes and provider deliveries.
type NotifierMetrics struct {
	tenantOutcomes *prometheus.CounterVec
	deliveries     *prometheus.CounterVec
	invoices       *prometheus.CounterVec
	tenantDuration *prometheus.HistogramVec
}

var (
	notifierMetricsOnce sync.Once
	notifierMetrics     *NotifierMetrics
)

func Notifier() *NotifierMetrics {
	return NotifierWithConfig(Config{})
}

func NotifierWithConfig(cfg Config) *NotifierMetrics {
	notifierMetricsOnce.Do(func() {
		notifierMetrics = newNotifierMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return notifierMetrics
}

// ResetNotifierMetricsForTest resets the notifier metrics singleton for tests.
func ResetNotifierMetricsForTest() {
	notifierMetricsOnce = sync.Once{}
	notifierMetrics = nil
}

func newNotifierMetrics(registerer prometheus.Registerer, cfg Config) *NotifierMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	constLabels := constLabelsFor(cfg)

	m := &NotifierMetrics{
		tenantOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "invoicenotify_tenant_outcomes_total",
			Help:        "Per-tenant notification outcomes by flow and status.",
			ConstLabels: constLabels,
		}, []string{"flow", "status"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "invoicenotify_deliveries_total",
			Help:        "WhatsApp template deliveries by template and result.",
			ConstLabels: constLabels,
		}, []string{"template", "result"}),
		invoices: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "invoicenotify_invoices_total",
			Help:        "Rejected invoices found and notified.",
			ConstLabels: constLabels,
		}, []string{"stage"}),
		tenantDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "invoicenotify_tenant_duration_seconds",
			Help:        "Time spent processing one tenant.",
			Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			ConstLabels: constLabels,
		}, []string{"flow"}),
	}
	registerer.MustRegister(m.tenantOutcomes, m.deliveries, m.invoices, m.tenantDuration)
	return m
}

func (m *NotifierMetrics) IncTenantOutcome(flow, status string) {
	if m == nil {
		return
	}
	m.tenantOutcomes.WithLabelValues(flow, status).Inc()
}

func (m *NotifierMetrics) AddDeliveries(template string, successful, failed int) {
	if m == nil {
		return
	}
	if successful > 0 {
		m.deliveries.WithLabelValues(template, "success").Add(float64(successful))
	}
	if failed > 0 {
		m.deliveries.WithLabelValues(template, "failure").Add(float64(failed))
	}
}

func (m *NotifierMetrics) AddInvoices(found, notified int) {
	if m == nil {
		return
	}
	if found > 0 {
		m.invoices.WithLabelValues("found").Add(float64(found))
	}
	if notified > 0 {
		m.invoices.WithLabelValues("notified").Add(float64(notified))
	}
}

func (m *NotifierMetrics) ObserveTenantDuration(flow string, d time.Duration) {
	if m == nil {
		return
	}
	m.tenantDuration.WithLabelValues(flow).Observe(d.Seconds())
}
