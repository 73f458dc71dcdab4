package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/riskibarqy/esports-fantasy/internal/usecase"
)

const metricsNamespace = "esports_fantasy"

// Metrics is the Prometheus implementation of usecase.Metrics. Each instance
// owns its registry so tests can build as many as they like.
type Metrics struct {
	registry         *prometheus.Registry
	syncRuns         *prometheus.CounterVec
	syncDuration     *prometheus.HistogramVec
	syncRows         *prometheus.CounterVec
	transitions      *prometheus.CounterVec
	payments         *prometheus.CounterVec
	emails           *prometheus.CounterVec
	providerRequests *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec
}

var _ usecase.Metrics = (*Metrics)(nil)

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		syncRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sync_runs_total",
			Help:      "Sync runs by job and outcome.",
		}, []string{"job", "status"}),
		syncDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "sync_run_duration_seconds",
			Help:      "Wall time of sync runs.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
		syncRows: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sync_rows_total",
			Help:      "Rows written or rejected by sync runs.",
		}, []string{"job", "result"}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "match_transitions_total",
			Help:      "Match lifecycle transitions applied by the status tick.",
		}, []string{"provider", "kind"}),
		payments: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "payments_total",
			Help:      "Checkout and webhook outcomes by payment method.",
		}, []string{"method", "outcome"}),
		emails: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "emails_total",
			Help:      "Emails sent by template and outcome.",
		}, []string{"template", "outcome"}),
		providerRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "provider_requests_total",
			Help:      "Outbound provider request attempts by client and outcome.",
		}, []string{"client", "outcome"}),
		providerLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Latency of outbound provider request attempts.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}, []string{"client"}),
	}
}

func (m *Metrics) ObserveSyncRun(job, status string, duration time.Duration) {
	m.syncRuns.WithLabelValues(job, status).Inc()
	m.syncDuration.WithLabelValues(job).Observe(duration.Seconds())
}

func (m *Metrics) AddSyncRows(job string, upserted, failed int) {
	if upserted > 0 {
		m.syncRows.WithLabelValues(job, "upserted").Add(float64(upserted))
	}
	if failed > 0 {
		m.syncRows.WithLabelValues(job, "failed").Add(float64(failed))
	}
}

func (m *Metrics) IncTransition(provider, kind string) {
	m.transitions.WithLabelValues(provider, kind).Inc()
}

func (m *Metrics) IncPayment(method, outcome string) {
	m.payments.WithLabelValues(method, outcome).Inc()
}

func (m *Metrics) IncEmail(template, outcome string) {
	m.emails.WithLabelValues(template, outcome).Inc()
}

// ObserveProviderRequest matches restclient.ObserveFunc.
func (m *Metrics) ObserveProviderRequest(client, outcome string, elapsed time.Duration) {
	m.providerRequests.WithLabelValues(client, outcome).Inc()
	m.providerLatency.WithLabelValues(client).Observe(elapsed.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
