package providers

import (
	"dsd/internal/structures"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	IncRefreshTicks(slug string)
	IncFetchFailures(kind string)
	AddWidgetsReplaced(slug string, count int)
	ObserveQueryDuration(status string, duration time.Duration)
	SetDashboardsWatched(count int)
}

type MetricsProvider struct {
	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	refreshTicks      *prometheus.CounterVec
	fetchFailures     *prometheus.CounterVec
	widgetsReplaced   *prometheus.CounterVec
	queryDuration     *prometheus.HistogramVec
	dashboardsWatched prometheus.Gauge
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *MetricsProvider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *MetricsProvider) IncRefreshTicks(slug string) {
	m.refreshTicks.WithLabelValues(slug).Inc()
}

func (m *MetricsProvider) IncFetchFailures(kind string) {
	m.fetchFailures.WithLabelValues(kind).Inc()
}

func (m *MetricsProvider) AddWidgetsReplaced(slug string, count int) {
	m.widgetsReplaced.WithLabelValues(slug).Add(float64(count))
}

func (m *MetricsProvider) ObserveQueryDuration(status string, duration time.Duration) {
	m.queryDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func (m *MetricsProvider) SetDashboardsWatched(count int) {
	m.dashboardsWatched.Set(float64(count))
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	return &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dsd_requests_total",
			Help: "Total number of HTTP requests to the control API",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dsd_request_duration_seconds",
			Help:    "Control API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dsd_cache_hits_total",
			Help: "Total number of query-result cache hits",
		}),

		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dsd_cache_misses_total",
			Help: "Total number of query-result cache misses",
		}),

		refreshTicks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dsd_refresh_ticks_total",
			Help: "Total number of auto-refresh ticks per dashboard",
		}, []string{"dashboard"}),

		fetchFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dsd_fetch_failures_total",
			Help: "Total number of failed backend fetches by kind",
		}, []string{"kind"}),

		widgetsReplaced: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dsd_widgets_replaced_total",
			Help: "Total number of widgets replaced by refresh diffs",
		}, []string{"dashboard"}),

		queryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dsd_query_result_duration_seconds",
			Help:    "Time from query-result request to terminal status",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"}),

		dashboardsWatched: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "dsd_dashboards_watched",
			Help: "Current number of watched dashboards",
		}),
	}
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncCacheHits()                                    {}
func (n *noopMetrics) IncCacheMisses()                                  {}
func (n *noopMetrics) IncRefreshTicks(_ string)                         {}
func (n *noopMetrics) IncFetchFailures(_ string)                        {}
func (n *noopMetrics) AddWidgetsReplaced(_ string, _ int)               {}
func (n *noopMetrics) ObserveQueryDuration(_ string, _ time.Duration)   {}
func (n *noopMetrics) SetDashboardsWatched(_ int)                       {}
