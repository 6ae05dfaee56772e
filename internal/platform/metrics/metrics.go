package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds process-level Prometheus metrics: HTTP traffic and the cache façade.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	CacheHitsTotal     prometheus.Counter
	CacheMissesTotal   prometheus.Counter
	CacheSkipsTotal    prometheus.Counter // operations skipped because the backend is unavailable
	CacheAvailable     prometheus.Gauge
	CacheResetsTotal   prometheus.Counter
	CacheFailuresTotal *prometheus.CounterVec
}

// New creates and registers all metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "idproxy_http_requests_total",
			Help: "Total HTTP requests by route and status code",
		}, []string{"route", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "idproxy_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),

		CacheHitsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "idproxy_cache_hits_total",
			Help: "Total number of cache hits",
		}),
		CacheMissesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "idproxy_cache_misses_total",
			Help: "Total number of cache misses",
		}),
		CacheSkipsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "idproxy_cache_skips_total",
			Help: "Cache operations skipped because the backend is unavailable",
		}),
		CacheAvailable: f.NewGauge(prometheus.GaugeOpts{
			Name: "idproxy_cache_available",
			Help: "1 when the cache backend passed its availability probe",
		}),
		CacheResetsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "idproxy_cache_resets_total",
			Help: "Total number of explicit cache availability resets",
		}),
		CacheFailuresTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "idproxy_cache_failures_total",
			Help: "Cache backend failures by operation",
		}, []string{"op"}),
	}
}

// ObserveHTTPRequest records a completed HTTP request.
func (m *Metrics) ObserveHTTPRequest(route, status string, seconds float64) {
	m.HTTPRequestsTotal.WithLabelValues(route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(seconds)
}

// RecordCacheHit increments the hit counter.
func (m *Metrics) RecordCacheHit() {
	m.CacheHitsTotal.Inc()
}

// RecordCacheMiss increments the miss counter.
func (m *Metrics) RecordCacheMiss() {
	m.CacheMissesTotal.Inc()
}

// RecordCacheSkip increments the skipped-operation counter.
func (m *Metrics) RecordCacheSkip() {
	m.CacheSkipsTotal.Inc()
}

// RecordCacheFailure counts a backend failure for op ("probe", "get", "set").
func (m *Metrics) RecordCacheFailure(op string) {
	m.CacheFailuresTotal.WithLabelValues(op).Inc()
}

// RecordCacheReset counts an explicit availability reset.
func (m *Metrics) RecordCacheReset() {
	m.CacheResetsTotal.Inc()
}

// SetCacheAvailable reflects the availability latch.
func (m *Metrics) SetCacheAvailable(available bool) {
	if available {
		m.CacheAvailable.Set(1)
		return
	}
	m.CacheAvailable.Set(0)
}
