package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification flow.
type Metrics struct {
	// Vendor call latency by operation
	VendorLatency *prometheus.HistogramVec

	// Verification outcomes by status
	Outcomes *prometheus.CounterVec

	// Signings that degraded to a sentinel or empty signature, by scheme
	SigningDegraded *prometheus.CounterVec

	// End-to-end verify latency including signing
	VerifyLatency prometheus.Histogram
}

// New creates the verification metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		VendorLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "idproxy_greenid_call_duration_seconds",
			Help:    "Duration of GreenID calls by operation",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"operation", "result"}),

		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "idproxy_verification_outcomes_total",
			Help: "Total verification outcomes by status",
		}, []string{"status"}),

		SigningDegraded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "idproxy_signing_degraded_total",
			Help: "Credential signings that failed and degraded, by scheme",
		}, []string{"scheme"}),

		VerifyLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "idproxy_verify_duration_seconds",
			Help:    "Duration of a full verification including credential issuance",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
}

// ObserveVendorCall records one GreenID call.
func (m *Metrics) ObserveVendorCall(operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.VendorLatency.WithLabelValues(operation, result).Observe(d.Seconds())
}

// IncrementOutcome records a verification outcome.
func (m *Metrics) IncrementOutcome(status string) {
	if m != nil {
		m.Outcomes.WithLabelValues(status).Inc()
	}
}

// IncrementSigningDegraded records a degraded signing.
func (m *Metrics) IncrementSigningDegraded(scheme string) {
	if m != nil {
		m.SigningDegraded.WithLabelValues(scheme).Inc()
	}
}

// ObserveVerifyLatency records the total verify duration.
func (m *Metrics) ObserveVerifyLatency(d time.Duration) {
	if m != nil {
		m.VerifyLatency.Observe(d.Seconds())
	}
}
