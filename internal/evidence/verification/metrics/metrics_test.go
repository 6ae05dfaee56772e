package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncrementOutcome("verified")
	m.IncrementOutcome("verified")
	m.IncrementOutcome("failed")
	m.IncrementSigningDegraded("pgp")
	m.ObserveVendorCall("setFields", 120*time.Millisecond, nil)
	m.ObserveVendorCall("setFields", time.Second, errors.New("fault"))
	m.ObserveVerifyLatency(2 * time.Second)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.Outcomes.WithLabelValues("verified")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Outcomes.WithLabelValues("failed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SigningDegraded.WithLabelValues("pgp")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.VendorLatency))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementOutcome("verified")
		m.IncrementSigningDegraded("jwt")
		m.ObserveVendorCall("register", time.Second, nil)
		m.ObserveVerifyLatency(time.Second)
	})
}
