package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Checkout outcome labels.
const (
	OutcomeSuccess           = "success"
	OutcomeEmptyCart         = "empty_cart"
	OutcomeInsufficientStock = "insufficient_stock"
	OutcomeDeclined          = "payment_declined"
	OutcomeGatewayError      = "gateway_error"
	OutcomeConflict          = "conflict"
	OutcomeError             = "error"
)

// CheckoutMetrics counts checkout attempts by outcome and tracks their
// duration. A nil receiver is a no-op, so tests can skip wiring it.
type CheckoutMetrics struct {
	attempts *prometheus.CounterVec
	duration prometheus.Histogram
}

func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	m := &CheckoutMetrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "checkout_attempts_total",
			Help: "Checkout attempts partitioned by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "checkout_duration_seconds",
			Help:    "End-to-end checkout duration.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.attempts, m.duration)
	return m
}

func (m *CheckoutMetrics) Observe(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(outcome).Inc()
	m.duration.Observe(elapsed.Seconds())
}

// Handler serves the prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
