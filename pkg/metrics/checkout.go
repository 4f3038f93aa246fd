package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records cart persistence, quote and order-submission outcomes.
// A nil *CheckoutMetrics is valid and records nothing.
type CheckoutMetrics struct {
	submissions    *prometheus.CounterVec
	submitDuration *prometheus.HistogramVec
	quotes         *prometheus.CounterVec
	staleQuotes    prometheus.Counter
	persistFailure prometheus.Counter
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_order_submissions_total",
		Help: "Order submissions by flow and outcome.",
	}, []string{"flow", "outcome"})
	submitDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_order_submit_duration_seconds",
		Help:    "Duration of order-creation calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"flow"})
	quotes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_shipping_quotes_total",
		Help: "Shipping quote requests by kind and outcome.",
	}, []string{"kind", "outcome"})
	staleQuotes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_shipping_quotes_stale_total",
		Help: "Quote responses discarded because a newer request was issued.",
	})
	persistFailure := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_persist_failures_total",
		Help: "Cart snapshot writes that failed and left the previous snapshot in place.",
	})
	reg.MustRegister(submissions, submitDuration, quotes, staleQuotes, persistFailure)
	return &CheckoutMetrics{
		submissions:    submissions,
		submitDuration: submitDuration,
		quotes:         quotes,
		staleQuotes:    staleQuotes,
		persistFailure: persistFailure,
	}
}

// ObserveSubmission records one order-creation attempt.
func (m *CheckoutMetrics) ObserveSubmission(flow, outcome string, duration time.Duration) {
	if m == nil || m.submissions == nil {
		return
	}
	flow = normalizeLabel(flow)
	m.submissions.WithLabelValues(flow, normalizeLabel(outcome)).Inc()
	m.submitDuration.WithLabelValues(flow).Observe(duration.Seconds())
}

// IncQuote counts a quote or store lookup by outcome.
func (m *CheckoutMetrics) IncQuote(kind, outcome string) {
	if m == nil || m.quotes == nil {
		return
	}
	m.quotes.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Inc()
}

// IncStaleQuote counts a superseded quote response.
func (m *CheckoutMetrics) IncStaleQuote() {
	if m == nil || m.staleQuotes == nil {
		return
	}
	m.staleQuotes.Inc()
}

// IncPersistFailure counts a failed cart snapshot write.
func (m *CheckoutMetrics) IncPersistFailure() {
	if m == nil || m.persistFailure == nil {
		return
	}
	m.persistFailure.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
