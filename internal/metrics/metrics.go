// Package metrics holds the storefront's business counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Checkout outcomes.
const (
	OutcomeSuccess      = "success"
	OutcomeFailed       = "failed"
	OutcomeUnauthorized = "unauthorized"
	OutcomeInvalid      = "invalid"
	OutcomeOutOfStock   = "out_of_stock"
	OutcomeInFlight     = "in_flight"
)

var (
	discountApplications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_discount_applications_total",
			Help: "Discount code applications by result (accepted or the rejection reason).",
		},
		[]string{"result"},
	)

	checkoutSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_checkout_submissions_total",
			Help: "Checkout submissions by outcome.",
		},
		[]string{"outcome"},
	)

	activeCarts = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "storefront_active_carts",
			Help: "Number of session carts currently held in memory.",
		},
	)
)

func init() {
	prometheus.MustRegister(discountApplications, checkoutSubmissions, activeCarts)
}

// DiscountAccepted counts a successfully applied discount code.
func DiscountAccepted() {
	discountApplications.WithLabelValues("accepted").Inc()
}

// DiscountRejected counts a rejected discount code by reason.
func DiscountRejected(reason string) {
	discountApplications.WithLabelValues(reason).Inc()
}

// CheckoutOutcome counts one checkout submission.
func CheckoutOutcome(outcome string) {
	checkoutSubmissions.WithLabelValues(outcome).Inc()
}

// SetActiveCarts records the number of carts held in memory.
func SetActiveCarts(n int) {
	activeCarts.Set(float64(n))
}
