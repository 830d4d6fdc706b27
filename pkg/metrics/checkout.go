package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records outcomes of the checkout workflow.
type CheckoutMetrics struct {
	orders   *prometheus.CounterVec
	failures *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	orders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_orders_total",
		Help: "Orders created through checkout.",
	}, []string{"payment_status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_failures_total",
		Help: "Checkout attempts rejected before order creation.",
	}, []string{"reason"})
	reg.MustRegister(orders, failures)
	return &CheckoutMetrics{orders: orders, failures: failures}
}

// IncOrder counts a successfully created order.
func (m *CheckoutMetrics) IncOrder(paymentStatus string) {
	if m == nil || m.orders == nil {
		return
	}
	m.orders.WithLabelValues(paymentStatus).Inc()
}

// IncFailure counts a rejected checkout attempt by reason.
func (m *CheckoutMetrics) IncFailure(reason string) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.WithLabelValues(reason).Inc()
}
