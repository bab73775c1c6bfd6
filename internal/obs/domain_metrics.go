package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// PaymentOrderTotal counts order creation outcomes.
	PaymentOrderTotal *prometheus.CounterVec
	// PaymentVerifyTotal counts payment verification outcomes.
	PaymentVerifyTotal *prometheus.CounterVec
	// ProviderCallLatency records upstream provider call latency in milliseconds.
	ProviderCallLatency *prometheus.HistogramVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		PaymentOrderTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_order_total",
			Help:      "Count of payment order creation outcomes.",
		}, []string{"provider", "result"}))
		PaymentVerifyTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_verify_total",
			Help:      "Count of payment verification outcomes.",
		}, []string{"provider", "result"}))
		ProviderCallLatency = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "payment_provider_call_duration_ms",
			Help:      "Latency of calls to the payment provider in milliseconds.",
			Buckets:   []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"provider", "op", "result"}))
	})
}

// IncPaymentOrder records an order creation outcome when metrics are registered.
func IncPaymentOrder(provider, result string) {
	if PaymentOrderTotal != nil {
		PaymentOrderTotal.WithLabelValues(provider, result).Inc()
	}
}

// IncPaymentVerify records a verification outcome when metrics are registered.
func IncPaymentVerify(provider, result string) {
	if PaymentVerifyTotal != nil {
		PaymentVerifyTotal.WithLabelValues(provider, result).Inc()
	}
}

// ObserveProviderCall records the latency of a provider call when metrics are registered.
func ObserveProviderCall(provider, op, result string, millis float64) {
	if ProviderCallLatency != nil {
		ProviderCallLatency.WithLabelValues(provider, op, result).Observe(millis)
	}
}
