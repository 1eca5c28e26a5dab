package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Payment transaction metrics
	paymentTransactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_transactions_total",
		Help: "Total number of payment transactions",
	}, []string{
		"gateway",  // Which gateway handled the payment
		"currency", // USD, EUR, RUB
		"status",   // processed, failed, pending
	})

	paymentAmountTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_amount_total",
		Help: "Total payment amount in major currency units (for volume tracking)",
	}, []string{
		"gateway",
		"currency",
		"status",
	})

	// Payment processing duration (end-to-end, retry delays included)
	paymentProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "payment_processing_duration_seconds",
		Help: "Total time to process a payment transaction (end-to-end)",
		// Buckets: 50ms to 30s (the retry schedule alone can spend 14s waiting)
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30},
	}, []string{
		"gateway",
		"status",
	})

	paymentRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_retries_total",
		Help: "Total retry attempts against gateways",
	}, []string{
		"gateway",
		"operation", // payment, refund
	})

	// Refund metrics
	refundsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "refunds_total",
		Help: "Total refund attempts",
	}, []string{
		"gateway",
		"status", // refunded, failed
	})

	refundAmountTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "refund_amount_total",
		Help: "Total refunded amount in major currency units",
	}, []string{
		"gateway",
		"currency",
	})

	// Routing metrics
	gatewaySelectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_selections_total",
		Help: "Total times each gateway won routing",
	}, []string{
		"gateway",
	})

	routingFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "routing_failures_total",
		Help: "Total routing attempts that found no eligible gateway",
	}, []string{
		"currency",
	})

	availabilityChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_availability_checks_total",
		Help: "Total gateway availability probes",
	}, []string{
		"gateway",
		"result", // available, unavailable
	})

	// Notification metrics
	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_notifications_total",
		Help: "Total gateway notifications applied to transactions",
	}, []string{
		"status", // the status the notification set
	})

	// Exchange rate metrics
	rateLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exchange_rate_lookups_total",
		Help: "Total exchange rate lookups",
	}, []string{
		"pair",   // e.g. USD_EUR
		"source", // cache, source
	})

	// Lock table metrics
	activeTransactionLocks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "active_transaction_locks",
		Help: "Number of per-transaction locks currently allocated",
	})

	transactionsCleanedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transaction_locks_cleaned_total",
		Help: "Total per-transaction locks released by cleanup",
	})
)

// RecordPaymentTransaction records a completed payment attempt.
// This is the primary business metric for volume tracking and success rate calculation.
func RecordPaymentTransaction(gateway, currency, status string, amount, duration float64) {
	paymentTransactionsTotal.WithLabelValues(gateway, currency, status).Inc()

	// Record amount (for volume tracking)
	paymentAmountTotal.WithLabelValues(gateway, currency, status).Add(amount)

	// Record duration
	paymentProcessingDuration.WithLabelValues(gateway, status).Observe(duration)

	// Success rate is calculated in PromQL, not stored directly:
	// sum(rate(payment_transactions_total{status="processed"}[5m])) by (gateway)
	// /
	// sum(rate(payment_transactions_total[5m])) by (gateway)
}

// RecordPaymentRetry records one retry attempt against a gateway
func RecordPaymentRetry(gateway, operation string) {
	paymentRetriesTotal.WithLabelValues(gateway, operation).Inc()
}

// RecordRefund records a refund attempt
func RecordRefund(gateway, currency, status string, amount float64) {
	refundsTotal.WithLabelValues(gateway, status).Inc()

	// Only count successful refunds toward refunded volume
	if status == "refunded" {
		refundAmountTotal.WithLabelValues(gateway, currency).Add(amount)
	}
}

// RecordGatewaySelection records a routing decision
func RecordGatewaySelection(gateway string) {
	gatewaySelectionsTotal.WithLabelValues(gateway).Inc()
}

// RecordRoutingFailure records a routing attempt that found no eligible gateway
func RecordRoutingFailure(currency string) {
	routingFailuresTotal.WithLabelValues(currency).Inc()
}

// RecordAvailabilityCheck records the outcome of a gateway availability probe
func RecordAvailabilityCheck(gateway string, available bool) {
	result := "available"
	if !available {
		result = "unavailable"
	}
	availabilityChecksTotal.WithLabelValues(gateway, result).Inc()
}

// RecordNotification records a gateway notification applied to a transaction
func RecordNotification(status string) {
	notificationsTotal.WithLabelValues(status).Inc()
}

// RecordRateLookup records an exchange rate lookup and where it was served from
func RecordRateLookup(pair, source string) {
	rateLookupsTotal.WithLabelValues(pair, source).Inc()
}

// SetActiveTransactionLocks updates the allocated lock count
func SetActiveTransactionLocks(count float64) {
	activeTransactionLocks.Set(count)
}

// RecordTransactionsCleaned records locks released by a cleanup pass
func RecordTransactionsCleaned(count int) {
	transactionsCleanedTotal.Add(float64(count))
}
