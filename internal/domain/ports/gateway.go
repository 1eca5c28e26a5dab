package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/payment-orchestrator/internal/domain"
)

// Gateway is the capability set shared by both contract shapes. Currency
// support is static configuration and never suspends; availability and
// commission are live provider calls.
type Gateway interface {
	// Name returns the unique registration name of the gateway
	Name() string

	// SupportsCurrency reports whether the gateway settles in the given currency
	SupportsCurrency(currency domain.Currency) bool

	// IsAvailable probes the provider; false excludes the gateway from routing
	IsAvailable(ctx context.Context) bool

	// GetCommission returns the fractional fee for the currency, in [0, 1)
	GetCommission(ctx context.Context, currency domain.Currency) (decimal.Decimal, error)
}

// PaymentGateway is the legacy contract shape: boolean outcomes, no
// idempotency keys, no status lookup. It remains in place for providers that
// have not yet exposed idempotent APIs; the router pool holds this shape.
type PaymentGateway interface {
	Gateway

	// ProcessPayment executes the payment; true means the provider accepted it
	ProcessPayment(ctx context.Context, req *domain.PaymentRequest) (bool, error)

	// Refund returns funds for a previously processed payment
	Refund(ctx context.Context, transactionID string, amount decimal.Decimal) (bool, error)
}

// IdempotentGateway is the modern contract shape. Every mutating operation is
// keyed on a caller-supplied ID: for a given (instance, transactionID) the
// first completed ProcessPayment fixes the result and all later calls,
// sequential or concurrent, return a value-equal result including
// ProcessedAt. The same holds for Refund keyed on refundID. New gateway
// integrations implement this shape directly.
type IdempotentGateway interface {
	Gateway

	// ProcessPayment executes the payment exactly once per transactionID
	ProcessPayment(ctx context.Context, req *domain.PaymentRequest, transactionID string) (*domain.PaymentResult, error)

	// GetPaymentStatus returns the recorded result; unknown IDs report
	// FAILED with error code TRANSACTION_NOT_FOUND
	GetPaymentStatus(ctx context.Context, transactionID string) (*domain.PaymentResult, error)

	// Refund returns funds exactly once per refundID
	Refund(ctx context.Context, transactionID string, amount decimal.Decimal, refundID string) (*domain.RefundResult, error)

	// GetRefundStatus returns the recorded refund result; unknown IDs report
	// FAILED with error code REFUND_NOT_FOUND
	GetRefundStatus(ctx context.Context, refundID string) (*domain.RefundResult, error)

	// CancelPayment voids a payment still in PENDING or PROCESSING; in any
	// other status the cancellation is reported ineffective with CANNOT_CANCEL
	CancelPayment(ctx context.Context, transactionID string) (*domain.PaymentResult, error)
}
