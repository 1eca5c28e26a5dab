package ports

import (
	"context"

	"github.com/ledgerline/payment-orchestrator/internal/domain"
)

// GatewayRouter selects gateways from a registered pool. Neither method
// mutates the pool.
type GatewayRouter interface {
	// SelectOptimal returns the available, currency-supporting gateway with
	// the lowest commission for the request's currency, ties broken by
	// registration order. Fails with domain.ErrNoGatewayAvailable when the
	// candidate set is empty.
	SelectOptimal(ctx context.Context, req *domain.PaymentRequest) (PaymentGateway, error)

	// GetByName is an exact-match lookup; it never suspends
	GetByName(name string) (PaymentGateway, bool)
}
