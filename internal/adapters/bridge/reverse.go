package bridge

import (
	"context"

	"github.com/google/uuid"
	"github.com/ledgerline/payment-orchestrator/internal/domain"
	"github.com/ledgerline/payment-orchestrator/internal/domain/ports"
	"github.com/shopspring/decimal"
)

// LegacyAdapter exposes a modern gateway through the legacy boolean contract.
// Every call synthesizes a fresh ID, so legacy callers lose idempotency at
// this boundary. This is the only place the repository mints IDs for gateway
// calls; everywhere else IDs come from the caller.
type LegacyAdapter struct {
	modern ports.IdempotentGateway
}

// NewLegacyAdapter wraps a modern gateway in the legacy contract
func NewLegacyAdapter(modern ports.IdempotentGateway) *LegacyAdapter {
	return &LegacyAdapter{modern: modern}
}

// Name implements Gateway.Name
func (a *LegacyAdapter) Name() string {
	return a.modern.Name()
}

// SupportsCurrency implements Gateway.SupportsCurrency
func (a *LegacyAdapter) SupportsCurrency(c domain.Currency) bool {
	return a.modern.SupportsCurrency(c)
}

// IsAvailable implements Gateway.IsAvailable
func (a *LegacyAdapter) IsAvailable(ctx context.Context) bool {
	return a.modern.IsAvailable(ctx)
}

// GetCommission implements Gateway.GetCommission
func (a *LegacyAdapter) GetCommission(ctx context.Context, c domain.Currency) (decimal.Decimal, error) {
	return a.modern.GetCommission(ctx, c)
}

// ProcessPayment implements PaymentGateway.ProcessPayment under a fresh
// transaction ID per call
func (a *LegacyAdapter) ProcessPayment(ctx context.Context, req *domain.PaymentRequest) (bool, error) {
	result, err := a.modern.ProcessPayment(ctx, req, uuid.NewString())
	if err != nil {
		return false, err
	}
	return result.IsSuccess, nil
}

// Refund implements PaymentGateway.Refund under a fresh refund ID per call
func (a *LegacyAdapter) Refund(ctx context.Context, transactionID string, amount decimal.Decimal) (bool, error) {
	result, err := a.modern.Refund(ctx, transactionID, amount, uuid.NewString())
	if err != nil {
		return false, err
	}
	return result.IsSuccess, nil
}
