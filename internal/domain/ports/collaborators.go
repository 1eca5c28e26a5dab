package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/payment-orchestrator/internal/domain"
)

// Validator enforces request-level business rules: account format per
// currency, positive amount within the per-currency maximum, and sufficient
// balance. Pure and non-suspending, so it takes no context.
type Validator interface {
	Validate(req *domain.PaymentRequest) bool
}

// BalanceService answers balance sufficiency checks for a source account
type BalanceService interface {
	HasSufficientBalance(account string, amount decimal.Decimal, currency domain.Currency) bool
}

// RateService resolves exchange rates between settlement currencies. Returns
// 1 when from == to. Lookups may hit a remote source and therefore suspend;
// implementations cache results (5 minutes in the default implementation).
// Unknown pairs fail with domain.ErrUnsupportedConversion.
type RateService interface {
	GetRate(ctx context.Context, from, to domain.Currency) (decimal.Decimal, error)
}
