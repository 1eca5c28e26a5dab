// Package guard decorates gateways with a circuit breaker so the router
// stops selecting a gateway that keeps failing.
package guard

import (
	"context"

	"github.com/ledgerline/payment-orchestrator/internal/domain"
	"github.com/ledgerline/payment-orchestrator/internal/domain/ports"
	"github.com/ledgerline/payment-orchestrator/pkg/resilience"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GatewayGuard wraps a gateway and feeds payment and refund outcomes into a
// circuit breaker. While the breaker refuses calls the guard reports the
// gateway unavailable, which removes it from routing without touching the
// router itself. Declined payments are business outcomes and do not trip
// the breaker; only errors do.
type GatewayGuard struct {
	inner   ports.PaymentGateway
	breaker *resilience.CircuitBreaker
	logger  *zap.Logger
}

// New wraps a gateway with a circuit breaker
func New(inner ports.PaymentGateway, config resilience.BreakerConfig, logger *zap.Logger) *GatewayGuard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GatewayGuard{
		inner:   inner,
		breaker: resilience.NewCircuitBreaker(config),
		logger:  logger,
	}
}

// Name implements Gateway.Name
func (g *GatewayGuard) Name() string {
	return g.inner.Name()
}

// SupportsCurrency implements Gateway.SupportsCurrency
func (g *GatewayGuard) SupportsCurrency(c domain.Currency) bool {
	return g.inner.SupportsCurrency(c)
}

// IsAvailable implements Gateway.IsAvailable. A tripped breaker answers
// before the gateway is probed.
func (g *GatewayGuard) IsAvailable(ctx context.Context) bool {
	if !g.breaker.Ready() {
		g.logger.Debug("Gateway suppressed by circuit breaker",
			zap.String("gateway", g.inner.Name()),
			zap.String("state", g.breaker.State().String()))
		return false
	}
	return g.inner.IsAvailable(ctx)
}

// GetCommission implements Gateway.GetCommission. Commission lookups do not
// count toward breaker state.
func (g *GatewayGuard) GetCommission(ctx context.Context, c domain.Currency) (decimal.Decimal, error) {
	return g.inner.GetCommission(ctx, c)
}

// ProcessPayment implements PaymentGateway.ProcessPayment through the breaker
func (g *GatewayGuard) ProcessPayment(ctx context.Context, req *domain.PaymentRequest) (bool, error) {
	var ok bool
	err := g.breaker.Call(func() error {
		var callErr error
		ok, callErr = g.inner.ProcessPayment(ctx, req)
		return callErr
	})
	if err != nil {
		return false, err
	}
	return ok, nil
}

// Refund implements PaymentGateway.Refund through the breaker
func (g *GatewayGuard) Refund(ctx context.Context, transactionID string, amount decimal.Decimal) (bool, error) {
	var ok bool
	err := g.breaker.Call(func() error {
		var callErr error
		ok, callErr = g.inner.Refund(ctx, transactionID, amount)
		return callErr
	})
	if err != nil {
		return false, err
	}
	return ok, nil
}

// State exposes the breaker state for logs and health reporting
func (g *GatewayGuard) State() resilience.CircuitState {
	return g.breaker.State()
}
