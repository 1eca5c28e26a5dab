// Package sandbox provides an in-memory gateway with the behavior of a real
// provider: simulated latency, request rate limiting, random availability,
// and per-ID idempotent results.
package sandbox

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerline/payment-orchestrator/internal/domain"
	"github.com/ledgerline/payment-orchestrator/pkg/keylock"
	"github.com/ledgerline/payment-orchestrator/pkg/timeutil"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Outcome distribution for first executions. Samples below completedBelow
// succeed, samples below temporaryBelow fail with a retryable error, the
// rest decline for insufficient funds.
const (
	completedBelow = 0.85
	temporaryBelow = 0.95

	defaultAvailabilityRate = 0.95
)

// Config describes one sandbox gateway instance
type Config struct {
	Name              string
	Commission        decimal.Decimal   // commission rate, e.g. 0.01 for 1%
	Currencies        []domain.Currency // supported currencies
	Latency           time.Duration     // simulated provider round trip per API call
	AvailabilityRate  float64           // probability a probe reports available (default 0.95)
	RequestsPerSecond float64           // token bucket refill rate; 0 disables limiting
	Burst             int               // token bucket size; minimum 1 when limiting

	// Sampler yields outcome randomness in [0, 1). Defaults to a seeded
	// source. Tests inject a scripted sampler to pin outcomes.
	Sampler func() float64
}

// Gateway is an in-memory idempotent payment gateway. Results are fixed per
// transaction and refund ID on first execution and replayed verbatim after.
type Gateway struct {
	config  Config
	limiter *rate.Limiter
	logger  *zap.Logger

	payLocks    *keylock.KeyedMutex
	refundLocks *keylock.KeyedMutex

	mu        sync.RWMutex
	payments  map[string]*domain.PaymentResult
	refunds   map[string]*domain.RefundResult
	supported map[domain.Currency]struct{}
}

// New creates a sandbox gateway from config, filling zero-value defaults
func New(config Config, logger *zap.Logger) *Gateway {
	if config.AvailabilityRate == 0 {
		config.AvailabilityRate = defaultAvailabilityRate
	}
	if config.Sampler == nil {
		config.Sampler = defaultSampler()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if config.RequestsPerSecond > 0 {
		burst := config.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst)
	}

	supported := make(map[domain.Currency]struct{}, len(config.Currencies))
	for _, c := range config.Currencies {
		supported[c] = struct{}{}
	}

	return &Gateway{
		config:      config,
		limiter:     limiter,
		logger:      logger,
		payLocks:    keylock.New(),
		refundLocks: keylock.New(),
		payments:    make(map[string]*domain.PaymentResult),
		refunds:     make(map[string]*domain.RefundResult),
		supported:   supported,
	}
}

// defaultSampler returns a mutex-guarded sampler seeded from the clock
func defaultSampler() func() float64 {
	var mu sync.Mutex
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return func() float64 {
		mu.Lock()
		defer mu.Unlock()
		return rng.Float64()
	}
}

// Name implements Gateway.Name
func (g *Gateway) Name() string {
	return g.config.Name
}

// SupportsCurrency implements Gateway.SupportsCurrency. Pure lookup, no
// simulated latency.
func (g *Gateway) SupportsCurrency(c domain.Currency) bool {
	_, ok := g.supported[c]
	return ok
}

// IsAvailable implements Gateway.IsAvailable. Reports available with
// probability AvailabilityRate, consuming one randomness sample.
func (g *Gateway) IsAvailable(ctx context.Context) bool {
	if err := g.simulateCall(ctx); err != nil {
		return false
	}
	return g.config.Sampler() < g.config.AvailabilityRate
}

// GetCommission implements Gateway.GetCommission, returning the commission rate
func (g *Gateway) GetCommission(ctx context.Context, c domain.Currency) (decimal.Decimal, error) {
	if err := g.simulateCall(ctx); err != nil {
		return decimal.Decimal{}, err
	}
	if !g.SupportsCurrency(c) {
		return decimal.Decimal{}, fmt.Errorf("%s: currency %s is not supported", g.config.Name, c)
	}
	return g.config.Commission, nil
}

// ProcessPayment implements IdempotentGateway.ProcessPayment. The first
// execution for a transaction ID fixes the result; replays return it
// verbatim without consuming randomness.
func (g *Gateway) ProcessPayment(ctx context.Context, req *domain.PaymentRequest, transactionID string) (*domain.PaymentResult, error) {
	if err := g.simulateCall(ctx); err != nil {
		return nil, err
	}

	// Read before lock: recorded outcomes replay without waiting
	if result, ok := g.payment(transactionID); ok {
		return result, nil
	}

	unlock, err := g.payLocks.Lock(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// Read after lock: another caller may have executed while we waited
	if result, ok := g.payment(transactionID); ok {
		return result, nil
	}

	result := g.executePayment(req, transactionID)

	g.mu.Lock()
	g.payments[transactionID] = result
	g.mu.Unlock()

	g.logger.Debug("Sandbox payment executed",
		zap.String("gateway", g.config.Name),
		zap.String("transaction_id", transactionID),
		zap.String("status", string(result.Status)),
		zap.String("error_code", result.ErrorCode))

	return result, nil
}

// executePayment decides the outcome of a first-time payment. Unsupported
// currencies short-circuit before a randomness sample is consumed.
func (g *Gateway) executePayment(req *domain.PaymentRequest, transactionID string) *domain.PaymentResult {
	now := timeutil.Now()

	if !g.SupportsCurrency(req.Currency) {
		return &domain.PaymentResult{
			IsSuccess:    false,
			Status:       domain.PaymentStatusFailed,
			ErrorCode:    domain.ErrCodeUnsupportedCurrency,
			ErrorMessage: fmt.Sprintf("currency %s is not supported by %s", req.Currency, g.config.Name),
			ProcessedAt:  now,
			IsRetryable:  false,
		}
	}

	sample := g.config.Sampler()
	switch {
	case sample < completedBelow:
		fee := req.Amount.Mul(g.config.Commission)
		return &domain.PaymentResult{
			IsSuccess:            true,
			GatewayTransactionID: g.config.Name + "_" + uuid.NewString(),
			Status:               domain.PaymentStatusCompleted,
			ProcessedAt:          now,
			ActualAmount:         req.Amount.Sub(fee),
			ProviderReference:    uuid.NewString(),
		}
	case sample < temporaryBelow:
		return &domain.PaymentResult{
			IsSuccess:    false,
			Status:       domain.PaymentStatusFailed,
			ErrorCode:    domain.ErrCodeTemporaryError,
			ErrorMessage: "temporary gateway error, retry later",
			ProcessedAt:  now,
			IsRetryable:  true,
		}
	default:
		return &domain.PaymentResult{
			IsSuccess:    false,
			Status:       domain.PaymentStatusFailed,
			ErrorCode:    domain.ErrCodeInsufficientFunds,
			ErrorMessage: "insufficient funds on source account",
			ProcessedAt:  now,
			IsRetryable:  false,
		}
	}
}

// GetPaymentStatus implements IdempotentGateway.GetPaymentStatus
func (g *Gateway) GetPaymentStatus(ctx context.Context, transactionID string) (*domain.PaymentResult, error) {
	if err := g.simulateCall(ctx); err != nil {
		return nil, err
	}

	if result, ok := g.payment(transactionID); ok {
		return result, nil
	}
	return &domain.PaymentResult{
		IsSuccess:    false,
		Status:       domain.PaymentStatusFailed,
		ErrorCode:    domain.ErrCodeTransactionNotFound,
		ErrorMessage: fmt.Sprintf("transaction %s is unknown to %s", transactionID, g.config.Name),
		ProcessedAt:  timeutil.Now(),
	}, nil
}

// Refund implements IdempotentGateway.Refund, keyed on refundID
func (g *Gateway) Refund(ctx context.Context, transactionID string, amount decimal.Decimal, refundID string) (*domain.RefundResult, error) {
	if err := g.simulateCall(ctx); err != nil {
		return nil, err
	}

	if result, ok := g.refund(refundID); ok {
		return result, nil
	}

	unlock, err := g.refundLocks.Lock(ctx, refundID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if result, ok := g.refund(refundID); ok {
		return result, nil
	}

	result := g.executeRefund(transactionID, amount)

	g.mu.Lock()
	g.refunds[refundID] = result
	g.mu.Unlock()

	g.logger.Debug("Sandbox refund executed",
		zap.String("gateway", g.config.Name),
		zap.String("refund_id", refundID),
		zap.String("transaction_id", transactionID),
		zap.String("status", string(result.Status)),
		zap.String("error_code", result.ErrorCode))

	return result, nil
}

// executeRefund validates a first-time refund against the recorded payment
func (g *Gateway) executeRefund(transactionID string, amount decimal.Decimal) *domain.RefundResult {
	now := timeutil.Now()

	original, ok := g.payment(transactionID)
	if !ok {
		return &domain.RefundResult{
			IsSuccess:             false,
			Status:                domain.RefundStatusFailed,
			ErrorCode:             domain.ErrCodeTransactionNotFound,
			ErrorMessage:          fmt.Sprintf("transaction %s is unknown to %s", transactionID, g.config.Name),
			ProcessedAt:           now,
			OriginalTransactionID: transactionID,
		}
	}
	if original.Status != domain.PaymentStatusCompleted {
		return &domain.RefundResult{
			IsSuccess:             false,
			Status:                domain.RefundStatusFailed,
			ErrorCode:             domain.ErrCodeNotRefundable,
			ErrorMessage:          fmt.Sprintf("transaction %s is %s, not refundable", transactionID, original.Status),
			ProcessedAt:           now,
			OriginalTransactionID: transactionID,
		}
	}
	if amount.GreaterThan(original.ActualAmount) {
		return &domain.RefundResult{
			IsSuccess:             false,
			Status:                domain.RefundStatusFailed,
			ErrorCode:             domain.ErrCodeRefundExceedsAmount,
			ErrorMessage:          fmt.Sprintf("refund of %s exceeds settled amount %s", amount, original.ActualAmount),
			ProcessedAt:           now,
			OriginalTransactionID: transactionID,
		}
	}

	return &domain.RefundResult{
		IsSuccess:             true,
		GatewayRefundID:       g.config.Name + "_" + uuid.NewString(),
		Status:                domain.RefundStatusCompleted,
		ProcessedAt:           now,
		RefundedAmount:        amount,
		OriginalTransactionID: transactionID,
	}
}

// GetRefundStatus implements IdempotentGateway.GetRefundStatus
func (g *Gateway) GetRefundStatus(ctx context.Context, refundID string) (*domain.RefundResult, error) {
	if err := g.simulateCall(ctx); err != nil {
		return nil, err
	}

	if result, ok := g.refund(refundID); ok {
		return result, nil
	}
	return &domain.RefundResult{
		IsSuccess:    false,
		Status:       domain.RefundStatusFailed,
		ErrorCode:    domain.ErrCodeRefundNotFound,
		ErrorMessage: fmt.Sprintf("refund %s is unknown to %s", refundID, g.config.Name),
		ProcessedAt:  timeutil.Now(),
	}, nil
}

// CancelPayment implements IdempotentGateway.CancelPayment. Only payments
// still Pending or Processing can be cancelled; the sandbox settles payments
// synchronously, so in practice cancellation reports the settled status.
func (g *Gateway) CancelPayment(ctx context.Context, transactionID string) (*domain.PaymentResult, error) {
	if err := g.simulateCall(ctx); err != nil {
		return nil, err
	}

	unlock, err := g.payLocks.Lock(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	original, ok := g.payment(transactionID)
	if !ok {
		return &domain.PaymentResult{
			IsSuccess:    false,
			Status:       domain.PaymentStatusFailed,
			ErrorCode:    domain.ErrCodeTransactionNotFound,
			ErrorMessage: fmt.Sprintf("transaction %s is unknown to %s", transactionID, g.config.Name),
			ProcessedAt:  timeutil.Now(),
		}, nil
	}

	if original.Status == domain.PaymentStatusPending || original.Status == domain.PaymentStatusProcessing {
		cancelled := *original
		cancelled.IsSuccess = false
		cancelled.Status = domain.PaymentStatusCancelled
		cancelled.ProcessedAt = timeutil.Now()

		g.mu.Lock()
		g.payments[transactionID] = &cancelled
		g.mu.Unlock()

		return &cancelled, nil
	}

	// Settled payments keep their outcome; report it with CANNOT_CANCEL
	refused := *original
	refused.IsSuccess = false
	refused.ErrorCode = domain.ErrCodeCannotCancel
	refused.ErrorMessage = fmt.Sprintf("transaction %s is already %s", transactionID, original.Status)
	return &refused, nil
}

// simulateCall waits for rate-limiter admission and sleeps the configured
// latency, both honoring ctx cancellation
func (g *Gateway) simulateCall(ctx context.Context) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}
	if g.config.Latency > 0 {
		timer := time.NewTimer(g.config.Latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

func (g *Gateway) payment(transactionID string) (*domain.PaymentResult, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	result, ok := g.payments[transactionID]
	return result, ok
}

func (g *Gateway) refund(refundID string) (*domain.RefundResult, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	result, ok := g.refunds[refundID]
	return result, ok
}
