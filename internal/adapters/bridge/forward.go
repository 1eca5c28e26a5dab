// Package bridge adapts between the legacy boolean gateway contract and the
// modern idempotent contract, in both directions.
package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/ledgerline/payment-orchestrator/internal/domain"
	"github.com/ledgerline/payment-orchestrator/internal/domain/ports"
	"github.com/ledgerline/payment-orchestrator/pkg/timeutil"
	"github.com/shopspring/decimal"
)

// IdempotencyAdapter wraps a legacy gateway behind the modern contract. It
// supplies the shape of the modern API, not its guarantee: results are never
// cached, so a replayed transaction ID re-executes on the wrapped gateway.
// Callers that need true idempotency put the transaction log in front.
type IdempotencyAdapter struct {
	legacy ports.PaymentGateway
}

// NewIdempotencyAdapter wraps a legacy gateway in the modern contract
func NewIdempotencyAdapter(legacy ports.PaymentGateway) *IdempotencyAdapter {
	return &IdempotencyAdapter{legacy: legacy}
}

// Name implements Gateway.Name
func (a *IdempotencyAdapter) Name() string {
	return a.legacy.Name()
}

// SupportsCurrency implements Gateway.SupportsCurrency
func (a *IdempotencyAdapter) SupportsCurrency(c domain.Currency) bool {
	return a.legacy.SupportsCurrency(c)
}

// IsAvailable implements Gateway.IsAvailable
func (a *IdempotencyAdapter) IsAvailable(ctx context.Context) bool {
	return a.legacy.IsAvailable(ctx)
}

// GetCommission implements Gateway.GetCommission
func (a *IdempotencyAdapter) GetCommission(ctx context.Context, c domain.Currency) (decimal.Decimal, error) {
	return a.legacy.GetCommission(ctx, c)
}

// ProcessPayment implements IdempotentGateway.ProcessPayment. Success maps to
// Completed with a synthesized gateway transaction ID, a declined payment to
// LEGACY_GATEWAY_ERROR, and a returned error to LEGACY_GATEWAY_EXCEPTION;
// both failure shapes are retryable. Context cancellation is the caller's
// signal, not a gateway outcome, and passes through unmapped.
func (a *IdempotencyAdapter) ProcessPayment(ctx context.Context, req *domain.PaymentRequest, transactionID string) (*domain.PaymentResult, error) {
	ok, err := a.legacy.ProcessPayment(ctx, req)
	now := timeutil.Now()

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return &domain.PaymentResult{
			IsSuccess:    false,
			Status:       domain.PaymentStatusFailed,
			ErrorCode:    domain.ErrCodeLegacyGatewayPanic,
			ErrorMessage: err.Error(),
			ProcessedAt:  now,
			IsRetryable:  true,
		}, nil
	}
	if !ok {
		return &domain.PaymentResult{
			IsSuccess:    false,
			Status:       domain.PaymentStatusFailed,
			ErrorCode:    domain.ErrCodeLegacyGatewayError,
			ErrorMessage: "legacy gateway declined the payment",
			ProcessedAt:  now,
			IsRetryable:  true,
		}, nil
	}

	return &domain.PaymentResult{
		IsSuccess:            true,
		GatewayTransactionID: fmt.Sprintf("%s_%s", a.legacy.Name(), transactionID),
		Status:               domain.PaymentStatusCompleted,
		ProcessedAt:          now,
	}, nil
}

// GetPaymentStatus implements IdempotentGateway.GetPaymentStatus. Legacy
// gateways cannot report status.
func (a *IdempotencyAdapter) GetPaymentStatus(ctx context.Context, transactionID string) (*domain.PaymentResult, error) {
	return &domain.PaymentResult{
		IsSuccess:    false,
		Status:       domain.PaymentStatusFailed,
		ErrorCode:    domain.ErrCodeNotSupported,
		ErrorMessage: fmt.Sprintf("legacy gateway %s cannot report payment status", a.legacy.Name()),
		ProcessedAt:  timeutil.Now(),
		IsRetryable:  false,
	}, nil
}

// Refund implements IdempotentGateway.Refund with the same outcome mapping
// as ProcessPayment
func (a *IdempotencyAdapter) Refund(ctx context.Context, transactionID string, amount decimal.Decimal, refundID string) (*domain.RefundResult, error) {
	ok, err := a.legacy.Refund(ctx, transactionID, amount)
	now := timeutil.Now()

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return &domain.RefundResult{
			IsSuccess:             false,
			Status:                domain.RefundStatusFailed,
			ErrorCode:             domain.ErrCodeLegacyGatewayPanic,
			ErrorMessage:          err.Error(),
			ProcessedAt:           now,
			OriginalTransactionID: transactionID,
		}, nil
	}
	if !ok {
		return &domain.RefundResult{
			IsSuccess:             false,
			Status:                domain.RefundStatusFailed,
			ErrorCode:             domain.ErrCodeLegacyGatewayError,
			ErrorMessage:          "legacy gateway declined the refund",
			ProcessedAt:           now,
			OriginalTransactionID: transactionID,
		}, nil
	}

	return &domain.RefundResult{
		IsSuccess:             true,
		GatewayRefundID:       fmt.Sprintf("%s_%s", a.legacy.Name(), refundID),
		Status:                domain.RefundStatusCompleted,
		ProcessedAt:           now,
		RefundedAmount:        amount,
		OriginalTransactionID: transactionID,
	}, nil
}

// GetRefundStatus implements IdempotentGateway.GetRefundStatus. Legacy
// gateways cannot report status.
func (a *IdempotencyAdapter) GetRefundStatus(ctx context.Context, refundID string) (*domain.RefundResult, error) {
	return &domain.RefundResult{
		IsSuccess:    false,
		Status:       domain.RefundStatusFailed,
		ErrorCode:    domain.ErrCodeNotSupported,
		ErrorMessage: fmt.Sprintf("legacy gateway %s cannot report refund status", a.legacy.Name()),
		ProcessedAt:  timeutil.Now(),
	}, nil
}

// CancelPayment implements IdempotentGateway.CancelPayment. Legacy gateways
// cannot cancel.
func (a *IdempotencyAdapter) CancelPayment(ctx context.Context, transactionID string) (*domain.PaymentResult, error) {
	return &domain.PaymentResult{
		IsSuccess:    false,
		Status:       domain.PaymentStatusFailed,
		ErrorCode:    domain.ErrCodeNotSupported,
		ErrorMessage: fmt.Sprintf("legacy gateway %s cannot cancel payments", a.legacy.Name()),
		ProcessedAt:  timeutil.Now(),
		IsRetryable:  false,
	}, nil
}
