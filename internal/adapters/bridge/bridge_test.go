package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ledgerline/payment-orchestrator/internal/adapters/sandbox"
	"github.com/ledgerline/payment-orchestrator/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubLegacy is a configurable legacy gateway for adapter tests
type stubLegacy struct {
	name       string
	currencies map[domain.Currency]bool
	available  bool
	commission decimal.Decimal
	processOK  bool
	processErr error
	refundOK   bool
	refundErr  error

	mu           sync.Mutex
	ProcessCalls int
	RefundCalls  int
}

func (s *stubLegacy) Name() string                            { return s.name }
func (s *stubLegacy) SupportsCurrency(c domain.Currency) bool { return s.currencies[c] }
func (s *stubLegacy) IsAvailable(ctx context.Context) bool    { return s.available }

func (s *stubLegacy) GetCommission(ctx context.Context, c domain.Currency) (decimal.Decimal, error) {
	return s.commission, nil
}

func (s *stubLegacy) ProcessPayment(ctx context.Context, req *domain.PaymentRequest) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ProcessCalls++
	return s.processOK, s.processErr
}

func (s *stubLegacy) Refund(ctx context.Context, transactionID string, amount decimal.Decimal) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RefundCalls++
	return s.refundOK, s.refundErr
}

// stubModern records the IDs the reverse adapter synthesizes
type stubModern struct {
	name         string
	payResult    *domain.PaymentResult
	payErr       error
	refundResult *domain.RefundResult
	refundErr    error

	mu        sync.Mutex
	payIDs    []string
	refundIDs []string
}

func (s *stubModern) Name() string                            { return s.name }
func (s *stubModern) SupportsCurrency(c domain.Currency) bool { return true }
func (s *stubModern) IsAvailable(ctx context.Context) bool    { return true }

func (s *stubModern) GetCommission(ctx context.Context, c domain.Currency) (decimal.Decimal, error) {
	return decimal.Decimal{}, nil
}

func (s *stubModern) ProcessPayment(ctx context.Context, req *domain.PaymentRequest, transactionID string) (*domain.PaymentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payIDs = append(s.payIDs, transactionID)
	return s.payResult, s.payErr
}

func (s *stubModern) GetPaymentStatus(ctx context.Context, transactionID string) (*domain.PaymentResult, error) {
	return s.payResult, s.payErr
}

func (s *stubModern) Refund(ctx context.Context, transactionID string, amount decimal.Decimal, refundID string) (*domain.RefundResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refundIDs = append(s.refundIDs, refundID)
	return s.refundResult, s.refundErr
}

func (s *stubModern) GetRefundStatus(ctx context.Context, refundID string) (*domain.RefundResult, error) {
	return s.refundResult, s.refundErr
}

func (s *stubModern) CancelPayment(ctx context.Context, transactionID string) (*domain.PaymentResult, error) {
	return s.payResult, s.payErr
}

func legacyStub() *stubLegacy {
	return &stubLegacy{
		name:       "legacy_a",
		currencies: map[domain.Currency]bool{domain.CurrencyUSD: true},
		available:  true,
		commission: decimal.RequireFromString("0.02"),
		processOK:  true,
		refundOK:   true,
	}
}

func paymentRequest() *domain.PaymentRequest {
	return &domain.PaymentRequest{
		Amount:             decimal.RequireFromString("100"),
		Currency:           domain.CurrencyUSD,
		SourceAccount:      "1234567890",
		DestinationAccount: "0987654321",
	}
}

func TestIdempotencyAdapter_SuccessMapping(t *testing.T) {
	adapter := NewIdempotencyAdapter(legacyStub())

	result, err := adapter.ProcessPayment(context.Background(), paymentRequest(), "T1")
	require.NoError(t, err)

	assert.True(t, result.IsSuccess)
	assert.Equal(t, domain.PaymentStatusCompleted, result.Status)
	assert.Equal(t, "legacy_a_T1", result.GatewayTransactionID)
	assert.False(t, result.ProcessedAt.IsZero())
	assert.Equal(t, time.UTC, result.ProcessedAt.Location())
	assert.Empty(t, result.ErrorCode)
}

func TestIdempotencyAdapter_DeclineMapping(t *testing.T) {
	legacy := legacyStub()
	legacy.processOK = false
	adapter := NewIdempotencyAdapter(legacy)

	result, err := adapter.ProcessPayment(context.Background(), paymentRequest(), "T1")
	require.NoError(t, err)

	assert.False(t, result.IsSuccess)
	assert.Equal(t, domain.PaymentStatusFailed, result.Status)
	assert.Equal(t, domain.ErrCodeLegacyGatewayError, result.ErrorCode)
	assert.True(t, result.IsRetryable)
}

func TestIdempotencyAdapter_ExceptionMapping(t *testing.T) {
	legacy := legacyStub()
	legacy.processErr = errors.New("connection reset")
	adapter := NewIdempotencyAdapter(legacy)

	result, err := adapter.ProcessPayment(context.Background(), paymentRequest(), "T1")
	require.NoError(t, err)

	assert.False(t, result.IsSuccess)
	assert.Equal(t, domain.ErrCodeLegacyGatewayPanic, result.ErrorCode)
	assert.Equal(t, "connection reset", result.ErrorMessage)
	assert.True(t, result.IsRetryable)
}

func TestIdempotencyAdapter_ContextErrorsPassThrough(t *testing.T) {
	legacy := legacyStub()
	legacy.processErr = context.Canceled
	adapter := NewIdempotencyAdapter(legacy)

	result, err := adapter.ProcessPayment(context.Background(), paymentRequest(), "T1")
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, context.Canceled))

	legacy.refundErr = context.DeadlineExceeded
	refund, err := adapter.Refund(context.Background(), "T1", decimal.RequireFromString("10"), "R1")
	assert.Nil(t, refund)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestIdempotencyAdapter_NoResultCaching(t *testing.T) {
	legacy := legacyStub()
	adapter := NewIdempotencyAdapter(legacy)
	ctx := context.Background()

	first, err := adapter.ProcessPayment(ctx, paymentRequest(), "T1")
	require.NoError(t, err)
	second, err := adapter.ProcessPayment(ctx, paymentRequest(), "T1")
	require.NoError(t, err)

	assert.Equal(t, 2, legacy.ProcessCalls, "the adapter supplies the shape, not the guarantee")
	assert.NotSame(t, first, second)
}

func TestIdempotencyAdapter_UnsupportedOperations(t *testing.T) {
	adapter := NewIdempotencyAdapter(legacyStub())
	ctx := context.Background()

	status, err := adapter.GetPaymentStatus(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, domain.ErrCodeNotSupported, status.ErrorCode)
	assert.False(t, status.IsRetryable)

	refundStatus, err := adapter.GetRefundStatus(ctx, "R1")
	require.NoError(t, err)
	assert.Equal(t, domain.ErrCodeNotSupported, refundStatus.ErrorCode)

	cancel, err := adapter.CancelPayment(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, domain.ErrCodeNotSupported, cancel.ErrorCode)
	assert.False(t, cancel.IsRetryable)
}

func TestIdempotencyAdapter_RefundMappings(t *testing.T) {
	tests := []struct {
		name      string
		refundOK  bool
		refundErr error
		success   bool
		errorCode string
	}{
		{"refund accepted", true, nil, true, ""},
		{"refund declined", false, nil, false, domain.ErrCodeLegacyGatewayError},
		{"refund error", false, errors.New("boom"), false, domain.ErrCodeLegacyGatewayPanic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			legacy := legacyStub()
			legacy.refundOK = tt.refundOK
			legacy.refundErr = tt.refundErr
			adapter := NewIdempotencyAdapter(legacy)

			result, err := adapter.Refund(context.Background(), "T1", decimal.RequireFromString("25"), "R1")
			require.NoError(t, err)

			assert.Equal(t, tt.success, result.IsSuccess)
			assert.Equal(t, tt.errorCode, result.ErrorCode)
			assert.Equal(t, "T1", result.OriginalTransactionID)
			if tt.success {
				assert.Equal(t, "legacy_a_R1", result.GatewayRefundID)
				assert.True(t, result.RefundedAmount.Equal(decimal.RequireFromString("25")))
			}
		})
	}
}

func TestIdempotencyAdapter_DelegatesGatewayIdentity(t *testing.T) {
	legacy := legacyStub()
	adapter := NewIdempotencyAdapter(legacy)
	ctx := context.Background()

	assert.Equal(t, "legacy_a", adapter.Name())
	assert.True(t, adapter.SupportsCurrency(domain.CurrencyUSD))
	assert.False(t, adapter.SupportsCurrency(domain.CurrencyEUR))
	assert.True(t, adapter.IsAvailable(ctx))

	commission, err := adapter.GetCommission(ctx, domain.CurrencyUSD)
	require.NoError(t, err)
	assert.True(t, commission.Equal(decimal.RequireFromString("0.02")))
}

func TestLegacyAdapter_FreshIDsPerCall(t *testing.T) {
	modern := &stubModern{
		name:         "modern_a",
		payResult:    &domain.PaymentResult{IsSuccess: true},
		refundResult: &domain.RefundResult{IsSuccess: true},
	}
	adapter := NewLegacyAdapter(modern)
	ctx := context.Background()

	_, err := adapter.ProcessPayment(ctx, paymentRequest())
	require.NoError(t, err)
	_, err = adapter.ProcessPayment(ctx, paymentRequest())
	require.NoError(t, err)

	require.Len(t, modern.payIDs, 2)
	assert.NotEmpty(t, modern.payIDs[0])
	assert.NotEmpty(t, modern.payIDs[1])
	assert.NotEqual(t, modern.payIDs[0], modern.payIDs[1])

	_, err = adapter.Refund(ctx, "T1", decimal.RequireFromString("10"))
	require.NoError(t, err)
	_, err = adapter.Refund(ctx, "T1", decimal.RequireFromString("10"))
	require.NoError(t, err)

	require.Len(t, modern.refundIDs, 2)
	assert.NotEqual(t, modern.refundIDs[0], modern.refundIDs[1])
}

func TestLegacyAdapter_ReturnsOutcome(t *testing.T) {
	modern := &stubModern{
		name:         "modern_a",
		payResult:    &domain.PaymentResult{IsSuccess: false},
		refundResult: &domain.RefundResult{IsSuccess: false},
	}
	adapter := NewLegacyAdapter(modern)
	ctx := context.Background()

	ok, err := adapter.ProcessPayment(ctx, paymentRequest())
	require.NoError(t, err)
	assert.False(t, ok)

	modern.payErr = errors.New("gateway down")
	_, err = adapter.ProcessPayment(ctx, paymentRequest())
	assert.EqualError(t, err, "gateway down")

	ok, err = adapter.Refund(ctx, "T1", decimal.RequireFromString("10"))
	require.NoError(t, err)
	assert.False(t, ok)
}

// Wrapping a modern gateway in the legacy contract discards idempotency:
// repeating the same logical payment may produce different outcomes.
func TestLegacyAdapter_LosesIdempotency(t *testing.T) {
	gw := sandbox.New(sandbox.Config{
		Name:       "sandbox_a",
		Commission: decimal.RequireFromString("0.01"),
		Currencies: []domain.Currency{domain.CurrencyUSD},
		Sampler: func() func() float64 {
			var mu sync.Mutex
			samples := []float64{0.10, 0.90}
			i := 0
			return func() float64 {
				mu.Lock()
				defer mu.Unlock()
				s := samples[i%len(samples)]
				i++
				return s
			}
		}(),
	}, nil)

	adapter := NewLegacyAdapter(gw)
	ctx := context.Background()

	first, err := adapter.ProcessPayment(ctx, paymentRequest())
	require.NoError(t, err)
	second, err := adapter.ProcessPayment(ctx, paymentRequest())
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
}
