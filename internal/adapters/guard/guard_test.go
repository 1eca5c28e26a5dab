package guard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ledgerline/payment-orchestrator/internal/domain"
	"github.com/ledgerline/payment-orchestrator/pkg/resilience"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGateway struct {
	name       string
	available  bool
	processOK  bool
	processErr error
	refundOK   bool
	refundErr  error

	mu           sync.Mutex
	ProcessCalls int
	RefundCalls  int
	AvailCalls   int
}

func (s *stubGateway) Name() string                          { return s.name }
func (s *stubGateway) SupportsCurrency(domain.Currency) bool { return true }

func (s *stubGateway) IsAvailable(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AvailCalls++
	return s.available
}

func (s *stubGateway) GetCommission(ctx context.Context, c domain.Currency) (decimal.Decimal, error) {
	return decimal.RequireFromString("0.01"), nil
}

func (s *stubGateway) ProcessPayment(ctx context.Context, req *domain.PaymentRequest) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ProcessCalls++
	return s.processOK, s.processErr
}

func (s *stubGateway) Refund(ctx context.Context, transactionID string, amount decimal.Decimal) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RefundCalls++
	return s.refundOK, s.refundErr
}

func request() *domain.PaymentRequest {
	return &domain.PaymentRequest{
		Amount:             decimal.RequireFromString("100"),
		Currency:           domain.CurrencyUSD,
		SourceAccount:      "1234567890",
		DestinationAccount: "0987654321",
	}
}

func TestGuard_PassThroughWhenHealthy(t *testing.T) {
	inner := &stubGateway{name: "gw_a", available: true, processOK: true, refundOK: true}
	g := New(inner, resilience.DefaultBreakerConfig(), nil)
	ctx := context.Background()

	assert.Equal(t, "gw_a", g.Name())
	assert.True(t, g.SupportsCurrency(domain.CurrencyUSD))
	assert.True(t, g.IsAvailable(ctx))

	ok, err := g.ProcessPayment(ctx, request())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.Refund(ctx, "T1", decimal.RequireFromString("10"))
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, resilience.StateClosed, g.State())
}

func TestGuard_OpensAfterConsecutiveErrors(t *testing.T) {
	inner := &stubGateway{name: "gw_a", available: true, processErr: errors.New("connection refused")}
	g := New(inner, resilience.BreakerConfig{
		MaxFailures: 2,
		Timeout:     time.Minute,
		MaxProbes:   1,
	}, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := g.ProcessPayment(ctx, request())
		require.Error(t, err)
	}
	assert.Equal(t, resilience.StateOpen, g.State())
	assert.Equal(t, 2, inner.ProcessCalls)

	// Open breaker suppresses availability without probing the gateway
	assert.False(t, g.IsAvailable(ctx))
	assert.Equal(t, 0, inner.AvailCalls)

	// And rejects calls before they reach the gateway
	_, err := g.ProcessPayment(ctx, request())
	assert.True(t, errors.Is(err, resilience.ErrCircuitOpen))
	assert.Equal(t, 2, inner.ProcessCalls)
}

func TestGuard_DeclinesDoNotTripBreaker(t *testing.T) {
	inner := &stubGateway{name: "gw_a", available: true, processOK: false}
	g := New(inner, resilience.BreakerConfig{
		MaxFailures: 2,
		Timeout:     time.Minute,
		MaxProbes:   1,
	}, nil)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		ok, err := g.ProcessPayment(ctx, request())
		require.NoError(t, err)
		assert.False(t, ok)
	}

	assert.Equal(t, resilience.StateClosed, g.State())
	assert.True(t, g.IsAvailable(ctx))
}

func TestGuard_RefundErrorsCountToo(t *testing.T) {
	inner := &stubGateway{name: "gw_a", available: true, refundErr: errors.New("timeout")}
	g := New(inner, resilience.BreakerConfig{
		MaxFailures: 1,
		Timeout:     time.Minute,
		MaxProbes:   1,
	}, nil)

	_, err := g.Refund(context.Background(), "T1", decimal.RequireFromString("10"))
	require.Error(t, err)

	assert.Equal(t, resilience.StateOpen, g.State())
}

func TestGuard_RecoversAfterTimeout(t *testing.T) {
	inner := &stubGateway{name: "gw_a", available: true, processErr: errors.New("boom")}
	g := New(inner, resilience.BreakerConfig{
		MaxFailures: 1,
		Timeout:     30 * time.Millisecond,
		MaxProbes:   1,
	}, nil)
	ctx := context.Background()

	_, err := g.ProcessPayment(ctx, request())
	require.Error(t, err)
	assert.Equal(t, resilience.StateOpen, g.State())
	assert.False(t, g.IsAvailable(ctx))

	time.Sleep(50 * time.Millisecond)

	// After the open window the guard lets probes through again
	assert.True(t, g.IsAvailable(ctx))

	// A successful probe call closes the breaker
	inner.processErr = nil
	inner.processOK = true
	ok, err := g.ProcessPayment(ctx, request())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, resilience.StateClosed, g.State())
}
