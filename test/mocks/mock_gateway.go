package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/payment-orchestrator/internal/domain"
)

// ProcessOutcome scripts one ProcessPayment call of a MockGateway
type ProcessOutcome struct {
	OK  bool
	Err error
}

// MockGateway is a scriptable implementation of ports.PaymentGateway for
// testing. The commission table doubles as the supported-currency set.
type MockGateway struct {
	mu sync.Mutex

	name        string
	commissions map[domain.Currency]decimal.Decimal

	// Responses to return
	available        bool
	processResult    bool
	processErr       error
	processScript    []ProcessOutcome
	refundResult     bool
	refundErr        error
	commissionErr    error
	commissionScript []error

	// Call tracking
	ProcessCalls      int
	RefundCalls       int
	AvailabilityCalls int
	CommissionCalls   int

	// Last request received
	LastProcessReq   *domain.PaymentRequest
	LastRefundTxID   string
	LastRefundAmount decimal.Decimal
}

// NewMockGateway creates a mock gateway that is available and approves every
// payment. Commission rates are given as strings, e.g. "0.01" for 1%.
func NewMockGateway(name string, commissions map[domain.Currency]string) *MockGateway {
	parsed := make(map[domain.Currency]decimal.Decimal, len(commissions))
	for currency, rate := range commissions {
		parsed[currency] = decimal.RequireFromString(rate)
	}
	return &MockGateway{
		name:          name,
		commissions:   parsed,
		available:     true,
		processResult: true,
		refundResult:  true,
	}
}

// SetAvailable sets the response of IsAvailable
func (m *MockGateway) SetAvailable(available bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = available
}

// SetProcessResponse sets the fixed response of ProcessPayment
func (m *MockGateway) SetProcessResponse(ok bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processResult = ok
	m.processErr = err
}

// ScriptProcess queues per-call outcomes for ProcessPayment. Calls consume
// the script in order; once it is exhausted the fixed response applies again.
func (m *MockGateway) ScriptProcess(outcomes ...ProcessOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processScript = append(m.processScript, outcomes...)
}

// SetRefundResponse sets the response of Refund
func (m *MockGateway) SetRefundResponse(ok bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refundResult = ok
	m.refundErr = err
}

// SetCommissionError makes GetCommission fail for every currency
func (m *MockGateway) SetCommissionError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commissionErr = err
}

// ScriptCommission queues per-call errors for GetCommission. A nil entry
// means the call succeeds with the table rate. Once the script is exhausted
// the fixed commissionErr (if any) applies again.
func (m *MockGateway) ScriptCommission(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commissionScript = append(m.commissionScript, errs...)
}

// Name implements Gateway.Name
func (m *MockGateway) Name() string {
	return m.name
}

// SupportsCurrency implements Gateway.SupportsCurrency
func (m *MockGateway) SupportsCurrency(c domain.Currency) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.commissions[c]
	return ok
}

// IsAvailable implements Gateway.IsAvailable
func (m *MockGateway) IsAvailable(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AvailabilityCalls++
	return m.available
}

// GetCommission implements Gateway.GetCommission
func (m *MockGateway) GetCommission(ctx context.Context, c domain.Currency) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CommissionCalls++

	if len(m.commissionScript) > 0 {
		err := m.commissionScript[0]
		m.commissionScript = m.commissionScript[1:]
		if err != nil {
			return decimal.Decimal{}, err
		}
	} else if m.commissionErr != nil {
		return decimal.Decimal{}, m.commissionErr
	}
	commission, ok := m.commissions[c]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%s: no commission for currency %s", m.name, c)
	}
	return commission, nil
}

// ProcessPayment implements PaymentGateway.ProcessPayment
func (m *MockGateway) ProcessPayment(ctx context.Context, req *domain.PaymentRequest) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ProcessCalls++
	m.LastProcessReq = req

	if len(m.processScript) > 0 {
		outcome := m.processScript[0]
		m.processScript = m.processScript[1:]
		return outcome.OK, outcome.Err
	}
	return m.processResult, m.processErr
}

// Refund implements PaymentGateway.Refund
func (m *MockGateway) Refund(ctx context.Context, transactionID string, amount decimal.Decimal) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RefundCalls++
	m.LastRefundTxID = transactionID
	m.LastRefundAmount = amount
	return m.refundResult, m.refundErr
}

// Invocations returns the ProcessPayment call count (thread-safe)
func (m *MockGateway) Invocations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ProcessCalls
}

// Reset resets all mock state except name and commissions
func (m *MockGateway) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = true
	m.processResult = true
	m.processErr = nil
	m.processScript = nil
	m.refundResult = true
	m.refundErr = nil
	m.commissionErr = nil
	m.commissionScript = nil
	m.ProcessCalls = 0
	m.RefundCalls = 0
	m.AvailabilityCalls = 0
	m.CommissionCalls = 0
	m.LastProcessReq = nil
	m.LastRefundTxID = ""
	m.LastRefundAmount = decimal.Decimal{}
}
