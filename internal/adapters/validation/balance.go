package validation

import (
	"sync"

	"github.com/ledgerline/payment-orchestrator/internal/domain"
	"github.com/shopspring/decimal"
)

// InMemoryBalanceService holds account balances in memory. It is the default
// BalanceService for hosts that do not wire a ledger of their own.
type InMemoryBalanceService struct {
	mu       sync.RWMutex
	balances map[string]decimal.Decimal
}

// NewInMemoryBalanceService creates an empty balance service
func NewInMemoryBalanceService() *InMemoryBalanceService {
	return &InMemoryBalanceService{
		balances: make(map[string]decimal.Decimal),
	}
}

// Deposit credits an account. Used to seed balances for demos and tests.
func (s *InMemoryBalanceService) Deposit(account string, amount decimal.Decimal, currency domain.Currency) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := balanceKey(account, currency)
	s.balances[key] = s.balances[key].Add(amount)
}

// Balance returns the current balance for an account in a currency
func (s *InMemoryBalanceService) Balance(account string, currency domain.Currency) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.balances[balanceKey(account, currency)]
}

// HasSufficientBalance reports whether the account holds at least amount
func (s *InMemoryBalanceService) HasSufficientBalance(account string, amount decimal.Decimal, currency domain.Currency) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.balances[balanceKey(account, currency)].GreaterThanOrEqual(amount)
}

func balanceKey(account string, currency domain.Currency) string {
	return account + "/" + currency.String()
}
