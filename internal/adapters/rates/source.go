// Package rates supplies exchange rates for cross-currency payments.
package rates

import (
	"context"
	"fmt"
	"sync"

	"github.com/ledgerline/payment-orchestrator/internal/domain"
	"github.com/shopspring/decimal"
)

// RateSource yields the exchange rate between two currencies. Implementations
// may call out to market data providers; the orchestration core only ever
// talks to a source through rates.Service.
type RateSource interface {
	Rate(ctx context.Context, from, to domain.Currency) (decimal.Decimal, error)
}

// StaticSource serves rates from a fixed in-memory table. It is the default
// source for hosts that do not plug a live feed.
type StaticSource struct {
	mu    sync.RWMutex
	table map[string]decimal.Decimal
}

// NewStaticSource creates a StaticSource with the built-in rate table.
func NewStaticSource() *StaticSource {
	return &StaticSource{
		table: map[string]decimal.Decimal{
			pairKey(domain.CurrencyUSD, domain.CurrencyEUR): decimal.RequireFromString("0.85"),
			pairKey(domain.CurrencyUSD, domain.CurrencyRUB): decimal.RequireFromString("90"),
			pairKey(domain.CurrencyEUR, domain.CurrencyUSD): decimal.RequireFromString("1.18"),
			pairKey(domain.CurrencyEUR, domain.CurrencyRUB): decimal.RequireFromString("100"),
			pairKey(domain.CurrencyRUB, domain.CurrencyUSD): decimal.RequireFromString("0.011"),
			pairKey(domain.CurrencyRUB, domain.CurrencyEUR): decimal.RequireFromString("0.01"),
		},
	}
}

// SetRate adds or replaces one pair in the table
func (s *StaticSource) SetRate(from, to domain.Currency, rate decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table[pairKey(from, to)] = rate
}

// Rate returns the table entry for the pair, or ErrUnsupportedConversion
func (s *StaticSource) Rate(_ context.Context, from, to domain.Currency) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rate, ok := s.table[pairKey(from, to)]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%s to %s: %w", from, to, domain.ErrUnsupportedConversion)
	}
	return rate, nil
}

func pairKey(from, to domain.Currency) string {
	return from.String() + "_" + to.String()
}
