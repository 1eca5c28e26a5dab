// Package validation provides the default pre-flight checks a payment must
// pass before it reaches any gateway.
package validation

import (
	"regexp"

	"github.com/ledgerline/payment-orchestrator/internal/domain"
	"github.com/ledgerline/payment-orchestrator/internal/domain/ports"
	"github.com/shopspring/decimal"
)

// Account number shape per currency. USD uses 10-digit account numbers,
// EUR uses IBAN-like identifiers, RUB uses 20-digit account numbers.
var accountPatterns = map[domain.Currency]*regexp.Regexp{
	domain.CurrencyUSD: regexp.MustCompile(`^[0-9]{10}$`),
	domain.CurrencyEUR: regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z0-9]{11,32}$`),
	domain.CurrencyRUB: regexp.MustCompile(`^[0-9]{20}$`),
}

// Single-payment amount caps per currency.
var amountLimits = map[domain.Currency]decimal.Decimal{
	domain.CurrencyUSD: decimal.NewFromInt(10_000),
	domain.CurrencyEUR: decimal.NewFromInt(8_000),
	domain.CurrencyRUB: decimal.NewFromInt(500_000),
}

// MaxAmount returns the single-payment cap for a currency.
func MaxAmount(currency domain.Currency) (decimal.Decimal, bool) {
	limit, ok := amountLimits[currency]
	return limit, ok
}

// Validator applies shape, limit, and balance checks to payment requests.
// It is pure: no I/O, no locks, never blocks.
type Validator struct {
	balances ports.BalanceService
}

// New creates a Validator. A nil balance service disables the balance check.
func New(balances ports.BalanceService) *Validator {
	return &Validator{balances: balances}
}

// Validate reports whether the request may proceed to gateway selection.
func (v *Validator) Validate(req *domain.PaymentRequest) bool {
	if req == nil {
		return false
	}
	if err := req.Validate(); err != nil {
		return false
	}

	limit, ok := amountLimits[req.Currency]
	if !ok || req.Amount.GreaterThan(limit) {
		return false
	}

	pattern, ok := accountPatterns[req.Currency]
	if !ok {
		return false
	}
	if !pattern.MatchString(req.SourceAccount) || !pattern.MatchString(req.DestinationAccount) {
		return false
	}

	if v.balances != nil && !v.balances.HasSufficientBalance(req.SourceAccount, req.Amount, req.Currency) {
		return false
	}

	return true
}
