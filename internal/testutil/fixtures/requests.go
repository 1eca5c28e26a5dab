// Package fixtures provides test data builders for payment requests and
// transactions.
package fixtures

import (
	"github.com/shopspring/decimal"

	"github.com/ledgerline/payment-orchestrator/internal/domain"
	"github.com/ledgerline/payment-orchestrator/pkg/timeutil"
)

// Well-formed account numbers per currency, matching the default validator
// patterns.
const (
	USDSourceAccount      = "1234567890"
	USDDestinationAccount = "0987654321"
	EURSourceAccount      = "DE44500105175407324931"
	EURDestinationAccount = "FR1420041010050500013M02606"
	RUBSourceAccount      = "40817810099910004312"
	RUBDestinationAccount = "40817810099910004313"
)

// RequestBuilder provides a fluent API for building test payment requests.
type RequestBuilder struct {
	request *domain.PaymentRequest
}

// NewRequest creates a request builder with a valid USD payment of 100.
func NewRequest() *RequestBuilder {
	return &RequestBuilder{
		request: &domain.PaymentRequest{
			Amount:             decimal.NewFromInt(100),
			Currency:           domain.CurrencyUSD,
			SourceAccount:      USDSourceAccount,
			DestinationAccount: USDDestinationAccount,
			Metadata:           map[string]string{},
		},
	}
}

func (b *RequestBuilder) WithAmount(amount string) *RequestBuilder {
	b.request.Amount = decimal.RequireFromString(amount)
	return b
}

func (b *RequestBuilder) WithCurrency(currency domain.Currency) *RequestBuilder {
	b.request.Currency = currency
	return b
}

func (b *RequestBuilder) WithSourceAccount(account string) *RequestBuilder {
	b.request.SourceAccount = account
	return b
}

func (b *RequestBuilder) WithDestinationAccount(account string) *RequestBuilder {
	b.request.DestinationAccount = account
	return b
}

func (b *RequestBuilder) WithMetadata(key, value string) *RequestBuilder {
	b.request.Metadata[key] = value
	return b
}

// USD switches the request to USD with well-formed USD accounts.
func (b *RequestBuilder) USD() *RequestBuilder {
	b.request.Currency = domain.CurrencyUSD
	b.request.SourceAccount = USDSourceAccount
	b.request.DestinationAccount = USDDestinationAccount
	return b
}

// EUR switches the request to EUR with well-formed IBAN accounts.
func (b *RequestBuilder) EUR() *RequestBuilder {
	b.request.Currency = domain.CurrencyEUR
	b.request.SourceAccount = EURSourceAccount
	b.request.DestinationAccount = EURDestinationAccount
	return b
}

// RUB switches the request to RUB with well-formed RUB accounts.
func (b *RequestBuilder) RUB() *RequestBuilder {
	b.request.Currency = domain.CurrencyRUB
	b.request.SourceAccount = RUBSourceAccount
	b.request.DestinationAccount = RUBDestinationAccount
	return b
}

// Build returns the built request.
func (b *RequestBuilder) Build() *domain.PaymentRequest {
	return b.request
}

// USDRequest creates a valid USD payment request for the given amount.
func USDRequest(amount string) *domain.PaymentRequest {
	return NewRequest().USD().WithAmount(amount).Build()
}

// EURRequest creates a valid EUR payment request for the given amount.
func EURRequest(amount string) *domain.PaymentRequest {
	return NewRequest().EUR().WithAmount(amount).Build()
}

// RUBRequest creates a valid RUB payment request for the given amount.
func RUBRequest(amount string) *domain.PaymentRequest {
	return NewRequest().RUB().WithAmount(amount).Build()
}

// TransactionBuilder provides a fluent API for building test transactions.
type TransactionBuilder struct {
	transaction *domain.Transaction
}

// NewTransactionRecord creates a transaction builder with a pending USD
// transaction of 100.
func NewTransactionRecord(id string) *TransactionBuilder {
	return &TransactionBuilder{
		transaction: &domain.Transaction{
			ID:        id,
			Request:   NewRequest().Build(),
			Status:    domain.TransactionStatusPending,
			Timestamp: timeutil.Now(),
		},
	}
}

func (b *TransactionBuilder) WithRequest(req *domain.PaymentRequest) *TransactionBuilder {
	b.transaction.Request = req
	return b
}

func (b *TransactionBuilder) WithStatus(status domain.TransactionStatus) *TransactionBuilder {
	b.transaction.Status = status
	return b
}

func (b *TransactionBuilder) WithGateway(name, commission string) *TransactionBuilder {
	b.transaction.GatewayUsed = name
	b.transaction.Commission = decimal.RequireFromString(commission)
	return b
}

func (b *TransactionBuilder) Processed() *TransactionBuilder {
	b.transaction.Status = domain.TransactionStatusProcessed
	return b
}

func (b *TransactionBuilder) Failed(message string) *TransactionBuilder {
	b.transaction.Status = domain.TransactionStatusFailed
	b.transaction.ErrorMessage = message
	return b
}

func (b *TransactionBuilder) Refunded() *TransactionBuilder {
	b.transaction.Status = domain.TransactionStatusRefunded
	return b
}

// Build returns the built transaction.
func (b *TransactionBuilder) Build() *domain.Transaction {
	return b.transaction
}
