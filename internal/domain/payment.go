package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus represents the gateway-level state of a payment
type PaymentStatus string

const (
	PaymentStatusPending            PaymentStatus = "PENDING"
	PaymentStatusProcessing         PaymentStatus = "PROCESSING"
	PaymentStatusCompleted          PaymentStatus = "COMPLETED"
	PaymentStatusFailed             PaymentStatus = "FAILED"
	PaymentStatusCancelled          PaymentStatus = "CANCELLED"
	PaymentStatusRequiresAction     PaymentStatus = "REQUIRES_ACTION" // 3DS or similar challenge pending
	PaymentStatusPartiallyCompleted PaymentStatus = "PARTIALLY_COMPLETED"
)

// IsFinal returns true if no further gateway-side transitions are expected
func (s PaymentStatus) IsFinal() bool {
	switch s {
	case PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled:
		return true
	default:
		return false
	}
}

// RefundStatus represents the gateway-level state of a refund
type RefundStatus string

const (
	RefundStatusPending           RefundStatus = "PENDING"
	RefundStatusProcessing        RefundStatus = "PROCESSING"
	RefundStatusCompleted         RefundStatus = "COMPLETED"
	RefundStatusFailed            RefundStatus = "FAILED"
	RefundStatusPartiallyRefunded RefundStatus = "PARTIALLY_REFUNDED"
)

// Gateway error codes carried on PaymentResult/RefundResult. These are wire
// values reported by gateways, not Go errors.
const (
	ErrCodeTransactionNotFound = "TRANSACTION_NOT_FOUND"
	ErrCodeRefundNotFound      = "REFUND_NOT_FOUND"
	ErrCodeCannotCancel        = "CANNOT_CANCEL"
	ErrCodeTemporaryError      = "TEMPORARY_ERROR"
	ErrCodeInsufficientFunds   = "INSUFFICIENT_FUNDS"
	ErrCodeUnsupportedCurrency = "UNSUPPORTED_CURRENCY"
	ErrCodeLegacyGatewayError  = "LEGACY_GATEWAY_ERROR"
	ErrCodeLegacyGatewayPanic  = "LEGACY_GATEWAY_EXCEPTION"
	ErrCodeNotSupported        = "NOT_SUPPORTED"
	ErrCodeNotRefundable       = "NOT_REFUNDABLE"
	ErrCodeRefundExceedsAmount = "REFUND_EXCEEDS_AMOUNT"
)

// PaymentRequest is the immutable input bundle for a payment. The processor
// snapshots it via Clone before any mutation, so callers never observe
// conversion side effects.
type PaymentRequest struct {
	Amount             decimal.Decimal   `json:"amount"`
	Currency           Currency          `json:"currency"`
	SourceAccount      string            `json:"source_account"`
	DestinationAccount string            `json:"destination_account"`
	Metadata           map[string]string `json:"metadata"`
}

// Validate checks the structural invariants of the request. Business rules
// (account formats, limits, balance) live in the Validator collaborator.
func (r *PaymentRequest) Validate() error {
	if r == nil {
		return errors.New("payment request is nil")
	}
	if !r.Currency.IsValid() {
		return errors.New("payment request currency is not supported")
	}
	if r.Amount.Sign() <= 0 {
		return errors.New("payment request amount must be positive")
	}
	if r.SourceAccount == "" {
		return errors.New("payment request source account is required")
	}
	if r.DestinationAccount == "" {
		return errors.New("payment request destination account is required")
	}
	return nil
}

// Clone returns a deep copy of the request, metadata included
func (r *PaymentRequest) Clone() *PaymentRequest {
	if r == nil {
		return nil
	}
	cp := *r
	if r.Metadata != nil {
		cp.Metadata = make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}

// PaymentResult is the gateway-level outcome of a payment operation. For
// idempotent gateways it is value-stable across replays of the same
// transaction ID, ProcessedAt included.
type PaymentResult struct {
	IsSuccess            bool            `json:"is_success"`
	GatewayTransactionID string          `json:"gateway_transaction_id"`
	Status               PaymentStatus   `json:"status"`
	ErrorCode            string          `json:"error_code,omitempty"`
	ErrorMessage         string          `json:"error_message,omitempty"`
	ProcessedAt          time.Time       `json:"processed_at"`
	IsRetryable          bool            `json:"is_retryable"`
	ActualAmount         decimal.Decimal `json:"actual_amount"`
	ProviderReference    string          `json:"provider_reference,omitempty"`
}

// RefundResult is the gateway-level outcome of a refund operation,
// value-stable per refund ID on idempotent gateways
type RefundResult struct {
	IsSuccess             bool            `json:"is_success"`
	GatewayRefundID       string          `json:"gateway_refund_id"`
	Status                RefundStatus    `json:"status"`
	ErrorCode             string          `json:"error_code,omitempty"`
	ErrorMessage          string          `json:"error_message,omitempty"`
	ProcessedAt           time.Time       `json:"processed_at"`
	RefundedAmount        decimal.Decimal `json:"refunded_amount"`
	OriginalTransactionID string          `json:"original_transaction_id"`
}

// DisplayAmount rounds a monetary value for presentation. Internal math keeps
// full precision; only reported amounts are rounded, with banker's rounding
// at two fractional digits.
func DisplayAmount(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(2)
}
