package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus represents the processor-level lifecycle state of a transaction
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusProcessed TransactionStatus = "PROCESSED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
	TransactionStatusRefunded  TransactionStatus = "REFUNDED"
)

// IsTerminal returns true if new process calls on this status are pure replays
func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case TransactionStatusProcessed, TransactionStatusFailed, TransactionStatusRefunded:
		return true
	default:
		return false
	}
}

// ParseTransactionStatus converts a wire status string to a TransactionStatus.
// Used by the notification hook, which receives statuses from external
// transports and must reject anything it does not recognize.
func ParseTransactionStatus(s string) (TransactionStatus, error) {
	switch TransactionStatus(s) {
	case TransactionStatusPending, TransactionStatusProcessed,
		TransactionStatusFailed, TransactionStatusRefunded:
		return TransactionStatus(s), nil
	default:
		return "", fmt.Errorf("unknown transaction status %q", s)
	}
}

// Transaction is the processor-owned record of one logical payment. The ID is
// caller-supplied and identifies the transaction across all replays. The
// request field holds the processor's snapshot, post-conversion when a target
// currency was requested; the caller's request object is never mutated.
//
// Records are published to the transaction log with ID and Timestamp set;
// later field updates happen under the per-transaction lock, with GatewayUsed
// and Commission written before the status leaves PENDING.
type Transaction struct {
	ID           string            `json:"id"`
	Request      *PaymentRequest   `json:"request"`
	Status       TransactionStatus `json:"status"`
	Timestamp    time.Time         `json:"timestamp"`
	GatewayUsed  string            `json:"gateway_used,omitempty"`
	Commission   decimal.Decimal   `json:"commission"`
	ErrorMessage string            `json:"error_message,omitempty"`
}

// IsTerminal returns true if the transaction reached a terminal status
func (t *Transaction) IsTerminal() bool {
	return t.Status.IsTerminal()
}

// CanBeRefunded returns true if a refund may be attempted
func (t *Transaction) CanBeRefunded() bool {
	return t.Status == TransactionStatusProcessed
}
