package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestTransactionStatus_IsTerminal tests terminal detection for every lifecycle status
func TestTransactionStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		name     string
		status   TransactionStatus
		expected bool
	}{
		{
			name:     "pending_is_not_terminal",
			status:   TransactionStatusPending,
			expected: false,
		},
		{
			name:     "processed_is_terminal",
			status:   TransactionStatusProcessed,
			expected: true,
		},
		{
			name:     "failed_is_terminal",
			status:   TransactionStatusFailed,
			expected: true,
		},
		{
			name:     "refunded_is_terminal",
			status:   TransactionStatusRefunded,
			expected: true,
		},
		{
			name:     "unknown_status_is_not_terminal",
			status:   TransactionStatus("SETTLED_OFFLINE"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.status.IsTerminal())
		})
	}
}

// TestParseTransactionStatus tests wire status parsing, including rejection of unknown values
func TestParseTransactionStatus(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		expected  TransactionStatus
		expectErr bool
	}{
		{
			name:     "pending",
			input:    "PENDING",
			expected: TransactionStatusPending,
		},
		{
			name:     "processed",
			input:    "PROCESSED",
			expected: TransactionStatusProcessed,
		},
		{
			name:     "failed",
			input:    "FAILED",
			expected: TransactionStatusFailed,
		},
		{
			name:     "refunded",
			input:    "REFUNDED",
			expected: TransactionStatusRefunded,
		},
		{
			name:      "unknown_value_rejected",
			input:     "SETTLED_OFFLINE",
			expectErr: true,
		},
		{
			name:      "lowercase_rejected",
			input:     "processed",
			expectErr: true,
		},
		{
			name:      "empty_rejected",
			input:     "",
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, err := ParseTransactionStatus(tt.input)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, status)
		})
	}
}

// TestTransaction_CanBeRefunded tests that only processed transactions are refundable
func TestTransaction_CanBeRefunded(t *testing.T) {
	tests := []struct {
		name     string
		status   TransactionStatus
		expected bool
	}{
		{
			name:     "processed_can_be_refunded",
			status:   TransactionStatusProcessed,
			expected: true,
		},
		{
			name:     "pending_cannot_be_refunded",
			status:   TransactionStatusPending,
			expected: false,
		},
		{
			name:     "failed_cannot_be_refunded",
			status:   TransactionStatusFailed,
			expected: false,
		},
		{
			name:     "refunded_cannot_be_refunded_again",
			status:   TransactionStatusRefunded,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := &Transaction{ID: "tx-1", Status: tt.status}
			assert.Equal(t, tt.expected, tx.CanBeRefunded())
		})
	}
}
