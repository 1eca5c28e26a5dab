package resilience

import (
	"context"
	"time"
)

// TimeoutConfig defines deadline values for the host's timeout hierarchy.
//
// Timeout Hierarchy (from outermost to innermost):
//   Shutdown (45s)
//     ↓
//   Payment (30s - full gateway call chain, retry delays included)
//     ↓
//   Notification (10s)
//     ↓
//   Probe (5s - one availability or commission check)
//
// Orchestration operations carry no deadlines of their own; every deadline
// enters through the context the host hands in. The hierarchy ensures each
// layer completes before its parent gives up, so an in-flight payment is
// never abandoned by a shorter outer deadline.
type TimeoutConfig struct {
	// Host layer timeouts
	Shutdown time.Duration // Drain window after a stop signal (default: 45s)

	// Gateway boundary timeouts
	Payment      time.Duration // One payment or refund end to end (default: 30s)
	Notification time.Duration // Handling one gateway notification (default: 10s)
	Probe        time.Duration // Single availability or commission check (default: 5s)
}

// DefaultTimeoutConfig returns production deadline values.
//
// The retry schedule spends up to 14s in backoff alone (2s+4s+8s), so the
// Payment deadline must cover four attempts on top of that.
func DefaultTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		Shutdown: 45 * time.Second,

		// Gateway boundary (must be < Shutdown)
		Payment:      30 * time.Second,
		Notification: 10 * time.Second,
		Probe:        5 * time.Second,
	}
}

// TestTimeoutConfig returns shorter deadlines for testing.
func TestTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		Shutdown:     5 * time.Second,
		Payment:      3 * time.Second,
		Notification: 1 * time.Second,
		Probe:        500 * time.Millisecond,
	}
}

// ShutdownContext creates a context bounding the drain window on shutdown.
func (tc *TimeoutConfig) ShutdownContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.Shutdown)
}

// PaymentContext creates a context for one payment or refund end to end.
func (tc *TimeoutConfig) PaymentContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.Payment)
}

// NotificationContext creates a context for handling a gateway notification.
func (tc *TimeoutConfig) NotificationContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.Notification)
}

// ProbeContext creates a context for a single availability or commission check.
func (tc *TimeoutConfig) ProbeContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.Probe)
}
