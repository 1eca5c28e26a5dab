package resilience

import (
	"context"
	"testing"
	"time"
)

func TestDefaultTimeoutConfig(t *testing.T) {
	config := DefaultTimeoutConfig()

	// Verify timeout hierarchy is correctly ordered
	if config.Shutdown <= config.Payment {
		t.Errorf("Shutdown (%v) must be > Payment (%v)", config.Shutdown, config.Payment)
	}

	if config.Payment <= config.Notification {
		t.Errorf("Payment (%v) must be > Notification (%v)", config.Payment, config.Notification)
	}

	if config.Notification <= config.Probe {
		t.Errorf("Notification (%v) must be > Probe (%v)", config.Notification, config.Probe)
	}

	// Verify production values
	if config.Shutdown != 45*time.Second {
		t.Errorf("Expected Shutdown = 45s, got %v", config.Shutdown)
	}

	if config.Payment != 30*time.Second {
		t.Errorf("Expected Payment = 30s, got %v", config.Payment)
	}

	if config.Probe != 5*time.Second {
		t.Errorf("Expected Probe = 5s, got %v", config.Probe)
	}
}

func TestTestTimeoutConfig(t *testing.T) {
	config := TestTimeoutConfig()

	// Verify test timeouts are shorter
	if config.Shutdown >= 10*time.Second {
		t.Errorf("Test timeouts should be < 10s, got %v", config.Shutdown)
	}

	// Verify hierarchy is still preserved in test config
	if config.Shutdown <= config.Payment {
		t.Errorf("Shutdown (%v) must be > Payment (%v)", config.Shutdown, config.Payment)
	}

	if config.Payment <= config.Probe {
		t.Errorf("Payment (%v) must be > Probe (%v)", config.Payment, config.Probe)
	}
}

func TestAllContextCreators(t *testing.T) {
	config := DefaultTimeoutConfig()
	parent := context.Background()

	tests := []struct {
		name    string
		creator func(context.Context) (context.Context, context.CancelFunc)
		timeout time.Duration
	}{
		{"ShutdownContext", config.ShutdownContext, config.Shutdown},
		{"PaymentContext", config.PaymentContext, config.Payment},
		{"NotificationContext", config.NotificationContext, config.Notification},
		{"ProbeContext", config.ProbeContext, config.Probe},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := tt.creator(parent)
			defer cancel()

			// Verify deadline exists
			deadline, ok := ctx.Deadline()
			if !ok {
				t.Fatalf("%s should have deadline", tt.name)
			}

			// Verify deadline is approximately correct
			expectedDeadline := time.Now().Add(tt.timeout)
			diff := deadline.Sub(expectedDeadline).Abs()
			if diff > 100*time.Millisecond {
				t.Errorf("%s: deadline diff too large: %v (expected ~%v)",
					tt.name, diff, tt.timeout)
			}
		})
	}
}

func TestTimeoutHierarchyPreservation(t *testing.T) {
	// Verify that child contexts respect parent deadlines
	config := DefaultTimeoutConfig()

	// Create parent context with 5 second timeout
	parent, parentCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer parentCancel()

	// Try to create child with longer timeout
	child, childCancel := config.PaymentContext(parent)
	defer childCancel()

	// Child should inherit parent's shorter deadline
	parentDeadline, _ := parent.Deadline()
	childDeadline, _ := child.Deadline()

	// Child deadline should be same or earlier than parent
	if childDeadline.After(parentDeadline) {
		t.Errorf("Child deadline (%v) should not be after parent deadline (%v)",
			childDeadline, parentDeadline)
	}
}

func TestContextCancellationPropagation(t *testing.T) {
	config := DefaultTimeoutConfig()
	parent := context.Background()

	ctx, cancel := config.PaymentContext(parent)

	// Cancel context
	cancel()

	// Verify context is cancelled
	select {
	case <-ctx.Done():
		// Expected
	case <-time.After(100 * time.Millisecond):
		t.Error("Context should be cancelled immediately")
	}

	// Verify error is context.Canceled
	if ctx.Err() != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", ctx.Err())
	}
}

func TestPaymentBudget(t *testing.T) {
	config := DefaultTimeoutConfig()
	backoff := GatewayBackoff()

	// The Payment deadline must cover the full retry schedule: four
	// attempts plus the backoff spent between them (2s+4s+8s).
	var backoffTotal time.Duration
	for attempt := 1; attempt <= 3; attempt++ {
		backoffTotal += backoff.NextDelay(attempt)
	}

	if config.Payment <= backoffTotal {
		t.Errorf("Payment (%v) must exceed total backoff of the retry schedule (%v)",
			config.Payment, backoffTotal)
	}

	// Shutdown must in turn outlast a payment started just before the signal
	if config.Shutdown <= config.Payment {
		t.Errorf("Shutdown (%v) must be > Payment (%v)", config.Shutdown, config.Payment)
	}
}
