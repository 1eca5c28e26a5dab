package resilience

import (
	"context"
	"time"
)

// Operation is a fallible unit of work executed under a retry policy
type Operation func(ctx context.Context) error

// Policy retries an operation with backoff between attempts. The policy is
// stateless and safe to share across concurrent invocations. Every error is
// retryable at this layer; callers that need to distinguish permanent
// failures do so after Execute returns.
type Policy struct {
	MaxRetries int             // retries after the initial attempt
	Backoff    BackoffStrategy // delay schedule; nil falls back to GatewayBackoff
	OnRetry    func(attempt int, err error)
}

// GatewayPolicy returns the policy applied around gateway payment calls:
// 3 retries after the initial attempt (4 invocations max) with delays of
// 2s, 4s and 8s before retries 1, 2 and 3.
func GatewayPolicy() *Policy {
	return &Policy{
		MaxRetries: 3,
		Backoff:    GatewayBackoff(),
	}
}

// Execute runs op until it returns nil or retries are exhausted. The wait
// before retry n (1-based) is Backoff.NextDelay(n) and honors ctx: on
// cancellation the context error surfaces as-is and no further attempts run.
// On exhaustion the last operation error propagates unchanged.
func (p *Policy) Execute(ctx context.Context, op Operation) error {
	backoff := p.Backoff
	if backoff == nil {
		backoff = GatewayBackoff()
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			if p.OnRetry != nil {
				p.OnRetry(attempt, lastErr)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff.NextDelay(attempt)):
			}
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
	}

	return lastErr
}
