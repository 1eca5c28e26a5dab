// Package processor owns the lifecycle of payment transactions: idempotent
// execution keyed on caller-supplied transaction IDs, currency conversion,
// gateway routing, retry around the gateway call, refunds, and out-of-band
// status notifications.
package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/payment-orchestrator/internal/domain"
	"github.com/ledgerline/payment-orchestrator/internal/domain/ports"
	"github.com/ledgerline/payment-orchestrator/pkg/keylock"
	"github.com/ledgerline/payment-orchestrator/pkg/observability"
	"github.com/ledgerline/payment-orchestrator/pkg/resilience"
	"github.com/ledgerline/payment-orchestrator/pkg/timeutil"
)

// Recorded verbatim on transactions the validator rejects
const validationFailedMessage = "Validation failed"

// Processor coordinates payments across gateways with at-most-once effective
// execution per transaction ID. All calls for one ID serialize on a per-ID
// lock; the first call to reach the gateway fixes the outcome and every later
// call, concurrent or sequential, observes the recorded transaction.
//
// Transaction records live in memory for the life of the process. Records are
// published with ID and Timestamp set; GatewayUsed and Commission are written
// before the status leaves PENDING, so lock-free readers never see a terminal
// status with missing routing fields.
type Processor struct {
	validator ports.Validator
	router    ports.GatewayRouter
	rates     ports.RateService
	retry     *resilience.Policy
	logger    ports.Logger

	locks *keylock.KeyedMutex

	mu           sync.RWMutex
	transactions map[string]*domain.Transaction
}

// New creates a payment processor. A nil retry policy falls back to the
// gateway policy of 3 retries with exponential backoff.
func New(
	validator ports.Validator,
	router ports.GatewayRouter,
	rates ports.RateService,
	retry *resilience.Policy,
	logger ports.Logger,
) *Processor {
	if retry == nil {
		retry = resilience.GatewayPolicy()
	}
	return &Processor{
		validator:    validator,
		router:       router,
		rates:        rates,
		retry:        retry,
		logger:       logger,
		locks:        keylock.New(),
		transactions: make(map[string]*domain.Transaction),
	}
}

// Process executes a payment under the given transaction ID. The first call
// for an ID does the work; every later call returns the recorded transaction
// unchanged, without touching validator, rates, router, or gateway.
func (p *Processor) Process(ctx context.Context, req *domain.PaymentRequest, transactionID string) (*domain.Transaction, error) {
	return p.process(ctx, req, transactionID, domain.CurrencyUnspecified)
}

// ProcessWithConversion is Process with the amount converted into the target
// currency before routing. The transaction records the converted request; the
// caller's request is never modified.
func (p *Processor) ProcessWithConversion(ctx context.Context, req *domain.PaymentRequest, transactionID string, target domain.Currency) (*domain.Transaction, error) {
	return p.process(ctx, req, transactionID, target)
}

func (p *Processor) process(ctx context.Context, req *domain.PaymentRequest, transactionID string, target domain.Currency) (*domain.Transaction, error) {
	unlock, err := p.locks.Lock(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	observability.SetActiveTransactionLocks(float64(p.locks.Len()))

	tx, created := p.readOrInsert(transactionID, req)
	if tx.IsTerminal() {
		p.logger.Debug("Returning recorded transaction",
			ports.String("transaction_id", transactionID),
			ports.String("status", string(tx.Status)))
		return tx, nil
	}

	if created {
		p.logger.Debug("Transaction created",
			ports.String("transaction_id", transactionID),
			ports.String("currency", tx.Request.Currency.String()),
			ports.String("amount", tx.Request.Amount.String()))
	}

	start := time.Now()
	tx, err = p.execute(ctx, tx, req, target)

	if tx != nil && tx.Status != domain.TransactionStatusPending {
		observability.RecordPaymentTransaction(
			metricGateway(tx),
			tx.Request.Currency.String(),
			strings.ToLower(string(tx.Status)),
			tx.Request.Amount.InexactFloat64(),
			time.Since(start).Seconds(),
		)
	}
	return tx, err
}

// execute performs the actual work on a still-pending transaction. The
// per-ID lock is held throughout. Outcomes that terminate the transaction
// are written to it here; interruptions leave it PENDING for the next call.
func (p *Processor) execute(ctx context.Context, tx *domain.Transaction, req *domain.PaymentRequest, target domain.Currency) (*domain.Transaction, error) {
	// Validation inspects the caller's request, not the snapshot: limits and
	// account formats apply to what the caller submitted.
	if !p.validator.Validate(req) {
		tx.ErrorMessage = validationFailedMessage
		tx.Status = domain.TransactionStatusFailed
		p.logger.Warn("Validation failed",
			ports.String("transaction_id", tx.ID),
			ports.String("currency", req.Currency.String()),
			ports.String("amount", req.Amount.String()))
		return tx, nil
	}

	// Conversion rewrites the snapshot. Comparing against the snapshot's
	// currency keeps this idempotent when an interrupted call already
	// converted it.
	if target != domain.CurrencyUnspecified && target != tx.Request.Currency {
		rate, err := p.rates.GetRate(ctx, tx.Request.Currency, target)
		if err != nil {
			if isInterrupt(err) {
				return tx, err
			}
			tx.ErrorMessage = err.Error()
			tx.Status = domain.TransactionStatusFailed
			p.logger.Error("Currency conversion failed",
				ports.String("transaction_id", tx.ID),
				ports.String("from", tx.Request.Currency.String()),
				ports.String("to", target.String()),
				ports.Err(err))
			return tx, err
		}

		converted := tx.Request.Amount.Mul(rate)
		p.logger.Info("Converted payment amount",
			ports.String("transaction_id", tx.ID),
			ports.String("from", tx.Request.Currency.String()),
			ports.String("to", target.String()),
			ports.String("rate", rate.String()),
			ports.String("amount", converted.String()))
		tx.Request.Amount = converted
		tx.Request.Currency = target
	}

	gw, err := p.router.SelectOptimal(ctx, tx.Request)
	if err != nil {
		if isInterrupt(err) {
			return tx, err
		}
		tx.ErrorMessage = err.Error()
		tx.Status = domain.TransactionStatusFailed
		p.logger.Error("Gateway selection failed",
			ports.String("transaction_id", tx.ID),
			ports.String("currency", tx.Request.Currency.String()),
			ports.Err(err))
		return tx, err
	}
	tx.GatewayUsed = gw.Name()

	commission, err := gw.GetCommission(ctx, tx.Request.Currency)
	if err != nil {
		if isInterrupt(err) {
			return tx, err
		}
		tx.ErrorMessage = err.Error()
		tx.Status = domain.TransactionStatusFailed
		p.logger.Error("Commission lookup failed",
			ports.String("transaction_id", tx.ID),
			ports.String("gateway", gw.Name()),
			ports.Err(err))
		return tx, nil
	}
	tx.Commission = commission

	err = p.retryFor(tx.ID, gw.Name()).Execute(ctx, func(ctx context.Context) error {
		ok, gwErr := gw.ProcessPayment(ctx, tx.Request)
		if gwErr != nil {
			return gwErr
		}
		if !ok {
			return domain.ErrGatewayDeclined
		}
		return nil
	})

	switch {
	case err == nil:
		tx.Status = domain.TransactionStatusProcessed
		p.logger.Info("Payment processed",
			ports.String("transaction_id", tx.ID),
			ports.String("gateway", gw.Name()),
			ports.String("currency", tx.Request.Currency.String()),
			ports.String("amount", tx.Request.Amount.String()),
			ports.String("commission", commission.String()))
		return tx, nil

	case isInterrupt(err):
		// The caller gave up; the transaction stays PENDING so a later call
		// with the same ID can finish the work
		p.logger.Warn("Payment interrupted",
			ports.String("transaction_id", tx.ID),
			ports.String("gateway", gw.Name()),
			ports.Err(err))
		return tx, err

	case errors.Is(err, domain.ErrGatewayDeclined):
		tx.Status = domain.TransactionStatusFailed
		p.logger.Warn("Payment declined by gateway",
			ports.String("transaction_id", tx.ID),
			ports.String("gateway", gw.Name()))
		return tx, nil

	default:
		tx.ErrorMessage = err.Error()
		tx.Status = domain.TransactionStatusFailed
		p.logger.Error("Payment failed",
			ports.String("transaction_id", tx.ID),
			ports.String("gateway", gw.Name()),
			ports.Err(err))
		return tx, nil
	}
}

// Refund returns funds for a processed transaction through the gateway that
// carried it. A declined refund leaves the transaction PROCESSED; gateway
// errors propagate unchanged.
func (p *Processor) Refund(ctx context.Context, transactionID string, amount decimal.Decimal) (*domain.Transaction, error) {
	// Existence check before locking, so unknown IDs never allocate a lock
	if _, ok := p.GetTransaction(transactionID); !ok {
		return nil, fmt.Errorf("transaction %s not found: %w", transactionID, domain.ErrCannotRefund)
	}

	unlock, err := p.locks.Lock(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	tx, _ := p.GetTransaction(transactionID)
	if !tx.CanBeRefunded() {
		return nil, fmt.Errorf("transaction %s is %s: %w", transactionID, tx.Status, domain.ErrCannotRefund)
	}

	gw, ok := p.router.GetByName(tx.GatewayUsed)
	if !ok {
		return nil, fmt.Errorf("gateway %s: %w", tx.GatewayUsed, domain.ErrGatewayNotFound)
	}

	refunded, err := gw.Refund(ctx, transactionID, amount)
	if err != nil {
		p.logger.Error("Refund failed",
			ports.String("transaction_id", transactionID),
			ports.String("gateway", gw.Name()),
			ports.Err(err))
		return nil, fmt.Errorf("refund via %s: %w", gw.Name(), err)
	}
	if !refunded {
		observability.RecordRefund(gw.Name(), tx.Request.Currency.String(), "failed", 0)
		p.logger.Warn("Refund declined by gateway",
			ports.String("transaction_id", transactionID),
			ports.String("gateway", gw.Name()),
			ports.String("amount", amount.String()))
		return tx, nil
	}

	tx.Status = domain.TransactionStatusRefunded
	observability.RecordRefund(gw.Name(), tx.Request.Currency.String(), "refunded", amount.InexactFloat64())
	p.logger.Info("Refund completed",
		ports.String("transaction_id", transactionID),
		ports.String("gateway", gw.Name()),
		ports.String("amount", amount.String()))
	return tx, nil
}

// HandleNotification applies an out-of-band status reported by a gateway's
// webhook. External truth is authoritative: this is the only path that may
// move a terminal transaction. Unknown transactions and unparseable statuses
// are ignored with a log line.
func (p *Processor) HandleNotification(transactionID, status string) {
	parsed, err := domain.ParseTransactionStatus(status)
	if err != nil {
		p.logger.Warn("Ignoring notification with unknown status",
			ports.String("transaction_id", transactionID),
			ports.String("status", status))
		return
	}

	tx, ok := p.GetTransaction(transactionID)
	if !ok {
		p.logger.Warn("Ignoring notification for unknown transaction",
			ports.String("transaction_id", transactionID),
			ports.String("status", status))
		return
	}

	// Serialized with process and refund writes; Background because webhook
	// transports retry on their own schedule
	unlock, err := p.locks.Lock(context.Background(), transactionID)
	if err != nil {
		return
	}
	defer unlock()

	prior := tx.Status
	tx.Status = parsed

	observability.RecordNotification(string(parsed))
	p.logger.Info("Notification applied",
		ports.String("transaction_id", transactionID),
		ports.String("prior_status", string(prior)),
		ports.String("status", string(parsed)))
}

// GetTransaction returns the live transaction record for the ID. Callers get
// the record the processor mutates; fields other than Status may be mid
// update for pending transactions.
func (p *Processor) GetTransaction(transactionID string) (*domain.Transaction, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	tx, ok := p.transactions[transactionID]
	return tx, ok
}

// Cleanup releases per-ID locks of terminal transactions and returns how
// many were released. Records are retained. Held locks are skipped, so
// cleanup is safe to run concurrently with process and refund.
func (p *Processor) Cleanup() int {
	p.mu.RLock()
	terminal := make([]string, 0, len(p.transactions))
	for id, tx := range p.transactions {
		if tx.IsTerminal() {
			terminal = append(terminal, id)
		}
	}
	p.mu.RUnlock()

	released := 0
	for _, id := range terminal {
		if p.locks.TryRemove(id) {
			released++
		}
	}

	observability.RecordTransactionsCleaned(released)
	observability.SetActiveTransactionLocks(float64(p.locks.Len()))

	if released > 0 {
		p.logger.Info("Cleanup released transaction locks",
			ports.Int("released", released),
			ports.Int("remaining", p.locks.Len()))
	}
	return released
}

// readOrInsert returns the record for the ID, creating and publishing a
// PENDING record with a snapshot of the request on first use
func (p *Processor) readOrInsert(transactionID string, req *domain.PaymentRequest) (*domain.Transaction, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok := p.transactions[transactionID]; ok {
		return existing, false
	}

	tx := &domain.Transaction{
		ID:        transactionID,
		Request:   req.Clone(),
		Status:    domain.TransactionStatusPending,
		Timestamp: timeutil.Now(),
	}
	p.transactions[transactionID] = tx
	return tx, true
}

// retryFor copies the shared policy with retry accounting for this call. The
// policy itself is stateless, so the copy is cheap and concurrent calls do
// not share the hook.
func (p *Processor) retryFor(transactionID, gateway string) *resilience.Policy {
	policy := *p.retry
	policy.OnRetry = func(attempt int, err error) {
		observability.RecordPaymentRetry(gateway, "payment")
		p.logger.Warn("Retrying payment",
			ports.String("transaction_id", transactionID),
			ports.String("gateway", gateway),
			ports.Int("attempt", attempt),
			ports.Err(err))
	}
	return &policy
}

func metricGateway(tx *domain.Transaction) string {
	if tx.GatewayUsed == "" {
		return "none"
	}
	return tx.GatewayUsed
}

// isInterrupt reports whether err is the caller's cancellation rather than a
// gateway outcome
func isInterrupt(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
