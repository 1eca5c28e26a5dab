// Package router selects the gateway that carries a payment. Gateways are
// registered once at wiring time; selection filters the pool by currency
// support and live availability, then ranks by commission.
package router

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/ledgerline/payment-orchestrator/internal/domain"
	"github.com/ledgerline/payment-orchestrator/internal/domain/ports"
	"github.com/ledgerline/payment-orchestrator/pkg/observability"
)

// Router implements ports.GatewayRouter over an ordered gateway pool.
// Registration order is significant: it breaks commission ties.
type Router struct {
	logger ports.Logger

	mu     sync.RWMutex
	pool   []ports.PaymentGateway
	byName map[string]ports.PaymentGateway
}

// New creates an empty router
func New(logger ports.Logger) *Router {
	return &Router{
		logger: logger,
		byName: make(map[string]ports.PaymentGateway),
	}
}

// Register adds a gateway to the pool. Registering a name twice replaces the
// earlier gateway in place, keeping its position in the ranking order.
func (r *Router) Register(gw ports.PaymentGateway) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := gw.Name()
	if _, exists := r.byName[name]; exists {
		for i, pooled := range r.pool {
			if pooled.Name() == name {
				r.pool[i] = gw
				break
			}
		}
	} else {
		r.pool = append(r.pool, gw)
	}
	r.byName[name] = gw

	r.logger.Info("Gateway registered",
		ports.String("gateway", name),
		ports.Int("pool_size", len(r.pool)))
}

// candidate is one gateway that passed filtering, with the commission it
// quoted for the request currency
type candidate struct {
	gateway    ports.PaymentGateway
	commission decimal.Decimal
}

// SelectOptimal implements ports.GatewayRouter.SelectOptimal. The pool is
// snapshotted up front, so registrations during a selection do not shift the
// candidate set. Availability probes and commission quotes run in parallel,
// one goroutine per currency-supporting gateway; a gateway whose commission
// quote fails is excluded rather than failing the whole selection.
func (r *Router) SelectOptimal(ctx context.Context, req *domain.PaymentRequest) (ports.PaymentGateway, error) {
	snapshot := r.snapshot()

	candidates := make([]*candidate, len(snapshot))
	g, gctx := errgroup.WithContext(ctx)

	for i, gw := range snapshot {
		// Pin per-iteration copies: the go directive predates Go 1.22 loopvar
		// scoping, and the closure below must see this iteration's gateway
		i, gw := i, gw
		if !gw.SupportsCurrency(req.Currency) {
			continue
		}

		g.Go(func() error {
			available := gw.IsAvailable(gctx)
			observability.RecordAvailabilityCheck(gw.Name(), available)
			if !available {
				// An unavailable probe and a cancelled caller look the same
				// to the gateway; surface the cancellation, not a miss
				if err := gctx.Err(); err != nil {
					return err
				}
				r.logger.Debug("Gateway unavailable, skipping",
					ports.String("gateway", gw.Name()),
					ports.String("currency", req.Currency.String()))
				return nil
			}

			commission, err := gw.GetCommission(gctx, req.Currency)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				r.logger.Warn("Commission quote failed, excluding gateway",
					ports.String("gateway", gw.Name()),
					ports.String("currency", req.Currency.String()),
					ports.Err(err))
				return nil
			}

			candidates[i] = &candidate{gateway: gw, commission: commission}
			return nil
		})
	}

	// Probes report only the caller's cancellation, never their own misses
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ranked := make([]*candidate, 0, len(candidates))
	for _, c := range candidates {
		if c != nil {
			ranked = append(ranked, c)
		}
	}
	if len(ranked) == 0 {
		observability.RecordRoutingFailure(req.Currency.String())
		return nil, fmt.Errorf("currency %s: %w", req.Currency, domain.ErrNoGatewayAvailable)
	}

	// Stable sort keeps registration order for equal commissions
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].commission.LessThan(ranked[j].commission)
	})

	best := ranked[0]
	observability.RecordGatewaySelection(best.gateway.Name())
	r.logger.Debug("Gateway selected",
		ports.String("gateway", best.gateway.Name()),
		ports.String("currency", req.Currency.String()),
		ports.String("commission", best.commission.String()),
		ports.Int("candidates", len(ranked)))

	return best.gateway, nil
}

// GetByName implements ports.GatewayRouter.GetByName
func (r *Router) GetByName(name string) (ports.PaymentGateway, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	gw, ok := r.byName[name]
	return gw, ok
}

// Names returns the registered gateway names in registration order
func (r *Router) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.pool))
	for i, gw := range r.pool {
		names[i] = gw.Name()
	}
	return names
}

// snapshot copies the pool so one selection call works against a stable set
func (r *Router) snapshot() []ports.PaymentGateway {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make([]ports.PaymentGateway, len(r.pool))
	copy(snapshot, r.pool)
	return snapshot
}
