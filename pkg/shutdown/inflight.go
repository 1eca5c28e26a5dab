package shutdown

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// InFlightTracker counts work that must finish before the process exits.
// Producers call Add before starting a unit and Done when it completes;
// once Shutdown runs, Add refuses new work.
type InFlightTracker struct {
	wg       sync.WaitGroup
	draining chan struct{}
	logger   *zap.Logger
	name     string
}

// NewInFlightTracker creates a tracker identified by name in logs.
func NewInFlightTracker(name string, logger *zap.Logger) *InFlightTracker {
	return &InFlightTracker{
		draining: make(chan struct{}),
		logger:   logger,
		name:     name,
	}
}

// Add reserves one unit of in-flight work. Returns false once draining has
// begun; callers must not start the work in that case.
func (t *InFlightTracker) Add() bool {
	select {
	case <-t.draining:
		return false
	default:
		t.wg.Add(1)
		return true
	}
}

// Done releases one unit reserved by Add.
func (t *InFlightTracker) Done() {
	t.wg.Done()
}

// IsShuttingDown reports whether Shutdown has been called.
func (t *InFlightTracker) IsShuttingDown() bool {
	select {
	case <-t.draining:
		return true
	default:
		return false
	}
}

// Shutdown stops admitting work and waits for the in-flight units. Returns
// the context error if the deadline passes first.
func (t *InFlightTracker) Shutdown(ctx context.Context) error {
	close(t.draining)

	t.logger.Info("Draining in-flight work", zap.String("tracker", t.name))

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("In-flight work drained", zap.String("tracker", t.name))
		return nil
	case <-ctx.Done():
		t.logger.Warn("Drain deadline passed with work outstanding",
			zap.String("tracker", t.name),
		)
		return ctx.Err()
	}
}

// BackgroundWorker runs one long-lived goroutine tied to a cancellable
// context. The work function must return promptly after ctx is done.
type BackgroundWorker struct {
	name     string
	logger   *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewBackgroundWorker creates a worker identified by name in logs.
func NewBackgroundWorker(name string, logger *zap.Logger) *BackgroundWorker {
	ctx, cancel := context.WithCancel(context.Background())
	return &BackgroundWorker{
		name:   name,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches the worker goroutine.
func (w *BackgroundWorker) Start(work func(ctx context.Context)) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.logger.Info("Worker started", zap.String("worker", w.name))
		work(w.ctx)
		w.logger.Info("Worker stopped", zap.String("worker", w.name))
	}()
}

// Stop cancels the worker context and waits for the goroutine. Safe to call
// more than once.
func (w *BackgroundWorker) Stop() {
	w.stopOnce.Do(func() {
		w.cancel()
		w.wg.Wait()
	})
}

// Shutdown stops the worker, honoring the deadline carried by ctx.
func (w *BackgroundWorker) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		w.logger.Warn("Worker did not stop before deadline",
			zap.String("worker", w.name),
		)
		return ctx.Err()
	}
}

// PeriodicWorker runs a function immediately and then on a fixed interval.
type PeriodicWorker struct {
	*BackgroundWorker
	interval time.Duration
}

// NewPeriodicWorker creates a periodic worker with the given interval.
func NewPeriodicWorker(name string, interval time.Duration, logger *zap.Logger) *PeriodicWorker {
	return &PeriodicWorker{
		BackgroundWorker: NewBackgroundWorker(name, logger),
		interval:         interval,
	}
}

// Start begins the periodic loop. The first run happens right away.
func (pw *PeriodicWorker) Start(work func(ctx context.Context)) {
	pw.BackgroundWorker.Start(func(ctx context.Context) {
		ticker := time.NewTicker(pw.interval)
		defer ticker.Stop()

		work(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				work(ctx)
			}
		}
	})
}
