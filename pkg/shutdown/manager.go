// Package shutdown coordinates draining the host process: stop producing
// work, wait out what is in flight, then close the listeners.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	shutdownDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "shutdown_duration_seconds",
		Help:    "Total time taken to shut down gracefully",
		Buckets: []float64{1, 5, 10, 15, 20, 30, 45},
	})

	shutdownErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shutdown_errors_total",
		Help: "Shutdown errors by component",
	}, []string{"component"})
)

// ShutdownFunc drains one component within the deadline carried by ctx.
type ShutdownFunc func(context.Context) error

type component struct {
	name string
	fn   ShutdownFunc
}

// Manager drains registered components in reverse registration order.
// Register producers after the sinks they feed: on shutdown the producer
// stops first and its sink still accepts whatever was in flight.
type Manager struct {
	logger     *zap.Logger
	mu         sync.Mutex
	components []component
	timeout    time.Duration
}

// NewManager creates a shutdown manager with the given drain window.
func NewManager(logger *zap.Logger, timeout time.Duration) *Manager {
	return &Manager{
		logger:  logger,
		timeout: timeout,
	}
}

// Register adds a component. Later registrations drain earlier.
func (sm *Manager) Register(name string, fn ShutdownFunc) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.components = append(sm.components, component{name: name, fn: fn})
}

// RegisterHTTPServer registers an HTTP server by its Shutdown method.
func (sm *Manager) RegisterHTTPServer(name string, server interface{ Shutdown(context.Context) error }) {
	sm.Register(name, server.Shutdown)
}

// WaitForShutdown blocks until SIGINT or SIGTERM, then drains everything.
func (sm *Manager) WaitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	sm.logger.Info("Received shutdown signal",
		zap.String("signal", sig.String()),
		zap.Duration("timeout", sm.timeout),
	)

	sm.Shutdown()
}

// Shutdown drains all components in reverse registration order. Components
// share one deadline; once it passes, the remaining ones are still called
// but see an expired context and are expected to bail out fast.
func (sm *Manager) Shutdown() {
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), sm.timeout)
	defer cancel()

	sm.mu.Lock()
	components := make([]component, len(sm.components))
	copy(components, sm.components)
	sm.mu.Unlock()

	sm.logger.Info("Starting graceful shutdown",
		zap.Int("components", len(components)),
	)

	failed := 0
	for i := len(components) - 1; i >= 0; i-- {
		comp := components[i]
		compStart := time.Now()

		if err := comp.fn(ctx); err != nil {
			failed++
			shutdownErrors.WithLabelValues(comp.name).Inc()
			sm.logger.Error("Component shutdown failed",
				zap.String("component", comp.name),
				zap.Error(err),
				zap.Duration("elapsed", time.Since(compStart)),
			)
			continue
		}

		sm.logger.Debug("Component drained",
			zap.String("component", comp.name),
			zap.Duration("elapsed", time.Since(compStart)),
		)
	}

	elapsed := time.Since(start)
	shutdownDuration.Observe(elapsed.Seconds())

	if failed > 0 {
		sm.logger.Error("Graceful shutdown completed with errors",
			zap.Int("failed", failed),
			zap.Duration("elapsed", elapsed),
		)
		return
	}
	sm.logger.Info("Graceful shutdown complete", zap.Duration("elapsed", elapsed))
}
