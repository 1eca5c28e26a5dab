// The simulator wires the orchestration core against in-memory gateways and
// drives random payment traffic through it. It exists to exercise the whole
// stack end to end: routing, retries, idempotent replay, refunds, webhook
// notifications, cleanup, and the metrics surface.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ledgerline/payment-orchestrator/internal/adapters/bridge"
	"github.com/ledgerline/payment-orchestrator/internal/adapters/guard"
	"github.com/ledgerline/payment-orchestrator/internal/adapters/rates"
	"github.com/ledgerline/payment-orchestrator/internal/adapters/sandbox"
	"github.com/ledgerline/payment-orchestrator/internal/adapters/validation"
	"github.com/ledgerline/payment-orchestrator/internal/config"
	"github.com/ledgerline/payment-orchestrator/internal/domain"
	"github.com/ledgerline/payment-orchestrator/internal/services/processor"
	"github.com/ledgerline/payment-orchestrator/internal/services/router"
	"github.com/ledgerline/payment-orchestrator/pkg/logging"
	"github.com/ledgerline/payment-orchestrator/pkg/middleware"
	"github.com/ledgerline/payment-orchestrator/pkg/observability"
	"github.com/ledgerline/payment-orchestrator/pkg/resilience"
	"github.com/ledgerline/payment-orchestrator/pkg/shutdown"
)

// Seeded source accounts per currency. Shapes satisfy the validator's
// per-currency account patterns.
const (
	usdSourceAccount      = "1234567890"
	usdDestinationAccount = "0987654321"
	eurSourceAccount      = "DE44500105175407324931"
	eurDestinationAccount = "FR1420041010050500013M02606"
	rubSourceAccount      = "40817810099910004312"
	rubDestinationAccount = "40817810099910004313"
)

func main() {
	// .env before anything reads the environment; absence is fine
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Logger)
	defer logger.Sync()
	portLogger := logging.NewZapLogger(logger)

	logger.Info("Starting payment orchestration simulator",
		zap.String("version", "0.1.0"),
	)

	timeouts := resilience.DefaultTimeoutConfig()
	timeouts.Shutdown = time.Duration(cfg.Server.ShutdownTimeout) * time.Second
	timeouts.Payment = time.Duration(cfg.Traffic.PaymentTimeout) * time.Second

	deps := initDependencies(cfg, logger, portLogger)

	logger.Info("Gateway pool ready",
		zap.Strings("gateways", deps.router.Names()),
	)

	// Health reflects breaker state so /health flips while a gateway is open
	health := observability.NewHealthChecker()
	for _, g := range deps.guards {
		g := g
		health.Register("gateway_"+g.Name(), func(ctx context.Context) error {
			if g.State() == resilience.StateOpen {
				return fmt.Errorf("circuit breaker open")
			}
			return nil
		})
	}

	// Producers register after the sinks they feed, so the drain order is
	// traffic, in-flight payments, cleanup, listeners.
	manager := shutdown.NewManager(logger, timeouts.Shutdown)

	metricsServer := observability.StartMetricsServer(
		strconv.Itoa(cfg.Server.MetricsPort), health, portLogger)
	manager.RegisterHTTPServer("metrics_server", metricsServer)
	logger.Info("Metrics server listening", zap.Int("port", cfg.Server.MetricsPort))

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, logger)
	manager.Register("webhook_rate_limiter", func(context.Context) error {
		limiter.Shutdown()
		return nil
	})

	webhookServer := startWebhookServer(cfg.Server, timeouts, limiter, deps.processor, logger)
	manager.RegisterHTTPServer("webhook_server", webhookServer)

	cleanup := shutdown.NewPeriodicWorker("lock_cleanup",
		time.Duration(cfg.Traffic.CleanupSeconds)*time.Second, logger)
	cleanup.Start(func(ctx context.Context) {
		released := deps.processor.Cleanup()
		logger.Debug("Cleanup sweep", zap.Int("locks_released", released))
	})
	manager.Register("lock_cleanup", cleanup.Shutdown)

	payments := shutdown.NewInFlightTracker("payments", logger)
	manager.Register("in_flight_payments", payments.Shutdown)

	traffic := shutdown.NewBackgroundWorker("traffic_driver", logger)
	traffic.Start(func(ctx context.Context) {
		runTraffic(ctx, cfg.Traffic, timeouts, deps, payments, logger)
	})
	manager.Register("traffic_driver", traffic.Shutdown)

	manager.WaitForShutdown()
	logger.Info("Simulator stopped")
}

// dependencies holds the wired core and the handles the driver needs
type dependencies struct {
	processor   *processor.Processor
	router      *router.Router
	guards      []*guard.GatewayGuard
	legacyName  string
	statusProbe *bridge.IdempotencyAdapter
}

// initDependencies builds the gateway pool and the processor around it.
//
// AlphaPay and BetaPay are modern sandbox gateways, each exposed through the
// legacy contract by the reverse bridge and wrapped in a circuit-breaker
// guard. LegacyPay is a plain boolean-contract gateway registered directly;
// the forward bridge over it feeds the status probe the traffic driver logs.
func initDependencies(cfg *config.Config, logger *zap.Logger, portLogger *logging.ZapLoggerAdapter) *dependencies {
	balances := validation.NewInMemoryBalanceService()
	balances.Deposit(usdSourceAccount, decimal.NewFromInt(1_000_000), domain.CurrencyUSD)
	balances.Deposit(eurSourceAccount, decimal.NewFromInt(1_000_000), domain.CurrencyEUR)
	balances.Deposit(rubSourceAccount, decimal.NewFromInt(100_000_000), domain.CurrencyRUB)

	latency := time.Duration(cfg.Sandbox.LatencyMs) * time.Millisecond

	alpha := sandbox.New(sandbox.Config{
		Name:              "AlphaPay",
		Commission:        decimal.RequireFromString("0.015"),
		Currencies:        []domain.Currency{domain.CurrencyUSD, domain.CurrencyEUR},
		Latency:           latency,
		AvailabilityRate:  cfg.Sandbox.AvailabilityRate,
		RequestsPerSecond: cfg.Sandbox.RequestsPerSecond,
		Burst:             cfg.Sandbox.Burst,
	}, logger)

	beta := sandbox.New(sandbox.Config{
		Name:              "BetaPay",
		Commission:        decimal.RequireFromString("0.012"),
		Currencies:        []domain.Currency{domain.CurrencyEUR, domain.CurrencyRUB},
		Latency:           latency,
		AvailabilityRate:  cfg.Sandbox.AvailabilityRate,
		RequestsPerSecond: cfg.Sandbox.RequestsPerSecond,
		Burst:             cfg.Sandbox.Burst,
	}, logger)

	breakerCfg := resilience.DefaultBreakerConfig()
	guardedAlpha := guard.New(bridge.NewLegacyAdapter(alpha), breakerCfg, logger)
	guardedBeta := guard.New(bridge.NewLegacyAdapter(beta), breakerCfg, logger)

	legacy := newLegacyDemoGateway()

	pool := router.New(portLogger)
	pool.Register(guardedAlpha)
	pool.Register(guardedBeta)
	pool.Register(legacy)

	proc := processor.New(
		validation.New(balances),
		pool,
		rates.NewService(rates.NewStaticSource(), logger),
		nil, // production retry policy: 3 retries, 2s/4s/8s
		portLogger,
	)

	return &dependencies{
		processor:   proc,
		router:      pool,
		guards:      []*guard.GatewayGuard{guardedAlpha, guardedBeta},
		legacyName:  legacy.Name(),
		statusProbe: bridge.NewIdempotencyAdapter(legacy),
	}
}

// initLogger builds the zap logger from config
func initLogger(cfg config.LoggerConfig) *zap.Logger {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, _ := zapCfg.Build()
	return logger
}

// startWebhookServer serves the gateway notification endpoint. Gateways post
// status updates here out of band; unknown transactions are accepted and
// dropped by the processor, so the endpoint never reveals which IDs exist.
func startWebhookServer(cfg config.ServerConfig, timeouts *resilience.TimeoutConfig, limiter *middleware.RateLimiter, proc *processor.Processor, logger *zap.Logger) *http.Server {
	r := chi.NewRouter()
	r.Use(limiter.Middleware)

	r.Post("/notifications/{transactionID}", func(w http.ResponseWriter, req *http.Request) {
		transactionID := chi.URLParam(req, "transactionID")

		var payload struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil || payload.Status == "" {
			http.Error(w, `body must be {"status": "..."}`, http.StatusBadRequest)
			return
		}

		proc.HandleNotification(transactionID, payload.Status)
		w.WriteHeader(http.StatusAccepted)
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.WebhookPort),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: timeouts.Notification,
	}

	go func() {
		logger.Info("Webhook server listening", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to serve webhooks", zap.Error(err))
		}
	}()

	return server
}

// trafficPlan is one sampled payment the driver will submit
type trafficPlan struct {
	request        *domain.PaymentRequest
	target         domain.Currency // CurrencyUnspecified for same-currency payments
	refund         bool
	refundFraction decimal.Decimal
}

// runTraffic submits a random payment every interval until ctx is cancelled.
// Sampling happens on the ticker goroutine; execution fans out so slow
// payments (retries back off for seconds) do not stall the schedule. Each
// payment runs on its own deadline detached from ctx, so work admitted
// before shutdown drains instead of being cancelled mid-flight.
func runTraffic(ctx context.Context, cfg config.TrafficConfig, timeouts *resilience.TimeoutConfig, deps *dependencies, inflight *shutdown.InFlightTracker, logger *zap.Logger) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ticker := time.NewTicker(time.Duration(cfg.IntervalMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !inflight.Add() {
				return
			}
			plan := nextPlan(rng, cfg)
			go func() {
				defer inflight.Done()
				runPayment(plan, timeouts, deps, logger)
			}()
		}
	}
}

// nextPlan samples a payment: currency, amount within validator limits, an
// occasional cross-currency conversion, and an occasional follow-up refund
func nextPlan(rng *rand.Rand, cfg config.TrafficConfig) trafficPlan {
	currencies := []domain.Currency{domain.CurrencyUSD, domain.CurrencyEUR, domain.CurrencyRUB}
	currency := currencies[rng.Intn(len(currencies))]

	var req *domain.PaymentRequest
	switch currency {
	case domain.CurrencyUSD:
		req = &domain.PaymentRequest{
			Amount:             decimal.NewFromInt(int64(5 + rng.Intn(2000))),
			Currency:           currency,
			SourceAccount:      usdSourceAccount,
			DestinationAccount: usdDestinationAccount,
		}
	case domain.CurrencyEUR:
		req = &domain.PaymentRequest{
			Amount:             decimal.NewFromInt(int64(5 + rng.Intn(2000))),
			Currency:           currency,
			SourceAccount:      eurSourceAccount,
			DestinationAccount: eurDestinationAccount,
		}
	default:
		req = &domain.PaymentRequest{
			Amount:             decimal.NewFromInt(int64(100 + rng.Intn(200_000))),
			Currency:           currency,
			SourceAccount:      rubSourceAccount,
			DestinationAccount: rubDestinationAccount,
		}
	}
	req.Metadata = map[string]string{"origin": "simulator"}

	plan := trafficPlan{request: req, target: domain.CurrencyUnspecified}

	if rng.Float64() < cfg.ConversionRate {
		others := make([]domain.Currency, 0, 2)
		for _, c := range currencies {
			if c != currency {
				others = append(others, c)
			}
		}
		plan.target = others[rng.Intn(len(others))]
	}

	if rng.Float64() < cfg.RefundRate {
		plan.refund = true
		// quarter, half, three quarters, or full refund
		plan.refundFraction = decimal.New(int64(1+rng.Intn(4)), 0).Div(decimal.New(4, 0))
	}

	return plan
}

// runPayment drives one plan through the processor and logs the outcome
func runPayment(plan trafficPlan, timeouts *resilience.TimeoutConfig, deps *dependencies, logger *zap.Logger) {
	payCtx, cancel := timeouts.PaymentContext(context.Background())
	defer cancel()

	transactionID := uuid.NewString()

	var tx *domain.Transaction
	var err error
	if plan.target != domain.CurrencyUnspecified {
		tx, err = deps.processor.ProcessWithConversion(payCtx, plan.request, transactionID, plan.target)
	} else {
		tx, err = deps.processor.Process(payCtx, plan.request, transactionID)
	}
	if err != nil {
		logger.Warn("Payment did not complete",
			zap.String("transaction_id", transactionID),
			zap.Error(err))
		return
	}

	logger.Info("Payment settled",
		zap.String("transaction_id", transactionID),
		zap.String("status", string(tx.Status)),
		zap.String("gateway", tx.GatewayUsed),
		zap.String("currency", tx.Request.Currency.String()),
		zap.String("amount", domain.DisplayAmount(tx.Request.Amount).String()),
		zap.String("commission", tx.Commission.String()))

	if tx.Status != domain.TransactionStatusProcessed {
		return
	}

	// Legacy gateways cannot answer status queries; probing one shows the
	// NOT_SUPPORTED mapping the forward bridge reports
	if tx.GatewayUsed == deps.legacyName {
		probeCtx, probeCancel := timeouts.ProbeContext(payCtx)
		result, probeErr := deps.statusProbe.GetPaymentStatus(probeCtx, transactionID)
		probeCancel()
		if probeErr == nil {
			logger.Debug("Legacy status probe",
				zap.String("transaction_id", transactionID),
				zap.String("error_code", result.ErrorCode))
		}
	}

	if plan.refund {
		amount := domain.DisplayAmount(tx.Request.Amount.Mul(plan.refundFraction))
		refunded, refundErr := deps.processor.Refund(payCtx, transactionID, amount)
		if refundErr != nil {
			logger.Warn("Refund did not complete",
				zap.String("transaction_id", transactionID),
				zap.Error(refundErr))
			return
		}
		// Gateways behind the reverse bridge decline refunds: the bridge
		// mints gateway-side IDs per call, so the provider cannot tie the
		// refund back to its recorded payment. LegacyPay refunds directly.
		if refunded.Status == domain.TransactionStatusRefunded {
			logger.Info("Refund settled",
				zap.String("transaction_id", transactionID),
				zap.String("amount", amount.String()))
		} else {
			logger.Info("Refund declined",
				zap.String("transaction_id", transactionID),
				zap.String("gateway", tx.GatewayUsed),
				zap.String("amount", amount.String()))
		}
	}
}

// legacyDemoGateway is a minimal boolean-contract gateway, standing in for
// the pre-migration providers the forward bridge exists for. It approves
// most payments and fails the rest, without idempotency: the processor's
// transaction log is what makes replays safe on top of it.
type legacyDemoGateway struct {
	name        string
	commissions map[domain.Currency]decimal.Decimal
	sample      func() float64
}

func newLegacyDemoGateway() *legacyDemoGateway {
	var mu sync.Mutex
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &legacyDemoGateway{
		name: "LegacyPay",
		commissions: map[domain.Currency]decimal.Decimal{
			domain.CurrencyUSD: decimal.RequireFromString("0.02"),
			domain.CurrencyRUB: decimal.RequireFromString("0.02"),
		},
		sample: func() float64 {
			mu.Lock()
			defer mu.Unlock()
			return rng.Float64()
		},
	}
}

func (g *legacyDemoGateway) Name() string {
	return g.name
}

func (g *legacyDemoGateway) SupportsCurrency(c domain.Currency) bool {
	_, ok := g.commissions[c]
	return ok
}

func (g *legacyDemoGateway) IsAvailable(ctx context.Context) bool {
	return g.sample() < 0.9
}

func (g *legacyDemoGateway) GetCommission(ctx context.Context, c domain.Currency) (decimal.Decimal, error) {
	rate, ok := g.commissions[c]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%s: no commission for currency %s", g.name, c)
	}
	return rate, nil
}

func (g *legacyDemoGateway) ProcessPayment(ctx context.Context, req *domain.PaymentRequest) (bool, error) {
	s := g.sample()
	switch {
	case s < 0.80:
		return true, nil
	case s < 0.90:
		return false, fmt.Errorf("legacy gateway timeout")
	default:
		return false, nil
	}
}

func (g *legacyDemoGateway) Refund(ctx context.Context, transactionID string, amount decimal.Decimal) (bool, error) {
	return g.sample() < 0.9, nil
}
