// Package config loads host configuration from the environment. The
// orchestration core takes no configuration; everything here tunes the
// simulator host that wires it.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all host configuration
type Config struct {
	Server  ServerConfig
	Logger  LoggerConfig
	Sandbox SandboxConfig
	Traffic TrafficConfig
}

// ServerConfig holds the webhook and metrics HTTP listeners
type ServerConfig struct {
	Host            string
	WebhookPort     int     // gateway notification receiver
	MetricsPort     int
	ShutdownTimeout int     // seconds to drain in-flight work on SIGINT/SIGTERM
	RateLimitRPS    float64 // per-IP webhook request rate
	RateLimitBurst  int
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level       string // debug, info, warn, error
	Development bool
}

// SandboxConfig tunes the simulated provider behavior shared by the
// sandbox gateway instances the host builds
type SandboxConfig struct {
	LatencyMs         int     // simulated provider round trip per API call
	AvailabilityRate  float64 // probability a probe reports available
	RequestsPerSecond float64 // per-gateway token bucket refill rate; 0 disables limiting
	Burst             int     // token bucket size
}

// TrafficConfig tunes the random traffic driver
type TrafficConfig struct {
	IntervalMs     int     // pause between simulated payments
	PaymentTimeout int     // per-payment context deadline in seconds
	RefundRate     float64 // share of processed payments that get refunded
	ConversionRate float64 // share of payments submitted cross-currency
	CleanupSeconds int     // period of the terminal-lock cleanup sweep
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			WebhookPort:     getEnvAsInt("WEBHOOK_PORT", 8080),
			MetricsPort:     getEnvAsInt("METRICS_PORT", 9090),
			ShutdownTimeout: getEnvAsInt("SHUTDOWN_TIMEOUT", 45),
			RateLimitRPS:    getEnvAsFloat("WEBHOOK_RATE_LIMIT", 20),
			RateLimitBurst:  getEnvAsInt("WEBHOOK_RATE_BURST", 40),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
		Sandbox: SandboxConfig{
			LatencyMs:         getEnvAsInt("SANDBOX_LATENCY_MS", 20),
			AvailabilityRate:  getEnvAsFloat("SANDBOX_AVAILABILITY_RATE", 0.95),
			RequestsPerSecond: getEnvAsFloat("SANDBOX_RPS", 50),
			Burst:             getEnvAsInt("SANDBOX_BURST", 10),
		},
		Traffic: TrafficConfig{
			IntervalMs:     getEnvAsInt("TRAFFIC_INTERVAL_MS", 500),
			PaymentTimeout: getEnvAsInt("TRAFFIC_PAYMENT_TIMEOUT", 30),
			RefundRate:     getEnvAsFloat("TRAFFIC_REFUND_RATE", 0.2),
			ConversionRate: getEnvAsFloat("TRAFFIC_CONVERSION_RATE", 0.25),
			CleanupSeconds: getEnvAsInt("CLEANUP_INTERVAL", 60),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the host cannot run with
func (c *Config) Validate() error {
	if c.Server.WebhookPort <= 0 || c.Server.WebhookPort > 65535 {
		return fmt.Errorf("WEBHOOK_PORT %d is out of range", c.Server.WebhookPort)
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("METRICS_PORT %d is out of range", c.Server.MetricsPort)
	}
	if c.Server.WebhookPort == c.Server.MetricsPort {
		return fmt.Errorf("WEBHOOK_PORT and METRICS_PORT are both %d", c.Server.WebhookPort)
	}
	if c.Server.RateLimitRPS <= 0 {
		return fmt.Errorf("WEBHOOK_RATE_LIMIT must be positive, got %v", c.Server.RateLimitRPS)
	}
	if c.Sandbox.AvailabilityRate < 0 || c.Sandbox.AvailabilityRate > 1 {
		return fmt.Errorf("SANDBOX_AVAILABILITY_RATE %v is not in [0, 1]", c.Sandbox.AvailabilityRate)
	}
	if c.Traffic.RefundRate < 0 || c.Traffic.RefundRate > 1 {
		return fmt.Errorf("TRAFFIC_REFUND_RATE %v is not in [0, 1]", c.Traffic.RefundRate)
	}
	if c.Traffic.ConversionRate < 0 || c.Traffic.ConversionRate > 1 {
		return fmt.Errorf("TRAFFIC_CONVERSION_RATE %v is not in [0, 1]", c.Traffic.ConversionRate)
	}
	if c.Traffic.IntervalMs <= 0 {
		return fmt.Errorf("TRAFFIC_INTERVAL_MS must be positive, got %d", c.Traffic.IntervalMs)
	}
	if c.Traffic.PaymentTimeout <= 0 {
		return fmt.Errorf("TRAFFIC_PAYMENT_TIMEOUT must be positive, got %d", c.Traffic.PaymentTimeout)
	}
	if c.Traffic.CleanupSeconds <= 0 {
		return fmt.Errorf("CLEANUP_INTERVAL must be positive, got %d", c.Traffic.CleanupSeconds)
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
