package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.WebhookPort)
	assert.Equal(t, 9090, cfg.Server.MetricsPort)
	assert.Equal(t, 45, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, 0.95, cfg.Sandbox.AvailabilityRate)
	assert.Equal(t, 30, cfg.Traffic.PaymentTimeout)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("WEBHOOK_PORT", "8181")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_DEVELOPMENT", "true")
	t.Setenv("TRAFFIC_REFUND_RATE", "0.5")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 8181, cfg.Server.WebhookPort)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.True(t, cfg.Logger.Development)
	assert.Equal(t, 0.5, cfg.Traffic.RefundRate)
}

// Unparseable values fall back to defaults rather than failing the load
func TestLoadFromEnv_MalformedValuesUseDefaults(t *testing.T) {
	t.Setenv("METRICS_PORT", "not-a-number")
	t.Setenv("SANDBOX_AVAILABILITY_RATE", "most of the time")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.MetricsPort)
	assert.Equal(t, 0.95, cfg.Sandbox.AvailabilityRate)
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		env    map[string]string
		errHas string
	}{
		{
			name:   "webhook_port_out_of_range",
			env:    map[string]string{"WEBHOOK_PORT": "70000"},
			errHas: "WEBHOOK_PORT",
		},
		{
			name:   "port_collision",
			env:    map[string]string{"WEBHOOK_PORT": "9090"},
			errHas: "METRICS_PORT",
		},
		{
			name:   "refund_rate_above_one",
			env:    map[string]string{"TRAFFIC_REFUND_RATE": "1.5"},
			errHas: "TRAFFIC_REFUND_RATE",
		},
		{
			name:   "negative_conversion_rate",
			env:    map[string]string{"TRAFFIC_CONVERSION_RATE": "-0.1"},
			errHas: "TRAFFIC_CONVERSION_RATE",
		},
		{
			name:   "zero_traffic_interval",
			env:    map[string]string{"TRAFFIC_INTERVAL_MS": "0"},
			errHas: "TRAFFIC_INTERVAL_MS",
		},
		{
			name:   "negative_rate_limit",
			env:    map[string]string{"WEBHOOK_RATE_LIMIT": "-1"},
			errHas: "WEBHOOK_RATE_LIMIT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadFromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errHas)
		})
	}
}
