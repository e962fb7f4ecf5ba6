package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("NOTIFY_BACKEND", "")
	t.Setenv("DELAY_SWEEP_INTERVAL", "")

	cfg := Load()

	assert.Equal(t, StoreBackendPostgres, cfg.Store.Backend)
	assert.Equal(t, NotifyBackendLog, cfg.Notify.Backend)
	assert.Equal(t, time.Minute, cfg.Sweep.Interval)
	assert.Equal(t, 3, cfg.Database.MaxAttempts)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("NOTIFY_BACKEND", "nats")
	t.Setenv("DEFAULT_DIESEL_PRICE", "6.25")
	t.Setenv("DELAY_SWEEP_INTERVAL", "15s")
	t.Setenv("METRICS_ENABLED", "false")

	cfg := Load()

	assert.Equal(t, StoreBackendMemory, cfg.Store.Backend)
	assert.Equal(t, NotifyBackendNATS, cfg.Notify.Backend)
	assert.Equal(t, 6.25, cfg.Pricing.DefaultDieselPrice)
	assert.Equal(t, 15*time.Second, cfg.Sweep.Interval)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("DB_TX_MAX_ATTEMPTS", "many")
	t.Setenv("DEFAULT_DIESEL_PRICE", "cheap")

	cfg := Load()

	assert.Equal(t, 3, cfg.Database.MaxAttempts)
	assert.Equal(t, 0.0, cfg.Pricing.DefaultDieselPrice)
}
