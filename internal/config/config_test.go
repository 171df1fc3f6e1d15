package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "0.0.0.0", cfg.ServerHost)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 25, cfg.DBMaxOpenConnections)
	assert.Equal(t, 5, cfg.DBMaxIdleConnections)
	assert.Equal(t, 5*time.Minute, cfg.DBConnMaxLifetime)
	assert.Equal(t, "info", cfg.LogLevel)

	assert.Equal(t, "default", cfg.DefaultTenantID)
	assert.Equal(t, "local", cfg.TupleStoreMode)
	assert.Equal(t, "tenant-{id}", cfg.OpenFGATenantNsTemplate)

	assert.Equal(t, 300*time.Second, cfg.CacheTTL)
	assert.InDelta(t, 0.2, cfg.CacheSweepRatio, 0.001)

	assert.Equal(t, time.Hour, cfg.SessionTokenTTL)
	assert.Equal(t, 10*time.Minute, cfg.JWKSRefreshPeriod)
	assert.Equal(t, time.Hour, cfg.LogoutDenyListTTL)

	assert.Equal(t, 5*time.Minute, cfg.ChallengeTTL)
	assert.Equal(t, 5*time.Minute, cfg.ChallengeSweep)
	assert.Equal(t, 5*time.Minute, cfg.ResourceTokenTTL)

	assert.Equal(t, time.Hour, cfg.RecoveryDefaultTTL)
	assert.Equal(t, time.Minute, cfg.RecoverySweep)

	assert.True(t, cfg.MetricsEnabled)
	assert.Equal(t, "authkeyd", cfg.MetricsNamespace)
	assert.Equal(t, 9090, cfg.MetricsPort)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("TUPLE_STORE_MODE", "per-tenant")
	t.Setenv("OPENFGA_API_URL", "http://openfga:8081")
	t.Setenv("CACHE_TTL", "60")
	t.Setenv("DEFAULT_TENANT_ID", "acme")
	t.Setenv("METRICS_ENABLED", "false")

	cfg := Load()

	assert.Equal(t, 9000, cfg.ServerPort)
	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.Equal(t, "per-tenant", cfg.TupleStoreMode)
	assert.Equal(t, "http://openfga:8081", cfg.OpenFGAAPIURL)
	assert.Equal(t, 60*time.Second, cfg.CacheTTL)
	assert.Equal(t, "acme", cfg.DefaultTenantID)
	assert.False(t, cfg.MetricsEnabled)
}

func TestGetGinMode(t *testing.T) {
	assert.Equal(t, "debug", (&Config{LogLevel: "debug"}).GetGinMode())
	assert.Equal(t, "release", (&Config{LogLevel: "info"}).GetGinMode())
	assert.Equal(t, "release", (&Config{LogLevel: ""}).GetGinMode())
}
