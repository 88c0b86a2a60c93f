package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("loads with defaults when no env vars set", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "8080", cfg.Server.Port)
		assert.Equal(t, "development", cfg.Server.Environment)
		assert.Equal(t, []string{SourceLocalIndex, SourceStaticCatalog}, cfg.Sources.Enabled)
		assert.Equal(t, 5*time.Second, cfg.Sources.Timeout)
		assert.Equal(t, 8, cfg.Sources.PoolSize)
		assert.Equal(t, 5*time.Minute, cfg.Cache.Search.TTL)
		assert.Equal(t, 1000, cfg.Cache.Search.MaxSize)
		assert.Equal(t, time.Hour, cfg.Cache.Product.TTL)
		assert.Equal(t, 500, cfg.Cache.Product.MaxSize)
		assert.Equal(t, 30*time.Minute, cfg.Cache.Similar.TTL)
		assert.Equal(t, time.Minute, cfg.Cache.CleanupInterval)
		assert.True(t, cfg.Vector.Enabled)
		assert.Equal(t, 3, cfg.Vector.MinResults)
		assert.Equal(t, "hash", cfg.Vector.Embedder.Provider)
		assert.Equal(t, "sqlite", cfg.Store.Driver)
		assert.True(t, cfg.Store.Seed)
		assert.Equal(t, 100, cfg.RateLimit.PerIP)
		assert.Equal(t, "info", cfg.Log.Level)
	})

	t.Run("loads custom values from environment variables", func(t *testing.T) {
		t.Setenv("DEALSCOUT_SERVER_PORT", "9090")
		t.Setenv("DEALSCOUT_SERVER_ENVIRONMENT", "production")
		t.Setenv("DEALSCOUT_SOURCES_ENABLED", "retailer_a,static_catalog")
		t.Setenv("DEALSCOUT_SOURCES_TIMEOUT", "2s")
		t.Setenv("DEALSCOUT_SOURCES_RETAILER_A_API_KEY", "secret")
		t.Setenv("DEALSCOUT_SOURCES_RETAILER_A_RATE_PER_SECOND", "2.5")
		t.Setenv("DEALSCOUT_CACHE_SEARCH_TTL", "10m")
		t.Setenv("DEALSCOUT_VECTOR_ENABLED", "false")
		t.Setenv("DEALSCOUT_STORE_DSN", ":memory:")
		t.Setenv("DEALSCOUT_RATELIMIT_PER_IP", "30")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9090", cfg.Server.Port)
		assert.Equal(t, "production", cfg.Server.Environment)
		assert.Equal(t, []string{SourceRetailerA, SourceStaticCatalog}, cfg.Sources.Enabled)
		assert.Equal(t, 2*time.Second, cfg.Sources.Timeout)
		assert.Equal(t, "secret", cfg.Sources.RetailerA.APIKey)
		assert.Equal(t, 2.5, cfg.Sources.RetailerA.RatePerSecond)
		assert.Equal(t, 10*time.Minute, cfg.Cache.Search.TTL)
		assert.False(t, cfg.Vector.Enabled)
		assert.Equal(t, ":memory:", cfg.Store.DSN)
		assert.Equal(t, 30, cfg.RateLimit.PerIP)
		assert.True(t, cfg.Sources.IsEnabled(SourceRetailerA))
		assert.False(t, cfg.Sources.IsEnabled(SourceRetailerB))
	})

	t.Run("fails when an enabled retailer has no API key", func(t *testing.T) {
		t.Setenv("DEALSCOUT_SOURCES_ENABLED", "retailer_b")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "retailer_b API key is required")
	})
}

func validConfig() Config {
	return Config{
		Log: LogConfig{Level: "info", Format: "auto"},
		Sources: SourcesConfig{
			Enabled: []string{SourceStaticCatalog},
			Timeout: 5 * time.Second,
		},
		Cache: CacheConfig{
			Search:  CacheInstanceConfig{TTL: time.Minute, MaxSize: 10},
			Product: CacheInstanceConfig{TTL: time.Minute, MaxSize: 10},
			Similar: CacheInstanceConfig{TTL: time.Minute, MaxSize: 10},
		},
		Vector: VectorConfig{Embedder: EmbedderConfig{Provider: "hash", Dimensions: 64}},
		Store:  StoreConfig{Driver: "sqlite", DSN: ":memory:"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{
			name:    "no sources",
			mutate:  func(c *Config) { c.Sources.Enabled = nil },
			wantErr: "at least one source",
		},
		{
			name:    "unknown source",
			mutate:  func(c *Config) { c.Sources.Enabled = []string{"scraper"} },
			wantErr: "unknown source",
		},
		{
			name:    "retailer without key",
			mutate:  func(c *Config) { c.Sources.Enabled = []string{SourceRetailerA} },
			wantErr: "retailer_a API key",
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.Sources.Timeout = 0 },
			wantErr: "timeout must be positive",
		},
		{
			name:    "zero cache size",
			mutate:  func(c *Config) { c.Cache.Similar.MaxSize = 0 },
			wantErr: "cache similar max_size",
		},
		{
			name:    "bad embedder provider",
			mutate:  func(c *Config) { c.Vector.Embedder.Provider = "magic" },
			wantErr: "embedder provider",
		},
		{
			name:    "bad store driver",
			mutate:  func(c *Config) { c.Store.Driver = "mysql" },
			wantErr: "store driver",
		},
		{
			name:    "empty dsn",
			mutate:  func(c *Config) { c.Store.DSN = "" },
			wantErr: "store DSN",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: "log format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := validate(&cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), err.Error())
		})
	}
}
