package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Source names accepted in sources.enabled
const (
	SourceRetailerA     = "retailer_a"
	SourceRetailerB     = "retailer_b"
	SourceLocalIndex    = "local_index"
	SourceStaticCatalog = "static_catalog"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Vector    VectorConfig    `mapstructure:"vector"`
	Store     StoreConfig     `mapstructure:"store"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LogConfig selects level and output format ("json", "text" or "auto")
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SourcesConfig holds the product source settings
type SourcesConfig struct {
	Enabled       []string       `mapstructure:"enabled"`
	Timeout       time.Duration  `mapstructure:"timeout"`
	PoolSize      int            `mapstructure:"pool_size"`
	RetailerA     RetailerConfig `mapstructure:"retailer_a"`
	RetailerB     RetailerConfig `mapstructure:"retailer_b"`
	StaticCatalog string         `mapstructure:"static_catalog"` // optional YAML path; empty uses the embedded catalog
}

// RetailerConfig holds one retailer API's settings
type RetailerConfig struct {
	BaseURL       string  `mapstructure:"base_url"`
	APIKey        string  `mapstructure:"api_key"`
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	Burst         int     `mapstructure:"burst"`
}

// CacheConfig holds the three response caches
type CacheConfig struct {
	Search          CacheInstanceConfig `mapstructure:"search"`
	Product         CacheInstanceConfig `mapstructure:"product"`
	Similar         CacheInstanceConfig `mapstructure:"similar"`
	CleanupInterval time.Duration       `mapstructure:"cleanup_interval"`
}

// CacheInstanceConfig sizes one cache
type CacheInstanceConfig struct {
	TTL     time.Duration `mapstructure:"ttl"`
	MaxSize int           `mapstructure:"max_size"`
}

// VectorConfig holds the semantic search tier settings
type VectorConfig struct {
	Enabled    bool           `mapstructure:"enabled"`
	TopK       int            `mapstructure:"top_k"`
	MinResults int            `mapstructure:"min_results"`
	Embedder   EmbedderConfig `mapstructure:"embedder"`
}

// EmbedderConfig selects the embedding provider ("hash" or "openai")
type EmbedderConfig struct {
	Provider   string `mapstructure:"provider"`
	Host       string `mapstructure:"host"`
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api_key"`
	Dimensions int    `mapstructure:"dimensions"`
	CacheSize  int    `mapstructure:"cache_size"`
}

// StoreConfig holds the SQL product store settings
type StoreConfig struct {
	Driver string `mapstructure:"driver"` // "sqlite" or "postgres"
	DSN    string `mapstructure:"dsn"`
	Seed   bool   `mapstructure:"seed"` // load the static catalog into an empty store
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute
}

// Load loads configuration from an optional .env file, environment variables
// and config files
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/dealscout/")

	// DEALSCOUT_SOURCES_RETAILER_A_API_KEY -> sources.retailer_a.api_key
	v.SetEnvPrefix("DEALSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "auto")

	// Source defaults
	v.SetDefault("sources.enabled", []string{SourceLocalIndex, SourceStaticCatalog})
	v.SetDefault("sources.timeout", "5s")
	v.SetDefault("sources.pool_size", 8)
	v.SetDefault("sources.static_catalog", "")
	v.SetDefault("sources.retailer_a.base_url", "https://api.retailer-a.example.com")
	v.SetDefault("sources.retailer_a.api_key", "")
	v.SetDefault("sources.retailer_a.rate_per_second", 5.0)
	v.SetDefault("sources.retailer_a.burst", 5)
	v.SetDefault("sources.retailer_b.base_url", "https://api.retailer-b.example.com")
	v.SetDefault("sources.retailer_b.api_key", "")
	v.SetDefault("sources.retailer_b.rate_per_second", 5.0)
	v.SetDefault("sources.retailer_b.burst", 5)

	// Cache defaults
	v.SetDefault("cache.search.ttl", "5m")
	v.SetDefault("cache.search.max_size", 1000)
	v.SetDefault("cache.product.ttl", "1h")
	v.SetDefault("cache.product.max_size", 500)
	v.SetDefault("cache.similar.ttl", "30m")
	v.SetDefault("cache.similar.max_size", 500)
	v.SetDefault("cache.cleanup_interval", "1m")

	// Vector defaults
	v.SetDefault("vector.enabled", true)
	v.SetDefault("vector.top_k", 20)
	v.SetDefault("vector.min_results", 3)
	v.SetDefault("vector.embedder.provider", "hash")
	v.SetDefault("vector.embedder.host", "http://localhost:11434/v1")
	v.SetDefault("vector.embedder.model", "nomic-embed-text")
	v.SetDefault("vector.embedder.api_key", "")
	v.SetDefault("vector.embedder.dimensions", 256)
	v.SetDefault("vector.embedder.cache_size", 1000)

	// Store defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "file:dealscout.db?_pragma=busy_timeout(5000)")
	v.SetDefault("store.seed", true)

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)
}

// validate validates the configuration
func validate(config *Config) error {
	if len(config.Sources.Enabled) == 0 {
		return fmt.Errorf("at least one source must be enabled")
	}
	for _, name := range config.Sources.Enabled {
		switch name {
		case SourceRetailerA:
			if config.Sources.RetailerA.APIKey == "" {
				return fmt.Errorf("retailer_a API key is required (set DEALSCOUT_SOURCES_RETAILER_A_API_KEY)")
			}
		case SourceRetailerB:
			if config.Sources.RetailerB.APIKey == "" {
				return fmt.Errorf("retailer_b API key is required (set DEALSCOUT_SOURCES_RETAILER_B_API_KEY)")
			}
		case SourceLocalIndex, SourceStaticCatalog:
		default:
			return fmt.Errorf("unknown source %q", name)
		}
	}

	if config.Sources.Timeout <= 0 {
		return fmt.Errorf("sources timeout must be positive, got: %s", config.Sources.Timeout)
	}

	for name, c := range map[string]CacheInstanceConfig{
		"search":  config.Cache.Search,
		"product": config.Cache.Product,
		"similar": config.Cache.Similar,
	} {
		if c.MaxSize <= 0 {
			return fmt.Errorf("cache %s max_size must be positive, got: %d", name, c.MaxSize)
		}
		if c.TTL <= 0 {
			return fmt.Errorf("cache %s ttl must be positive, got: %s", name, c.TTL)
		}
	}

	if config.Vector.Embedder.Provider != "hash" && config.Vector.Embedder.Provider != "openai" {
		return fmt.Errorf("embedder provider must be 'hash' or 'openai', got: %s", config.Vector.Embedder.Provider)
	}
	if config.Vector.Embedder.Dimensions <= 0 {
		return fmt.Errorf("embedder dimensions must be positive, got: %d", config.Vector.Embedder.Dimensions)
	}

	if config.Store.Driver != "sqlite" && config.Store.Driver != "postgres" {
		return fmt.Errorf("store driver must be 'sqlite' or 'postgres', got: %s", config.Store.Driver)
	}
	if config.Store.DSN == "" {
		return fmt.Errorf("store DSN is required (set DEALSCOUT_STORE_DSN)")
	}

	switch config.Log.Format {
	case "auto", "json", "text":
	default:
		return fmt.Errorf("log format must be 'auto', 'json' or 'text', got: %s", config.Log.Format)
	}

	return nil
}

// IsEnabled reports whether the named source is enabled
func (c *SourcesConfig) IsEnabled(name string) bool {
	for _, n := range c.Enabled {
		if n == name {
			return true
		}
	}
	return false
}
