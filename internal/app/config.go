package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Storage backends for cart slots.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Catalog sources.
const (
	CatalogStatic   = "static"
	CatalogPostgres = "postgres"
)

// Config holds the complete application configuration, loadable from
// environment variables (NOTIONS_ prefix), flags, or YAML config files.
type Config struct {
	Addr      string `default:"0.0.0.0:8080" usage:"HTTP listen address"`
	Storage   StorageConfig
	Catalog   CatalogConfig
	Cart      CartConfig
	Forms     FormsConfig
	Toast     ToastConfig
	CSRF      CSRFConfig
	Visitor   VisitorConfig
	RateLimit RateLimitConfig
	Graceful  GracefulConfig
}

// StorageConfig selects where cart slots live.
type StorageConfig struct {
	Backend     string        `default:"memory" usage:"Cart slot backend: memory, redis, sqlite or postgres"`
	RedisURL    string        `usage:"Redis URL (NOTIONS_STORAGE_REDIS_URL or REDIS_URL)" flag:"redis-url"`
	DatabaseURL string        `usage:"PostgreSQL URL (NOTIONS_STORAGE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	SQLitePath  string        `default:"notions.db" usage:"SQLite database file" flag:"sqlite-path"`
	TTL         time.Duration `default:"720h" usage:"Redis slot expiry, 0 keeps slots forever"`
}

// CatalogConfig selects where products and classes are read from.
type CatalogConfig struct {
	Source           string `default:"static" usage:"Catalog source: static or postgres"`
	FeaturedProducts int    `default:"4" usage:"Products on the home page"`
	FeaturedClasses  int    `default:"2" usage:"Classes on the home page"`
}

// CartConfig controls cart limits and the slot name.
type CartConfig struct {
	MaxQuantity int    `default:"99" usage:"Per-line quantity ceiling"`
	SlotKey     string `default:"ninasNotionsCart" usage:"Storage slot name"`
}

// FormsConfig controls form submission.
type FormsConfig struct {
	Delay    time.Duration `default:"1500ms" usage:"Simulated submission latency, negative disables"`
	StateTTL time.Duration `default:"10m" usage:"How long a submission outcome waits to be rendered"`
}

// ToastConfig controls notifications.
type ToastConfig struct {
	TTL time.Duration `default:"4s" usage:"Toast auto-dismiss delay"`
}

// CSRFConfig controls cross-site request forgery protection of form actions.
type CSRFConfig struct {
	Key            string   `usage:"32-byte CSRF auth key (NOTIONS_CSRF_KEY); random when empty" flag:"csrf-key"`
	Secure         bool     `default:"false" usage:"Serve CSRF and visitor cookies with the Secure flag" flag:"csrf-secure"`
	TrustedOrigins []string `usage:"Extra origins allowed to post forms"`
}

// VisitorConfig controls the visitor id cookie.
type VisitorConfig struct {
	Cookie  string `default:"notions_visitor" usage:"Visitor cookie name"`
	HashKey string `usage:"Visitor cookie signing key (NOTIONS_VISITOR_HASH_KEY); random when empty" flag:"visitor-hash-key"`
}

// RateLimitConfig controls the per-visitor sliding window limit on form
// actions.
type RateLimitConfig struct {
	Max    int           `default:"60" usage:"Max actions per window"`
	Window time.Duration `default:"1m" usage:"Rate limit window duration"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "NOTIONS",
		Files:     []string{"config.yaml", "/etc/notions/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case BackendMemory, BackendSQLite:
	case BackendRedis:
		if c.Storage.RedisURL == "" {
			return errors.New("redis URL is required: set NOTIONS_STORAGE_REDIS_URL or REDIS_URL")
		}
	case BackendPostgres:
		if c.Storage.DatabaseURL == "" {
			return errors.New("database URL is required: set NOTIONS_STORAGE_DATABASE_URL or DATABASE_URL")
		}
	default:
		return errors.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	switch c.Catalog.Source {
	case CatalogStatic:
	case CatalogPostgres:
		if c.Storage.DatabaseURL == "" {
			return errors.New("postgres catalog requires a database URL")
		}
	default:
		return errors.Errorf("unknown catalog source %q", c.Catalog.Source)
	}

	if c.Cart.MaxQuantity < 1 {
		return errors.Errorf("cart max quantity must be positive, got %d", c.Cart.MaxQuantity)
	}
	if c.CSRF.Key != "" && len(c.CSRF.Key) != 32 {
		return errors.Errorf("CSRF key must be 32 bytes, got %d", len(c.CSRF.Key))
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's NOTIONS_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.Storage.DatabaseURL == "" {
		c.Storage.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.Storage.RedisURL == "" {
		c.Storage.RedisURL = os.Getenv("REDIS_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
