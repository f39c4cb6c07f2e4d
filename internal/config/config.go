package config

import (
	"fmt"
	"net"
	"os"
	"time"

	pkgconfig "github.com/utafrali/storefront/pkg/config"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config holds all configuration for the storefront service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort      int  `env:"STOREFRONT_HTTP_PORT" envDefault:"8010"`
	SecureCookies bool `env:"SECURE_COOKIES" envDefault:"false"`

	// Storage
	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"memory"`
	StoreTTLHours  int    `env:"STORE_TTL_HOURS" envDefault:"168"`
	HandoffTTLMins int    `env:"HANDOFF_TTL_MINUTES" envDefault:"30"`
	// MemoryQuotaBytes caps the in-memory backend. Zero means unlimited.
	MemoryQuotaBytes int `env:"MEMORY_QUOTA_BYTES" envDefault:"0"`
	PurgeIntervalMin int `env:"PURGE_INTERVAL_MINUTES" envDefault:"10"`

	// Redis
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// PostgreSQL
	PostgresHost          string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort          int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser          string `env:"POSTGRES_USER" envDefault:"storefront"`
	PostgresPass          string `env:"POSTGRES_PASSWORD" envDefault:"storefront"`
	PostgresDB            string `env:"POSTGRES_DB" envDefault:"storefront"`
	PostgresSSL           string `env:"POSTGRES_SSLMODE" envDefault:"disable"`
	DBMaxConns            int32  `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns            int32  `env:"DB_MIN_CONNS" envDefault:"1"`
	DBMaxConnLifetimeMins int    `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int    `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`
	SlowQueryThresholdMs  int    `env:"SLOW_QUERY_THRESHOLD_MS" envDefault:"200"`

	// Catalog
	CatalogDir        string `env:"CATALOG_DIR" envDefault:"./assets/data"`
	CatalogBaseURL    string `env:"CATALOG_BASE_URL" envDefault:""`
	CatalogCacheSize  int    `env:"CATALOG_CACHE_SIZE" envDefault:"128"`
	CatalogMaxAgeSecs int    `env:"CATALOG_MAX_AGE_SECONDS" envDefault:"3600"`
	CatalogWatch      bool   `env:"CATALOG_WATCH" envDefault:"true"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Checkout completion rate limit, per shopper
	CheckoutRateRPS   float64 `env:"CHECKOUT_RATE_RPS" envDefault:"0.2"`
	CheckoutRateBurst int     `env:"CHECKOUT_RATE_BURST" envDefault:"3"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`
}

// Load reads configuration from the environment, after seeding it from the
// dotenv file named by ENV_FILE (default .env) when that file exists.
func Load() (*Config, error) {
	file := os.Getenv("ENV_FILE")
	if file == "" {
		file = ".env"
	}

	cfg := &Config{}
	if err := pkgconfig.LoadWithDotenv(cfg, file); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// StoreTTL is how long an idle cart or wishlist survives.
func (c *Config) StoreTTL() time.Duration { return time.Duration(c.StoreTTLHours) * time.Hour }

// HandoffTTL is how long a started checkout survives.
func (c *Config) HandoffTTL() time.Duration { return time.Duration(c.HandoffTTLMins) * time.Minute }

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	switch c.StorageBackend {
	case BackendMemory, BackendPostgres:
	case BackendRedis:
		if _, _, err := net.SplitHostPort(c.RedisAddr); err != nil {
			return fmt.Errorf("REDIS_ADDR %q: %w", c.RedisAddr, err)
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be one of memory, redis, postgres; got %q", c.StorageBackend)
	}
	if c.StoreTTLHours < 1 {
		return fmt.Errorf("STORE_TTL_HOURS must be positive, got %d", c.StoreTTLHours)
	}
	if c.HandoffTTLMins < 1 {
		return fmt.Errorf("HANDOFF_TTL_MINUTES must be positive, got %d", c.HandoffTTLMins)
	}
	if c.CatalogCacheSize < 1 {
		return fmt.Errorf("CATALOG_CACHE_SIZE must be positive, got %d", c.CatalogCacheSize)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}
	if c.CheckoutRateRPS <= 0 {
		return fmt.Errorf("CHECKOUT_RATE_RPS must be positive, got %g", c.CheckoutRateRPS)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %g", c.OTELSampleRate)
	}
	return nil
}
