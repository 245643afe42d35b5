package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	pkgconfig "github.com/utafrali/TradeCatalog/pkg/config"
	"github.com/utafrali/TradeCatalog/pkg/database"
)

// Storage drivers.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds all configuration for the catalog service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"json"`

	// HTTP server
	HTTPPort           int      `env:"CATALOG_HTTP_PORT" envDefault:"8001"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	CacheMaxAgeSeconds int      `env:"CATALOG_CACHE_MAX_AGE_SECONDS" envDefault:"0"`

	// Storage
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"postgres"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"catalog"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"catalog_secret"`
	PostgresDB   string `env:"CATALOG_DB_NAME" envDefault:"catalog_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`

	// Redis
	RedisEnabled     bool          `env:"REDIS_ENABLED" envDefault:"true"`
	RedisAddr        string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword    string        `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB          int           `env:"REDIS_DB" envDefault:"0"`
	ProductCacheTTL  time.Duration `env:"PRODUCT_CACHE_TTL" envDefault:"5m"`
	SupplierCacheTTL time.Duration `env:"SUPPLIER_CACHE_TTL" envDefault:"10m"`

	// Kafka
	KafkaEnabled     bool     `env:"KAFKA_ENABLED" envDefault:"true"`
	KafkaBrokers     []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaGroupPrefix string   `env:"KAFKA_GROUP_PREFIX" envDefault:"catalog"`

	// User directory
	UserServiceURL     string        `env:"USER_SERVICE_URL" envDefault:"http://localhost:8002"`
	UserServiceTimeout time.Duration `env:"USER_SERVICE_TIMEOUT" envDefault:"3s"`

	// Auth. Without a secret the gateway identity headers are trusted.
	JWTSecret string `env:"JWT_SECRET" envDefault:""`

	// Rate limiting for write endpoints. Zero disables it.
	WriteRateLimitPerMinute int `env:"WRITE_RATE_LIMIT_PER_MINUTE" envDefault:"60"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load catalog config: %w", err)
	}
	return cfg, nil
}

// Validate checks ranges and cross-field constraints.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP port: %d", c.HTTPPort))
	}
	switch c.StorageDriver {
	case StoragePostgres:
		if c.PostgresHost == "" {
			errs = append(errs, errors.New("POSTGRES_HOST is required"))
		}
		if c.PostgresUser == "" {
			errs = append(errs, errors.New("POSTGRES_USER is required"))
		}
		if c.DBMinConns > c.DBMaxConns {
			errs = append(errs, fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns))
		}
	case StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", StoragePostgres, StorageMemory, c.StorageDriver))
	}
	if c.RedisEnabled && c.RedisAddr == "" {
		errs = append(errs, errors.New("REDIS_ADDR is required when REDIS_ENABLED is set"))
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is set"))
	}
	if strings.TrimSpace(c.UserServiceURL) == "" {
		errs = append(errs, errors.New("USER_SERVICE_URL is required"))
	}
	if c.UserServiceTimeout <= 0 {
		errs = append(errs, errors.New("USER_SERVICE_TIMEOUT must be positive"))
	}
	if c.WriteRateLimitPerMinute < 0 {
		errs = append(errs, errors.New("WRITE_RATE_LIMIT_PER_MINUTE must not be negative"))
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		errs = append(errs, fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate))
	}
	return errors.Join(errs...)
}

// Postgres returns the connection pool settings.
func (c *Config) Postgres() database.PostgresConfig {
	return database.PostgresConfig{
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPass,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSL,
		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		MaxConnLifetime: time.Duration(c.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(c.DBMaxConnIdleTimeMins) * time.Minute,
	}
}

// SlowQueryThreshold returns the slow query logging threshold.
func (c *Config) SlowQueryThreshold() time.Duration {
	return time.Duration(c.SlowQueryThresholdMs) * time.Millisecond
}
