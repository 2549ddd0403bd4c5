// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Pricing  PricingConfig
	Exchange ExchangeConfig
	Writes   WriteConfig
	Import   ImportConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Ledger   LedgerConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// Store backends.
const (
	BackendMemory   = "memory"
	BackendXLSX     = "xlsx"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMySQL    = "mysql"
)

// StoreConfig selects and tunes the sheet store.
type StoreConfig struct {
	// Backend is one of memory, xlsx, postgres, sqlite, mysql (default: xlsx)
	Backend string `env:"STORE_BACKEND" default:"xlsx"`

	// Path is the workbook or sqlite file (default: registro.xlsx)
	Path string `env:"STORE_PATH" default:"registro.xlsx"`

	// ReadAttempts is how many times a failed read is tried (default: 3)
	ReadAttempts int `env:"STORE_READ_ATTEMPTS" default:"3"`

	// ReadBackoff is the wait before the first retry, doubled each time (default: 1s)
	ReadBackoff time.Duration `env:"STORE_READ_BACKOFF" default:"1s"`

	// WriteAttempts is how many times a conflicting append is re-applied (default: 3)
	WriteAttempts int `env:"STORE_WRITE_ATTEMPTS" default:"3"`

	// CacheTTL is how long a read snapshot is served from cache; 0 disables (default: 10s)
	CacheTTL time.Duration `env:"STORE_CACHE_TTL" default:"10s"`

	// LockTTL bounds how long a sheet lock is held (default: 15s)
	LockTTL time.Duration `env:"STORE_LOCK_TTL" default:"15s"`

	// LockWait is how long to wait for a busy sheet (default: 5s)
	LockWait time.Duration `env:"STORE_LOCK_WAIT" default:"5s"`
}

// DatabaseConfig holds database connection settings for the postgres and
// mysql backends.
type DatabaseConfig struct {
	// URL is the connection string, required for postgres and mysql.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// RedisConfig enables the shared snapshot cache and sheet lock.
type RedisConfig struct {
	// Address is host:port; empty keeps cache and lock in process
	Address string `env:"REDIS_ADDRESS" envAlt:"REDIS_ADDR"`

	Password string `env:"REDIS_PASSWORD"`

	DB int `env:"REDIS_DB" default:"0"`
}

// Enabled reports whether a Redis server is configured.
func (c RedisConfig) Enabled() bool {
	return c.Address != ""
}

// PricingConfig holds the order pricing constants.
type PricingConfig struct {
	// TaxMultiplier is applied to the gross USD cost (default: 1.0825)
	TaxMultiplier decimal.Decimal `env:"PRICING_TAX_MULTIPLIER" default:"1.0825"`

	// CommissionRate is charged on the taxed cost in MXN (default: 0.12)
	CommissionRate decimal.Decimal `env:"PRICING_COMMISSION_RATE" default:"0.12"`

	// MarkupFactor converts the taxed cost into the purchase cost in MXN (default: 19.5)
	MarkupFactor decimal.Decimal `env:"PRICING_MARKUP_FACTOR" default:"19.5"`

	// PaidSnapTarget is the amount recorded as received when an order is paid:
	// sale or total (default: sale)
	PaidSnapTarget string `env:"PAID_SNAP_TARGET" default:"sale"`
}

// ExchangeConfig configures the USD to MXN rate lookup.
type ExchangeConfig struct {
	// URL is the rate endpoint (default: the public open.er-api.com endpoint)
	URL string `env:"EXCHANGE_URL"`

	// FallbackRate is used when the lookup fails (default: 18.50)
	FallbackRate decimal.Decimal `env:"EXCHANGE_FALLBACK_RATE" default:"18.50"`

	// Timeout bounds a single lookup (default: 5s)
	Timeout time.Duration `env:"EXCHANGE_TIMEOUT" default:"5s"`

	// CacheTTL is how long a good quote is reused (default: 1h)
	CacheTTL time.Duration `env:"EXCHANGE_CACHE_TTL" default:"1h"`

	// RefreshInterval is how often the background job refreshes the rate (default: 30m)
	RefreshInterval time.Duration `env:"EXCHANGE_REFRESH_INTERVAL" default:"30m"`
}

// WriteConfig bounds concurrent sheet mutations.
type WriteConfig struct {
	// MaxConcurrent is the maximum number of mutations in flight (default: 5)
	MaxConcurrent int `env:"WRITE_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long to wait for a write slot (default: 30s)
	MaxWaitTime time.Duration `env:"WRITE_MAX_WAIT_TIME" default:"30s"`
}

// ImportConfig holds CSV import settings.
type ImportConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 10MB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"10485760"`

	// Timeout is the maximum duration for a single import (default: 2m)
	Timeout time.Duration `env:"IMPORT_TIMEOUT" default:"2m"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// ImportLimit is requests per minute for import endpoints (default: 10)
	ImportLimit int `env:"RATE_LIMIT_IMPORT" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey protects /api with the X-API-Key header (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// LedgerConfig holds ledger behaviour settings.
type LedgerConfig struct {
	// DeleteConfirmTTL is how long a delete confirmation stays valid (default: 5m)
	DeleteConfirmTTL time.Duration `env:"DELETE_CONFIRM_TTL" default:"5m"`

	// Locale formats amounts on the pages (default: es-MX)
	Locale string `env:"LOCALE" default:"es-MX"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
