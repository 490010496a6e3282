// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Conflict policies for bulk registrant imports.
const (
	PolicyInsertOnly  = "insert_only"
	PolicyUpsertOnKey = "upsert_on_key"
)

// allowedConflictKeys lists the unique column sets the registry store enforces.
// The key is checked here once instead of being discovered by trial writes.
var allowedConflictKeys = map[string]bool{
	"vpa":       true,
	"phone,vpa": true,
	"id":        true,
}

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Store    StoreConfig
	Import   ImportConfig
	Delete   DeleteConfig
	Match    MatchConfig
	Registry RegistryConfig
	Runs     RunConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing a response (default: 2m)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"2m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 2m)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"2m"`

	// MaxUploadSize is the largest accepted import or statement file in bytes (default: 10MB)
	MaxUploadSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"10485760"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required for the postgres backend)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// StoreConfig selects and bounds the registry store.
type StoreConfig struct {
	// Backend is "postgres" or "memory" (default: postgres)
	Backend string `env:"STORE_BACKEND" default:"postgres"`

	// PageLimit is the largest page the store returns per fetch (default: 1000)
	PageLimit int `env:"STORE_PAGE_LIMIT" default:"1000"`

	// FilterLimit is the most ids the store accepts in one delete call (default: 1000)
	FilterLimit int `env:"STORE_FILTER_LIMIT" default:"1000"`
}

// ImportConfig holds bulk registrant import settings.
type ImportConfig struct {
	// MaxBatchSize is the number of records written per store call (default: 1000)
	MaxBatchSize int `env:"IMPORT_MAX_BATCH_SIZE" default:"1000"`

	// MaxRecords rejects an import wholesale above this many accepted records (default: 3000)
	MaxRecords int `env:"IMPORT_MAX_RECORDS" default:"3000"`

	// ConflictPolicy is insert_only or upsert_on_key (default: upsert_on_key)
	ConflictPolicy string `env:"IMPORT_CONFLICT_POLICY" default:"upsert_on_key"`

	// ConflictKey is the unique column set used by upsert_on_key (default: phone,vpa)
	ConflictKey []string `env:"IMPORT_CONFLICT_KEY" default:"phone,vpa"`

	// HeaderSynonymsFile optionally extends the built-in header synonym table (YAML)
	HeaderSynonymsFile string `env:"HEADER_SYNONYMS_FILE"`
}

// DeleteConfig holds bulk delete settings.
type DeleteConfig struct {
	// MaxBatchSize is the number of ids sent per delete call (default: 1000)
	MaxBatchSize int `env:"DELETE_MAX_BATCH_SIZE" default:"1000"`
}

// MatchConfig holds reconciliation settings.
type MatchConfig struct {
	// ChunkSize is the number of transactions matched between progress reports (default: 500)
	ChunkSize int `env:"MATCH_CHUNK_SIZE" default:"500"`
}

// RegistryConfig holds registry snapshot settings.
type RegistryConfig struct {
	// CacheTTL is how long a fetched registrant snapshot is reused (default: 5m, 0 disables)
	CacheTTL time.Duration `env:"REGISTRY_CACHE_TTL" default:"5m"`

	// FetchPageSize is the page size used when paging the whole registry (default: 1000)
	FetchPageSize int `env:"REGISTRY_FETCH_PAGE_SIZE" default:"1000"`

	// RefreshInterval reloads the snapshot in the background (default: 0, disabled)
	RefreshInterval time.Duration `env:"REGISTRY_REFRESH_INTERVAL" default:"0s"`
}

// RunConfig bounds concurrent import and delete runs.
type RunConfig struct {
	// MaxConcurrent is the maximum number of parallel runs (default: 2)
	MaxConcurrent int `env:"MAX_CONCURRENT_RUNS" default:"2"`

	// MaxWait is how long to wait for a run slot (default: 30s)
	MaxWait time.Duration `env:"RUN_MAX_WAIT" default:"30s"`
}

// SecurityConfig holds request trust settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// ConflictKeyString returns the conflict key in its canonical comma form.
func (c *ImportConfig) ConflictKeyString() string {
	return strings.Join(c.ConflictKey, ",")
}
