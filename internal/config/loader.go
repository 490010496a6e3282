package config

import (
	"fmt"
	"os"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
// Returns an error if required values are missing or validation fails.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration and panics on error.
// Use this only in main() where early termination is desired.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// loadStruct recursively populates struct fields from environment variables.
func loadStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		// Skip unexported fields
		if !fieldVal.CanSet() {
			continue
		}

		// Recurse into nested structs
		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := loadStruct(fieldVal); err != nil {
				return err
			}
			continue
		}

		// Get tags
		envName := field.Tag.Get("env")
		envAlt := field.Tag.Get("envAlt")
		defaultVal := field.Tag.Get("default")
		required := field.Tag.Get("required") == "true"

		if envName == "" {
			continue
		}

		// Try primary env var, then alternate
		value := os.Getenv(envName)
		if value == "" && envAlt != "" {
			value = os.Getenv(envAlt)
		}

		// Apply default if not set
		if value == "" {
			if required {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = defaultVal
		}

		if value == "" {
			continue
		}

		// Set the field value
		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		// Handle time.Duration specially
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			// Split comma-separated values, trim whitespace
			parts := strings.Split(value, ",")
			result := make([]string, 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p != "" {
					result = append(result, p)
				}
			}
			field.Set(reflect.ValueOf(result))
		} else {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}


// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Store validation
	switch strings.ToLower(c.Store.Backend) {
	case BackendPostgres:
		if c.Database.URL == "" {
			errs = append(errs, "DATABASE_URL is required when STORE_BACKEND=postgres")
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Sprintf("STORE_BACKEND (%q) must be one of: postgres, memory", c.Store.Backend))
	}
	if c.Store.PageLimit <= 0 {
		errs = append(errs, "STORE_PAGE_LIMIT must be positive")
	}
	if c.Store.FilterLimit <= 0 {
		errs = append(errs, "STORE_FILTER_LIMIT must be positive")
	}

	// Database validation
	if c.Database.MaxConns < c.Database.MinConns {
		errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
			c.Database.MaxConns, c.Database.MinConns))
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}
	if c.Database.MinConns < 0 {
		errs = append(errs, "DB_MIN_CONNS must be non-negative")
	}

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
	if c.Server.MaxUploadSize <= 0 {
		errs = append(errs, "UPLOAD_MAX_FILE_SIZE must be positive")
	}

	// Import validation
	if c.Import.MaxBatchSize <= 0 {
		errs = append(errs, "IMPORT_MAX_BATCH_SIZE must be positive")
	}
	if c.Import.MaxRecords <= 0 {
		errs = append(errs, "IMPORT_MAX_RECORDS must be positive")
	}
	switch c.Import.ConflictPolicy {
	case PolicyInsertOnly:
	case PolicyUpsertOnKey:
		key := normalizeKey(c.Import.ConflictKey)
		if !allowedConflictKeys[strings.Join(key, ",")] {
			errs = append(errs, fmt.Sprintf("IMPORT_CONFLICT_KEY (%q) must be one of: vpa, phone,vpa, id",
				strings.Join(c.Import.ConflictKey, ",")))
		} else {
			c.Import.ConflictKey = key
		}
	default:
		errs = append(errs, fmt.Sprintf("IMPORT_CONFLICT_POLICY (%q) must be one of: insert_only, upsert_on_key",
			c.Import.ConflictPolicy))
	}

	// Delete and match validation
	if c.Delete.MaxBatchSize <= 0 {
		errs = append(errs, "DELETE_MAX_BATCH_SIZE must be positive")
	}
	if c.Delete.MaxBatchSize > c.Store.FilterLimit {
		errs = append(errs, fmt.Sprintf("DELETE_MAX_BATCH_SIZE (%d) must be <= STORE_FILTER_LIMIT (%d)",
			c.Delete.MaxBatchSize, c.Store.FilterLimit))
	}
	if c.Match.ChunkSize <= 0 {
		errs = append(errs, "MATCH_CHUNK_SIZE must be positive")
	}

	// Registry validation
	if c.Registry.CacheTTL < 0 {
		errs = append(errs, "REGISTRY_CACHE_TTL must be non-negative")
	}
	if c.Registry.FetchPageSize <= 0 {
		errs = append(errs, "REGISTRY_FETCH_PAGE_SIZE must be positive")
	}
	if c.Registry.RefreshInterval < 0 {
		errs = append(errs, "REGISTRY_REFRESH_INTERVAL must be non-negative")
	}

	// Run limiter validation
	if c.Runs.MaxConcurrent <= 0 {
		errs = append(errs, "MAX_CONCURRENT_RUNS must be positive")
	}
	if c.Runs.MaxWait <= 0 {
		errs = append(errs, "RUN_MAX_WAIT must be positive")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// normalizeKey lowercases and sorts conflict key columns so "VPA, phone"
// and "phone,vpa" name the same constraint.
func normalizeKey(cols []string) []string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" {
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

// String returns a safe string representation of the config for logging.
// Sensitive values like database URLs are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port))
	b.WriteString(fmt.Sprintf("Store: {Backend: %q, Database: [MASKED]}, ", c.Store.Backend))
	b.WriteString(fmt.Sprintf("Import: {MaxBatchSize: %d, MaxRecords: %d, Policy: %q, Key: %q}, ",
		c.Import.MaxBatchSize, c.Import.MaxRecords, c.Import.ConflictPolicy, c.Import.ConflictKeyString()))
	b.WriteString(fmt.Sprintf("Delete: {MaxBatchSize: %d}, Match: {ChunkSize: %d}, ",
		c.Delete.MaxBatchSize, c.Match.ChunkSize))
	b.WriteString(fmt.Sprintf("Security: {TrustedProxies: %d, EnableCSP: %t}, ",
		len(c.Security.TrustedProxies), c.Security.EnableCSP))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
