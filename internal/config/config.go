package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Cache     CacheConfig     `json:"cache"`
	Tracing   TracingConfig   `json:"tracing"`
	Security  SecurityConfig  `json:"security"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	Parser    ParserConfig    `json:"parser"`
	Analysis  AnalysisConfig  `json:"analysis"`
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port string `json:"port"`
	Host string `json:"host"`
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Path string `json:"path"`
}

// CacheConfig holds result-cache configuration. With no Redis address the
// service falls back to the in-memory cache.
type CacheConfig struct {
	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db"`
	TTLSeconds    int    `json:"ttl_seconds"`
}

// TracingConfig holds OpenTelemetry/Jaeger configuration.
type TracingConfig struct {
	Enabled     bool   `json:"enabled"`
	Endpoint    string `json:"endpoint"`
	ServiceName string `json:"service_name"`
	Environment string `json:"environment"`
}

// SecurityConfig holds security-related configuration.
type SecurityConfig struct {
	// Max request body size in bytes (default: 50MB, the record streams
	// arrive in bulk).
	MaxRequestBodySize int64 `json:"max_request_body_size"`
	// Allowed CORS origins (comma-separated)
	AllowedOrigins string `json:"allowed_origins"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool `json:"enabled"`
	Rate    int  `json:"rate"`
	Window  int  `json:"window"` // in seconds
}

// ParserConfig configures the semantic description-parsing fallback. An
// empty endpoint disables the fallback and regex stands alone.
type ParserConfig struct {
	FallbackEndpoint string `json:"fallback_endpoint"`
}

// AnalysisConfig carries the engine policy constants. The representative
// tie-break and the per-restaurant budget cutoffs are policy, not algorithm,
// so they live here rather than in code branches.
type AnalysisConfig struct {
	RedemptionWindowMinutes int     `json:"redemption_window_minutes"`
	BaselineWeeks           int     `json:"baseline_weeks"`
	ReportingWeeks          int     `json:"reporting_weeks"`
	ZeroBaselineSentinel    float64 `json:"zero_baseline_sentinel"`
	// DefaultBudgetCutoff is an RFC3339 instant; budget accrual ignores
	// activations starting before it.
	DefaultBudgetCutoff string `json:"default_budget_cutoff"`
	// BudgetCutoffOverrides maps an exact restaurant name to its own
	// RFC3339 cutoff.
	BudgetCutoffOverrides map[string]string `json:"budget_cutoff_overrides"`
	// ContactMinConfidence is the fuzzy-match threshold for email
	// enrichment.
	ContactMinConfidence float64 `json:"contact_min_confidence"`
}

// LoadConfig loads configuration from environment variables and/or config
// file. Environment variables take precedence over config file values.
func LoadConfig(configFile string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", ""),
		},
		Database: DatabaseConfig{
			Path: getEnv("DATABASE_PATH", "./activation_analytics.db"),
		},
		Cache: CacheConfig{
			RedisAddr:     getEnv("REDIS_ADDR", ""),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("REDIS_DB", 0),
			TTLSeconds:    getEnvInt("CACHE_TTL_SECONDS", 600),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvBool("TRACING_ENABLED", false),
			Endpoint:    getEnv("TRACING_ENDPOINT", "http://localhost:14268/api/traces"),
			ServiceName: getEnv("TRACING_SERVICE_NAME", "activation-analytics"),
			Environment: getEnv("TRACING_ENVIRONMENT", "development"),
		},
		Security: SecurityConfig{
			MaxRequestBodySize: getEnvInt64("MAX_REQUEST_BODY_SIZE", 50<<20),
			AllowedOrigins:     getEnv("ALLOWED_ORIGINS", "*"),
		},
		RateLimit: RateLimitConfig{
			Enabled: getEnvBool("RATE_LIMIT_ENABLED", true),
			Rate:    getEnvInt("RATE_LIMIT_RATE", 100),
			Window:  getEnvInt("RATE_LIMIT_WINDOW", 60),
		},
		Parser: ParserConfig{
			FallbackEndpoint: getEnv("PARSER_FALLBACK_ENDPOINT", ""),
		},
		Analysis: AnalysisConfig{
			RedemptionWindowMinutes: getEnvInt("REDEMPTION_WINDOW_MINUTES", 60),
			BaselineWeeks:           getEnvInt("BASELINE_WEEKS", 4),
			ReportingWeeks:          getEnvInt("REPORTING_WEEKS", 2),
			ZeroBaselineSentinel:    999.0,
			DefaultBudgetCutoff:     getEnv("DEFAULT_BUDGET_CUTOFF", ""),
			BudgetCutoffOverrides:   map[string]string{},
			ContactMinConfidence:    0.70,
		},
	}

	// Load from config file if provided
	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		// Environment variables take precedence over file values.
		overrideFromEnv(cfg)
	}

	return cfg, nil
}

// loadFromFile loads configuration from a JSON file.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, cfg)
}

// overrideFromEnv overrides configuration with environment variables.
func overrideFromEnv(cfg *Config) {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Server.Port = port
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if dbPath := os.Getenv("DATABASE_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Cache.RedisAddr = addr
	}
	if endpoint := os.Getenv("TRACING_ENDPOINT"); endpoint != "" {
		cfg.Tracing.Endpoint = endpoint
	}
	if enabled := os.Getenv("TRACING_ENABLED"); enabled != "" {
		cfg.Tracing.Enabled = enabled == "true" || enabled == "1"
	}
	if maxBodySize := os.Getenv("MAX_REQUEST_BODY_SIZE"); maxBodySize != "" {
		if size, err := strconv.ParseInt(maxBodySize, 10, 64); err == nil {
			cfg.Security.MaxRequestBodySize = size
		}
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.Security.AllowedOrigins = origins
	}
	if enabled := os.Getenv("RATE_LIMIT_ENABLED"); enabled != "" {
		cfg.RateLimit.Enabled = enabled == "true" || enabled == "1"
	}
	if rate := os.Getenv("RATE_LIMIT_RATE"); rate != "" {
		if r, err := strconv.Atoi(rate); err == nil {
			cfg.RateLimit.Rate = r
		}
	}
	if window := os.Getenv("RATE_LIMIT_WINDOW"); window != "" {
		if w, err := strconv.Atoi(window); err == nil {
			cfg.RateLimit.Window = w
		}
	}
	if endpoint := os.Getenv("PARSER_FALLBACK_ENDPOINT"); endpoint != "" {
		cfg.Parser.FallbackEndpoint = endpoint
	}
	if cutoff := os.Getenv("DEFAULT_BUDGET_CUTOFF"); cutoff != "" {
		cfg.Analysis.DefaultBudgetCutoff = cutoff
	}
}

// getEnv gets an environment variable or returns the default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable or returns the default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns the default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvInt64 gets an int64 environment variable or returns the default value.
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

// BudgetCutoffs parses the configured cutoff instants. Unset or unparseable
// values leave the zero time, meaning all activations accrue.
func (c *Config) BudgetCutoffs() (time.Time, map[string]time.Time) {
	parse := func(s string) time.Time {
		if s == "" {
			return time.Time{}
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}
		}
		return t
	}

	overrides := make(map[string]time.Time, len(c.Analysis.BudgetCutoffOverrides))
	for name, raw := range c.Analysis.BudgetCutoffOverrides {
		if t := parse(raw); !t.IsZero() {
			overrides[name] = t
		}
	}
	return parse(c.Analysis.DefaultBudgetCutoff), overrides
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.Rate <= 0 {
			return fmt.Errorf("rate limit rate must be positive")
		}
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("rate limit window must be positive")
		}
	}
	if c.Analysis.RedemptionWindowMinutes <= 0 {
		return fmt.Errorf("redemption window must be positive")
	}
	if c.Analysis.BaselineWeeks <= 0 {
		return fmt.Errorf("baseline weeks must be positive")
	}
	if c.Analysis.ReportingWeeks <= 0 {
		return fmt.Errorf("reporting weeks must be positive")
	}
	if c.Analysis.ContactMinConfidence < 0 || c.Analysis.ContactMinConfidence > 1 {
		return fmt.Errorf("contact min confidence must be within [0, 1]")
	}
	if c.Analysis.DefaultBudgetCutoff != "" {
		if _, err := time.Parse(time.RFC3339, c.Analysis.DefaultBudgetCutoff); err != nil {
			return fmt.Errorf("default budget cutoff must be RFC3339: %w", err)
		}
	}
	for name, raw := range c.Analysis.BudgetCutoffOverrides {
		if _, err := time.Parse(time.RFC3339, raw); err != nil {
			return fmt.Errorf("budget cutoff override for %q must be RFC3339: %w", name, err)
		}
	}
	return nil
}
