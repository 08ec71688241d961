package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the analytics API.
type Config struct {
	Server    ServerConfig
	Warehouse WarehouseConfig
	TableAPI  TableAPIConfig
	Executor  ExecutorConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Log       LogConfig
	Metrics   MetricsConfig
	Geo       GeoConfig
}

type ServerConfig struct {
	Addr            string
	Env             string
	ShutdownTimeout time.Duration
}

// WarehouseConfig describes the relational warehouse the direct executor
// runs against. Driver is "postgres" or "clickhouse".
type WarehouseConfig struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// DSN returns the PostgreSQL connection string.
func (w WarehouseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		w.User, w.Password, w.Host, w.Port, w.DBName, w.SSLMode,
	)
}

// Addr returns the host:port pair for the ClickHouse native protocol.
func (w WarehouseConfig) Addr() string {
	return fmt.Sprintf("%s:%d", w.Host, w.Port)
}

// TableAPIConfig describes the single-table REST backend used by the
// emulated executor.
type TableAPIConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// MaxFetchRows caps any single client-side fetch issued by the
	// emulated executor.
	MaxFetchRows int
}

// ExecutorConfig selects which executor serves queries first. Prefer is
// "direct" or "emulated"; Fallback enables routing to the other executor
// when the preferred one is unavailable or cannot run the plan.
type ExecutorConfig struct {
	Prefer       string
	Fallback     bool
	QueryTimeout time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// CacheConfig controls the optional Redis response cache. The cache sits
// in front of the HTTP handlers, never inside the query core.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

type AuthConfig struct {
	Enabled   bool
	MasterKey string
	SkipPaths []string
}

type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// GeoConfig configures GeoIP resolution for audience filters.
type GeoConfig struct {
	Enabled      bool
	DatabasePath string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Addr:            getEnv("CLICKLENS_HTTP_ADDR", ":8080"),
			Env:             getEnv("CLICKLENS_ENV", "development"),
			ShutdownTimeout: getDurationEnv("CLICKLENS_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Warehouse: WarehouseConfig{
			Driver:   getEnv("CLICKLENS_WAREHOUSE_DRIVER", "postgres"),
			Host:     getEnv("CLICKLENS_WAREHOUSE_HOST", "localhost"),
			Port:     getIntEnv("CLICKLENS_WAREHOUSE_PORT", 5432),
			User:     getEnv("CLICKLENS_WAREHOUSE_USER", "clicklens"),
			Password: getEnv("CLICKLENS_WAREHOUSE_PASSWORD", ""),
			DBName:   getEnv("CLICKLENS_WAREHOUSE_NAME", "clicklens"),
			SSLMode:  getEnv("CLICKLENS_WAREHOUSE_SSLMODE", "disable"),
			MaxConns: getIntEnv("CLICKLENS_WAREHOUSE_MAX_CONNS", 25),
			MinConns: getIntEnv("CLICKLENS_WAREHOUSE_MIN_CONNS", 5),
		},
		TableAPI: TableAPIConfig{
			BaseURL:      getEnv("CLICKLENS_TABLE_API_URL", ""),
			APIKey:       getEnv("CLICKLENS_TABLE_API_KEY", ""),
			Timeout:      getDurationEnv("CLICKLENS_TABLE_API_TIMEOUT", 10*time.Second),
			MaxFetchRows: getIntEnv("CLICKLENS_TABLE_API_MAX_FETCH_ROWS", 10000),
		},
		Executor: ExecutorConfig{
			Prefer:       getEnv("CLICKLENS_EXECUTOR_PREFER", "direct"),
			Fallback:     getBoolEnv("CLICKLENS_EXECUTOR_FALLBACK", true),
			QueryTimeout: getDurationEnv("CLICKLENS_QUERY_TIMEOUT", 15*time.Second),
		},
		Redis: RedisConfig{
			Addr:     getEnv("CLICKLENS_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("CLICKLENS_REDIS_PASSWORD", ""),
			DB:       getIntEnv("CLICKLENS_REDIS_DB", 0),
		},
		Cache: CacheConfig{
			Enabled: getBoolEnv("CLICKLENS_CACHE_ENABLED", false),
			TTL:     getDurationEnv("CLICKLENS_CACHE_TTL", 60*time.Second),
		},
		Auth: AuthConfig{
			Enabled:   getBoolEnv("CLICKLENS_AUTH_ENABLED", false),
			MasterKey: getEnv("CLICKLENS_API_KEY_MASTER", ""),
			SkipPaths: getSliceEnv("CLICKLENS_AUTH_SKIP_PATHS", []string{"/health", "/metrics"}),
		},
		RateLimit: RateLimitConfig{
			Enabled: getBoolEnv("CLICKLENS_RATE_LIMIT_ENABLED", true),
			RPS:     getFloatEnv("CLICKLENS_RATE_LIMIT_RPS", 100),
			Burst:   getIntEnv("CLICKLENS_RATE_LIMIT_BURST", 50),
		},
		Log: LogConfig{
			Level:  getEnv("CLICKLENS_LOG_LEVEL", "info"),
			Format: getEnv("CLICKLENS_LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getBoolEnv("CLICKLENS_METRICS_ENABLED", true),
			Path:    getEnv("CLICKLENS_METRICS_PATH", "/metrics"),
		},
		Geo: GeoConfig{
			Enabled:      getBoolEnv("CLICKLENS_GEO_ENABLED", false),
			DatabasePath: getEnv("CLICKLENS_GEO_DB_PATH", "/app/data/GeoLite2-City.mmdb"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Auth.Enabled && c.Auth.MasterKey == "" {
		return fmt.Errorf("CLICKLENS_API_KEY_MASTER is required when auth is enabled")
	}
	switch c.Warehouse.Driver {
	case "postgres", "clickhouse":
	default:
		return fmt.Errorf("unknown warehouse driver %q", c.Warehouse.Driver)
	}
	switch c.Executor.Prefer {
	case "direct", "emulated":
	default:
		return fmt.Errorf("unknown executor preference %q", c.Executor.Prefer)
	}
	if c.Executor.Prefer == "emulated" && c.TableAPI.BaseURL == "" {
		return fmt.Errorf("CLICKLENS_TABLE_API_URL is required when the emulated executor is preferred")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Helper functions for reading environment variables

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getFloatEnv(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getSliceEnv(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return def
}
