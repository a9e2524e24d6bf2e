package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the evaluation engine.
type Config struct {
	Ops      OpsConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Engine   EngineConfig
	Logging  LoggingConfig
}

// OpsConfig holds the internal ops listener configuration (health, stats,
// notification stream). This is not a public API surface.
type OpsConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds postgres configuration.
type DatabaseConfig struct {
	URL                 string
	MaxOpenConns        int
	MaxIdleConns        int
	ConnMaxLifetime     time.Duration
	ConnMaxIdleTime     time.Duration
	SlowQueryThreshold  time.Duration
	ConnectTimeout      time.Duration
	MaxConnectAttempts  int
	HealthCheckInterval time.Duration
	MigrationsPath      string
}

// CacheConfig holds catalog cache configuration.
type CacheConfig struct {
	Provider      string // "memory" or "redis"
	RedisURL      string
	RedisDB       int
	RedisPassword string
	PoolSize      int
	CatalogTTL    time.Duration
}

// EngineConfig holds evaluation engine tuning.
type EngineConfig struct {
	WorkerCount       int
	QueueSize         int
	DebounceWindow    time.Duration
	EvaluationTimeout time.Duration
	SnapshotWindow    time.Duration // transaction lookback window
	SummaryMonths     int           // trailing calendar months in the snapshot
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	env := getEnv("GO_ENV", "development")
	if env != "production" {
		envFile := fmt.Sprintf(".env.%s", env)
		if _, err := os.Stat(envFile); err == nil {
			_ = godotenv.Load(envFile)
		} else {
			_ = godotenv.Load() // fallback to .env
		}
	}

	config := &Config{
		Ops:      loadOpsConfig(env),
		Database: loadDatabaseConfig(env),
		Cache:    loadCacheConfig(),
		Engine:   loadEngineConfig(),
		Logging:  loadLoggingConfig(env),
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func loadOpsConfig(env string) OpsConfig {
	return OpsConfig{
		Port:         getEnv("OPS_PORT", "9100"),
		Host:         getEnv("OPS_HOST", "0.0.0.0"),
		Environment:  env,
		ReadTimeout:  getDurationEnv("OPS_READ_TIMEOUT", 10*time.Second),
		WriteTimeout: getDurationEnv("OPS_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:  getDurationEnv("OPS_IDLE_TIMEOUT", 120*time.Second),
	}
}

func loadDatabaseConfig(env string) DatabaseConfig {
	var defaultMaxOpen, defaultMaxIdle int
	var defaultConnLifetime time.Duration

	switch env {
	case "production":
		defaultMaxOpen = 50
		defaultMaxIdle = 20
		defaultConnLifetime = 15 * time.Minute
	case "staging":
		defaultMaxOpen = 25
		defaultMaxIdle = 10
		defaultConnLifetime = 10 * time.Minute
	default: // development
		defaultMaxOpen = 10
		defaultMaxIdle = 5
		defaultConnLifetime = 5 * time.Minute
	}

	return DatabaseConfig{
		URL:                 os.Getenv("DATABASE_URL"),
		MaxOpenConns:        getIntEnv("DB_MAX_OPEN_CONNS", defaultMaxOpen),
		MaxIdleConns:        getIntEnv("DB_MAX_IDLE_CONNS", defaultMaxIdle),
		ConnMaxLifetime:     getDurationEnv("DB_CONN_MAX_LIFETIME", defaultConnLifetime),
		ConnMaxIdleTime:     getDurationEnv("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
		SlowQueryThreshold:  getDurationEnv("DB_SLOW_QUERY_THRESHOLD", 100*time.Millisecond),
		ConnectTimeout:      getDurationEnv("DB_CONNECT_TIMEOUT", 10*time.Second),
		MaxConnectAttempts:  getIntEnv("DB_MAX_CONNECT_ATTEMPTS", 5),
		HealthCheckInterval: getDurationEnv("DB_HEALTH_CHECK_INTERVAL", 30*time.Second),
		MigrationsPath:      getEnv("DB_MIGRATIONS_PATH", "./migrations"),
	}
}

func loadCacheConfig() CacheConfig {
	provider := getEnv("CACHE_PROVIDER", "")
	if provider == "" {
		if os.Getenv("REDIS_URL") != "" {
			provider = "redis"
		} else {
			provider = "memory"
		}
	}

	return CacheConfig{
		Provider:      provider,
		RedisURL:      getEnv("REDIS_URL", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		PoolSize:      getIntEnv("REDIS_POOL_SIZE", 10),
		CatalogTTL:    getDurationEnv("CACHE_CATALOG_TTL", 5*time.Minute),
	}
}

func loadEngineConfig() EngineConfig {
	return EngineConfig{
		WorkerCount:       getIntEnv("ENGINE_WORKER_COUNT", 4),
		QueueSize:         getIntEnv("ENGINE_QUEUE_SIZE", 1000),
		DebounceWindow:    getDurationEnv("ENGINE_DEBOUNCE_WINDOW", 2*time.Second),
		EvaluationTimeout: getDurationEnv("ENGINE_EVALUATION_TIMEOUT", 15*time.Second),
		SnapshotWindow:    getDurationEnv("ENGINE_SNAPSHOT_WINDOW", 90*24*time.Hour),
		SummaryMonths:     getIntEnv("ENGINE_SUMMARY_MONTHS", 3),
	}
}

func loadLoggingConfig(env string) LoggingConfig {
	return LoggingConfig{
		Level:  getEnv("LOG_LEVEL", getDefaultLogLevel(env)),
		Format: getEnv("LOG_FORMAT", getDefaultLogFormat(env)),
	}
}

// Validate validates the entire configuration.
func (c *Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database config: %w", err)
	}

	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine config: %w", err)
	}

	if c.Cache.Provider == "redis" && c.Cache.RedisURL == "" {
		return fmt.Errorf("cache config: REDIS_URL is required for the redis provider")
	}

	if c.Ops.Port == "" {
		return fmt.Errorf("ops config: OPS_PORT is required")
	}

	return nil
}

// Validate validates database configuration.
func (d *DatabaseConfig) Validate() error {
	if d.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if d.MaxOpenConns <= 0 {
		return fmt.Errorf("MaxOpenConns must be positive")
	}

	if d.MaxIdleConns < 0 {
		return fmt.Errorf("MaxIdleConns cannot be negative")
	}

	if d.MaxIdleConns > d.MaxOpenConns {
		return fmt.Errorf("MaxIdleConns cannot be greater than MaxOpenConns")
	}

	if d.SlowQueryThreshold <= 0 {
		return fmt.Errorf("SlowQueryThreshold must be positive")
	}

	return nil
}

// Validate validates engine configuration.
func (e *EngineConfig) Validate() error {
	if e.WorkerCount <= 0 {
		return fmt.Errorf("WorkerCount must be positive")
	}

	if e.QueueSize <= 0 {
		return fmt.Errorf("QueueSize must be positive")
	}

	if e.EvaluationTimeout <= 0 {
		return fmt.Errorf("EvaluationTimeout must be positive")
	}

	if e.SummaryMonths < 1 {
		return fmt.Errorf("SummaryMonths must be at least 1")
	}

	return nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Ops.Environment == "production"
}

// IsDevelopment returns true if running in development environment.
func (c *Config) IsDevelopment() bool {
	return c.Ops.Environment == "development"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getDefaultLogLevel(env string) string {
	switch env {
	case "production":
		return "info"
	default:
		return "debug"
	}
}

func getDefaultLogFormat(env string) string {
	switch env {
	case "production":
		return "json"
	default:
		return "console"
	}
}
