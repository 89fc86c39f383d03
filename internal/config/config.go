package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	Calculation CalculationConfig
}

// AppConfig holds application configuration
type AppConfig struct {
	Port           int
	Env            string
	LogLevel       string
	AllowedOrigins []string
}

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	// AutoMigrate applies the embedded schema on startup.
	AutoMigrate bool
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// RedisConfig holds the optional shared cache connection
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds the event transport. No brokers disables it.
type KafkaConfig struct {
	Brokers  []string
	Topic    string
	ClientID string
}

const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// MaxRetryCount bounds CALC_RETRY_COUNT.
const MaxRetryCount = 10

// CalculationConfig tunes the calculation engine
type CalculationConfig struct {
	ChunkSize          int
	RetryCount         int
	RetryBaseDelay     time.Duration
	CacheBackend       string
	CacheTTL           time.Duration
	CacheMaxEntries    int
	CacheSweepInterval time.Duration
	InvalidationMode   string
	RemoteURL          string
	RemoteAPIKey       string
	RemoteTimeout      time.Duration
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	config := &Config{}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:           appPort,
		Env:            getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS"),
	}
	if len(config.App.AllowedOrigins) == 0 {
		config.App.AllowedOrigins = []string{"http://localhost:3000"}
	}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	config.Database = DatabaseConfig{
		Driver:   getEnv("DB_DRIVER", DriverPostgres),
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "payroll_engine"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}
	autoMigrate, err := strconv.ParseBool(getEnv("DB_AUTO_MIGRATE", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_AUTO_MIGRATE: %w", err)
	}
	config.Database.AutoMigrate = autoMigrate

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"),
	}

	// Redis configuration
	redisPool, err := getEnvInt("REDIS_POOL_SIZE", 10)
	if err != nil {
		return nil, err
	}
	redisIdle, err := getEnvInt("REDIS_MIN_IDLE_CONNS", 2)
	if err != nil {
		return nil, err
	}
	dialTimeout, err := getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	readTimeout, err := getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second)
	if err != nil {
		return nil, err
	}
	writeTimeout, err := getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second)
	if err != nil {
		return nil, err
	}

	config.Redis = RedisConfig{
		URL:          getEnv("REDIS_URL", ""),
		PoolSize:     redisPool,
		MinIdleConns: redisIdle,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	// Kafka configuration
	config.Kafka = KafkaConfig{
		Brokers:  getEnvSlice("KAFKA_BROKERS"),
		Topic:    getEnv("KAFKA_TOPIC", "payroll.events"),
		ClientID: getEnv("KAFKA_CLIENT_ID", "payroll-engine"),
	}

	// Calculation configuration
	chunkSize, err := getEnvInt("CALC_CHUNK_SIZE", 50)
	if err != nil {
		return nil, err
	}
	retryCount, err := getEnvInt("CALC_RETRY_COUNT", 3)
	if err != nil {
		return nil, err
	}
	retryBase, err := getEnvDuration("CALC_RETRY_BASE_DELAY", time.Second)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := getEnvDuration("CACHE_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	cacheMax, err := getEnvInt("CACHE_MAX_ENTRIES", 10000)
	if err != nil {
		return nil, err
	}
	sweep, err := getEnvDuration("CACHE_SWEEP_INTERVAL", 10*time.Minute)
	if err != nil {
		return nil, err
	}
	remoteTimeout, err := getEnvDuration("CALC_REMOTE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	config.Calculation = CalculationConfig{
		ChunkSize:          chunkSize,
		RetryCount:         retryCount,
		RetryBaseDelay:     retryBase,
		CacheBackend:       getEnv("CACHE_BACKEND", CacheBackendMemory),
		CacheTTL:           cacheTTL,
		CacheMaxEntries:    cacheMax,
		CacheSweepInterval: sweep,
		InvalidationMode:   getEnv("CACHE_INVALIDATION_MODE", "range"),
		RemoteURL:          getEnv("CALC_REMOTE_URL", ""),
		RemoteAPIKey:       getEnv("CALC_REMOTE_API_KEY", ""),
		RemoteTimeout:      remoteTimeout,
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("DB_DRIVER must be %q or %q", DriverPostgres, DriverMemory)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.Calculation.ChunkSize <= 0 {
		return fmt.Errorf("CALC_CHUNK_SIZE must be positive")
	}
	if c.Calculation.RetryCount < 0 || c.Calculation.RetryCount > MaxRetryCount {
		return fmt.Errorf("CALC_RETRY_COUNT must be between 0 and %d", MaxRetryCount)
	}
	if c.Calculation.RetryBaseDelay <= 0 {
		return fmt.Errorf("CALC_RETRY_BASE_DELAY must be positive")
	}
	switch c.Calculation.CacheBackend {
	case CacheBackendMemory:
	case CacheBackendRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("REDIS_URL is required when CACHE_BACKEND=redis")
		}
	default:
		return fmt.Errorf("CACHE_BACKEND must be %q or %q", CacheBackendMemory, CacheBackendRedis)
	}
	if m := c.Calculation.InvalidationMode; m != "range" && m != "substring" {
		return fmt.Errorf("CACHE_INVALIDATION_MODE must be \"range\" or \"substring\"")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
