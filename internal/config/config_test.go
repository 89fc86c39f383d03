package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("JWT_SECRET_KEY", "secret")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, 50, cfg.Calculation.ChunkSize)
	assert.Equal(t, 3, cfg.Calculation.RetryCount)
	assert.Equal(t, time.Second, cfg.Calculation.RetryBaseDelay)
	assert.Equal(t, CacheBackendMemory, cfg.Calculation.CacheBackend)
	assert.Equal(t, "range", cfg.Calculation.InvalidationMode)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestLoad_Overrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("CALC_CHUNK_SIZE", "20")
	t.Setenv("CALC_RETRY_BASE_DELAY", "250ms")
	t.Setenv("CACHE_INVALIDATION_MODE", "substring")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Calculation.ChunkSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Calculation.RetryBaseDelay)
	assert.Equal(t, "substring", cfg.Calculation.InvalidationMode)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"bad chunk size":     {"CALC_CHUNK_SIZE": "0"},
		"non numeric port":   {"APP_PORT": "http"},
		"bad duration":       {"CACHE_TTL": "forever"},
		"unknown mode":       {"CACHE_INVALIDATION_MODE": "prefix"},
		"redis without url":  {"CACHE_BACKEND": "redis"},
		"postgres no pass":   {"DB_DRIVER": "postgres"},
		"negative retries":   {"CALC_RETRY_COUNT": "-1"},
		"too many retries":   {"CALC_RETRY_COUNT": "64"},
		"zero retry delay":   {"CALC_RETRY_BASE_DELAY": "0s"},
		"unknown db driver":  {"DB_DRIVER": "sqlite"},
		"missing jwt secret": {"JWT_SECRET_KEY": ""},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestDatabaseURL(t *testing.T) {
	c := &Config{Database: DatabaseConfig{User: "u", Password: "p", Host: "db", Port: 5433, Name: "payroll", SSLMode: "disable"}}
	assert.Equal(t, "postgres://u:p@db:5433/payroll?sslmode=disable", c.DatabaseURL())
}
