package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_DatabaseConfig(t *testing.T) {
	// Setup environment variables
	os.Setenv("DB_HOST", "db.internal")
	os.Setenv("DB_PORT", "5433")
	os.Setenv("DB_NAME", "problems_test")
	defer func() {
		os.Unsetenv("DB_HOST")
		os.Unsetenv("DB_PORT")
		os.Unsetenv("DB_NAME")
	}()

	// Load config
	cfg, err := Load()
	assert.NoError(t, err)

	// Verify database config
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "problems_test", cfg.Database.Database)
	assert.Equal(t,
		"host=db.internal port=5433 user=postgres password= dbname=problems_test sslmode=disable",
		cfg.Database.DatabaseDSN(),
	)
}

func TestLoad_CacheConfig(t *testing.T) {
	os.Setenv("CACHE_ENABLED", "true")
	os.Setenv("CACHE_PROBLEM_TTL_SECONDS", "60")
	defer func() {
		os.Unsetenv("CACHE_ENABLED")
		os.Unsetenv("CACHE_PROBLEM_TTL_SECONDS")
	}()

	cfg, err := Load()
	assert.NoError(t, err)

	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 60, cfg.Cache.ProblemTTLSeconds)
}

func TestLoad_Defaults(t *testing.T) {
	// Ensure env vars are cleared
	os.Unsetenv("CACHE_ENABLED")
	os.Unsetenv("REDIS_HOST")
	os.Unsetenv("REDIS_PORT")

	cfg, err := Load()
	assert.NoError(t, err)

	// Verify defaults
	assert.Equal(t, "development", cfg.Environment)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 300, cfg.Cache.ProblemTTLSeconds)
	assert.Equal(t, "localhost:6379", cfg.Redis.RedisAddr())
	assert.Equal(t, "problem-register", cfg.OTEL.ServiceName)
	assert.False(t, cfg.OTEL.Enabled)
}
