package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gotest.tools/assert"
)

func TestGetEnvAsInt(t *testing.T) {
	t.Setenv("SOME_INT", "42")
	assert.Equal(t, GetEnvAsInt("SOME_INT", 1), 42)

	t.Setenv("SOME_INT", "forty-two")
	assert.Equal(t, GetEnvAsInt("SOME_INT", 1), 1)

	t.Setenv("SOME_INT", "-3")
	assert.Equal(t, GetEnvAsInt("SOME_INT", 1), 1)

	t.Setenv("SOME_INT", "")
	assert.Equal(t, GetEnvAsInt("SOME_INT", 7), 7)
}

func TestLoadConfigDefaults(t *testing.T) {
	for _, name := range []string{"WAIT_TX_TIMEOUT", "POLL_INTERVAL_MS", "CONCURRENCY", "LOG_LEVEL", "DB_ADDRESS", "DB_NAME"} {
		t.Setenv(name, "")
	}
	cfg := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	assert.Equal(t, cfg.Timeout, 600*time.Second)
	assert.Equal(t, cfg.PollInterval, 2*time.Second)
	assert.Equal(t, cfg.Concurrency, 8)
	assert.Equal(t, cfg.LogLevel, "info")
	assert.Assert(t, !cfg.DB.Enabled())
}

func TestLoadConfigFromFile(t *testing.T) {
	// unset, but restored after the test
	for _, name := range []string{"CHAIN_ID", "POLL_INTERVAL_MS"} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
	t.Setenv("NODE_URL", "http://from-env:8545")

	file := filepath.Join(t.TempDir(), "test.env")
	content := "CHAIN_ID=10200\nPOLL_INTERVAL_MS=500\nNODE_URL=http://from-file:8545\n"
	assert.NilError(t, os.WriteFile(file, []byte(content), 0o600))

	cfg := LoadConfig(file)
	assert.Equal(t, cfg.ChainID, uint64(10200))
	assert.Equal(t, cfg.PollInterval, 500*time.Millisecond)
	assert.Equal(t, cfg.NodeURL, "http://from-env:8545", "environment wins over the file")
}

func TestDBConfigURL(t *testing.T) {
	db := DBConfig{User: "u", Pass: "p", Address: "localhost:5432", Name: "receipts"}
	assert.Assert(t, db.Enabled())
	assert.Equal(t, db.URL(), "postgres://u:p@localhost:5432/receipts?sslmode=disable")
}
