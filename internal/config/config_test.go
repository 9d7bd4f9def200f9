package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default("inventory-service")
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.Engine.LedgerCapacity)
	assert.Equal(t, 0, cfg.Engine.ConflictRetries)
	assert.Equal(t, "stock-queue", cfg.Temporal.TaskQueue)
}

func TestEnvOverrides(t *testing.T) {
	env := map[string]string{
		"SERVER_ADDR":                 ":9000",
		"MONGODB_URI":                 "mongodb://mongo:27017/?replicaSet=rs0",
		"MONGODB_DATABASE":            "shop",
		"KAFKA_BROKERS":               "k1:9092, k2:9092,",
		"TEMPORAL_HOST":               "temporal:7233",
		"TEMPORAL_NAMESPACE":          "workshop",
		"OTEL_EXPORTER_OTLP_ENDPOINT": "otel:4317",
		"TRACING_ENABLED":             "false",
		"CONFLICT_RETRIES":            "3",
		"OUTBOX_POLL_INTERVAL":        "250ms",
	}

	cfg := Default("inventory-service")
	require.NoError(t, cfg.applyEnv(func(k string) string { return env[k] }))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "shop", cfg.MongoDB.Database)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "temporal:7233", cfg.Temporal.HostPort)
	assert.Equal(t, "workshop", cfg.Temporal.Namespace)
	assert.False(t, cfg.Tracing.Enabled)
	assert.Equal(t, 3, cfg.Engine.ConflictRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Engine.OutboxPollInterval)
}

func TestEnvRejectsMalformedValues(t *testing.T) {
	tests := map[string]string{
		"TRACING_ENABLED":      "maybe",
		"CONFLICT_RETRIES":     "many",
		"OUTBOX_POLL_INTERVAL": "soon",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			cfg := Default("inventory-service")
			err := cfg.applyEnv(func(k string) string {
				if k == key {
					return value
				}
				return ""
			})
			assert.Error(t, err)
		})
	}
}

func TestLoadFromFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
environment: staging
server:
  addr: ":8080"
mongodb:
  database: from_file
engine:
  conflictRetries: 2
  outboxPollInterval: 5s
  ledgerCapacity: 50
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("MONGODB_DATABASE", "from_env")

	cfg, err := Load("inventory-service")
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "from_env", cfg.MongoDB.Database)
	assert.Equal(t, 2, cfg.Engine.ConflictRetries)
	assert.Equal(t, 5*time.Second, cfg.Engine.OutboxPollInterval)
	assert.Equal(t, 10, cfg.Engine.LedgerCapacity)
	assert.Equal(t, "localhost:7233", cfg.Temporal.HostPort)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no brokers", func(c *Config) { c.Kafka.Brokers = nil }},
		{"negative retries", func(c *Config) { c.Engine.ConflictRetries = -1 }},
		{"zero poll interval", func(c *Config) { c.Engine.OutboxPollInterval = 0 }},
		{"bad log level", func(c *Config) { c.LogLevel = "chatty" }},
		{"tracing without endpoint", func(c *Config) { c.Tracing.OTLPEndpoint = "" }},
		{"min pool above max", func(c *Config) { c.MongoDB.MinPoolSize = 200 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default("inventory-service")
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
	_, err := Load("inventory-service")
	assert.Error(t, err)
}
