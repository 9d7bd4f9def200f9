// Package config loads service configuration: defaults, then an optional
// YAML file named by CONFIG_FILE, then environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/leathercraft/inventory-service/internal/domain"
)

// Config holds application configuration
type Config struct {
	ServiceName string         `yaml:"serviceName" validate:"required"`
	Environment string         `yaml:"environment" validate:"required"`
	LogLevel    string         `yaml:"logLevel" validate:"oneof=debug info warn error"`
	Server      ServerConfig   `yaml:"server"`
	MongoDB     MongoDBConfig  `yaml:"mongodb"`
	Kafka       KafkaConfig    `yaml:"kafka"`
	Temporal    TemporalConfig `yaml:"temporal"`
	Tracing     TracingConfig  `yaml:"tracing"`
	Engine      EngineConfig   `yaml:"engine"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" validate:"required"`
	ReadTimeout     time.Duration `yaml:"readTimeout" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"writeTimeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" validate:"gt=0"`
}

type MongoDBConfig struct {
	URI            string        `yaml:"uri" validate:"required"`
	Database       string        `yaml:"database" validate:"required"`
	ConnectTimeout time.Duration `yaml:"connectTimeout" validate:"gt=0"`
	MaxPoolSize    uint64        `yaml:"maxPoolSize" validate:"gte=1"`
	MinPoolSize    uint64        `yaml:"minPoolSize" validate:"ltefield=MaxPoolSize"`
}

type KafkaConfig struct {
	Brokers  []string `yaml:"brokers" validate:"required,min=1,dive,required"`
	ClientID string   `yaml:"clientId" validate:"required"`
}

type TemporalConfig struct {
	HostPort  string `yaml:"hostPort" validate:"required"`
	Namespace string `yaml:"namespace" validate:"required"`
	TaskQueue string `yaml:"taskQueue" validate:"required"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	OTLPEndpoint string  `yaml:"otlpEndpoint" validate:"required_if=Enabled true"`
	SampleRate   float64 `yaml:"sampleRate" validate:"gte=0,lte=1"`
}

// EngineConfig tunes the stock engine around the service. The ledger
// capacity is fixed and only reported.
type EngineConfig struct {
	LedgerCapacity     int           `yaml:"ledgerCapacity"`
	ConflictRetries    int           `yaml:"conflictRetries" validate:"gte=0,lte=10"`
	OutboxPollInterval time.Duration `yaml:"outboxPollInterval" validate:"gt=0"`
	OutboxBatchSize    int           `yaml:"outboxBatchSize" validate:"gte=1"`
}

// Default returns the built-in configuration
func Default(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Environment: "development",
		LogLevel:    "info",
		Server: ServerConfig{
			Addr:            ":8010",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		MongoDB: MongoDBConfig{
			URI:            "mongodb://localhost:27017",
			Database:       "leathercraft_inventory",
			ConnectTimeout: 10 * time.Second,
			MaxPoolSize:    100,
			MinPoolSize:    10,
		},
		Kafka: KafkaConfig{
			Brokers:  []string{"localhost:9092"},
			ClientID: serviceName,
		},
		Temporal: TemporalConfig{
			HostPort:  "localhost:7233",
			Namespace: "default",
			TaskQueue: "stock-queue",
		},
		Tracing: TracingConfig{
			Enabled:      true,
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
		Engine: EngineConfig{
			LedgerCapacity:     domain.LedgerCapacity,
			ConflictRetries:    0,
			OutboxPollInterval: time.Second,
			OutboxBatchSize:    100,
		},
	}
}

// Load builds the configuration from defaults, CONFIG_FILE and the
// environment, then validates it
func Load(serviceName string) (*Config, error) {
	cfg := Default(serviceName)

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}

	// not configurable
	cfg.Engine.LedgerCapacity = domain.LedgerCapacity

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	setString(getenv, "ENVIRONMENT", &c.Environment)
	setString(getenv, "LOG_LEVEL", &c.LogLevel)
	setString(getenv, "SERVER_ADDR", &c.Server.Addr)
	setString(getenv, "MONGODB_URI", &c.MongoDB.URI)
	setString(getenv, "MONGODB_DATABASE", &c.MongoDB.Database)
	setString(getenv, "TEMPORAL_HOST", &c.Temporal.HostPort)
	setString(getenv, "TEMPORAL_NAMESPACE", &c.Temporal.Namespace)
	setString(getenv, "OTEL_EXPORTER_OTLP_ENDPOINT", &c.Tracing.OTLPEndpoint)

	if v := getenv("KAFKA_BROKERS"); v != "" {
		brokers := make([]string, 0)
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
		c.Kafka.Brokers = brokers
	}

	if v := getenv("TRACING_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid TRACING_ENABLED %q: %w", v, err)
		}
		c.Tracing.Enabled = enabled
	}

	if v := getenv("CONFLICT_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid CONFLICT_RETRIES %q: %w", v, err)
		}
		c.Engine.ConflictRetries = n
	}

	if v := getenv("OUTBOX_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid OUTBOX_POLL_INTERVAL %q: %w", v, err)
		}
		c.Engine.OutboxPollInterval = d
	}

	return nil
}

// Validate checks the struct tags
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func setString(getenv func(string) string, key string, dst *string) {
	if v := getenv(key); v != "" {
		*dst = v
	}
}
