package kafka

import (
	"strings"
	"time"
)

// Config holds Kafka producer configuration
type Config struct {
	Brokers  []string
	ClientID string

	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int // 0: no ack, 1: leader ack, -1: all replicas ack
	WriteTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Brokers:      []string{"localhost:9092"},
		ClientID:     "leathercraft-inventory",
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: -1,
		WriteTimeout: 10 * time.Second,
	}
}

// Topics names the stock topics
var Topics = struct {
	StockEvents string
	StockAlerts string
}{
	StockEvents: "leathercraft.stock.events",
	StockAlerts: "leathercraft.stock.alerts",
}

// TopicFor routes an event type. Low-stock alerts get their own topic so
// purchasing can subscribe without reading every movement.
func TopicFor(eventType string) string {
	if strings.HasSuffix(eventType, ".stock.low") {
		return Topics.StockAlerts
	}
	return Topics.StockEvents
}

// TopicConfig holds configuration for a Kafka topic
type TopicConfig struct {
	Name              string
	Partitions        int
	ReplicationFactor int
	RetentionMs       int64
}

// DefaultTopicConfigs returns the topics the service publishes to
func DefaultTopicConfigs() []TopicConfig {
	const day = int64(24 * 60 * 60 * 1000)
	return []TopicConfig{
		{Name: Topics.StockEvents, Partitions: 6, ReplicationFactor: 3, RetentionMs: 30 * day},
		{Name: Topics.StockAlerts, Partitions: 1, ReplicationFactor: 3, RetentionMs: 7 * day},
	}
}
