// Package config defines service configuration and its layered loading.
package config

import (
	"context"
	"runtime"
)

// Storage backends.
const (
	StoreMemory   = "memory"
	StorePebble   = "pebble"
	StoreDynamoDB = "dynamodb"
)

// Pub/sub backends.
const (
	PubSubMemory = "memory"
	PubSubSNS    = "sns"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory batch queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of batch workers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize bounds the ingestion dedupe window.
	DedupeSize int `koanf:"dedupe_size"`

	// StoreDriver selects memory, pebble or dynamodb.
	StoreDriver         string `koanf:"store_driver"`
	PebbleDir           string `koanf:"pebble_dir"`
	DynamoDBTablePrefix string `koanf:"dynamodb_table_prefix"`
	// ScanPageSize is the page size used when draining store scans.
	ScanPageSize int `koanf:"scan_page_size"`

	// AWSRegion and AWSEndpoint configure the SDK; the endpoint override
	// points at LocalStack or similar.
	AWSRegion   string `koanf:"aws_region"`
	AWSEndpoint string `koanf:"aws_endpoint"`

	// PubSubDriver selects memory or sns.
	PubSubDriver string `koanf:"pubsub_driver"`
	// BroadcastEnabled publishes every event to its topic address.
	BroadcastEnabled bool `koanf:"broadcast_enabled"`
	// ChannelSubscriptionsEnabled subscribes new email targets on the pub/sub topics.
	ChannelSubscriptionsEnabled bool `koanf:"channel_subscriptions_enabled"`

	// DeliveryDryRun logs notifications instead of sending them.
	DeliveryDryRun    bool   `koanf:"delivery_dry_run"`
	DiscordTimeoutMS  int    `koanf:"discord_timeout_ms"`
	DiscordUsername   string `koanf:"discord_username"`
	SMTPHost          string `koanf:"smtp_host"`
	SMTPPort          int    `koanf:"smtp_port"`
	SMTPUsername      string `koanf:"smtp_username"`
	SMTPPassword      string `koanf:"smtp_password"`
	SMTPFrom          string `koanf:"smtp_from"`
	FanoutConcurrency int    `koanf:"fanout_concurrency"`

	// KafkaBrokers enables Kafka ingestion when non-empty.
	KafkaBrokers []string `koanf:"kafka_brokers"`
	KafkaTopic   string   `koanf:"kafka_topic"`
	KafkaGroupID string   `koanf:"kafka_group_id"`

	// BootstrapTopics are created at startup.
	BootstrapTopics []string `koanf:"bootstrap_topics"`
	// SampleSubscriptionsFile replaces the stored subscription set for fan-out.
	SampleSubscriptionsFile string `koanf:"sample_subscriptions_file"`
}

// New returns a Config populated with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		QueueSize:         1024,
		WorkerCount:       runtime.NumCPU(),
		DedupeSize:        50_000,
		StoreDriver:       StoreMemory,
		PebbleDir:         "data/pebble",
		ScanPageSize:      100,
		AWSRegion:         "us-east-1",
		PubSubDriver:      PubSubMemory,
		DiscordTimeoutMS:  5000,
		SMTPPort:          587,
		FanoutConcurrency: 8,
		KafkaGroupID:      "tweetcast",
		BootstrapTopics:   []string{"Crypto", "Test", "Parrots"},
	}
}
