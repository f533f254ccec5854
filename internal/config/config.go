// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Loading layers defaults, an optional YAML file and FITSCORE_ env vars.
// - Load errors wrap this package's sentinels.
package config

import (
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// AppID namespaces the candidates collection.
	AppID string `koanf:"app_id"`

	// StoreConfig is the JSON blob selecting the persistence backend, e.g.
	// {"driver":"sqlite","dsn":"fitscore.db"}. Empty means unconfigured.
	StoreConfig string `koanf:"store_config"`

	// AuthSecret signs anonymous identity tokens. Empty means a random secret per
	// process.
	AuthSecret string `koanf:"auth_secret"`

	// IdentityTTLHours bounds the lifetime of an identity token.
	IdentityTTLHours int `koanf:"identity_ttl_hours"`

	// NotifyDelayMS and ReportDelayMS pace the confirmation dialogs.
	NotifyDelayMS int `koanf:"notify_delay_ms"`
	ReportDelayMS int `koanf:"report_delay_ms"`

	// EventQueueSize bounds the in-memory notification queue.
	EventQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of notification workers.
	WorkerCount int `koanf:"worker_count"`

	// MaxForms caps the number of live form instances.
	MaxForms int `koanf:"max_forms"`

	// CORSOrigins lists allowed browser origins, comma separated.
	CORSOrigins string `koanf:"cors_origins"`

	// KafkaBrokers, comma separated, enables the Kafka notification sink.
	KafkaBrokers string `koanf:"kafka_brokers"`
	KafkaTopic   string `koanf:"kafka_topic"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		Addr:             ":9080",
		AppID:            "default-app-id",
		IdentityTTLHours: 24 * 30,
		NotifyDelayMS:    1000,
		ReportDelayMS:    1500,
		EventQueueSize:   1024,
		WorkerCount:      2,
		MaxForms:         10_000,
		CORSOrigins:      "*",
		KafkaTopic:       "fitscore.notifications",
	}
}

// NotifyDelay returns NotifyDelayMS as a duration.
func (c *Config) NotifyDelay() time.Duration {
	return time.Duration(c.NotifyDelayMS) * time.Millisecond
}

// ReportDelay returns ReportDelayMS as a duration.
func (c *Config) ReportDelay() time.Duration {
	return time.Duration(c.ReportDelayMS) * time.Millisecond
}

// IdentityTTL returns IdentityTTLHours as a duration.
func (c *Config) IdentityTTL() time.Duration {
	return time.Duration(c.IdentityTTLHours) * time.Hour
}

// Origins returns the CORS origins as a list.
func (c *Config) Origins() []string { return splitList(c.CORSOrigins) }

// Brokers returns the Kafka brokers as a list.
func (c *Config) Brokers() []string { return splitList(c.KafkaBrokers) }
