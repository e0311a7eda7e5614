package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Events    EventsConfig    `mapstructure:"events"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig selects and configures the task store backend.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=memory postgres sqlite"`
	URL    string `mapstructure:"url" validate:"required_unless=Driver memory"`
}

// SchedulerConfig controls the polling loop and the one-shot failure policy.
type SchedulerConfig struct {
	TickIntervalMS  int  `mapstructure:"tick_interval_ms" validate:"required,gt=0"`
	DeleteOnFailure bool `mapstructure:"delete_on_failure"`
}

// TickInterval returns the tick interval as a duration.
func (c SchedulerConfig) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMS) * time.Millisecond
}

// AuthConfig contains all authentication and authorization settings.
// The admin API refuses to start without a secret.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret" validate:"omitempty,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"gt=0"`
}

// EventsConfig configures the optional Kafka publisher for task lifecycle events.
type EventsConfig struct {
	KafkaBrokers []string `mapstructure:"kafka_brokers" validate:"omitempty,dive,hostname_port"`
	Topic        string   `mapstructure:"topic" validate:"required_with=KafkaBrokers"`
}

// KafkaEnabled reports whether events should be published to Kafka.
func (c EventsConfig) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}
