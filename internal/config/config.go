// Package config loads service settings from the environment and an optional
// config file.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is the full service configuration.
type Config struct {
	App      AppConfig
	Log      LogConfig
	Database DatabaseConfig
	RabbitMQ RabbitMQConfig
}

// AppConfig holds HTTP server settings.
type AppConfig struct {
	Name            string        `validate:"required"`
	Port            string        `validate:"required"`
	ShutdownTimeout time.Duration `validate:"gt=0"`
}

// LogConfig selects the zap logger level and encoding.
type LogConfig struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=json console"`
}

// DatabaseConfig selects the product store.
type DatabaseConfig struct {
	Driver      string `validate:"oneof=postgres sqlite memory"`
	DSN         string `validate:"required_unless=Driver memory"`
	AutoMigrate bool
}

// RabbitMQConfig configures catalog events. An empty URL disables them.
type RabbitMQConfig struct {
	URL      string
	Exchange string `validate:"required"`
	Consume  bool
}

// New returns a viper instance with the service defaults and environment
// lookup enabled.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("APP_NAME", "catalog")
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "catalog.db")
	v.SetDefault("DB_AUTO_MIGRATE", true)
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("RABBITMQ_EXCHANGE", "catalog")
	v.SetDefault("EVENTS_CONSUME", false)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()
	return v
}

// Load reads the optional config file and builds a validated Config from v.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		App: AppConfig{
			Name:            v.GetString("APP_NAME"),
			Port:            v.GetString("APP_PORT"),
			ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Database: DatabaseConfig{
			Driver:      v.GetString("DB_DRIVER"),
			DSN:         v.GetString("DATABASE_DSN"),
			AutoMigrate: v.GetBool("DB_AUTO_MIGRATE"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:      v.GetString("RABBITMQ_URL"),
			Exchange: v.GetString("RABBITMQ_EXCHANGE"),
			Consume:  v.GetBool("EVENTS_CONSUME"),
		},
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
