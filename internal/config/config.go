package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	ServerPort     int  `env:"SERVER_PORT" default:"6000"`
	SingleThreaded bool `env:"SINGLE_THREADED" default:"false"`

	// Database
	DatabaseURL string `env:"DATABASE_URL" default:"fleethub.db"`

	// Optional job audit trail (empty = disabled)
	RedisURL string `env:"REDIS_URL"`

	// Optional admin HTTP endpoint (0 = disabled)
	AdminPort int `env:"ADMIN_PORT" default:"0"`

	// Bound on waiting for a follow-up message in an add conversation.
	// 0 keeps the faithful behavior: wait until process shutdown.
	FollowUpTimeout time.Duration `env:"FOLLOW_UP_TIMEOUT" default:"0"`

	// Development
	LogLevel string `env:"LOG_LEVEL" default:"info"`
}

// LoadConfig loads configuration from environment variables, with an
// optional .env file (its absence is fine).
func LoadConfig() (*Config, error) {
	// missing .env just means plain env vars are used
	_ = godotenv.Load(".env")

	config := &Config{}

	if err := loadEnvInt(&config.ServerPort, "SERVER_PORT", 6000); err != nil {
		return nil, err
	}
	if err := loadEnvBool(&config.SingleThreaded, "SINGLE_THREADED", false); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.DatabaseURL, "DATABASE_URL", "fleethub.db"); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.RedisURL, "REDIS_URL", ""); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.AdminPort, "ADMIN_PORT", 0); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.FollowUpTimeout, "FOLLOW_UP_TIMEOUT", 0); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.LogLevel, "LOG_LEVEL", "info"); err != nil {
		return nil, err
	}

	if config.ServerPort <= 0 || config.ServerPort > 65535 {
		return nil, fmt.Errorf("SERVER_PORT %d out of range", config.ServerPort)
	}

	return config, nil
}

// Helper functions for type conversion and validation
func loadEnvString(target *string, key, defaultValue string) error {
	if value := os.Getenv(key); value != "" {
		*target = value
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvInt(target *int, key string, defaultValue int) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvBool(target *bool, key string, defaultValue bool) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvDuration(target *time.Duration, key string, defaultValue time.Duration) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}
