package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/Mudassar864/yaopets-sub001/pkg/db"
)

// Config holds every setting the interaction service reads from the
// environment
type Config struct {
	HTTPPort    string
	MetricsPort string

	Database db.Config

	RedisAddr        string
	RedisPassword    string
	RedisCountersTTL time.Duration

	NATSURL           string
	NATSMaxReconnects int
	NATSReconnectWait time.Duration
}

// Load reads configuration from the environment, honoring an optional .env
// file in the working directory
func Load() (*Config, error) {
	// Missing .env is fine; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		MetricsPort: getEnv("METRICS_PORT", "9090"),
		Database: db.Config{
			Host:            getEnv("DB_HOST", "mysql"),
			User:            getEnv("DB_USER", "yaopets"),
			Password:        getEnv("DB_PASSWORD", "yaopets"),
			Database:        getEnv("DB_NAME", "yaopets_interactions"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_MAX_LIFETIME", 5*time.Minute),
		},
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisCountersTTL:  getEnvAsDuration("REDIS_COUNTERS_TTL", time.Minute),
		NATSURL:           getEnv("NATS_URL", ""),
		NATSMaxReconnects: getEnvAsInt("NATS_MAX_RECONNECTS", 5),
		NATSReconnectWait: getEnvAsDuration("NATS_RECONNECT_WAIT", 2*time.Second),
	}

	var err error
	cfg.Database.Port, err = strconv.Atoi(getEnv("DB_PORT", "3306"))
	if err != nil {
		return nil, fmt.Errorf("invalid database port: %w", err)
	}

	if cfg.Database.Database == "" {
		return nil, fmt.Errorf("database name is required (set DB_NAME)")
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt gets an environment variable as int or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as duration or returns a
// default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
