package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Env string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis, used for the per-portfolio update lock. Empty disables it.
	RedisURL string

	// Collaborators
	M1URL           string
	M1Token         string
	PlivoID         string
	PlivoToken      string
	PlivoSrc        string
	PlivoDst        string
	ExchangeRateTTL time.Duration
	RequestTimeout  time.Duration
	RetryAttempts   int
	RetryBackoff    time.Duration

	// ReportingTimezone decides what "today" is for portfolio snapshots.
	ReportingTimezone string
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		Env: getEnv("ENV", "development"),

		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "wallet"),
		DBPassword: getEnv("DB_PASSWORD", "wallet"),
		DBName:     getEnv("DB_NAME", "wallet"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RedisURL: getEnv("REDIS_URL", ""),

		M1URL:      getEnv("M1_URL", "https://lens.m1finance.com/graphql"),
		M1Token:    getEnv("M1_TOKEN", ""),
		PlivoID:    getEnv("PLIVO_ID", ""),
		PlivoToken: getEnv("PLIVO_TOKEN", ""),
		PlivoSrc:   getEnv("PLIVO_SRC", ""),
		PlivoDst:   getEnv("PLIVO_DST", ""),

		ReportingTimezone: getEnv("REPORTING_TIMEZONE", "America/Los_Angeles"),
	}

	var err error
	if config.ExchangeRateTTL, err = parseDuration("EXCHANGE_RATE_TTL", "1h"); err != nil {
		return nil, err
	}
	if config.RequestTimeout, err = parseDuration("REQUEST_TIMEOUT", "30s"); err != nil {
		return nil, err
	}
	if config.RetryBackoff, err = parseDuration("RETRY_BACKOFF", "1m"); err != nil {
		return nil, err
	}

	attempts := getEnv("RETRY_ATTEMPTS", "3")
	config.RetryAttempts, err = strconv.Atoi(attempts)
	if err != nil || config.RetryAttempts < 1 {
		return nil, fmt.Errorf("invalid RETRY_ATTEMPTS %q: must be a positive integer", attempts)
	}

	if _, err := time.LoadLocation(config.ReportingTimezone); err != nil {
		return nil, fmt.Errorf("invalid REPORTING_TIMEZONE %q: %w", config.ReportingTimezone, err)
	}

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

func parseDuration(key, defaultValue string) (time.Duration, error) {
	s := getEnv(key, defaultValue)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %v", key, d)
	}
	return d, nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
