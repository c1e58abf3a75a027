package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	Environment string

	RetellAPIKey     string
	RetellBaseURL    string
	RetellFromNumber string
	RetellTimeout    time.Duration

	// DatabaseDSN is a go-sql-driver/mysql DSN; empty disables persistence.
	// An empty RedisAddr disables the call status cache.
	DatabaseDSN string
	RedisAddr   string
	RedisTTL    time.Duration

	PollInterval    time.Duration
	PollMaxAttempts int

	PhoneDefaultRegion string
}

func Load() Config {
	return Config{
		Port:               envOr("PORT", "8080"),
		Environment:        envOr("ENVIRONMENT", "local"),
		RetellAPIKey:       os.Getenv("RETELL_API_KEY"),
		RetellBaseURL:      envOr("RETELL_BASE_URL", "https://api.retellai.com"),
		RetellFromNumber:   envOr("RETELL_FROM_NUMBER", "+19842134169"),
		RetellTimeout:      durationOr("RETELL_TIMEOUT", 15*time.Second),
		DatabaseDSN:        os.Getenv("DATABASE_DSN"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisTTL:           durationOr("REDIS_TTL", 24*time.Hour),
		PollInterval:       durationOr("POLL_INTERVAL", 5*time.Second),
		PollMaxAttempts:    intOr("POLL_MAX_ATTEMPTS", 120),
		PhoneDefaultRegion: envOr("PHONE_DEFAULT_REGION", "US"),
	}
}

// Validate checks the settings the API server cannot run without.
func (c Config) Validate() error {
	if c.RetellAPIKey == "" {
		return errors.New("RETELL_API_KEY is required")
	}
	if c.PollInterval <= 0 {
		return errors.New("POLL_INTERVAL must be positive")
	}
	return nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func durationOr(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func intOr(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
