// Package config loads application configuration from environment
// variables. Required variables halt startup when missing; optional
// ones fall back to defaults.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all runtime configuration values. Each field corresponds
// to an environment variable.
type Config struct {
	Env            string          // application environment (dev/test/prod)
	Port           string          // HTTP port to listen on
	DBUser         string          // database username
	DBPass         string          // database password (optional)
	DBHost         string          // database host address
	DBPort         string          // database port number
	DBName         string          // database name
	JWTSecret      string          // secret used to sign access tokens
	AccessTTLMin   int             // access token time-to-live in minutes
	RefreshTTLDays int             // refresh token time-to-live in days
	AMQPURL        string          // RabbitMQ URL; empty disables events
	JWKSURL        string          // external identity JWKS endpoint; empty disables external sign-in
	MaintenanceFee decimal.Decimal // per-occupancy share withheld from monthly batches
	QueueDepth     int             // transaction sequencer queue depth
	QueueWait      time.Duration   // max time a request may wait in the sequencer
}

// Load reads configuration from the environment. Missing required
// variables cause a fatal log.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"), // empty allowed
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		AMQPURL:        os.Getenv("AMQP_URL"),
		JWKSURL:        os.Getenv("IDENTITY_JWKS_URL"),
		MaintenanceFee: envDecimal("MAINTENANCE_FEE", "0.20"),
		QueueDepth:     envInt("TX_QUEUE_DEPTH", 256),
		QueueWait:      envDur("TX_QUEUE_WAIT", 30*time.Second),
	}
}

// must retrieves a required environment variable or exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the value into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func envDecimal(key, def string) decimal.Decimal {
	s := os.Getenv(key)
	if s == "" {
		s = def
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		log.Fatalf("invalid decimal for %s: %q", key, s)
	}
	return d
}
