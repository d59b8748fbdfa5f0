// Package config holds the demo server settings.
package config

import (
	"os"
	"strconv"
	"time"
)

const (
	// Database configuration
	DefaultURL         = "jdbc:tracing:sqlite:file:demo.db?cache=shared&_busy_timeout=5000"
	DefaultUser        = "demo"
	DefaultDBName      = "demo"
	DefaultInstance    = "primary"
	DefaultMaxOpen     = 10
	DefaultMaxIdle     = 5
	DefaultMaxLifetime = time.Hour
	DefaultMaxIdleTime = 15 * time.Minute

	// Server configuration
	DefaultAddr = ":2112"

	// Telemetry configuration
	ServiceName    = "sentinel-demo"
	ServiceVersion = "1.0.0"

	// Workload configuration
	DefaultOpsPerSecond = 0.2
	DefaultConnectTries = 5
)

// Config is the demo server configuration.
type Config struct {
	URL          string
	User         string
	Password     string
	DBName       string
	Instance     string
	Addr         string
	OTLPEndpoint string // empty keeps spans in-process
	OpsPerSecond float64
	ConnectTries uint
	Debug        bool
}

// Load returns the defaults overridden by non-empty SENTINEL_* environment variables.
func Load() Config {
	cfg := Config{
		URL:          envOr("SENTINEL_DB_URL", DefaultURL),
		User:         envOr("SENTINEL_DB_USER", DefaultUser),
		Password:     os.Getenv("SENTINEL_DB_PASSWORD"),
		DBName:       envOr("SENTINEL_DB_NAME", DefaultDBName),
		Instance:     DefaultInstance,
		Addr:         envOr("SENTINEL_ADDR", DefaultAddr),
		OTLPEndpoint: os.Getenv("SENTINEL_OTLP_ENDPOINT"),
		OpsPerSecond: DefaultOpsPerSecond,
		ConnectTries: DefaultConnectTries,
	}

	if v, err := strconv.ParseFloat(os.Getenv("SENTINEL_OPS_PER_SECOND"), 64); err == nil && v > 0 {
		cfg.OpsPerSecond = v
	}
	if v, err := strconv.ParseUint(os.Getenv("SENTINEL_CONNECT_TRIES"), 10, 32); err == nil && v > 0 {
		cfg.ConnectTries = uint(v)
	}
	cfg.Debug, _ = strconv.ParseBool(os.Getenv("SENTINEL_DEBUG"))

	return cfg
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
