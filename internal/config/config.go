// Package config loads process configuration from the environment into an
// explicit struct that is passed into constructors at startup. Nothing else
// in the codebase reads the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the process needs at startup.
type Config struct {
	// DBPath is the SQLite database file.
	DBPath string

	// BackupDir is where periodic backups are written.
	BackupDir string
	// BackupKeep is how many backup files to retain before pruning.
	BackupKeep int

	// MetricsAddr is the listen address for the /metrics endpoint.
	// Empty disables the listener.
	MetricsAddr string

	// OTLPEndpoint enables trace export when non-empty.
	OTLPEndpoint string

	LogLevel  string
	LogFormat string

	// Task intervals and the open-report expiry threshold.
	ExpiryAge        time.Duration
	ExpiryInterval   time.Duration
	OptimizeInterval time.Duration
	BackupInterval   time.Duration
	StatsInterval    time.Duration
}

// Load reads configuration from the environment, honoring a .env file in the
// working directory if present.
func Load() (*Config, error) {
	// A missing .env is fine; explicit env vars always win.
	_ = godotenv.Load()

	cfg := &Config{
		DBPath:           envOr("LURKCHAN_DB_PATH", "lurk_chan.db"),
		BackupDir:        envOr("LURKCHAN_BACKUP_DIR", "backups"),
		BackupKeep:       28,
		MetricsAddr:      envOr("METRICS_ADDR", ":9090"),
		OTLPEndpoint:     os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		LogLevel:         envOr("LOG_LEVEL", "info"),
		LogFormat:        os.Getenv("LOG_FORMAT"),
		ExpiryAge:        48 * time.Hour,
		ExpiryInterval:   5 * time.Minute,
		OptimizeInterval: time.Hour,
		BackupInterval:   6 * time.Hour,
		StatsInterval:    30 * time.Second,
	}

	if v := os.Getenv("LURKCHAN_BACKUP_KEEP"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid LURKCHAN_BACKUP_KEEP: %q", v)
		}
		cfg.BackupKeep = n
	}
	for _, d := range []struct {
		env string
		dst *time.Duration
	}{
		{"LURKCHAN_EXPIRY_AGE", &cfg.ExpiryAge},
		{"LURKCHAN_EXPIRY_INTERVAL", &cfg.ExpiryInterval},
		{"LURKCHAN_OPTIMIZE_INTERVAL", &cfg.OptimizeInterval},
		{"LURKCHAN_BACKUP_INTERVAL", &cfg.BackupInterval},
		{"LURKCHAN_STATS_INTERVAL", &cfg.StatsInterval},
	} {
		if v := os.Getenv(d.env); v != "" {
			dur, err := time.ParseDuration(v)
			if err != nil {
				return nil, fmt.Errorf("invalid %s: %q", d.env, v)
			}
			*d.dst = dur
		}
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
