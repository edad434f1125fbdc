/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int
	DBBackend   DatabaseBackend
	DBDSN       string

	// Working-hours window, applied to every bookable day. HH:MM.
	WorkDayStart string
	WorkDayEnd   string

	// Default slot length offered by the availability calculator when the
	// requested mode has no profile override.
	SlotMinutes int

	// Path to an optional YAML file overriding per-mode durations.
	ModeProfilePath string

	JWTSigningKey string
	MetricsBind   string

	// Outbound event relay
	NATSURL string

	// Slot cache
	CacheEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SlotCacheTTL  time.Duration

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64
}

// ModeProfile overrides the canonical duration for one interview mode.
type ModeProfile struct {
	Mode    string `yaml:"mode"`
	Minutes int    `yaml:"minutes"`
}

// modeProfileFile is the YAML layout of the mode profile override file.
type modeProfileFile struct {
	Modes []ModeProfile `yaml:"modes"`
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("MIMIR_ENV", "development"),
		HTTPBind:    getEnv("MIMIR_HTTP_BIND", "0.0.0.0"),
		HTTPPort:    getEnvInt("MIMIR_HTTP_PORT", 8080),
		DBBackend:   DatabaseBackend(getEnv("MIMIR_DB_BACKEND", string(DatabasePostgres))),
		DBDSN:       getEnv("MIMIR_DB_DSN", ""),

		WorkDayStart: getEnv("MIMIR_WORK_DAY_START", "09:00"),
		WorkDayEnd:   getEnv("MIMIR_WORK_DAY_END", "17:00"),
		SlotMinutes:  getEnvInt("MIMIR_SLOT_MINUTES", 60),

		ModeProfilePath: getEnv("MIMIR_MODE_PROFILE_PATH", ""),

		JWTSigningKey: getEnv("MIMIR_JWT_SIGNING_KEY", ""),
		MetricsBind:   getEnv("MIMIR_METRICS_BIND", "127.0.0.1:9000"),

		NATSURL: getEnv("MIMIR_NATS_URL", ""),

		CacheEnabled:  getEnvBool("MIMIR_CACHE_ENABLED", false),
		RedisAddr:     getEnv("MIMIR_REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("MIMIR_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("MIMIR_REDIS_DB", 0),
		SlotCacheTTL:  time.Duration(getEnvInt("MIMIR_SLOT_CACHE_TTL_SECONDS", 30)) * time.Second,

		TracingEnabled:    getEnvBool("MIMIR_TRACING_ENABLED", false),
		OTLPEndpoint:      getEnv("MIMIR_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRate: getEnvFloat("MIMIR_TRACING_SAMPLE_RATE", 1.0),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("MIMIR_DB_DSN must be provided")
	}
	if cfg.JWTSigningKey == "" {
		return nil, fmt.Errorf("MIMIR_JWT_SIGNING_KEY must be provided")
	}
	if cfg.SlotMinutes <= 0 {
		return nil, fmt.Errorf("MIMIR_SLOT_MINUTES must be positive, got %d", cfg.SlotMinutes)
	}
	if _, err := parseClock(cfg.WorkDayStart); err != nil {
		return nil, fmt.Errorf("MIMIR_WORK_DAY_START: %w", err)
	}
	if _, err := parseClock(cfg.WorkDayEnd); err != nil {
		return nil, fmt.Errorf("MIMIR_WORK_DAY_END: %w", err)
	}

	return cfg, nil
}

// ModeDurations loads the per-mode duration overrides from the configured
// YAML profile, if any. Modes absent from the file keep their canonical
// defaults.
func (c *Config) ModeDurations() (map[string]time.Duration, error) {
	if c.ModeProfilePath == "" {
		return nil, nil
	}

	data, err := os.ReadFile(c.ModeProfilePath)
	if err != nil {
		return nil, fmt.Errorf("read mode profile: %w", err)
	}

	var file modeProfileFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse mode profile: %w", err)
	}

	durations := make(map[string]time.Duration, len(file.Modes))
	for _, p := range file.Modes {
		if p.Minutes <= 0 {
			return nil, fmt.Errorf("mode profile %q: minutes must be positive, got %d", p.Mode, p.Minutes)
		}
		durations[strings.ToLower(p.Mode)] = time.Duration(p.Minutes) * time.Minute
	}
	return durations, nil
}

func parseClock(s string) (time.Time, error) {
	parsed, err := time.Parse("15:04", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected HH:MM, got %q", s)
	}
	return parsed, nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "true" || v == "1" || v == "yes" {
			return true
		}
		if v == "false" || v == "0" || v == "no" {
			return false
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return def
}
