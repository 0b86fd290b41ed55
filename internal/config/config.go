package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the process configuration loaded from a YAML file.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	JWT      JWTConfig      `yaml:"jwt"`
	Limits   LimitsConfig   `yaml:"limits"`
	Logging  LoggingConfig  `yaml:"logging"`

	// ReportingTZ is the IANA zone used to compute the "today" window for
	// the per-card daily earn ceiling. Fixed server-wide rather than
	// tenant-local; flagged as a configuration point.
	ReportingTZ string `yaml:"reporting_tz"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DatabaseConfig selects the backing store.
type DatabaseConfig struct {
	// DSN accepts postgres URLs/key-value DSNs or SQLite file paths.
	DSN string `yaml:"dsn"`
}

// RedisConfig configures the shared rate-limit counter store. When Addr is
// empty the limiter falls back to in-process counters.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// JWTConfig configures session tokens. Secret is also the server secret for
// verification-code hashing.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// LimitsConfig holds the operational ceilings. Zero disables a ceiling.
type LimitsConfig struct {
	MaxEarnPerDayPerCard  int64 `yaml:"max_earn_per_day_per_card"`
	MaxOpsPerHourPerStaff int64 `yaml:"max_ops_per_hour_per_staff"`
	LoginPerHour          int64 `yaml:"login_per_hour"`
	EmailCodesPerHour     int64 `yaml:"email_codes_per_hour"`
	OTPPerHour            int64 `yaml:"otp_per_hour"`
}

// LoggingConfig controls logrus output and optional file rotation.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server:   ServerConfig{Addr: ":8080"},
		Database: DatabaseConfig{DSN: "file:loyaltyhub.db"},
		JWT:      JWTConfig{Expiry: 24 * time.Hour},
		Limits: LimitsConfig{
			MaxEarnPerDayPerCard:  5000,
			MaxOpsPerHourPerStaff: 120,
			LoginPerHour:          20,
			EmailCodesPerHour:     5,
			OTPPerHour:            5,
		},
		Logging:     LoggingConfig{Level: "info", MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 28},
		ReportingTZ: "UTC",
	}
}

// Load reads the configuration file at path, applying defaults for missing
// sections. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, errUnmarshal)
	}
	if cfg.JWT.Expiry <= 0 {
		cfg.JWT.Expiry = 24 * time.Hour
	}
	return cfg, nil
}

// ReportingLocation resolves the configured reporting timezone, falling back
// to UTC on bad input.
func (c Config) ReportingLocation() *time.Location {
	name := strings.TrimSpace(c.ReportingTZ)
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
