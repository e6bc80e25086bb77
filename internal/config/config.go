// Package config loads caretrack settings from defaults, an optional .env
// file, an optional YAML file and CARETRACK_* environment variables.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment names
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// devAdminPassword seeds the first admin outside production when none is configured.
const devAdminPassword = "caretrack-dev"

// Config is the root configuration structure.
// It is read-only after Load returns.
type Config struct {
	Env      string         `yaml:"env"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Email    EmailConfig    `yaml:"email"`
	Reports  ReportsConfig  `yaml:"reports"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Addr            string   `yaml:"addr"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
	SlowRequest     Duration `yaml:"slow_request"`
	RateLimit       int      `yaml:"rate_limit_per_second"`
}

// DatabaseConfig contains database settings.
type DatabaseConfig struct {
	Path         string   `yaml:"path"`
	MaxOpenConns int      `yaml:"max_open_conns"`
	SlowQuery    Duration `yaml:"slow_query"`
}

// AuthConfig contains login and session settings.
type AuthConfig struct {
	AdminUsername string   `yaml:"admin_username"`
	AdminPassword string   `yaml:"-"` // env-only
	CSRFKeyHex    string   `yaml:"-"` // env-only, 64 hex characters
	SessionTTL    Duration `yaml:"session_ttl"`
	SecureCookies bool     `yaml:"secure_cookies"`
}

// EmailConfig contains report email settings.
type EmailConfig struct {
	ResendKey string `yaml:"-"` // env-only
	From      string `yaml:"from"`
	ReplyTo   string `yaml:"reply_to"`
}

// ReportsConfig contains dashboard and import settings.
type ReportsConfig struct {
	DashboardPageSize int   `yaml:"dashboard_page_size"`
	DataPageSize      int   `yaml:"data_page_size"`
	ImportMaxBytes    int64 `yaml:"import_max_bytes"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// IsProduction reports whether the production environment is selected.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// CSRFKey decodes the configured CSRF key. It returns nil when none is set.
// PRE: Load has validated the key
func (a AuthConfig) CSRFKey() []byte {
	if a.CSRFKeyHex == "" {
		return nil
	}
	key, _ := hex.DecodeString(a.CSRFKeyHex)
	return key
}

// Duration is a wrapper around time.Duration that supports YAML string parsing.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Load loads configuration with precedence: defaults, YAML file, .env file, env vars.
// The .env file never overrides variables already present in the process environment.
func Load() (*Config, error) {
	if err := loadDotEnv(getEnv("CARETRACK_ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	cfg := Defaults()
	if err := loadYAMLFile(cfg, getEnv("CARETRACK_CONFIG_PATH", "config/caretrack.yaml")); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a specific YAML path, which must exist.
func LoadFromFile(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Defaults returns a Config with all default values. Tests start from it.
func Defaults() *Config {
	return &Config{
		Env: EnvDevelopment,
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(60 * time.Second),
			ShutdownTimeout: Duration(15 * time.Second),
			SlowRequest:     Duration(500 * time.Millisecond),
			RateLimit:       10,
		},
		Database: DatabaseConfig{
			Path:         "caretrack.db",
			MaxOpenConns: 25,
			SlowQuery:    Duration(50 * time.Millisecond),
		},
		Auth: AuthConfig{
			AdminUsername: "admin",
			SessionTTL:    Duration(12 * time.Hour),
		},
		Email: EmailConfig{
			From:    "Caretrack <noreply@caretrack.local>",
			ReplyTo: "",
		},
		Reports: ReportsConfig{
			DashboardPageSize: 2,
			DataPageSize:      25,
			ImportMaxBytes:    10 << 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// loadDotEnv loads a .env file if it exists.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat env file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

// loadYAMLFile loads configuration from a YAML file if it exists.
func loadYAMLFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Only non-empty, parseable env vars override config values.
func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Env, "CARETRACK_ENV")

	setString(&cfg.Server.Addr, "CARETRACK_ADDR")
	setDuration(&cfg.Server.ReadTimeout, "CARETRACK_READ_TIMEOUT")
	setDuration(&cfg.Server.WriteTimeout, "CARETRACK_WRITE_TIMEOUT")
	setDuration(&cfg.Server.ShutdownTimeout, "CARETRACK_SHUTDOWN_TIMEOUT")
	setDuration(&cfg.Server.SlowRequest, "CARETRACK_SLOW_REQUEST")
	setInt(&cfg.Server.RateLimit, "CARETRACK_RATE_LIMIT")

	setString(&cfg.Database.Path, "CARETRACK_DB_PATH")
	setInt(&cfg.Database.MaxOpenConns, "CARETRACK_DB_MAX_OPEN_CONNS")
	setDuration(&cfg.Database.SlowQuery, "CARETRACK_SLOW_QUERY")

	setString(&cfg.Auth.AdminUsername, "CARETRACK_ADMIN_USERNAME")
	setString(&cfg.Auth.AdminPassword, "CARETRACK_ADMIN_PASSWORD")
	setString(&cfg.Auth.CSRFKeyHex, "CARETRACK_CSRF_KEY")
	setDuration(&cfg.Auth.SessionTTL, "CARETRACK_SESSION_TTL")
	if v := os.Getenv("CARETRACK_SECURE_COOKIES"); v != "" {
		cfg.Auth.SecureCookies = v == "true" || v == "1"
	}

	setString(&cfg.Email.ResendKey, "CARETRACK_RESEND_KEY")
	setString(&cfg.Email.From, "CARETRACK_EMAIL_FROM")
	setString(&cfg.Email.ReplyTo, "CARETRACK_REPLY_TO")

	setInt(&cfg.Reports.DashboardPageSize, "CARETRACK_DASHBOARD_PAGE_SIZE")
	setInt(&cfg.Reports.DataPageSize, "CARETRACK_DATA_PAGE_SIZE")
	if v := os.Getenv("CARETRACK_IMPORT_MAX_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Reports.ImportMaxBytes = n
		}
	}

	setString(&cfg.Log.Level, "CARETRACK_LOG_LEVEL")
	setString(&cfg.Log.Format, "CARETRACK_LOG_FORMAT")
}

// validate checks invariants and fills development-only fallbacks.
func (c *Config) validate() error {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		return fmt.Errorf("env must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Env)
	}
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.Reports.DashboardPageSize < 1 {
		return errors.New("dashboard_page_size must be at least 1")
	}
	if c.Reports.DataPageSize < 1 {
		return errors.New("data_page_size must be at least 1")
	}
	if c.Reports.ImportMaxBytes < 1 {
		return errors.New("import_max_bytes must be positive")
	}
	if c.Auth.SessionTTL.Std() <= 0 {
		return errors.New("session_ttl must be positive")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("log format must be json or text, got %q", c.Log.Format)
	}
	if c.Auth.CSRFKeyHex != "" {
		key, err := hex.DecodeString(c.Auth.CSRFKeyHex)
		if err != nil || len(key) != 32 {
			return errors.New("CARETRACK_CSRF_KEY must be 64 hex characters (32 bytes)")
		}
	}

	if c.IsProduction() {
		if c.Auth.CSRFKeyHex == "" {
			return errors.New("CARETRACK_CSRF_KEY is required in production")
		}
		if c.Auth.AdminPassword == "" {
			return errors.New("CARETRACK_ADMIN_PASSWORD is required in production")
		}
		return nil
	}
	if c.Auth.AdminPassword == "" {
		c.Auth.AdminPassword = devAdminPassword
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = Duration(d)
		}
	}
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
