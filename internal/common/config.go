package common

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database  DatabaseConfig
	Nova      NovaConfig
	Note      NoteConfig
	Telemetry TelemetryConfig
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
}

// DatabaseConfig holds ledger storage configuration
type DatabaseConfig struct {
	Driver           string        `env:"CASEFLOW_DB_DRIVER" envDefault:"sqlite"`
	DSN              string        `env:"CASEFLOW_DB_DSN" envDefault:"caseflow.db"`
	MaxConns         int32         `env:"CASEFLOW_DB_MAX_CONNS" envDefault:"4"`
	MinConns         int32         `env:"CASEFLOW_DB_MIN_CONNS" envDefault:"1"`
	MaxConnLifetime  time.Duration `env:"CASEFLOW_DB_MAX_CONN_LIFETIME" envDefault:"30m"`
	MaxConnIdleTime  time.Duration `env:"CASEFLOW_DB_MAX_CONN_IDLE_TIME" envDefault:"5m"`
	DialTimeout      time.Duration `env:"CASEFLOW_DB_DIAL_TIMEOUT" envDefault:"3s"`
	StatementTimeout time.Duration `env:"CASEFLOW_DB_STATEMENT_TIMEOUT" envDefault:"0s"`
	PingAttempts     uint64        `env:"CASEFLOW_DB_PING_ATTEMPTS" envDefault:"3"`
}

// NovaConfig holds the case service endpoints and client credentials
type NovaConfig struct {
	BaseURL      string        `env:"NOVA_BASE_URL"`
	TokenURL     string        `env:"NOVA_TOKEN_URL"`
	ClientID     string        `env:"NOVA_CLIENT_ID"`
	ClientSecret string        `env:"NOVA_CLIENT_SECRET"`
	Scope        string        `env:"NOVA_SCOPE" envDefault:"client"`
	APIVersion   string        `env:"NOVA_API_VERSION" envDefault:"2.0-Case"`
	PageSize     int           `env:"NOVA_PAGE_SIZE" envDefault:"500"`
	HTTPTimeout  time.Duration `env:"NOVA_HTTP_TIMEOUT" envDefault:"0s"`
}

// NoteConfig controls the confirmation task created on each transferred case
type NoteConfig struct {
	Title    string `env:"CASEFLOW_NOTE_TITLE" envDefault:"Sagsbehandlerskift"`
	TaskType string `env:"CASEFLOW_NOTE_TASK_TYPE" envDefault:"Notat"`
	Status   string `env:"CASEFLOW_NOTE_STATUS" envDefault:"N"`
}

// TelemetryConfig holds OpenTelemetry switches
type TelemetryConfig struct {
	Enabled     bool   `env:"CASEFLOW_OTEL_ENABLED" envDefault:"false"`
	Stdout      bool   `env:"CASEFLOW_OTEL_STDOUT" envDefault:"false"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"caseflow"`
}

// LoadEnv loads the given dotenv files that exist; missing files are skipped.
func LoadEnv(envFiles []string) (int, error) {
	existing := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			existing = append(existing, file)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

// LoadConfig loads configuration from .env files and environment variables
func LoadConfig() (*Config, error) {
	if _, err := LoadEnv([]string{".env", ".env.local"}); err != nil {
		return nil, NewAppError("CONFIG_ERROR", "load .env", err)
	}
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, NewAppError("CONFIG_ERROR", "parse environment", err)
	}
	return cfg, nil
}

// Validate checks the settings every command needs
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return NewAppError("CONFIG_ERROR", "CASEFLOW_DB_DRIVER must be sqlite or postgres", ErrInvalidInput)
	}
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "CASEFLOW_DB_DSN is required", ErrInvalidInput)
	}
	return nil
}

// ValidateRemote checks the settings needed to talk to the case service
func (c *Config) ValidateRemote() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Nova.BaseURL == "" {
		return NewAppError("CONFIG_ERROR", "NOVA_BASE_URL is required", ErrInvalidInput)
	}
	if c.Nova.TokenURL == "" {
		return NewAppError("CONFIG_ERROR", "NOVA_TOKEN_URL is required", ErrInvalidInput)
	}
	if c.Nova.ClientID == "" || c.Nova.ClientSecret == "" {
		return NewAppError("CONFIG_ERROR", "NOVA_CLIENT_ID and NOVA_CLIENT_SECRET are required", ErrInvalidInput)
	}
	if c.Nova.PageSize <= 0 {
		return NewAppError("CONFIG_ERROR", "NOVA_PAGE_SIZE must be positive", ErrInvalidInput)
	}
	return nil
}

// SlogLevel parses LogLevel, falling back to info.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
