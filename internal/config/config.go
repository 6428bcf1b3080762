// Package config loads runtime settings for PotatoServer from the environment,
// applying defaults and sanitizing values that would leave the server unusable.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// Supported settings store drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

const (
	defaultPort            = ":8080"
	defaultMaxMessageSize  = 4096
	defaultWriteTimeout    = 10 * time.Second
	defaultRateInterval    = time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultDatabaseDSN     = "envsettings.db"
)

// Config holds the server configuration, including the WebSocket broadcast
// policy and the settings store connection.
type Config struct {
	Port           string `env:"PORT" default:"8080"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS" default:"*"`

	MaxMessageSize  int64         `env:"MAX_MESSAGE_SIZE" default:"4096"`
	EchoPrefix      string        `env:"ECHO_PREFIX" default:"Echo: "`
	IncludeSender   bool          `env:"INCLUDE_SENDER" default:"true"`
	CommandsEnabled bool          `env:"COMMANDS_ENABLED" default:"false"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" default:"10s"`
	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT" default:"0s"`

	RateLimitBurst    int           `env:"RATE_LIMIT_BURST" default:"0"`
	RateLimitInterval time.Duration `env:"RATE_LIMIT_INTERVAL" default:"1s"`

	DBDriver    string `env:"DB_DRIVER" default:"sqlite"`
	DatabaseDSN string `env:"DATABASE_DSN"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"console"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// Default returns a Config populated with default values for all settings.
func Default() *Config {
	return &Config{
		Port:              defaultPort,
		AllowedOrigins:    "*",
		MaxMessageSize:    defaultMaxMessageSize,
		EchoPrefix:        "Echo: ",
		IncludeSender:     true,
		WriteTimeout:      defaultWriteTimeout,
		RateLimitInterval: defaultRateInterval,
		DBDriver:          DriverSQLite,
		DatabaseDSN:       defaultDatabaseDSN,
		LogLevel:          "info",
		LogFormat:         "console",
		ShutdownTimeout:   defaultShutdownTimeout,
	}
}

// Load reads an optional .env file, maps the environment onto Config and
// sanitizes the result. A malformed .env file or an unusable settings store
// selection is reported as an error; every other invalid value falls back to
// its default.
func Load() (*Config, error) {
	return loadFrom(".env")
}

func loadFrom(envFile string) (*Config, error) {
	// A missing .env file is the normal case outside local development.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	sanitize(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func sanitize(cfg *Config) {
	cfg.Port = strings.TrimSpace(cfg.Port)
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if !strings.Contains(cfg.Port, ":") {
		cfg.Port = ":" + cfg.Port
	}

	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultMaxMessageSize
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.IdleTimeout < 0 {
		cfg.IdleTimeout = 0
	}
	if cfg.RateLimitBurst < 0 {
		cfg.RateLimitBurst = 0
	}
	if cfg.RateLimitInterval <= 0 {
		cfg.RateLimitInterval = defaultRateInterval
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	if cfg.DBDriver == "" {
		cfg.DBDriver = DriverSQLite
	}
	if cfg.DatabaseDSN == "" && cfg.DBDriver == DriverSQLite {
		cfg.DatabaseDSN = defaultDatabaseDSN
	}
}

func validate(cfg *Config) error {
	switch cfg.DBDriver {
	case DriverSQLite:
	case DriverMySQL:
		if cfg.DatabaseDSN == "" {
			return fmt.Errorf("DATABASE_DSN is required when DB_DRIVER is %q", DriverMySQL)
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want %q or %q)", cfg.DBDriver, DriverSQLite, DriverMySQL)
	}
	return nil
}

// Origins splits AllowedOrigins into trimmed, non-empty entries.
func (c *Config) Origins() []string {
	parts := strings.Split(c.AllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
