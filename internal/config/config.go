// Package config loads opsrelay settings from an optional JSON5 file, a
// .env file and the process environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

var (
	// ErrMissingToken is returned by Validate when no bot token is configured.
	ErrMissingToken = errors.New("telegram bot token is not set (OPSRELAY_BOT_TOKEN)")
	// ErrMissingOperator is returned by Validate when no operator chat is configured.
	ErrMissingOperator = errors.New("operator chat id is not set (OPSRELAY_OPERATOR_CHAT_ID)")
)

// Config is the root configuration.
type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Relay     RelayConfig     `json:"relay"`
	Database  DatabaseConfig  `json:"database"`
	Log       LogConfig       `json:"log"`
	Telemetry TelemetryConfig `json:"telemetry,omitempty"`
	mu        sync.RWMutex
}

// DatabaseConfig selects the message store.
// PostgresDSN is NEVER read from config.json (secret), only from env OPSRELAY_POSTGRES_DSN.
type DatabaseConfig struct {
	Path        string `json:"path,omitempty"` // SQLite file (default "data/bot.db")
	PostgresDSN string `json:"-"`
}

// UsePostgres reports whether the Postgres store is selected.
func (d DatabaseConfig) UsePostgres() bool { return d.PostgresDSN != "" }

// LogConfig configures slog output.
type LogConfig struct {
	Level string `json:"level,omitempty"` // "debug", "info" (default), "warn", "error"
	File  string `json:"file,omitempty"`  // also append logs to this file
}

// TelemetryConfig configures OpenTelemetry export of dispatch spans.
type TelemetryConfig struct {
	Enabled     bool              `json:"enabled,omitempty"`      // enable OTLP export (default false)
	Endpoint    string            `json:"endpoint,omitempty"`     // OTLP endpoint (e.g. "localhost:4317")
	Protocol    string            `json:"protocol,omitempty"`     // "grpc" (default) or "http"
	Insecure    bool              `json:"insecure,omitempty"`     // plaintext connection, for local collectors
	ServiceName string            `json:"service_name,omitempty"` // default "opsrelay"
	Headers     map[string]string `json:"headers,omitempty"`      // extra headers (e.g. auth tokens for cloud backends)
}

// Validate reports the first fatal configuration problem.
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if strings.TrimSpace(c.Telegram.Token) == "" {
		return ErrMissingToken
	}
	if c.Telegram.OperatorChatID == 0 {
		return ErrMissingOperator
	}
	if _, err := c.Relay.PendingReplyTTLDuration(); err != nil {
		return err
	}
	switch c.Telemetry.Protocol {
	case "", "grpc", "http":
	default:
		return fmt.Errorf("telemetry.protocol: unsupported value %q", c.Telemetry.Protocol)
	}
	return nil
}

// parseDuration accepts Go duration strings; empty means zero.
func parseDuration(field, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: negative duration %q", field, s)
	}
	return d, nil
}
