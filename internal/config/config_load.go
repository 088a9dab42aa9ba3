package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/titanous/json5"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Telegram: TelegramConfig{
			PollTimeout:          30,
			MaxConcurrentUpdates: 64,
			RequestsPerSecond:    25,
			UserRatePerMinute:    30,
			RequestTimeout:       "30s",
		},
		Relay: RelayConfig{
			NotificationCacheSize: 10000,
			RosterLimit:           20,
		},
		Database: DatabaseConfig{
			Path: "data/bot.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Telemetry: TelemetryConfig{
			Protocol:    "grpc",
			ServiceName: "opsrelay",
		},
	}
}

// Load reads config from a JSON5 file, then overlays env vars.
// A missing file is not an error: env alone is a complete configuration.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(ExpandHome(path))
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := json5.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE files into the process environment. Missing
// files are skipped and variables already set are never overwritten.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// WriteDotEnv writes values as a .env file readable only by the owner.
func WriteDotEnv(path string, values map[string]string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	if err := godotenv.Write(values, path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return os.Chmod(path, 0600)
}

// applyEnvOverrides overlays env vars onto the config.
// Env vars take precedence over file values; OPSRELAY_* names win over the
// legacy names older deployments use. A set but malformed numeric variable
// is an error unless a later name supplies a valid value.
func (c *Config) applyEnvOverrides() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	envStr := func(dst *string, keys ...string) {
		for _, key := range keys {
			if v := strings.TrimSpace(os.Getenv(key)); v != "" {
				*dst = v
				return
			}
		}
	}
	var errs []error
	envInt64 := func(dst *int64, keys ...string) {
		var bad []error
		for _, key := range keys {
			v := strings.TrimSpace(os.Getenv(key))
			if v == "" {
				continue
			}
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				bad = append(bad, fmt.Errorf("invalid %s %q: want an integer", key, v))
				continue
			}
			*dst = n
			for _, e := range bad {
				slog.Warn("config: ignoring malformed env var", "error", e, "using", key)
			}
			return
		}
		errs = append(errs, bad...)
	}
	envBool := func(dst *bool, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v == "true" || v == "1"
		}
	}

	envStr(&c.Telegram.Token, "OPSRELAY_BOT_TOKEN", "BOT_TOKEN")
	envInt64(&c.Telegram.OperatorChatID, "OPSRELAY_OPERATOR_CHAT_ID", "ADMIN_CHAT_ID")
	envStr(&c.Telegram.Proxy, "OPSRELAY_TELEGRAM_PROXY")

	envStr(&c.Database.Path, "OPSRELAY_DB_PATH", "DATABASE_PATH")
	envStr(&c.Database.PostgresDSN, "OPSRELAY_POSTGRES_DSN")

	envStr(&c.Log.File, "OPSRELAY_LOG_FILE", "LOG_FILE")
	envStr(&c.Log.Level, "OPSRELAY_LOG_LEVEL")

	envStr(&c.Relay.PendingReplyTTL, "OPSRELAY_PENDING_REPLY_TTL")
	envStr(&c.Relay.Timezone, "OPSRELAY_TIMEZONE")

	// Telemetry: an endpoint alone turns export on.
	envStr(&c.Telemetry.Endpoint, "OPSRELAY_OTLP_ENDPOINT")
	envStr(&c.Telemetry.Protocol, "OPSRELAY_OTLP_PROTOCOL")
	envStr(&c.Telemetry.ServiceName, "OPSRELAY_OTLP_SERVICE_NAME")
	if os.Getenv("OPSRELAY_OTLP_ENDPOINT") != "" {
		c.Telemetry.Enabled = true
	}
	envBool(&c.Telemetry.Insecure, "OPSRELAY_OTLP_INSECURE")
	return errors.Join(errs...)
}

// Save writes the config to a JSON file. Secrets are stripped.
func Save(path string, cfg *Config) error {
	out := cfg.MaskedCopy()
	out.Telegram.Token = ""

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}

	path = ExpandHome(path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// MaskedCopy returns a copy safe to print: the token is masked and the
// Postgres DSN dropped.
func (c *Config) MaskedCopy() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := &Config{
		Telegram:  c.Telegram,
		Relay:     c.Relay,
		Database:  c.Database,
		Log:       c.Log,
		Telemetry: c.Telemetry,
	}
	maskNonEmpty(&out.Telegram.Token)
	maskNonEmpty(&out.Database.PostgresDSN)
	if len(c.Telemetry.Headers) > 0 {
		out.Telemetry.Headers = make(map[string]string, len(c.Telemetry.Headers))
		for k := range c.Telemetry.Headers {
			out.Telemetry.Headers[k] = "***"
		}
	}
	return out
}

func maskNonEmpty(s *string) {
	if *s != "" {
		*s = "***"
	}
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
