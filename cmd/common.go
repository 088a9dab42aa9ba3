package cmd

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"

	"github.com/nextlevelbuilder/opsrelay/internal/config"
	"github.com/nextlevelbuilder/opsrelay/internal/store"
	"github.com/nextlevelbuilder/opsrelay/internal/store/pg"
	"github.com/nextlevelbuilder/opsrelay/internal/store/sqlite"
)

// loadConfig reads .env and the config file. Validation is left to callers
// since offline commands need no bot token.
func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// setupLogging installs the default slog handler. The returned closer
// releases the log file, if any.
func setupLogging(cfg *config.Config) (io.Closer, error) {
	level := slog.LevelInfo
	if cfg != nil && cfg.Log.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.Log.Level))); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
		}
	}
	if verbose {
		level = slog.LevelDebug
	}

	var (
		out    io.Writer = os.Stdout
		closer io.Closer = io.NopCloser(nil)
	)
	if cfg != nil && cfg.Log.File != "" {
		path := config.ExpandHome(cfg.Log.File)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		out, closer = io.MultiWriter(os.Stdout, f), f
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: level,
	})))
	return closer, nil
}

// openStore opens the configured backend, applying pending migrations.
func openStore(cfg *config.Config) (store.MessageStore, error) {
	if cfg.Database.UsePostgres() {
		s, err := pg.Open(cfg.Database.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		slog.Info("message store opened", "backend", "postgres")
		return s, nil
	}
	path := config.ExpandHome(cfg.Database.Path)
	s, err := sqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	slog.Info("message store opened", "backend", "sqlite", "path", path)
	return s, nil
}

// storeMigrations returns the embedded migrations and database URL of the
// configured backend.
func storeMigrations(cfg *config.Config) (fs.FS, string, error) {
	if cfg.Database.UsePostgres() {
		return pg.Migrations, cfg.Database.PostgresDSN, nil
	}
	path := config.ExpandHome(cfg.Database.Path)
	if path == "" {
		path = sqlite.DefaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, "", fmt.Errorf("create db directory: %w", err)
		}
	}
	return sqlite.Migrations, sqlite.MigrationURL(path), nil
}

func newStoreMigrator(cfg *config.Config) (*migrate.Migrate, error) {
	migrations, url, err := storeMigrations(cfg)
	if err != nil {
		return nil, err
	}
	return store.NewMigrator(migrations, url)
}

func closeMigrator(m *migrate.Migrate) {
	if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
		slog.Debug("migrator close", "source_error", srcErr, "db_error", dbErr)
	}
}
