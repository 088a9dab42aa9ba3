package store

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// MigrationsDir is the directory inside a backend's embedded FS holding
// golang-migrate files ("0001_name.up.sql" / "0001_name.down.sql").
const MigrationsDir = "migrations"

// NewMigrator builds a migrator for the embedded migrations of a backend.
// The database driver for databaseURL's scheme must be imported by the caller.
// The caller owns the returned migrator and must Close it.
func NewMigrator(migrations fs.FS, databaseURL string) (*migrate.Migrate, error) {
	src, err := iofs.New(migrations, MigrationsDir)
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

// MigrateUp applies every pending migration. No pending migrations is not an error.
func MigrateUp(migrations fs.FS, databaseURL string) error {
	m, err := NewMigrator(migrations, databaseURL)
	if err != nil {
		return err
	}
	defer closeMigrator(m)

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}

	v, dirty, verr := m.Version()
	if verr == nil {
		slog.Debug("schema up to date", "version", v, "dirty", dirty)
	}
	return nil
}

func closeMigrator(m *migrate.Migrate) {
	srcErr, dbErr := m.Close()
	if srcErr != nil || dbErr != nil {
		slog.Debug("migrator close", "source_error", srcErr, "db_error", dbErr)
	}
}
