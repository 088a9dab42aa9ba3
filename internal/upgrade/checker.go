// Package upgrade reports whether a message store schema matches the
// migrations compiled into this binary.
package upgrade

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
)

// RequiredSchemaVersion is the latest migration embedded in the store backends.
const RequiredSchemaVersion uint = 1

// SchemaStatus represents the result of a schema compatibility check.
type SchemaStatus struct {
	CurrentVersion  uint
	RequiredVersion uint
	Dirty           bool
	Compatible      bool
	NeedsMigration  bool
}

// Versioner is satisfied by *migrate.Migrate.
type Versioner interface {
	Version() (version uint, dirty bool, err error)
}

// CheckSchema compares the migrator's recorded version with
// RequiredSchemaVersion. A database without migrations needs migration.
func CheckSchema(m Versioner) (*SchemaStatus, error) {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return &SchemaStatus{
			RequiredVersion: RequiredSchemaVersion,
			NeedsMigration:  true,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read schema version: %w", err)
	}

	s := &SchemaStatus{
		CurrentVersion:  version,
		RequiredVersion: RequiredSchemaVersion,
		Dirty:           dirty,
	}
	if dirty {
		return s, nil
	}

	switch {
	case version == RequiredSchemaVersion:
		s.Compatible = true
	case version < RequiredSchemaVersion:
		s.NeedsMigration = true
	default:
		// Schema is ahead: binary is too old.
	}
	return s, nil
}

// Describe returns a one-line summary suitable for CLI output.
func Describe(s *SchemaStatus) string {
	switch {
	case s.Dirty:
		return fmt.Sprintf("v%d (DIRTY, run: opsrelay migrate force %d)", s.CurrentVersion, prevVersion(s.CurrentVersion))
	case s.Compatible:
		return fmt.Sprintf("v%d (up to date)", s.CurrentVersion)
	case s.CurrentVersion > s.RequiredVersion:
		return fmt.Sprintf("v%d (binary too old, requires v%d)", s.CurrentVersion, s.RequiredVersion)
	case s.CurrentVersion == 0:
		return fmt.Sprintf("not initialized (run: opsrelay migrate up, requires v%d)", s.RequiredVersion)
	}
	return fmt.Sprintf("v%d (upgrade needed, run: opsrelay migrate up)", s.CurrentVersion)
}

func prevVersion(v uint) int {
	if v == 0 {
		return -1
	}
	return int(v) - 1
}
