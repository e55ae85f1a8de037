package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Schema version tracking:
// 1 - objects table
// 2 - store_metadata (model hash)
const schemaVersion = 2

// runMigrations brings the store schema up to schemaVersion.
//
// A fresh file is always initialized. An existing file at an older version
// is only upgraded when auto is set; otherwise ErrMigrationRequired.
func runMigrations(db *sql.DB, driverName string, auto bool) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	// The migrate instance is not closed: its database driver owns db,
	// which outlives the migration run.
	defer src.Close()

	dbDriver, err := migrationDriver(db, driverName)
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, driverName, dbDriver)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		// Fresh store.
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case dirty:
		return fmt.Errorf("schema version %d is dirty", version)
	case version < schemaVersion && !auto:
		return fmt.Errorf("schema version %d, want %d: %w", version, schemaVersion, ErrMigrationRequired)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func migrationDriver(db *sql.DB, driverName string) (database.Driver, error) {
	switch driverName {
	case DriverCGO:
		return sqlite3.WithInstance(db, &sqlite3.Config{})
	case DriverPure:
		return sqlite.WithInstance(db, &sqlite.Config{})
	default:
		return nil, fmt.Errorf("unsupported driver %q", driverName)
	}
}
