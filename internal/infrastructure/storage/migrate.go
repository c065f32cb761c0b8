package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFS embed.FS

// RunMigrations applies all pending migrations for the dialect and returns
// the resulting schema version.
func RunMigrations(db *sql.DB, dialect Dialect) (uint, bool, error) {
	var (
		driver database.Driver
		err    error
	)
	switch dialect.Name {
	case Postgres.Name:
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	case SQLite.Name:
		driver, err = sqlite.WithInstance(db, &sqlite.Config{})
	default:
		return 0, false, fmt.Errorf("no migrations for dialect %q", dialect.Name)
	}
	if err != nil {
		return 0, false, fmt.Errorf("create %s migration driver: %w", dialect.Name, err)
	}

	source, err := iofs.New(migrationFS, "migrations/"+dialect.Name)
	if err != nil {
		return 0, false, fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, dialect.Name, driver)
	if err != nil {
		return 0, false, fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, false, fmt.Errorf("run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, false, fmt.Errorf("read migration version: %w", err)
	}

	return version, dirty, nil
}
