package journal

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
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/nextlevelbuilder/careerclaw/internal/config"
)

// ErrUnsupportedDriver is returned for journal drivers other than sqlite and postgres.
var ErrUnsupportedDriver = errors.New("journal: unsupported driver")

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

//go:embed migrations
var migrationsFS embed.FS

// openDB opens the database for cfg. The sqlite driver name is registered by
// modernc.org/sqlite, the postgres one by pgx's database/sql adapter.
func openDB(cfg config.JournalConfig) (*sql.DB, error) {
	switch cfg.Driver {
	case DriverSQLite:
		db, err := sql.Open("sqlite", cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite journal: %w", err)
		}
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite journal pragma: %w", err)
		}
		return db, nil
	case DriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres journal: CAREERCLAW_POSTGRES_DSN is not set")
		}
		db, err := sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres journal: %w", err)
		}
		return db, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
}

// newMigrator binds the embedded migrations for driver to db. Closing the
// returned migrator closes db.
func newMigrator(driver string, db *sql.DB) (*migrate.Migrate, error) {
	var (
		target database.Driver
		err    error
	)
	switch driver {
	case DriverSQLite:
		target, err = sqlite.WithInstance(db, &sqlite.Config{})
	case DriverPostgres:
		target, err = postgres.WithInstance(db, &postgres.Config{})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
	if err != nil {
		return nil, fmt.Errorf("migration driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations/"+driver)
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, driver, target)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

// Migrator opens the configured database and returns a migrator for the
// migrate CLI. The caller must Close it.
func Migrator(cfg config.JournalConfig) (*migrate.Migrate, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	m, err := newMigrator(cfg.Driver, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return m, nil
}

func migrateUp(m *migrate.Migrate) error {
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}
