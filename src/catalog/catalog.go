// Package catalog owns the relational layout of the media library. It creates
// and upgrades the SQLite database and exposes the parametrized primitives
// which the storage provider and the query engine are built upon.
//
// The catalog keeps no connection state of its own. Every function receives a
// DBTX which is either a *sql.DB or an open *sql.Tx. Writers must be
// serialized by the caller.
package catalog

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	migrate "github.com/ironsmile/sql-migrate"
	_ "github.com/mattn/go-sqlite3" // database driver
	"github.com/rs/zerolog/log"
)

// SQLiteMemoryFile is a special database path which causes the catalog to be
// kept in memory. Used in tests.
const SQLiteMemoryFile = ":memory:"

// migrationsDirectory is the directory within migrationFiles which holds the
// .sql files for sql-migrate.
const migrationsDirectory = "migrations"

//go:embed migrations/*.sql
var migrationFiles embed.FS

// ErrSchemaUpgrade is returned by Load when a migration step did not advance
// the stored schema version.
var ErrSchemaUpgrade = errors.New("database schema upgrade failed")

// DBTX is the subset of *sql.DB and *sql.Tx used by the catalog functions.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open returns a handle to the catalog database at path. The handle is limited
// to a single connection so that one open transaction blocks other writers
// instead of failing with "database is locked". Timeout is how long a
// statement waits for a lock held by another process.
func Open(path string, timeout time.Duration) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s?_busy_timeout=%d", path, timeout.Milliseconds())

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening catalog %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to catalog %s: %w", path, err)
	}

	return db, nil
}

// Load creates the catalog schema or upgrades it to the latest version. It
// returns the schema version in use after the upgrade.
func Load(ctx context.Context, db *sql.DB) (int, error) {
	migrations, err := fs.Sub(migrationFiles, migrationsDirectory)
	if err != nil {
		return 0, fmt.Errorf("locating migrations dir within embedded fs.FS failed: %w", err)
	}

	return load(ctx, db, &migrate.HttpFileSystemMigrationSource{
		FileSystem: http.FS(migrations),
	})
}

// load applies the migrations from source one at a time. Every applied step
// must strictly increase the schema version.
func load(ctx context.Context, db *sql.DB, source migrate.MigrationSource) (int, error) {
	version, err := SchemaVersion(ctx, db)
	if err != nil {
		return 0, err
	}

	for {
		applied, err := migrate.ExecMax(db, "sqlite3", source, migrate.Up, 1)
		if _, ok := err.(*migrate.PlanError); ok {
			log.Warn().Err(err).Msg("error applying database migrations")
			return version, nil
		}
		if err != nil {
			return version, fmt.Errorf("executing db migration failed: %w", err)
		}
		if applied == 0 {
			return version, nil
		}

		newVersion, err := SchemaVersion(ctx, db)
		if err != nil {
			return version, err
		}
		if newVersion <= version {
			return version, fmt.Errorf("%w: version stayed at %d", ErrSchemaUpgrade, version)
		}

		if version == 0 {
			log.Info().Int("version", newVersion).Msg("created database schema")
		} else {
			log.Info().Int("from", version).Int("to", newVersion).
				Msg("upgraded database schema")
		}
		version = newVersion
	}
}

// SchemaVersion returns the version number stored in the database.
func SchemaVersion(ctx context.Context, db DBTX) (int, error) {
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}
