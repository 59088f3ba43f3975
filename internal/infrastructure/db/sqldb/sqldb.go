// Package sqldb implements the credential and todo stores on a relational
// database reached through database/sql. SQLite (modernc.org/sqlite) and
// PostgreSQL (pgx stdlib driver) are supported; the schema is managed by
// embedded goose migrations, one set per dialect.
package sqldb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	defaultTimeout = 5 * time.Second

	pgUniqueViolation = "23505"
)

//go:embed migrations
var migrationsFS embed.FS

// Config captures the settings for opening the store.
type Config struct {
	Driver  string
	DSN     string
	Timeout time.Duration
}

// Open connects to the database, verifies connectivity with a ping, and
// applies pending migrations. A default timeout is applied when none is
// provided.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	var (
		driverName string
		dialect    goose.Dialect
	)
	switch cfg.Driver {
	case DriverSQLite:
		driverName, dialect = "sqlite", goose.DialectSQLite3
	case DriverPostgres:
		driverName, dialect = "pgx", goose.DialectPostgres
	default:
		return nil, fmt.Errorf("sqldb: unsupported driver %q", cfg.Driver)
	}

	db, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sql ping: %w", err)
	}

	if err := migrate(ctx, db, dialect, cfg.Driver); err != nil {
		_ = db.Close()
		return nil, err
	}

	if cfg.Driver == DriverSQLite {
		// SQLite serialises writers anyway; one connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}

	return db, nil
}

func migrate(ctx context.Context, db *sql.DB, dialect goose.Dialect, dir string) error {
	fsys, err := fs.Sub(migrationsFS, "migrations/"+dir)
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}

	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure in
// either supported dialect.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
