// Package store persists cookies and cached responses in database/sql
// across sqlite, postgres, and mysql, selected by DSN at runtime.
// Migrations run through github.com/pressly/goose/v3 over an embedded
// SQL directory.
package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Driver identifies which SQL dialect backs a Store.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
)

// Config describes how to open and pool the backing database.
type Config struct {
	Driver          Driver
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns an in-memory SQLite configuration, adequate for
// tests and single-process use.
func DefaultConfig() Config {
	return Config{
		Driver:          DriverSQLite,
		DSN:             "file::memory:?cache=shared",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	}
}

// DriverFromDSN infers a Driver from a connection string's scheme
// ("postgres://", "postgresql://", "mysql://", everything else sqlite),
// so callers can hand a single DATABASE_URL-shaped value to Open.
func DriverFromDSN(dsn string) Driver {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return DriverPostgres
	case strings.HasPrefix(dsn, "mysql://"):
		return DriverMySQL
	default:
		return DriverSQLite
	}
}

// DB wraps *sql.DB with the dialect name goose and the query builder need.
type DB struct {
	Conn   *sql.DB
	Driver Driver
}

// sqlDriverName maps a Driver to the database/sql driver name registered
// by the imported driver package.
func sqlDriverName(d Driver) (string, error) {
	switch d {
	case DriverSQLite:
		return "sqlite3", nil
	case DriverPostgres:
		return "pgx", nil
	case DriverMySQL:
		return "mysql", nil
	default:
		return "", fmt.Errorf("store: unsupported driver %q", d)
	}
}

// Open connects to cfg.DSN using the driver matching cfg.Driver, applies
// connection pool settings, verifies connectivity, and migrates the
// schema to the latest version.
func Open(cfg Config) (*DB, error) {
	driverName, err := sqlDriverName(cfg.Driver)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", cfg.Driver, err)
	}

	if cfg.Driver == DriverSQLite && (cfg.DSN == ":memory:" || strings.Contains(cfg.DSN, ":memory:")) {
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
	} else {
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
		conn.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("store: ping %s: %w", cfg.Driver, err)
	}

	db := &DB{Conn: conn, Driver: cfg.Driver}
	if err := Migrate(db); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return db, nil
}

// Close releases the underlying connection pool.
func (db *DB) Close() error {
	return db.Conn.Close()
}

// placeholder returns the positional-parameter marker this driver's
// database/sql placeholder syntax expects: "?" for sqlite/mysql, "$n"
// for postgres.
func placeholder(d Driver, position int) string {
	if d == DriverPostgres {
		return fmt.Sprintf("$%d", position)
	}
	return "?"
}
