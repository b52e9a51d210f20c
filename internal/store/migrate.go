package store

import (
	"context"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func gooseDialect(d Driver) (string, error) {
	switch d {
	case DriverSQLite:
		return "sqlite3", nil
	case DriverPostgres:
		return "postgres", nil
	case DriverMySQL:
		return "mysql", nil
	default:
		return "", fmt.Errorf("store: unsupported driver %q for migrations", d)
	}
}

// Migrate applies every pending embedded migration to db, whichever
// driver db was opened with.
func Migrate(db *DB) error {
	dialect, err := gooseDialect(db.Driver)
	if err != nil {
		return err
	}

	provider, err := goose.NewProvider(goose.DialectType(dialect), db.Conn, migrationsFS)
	if err != nil {
		return fmt.Errorf("store: migration provider: %w", err)
	}
	if _, err := provider.Up(context.Background()); err != nil {
		return fmt.Errorf("store: apply migrations: %w", err)
	}
	return nil
}
