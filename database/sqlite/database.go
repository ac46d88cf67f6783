package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sagarc03/rookery"

	_ "modernc.org/sqlite" // SQLite driver
)

// database provides SQLite database operations.
type database struct {
	db     *sql.DB
	tables rookery.Tables
}

// Connect establishes a connection to SQLite.
// Tables should be validated before calling Connect.
//
// The pool is limited to one connection: an in-memory database exists per
// connection, and SQLite serializes writers anyway.
func Connect(_ context.Context, dsn string, tables rookery.Tables) (*database, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	return &database{
		db:     db,
		tables: tables,
	}, nil
}

// Ping verifies the database connection is alive.
func (d *database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Migrate runs database migrations to create required tables.
func (d *database) Migrate(ctx context.Context) error {
	if err := Migrate(ctx, d.db, d.tables); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Validate checks that the database schema matches expected structure.
func (d *database) Validate(ctx context.Context) error {
	return ValidateSchema(ctx, d.db, d.tables)
}

// Driver returns the rookery.Driver backed by the resources table.
func (d *database) Driver() rookery.Driver {
	return &Store{db: d.db, table: quoteIdentifier(d.tables.Resources)}
}

// Close closes the database connection.
func (d *database) Close() error {
	return d.db.Close()
}
