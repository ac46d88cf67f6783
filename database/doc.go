// Package database provides rookery drivers on SQL backends.
//
// The whole tree lives in one table: one row per file or directory, keyed
// by path, with file content stored inline. Moves and recursive deletes are
// single transactions, which makes them atomic for readers.
//
// # Supported Backends
//
//   - PostgreSQL: pgx connection pool
//   - SQLite: modernc.org/sqlite, suitable for single-node deployments
//
// # Usage
//
//	cfg := database.Config{
//	    Type:   "sqlite",
//	    DSN:    "rookery.db",
//	    Tables: rookery.Tables{Resources: "rookery_resources"},
//	}
//
//	driver, cleanup, err := database.Open(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cleanup()
//
// Open runs migrations and validates the schema before returning.
//
// # Subpackages
//
//   - database/postgres: PostgreSQL implementation using pgx
//   - database/sqlite: SQLite implementation using modernc.org/sqlite
package database
