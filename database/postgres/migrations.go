package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/rookery"
)

// Migrate creates the resources table, its parent index and the root row.
// It is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool, tables rookery.Tables) error {
	if err := tables.Validate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := createResourceTable(ctx, pool, tables.Resources); err != nil {
		return fmt.Errorf("migrate up %s: %w", tables.Resources, err)
	}
	return nil
}

// DropTables removes every table created by Migrate.
func DropTables(ctx context.Context, pool *pgxpool.Pool, tables rookery.Tables) error {
	sql := fmt.Sprintf("DROP TABLE IF EXISTS %s", pgx.Identifier{tables.Resources}.Sanitize())
	if _, err := pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("migrate down %s: %w", tables.Resources, err)
	}
	return nil
}

func createResourceTable(ctx context.Context, pool *pgxpool.Pool, tableName string) error {
	quotedTable := pgx.Identifier{tableName}.Sanitize()
	indexParent := pgx.Identifier{fmt.Sprintf("idx_%s_parent", tableName)}.Sanitize()

	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			path TEXT PRIMARY KEY,
			parent TEXT NOT NULL,
			name TEXT NOT NULL,
			is_dir BOOLEAN NOT NULL,
			content BYTEA,
			size BIGINT NOT NULL DEFAULT 0,
			last_modified TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS %s
		ON %s (parent, name COLLATE "C");

		INSERT INTO %s (path, parent, name, is_dir)
		VALUES ('', '', '', TRUE)
		ON CONFLICT (path) DO NOTHING;
	`,
		quotedTable,
		indexParent, quotedTable,
		quotedTable,
	)

	_, err := pool.Exec(ctx, sql)
	if err != nil {
		return fmt.Errorf("create resource table: %w", err)
	}
	return nil
}
