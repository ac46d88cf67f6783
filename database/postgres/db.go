package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sagarc03/rookery"
	"github.com/sagarc03/rookery/database/internal"
)

var resourceColumns = []internal.Column{
	{Name: "path", Type: "text"},
	{Name: "parent", Type: "text"},
	{Name: "name", Type: "text"},
	{Name: "is_dir", Type: "boolean"},
	{Name: "content", Type: "bytea", Nullable: true},
	{Name: "size", Type: "bigint"},
	{Name: "last_modified", Type: "timestamp with time zone"},
}

// ValidateSchema checks that the resources table exists in the public schema
// with the columns the driver reads and writes.
func ValidateSchema(ctx context.Context, pool *pgxpool.Pool, tables rookery.Tables) error {
	table := tables.Resources
	if !rookery.IsValidTableName(table) {
		return fmt.Errorf("validate schema: invalid table name: %s", table)
	}

	rows, err := pool.Query(ctx, `
		SELECT column_name, data_type, is_nullable = 'YES'
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
		ORDER BY ordinal_position`, table)
	if err != nil {
		return fmt.Errorf("validate schema %s: query columns: %w", table, err)
	}
	defer rows.Close()

	var found []internal.Column
	for rows.Next() {
		var c internal.Column
		if err := rows.Scan(&c.Name, &c.Type, &c.Nullable); err != nil {
			return fmt.Errorf("validate schema %s: scan column: %w", table, err)
		}
		found = append(found, c)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("validate schema %s: %w", table, err)
	}

	if len(found) == 0 {
		return fmt.Errorf("validate schema: table %s does not exist", table)
	}

	return internal.CheckColumns(table, resourceColumns, found)
}
