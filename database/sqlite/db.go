package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sagarc03/rookery"
	"github.com/sagarc03/rookery/database/internal"
)

var resourceColumns = []internal.Column{
	{Name: "path", Type: "text"},
	{Name: "parent", Type: "text"},
	{Name: "name", Type: "text"},
	{Name: "is_dir", Type: "integer"},
	{Name: "content", Type: "blob", Nullable: true},
	{Name: "size", Type: "integer"},
	{Name: "last_modified", Type: "text"},
}

// ValidateSchema checks that the resources table exists with the columns
// the driver reads and writes.
func ValidateSchema(ctx context.Context, db *sql.DB, tables rookery.Tables) error {
	table := tables.Resources
	if !rookery.IsValidTableName(table) {
		return fmt.Errorf("validate schema: invalid table name: %s", table)
	}

	// PRAGMA table_info yields no rows for a missing table.
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, quoteIdentifier(table)))
	if err != nil {
		return fmt.Errorf("validate schema %s: query columns: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var found []internal.Column
	for rows.Next() {
		var (
			cid, notNull, pk int
			c                internal.Column
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &c.Name, &c.Type, &notNull, &dflt, &pk); err != nil {
			return fmt.Errorf("validate schema %s: scan column: %w", table, err)
		}
		c.Nullable = notNull == 0
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
