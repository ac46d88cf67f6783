package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sagarc03/rookery"
)

// quoteIdentifier safely quotes a SQLite identifier
func quoteIdentifier(name string) string {
	return `"` + name + `"`
}

type TableMigration struct {
	TableName string
	Up        func(ctx context.Context, db *sql.DB) error
	Down      func(ctx context.Context, db *sql.DB) error
}

// getTableMigrations returns all table migrations for the app
func getTableMigrations(tables rookery.Tables) []TableMigration {
	migrations := []TableMigration{}

	migrations = append(migrations, TableMigration{
		TableName: tables.Resources,
		Up:        createResourceTable(tables.Resources),
		Down:      dropTable(tables.Resources),
	})

	return migrations
}

func Migrate(ctx context.Context, db *sql.DB, tables rookery.Tables) error {
	migrations := getTableMigrations(tables)

	for _, migration := range migrations {
		if err := migration.Up(ctx, db); err != nil {
			return fmt.Errorf("migrate up %s: %w", migration.TableName, err)
		}
	}

	return nil
}

func DropTables(ctx context.Context, db *sql.DB, tables rookery.Tables) error {
	migrations := getTableMigrations(tables)

	for i := len(migrations) - 1; i >= 0; i-- {
		migration := migrations[i]
		if err := migration.Down(ctx, db); err != nil {
			return fmt.Errorf("migrate down %s: %w", migration.TableName, err)
		}
	}

	return nil
}

// createResourceTable creates the node table and its root row. The root is
// stored with path '' so that its modification time can be tracked like any
// other directory.
func createResourceTable(tableName string) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		quotedTable := quoteIdentifier(tableName)
		indexParent := quoteIdentifier(fmt.Sprintf("idx_%s_parent", tableName))

		createTableSQL := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				path TEXT NOT NULL PRIMARY KEY,
				parent TEXT NOT NULL,
				name TEXT NOT NULL,
				is_dir INTEGER NOT NULL,
				content BLOB,
				size INTEGER NOT NULL,
				last_modified TEXT NOT NULL
			)
		`, quotedTable)

		if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
			return fmt.Errorf("create table: %w", err)
		}

		indexSQL := fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s ON %s (parent, name)
		`, indexParent, quotedTable)

		if _, err := db.ExecContext(ctx, indexSQL); err != nil {
			return fmt.Errorf("create index parent: %w", err)
		}

		rootSQL := fmt.Sprintf(`
			INSERT INTO %s (path, parent, name, is_dir, content, size, last_modified)
			VALUES ('', '', '', 1, NULL, 0, ?)
			ON CONFLICT (path) DO NOTHING
		`, quotedTable)

		if _, err := db.ExecContext(ctx, rootSQL, formatTime(time.Now())); err != nil {
			return fmt.Errorf("create root: %w", err)
		}

		return nil
	}
}

func dropTable(tableName string) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		quotedTable := quoteIdentifier(tableName)
		dropSQL := fmt.Sprintf("DROP TABLE IF EXISTS %s", quotedTable)

		_, err := db.ExecContext(ctx, dropSQL)
		return err
	}
}
