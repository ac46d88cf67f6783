package sqlite_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/sagarc03/rookery/database/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func TestValidateSchema(t *testing.T) {
	ctx := context.Background()

	t.Run("missing table", func(t *testing.T) {
		db, err := sqlite.Connect(ctx, ":memory:", randomTables(t))
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		err = db.Validate(ctx)
		assert.ErrorContains(t, err, "does not exist")
	})

	t.Run("after migrate", func(t *testing.T) {
		db, err := sqlite.Connect(ctx, ":memory:", randomTables(t))
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		require.NoError(t, db.Migrate(ctx))
		assert.NoError(t, db.Validate(ctx))
	})

	t.Run("migrate is idempotent", func(t *testing.T) {
		db, err := sqlite.Connect(ctx, ":memory:", randomTables(t))
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		require.NoError(t, db.Migrate(ctx))
		require.NoError(t, db.Migrate(ctx))
		assert.NoError(t, db.Validate(ctx))
		assert.NoError(t, db.Ping(ctx))
	})

	t.Run("wrong columns", func(t *testing.T) {
		raw, err := sql.Open("sqlite", ":memory:")
		require.NoError(t, err)
		raw.SetMaxOpenConns(1)
		defer func() { _ = raw.Close() }()

		tables := randomTables(t)
		_, err = raw.ExecContext(ctx, fmt.Sprintf(
			`CREATE TABLE %q (path TEXT NOT NULL PRIMARY KEY, is_dir TEXT NOT NULL)`, tables.Resources))
		require.NoError(t, err)

		err = sqlite.ValidateSchema(ctx, raw, tables)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing columns")
		assert.Contains(t, err.Error(), "is_dir: expected integer, got text")
	})

	t.Run("drop tables", func(t *testing.T) {
		raw, err := sql.Open("sqlite", ":memory:")
		require.NoError(t, err)
		raw.SetMaxOpenConns(1)
		defer func() { _ = raw.Close() }()

		tables := randomTables(t)
		require.NoError(t, sqlite.Migrate(ctx, raw, tables))
		require.NoError(t, sqlite.ValidateSchema(ctx, raw, tables))
		require.NoError(t, sqlite.DropTables(ctx, raw, tables))
		assert.Error(t, sqlite.ValidateSchema(ctx, raw, tables))
	})
}
