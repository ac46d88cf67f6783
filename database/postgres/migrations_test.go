package postgres_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/rookery"
	"github.com/sagarc03/rookery/database/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tableSchema struct {
	name            string
	expectedColumns map[string]string
	expectedIndexes []string
}

func getExpectedTableSchemas(tables rookery.Tables) []tableSchema {
	return []tableSchema{
		{
			name: tables.Resources,
			expectedColumns: map[string]string{
				"path":          "text",
				"parent":        "text",
				"name":          "text",
				"is_dir":        "boolean",
				"content":       "bytea",
				"size":          "bigint",
				"last_modified": "timestamp with time zone",
			},
			expectedIndexes: []string{
				fmt.Sprintf("idx_%s_parent", tables.Resources),
			},
		},
	}
}

func tableExists(t *testing.T, ctx context.Context, pool *pgxpool.Pool, tableName string) bool {
	t.Helper()

	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = $1
		)
	`, tableName).Scan(&exists)
	require.NoError(t, err, "failed to check table existence for %s", tableName)
	return exists
}

func verifyTableSchema(t *testing.T, ctx context.Context, pool *pgxpool.Pool, schema tableSchema) {
	t.Helper()

	assert.True(t, tableExists(t, ctx, pool, schema.name), "expected table %s to exist", schema.name)

	for colName, expectedType := range schema.expectedColumns {
		var dataType string
		err := pool.QueryRow(ctx, `
			SELECT data_type
			FROM information_schema.columns
			WHERE table_name = $1 AND column_name = $2
		`, schema.name, colName).Scan(&dataType)
		assert.NoError(t, err, "table %s: column %s does not exist", schema.name, colName)
		assert.Equal(t, expectedType, dataType, "table %s: column %s type mismatch", schema.name, colName)
	}

	for _, indexName := range schema.expectedIndexes {
		var exists bool
		err := pool.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT FROM pg_indexes
				WHERE tablename = $1 AND indexname = $2
			)
		`, schema.name, indexName).Scan(&exists)
		assert.NoError(t, err, "table %s: failed to check index %s", schema.name, indexName)
		assert.True(t, exists, "table %s: expected index %s to exist", schema.name, indexName)
	}

	var constraintType string
	err := pool.QueryRow(ctx, `
		SELECT constraint_type
		FROM information_schema.table_constraints
		WHERE table_name = $1 AND constraint_type = 'PRIMARY KEY'
	`, schema.name).Scan(&constraintType)
	assert.NoError(t, err, "table %s: primary key constraint not found", schema.name)
}

func TestMigrate(t *testing.T) {
	pool := getSharedTestDatabase(t)
	ctx := context.Background()

	t.Run("success - creates tables with correct schemas", func(t *testing.T) {
		tables := randomTables(t)
		defer func() { _ = dropTable(ctx, pool, tables.Resources) }()

		require.NoError(t, postgres.Migrate(ctx, pool, tables), "Migrate failed")

		for _, schema := range getExpectedTableSchemas(tables) {
			t.Run(schema.name, func(t *testing.T) {
				verifyTableSchema(t, ctx, pool, schema)
			})
		}
	})

	t.Run("creates root row once", func(t *testing.T) {
		tables := randomTables(t)
		defer func() { _ = dropTable(ctx, pool, tables.Resources) }()

		require.NoError(t, postgres.Migrate(ctx, pool, tables))
		require.NoError(t, postgres.Migrate(ctx, pool, tables))

		var count int
		err := pool.QueryRow(ctx,
			fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE path = ''`, tables.Resources),
		).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("rejects invalid table name", func(t *testing.T) {
		err := postgres.Migrate(ctx, pool, rookery.Tables{Resources: "bad name"})
		assert.ErrorContains(t, err, "invalid resources table name")
	})
}

func TestDropTables(t *testing.T) {
	pool := getSharedTestDatabase(t)
	ctx := context.Background()

	t.Run("round trip - migrate, drop, migrate again", func(t *testing.T) {
		tables := randomTables(t)
		defer func() { _ = dropTable(ctx, pool, tables.Resources) }()

		require.NoError(t, postgres.Migrate(ctx, pool, tables), "first Migrate failed")
		assert.True(t, tableExists(t, ctx, pool, tables.Resources))

		require.NoError(t, postgres.DropTables(ctx, pool, tables), "DropTables failed")
		assert.False(t, tableExists(t, ctx, pool, tables.Resources))

		require.NoError(t, postgres.DropTables(ctx, pool, tables), "second DropTables failed")

		require.NoError(t, postgres.Migrate(ctx, pool, tables), "second Migrate failed")
		assert.True(t, tableExists(t, ctx, pool, tables.Resources))
	})
}
