package database_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/sagarc03/rookery"
	"github.com/sagarc03/rookery/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helpers

func newTestConfig(tableName string) database.Config {
	return database.Config{
		Type:   "sqlite",
		DSN:    ":memory:",
		Tables: rookery.Tables{Resources: tableName},
	}
}

func setupTestDB(t *testing.T, tableName string) database.Database {
	t.Helper()
	ctx := context.Background()

	db, err := database.Connect(ctx, newTestConfig(tableName))
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })

	return db
}

// Tests for Connect routing logic

func TestConnect_SQLite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db := setupTestDB(t, "test_resources")

	err := db.Ping(ctx)
	assert.NoError(t, err)
}

func TestConnect_InvalidType(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	cfg := database.Config{
		Type:   "invalid",
		DSN:    "whatever",
		Tables: rookery.Tables{Resources: "test_resources"},
	}

	db, err := database.Connect(ctx, cfg)
	assert.Nil(t, db)
	assert.ErrorContains(t, err, "unsupported database type")
}

func TestConnect_EmptyType(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	cfg := database.Config{
		Type:   "",
		DSN:    ":memory:",
		Tables: rookery.Tables{Resources: "test_resources"},
	}

	_, err := database.Connect(ctx, cfg)
	assert.ErrorContains(t, err, "unsupported database type")
}

func TestConnect_InvalidTables(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name  string
		table string
	}{
		{"empty", ""},
		{"uppercase", "Resources"},
		{"injection", "resources; DROP TABLE x"},
		{"leading digit", "1resources"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestConfig(tt.table)
			_, err := database.Connect(ctx, cfg)
			assert.ErrorContains(t, err, "validate tables")
		})
	}
}

// Tests for Database interface methods

func TestDatabase_Migrate_Idempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db := setupTestDB(t, "migrate_idem_test")

	require.NoError(t, db.Migrate(ctx))
	assert.NoError(t, db.Migrate(ctx), "migrate should be idempotent")
}

func TestDatabase_Validate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db := setupTestDB(t, "validate_test")

	assert.Error(t, db.Validate(ctx), "validate should fail without tables")

	require.NoError(t, db.Migrate(ctx))
	assert.NoError(t, db.Validate(ctx), "validate should pass after migration")
}

func TestDatabase_Close(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db, err := database.Connect(ctx, newTestConfig("close_test"))
	require.NoError(t, err)

	require.NoError(t, db.Close())
	assert.Error(t, db.Ping(ctx), "ping should fail after close")
}

func TestOpen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	driver, cleanup, err := database.Open(ctx, newTestConfig("open_test"))
	require.NoError(t, err)
	defer cleanup()

	_, err = driver.Write(ctx, rookery.MustParsePath("docs/readme.txt"), strings.NewReader("hello"))
	require.NoError(t, err)

	entries, err := driver.ReadDir(ctx, rookery.MustParsePath("docs"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "readme.txt", entries[0].Name)

	rc, err := driver.Open(ctx, rookery.MustParsePath("docs/readme.txt"))
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	_ = rc.Close()
	assert.Equal(t, "hello", string(data))
}

func TestOpen_ServesService(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	driver, cleanup, err := database.Open(ctx, newTestConfig("service_test"))
	require.NoError(t, err)
	defer cleanup()

	svc, err := rookery.NewService(driver, rookery.ServiceConfig{})
	require.NoError(t, err)

	created, err := svc.Upload(ctx, rookery.MustParsePath("mydir/myres"), strings.NewReader("content"))
	require.NoError(t, err)
	assert.True(t, created)

	require.NoError(t, svc.Move(ctx, rookery.MustParsePath("mydir"), rookery.MustParsePath("other")))

	obj, err := svc.Read(ctx, rookery.MustParsePath("other/myres"))
	require.NoError(t, err)
	defer func() { _ = obj.Body.Close() }()
	assert.Equal(t, rookery.File, obj.Resource.Type)
}

func TestOpen_UnsupportedType(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig("unsupported_test")
	cfg.Type = "mysql"

	driver, cleanup, err := database.Open(context.Background(), cfg)
	assert.Error(t, err)
	assert.Nil(t, driver)
	assert.Nil(t, cleanup)
}

// Note: Postgres-specific tests are in database/postgres package.
// The Connect function's postgres routing is implicitly tested there.
