package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/rookery/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, 5708, cfg.Server.Port)
	assert.Equal(t, "/resource", cfg.Server.BasePath)
	assert.Empty(t, cfg.Server.PublicURL)
	assert.Equal(t, int64(0), cfg.Server.MaxUploadSize)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 30*time.Second, cfg.Service.LockTimeout)
	assert.Equal(t, config.DriverFilesystem, cfg.Storage.Driver)
	assert.Equal(t, "./data", cfg.Storage.Path)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "rookery.db", cfg.Database.DSN)
	assert.Equal(t, "rookery_resources", cfg.Database.Tables.Resources)
	assert.Equal(t, int64(5<<20), cfg.Storage.Blob.MultipartThreshold)
	assert.False(t, cfg.Metrics.Enabled)
	assert.False(t, cfg.CORS.Enabled)
	assert.Equal(t, []string{"GET", "HEAD", "PUT", "DELETE"}, cfg.CORS.AllowedMethods)
	assert.Empty(t, cfg.Log.Level)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := writeConfig(t, `
env: production
server:
  port: 8080
  base_path: /geoserver/rest/resource
  public_url: https://maps.example.com
  max_upload_size: 1048576
  shutdown_timeout: 10s
service:
  lock_timeout: 2s
  mime_types:
    sld: application/vnd.ogc.sld+xml
storage:
  driver: database
database:
  type: postgres
  dsn: postgres://localhost/test
  tables:
    resources: custom_resources
metrics:
  enabled: true
log:
  level: debug
`)

	cfg, err := config.Load([]string{path}, nil)
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "/geoserver/rest/resource", cfg.Server.BasePath)
	assert.Equal(t, "https://maps.example.com", cfg.Server.PublicURL)
	assert.Equal(t, int64(1<<20), cfg.Server.MaxUploadSize)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 2*time.Second, cfg.Service.LockTimeout)
	assert.Equal(t, map[string]string{"sld": "application/vnd.ogc.sld+xml"}, cfg.Service.MimeTypes)
	assert.Equal(t, config.DriverDatabase, cfg.Storage.Driver)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, "postgres://localhost/test", cfg.Database.DSN)
	assert.Equal(t, "custom_resources", cfg.Database.Tables.Resources)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_ConfigFileMerge(t *testing.T) {
	base := writeConfig(t, `
server:
  port: 5708
storage:
  driver: filesystem
  path: /srv/data
log:
  level: info
`)
	override := writeConfig(t, `
server:
  port: 9000
log:
  level: warn
`)

	cfg, err := config.Load([]string{base, override}, nil)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "/srv/data", cfg.Storage.Path)
}

func TestLoad_Blob(t *testing.T) {
	path := writeConfig(t, `
storage:
  driver: blob
  blob:
    endpoint: localhost:9000
    bucket: resources
    access_key: minioadmin
    secret_key: minioadmin
    prefix: geoserver
    create_bucket: true
    max_rename_concurrency: 4
`)

	cfg, err := config.Load([]string{path}, nil)
	require.NoError(t, err)

	assert.Equal(t, config.BlobConfig{
		Endpoint:             "localhost:9000",
		Bucket:               "resources",
		AccessKey:            "minioadmin",
		SecretKey:            "minioadmin",
		Prefix:               "geoserver",
		CreateBucket:         true,
		MultipartThreshold:   5 << 20,
		MaxRenameConcurrency: 4,
	}, cfg.Storage.Blob)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"port too high", "server:\n  port: 70000\n", "Port"},
		{"relative base path", "server:\n  base_path: resource\n", "BasePath"},
		{"bad public url", "server:\n  public_url: not a url\n", "PublicURL"},
		{"negative upload size", "server:\n  max_upload_size: -1\n", "MaxUploadSize"},
		{"unknown driver", "storage:\n  driver: tape\n", "Driver"},
		{"filesystem without path", "storage:\n  driver: filesystem\n  path: \"\"\n", "Path"},
		{"bad log level", "log:\n  level: loud\n", "Level"},
		{"bad env", "env: staging\n", "Env"},
		{"database type", "storage:\n  driver: database\ndatabase:\n  type: mysql\n", "database.type"},
		{"database tables", "storage:\n  driver: database\ndatabase:\n  tables:\n    resources: Bad-Name\n", "Bad-Name"},
		{"blob without bucket", "storage:\n  driver: blob\n  blob:\n    endpoint: localhost:9000\n", "storage.blob.bucket"},
		{"blob without endpoint", "storage:\n  driver: blob\n  blob:\n    bucket: b\n", "storage.blob.endpoint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load([]string{writeConfig(t, tt.content)}, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "validate config")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_MemoryDriverIgnoresOtherBackends(t *testing.T) {
	path := writeConfig(t, `
storage:
  driver: memory
  seed: ./seed.zip
database:
  type: mysql
`)

	cfg, err := config.Load([]string{path}, nil)
	require.NoError(t, err)
	assert.Equal(t, config.DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, "./seed.zip", cfg.Storage.Seed)
}

func TestLoad_WithCORS(t *testing.T) {
	path := writeConfig(t, `
cors:
  enabled: true
  allowed_origins:
    - https://example.com
    - https://app.example.com
  allowed_methods:
    - GET
    - PUT
  allowed_headers:
    - Content-Type
  allow_credentials: true
  max_age: 600
`)

	cfg, err := config.Load([]string{path}, nil)
	require.NoError(t, err)

	assert.True(t, cfg.CORS.Enabled)
	assert.Equal(t, []string{"https://example.com", "https://app.example.com"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, []string{"GET", "PUT"}, cfg.CORS.AllowedMethods)
	assert.Equal(t, []string{"Content-Type"}, cfg.CORS.AllowedHeaders)
	assert.True(t, cfg.CORS.AllowCredentials)
	assert.Equal(t, 600, cfg.CORS.MaxAge)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("ROOKERY_SERVER_PORT", "9090")
	t.Setenv("ROOKERY_SERVER_PUBLIC_URL", "http://proxy.local")
	t.Setenv("ROOKERY_STORAGE_DRIVER", "blob")
	t.Setenv("ROOKERY_STORAGE_BLOB_ENDPOINT", "minio:9000")
	t.Setenv("ROOKERY_STORAGE_BLOB_BUCKET", "geo")
	t.Setenv("ROOKERY_SERVICE_LOCK_TIMEOUT", "500ms")

	cfg, err := config.Load(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "http://proxy.local", cfg.Server.PublicURL)
	assert.Equal(t, config.DriverBlob, cfg.Storage.Driver)
	assert.Equal(t, "minio:9000", cfg.Storage.Blob.Endpoint)
	assert.Equal(t, "geo", cfg.Storage.Blob.Bucket)
	assert.Equal(t, 500*time.Millisecond, cfg.Service.LockTimeout)
}

func TestLoad_Flags(t *testing.T) {
	t.Setenv("ROOKERY_SERVER_PORT", "9090")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("port", 5708, "")
	flags.String("storage-driver", "", "")
	flags.String("base-path", "", "")
	flags.String("db-dsn", "", "")
	require.NoError(t, flags.Parse([]string{"--port", "7000", "--storage-driver", "memory"}))

	cfg, err := config.Load(nil, flags)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port, "flags win over env")
	assert.Equal(t, config.DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, "/resource", cfg.Server.BasePath, "unset flags keep defaults")
	assert.Equal(t, "rookery.db", cfg.Database.DSN)
}

func TestLoad_UnreadableFileFallsBack(t *testing.T) {
	cfg, err := config.Load([]string{filepath.Join(t.TempDir(), "missing.yaml")}, nil)
	require.NoError(t, err)
	assert.Equal(t, 5708, cfg.Server.Port)
}

func TestFromContext(t *testing.T) {
	_, err := config.FromContext(context.Background())
	assert.Error(t, err)

	cfg := &config.Config{Env: "dev"}
	got, err := config.FromContext(config.WithContext(context.Background(), cfg))
	require.NoError(t, err)
	assert.Same(t, cfg, got)
}
