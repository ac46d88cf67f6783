package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sagarc03/rookery/database"
	rookeryhttp "github.com/sagarc03/rookery/http"
)

// Storage drivers.
const (
	DriverFilesystem = "filesystem"
	DriverMemory     = "memory"
	DriverDatabase   = "database"
	DriverBlob       = "blob"
)

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for rookery.
type Config struct {
	Env      string                 `mapstructure:"env" validate:"omitempty,oneof=dev development prod production"`
	Server   ServerConfig           `mapstructure:"server"`
	Service  ServiceConfig          `mapstructure:"service"`
	Storage  StorageConfig          `mapstructure:"storage"`
	Database database.Config        `mapstructure:"database"`
	CORS     rookeryhttp.CORSConfig `mapstructure:"cors"`
	Metrics  MetricsConfig          `mapstructure:"metrics"`
	Log      LogConfig              `mapstructure:"log"`
}

// IsProduction reports whether env selects production behaviour, such as
// JSON logs.
func (c *Config) IsProduction() bool {
	return c.Env == "prod" || c.Env == "production"
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,min=1,max=65535"`
	BasePath        string        `mapstructure:"base_path" validate:"required,startswith=/"`
	PublicURL       string        `mapstructure:"public_url" validate:"omitempty,url"`
	MaxUploadSize   int64         `mapstructure:"max_upload_size" validate:"min=0"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"min=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"min=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=0"`
}

// ServiceConfig holds service-level configuration.
type ServiceConfig struct {
	LockTimeout time.Duration     `mapstructure:"lock_timeout" validate:"min=0"`
	MimeTypes   map[string]string `mapstructure:"mime_types"`
}

// StorageConfig selects and configures the resource driver.
type StorageConfig struct {
	Driver string     `mapstructure:"driver" validate:"required,oneof=filesystem memory database blob"`
	Path   string     `mapstructure:"path" validate:"required_if=Driver filesystem"`
	Seed   string     `mapstructure:"seed"` // directory or zip loaded at startup
	Blob   BlobConfig `mapstructure:"blob"`
}

// BlobConfig holds S3-compatible bucket settings for the blob driver.
type BlobConfig struct {
	Endpoint             string `mapstructure:"endpoint"`
	Bucket               string `mapstructure:"bucket"`
	AccessKey            string `mapstructure:"access_key"`
	SecretKey            string `mapstructure:"secret_key"`
	UseSSL               bool   `mapstructure:"use_ssl"`
	Prefix               string `mapstructure:"prefix"`
	CreateBucket         bool   `mapstructure:"create_bucket"`
	MultipartThreshold   int64  `mapstructure:"multipart_threshold" validate:"min=0"`
	MaxRenameConcurrency int    `mapstructure:"max_rename_concurrency" validate:"min=0"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"db-type":        "database.type",
	"db-dsn":         "database.dsn",
	"storage-driver": "storage.driver",
	"storage-path":   "storage.path",
	"seed":           "storage.seed",
	"port":           "server.port",
	"base-path":      "server.base_path",
	"public-url":     "server.public_url",
	"log-level":      "log.level",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")

	v.SetDefault("server.port", 5708)
	v.SetDefault("server.base_path", rookeryhttp.DefaultBasePath)
	v.SetDefault("server.public_url", "")
	v.SetDefault("server.max_upload_size", 0) // 0 means no limit
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "5m")
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("service.lock_timeout", "30s")

	v.SetDefault("storage.driver", DriverFilesystem)
	v.SetDefault("storage.path", "./data")
	v.SetDefault("storage.seed", "")

	// Listed so env vars such as ROOKERY_STORAGE_BLOB_BUCKET are picked up.
	for _, key := range []string{"endpoint", "bucket", "access_key", "secret_key", "prefix"} {
		v.SetDefault("storage.blob."+key, "")
	}
	v.SetDefault("storage.blob.use_ssl", false)
	v.SetDefault("storage.blob.create_bucket", false)
	v.SetDefault("storage.blob.multipart_threshold", 5<<20)
	v.SetDefault("storage.blob.max_rename_concurrency", 10)

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "rookery.db")
	v.SetDefault("database.tables.resources", "rookery_resources")

	v.SetDefault("metrics.enabled", false)

	v.SetDefault("cors.enabled", false)
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "HEAD", "PUT", "DELETE"})
	v.SetDefault("cors.allowed_headers", []string{"*"})
	v.SetDefault("cors.exposed_headers", []string{"Resource-Type", "Resource-Parent", "Location"})
	v.SetDefault("cors.allow_credentials", false)
	v.SetDefault("cors.max_age", 300)

	v.SetDefault("log.level", "")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	v.SetEnvPrefix("ROOKERY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		bindFlags(v, flags)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks struct tags and the settings each storage driver needs.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	switch c.Storage.Driver {
	case DriverDatabase:
		if c.Database.Type != "sqlite" && c.Database.Type != "postgres" {
			return fmt.Errorf("validate config: database.type must be sqlite or postgres, got %q", c.Database.Type)
		}
		if c.Database.DSN == "" {
			return errors.New("validate config: database.dsn is required for the database driver")
		}
		if err := c.Database.Tables.Validate(); err != nil {
			return fmt.Errorf("validate config: %w", err)
		}
	case DriverBlob:
		if c.Storage.Blob.Bucket == "" {
			return errors.New("validate config: storage.blob.bucket is required for the blob driver")
		}
		if c.Storage.Blob.Endpoint == "" {
			return errors.New("validate config: storage.blob.endpoint is required for the blob driver")
		}
	}

	return nil
}
