// Package config provides configuration loading and validation for the
// rookery server.
//
// The package handles YAML configuration files, environment variables, and CLI flags
// with automatic merging and validation using go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (ROOKERY_ prefix)
//  4. CLI flags
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Store in context for subcommands
//	ctx = config.WithContext(ctx, cfg)
//
//	// Retrieve later
//	cfg, err = config.FromContext(ctx)
//
// # Environment Variables
//
// All config keys map to environment variables with ROOKERY_ prefix:
//   - server.port → ROOKERY_SERVER_PORT
//   - storage.driver → ROOKERY_STORAGE_DRIVER
//   - storage.blob.bucket → ROOKERY_STORAGE_BLOB_BUCKET
//
// # Storage Drivers
//
// storage.driver selects where resources live:
//   - filesystem: a directory tree under storage.path
//   - memory: an in-process tree, optionally seeded from storage.seed
//   - database: sqlite or postgres, configured under database
//   - blob: an S3-compatible bucket, configured under storage.blob
//
// Settings of drivers that are not selected are not validated.
package config
