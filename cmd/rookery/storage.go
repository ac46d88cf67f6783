package main

import (
	"archive/zip"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sagarc03/rookery"
	"github.com/sagarc03/rookery/blob"
	"github.com/sagarc03/rookery/config"
	"github.com/sagarc03/rookery/database"
	"github.com/sagarc03/rookery/filesystem"
	"github.com/sagarc03/rookery/memory"
)

// openDriver builds the driver selected by storage.driver. The cleanup
// function releases whatever the driver holds open and is never nil on
// success.
func openDriver(ctx context.Context, cfg *config.Config) (rookery.Driver, func(), error) {
	switch cfg.Storage.Driver {
	case config.DriverFilesystem:
		if err := os.MkdirAll(cfg.Storage.Path, 0o750); err != nil {
			return nil, nil, fmt.Errorf("create storage directory: %w", err)
		}

		root, err := os.OpenRoot(cfg.Storage.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open storage root: %w", err)
		}

		store, err := filesystem.NewStore(root)
		if err != nil {
			_ = root.Close()
			return nil, nil, fmt.Errorf("open filesystem store: %w", err)
		}

		slog.Info("using filesystem storage", "path", cfg.Storage.Path)
		return store, func() { _ = root.Close() }, nil

	case config.DriverMemory:
		slog.Info("using in-memory storage")
		return memory.New(), func() {}, nil

	case config.DriverDatabase:
		driver, cleanup, err := database.Open(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}

		slog.Info("using database storage", "type", cfg.Database.Type, "table", cfg.Database.Tables.Resources)
		return driver, cleanup, nil

	case config.DriverBlob:
		b := cfg.Storage.Blob
		store, err := blob.New(ctx, blob.Config{
			Endpoint:             b.Endpoint,
			Bucket:               b.Bucket,
			AccessKey:            b.AccessKey,
			SecretKey:            b.SecretKey,
			UseSSL:               b.UseSSL,
			Prefix:               b.Prefix,
			CreateBucket:         b.CreateBucket,
			MultipartThreshold:   b.MultipartThreshold,
			MaxRenameConcurrency: b.MaxRenameConcurrency,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("open blob store: %w", err)
		}

		slog.Info("using blob storage", "endpoint", b.Endpoint, "bucket", b.Bucket, "prefix", b.Prefix)
		return store, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported storage driver: %s", cfg.Storage.Driver)
	}
}

// openService opens the configured driver and wraps it in a Service.
func openService(ctx context.Context, cfg *config.Config, observer rookery.OperationObserver) (*rookery.Service, func(), error) {
	driver, cleanup, err := openDriver(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	service, err := rookery.NewService(driver, rookery.ServiceConfig{
		LockTimeout: cfg.Service.LockTimeout,
		MimeTypes:   cfg.Service.MimeTypes,
		Observer:    observer,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("create service: %w", err)
	}

	return service, cleanup, nil
}

// openSource exposes a local directory or zip archive as an fs.FS.
func openSource(path string) (fs.FS, func(), error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, err
	}

	if info.IsDir() {
		return os.DirFS(path), func() {}, nil
	}

	if !strings.EqualFold(filepath.Ext(path), ".zip") {
		return nil, nil, fmt.Errorf("%s is neither a directory nor a zip archive", path)
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	return zr, func() { _ = zr.Close() }, nil
}

// seed loads a directory or zip archive into the root of the store.
func seed(ctx context.Context, service *rookery.Service, source string) error {
	fsys, done, err := openSource(source)
	if err != nil {
		return fmt.Errorf("open seed: %w", err)
	}
	defer done()

	n, err := service.Import(ctx, rookery.Root, fsys)
	if err != nil {
		return fmt.Errorf("seed from %s: %w", source, err)
	}

	slog.Info("seeded storage", "source", source, "resources", n)
	return nil
}
