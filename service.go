package rookery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"time"
)

// OperationObserver is notified when a mutating operation finishes.
// Outcome is "ok" or the phase that failed ("lock", "validate", "execute").
type OperationObserver interface {
	ObserveOperation(op string, outcome string, elapsed time.Duration)
}

// Service implements the resource operations on top of a Tree: reads,
// metadata, upload, copy, move and delete.
//
// Each mutation runs through the same phases. The caller has already
// resolved the paths; Service then acquires the lock set, validates the
// current state of the tree, executes against the driver and either commits
// (releases the locks) or fails, leaving the tree as it was.
type Service struct {
	tree        *Tree
	driver      Driver
	locks       *LockManager
	mime        *MimeResolver
	describer   *Describer
	lockTimeout time.Duration
	observer    OperationObserver
}

// ServiceConfig holds configuration options for Service.
type ServiceConfig struct {
	LockTimeout time.Duration     // Maximum wait for a lock set (default: 30s)
	MimeTypes   map[string]string // Extra extension to media type mappings
	Observer    OperationObserver // Optional
}

// Object is an open file together with what is known about it.
type Object struct {
	Resource Resource
	MimeType string
	Body     io.ReadCloser
}

func NewService(driver Driver, cfg ServiceConfig) (*Service, error) {
	if driver == nil {
		return nil, fmt.Errorf("new service: %w: driver cannot be nil", ErrInvalidInput)
	}

	lockTimeout := cfg.LockTimeout
	if lockTimeout <= 0 {
		lockTimeout = 30 * time.Second
	}

	tree := NewTree(driver)
	mime := NewMimeResolver(cfg.MimeTypes)

	return &Service{
		tree:        tree,
		driver:      driver,
		locks:       NewLockManager(),
		mime:        mime,
		describer:   NewDescriber(tree, mime),
		lockTimeout: lockTimeout,
		observer:    cfg.Observer,
	}, nil
}

// Tree exposes the read-only view used by the service.
func (s *Service) Tree() *Tree {
	return s.tree
}

// Get looks p up under a shared lock. Missing paths yield an Undefined
// resource, not an error.
func (s *Service) Get(ctx context.Context, p Path) (Resource, error) {
	release, err := s.acquire(ctx, ReadLock(p))
	if err != nil {
		return Resource{}, fmt.Errorf("get %s: %w", p, err)
	}
	defer release()

	return s.tree.Get(ctx, p)
}

// Read opens the file at p. The shared lock covers lookup and open only;
// once open, the body stays readable even if the path is replaced.
//
// Error types returned:
//   - ErrNotFound: nothing exists at p
//   - ErrMethodNotAllowed: p is a directory
func (s *Service) Read(ctx context.Context, p Path) (Object, error) {
	release, err := s.acquire(ctx, ReadLock(p))
	if err != nil {
		return Object{}, fmt.Errorf("read %s: %w", p, err)
	}
	defer release()

	r, err := s.tree.Get(ctx, p)
	if err != nil {
		return Object{}, fmt.Errorf("read %s: %w", p, err)
	}

	switch r.Type {
	case Undefined:
		return Object{}, fmt.Errorf("read %s: %w", p, ErrNotFound)
	case Directory:
		return Object{}, fmt.Errorf("read %s: directory has no content: %w", p, ErrMethodNotAllowed)
	case File:
	default:
		return Object{}, fmt.Errorf("read %s: unknown type %v: %w", p, r.Type, ErrInternal)
	}

	mimeType, err := s.mime.Resolve(ctx, s.tree, r)
	if err != nil {
		return Object{}, fmt.Errorf("read %s: %w", p, err)
	}

	body, err := s.tree.Open(ctx, p)
	if err != nil {
		return Object{}, fmt.Errorf("read %s: %w", p, err)
	}

	return Object{Resource: r, MimeType: mimeType, Body: body}, nil
}

// Describe snapshots the metadata of p, including the child listing for a
// directory.
func (s *Service) Describe(ctx context.Context, p Path, links LinkBuilder) (ResourceMetadata, error) {
	release, err := s.acquire(ctx, ReadLock(p))
	if err != nil {
		return ResourceMetadata{}, fmt.Errorf("describe %s: %w", p, err)
	}
	defer release()

	return s.describer.Describe(ctx, p, links)
}

// Upload replaces the content of the file at p with content, creating parent
// directories as needed. It reports whether the file did not exist before.
//
// Error types returned:
//   - ErrMethodNotAllowed: p is root or an existing directory
//   - ErrNotADirectory: an ancestor of p is a file
func (s *Service) Upload(ctx context.Context, p Path, content io.Reader) (bool, error) {
	created := false

	locks := append(ancestorLocks(p), WriteLock(p))

	err := s.mutate(ctx, "upload", locks,
		func(ctx context.Context) error {
			if p.IsRoot() {
				return fmt.Errorf("upload %s: %w", p, ErrMethodNotAllowed)
			}

			target, err := s.tree.Get(ctx, p)
			if err != nil {
				return fmt.Errorf("upload %s: %w", p, err)
			}

			switch target.Type {
			case Directory:
				return fmt.Errorf("upload %s: target is a directory: %w", p, ErrMethodNotAllowed)
			case Undefined:
				created = true
			case File:
			default:
				return fmt.Errorf("upload %s: unknown type %v: %w", p, target.Type, ErrInternal)
			}

			return s.checkAncestors(ctx, "upload", p)
		},
		func(ctx context.Context) error {
			if _, err := s.driver.Write(ctx, p, content); err != nil {
				return fmt.Errorf("upload %s: %w", p, err)
			}
			return nil
		},
	)

	return created, err
}

// Copy duplicates the file at src to dst. Directories cannot be copied.
//
// Error types returned:
//   - ErrNotFound: src does not exist
//   - ErrMethodNotAllowed: src or dst is a directory
//   - ErrNotADirectory: an ancestor of dst is a file
func (s *Service) Copy(ctx context.Context, src, dst Path) error {
	locks := append(ancestorLocks(dst), ReadLock(src), WriteLock(dst))

	return s.mutate(ctx, "copy", locks,
		func(ctx context.Context) error {
			source, err := s.tree.Get(ctx, src)
			if err != nil {
				return fmt.Errorf("copy %s: %w", src, err)
			}

			switch source.Type {
			case Undefined:
				return fmt.Errorf("copy %s: %w", src, ErrNotFound)
			case Directory:
				return fmt.Errorf("copy %s: directories cannot be copied: %w", src, ErrMethodNotAllowed)
			case File:
			default:
				return fmt.Errorf("copy %s: unknown type %v: %w", src, source.Type, ErrInternal)
			}

			target, err := s.tree.Get(ctx, dst)
			if err != nil {
				return fmt.Errorf("copy %s: %w", dst, err)
			}
			if target.Type == Directory {
				return fmt.Errorf("copy to %s: target is a directory: %w", dst, ErrMethodNotAllowed)
			}

			return s.checkAncestors(ctx, "copy", dst)
		},
		func(ctx context.Context) error {
			if src == dst {
				return nil
			}

			rc, err := s.tree.Open(ctx, src)
			if err != nil {
				return fmt.Errorf("copy %s: %w", src, err)
			}
			defer func() { _ = rc.Close() }()

			if _, err := s.driver.Write(ctx, dst, rc); err != nil {
				return fmt.Errorf("copy %s to %s: %w", src, dst, err)
			}
			return nil
		},
	)
}

// Move relocates the file or directory at src, with all its descendants, to
// dst. An existing file at dst is replaced.
//
// Error types returned:
//   - ErrNotFound: src does not exist
//   - ErrMethodNotAllowed: src is root, or dst is an existing directory
//   - ErrInvalidPath: dst lies inside src
//   - ErrNotADirectory: an ancestor of dst is a file
func (s *Service) Move(ctx context.Context, src, dst Path) error {
	locks := append(ancestorLocks(dst), TreeLock(src), TreeLock(dst))

	return s.mutate(ctx, "move", locks,
		func(ctx context.Context) error {
			if src.IsRoot() {
				return fmt.Errorf("move %s: root cannot be moved: %w", src, ErrMethodNotAllowed)
			}

			source, err := s.tree.Get(ctx, src)
			if err != nil {
				return fmt.Errorf("move %s: %w", src, err)
			}
			if !source.Exists() {
				return fmt.Errorf("move %s: %w", src, ErrNotFound)
			}

			if src == dst {
				return nil
			}

			if src.Contains(dst) {
				return fmt.Errorf("move %s to %s: target inside source: %w", src, dst, ErrInvalidPath)
			}

			target, err := s.tree.Get(ctx, dst)
			if err != nil {
				return fmt.Errorf("move %s: %w", dst, err)
			}
			if target.Type == Directory {
				return fmt.Errorf("move to %s: target is a directory: %w", dst, ErrMethodNotAllowed)
			}
			if target.Type == File && source.Type == Directory {
				return fmt.Errorf("move %s to %s: cannot replace a file with a directory: %w", src, dst, ErrMethodNotAllowed)
			}

			return s.checkAncestors(ctx, "move", dst)
		},
		func(ctx context.Context) error {
			if src == dst {
				return nil
			}
			if err := s.driver.Rename(ctx, src, dst); err != nil {
				return fmt.Errorf("move %s to %s: %w", src, dst, err)
			}
			return nil
		},
	)
}

// Delete removes p and, for a directory, everything below it. Deleting a
// path that does not exist is an error, not a no-op.
//
// Error types returned:
//   - ErrNotFound: p does not exist
//   - ErrMethodNotAllowed: p is root
func (s *Service) Delete(ctx context.Context, p Path) error {
	return s.mutate(ctx, "delete", []LockRequest{TreeLock(p)},
		func(ctx context.Context) error {
			if p.IsRoot() {
				return fmt.Errorf("delete %s: root cannot be deleted: %w", p, ErrMethodNotAllowed)
			}

			r, err := s.tree.Get(ctx, p)
			if err != nil {
				return fmt.Errorf("delete %s: %w", p, err)
			}
			if !r.Exists() {
				return fmt.Errorf("delete %s: %w", p, ErrNotFound)
			}
			return nil
		},
		func(ctx context.Context) error {
			if err := s.driver.RemoveAll(ctx, p); err != nil {
				return fmt.Errorf("delete %s: %w", p, err)
			}
			return nil
		},
	)
}

// Import uploads every regular file of fsys below dst, keeping relative
// paths. A zip archive opened with archive/zip satisfies fs.FS, so packaged
// archives and plain directories go through the same path.
//
// The import is not atomic as a whole: files uploaded before a failure stay.
func (s *Service) Import(ctx context.Context, dst Path, fsys fs.FS) (int, error) {
	count := 0

	err := fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := ParsePath(name)
		if err != nil {
			return fmt.Errorf("import %s: %w", name, err)
		}

		target := dst
		for _, seg := range rel.Segments() {
			target = target.Join(seg)
		}

		f, err := fsys.Open(name)
		if err != nil {
			return fmt.Errorf("import %s: %w", name, err)
		}
		_, uploadErr := s.Upload(ctx, target, f)
		if closeErr := f.Close(); closeErr != nil {
			slog.Warn("failed to close import source", "file", name, "err", closeErr)
		}
		if uploadErr != nil {
			return fmt.Errorf("import %s: %w", name, uploadErr)
		}

		count++
		return nil
	})
	if err != nil {
		return count, err
	}

	return count, nil
}

type phaseFunc func(ctx context.Context) error

// mutate runs one mutation through lock, validate and execute. The lock set
// is held until the function returns.
func (s *Service) mutate(ctx context.Context, op string, locks []LockRequest, validate, execute phaseFunc) error {
	start := time.Now()
	outcome := "ok"
	defer func() {
		if s.observer != nil {
			s.observer.ObserveOperation(op, outcome, time.Since(start))
		}
	}()

	if err := ctx.Err(); err != nil {
		outcome = "lock"
		return fmt.Errorf("%s: %w", op, err)
	}

	release, err := s.acquire(ctx, locks...)
	if err != nil {
		outcome = "lock"
		return fmt.Errorf("%s: %w", op, err)
	}
	defer release()

	if err := validate(ctx); err != nil {
		outcome = "validate"
		slog.Debug("operation rejected", "op", op, "err", err)
		return err
	}

	if err := execute(ctx); err != nil {
		outcome = "execute"
		slog.Warn("operation failed", "op", op, "err", err)
		return err
	}

	slog.Debug("operation committed", "op", op, "elapsed", time.Since(start))
	return nil
}

func (s *Service) acquire(ctx context.Context, locks ...LockRequest) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	release, err := s.locks.Acquire(lockCtx, locks...)
	if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("waited %s: %w", s.lockTimeout, ErrLockTimeout)
	}
	return release, err
}

// checkAncestors rejects a target whose parent chain runs through a file.
func (s *Service) checkAncestors(ctx context.Context, op string, p Path) error {
	for _, a := range p.Ancestors() {
		r, err := s.tree.Get(ctx, a)
		if err != nil {
			return fmt.Errorf("%s %s: %w", op, p, err)
		}
		if r.Type == File {
			return fmt.Errorf("%s %s: %s is a file: %w", op, p, a, ErrNotADirectory)
		}
	}
	return nil
}

// ancestorLocks guards the parent chain of p against being replaced by a
// file while p is written.
func ancestorLocks(p Path) []LockRequest {
	ancestors := p.Ancestors()
	out := make([]LockRequest, 0, len(ancestors)+2)
	for _, a := range ancestors {
		out = append(out, ReadLock(a))
	}
	return out
}

// IsClientError reports whether err was caused by the request rather than by
// storage.
func IsClientError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidPath) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrMethodNotAllowed) ||
		errors.Is(err, ErrNotADirectory)
}
