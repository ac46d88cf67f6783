package rookery

import (
	"context"
	"io"
)

// Driver is the physical storage behind a Tree. Implementations exist for the
// local filesystem, an in-memory tree (optionally seeded from an archive), SQL
// databases and S3-compatible blob stores.
//
// All methods accept a context for cancellation and timeout control.
// Implementations must be safe for concurrent use; the Service serializes
// conflicting mutations with its LockManager, so drivers only need each
// individual call to be atomic from a reader's point of view.
type Driver interface {
	// Stat describes the node at p.
	//
	// Returns:
	//   - Entry: name, type, last modification time and size
	//   - error: ErrNotFound if nothing exists at p, or other storage errors
	//
	// The root must always be reported as a Directory, even for an empty store.
	Stat(ctx context.Context, p Path) (Entry, error)

	// ReadDir lists the immediate children of the directory at p, sorted by
	// name.
	//
	// Returns:
	//   - []Entry: children, empty (not nil) for an empty directory
	//   - error: ErrNotFound if p does not exist, ErrNotADirectory if p is a
	//     file, or other storage errors
	ReadDir(ctx context.Context, p Path) ([]Entry, error)

	// Open returns the content of the file at p.
	//
	// Returns:
	//   - io.ReadCloser: content stream, closed by the caller
	//   - error: ErrNotFound if p does not exist or is not a file
	Open(ctx context.Context, p Path) (io.ReadCloser, error)

	// Write replaces the content of the file at p with everything read from
	// content, creating missing parent directories.
	//
	// Returns:
	//   - int64: number of bytes written
	//   - error: ErrNotADirectory if an ancestor of p is a file, or other
	//     storage errors
	//
	// Implementations should:
	//   - Write atomically (e.g., write to temp file then rename)
	//   - Respect context cancellation and clean up partial writes
	//   - Remove parent directories they created when the write fails
	Write(ctx context.Context, p Path, content io.Reader) (int64, error)

	// Rename moves the file or directory at src, with all its descendants, to
	// dst. Missing parents of dst are created. A file at dst is replaced.
	//
	// Returns:
	//   - error: ErrNotFound if src does not exist, or other storage errors
	//
	// On failure the store must be left as it was before the call.
	Rename(ctx context.Context, src, dst Path) error

	// RemoveAll deletes the node at p and, for a directory, everything below
	// it.
	//
	// Returns:
	//   - error: ErrNotFound if p does not exist, or other storage errors
	RemoveAll(ctx context.Context, p Path) error
}
