// Package filesystem provides a local directory storage driver for rookery.
// Files are written atomically through a hidden staging directory and
// renamed into place; deletes are staged the same way so readers never see
// a half-removed subtree.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/google/uuid"
	"github.com/sagarc03/rookery"
)

// StagingDir is the reserved top-level directory holding in-flight writes
// and deletes. It is hidden from listings and cannot be addressed.
const StagingDir = ".rookery-tmp"

// Store is a rookery.Driver over a directory.
type Store struct {
	root *os.Root
}

// NewStore creates a Store rooted at root. The root provides sandboxed file
// operations preventing path traversal. Leftovers in the staging directory
// from an earlier crash are removed.
func NewStore(root *os.Root) (*Store, error) {
	if err := root.MkdirAll(StagingDir, 0o755); err != nil {
		return nil, fmt.Errorf("new store: create staging dir: %w", err)
	}

	entries, err := fs.ReadDir(root.FS(), StagingDir)
	if err != nil {
		return nil, fmt.Errorf("new store: read staging dir: %w", err)
	}
	for _, e := range entries {
		name := filepath.Join(StagingDir, e.Name())
		if err := root.RemoveAll(name); err != nil {
			slog.Warn("failed to remove stale staging entry", "name", name, "err", err)
		}
	}

	return &Store{root: root}, nil
}

// Stat describes the node at p.
func (s *Store) Stat(ctx context.Context, p rookery.Path) (rookery.Entry, error) {
	if err := ctx.Err(); err != nil {
		return rookery.Entry{}, err
	}

	if p.IsRoot() {
		info, err := s.root.Stat(".")
		if err != nil {
			return rookery.Entry{}, fmt.Errorf("stat root: %w", err)
		}
		return rookery.Entry{Type: rookery.Directory, LastModified: info.ModTime()}, nil
	}

	name, err := s.name(p)
	if err != nil {
		return rookery.Entry{}, rookery.ErrNotFound
	}

	info, err := s.root.Stat(name)
	if err != nil {
		return rookery.Entry{}, lookupErr(err)
	}

	e, ok := entryFromInfo(info)
	if !ok {
		return rookery.Entry{}, rookery.ErrNotFound
	}
	return e, nil
}

// ReadDir lists the directory at p sorted by name.
func (s *Store) ReadDir(ctx context.Context, p rookery.Path) ([]rookery.Entry, error) {
	e, err := s.Stat(ctx, p)
	if err != nil {
		return nil, err
	}
	if e.Type != rookery.Directory {
		return nil, rookery.ErrNotADirectory
	}

	dir := "."
	if !p.IsRoot() {
		dir = string(p)
	}

	dirEntries, err := fs.ReadDir(s.root.FS(), dir)
	if err != nil {
		return nil, translate(err)
	}

	out := make([]rookery.Entry, 0, len(dirEntries))
	for _, d := range dirEntries {
		if p.IsRoot() && d.Name() == StagingDir {
			continue
		}
		if !rookery.IsValidSegment(d.Name()) {
			continue
		}

		info, err := d.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read dir %s: %w", p, err)
		}

		if entry, ok := entryFromInfo(info); ok {
			out = append(out, entry)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Open opens the file at p for reading.
func (s *Store) Open(ctx context.Context, p rookery.Path) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name, err := s.name(p)
	if err != nil {
		return nil, err
	}

	f, err := s.root.Open(name)
	if err != nil {
		return nil, lookupErr(err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("open %s: %w", p, err)
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, rookery.ErrNotFound
	}

	return f, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// Write atomically writes content to p using a staged temp file and rename.
// It creates intermediate directories as needed and removes the ones it
// created if the write fails. The operation respects context cancellation.
func (s *Store) Write(ctx context.Context, p rookery.Path, content io.Reader) (int64, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return 0, ctxErr
	}

	name, err := s.name(p)
	if err != nil {
		return 0, err
	}

	tmpFile := tmpFileName()
	t, createErr := s.root.Create(tmpFile)
	if createErr != nil {
		return 0, fmt.Errorf("could not open temp file: %w", createErr)
	}

	success := false
	var created []rookery.Path
	defer func() {
		if closeErr := t.Close(); closeErr != nil {
			slog.Warn("failed to close tmp file", "err", closeErr)
		}
		if !success {
			if rmErr := s.root.Remove(tmpFile); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
				slog.Warn("failed to remove tmp file", "err", rmErr)
			}
			s.removeCreated(created)
		}
	}()

	written, err := io.Copy(t, &ctxReader{ctx: ctx, r: content})
	if err != nil {
		return 0, fmt.Errorf("could not copy file contents: %w", err)
	}

	if err := t.Sync(); err != nil {
		return 0, fmt.Errorf("could not sync written file: %w", err)
	}

	created, err = s.mkdirParents(p)
	if err != nil {
		return 0, err
	}

	if renameErr := s.root.Rename(tmpFile, name); renameErr != nil {
		return 0, fmt.Errorf("failed to rename file: %w", translate(renameErr))
	}

	success = true
	return written, nil
}

// Rename moves the node at src to dst. A single rename(2) moves the whole
// subtree, so readers see either the old or the new layout.
func (s *Store) Rename(ctx context.Context, src, dst rookery.Path) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	srcName, err := s.name(src)
	if err != nil {
		return err
	}
	dstName, err := s.name(dst)
	if err != nil {
		return err
	}

	if _, err := s.root.Stat(srcName); err != nil {
		return lookupErr(err)
	}

	created, err := s.mkdirParents(dst)
	if err != nil {
		return err
	}

	if err := s.root.Rename(srcName, dstName); err != nil {
		s.removeCreated(created)
		return fmt.Errorf("rename %s to %s: %w", src, dst, translate(err))
	}

	return nil
}

// RemoveAll moves p into the staging directory and deletes it from there.
func (s *Store) RemoveAll(ctx context.Context, p rookery.Path) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	name, err := s.name(p)
	if err != nil {
		return err
	}

	if _, err := s.root.Stat(name); err != nil {
		return lookupErr(err)
	}

	staged := tmpFileName()
	if err := s.root.Rename(name, staged); err != nil {
		return fmt.Errorf("remove %s: %w", p, translate(err))
	}

	if err := s.root.RemoveAll(staged); err != nil {
		slog.Warn("failed to purge staged delete", "path", p.String(), "err", err)
	}

	return nil
}

// name maps p to an OS path under the root, refusing the staging directory.
func (s *Store) name(p rookery.Path) (string, error) {
	if p.IsRoot() {
		return "", fmt.Errorf("root has no file name: %w", rookery.ErrInvalidPath)
	}
	if p.Segments()[0] == StagingDir {
		return "", fmt.Errorf("%s is reserved: %w", p, rookery.ErrInvalidPath)
	}
	return filepath.FromSlash(string(p)), nil
}

// mkdirParents creates the missing ancestors of p one by one and returns
// the ones it created, deepest last.
func (s *Store) mkdirParents(p rookery.Path) ([]rookery.Path, error) {
	var created []rookery.Path

	for _, a := range p.Ancestors() {
		name := filepath.FromSlash(string(a))

		info, err := s.root.Stat(name)
		if err == nil {
			if !info.IsDir() {
				s.removeCreated(created)
				return nil, fmt.Errorf("%s: %w", a, rookery.ErrNotADirectory)
			}
			continue
		}
		if !errors.Is(err, fs.ErrNotExist) {
			s.removeCreated(created)
			return nil, fmt.Errorf("stat %s: %w", a, err)
		}

		if err := s.root.Mkdir(name, 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
			s.removeCreated(created)
			return nil, fmt.Errorf("could not create intermediate directory %s: %w", a, err)
		}
		created = append(created, a)
	}

	return created, nil
}

// removeCreated removes directories created for a failed write, deepest
// first. Directories that gained other entries in the meantime stay.
func (s *Store) removeCreated(created []rookery.Path) {
	for i := len(created) - 1; i >= 0; i-- {
		name := filepath.FromSlash(string(created[i]))
		if err := s.root.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Debug("kept intermediate directory", "path", created[i].String(), "err", err)
			return
		}
	}
}

func entryFromInfo(info fs.FileInfo) (rookery.Entry, bool) {
	e := rookery.Entry{
		Name:         info.Name(),
		LastModified: info.ModTime(),
	}

	switch {
	case info.IsDir():
		e.Type = rookery.Directory
	case info.Mode().IsRegular():
		e.Type = rookery.File
		e.Size = info.Size()
	default:
		return rookery.Entry{}, false
	}

	return e, true
}

func translate(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return rookery.ErrNotFound
	case errors.Is(err, syscall.ENOTDIR):
		return rookery.ErrNotADirectory
	default:
		return err
	}
}

// lookupErr treats a path running through a file as missing.
func lookupErr(err error) error {
	if errors.Is(err, syscall.ENOTDIR) {
		return rookery.ErrNotFound
	}
	return translate(err)
}

func tmpFileName() string {
	return filepath.Join(StagingDir, fmt.Sprintf(".t%s", uuid.New().String()))
}
