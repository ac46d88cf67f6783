// Package memory provides an in-memory storage driver for rookery built on
// go-billy's memfs. It backs tests and the "memory" storage driver, which
// can be seeded from a packaged zip archive at start.
//
// memfs does not track modification times, so Store keeps its own table.
// Every mutation runs under a single mutex and is therefore atomic for
// readers.
package memory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/sagarc03/rookery"
)

const base = "/store"

// Store is a rookery.Driver held entirely in memory.
type Store struct {
	mu       sync.RWMutex
	fs       billy.Filesystem
	modTimes map[rookery.Path]time.Time
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now as the source of modification times.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		fs:       memfs.New(),
		modTimes: make(map[rookery.Path]time.Time),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	_ = s.fs.MkdirAll(base, 0o755)
	s.modTimes[rookery.Root] = s.now()

	return s
}

func (s *Store) Stat(ctx context.Context, p rookery.Path) (rookery.Entry, error) {
	if err := ctx.Err(); err != nil {
		return rookery.Entry{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.stat(p)
}

func (s *Store) ReadDir(ctx context.Context, p rookery.Path) ([]rookery.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := s.stat(p)
	if err != nil {
		return nil, err
	}
	if e.Type != rookery.Directory {
		return nil, rookery.ErrNotADirectory
	}

	infos, err := s.fs.ReadDir(name(p))
	if err != nil {
		return nil, translate(err)
	}

	out := make([]rookery.Entry, 0, len(infos))
	for _, info := range infos {
		out = append(out, s.entry(p.Join(info.Name()), info))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Open returns a snapshot of the file content. Later writes do not affect an
// open reader.
func (s *Store) Open(ctx context.Context, p rookery.Path) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := s.stat(p)
	if err != nil {
		return nil, err
	}
	if e.Type != rookery.File {
		return nil, rookery.ErrNotFound
	}

	data, err := util.ReadFile(s.fs, name(p))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", p, translate(err))
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

// Write buffers content fully before taking the lock, so a failed or
// canceled read never touches the tree. A failed store restores the previous
// content and drops any parent directories created for it.
func (s *Store) Write(ctx context.Context, p rookery.Path, content io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if p.IsRoot() {
		return 0, fmt.Errorf("write root: %w", rookery.ErrInvalidPath)
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, &ctxReader{ctx: ctx, r: content})
	if err != nil {
		return 0, fmt.Errorf("could not copy file contents: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous, existed, err := s.snapshot(p)
	if err != nil {
		return 0, fmt.Errorf("write %s: %w", p, err)
	}

	times := maps.Clone(s.modTimes)
	created, err := s.mkdirParents(p)
	if err != nil {
		s.rollback(created, times)
		return 0, err
	}

	if err := util.WriteFile(s.fs, name(p), buf.Bytes(), 0o644); err != nil {
		s.restore(p, previous, existed)
		s.rollback(created, times)
		return 0, fmt.Errorf("write %s: %w", p, err)
	}
	s.touch(p)

	return n, nil
}

// Rename copies the subtree at src to dst and then removes src. Both steps
// happen under the write lock. If the copy fails, the partial copy is
// removed and a replaced file at dst comes back.
func (s *Store) Rename(ctx context.Context, src, dst rookery.Path) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if src.IsRoot() || dst.IsRoot() {
		return fmt.Errorf("rename %s to %s: %w", src, dst, rookery.ErrInvalidPath)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.stat(src); err != nil {
		return err
	}

	var nodes []rookery.Path
	err := util.Walk(s.fs, name(src), func(full string, _ os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		nodes = append(nodes, pathOf(full))
		return nil
	})
	if err != nil {
		return fmt.Errorf("rename %s: walk: %w", src, translate(err))
	}

	replaced, existed, err := s.snapshot(dst)
	if err != nil {
		return fmt.Errorf("rename %s to %s: %w", src, dst, err)
	}

	saved := maps.Clone(s.modTimes)
	created, err := s.mkdirParents(dst)
	if err != nil {
		s.rollback(created, saved)
		return err
	}

	if existed {
		if err := s.fs.Remove(name(dst)); err != nil {
			s.rollback(created, saved)
			return fmt.Errorf("rename %s to %s: replace: %w", src, dst, err)
		}
	}

	times := make(map[rookery.Path]time.Time, len(nodes))
	for _, n := range nodes {
		target := n.Rebase(src, dst)
		if err := s.copyNode(n, target); err != nil {
			_ = util.RemoveAll(s.fs, name(dst))
			s.restore(dst, replaced, existed)
			s.rollback(created, saved)
			return fmt.Errorf("rename %s to %s: %w", src, dst, err)
		}
		times[target] = s.modTimes[n]
	}

	if err := util.RemoveAll(s.fs, name(src)); err != nil {
		return fmt.Errorf("rename %s: remove source: %w", src, err)
	}

	s.forget(src)
	for p, t := range times {
		s.modTimes[p] = t
	}
	s.touch(src.Parent())
	s.touch(dst.Parent())

	return nil
}

func (s *Store) RemoveAll(ctx context.Context, p rookery.Path) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.IsRoot() {
		return fmt.Errorf("remove root: %w", rookery.ErrInvalidPath)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.stat(p); err != nil {
		return err
	}

	if err := util.RemoveAll(s.fs, name(p)); err != nil {
		return fmt.Errorf("remove %s: %w", p, err)
	}

	s.forget(p)
	s.touch(p.Parent())

	return nil
}

func (s *Store) stat(p rookery.Path) (rookery.Entry, error) {
	if p.IsRoot() {
		return rookery.Entry{Type: rookery.Directory, LastModified: s.modTimes[rookery.Root]}, nil
	}

	info, err := s.fs.Stat(name(p))
	if err != nil {
		return rookery.Entry{}, translate(err)
	}

	return s.entry(p, info), nil
}

func (s *Store) entry(p rookery.Path, info os.FileInfo) rookery.Entry {
	e := rookery.Entry{
		Name:         info.Name(),
		LastModified: s.modTimes[p],
	}
	if info.IsDir() {
		e.Type = rookery.Directory
	} else {
		e.Type = rookery.File
		e.Size = info.Size()
	}
	return e
}

// mkdirParents creates the missing ancestors of p and reports the ones it
// created, shallowest first. On error the list covers what was created
// before the failure.
func (s *Store) mkdirParents(p rookery.Path) ([]rookery.Path, error) {
	var created []rookery.Path
	for _, a := range p.Ancestors() {
		e, err := s.stat(a)
		if err == nil {
			if e.Type != rookery.Directory {
				return created, fmt.Errorf("%s: %w", a, rookery.ErrNotADirectory)
			}
			continue
		}
		if !errors.Is(err, rookery.ErrNotFound) {
			return created, err
		}

		if err := s.fs.MkdirAll(name(a), 0o755); err != nil {
			return created, fmt.Errorf("could not create intermediate directory %s: %w", a, err)
		}
		created = append(created, a)
		s.touch(a)
	}
	return created, nil
}

// snapshot reads the file at p so a failed mutation can put it back. A
// directory at p is an error; nothing at p is reported as !existed.
func (s *Store) snapshot(p rookery.Path) (data []byte, existed bool, err error) {
	e, err := s.stat(p)
	if errors.Is(err, rookery.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if e.Type == rookery.Directory {
		return nil, false, fmt.Errorf("target is a directory: %w", rookery.ErrInvalidInput)
	}

	data, err = util.ReadFile(s.fs, name(p))
	if err != nil {
		return nil, false, translate(err)
	}
	return data, true, nil
}

// restore puts back the file content taken by snapshot, or removes whatever
// a failed write left at p.
func (s *Store) restore(p rookery.Path, data []byte, existed bool) {
	if !existed {
		_ = util.RemoveAll(s.fs, name(p))
		return
	}
	if err := util.WriteFile(s.fs, name(p), data, 0o644); err != nil {
		slog.Error("could not restore replaced file", "path", p.String(), "err", err)
	}
}

// rollback removes directories created for a failed mutation, deepest
// first, and resets the modification times.
func (s *Store) rollback(created []rookery.Path, times map[rookery.Path]time.Time) {
	for i := len(created) - 1; i >= 0; i-- {
		if err := s.fs.Remove(name(created[i])); err != nil {
			slog.Debug("kept intermediate directory", "path", created[i].String(), "err", err)
		}
	}
	s.modTimes = times
}

func (s *Store) copyNode(from, to rookery.Path) error {
	info, err := s.fs.Stat(name(from))
	if err != nil {
		return translate(err)
	}

	if info.IsDir() {
		return s.fs.MkdirAll(name(to), 0o755)
	}

	data, err := util.ReadFile(s.fs, name(from))
	if err != nil {
		return err
	}
	return util.WriteFile(s.fs, name(to), data, 0o644)
}

// touch stamps p and its parent with the current time.
func (s *Store) touch(p rookery.Path) {
	now := s.now()
	s.modTimes[p] = now
	if !p.IsRoot() {
		s.modTimes[p.Parent()] = now
	}
}

func (s *Store) forget(p rookery.Path) {
	for k := range s.modTimes {
		if p.Contains(k) {
			delete(s.modTimes, k)
		}
	}
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

func name(p rookery.Path) string {
	if p.IsRoot() {
		return base
	}
	return base + "/" + string(p)
}

func pathOf(full string) rookery.Path {
	return rookery.Path(strings.TrimPrefix(strings.TrimPrefix(full, base), "/"))
}

func translate(err error) error {
	if errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err) {
		return rookery.ErrNotFound
	}
	return err
}
