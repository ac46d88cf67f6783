// Package sqlite implements rookery.Driver on a single SQLite table.
//
// Every node is a row keyed by its path. Directories are rows with is_dir
// set and no content. Multi-row changes run in one transaction, so a failed
// write or rename leaves nothing behind.
package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sagarc03/rookery"
	"github.com/sagarc03/rookery/database/internal"
)

// Store is a rookery.Driver backed by SQLite.
type Store struct {
	db    *sql.DB
	table string // quoted
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) Stat(ctx context.Context, p rookery.Path) (rookery.Entry, error) {
	return s.stat(ctx, s.db, p)
}

func (s *Store) stat(ctx context.Context, q querier, p rookery.Path) (rookery.Entry, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT name, is_dir, size, last_modified FROM %s WHERE path = ?`, s.table)

	var (
		e       rookery.Entry
		isDir   bool
		modTime string
	)

	err := q.QueryRowContext(ctx, query, string(p)).Scan(&e.Name, &isDir, &e.Size, &modTime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if p.IsRoot() {
				return rookery.Entry{Type: rookery.Directory}, nil
			}
			return rookery.Entry{}, fmt.Errorf("stat %s: %w", p, rookery.ErrNotFound)
		}
		return rookery.Entry{}, fmt.Errorf("stat %s: %w", p, err)
	}

	e.Type = rookery.File
	if isDir {
		e.Type = rookery.Directory
	}

	e.LastModified, err = parseTime(modTime)
	if err != nil {
		return rookery.Entry{}, fmt.Errorf("stat %s: parse last_modified: %w", p, err)
	}

	return e, nil
}

func (s *Store) ReadDir(ctx context.Context, p rookery.Path) ([]rookery.Entry, error) {
	dir, err := s.stat(ctx, s.db, p)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	if dir.Type != rookery.Directory {
		return nil, fmt.Errorf("read dir %s: %w", p, rookery.ErrNotADirectory)
	}

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT name, is_dir, size, last_modified
		FROM %s
		WHERE parent = ? AND path <> ''
		ORDER BY name`, s.table)

	rows, err := s.db.QueryContext(ctx, query, string(p))
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", p, err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]rookery.Entry, 0)
	for rows.Next() {
		var (
			e       rookery.Entry
			isDir   bool
			modTime string
		)
		if err := rows.Scan(&e.Name, &isDir, &e.Size, &modTime); err != nil {
			return nil, fmt.Errorf("read dir %s: scan: %w", p, err)
		}

		e.Type = rookery.File
		if isDir {
			e.Type = rookery.Directory
		}

		e.LastModified, err = parseTime(modTime)
		if err != nil {
			return nil, fmt.Errorf("read dir %s: parse last_modified: %w", p, err)
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read dir %s: rows: %w", p, err)
	}

	return entries, nil
}

// blob is the content of one row. It can seek, so callers may serve ranges.
type blob struct {
	*bytes.Reader
}

func (blob) Close() error { return nil }

func (s *Store) Open(ctx context.Context, p rookery.Path) (io.ReadCloser, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT content FROM %s WHERE path = ? AND is_dir = 0`, s.table)

	var content []byte
	if err := s.db.QueryRowContext(ctx, query, string(p)).Scan(&content); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("open %s: %w", p, rookery.ErrNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", p, err)
	}

	return blob{bytes.NewReader(content)}, nil
}

// Write stores content as the file at p. The body is read before the
// transaction starts so a slow client never holds the database.
func (s *Store) Write(ctx context.Context, p rookery.Path, content io.Reader) (int64, error) {
	if p.IsRoot() {
		return 0, fmt.Errorf("write root: %w", rookery.ErrInvalidPath)
	}

	data, err := io.ReadAll(content)
	if err != nil {
		return 0, fmt.Errorf("could not copy file contents: %w", err)
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now()

		if err := s.mkdirParents(ctx, tx, p, now); err != nil {
			return err
		}

		existing, err := s.stat(ctx, tx, p)
		switch {
		case errors.Is(err, rookery.ErrNotFound):
			if err := s.touch(ctx, tx, p.Parent(), now); err != nil {
				return err
			}
		case err != nil:
			return err
		case existing.Type == rookery.Directory:
			return fmt.Errorf("write %s: target is a directory: %w", p, rookery.ErrInvalidInput)
		}

		query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
			`INSERT INTO %s (path, parent, name, is_dir, content, size, last_modified)
			VALUES (?, ?, ?, 0, ?, ?, ?)
			ON CONFLICT (path) DO UPDATE
			SET content = excluded.content, size = excluded.size, last_modified = excluded.last_modified`, s.table)

		if _, err := tx.ExecContext(ctx, query,
			string(p), string(p.Parent()), p.Name(), data, len(data), formatTime(now),
		); err != nil {
			return fmt.Errorf("write %s: %w", p, err)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return int64(len(data)), nil
}

// Rename rewrites the paths of src and its descendants in one transaction.
func (s *Store) Rename(ctx context.Context, src, dst rookery.Path) error {
	if src.IsRoot() || dst.IsRoot() {
		return fmt.Errorf("rename %s to %s: %w", src, dst, rookery.ErrInvalidPath)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now()

		if _, err := s.stat(ctx, tx, src); err != nil {
			return fmt.Errorf("rename: %w", err)
		}

		if err := s.mkdirParents(ctx, tx, dst, now); err != nil {
			return err
		}

		target, err := s.stat(ctx, tx, dst)
		switch {
		case errors.Is(err, rookery.ErrNotFound):
		case err != nil:
			return err
		case target.Type == rookery.Directory:
			return fmt.Errorf("rename %s to %s: target is a directory: %w", src, dst, rookery.ErrInvalidInput)
		default:
			del := fmt.Sprintf(`DELETE FROM %s WHERE path = ?`, s.table) //nolint:gosec // table name is validated
			if _, err := tx.ExecContext(ctx, del, string(dst)); err != nil {
				return fmt.Errorf("rename %s to %s: replace: %w", src, dst, err)
			}
		}

		moveNode := fmt.Sprintf( //nolint:gosec // G201: table name is validated
			`UPDATE %s SET path = ?, parent = ?, name = ? WHERE path = ?`, s.table)
		if _, err := tx.ExecContext(ctx, moveNode,
			string(dst), string(dst.Parent()), dst.Name(), string(src),
		); err != nil {
			return fmt.Errorf("rename %s to %s: %w", src, dst, err)
		}

		prefix, n := internal.DescendantPrefix(src)
		offset := internal.RebaseOffset(src)
		moveTree := fmt.Sprintf( //nolint:gosec // G201: table name is validated
			`UPDATE %s
			SET path = ? || substr(path, ?), parent = ? || substr(parent, ?)
			WHERE substr(path, 1, ?) = ?`, s.table)
		if _, err := tx.ExecContext(ctx, moveTree,
			string(dst), offset, string(dst), offset, n, prefix,
		); err != nil {
			return fmt.Errorf("rename %s to %s: descendants: %w", src, dst, err)
		}

		if err := s.touch(ctx, tx, src.Parent(), now); err != nil {
			return err
		}
		return s.touch(ctx, tx, dst.Parent(), now)
	})
}

func (s *Store) RemoveAll(ctx context.Context, p rookery.Path) error {
	if p.IsRoot() {
		return fmt.Errorf("remove root: %w", rookery.ErrInvalidPath)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.stat(ctx, tx, p); err != nil {
			return fmt.Errorf("remove: %w", err)
		}

		prefix, n := internal.DescendantPrefix(p)
		query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
			`DELETE FROM %s WHERE path = ? OR substr(path, 1, ?) = ?`, s.table)
		if _, err := tx.ExecContext(ctx, query, string(p), n, prefix); err != nil {
			return fmt.Errorf("remove %s: %w", p, err)
		}

		return s.touch(ctx, tx, p.Parent(), time.Now())
	})
}

// mkdirParents creates the missing ancestors of p. A file in the way fails
// with ErrNotADirectory.
func (s *Store) mkdirParents(ctx context.Context, tx *sql.Tx, p rookery.Path, now time.Time) error {
	insert := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (path, parent, name, is_dir, content, size, last_modified)
		VALUES (?, ?, ?, 1, NULL, 0, ?)
		ON CONFLICT (path) DO NOTHING`, s.table)

	for _, a := range p.Ancestors() {
		e, err := s.stat(ctx, tx, a)
		switch {
		case err == nil && e.Type == rookery.Directory:
			continue
		case err == nil:
			return fmt.Errorf("%s: %w", a, rookery.ErrNotADirectory)
		case !errors.Is(err, rookery.ErrNotFound):
			return err
		}

		if _, err := tx.ExecContext(ctx, insert, string(a), string(a.Parent()), a.Name(), formatTime(now)); err != nil {
			return fmt.Errorf("could not create intermediate directory %s: %w", a, err)
		}
		if err := s.touch(ctx, tx, a.Parent(), now); err != nil {
			return err
		}
	}

	return nil
}

func (s *Store) touch(ctx context.Context, q querier, dir rookery.Path, now time.Time) error {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`UPDATE %s SET last_modified = ? WHERE path = ? AND is_dir = 1`, s.table)
	if _, err := q.ExecContext(ctx, query, formatTime(now), string(dir)); err != nil {
		return fmt.Errorf("touch %s: %w", dir, err)
	}
	return nil
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
