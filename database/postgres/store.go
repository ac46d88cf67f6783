// Package postgres implements rookery.Driver on a PostgreSQL table using pgx.
//
// Every node is a row keyed by its path. Multi-row changes run inside one
// transaction, so readers never observe a half-moved subtree.
package postgres

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/rookery"
	"github.com/sagarc03/rookery/database/internal"
)

// Store is a rookery.Driver backed by PostgreSQL.
type Store struct {
	pool  *pgxpool.Pool
	table string // sanitized identifier
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *Store) Stat(ctx context.Context, p rookery.Path) (rookery.Entry, error) {
	return s.stat(ctx, s.pool, p)
}

func (s *Store) stat(ctx context.Context, q querier, p rookery.Path) (rookery.Entry, error) {
	query := fmt.Sprintf(`
		SELECT name, is_dir, size, last_modified
		FROM %s
		WHERE path = $1
	`, s.table)

	var (
		e     rookery.Entry
		isDir bool
	)

	err := q.QueryRow(ctx, query, string(p)).Scan(&e.Name, &isDir, &e.Size, &e.LastModified)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if p.IsRoot() {
				return rookery.Entry{Type: rookery.Directory}, nil
			}
			return rookery.Entry{}, fmt.Errorf("stat %s: %w", p, rookery.ErrNotFound)
		}
		return rookery.Entry{}, fmt.Errorf("stat %s: %w", p, err)
	}

	e.Type = typeOf(isDir)
	return e, nil
}

func typeOf(isDir bool) rookery.ResourceType {
	if isDir {
		return rookery.Directory
	}
	return rookery.File
}

func (s *Store) ReadDir(ctx context.Context, p rookery.Path) ([]rookery.Entry, error) {
	dir, err := s.stat(ctx, s.pool, p)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	if dir.Type != rookery.Directory {
		return nil, fmt.Errorf("read dir %s: %w", p, rookery.ErrNotADirectory)
	}

	query := fmt.Sprintf(`
		SELECT name, is_dir, size, last_modified
		FROM %s
		WHERE parent = $1 AND path <> ''
		ORDER BY name COLLATE "C"
	`, s.table)

	rows, err := s.pool.Query(ctx, query, string(p))
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", p, err)
	}
	defer rows.Close()

	entries := make([]rookery.Entry, 0)
	for rows.Next() {
		var (
			e     rookery.Entry
			isDir bool
		)
		if err := rows.Scan(&e.Name, &isDir, &e.Size, &e.LastModified); err != nil {
			return nil, fmt.Errorf("read dir %s: scan: %w", p, err)
		}
		e.Type = typeOf(isDir)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read dir %s: rows: %w", p, err)
	}

	return entries, nil
}

type blob struct {
	*bytes.Reader
}

func (blob) Close() error { return nil }

func (s *Store) Open(ctx context.Context, p rookery.Path) (io.ReadCloser, error) {
	query := fmt.Sprintf(`SELECT content FROM %s WHERE path = $1 AND NOT is_dir`, s.table)

	var content []byte
	if err := s.pool.QueryRow(ctx, query, string(p)).Scan(&content); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("open %s: %w", p, rookery.ErrNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", p, err)
	}

	return blob{bytes.NewReader(content)}, nil
}

func (s *Store) Write(ctx context.Context, p rookery.Path, content io.Reader) (int64, error) {
	if p.IsRoot() {
		return 0, fmt.Errorf("write root: %w", rookery.ErrInvalidPath)
	}

	data, err := io.ReadAll(content)
	if err != nil {
		return 0, fmt.Errorf("could not copy file contents: %w", err)
	}

	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := s.mkdirParents(ctx, tx, p); err != nil {
			return err
		}

		existing, err := s.stat(ctx, tx, p)
		switch {
		case errors.Is(err, rookery.ErrNotFound):
			if err := s.touch(ctx, tx, p.Parent()); err != nil {
				return err
			}
		case err != nil:
			return err
		case existing.Type == rookery.Directory:
			return fmt.Errorf("write %s: target is a directory: %w", p, rookery.ErrInvalidInput)
		}

		query := fmt.Sprintf(`
			INSERT INTO %s (path, parent, name, is_dir, content, size, last_modified)
			VALUES ($1, $2, $3, FALSE, $4, $5, clock_timestamp())
			ON CONFLICT (path) DO UPDATE
			SET content = EXCLUDED.content,
				size = EXCLUDED.size,
				last_modified = EXCLUDED.last_modified
		`, s.table)

		if _, err := tx.Exec(ctx, query, string(p), string(p.Parent()), p.Name(), data, int64(len(data))); err != nil {
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

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := s.stat(ctx, tx, src); err != nil {
			return fmt.Errorf("rename: %w", err)
		}

		if err := s.mkdirParents(ctx, tx, dst); err != nil {
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
			if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE path = $1`, s.table), string(dst)); err != nil {
				return fmt.Errorf("rename %s to %s: replace: %w", src, dst, err)
			}
		}

		moveNode := fmt.Sprintf(`UPDATE %s SET path = $1, parent = $2, name = $3 WHERE path = $4`, s.table)
		if _, err := tx.Exec(ctx, moveNode, string(dst), string(dst.Parent()), dst.Name(), string(src)); err != nil {
			return fmt.Errorf("rename %s to %s: %w", src, dst, err)
		}

		offset := internal.RebaseOffset(src)
		moveTree := fmt.Sprintf(`
			UPDATE %s
			SET path = $1 || substr(path, $2), parent = $1 || substr(parent, $2)
			WHERE path LIKE $3 ESCAPE '\'
		`, s.table)
		if _, err := tx.Exec(ctx, moveTree, string(dst), offset, internal.DescendantPattern(src)); err != nil {
			return fmt.Errorf("rename %s to %s: descendants: %w", src, dst, err)
		}

		// Row locks are taken in path order.
		first, second := src.Parent(), dst.Parent()
		if second < first {
			first, second = second, first
		}
		if err := s.touch(ctx, tx, first); err != nil {
			return err
		}
		return s.touch(ctx, tx, second)
	})
}

func (s *Store) RemoveAll(ctx context.Context, p rookery.Path) error {
	if p.IsRoot() {
		return fmt.Errorf("remove root: %w", rookery.ErrInvalidPath)
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := s.stat(ctx, tx, p); err != nil {
			return fmt.Errorf("remove: %w", err)
		}

		query := fmt.Sprintf(`DELETE FROM %s WHERE path = $1 OR path LIKE $2 ESCAPE '\'`, s.table)
		if _, err := tx.Exec(ctx, query, string(p), internal.DescendantPattern(p)); err != nil {
			return fmt.Errorf("remove %s: %w", p, err)
		}

		return s.touch(ctx, tx, p.Parent())
	})
}

// mkdirParents creates the missing ancestors of p. Concurrent writers may
// race to create the same directory; ON CONFLICT makes that harmless.
func (s *Store) mkdirParents(ctx context.Context, tx pgx.Tx, p rookery.Path) error {
	insert := fmt.Sprintf(`
		INSERT INTO %s (path, parent, name, is_dir, last_modified)
		VALUES ($1, $2, $3, TRUE, clock_timestamp())
		ON CONFLICT (path) DO NOTHING
	`, s.table)

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

		tag, err := tx.Exec(ctx, insert, string(a), string(a.Parent()), a.Name())
		if err != nil {
			return fmt.Errorf("could not create intermediate directory %s: %w", a, err)
		}
		if tag.RowsAffected() == 0 {
			continue
		}
		if err := s.touch(ctx, tx, a.Parent()); err != nil {
			return err
		}
	}

	return nil
}

func (s *Store) touch(ctx context.Context, tx pgx.Tx, dir rookery.Path) error {
	query := fmt.Sprintf(`UPDATE %s SET last_modified = clock_timestamp() WHERE path = $1 AND is_dir`, s.table)
	if _, err := tx.Exec(ctx, query, string(dir)); err != nil {
		return fmt.Errorf("touch %s: %w", dir, err)
	}
	return nil
}
