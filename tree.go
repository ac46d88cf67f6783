package rookery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// Tree is the hierarchical view over a Driver. It owns no I/O policy and no
// locking; Service layers both on top.
//
// Directory timestamps are the directory entry's own modification time as
// reported by the driver. Tree never scans a subtree to compute them.
type Tree struct {
	driver Driver
}

// NewTree wraps a driver.
func NewTree(driver Driver) *Tree {
	return &Tree{driver: driver}
}

// Get looks up p. A missing path is not an error: the returned Resource has
// Type Undefined. Errors are reserved for storage failures.
func (t *Tree) Get(ctx context.Context, p Path) (Resource, error) {
	if err := ctx.Err(); err != nil {
		return Resource{}, fmt.Errorf("get %s: %w", p, err)
	}

	e, err := t.driver.Stat(ctx, p)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Resource{Path: p, Type: Undefined}, nil
		}
		return Resource{}, fmt.Errorf("get %s: %w", p, err)
	}

	return resourceFromEntry(p, e), nil
}

// Exists reports whether r is backed by a file or a directory.
func (t *Tree) Exists(r Resource) bool {
	return r.Exists()
}

// Children lists the directory at p ordered by name.
func (t *Tree) Children(ctx context.Context, p Path) ([]Resource, error) {
	r, err := t.Get(ctx, p)
	if err != nil {
		return nil, err
	}

	switch r.Type {
	case Undefined:
		return nil, fmt.Errorf("children %s: %w", p, ErrNotFound)
	case File:
		return nil, fmt.Errorf("children %s: %w", p, ErrNotADirectory)
	case Directory:
	default:
		return nil, fmt.Errorf("children %s: unknown type %v: %w", p, r.Type, ErrInternal)
	}

	entries, err := t.driver.ReadDir(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("children %s: %w", p, err)
	}

	out := make([]Resource, 0, len(entries))
	for _, e := range entries {
		out = append(out, resourceFromEntry(p.Join(e.Name), e))
	}

	return out, nil
}

// LastModified returns the modification time of p, truncated to milliseconds.
func (t *Tree) LastModified(ctx context.Context, p Path) (time.Time, error) {
	r, err := t.Get(ctx, p)
	if err != nil {
		return time.Time{}, err
	}
	if !r.Exists() {
		return time.Time{}, fmt.Errorf("last modified %s: %w", p, ErrNotFound)
	}
	return r.LastModified, nil
}

// Parent returns the resource enclosing p. Root is its own parent.
func (t *Tree) Parent(ctx context.Context, p Path) (Resource, error) {
	return t.Get(ctx, p.Parent())
}

// Open returns the content of the file at p.
func (t *Tree) Open(ctx context.Context, p Path) (io.ReadCloser, error) {
	rc, err := t.driver.Open(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", p, err)
	}
	return rc, nil
}

// WalkFunc is called for every resource visited by Walk.
type WalkFunc func(r Resource) error

// Walk visits p and everything below it, parents before children, siblings
// in name order. It uses an explicit stack, so deep hierarchies do not grow
// the goroutine stack.
func (t *Tree) Walk(ctx context.Context, p Path, fn WalkFunc) error {
	root, err := t.Get(ctx, p)
	if err != nil {
		return err
	}
	if !root.Exists() {
		return fmt.Errorf("walk %s: %w", p, ErrNotFound)
	}

	stack := []Resource{root}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("walk %s: %w", p, err)
		}

		r := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if err := fn(r); err != nil {
			return err
		}

		if r.Type != Directory {
			continue
		}

		children, err := t.Children(ctx, r.Path)
		if err != nil {
			return err
		}
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}

	return nil
}

func resourceFromEntry(p Path, e Entry) Resource {
	return Resource{
		Path:         p,
		Type:         e.Type,
		LastModified: e.LastModified.Truncate(time.Millisecond),
		Size:         e.Size,
	}
}
