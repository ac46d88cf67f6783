package rookery

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// LinkBuilder turns a resource path into an absolute URL.
type LinkBuilder interface {
	Link(p Path) string
}

// BaseURL is a LinkBuilder rooted at the collection endpoint, for example
// "http://localhost:5708/resource". Root links end with a slash.
type BaseURL string

// Link returns the URL of p with every segment percent-encoded.
func (b BaseURL) Link(p Path) string {
	base := strings.TrimSuffix(string(b), "/")
	if p.IsRoot() {
		return base + "/"
	}
	return base + "/" + p.Escaped()
}

// ParentRef points from a resource to its enclosing collection.
type ParentRef struct {
	Path Path
	Href string
}

// ChildSummary describes one entry of a directory listing. MimeType is empty
// for subdirectories.
type ChildSummary struct {
	Name     string
	Href     string
	Type     ResourceType
	MimeType string
}

// ResourceMetadata is a read-only snapshot of a resource, independent of any
// wire format. It is the only input the format encoders get.
type ResourceMetadata struct {
	Name         string
	Type         ResourceType
	LastModified time.Time
	Parent       ParentRef
	MimeType     string
	Children     []ChildSummary
}

// IsDirectory reports whether the snapshot describes a collection.
func (m ResourceMetadata) IsDirectory() bool {
	return m.Type == Directory
}

// Describer builds ResourceMetadata from the tree.
type Describer struct {
	tree *Tree
	mime *MimeResolver
}

// NewDescriber returns a Describer reading from tree.
func NewDescriber(tree *Tree, mime *MimeResolver) *Describer {
	return &Describer{tree: tree, mime: mime}
}

// Describe snapshots the resource at p. Links are built with links.
func (d *Describer) Describe(ctx context.Context, p Path, links LinkBuilder) (ResourceMetadata, error) {
	r, err := d.tree.Get(ctx, p)
	if err != nil {
		return ResourceMetadata{}, fmt.Errorf("describe %s: %w", p, err)
	}

	md := ResourceMetadata{
		Name:         p.Name(),
		Type:         r.Type,
		LastModified: r.LastModified,
		Parent: ParentRef{
			Path: p.Parent(),
			Href: links.Link(p.Parent()),
		},
	}

	switch r.Type {
	case Undefined:
		return ResourceMetadata{}, fmt.Errorf("describe %s: %w", p, ErrNotFound)
	case File:
		md.MimeType, err = d.mime.Resolve(ctx, d.tree, r)
		if err != nil {
			return ResourceMetadata{}, fmt.Errorf("describe %s: %w", p, err)
		}
	case Directory:
		md.Children, err = d.children(ctx, p, links)
		if err != nil {
			return ResourceMetadata{}, fmt.Errorf("describe %s: %w", p, err)
		}
	default:
		return ResourceMetadata{}, fmt.Errorf("describe %s: unknown type %v: %w", p, r.Type, ErrInternal)
	}

	return md, nil
}

func (d *Describer) children(ctx context.Context, p Path, links LinkBuilder) ([]ChildSummary, error) {
	children, err := d.tree.Children(ctx, p)
	if err != nil {
		return nil, err
	}

	out := make([]ChildSummary, 0, len(children))
	for _, c := range children {
		s := ChildSummary{
			Name: c.Path.Name(),
			Href: links.Link(c.Path),
			Type: c.Type,
		}
		if c.Type == File {
			s.MimeType, err = d.mime.Resolve(ctx, d.tree, c)
			if err != nil {
				return nil, err
			}
		}
		out = append(out, s)
	}

	return out, nil
}
