package rookery

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

// Path is the canonical form of a resource location: decoded segments joined
// by "/" with no leading or trailing separator. The root is the empty Path.
//
// A Path is comparable and safe to use as a map key. Construct one with
// ResolvePath or ParsePath so that every segment has been validated.
type Path string

// Root is the path of the top-level collection.
const Root Path = ""

// ResolvePath turns a percent-encoded request path into a canonical Path.
// Each segment is decoded on its own, so an encoded separator (%2F) can never
// split one segment into two; such segments are rejected.
//
// Empty segments are dropped, which makes "/a/b/", "/a/b" and "a/b" equal.
// Segments equal to "." or ".." are rejected.
func ResolvePath(raw string) (Path, error) {
	parts := strings.Split(raw, "/")
	segments := make([]string, 0, len(parts))

	for _, part := range parts {
		if part == "" {
			continue
		}

		seg, err := url.PathUnescape(part)
		if err != nil {
			return Root, fmt.Errorf("resolve path %q: %w", raw, ErrInvalidPath)
		}

		if strings.Contains(seg, "/") {
			return Root, fmt.Errorf("resolve path %q: encoded separator: %w", raw, ErrInvalidPath)
		}

		if !IsValidSegment(seg) {
			return Root, fmt.Errorf("resolve path %q: %w", raw, ErrInvalidPath)
		}

		segments = append(segments, seg)
	}

	return Path(strings.Join(segments, "/")), nil
}

// ParsePath builds a Path from already decoded text, such as the source path
// sent in the body of a copy or move request.
func ParsePath(s string) (Path, error) {
	segments := make([]string, 0, strings.Count(s, "/")+1)

	for _, seg := range strings.Split(s, "/") {
		if seg == "" {
			continue
		}
		if !IsValidSegment(seg) {
			return Root, fmt.Errorf("parse path %q: %w", s, ErrInvalidPath)
		}
		segments = append(segments, seg)
	}

	return Path(strings.Join(segments, "/")), nil
}

// MustParsePath is like ParsePath but panics on invalid input.
// It is meant for literals in tests and setup code.
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// IsValidSegment reports whether seg can be a single path segment.
// It rejects:
//   - empty segments, "." and ".."
//   - segments containing "/"
//   - invalid UTF-8
//   - NUL, control characters (< 0x20) and DEL (0x7f)
func IsValidSegment(seg string) bool {
	if seg == "" || seg == "." || seg == ".." {
		return false
	}

	if strings.Contains(seg, "/") {
		return false
	}

	if !utf8.ValidString(seg) {
		return false
	}

	for _, r := range seg {
		if r < 0x20 || r == 0x7f {
			return false
		}
	}

	return true
}

// IsRoot reports whether p is the root collection.
func (p Path) IsRoot() bool {
	return p == Root
}

// Segments returns the decoded segments of p. Root has none.
func (p Path) Segments() []string {
	if p.IsRoot() {
		return nil
	}
	return strings.Split(string(p), "/")
}

// Name returns the last segment, or "" for root.
func (p Path) Name() string {
	i := strings.LastIndexByte(string(p), '/')
	return string(p[i+1:])
}

// Parent returns the enclosing path. The parent of root is root.
func (p Path) Parent() Path {
	i := strings.LastIndexByte(string(p), '/')
	if i < 0 {
		return Root
	}
	return p[:i]
}

// Join appends a single, already validated, segment.
func (p Path) Join(name string) Path {
	if p.IsRoot() {
		return Path(name)
	}
	return p + "/" + Path(name)
}

// Contains reports whether other is p itself or lies below it.
func (p Path) Contains(other Path) bool {
	if p.IsRoot() || p == other {
		return true
	}
	return strings.HasPrefix(string(other), string(p)+"/")
}

// Rebase moves p from under oldBase to under newBase.
// p must be contained in oldBase.
func (p Path) Rebase(oldBase, newBase Path) Path {
	if p == oldBase {
		return newBase
	}
	rel := strings.TrimPrefix(string(p), string(oldBase))
	rel = strings.TrimPrefix(rel, "/")
	if newBase.IsRoot() {
		return Path(rel)
	}
	return newBase + "/" + Path(rel)
}

// Ancestors returns every proper ancestor of p from the top down, excluding
// root.
func (p Path) Ancestors() []Path {
	segs := p.Segments()
	if len(segs) < 2 {
		return nil
	}
	out := make([]Path, 0, len(segs)-1)
	for i := 1; i < len(segs); i++ {
		out = append(out, Path(strings.Join(segs[:i], "/")))
	}
	return out
}

// String renders p with a leading slash; root renders as "/".
func (p Path) String() string {
	return "/" + string(p)
}

// Escaped percent-encodes every segment. Non-ASCII bytes use upper-case hex,
// so "é" becomes "%C3%A9".
func (p Path) Escaped() string {
	segs := p.Segments()
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return strings.Join(segs, "/")
}
