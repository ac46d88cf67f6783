package rookery

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultMimeType is used when neither the name nor the content identify a file.
const DefaultMimeType = "application/octet-stream"

// sniffLen matches the read limit mimetype uses for detection.
const sniffLen = 3072

var wellKnownExtensions = map[string]string{
	"bmp":     "image/bmp",
	"css":     "text/css",
	"csv":     "text/csv",
	"gif":     "image/gif",
	"geojson": "application/geo+json",
	"gz":      "application/gzip",
	"htm":     "text/html",
	"html":    "text/html",
	"jpeg":    "image/jpeg",
	"jpg":     "image/jpeg",
	"js":      "application/javascript",
	"json":    "application/json",
	"md":      "text/markdown",
	"pdf":     "application/pdf",
	"png":     "image/png",
	"sld":     "application/vnd.ogc.sld+xml",
	"svg":     "image/svg+xml",
	"tif":     "image/tiff",
	"tiff":    "image/tiff",
	"txt":     "text/plain",
	"webp":    "image/webp",
	"xml":     "application/xml",
	"yaml":    "application/yaml",
	"yml":     "application/yaml",
	"zip":     "application/zip",
}

// MimeResolver infers the media type of a file. The extension wins when it
// is known; otherwise the first bytes are matched against binary magic-byte
// signatures. Text heuristics do not count as a signature, so plain text
// without an extension resolves to DefaultMimeType.
type MimeResolver struct {
	extensions map[string]string
}

// NewMimeResolver returns a resolver over the built-in extension table.
// Entries in extra override or extend it; keys are extensions without the
// leading dot.
func NewMimeResolver(extra map[string]string) *MimeResolver {
	ext := make(map[string]string, len(wellKnownExtensions)+len(extra))
	for k, v := range wellKnownExtensions {
		ext[k] = v
	}
	for k, v := range extra {
		ext[strings.ToLower(strings.TrimPrefix(k, "."))] = v
	}
	return &MimeResolver{extensions: ext}
}

// Resolve returns the media type of r. Directories and undefined resources
// have none and resolve to "".
func (m *MimeResolver) Resolve(ctx context.Context, tree *Tree, r Resource) (string, error) {
	switch r.Type {
	case Undefined, Directory:
		return "", nil
	case File:
	default:
		return "", fmt.Errorf("resolve mime %s: unknown type %v: %w", r.Path, r.Type, ErrInternal)
	}

	if t, ok := m.ByName(r.Path.Name()); ok {
		return t, nil
	}

	rc, err := tree.Open(ctx, r.Path)
	if err != nil {
		return "", fmt.Errorf("resolve mime %s: %w", r.Path, err)
	}
	defer func() { _ = rc.Close() }()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(rc, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("resolve mime %s: sniff: %w", r.Path, err)
	}

	return m.Sniff(head[:n]), nil
}

// ByName looks the extension of name up in the table and then in the
// platform registry.
func (m *MimeResolver) ByName(name string) (string, bool) {
	ext := filepath.Ext(name)
	if ext == "" || ext == name {
		return "", false
	}

	if t, ok := m.extensions[strings.ToLower(ext[1:])]; ok {
		return t, true
	}

	if t := mime.TypeByExtension(ext); t != "" {
		if mediaType, _, err := mime.ParseMediaType(t); err == nil {
			return mediaType, true
		}
	}

	return "", false
}

// Sniff matches head against magic-byte signatures.
func (m *MimeResolver) Sniff(head []byte) string {
	if len(head) == 0 {
		return DefaultMimeType
	}

	detected := mimetype.Detect(head)
	for p := detected; p != nil; p = p.Parent() {
		if p.Is("text/plain") {
			return DefaultMimeType
		}
	}

	if detected.Is(DefaultMimeType) {
		return DefaultMimeType
	}

	mediaType, _, err := mime.ParseMediaType(detected.String())
	if err != nil {
		return DefaultMimeType
	}
	return mediaType
}
