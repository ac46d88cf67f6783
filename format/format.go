// Package format renders rookery.ResourceMetadata as XML, JSON or HTML and
// negotiates which of the three a request asked for.
package format

import (
	"fmt"
	"io"
	"mime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sagarc03/rookery"
)

// Format is a metadata representation.
type Format int

const (
	XML Format = iota
	JSON
	HTML
)

// Default is used when neither the query nor the Accept header pick one.
const Default = XML

func (f Format) String() string {
	switch f {
	case XML:
		return "xml"
	case JSON:
		return "json"
	case HTML:
		return "html"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// MediaType is the Content-Type of documents in this format. It is also the
// type advertised on parent and subdirectory links.
func (f Format) MediaType() string {
	switch f {
	case JSON:
		return "application/json"
	case HTML:
		return "text/html"
	default:
		return "application/xml"
	}
}

// Parse matches s case-insensitively against xml, json and html.
func Parse(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "xml":
		return XML, nil
	case "json":
		return JSON, nil
	case "html":
		return HTML, nil
	default:
		return Default, fmt.Errorf("parse format %q: %w", s, rookery.ErrInvalidInput)
	}
}

var acceptable = map[string]Format{
	"application/xml":       XML,
	"text/xml":              XML,
	"application/json":      JSON,
	"text/json":             JSON,
	"text/html":             HTML,
	"application/xhtml+xml": HTML,
}

type acceptRange struct {
	mediaType string
	q         float64
}

// Negotiate picks the format for a request. An explicit format parameter
// wins; otherwise the Accept header is searched by preference; otherwise
// Default. Wildcards in Accept select Default.
func Negotiate(param, accept string) (Format, error) {
	if param != "" {
		return Parse(param)
	}

	ranges := make([]acceptRange, 0, 4)
	for _, part := range strings.Split(accept, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		mediaType, params, err := mime.ParseMediaType(part)
		if err != nil {
			continue
		}

		q := 1.0
		if v, ok := params["q"]; ok {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				q = parsed
			}
		}
		if q <= 0 {
			continue
		}

		ranges = append(ranges, acceptRange{mediaType: mediaType, q: q})
	}

	sort.SliceStable(ranges, func(i, j int) bool { return ranges[i].q > ranges[j].q })

	for _, r := range ranges {
		if f, ok := acceptable[r.mediaType]; ok {
			return f, nil
		}
		if r.mediaType == "*/*" || r.mediaType == "application/*" || r.mediaType == "text/*" {
			return Default, nil
		}
	}

	return Default, nil
}

// Encoder writes one metadata document.
type Encoder interface {
	Encode(w io.Writer, md rookery.ResourceMetadata) error
	MediaType() string
}

// EncoderFor returns the encoder for f.
func EncoderFor(f Format) Encoder {
	switch f {
	case JSON:
		return jsonEncoder{}
	case HTML:
		return htmlEncoder{}
	default:
		return xmlEncoder{}
	}
}

// Root element names.
const (
	rootFile      = "ResourceMetadata"
	rootDirectory = "ResourceDirectory"
)

func rootName(md rookery.ResourceMetadata) string {
	if md.IsDirectory() {
		return rootDirectory
	}
	return rootFile
}

// Timestamp renders t in UTC as "2006-01-02 15:04:05.S UTC" where the
// fraction is the millisecond count without padding, so 450ms renders as
// ".450" and 45ms as ".45".
func Timestamp(t time.Time) string {
	t = t.UTC()
	ms := t.Nanosecond() / int(time.Millisecond)
	return t.Format("2006-01-02 15:04:05") + "." + strconv.Itoa(ms) + " UTC"
}

// ParseTimestamp reads a time written by Timestamp.
func ParseTimestamp(s string) (time.Time, error) {
	rest, ok := strings.CutSuffix(s, " UTC")
	if !ok {
		return time.Time{}, fmt.Errorf("parse timestamp %q: missing zone", s)
	}

	base, frac, _ := strings.Cut(rest, ".")
	t, err := time.ParseInLocation("2006-01-02 15:04:05", base, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	if frac == "" {
		return t, nil
	}

	ms, err := strconv.Atoi(frac)
	if err != nil || ms < 0 || ms > 999 {
		return time.Time{}, fmt.Errorf("parse timestamp %q: bad milliseconds", s)
	}

	return t.Add(time.Duration(ms) * time.Millisecond), nil
}

// DisplayTime renders t in local time the way the HTML listing shows it.
func DisplayTime(t time.Time) string {
	return t.Local().Format("Mon Jan 02 15:04:05 MST 2006")
}

// childLinkType is the media type advertised on a child link: the file's
// own MIME type, or the document format for subdirectories.
func childLinkType(c rookery.ChildSummary, f Format) string {
	if c.Type == rookery.Directory {
		return f.MediaType()
	}
	if c.MimeType == "" {
		return rookery.DefaultMimeType
	}
	return c.MimeType
}
