package clientcli

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/sagarc03/rookery"
	"github.com/sagarc03/rookery/format"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultTimeout is the default HTTP client timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultConcurrency bounds parallel metadata requests while listing.
	DefaultConcurrency = 8
)

// Client performs operations against a rookery server.
type Client struct {
	links       rookery.BaseURL
	httpClient  *http.Client
	mime        *rookery.MimeResolver
	concurrency int
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithConcurrency bounds parallel requests made by List.
func WithConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// New creates a new Client with the given config and options.
func New(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}

	collection := cfg.CollectionURL()
	if _, err := url.Parse(collection); err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}

	c := &Client{
		links:       rookery.BaseURL(collection),
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		mime:        rookery.NewMimeResolver(nil),
		concurrency: DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// URL returns the address of a remote resource.
func (c *Client) URL(remotePath string) (string, error) {
	p, err := rookery.ParsePath(remotePath)
	if err != nil {
		return "", err
	}
	return c.links.Link(p), nil
}

// Upload uploads file(s) to the server.
// For recursive uploads, walks directory and preserves relative paths.
func (c *Client) Upload(ctx context.Context, opts UploadOptions) ([]UploadResult, error) {
	if opts.LocalPath == "" {
		return nil, fmt.Errorf("upload: %w", ErrEmptyPath)
	}

	remote, err := parseRemote(opts.RemotePath)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}

	if opts.Recursive {
		return c.uploadRecursive(ctx, opts.LocalPath, remote)
	}
	result, err := c.uploadSingle(ctx, opts.LocalPath, remote)
	if err != nil {
		return nil, err
	}
	return []UploadResult{result}, nil
}

// uploadRecursive walks a directory and uploads all files.
func (c *Client) uploadRecursive(ctx context.Context, localPath string, remote rookery.Path) ([]UploadResult, error) {
	info, err := os.Stat(localPath)
	if err != nil {
		return nil, fmt.Errorf("stat local path: %w", err)
	}

	if !info.IsDir() {
		result, uploadErr := c.uploadSingle(ctx, localPath, remote)
		if uploadErr != nil {
			return nil, uploadErr
		}
		return []UploadResult{result}, nil
	}

	var results []UploadResult

	walkErr := filepath.WalkDir(localPath, func(path string, d fs.DirEntry, fileErr error) error {
		if fileErr != nil {
			return fileErr
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			return nil
		}

		relPath, relErr := filepath.Rel(localPath, path)
		if relErr != nil {
			results = append(results, UploadResult{
				LocalPath: path,
				Err:       fmt.Errorf("calculate relative path: %w", relErr),
			})
			return nil
		}

		target, parseErr := rookery.ParsePath(remote.String() + "/" + filepath.ToSlash(relPath))
		if parseErr != nil {
			results = append(results, UploadResult{LocalPath: path, Err: parseErr})
			return nil
		}

		result, uploadErr := c.uploadSingle(ctx, path, target)
		if uploadErr != nil {
			result = UploadResult{
				LocalPath:  path,
				RemotePath: target.String(),
				Err:        uploadErr,
			}
		}
		results = append(results, result)
		return nil
	})

	if walkErr != nil {
		return results, fmt.Errorf("walk directory: %w", walkErr)
	}

	return results, nil
}

// uploadSingle streams one local file to remote.
func (c *Client) uploadSingle(ctx context.Context, localPath string, remote rookery.Path) (UploadResult, error) {
	file, err := os.Open(localPath) //#nosec G304 -- localPath is user-provided input
	if err != nil {
		return UploadResult{}, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return UploadResult{}, fmt.Errorf("stat file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.links.Link(remote), file)
	if err != nil {
		return UploadResult{}, fmt.Errorf("create request: %w", err)
	}
	req.ContentLength = info.Size()
	if mimeType, ok := c.mime.ByName(remote.Name()); ok {
		req.Header.Set("Content-Type", mimeType)
	} else {
		req.Header.Set("Content-Type", rookery.DefaultMimeType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return UploadResult{}, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return UploadResult{}, readServerError(resp)
	}

	return UploadResult{
		LocalPath:  localPath,
		RemotePath: remote.String(),
		Created:    resp.StatusCode == http.StatusCreated,
		Location:   resp.Header.Get("Location"),
		Size:       info.Size(),
	}, nil
}

// Download downloads a file from the server.
// If opts.LocalPath is "-", the content is returned via the io.ReadCloser and must be closed by the caller.
// Otherwise, the content is written to the file and the io.ReadCloser is nil.
func (c *Client) Download(ctx context.Context, opts DownloadOptions) (*DownloadResult, io.ReadCloser, error) {
	remote, err := parseRemote(opts.RemotePath)
	if err != nil {
		return nil, nil, fmt.Errorf("download: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.links.Link(remote), http.NoBody)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer func() { _ = resp.Body.Close() }()
		return nil, nil, readServerError(resp)
	}

	// Directories answer GET with their listing.
	if resp.Header.Get("Resource-Type") == rookery.Directory.String() {
		_ = resp.Body.Close()
		return nil, nil, fmt.Errorf("download %s: %w", remote, ErrIsDirectory)
	}

	result := &DownloadResult{
		RemotePath:  remote.String(),
		ContentType: resp.Header.Get("Content-Type"),
		Size:        resp.ContentLength,
	}
	if lm, parseErr := http.ParseTime(resp.Header.Get("Last-Modified")); parseErr == nil {
		result.LastModified = lm
	}

	if opts.LocalPath == "-" {
		result.LocalPath = "-"
		return result, resp.Body, nil
	}

	localPath := opts.LocalPath
	if localPath == "" {
		localPath = remote.Name()
	}
	result.LocalPath = localPath

	dir := filepath.Dir(localPath)
	if dir != "" && dir != "." {
		if mkdirErr := os.MkdirAll(dir, 0o750); mkdirErr != nil {
			_ = resp.Body.Close()
			return nil, nil, fmt.Errorf("create directory: %w", mkdirErr)
		}
	}

	file, createErr := os.Create(localPath) //#nosec G304 -- localPath is user-provided input
	if createErr != nil {
		_ = resp.Body.Close()
		return nil, nil, fmt.Errorf("create file: %w", createErr)
	}

	written, copyErr := io.Copy(file, resp.Body)
	_ = resp.Body.Close()
	if copyErr != nil {
		_ = file.Close()
		return nil, nil, fmt.Errorf("write file: %w", copyErr)
	}

	if closeErr := file.Close(); closeErr != nil {
		return nil, nil, fmt.Errorf("close file: %w", closeErr)
	}
	if !result.LastModified.IsZero() {
		_ = os.Chtimes(localPath, time.Time{}, result.LastModified)
	}

	result.Size = written
	return result, nil, nil
}

// Delete deletes one or more resources from the server.
// Continues on error, collecting results for all paths.
func (c *Client) Delete(ctx context.Context, opts DeleteOptions) ([]DeleteResult, error) {
	if len(opts.Paths) == 0 {
		return nil, ErrNoPaths
	}

	results := make([]DeleteResult, 0, len(opts.Paths))

	for _, path := range opts.Paths {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, c.deleteSingle(ctx, path))
	}

	return results, nil
}

func (c *Client) deleteSingle(ctx context.Context, path string) DeleteResult {
	remote, err := parseRemote(path)
	if err != nil {
		return DeleteResult{Path: path, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.links.Link(remote), http.NoBody)
	if err != nil {
		return DeleteResult{Path: path, Err: fmt.Errorf("create request: %w", err)}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return DeleteResult{Path: path, Err: fmt.Errorf("do request: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent {
		return DeleteResult{Path: path, Deleted: true}
	}

	return DeleteResult{Path: path, Err: readServerError(resp)}
}

// HasDeleteErrors returns true if any delete operation failed.
func HasDeleteErrors(results []DeleteResult) bool {
	for _, r := range results {
		if r.Err != nil {
			return true
		}
	}
	return false
}

// Copy duplicates src at dst, replacing whatever dst held.
func (c *Client) Copy(ctx context.Context, src, dst string) (*RelocateResult, error) {
	return c.relocate(ctx, rookery.OpCopy, src, dst)
}

// Move relocates src to dst.
func (c *Client) Move(ctx context.Context, src, dst string) (*RelocateResult, error) {
	return c.relocate(ctx, rookery.OpMove, src, dst)
}

// relocate sends PUT dst?operation=op with the decoded source path as body.
func (c *Client) relocate(ctx context.Context, op rookery.Operation, src, dst string) (*RelocateResult, error) {
	from, err := parseRemote(src)
	if err != nil {
		return nil, fmt.Errorf("%s source: %w", op, err)
	}
	to, err := parseRemote(dst)
	if err != nil {
		return nil, fmt.Errorf("%s destination: %w", op, err)
	}

	target := c.links.Link(to) + "?" + url.Values{"operation": {string(op)}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, strings.NewReader(from.String()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, readServerError(resp)
	}

	return &RelocateResult{
		Operation:   string(op),
		Source:      from.String(),
		Destination: to.String(),
	}, nil
}

// Metadata fetches the JSON metadata document of a resource.
func (c *Client) Metadata(ctx context.Context, remotePath string) (*rookery.ResourceMetadata, error) {
	p, err := rookery.ParsePath(remotePath)
	if err != nil {
		return nil, fmt.Errorf("metadata: %w", err)
	}
	return c.metadata(ctx, p)
}

func (c *Client) metadata(ctx context.Context, p rookery.Path) (*rookery.ResourceMetadata, error) {
	query := url.Values{
		"operation": {string(rookery.OpMetadata)},
		"format":    {format.JSON.String()},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.links.Link(p)+"?"+query.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", format.JSON.MediaType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, readServerError(resp)
	}

	md, err := format.DecodeJSON(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &md, nil
}

// List describes the entries below a directory. Each child is looked up on
// its own to learn its type and time, so requests run in parallel bounded by
// the client's concurrency.
func (c *Client) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	root, err := rookery.ParsePath(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}

	md, err := c.metadata(ctx, root)
	if err != nil {
		return nil, err
	}

	result := &ListResult{Path: root.String(), Items: []EntryInfo{}}
	if !md.IsDirectory() {
		result.Items = append(result.Items, EntryInfo{
			Path:         root.String(),
			Type:         md.Type.String(),
			MimeType:     c.fileType(root),
			Href:         c.links.Link(root),
			LastModified: md.LastModified,
		})
		return result, nil
	}

	pending := []listing{{path: root, md: md}}
	for len(pending) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		dir := pending[0]
		pending = pending[1:]

		entries, subdirs, err := c.describeChildren(ctx, dir)
		if err != nil {
			return nil, err
		}
		result.Items = append(result.Items, entries...)
		if opts.Recursive {
			pending = append(pending, subdirs...)
		}
	}

	slices.SortFunc(result.Items, func(a, b EntryInfo) int {
		return cmp.Compare(a.Path, b.Path)
	})
	return result, nil
}

type listing struct {
	path rookery.Path
	md   *rookery.ResourceMetadata
}

func (c *Client) describeChildren(ctx context.Context, dir listing) ([]EntryInfo, []listing, error) {
	children := dir.md.Children
	described := make([]*rookery.ResourceMetadata, len(children))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, child := range children {
		g.Go(func() error {
			md, err := c.metadata(gctx, dir.path.Join(child.Name))
			// Entries removed between listing and lookup are skipped.
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("describe %s: %w", dir.path.Join(child.Name), err)
			}
			described[i] = md
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	entries := make([]EntryInfo, 0, len(children))
	var subdirs []listing
	for i, md := range described {
		if md == nil {
			continue
		}
		p := dir.path.Join(children[i].Name)
		entry := EntryInfo{
			Path:         p.String(),
			Type:         md.Type.String(),
			Href:         children[i].Href,
			LastModified: md.LastModified,
		}
		if md.IsDirectory() {
			subdirs = append(subdirs, listing{path: p, md: md})
		} else {
			entry.MimeType = children[i].MimeType
		}
		entries = append(entries, entry)
	}
	return entries, subdirs, nil
}

// fileType guesses a file's MIME type from its name.
func (c *Client) fileType(p rookery.Path) string {
	if t, ok := c.mime.ByName(p.Name()); ok {
		return t
	}
	return rookery.DefaultMimeType
}

// parseRemote parses a remote path that must name something below root.
func parseRemote(s string) (rookery.Path, error) {
	p, err := rookery.ParsePath(s)
	if err != nil {
		return rookery.Root, err
	}
	if p.IsRoot() {
		return rookery.Root, ErrEmptyPath
	}
	return p, nil
}

// NormalizeLocalToRemotePath converts a local path to a clean remote path.
// It handles:
//   - Leading "./" is stripped (./foo/bar.txt -> foo/bar.txt)
//   - Leading "/" is stripped (/abs/path/file.txt -> abs/path/file.txt)
//   - Parent traversal is resolved (../sibling/file.txt -> sibling/file.txt)
//   - Backslashes are converted to forward slashes (Windows)
func NormalizeLocalToRemotePath(localPath string) string {
	path := filepath.ToSlash(filepath.Clean(filepath.ToSlash(localPath)))
	path = strings.TrimPrefix(path, "./")
	path = strings.TrimPrefix(path, "/")

	for strings.HasPrefix(path, "../") {
		path = strings.TrimPrefix(path, "../")
	}

	if path == ".." || path == "." {
		return ""
	}

	return path
}

// readServerError drains resp and turns it into an *APIError.
func readServerError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return parseServerError(resp.StatusCode, body)
}

// parseServerError extracts the error code and message the server writes as
// JSON. Other bodies, such as HTML error pages, are kept verbatim.
func parseServerError(statusCode int, body []byte) error {
	apiErr := &APIError{StatusCode: statusCode, Body: string(body)}

	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Code = payload.Error
		apiErr.Message = payload.Message
	}

	return apiErr
}

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	detail := e.Message
	if detail == "" {
		detail = strings.TrimSpace(e.Body)
	}
	if detail == "" {
		detail = http.StatusText(e.StatusCode)
	}
	return "server error: " + strconv.Itoa(e.StatusCode) + " - " + detail
}

// Is reports whether target matches this error.
// It matches if target is an *APIError with the same StatusCode.
func (e *APIError) Is(target error) bool {
	var t *APIError
	ok := errors.As(target, &t)
	if !ok {
		return false
	}
	return t.StatusCode == e.StatusCode
}

// IsNotFound returns true if the error is a 404.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Sentinel errors for common API error conditions.
// Use errors.Is() to check for these conditions.
var (
	// ErrBadRequest is returned for malformed paths, operations or formats (400).
	ErrBadRequest = &APIError{StatusCode: http.StatusBadRequest}

	// ErrNotFound is returned when the requested resource does not exist (404).
	ErrNotFound = &APIError{StatusCode: http.StatusNotFound}

	// ErrMethodNotAllowed is returned when the operation does not apply to
	// the target, such as writing over a directory (405).
	ErrMethodNotAllowed = &APIError{StatusCode: http.StatusMethodNotAllowed}

	// ErrTooLarge is returned when an upload exceeds the server limit (413).
	ErrTooLarge = &APIError{StatusCode: http.StatusRequestEntityTooLarge}

	// ErrUnavailable is returned when the server timed out waiting for a
	// lock (503).
	ErrUnavailable = &APIError{StatusCode: http.StatusServiceUnavailable}
)
