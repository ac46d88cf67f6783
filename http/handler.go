package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sagarc03/rookery"
	"github.com/sagarc03/rookery/format"
)

// DefaultBasePath is where the resource collection is mounted.
const DefaultBasePath = "/resource"

// maxSourceLen bounds the body of a copy or move request.
const maxSourceLen = 8 << 10

type Service interface {
	Read(ctx context.Context, p rookery.Path) (rookery.Object, error)
	Describe(ctx context.Context, p rookery.Path, links rookery.LinkBuilder) (rookery.ResourceMetadata, error)
	Upload(ctx context.Context, p rookery.Path, content io.Reader) (bool, error)
	Copy(ctx context.Context, src, dst rookery.Path) error
	Move(ctx context.Context, src, dst rookery.Path) error
	Delete(ctx context.Context, p rookery.Path) error
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age" validate:"min=0"`
}

type HandlerConfig struct {
	BasePath      string // Mount point of the collection (default: /resource)
	PublicURL     string // External origin used for links; derived from the request when empty
	MaxUploadSize int64  // Upload body limit in bytes; 0 means unlimited
	CORS          CORSConfig
	Metrics       *Metrics // Optional; enables /metrics
}

// Handler provides HTTP handlers for resource operations.
type Handler struct {
	config   HandlerConfig
	service  Service
	basePath string
}

// NewHandler creates a new Handler with the given configuration and service.
func NewHandler(config *HandlerConfig, service Service) *Handler {
	return &Handler{
		config:   *config,
		service:  service,
		basePath: normalizeBasePath(config.BasePath),
	}
}

// normalizeBasePath yields "/segment[/segment...]" or "" for the root mount.
func normalizeBasePath(p string) string {
	if p == "" {
		p = DefaultBasePath
	}
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	return "/" + p
}

// Router returns an http.Handler with the resource routes mounted under the
// configured base path.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	if h.config.Metrics != nil {
		r.Use(h.config.Metrics.Middleware)
	}

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusNotFound, "not_found", "Resource not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed",
			fmt.Sprintf("%s is not supported on resources", r.Method))
	})

	if h.config.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.config.Metrics.Handler())
	}

	mount := func(r chi.Router) {
		r.Use(PathMiddleware(h.basePath))
		for _, pattern := range []string{"/", "/*"} {
			r.Get(pattern, h.handleGet)
			r.Head(pattern, h.handleGet)
			r.Put(pattern, h.handlePut)
			r.Delete(pattern, h.handleDelete)
		}
	}

	if h.basePath == "" {
		r.Group(mount)
	} else {
		r.Route(h.basePath, mount)
	}

	return r
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	p := PathFromContext(r.Context())

	f, err := format.Negotiate(r.URL.Query().Get("format"), r.Header.Get("Accept"))
	if err != nil {
		HandleError(w, err)
		return
	}

	op, err := rookery.ParseOperation(r.URL.Query().Get("operation"))
	if err != nil {
		h.fail(w, f, err)
		return
	}

	switch op {
	case rookery.OpNone:
		h.writeContent(w, r, p, f)
	case rookery.OpMetadata:
		h.writeMetadata(w, r, p, f)
	case rookery.OpCopy, rookery.OpMove:
		h.fail(w, f, fmt.Errorf("%s requires PUT: %w", op, rookery.ErrMethodNotAllowed))
	default:
		h.fail(w, f, fmt.Errorf("operation %q: %w", op, rookery.ErrInternal))
	}
}

// writeContent streams a file in full. Range and conditional requests are
// not honored, whatever the driver's body supports. Directories have no
// content, so they are answered with their listing instead.
func (h *Handler) writeContent(w http.ResponseWriter, r *http.Request, p rookery.Path, f format.Format) {
	obj, err := h.service.Read(r.Context(), p)
	if errors.Is(err, rookery.ErrMethodNotAllowed) {
		h.writeMetadata(w, r, p, f)
		return
	}
	if err != nil {
		h.fail(w, f, err)
		return
	}
	defer func() { _ = obj.Body.Close() }()

	links := h.links(r)
	setResourceHeaders(w.Header(), obj.Resource.Type, links.Link(p.Parent()))
	w.Header().Set("Content-Type", obj.MimeType)

	setLastModified(w.Header(), obj.Resource)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, obj.Body); err != nil {
		slog.Warn("failed to stream resource", "path", p.String(), "error", err)
	}
}

func (h *Handler) writeMetadata(w http.ResponseWriter, r *http.Request, p rookery.Path, f format.Format) {
	md, err := h.service.Describe(r.Context(), p, h.links(r))
	if err != nil {
		h.fail(w, f, err)
		return
	}

	enc := format.EncoderFor(f)

	var buf bytes.Buffer
	if err := enc.Encode(&buf, md); err != nil {
		h.fail(w, f, fmt.Errorf("encode %s as %s: %w", p, f, err))
		return
	}

	setResourceHeaders(w.Header(), md.Type, md.Parent.Href)
	setLastModified(w.Header(), rookery.Resource{LastModified: md.LastModified})
	w.Header().Set("Content-Type", enc.MediaType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) handlePut(w http.ResponseWriter, r *http.Request) {
	p := PathFromContext(r.Context())

	op, err := rookery.ParseOperation(r.URL.Query().Get("operation"))
	if err != nil {
		HandleError(w, err)
		return
	}

	switch op {
	case rookery.OpNone:
		h.upload(w, r, p)
	case rookery.OpCopy, rookery.OpMove:
		h.relocate(w, r, p, op)
	case rookery.OpMetadata:
		HandleError(w, fmt.Errorf("metadata is read-only: %w", rookery.ErrMethodNotAllowed))
	default:
		HandleError(w, fmt.Errorf("operation %q: %w", op, rookery.ErrInternal))
	}
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request, p rookery.Path) {
	body := io.Reader(r.Body)
	if h.config.MaxUploadSize > 0 {
		body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadSize)
	}

	created, err := h.service.Upload(r.Context(), p, body)
	if err != nil {
		HandleError(w, err)
		return
	}

	if created {
		w.Header().Set("Location", h.links(r).Link(p))
		w.WriteHeader(http.StatusCreated)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// relocate handles copy and move. The body carries the decoded source path,
// e.g. "/mydir/myres".
func (h *Handler) relocate(w http.ResponseWriter, r *http.Request, dst rookery.Path, op rookery.Operation) {
	src, err := readSource(r.Body)
	if err != nil {
		HandleError(w, err)
		return
	}

	switch op {
	case rookery.OpCopy:
		err = h.service.Copy(r.Context(), src, dst)
	default:
		err = h.service.Move(r.Context(), src, dst)
	}
	if err != nil {
		HandleError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func readSource(body io.Reader) (rookery.Path, error) {
	data, err := io.ReadAll(io.LimitReader(body, maxSourceLen+1))
	if err != nil {
		return rookery.Root, fmt.Errorf("read source: %w", err)
	}
	if len(data) > maxSourceLen {
		return rookery.Root, fmt.Errorf("source path too long: %w", ErrBadSource)
	}

	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return rookery.Root, fmt.Errorf("empty body: %w", ErrBadSource)
	}

	src, err := rookery.ParsePath(raw)
	if err != nil {
		return rookery.Root, err
	}
	if src.IsRoot() {
		return rookery.Root, fmt.Errorf("root cannot be a source: %w", rookery.ErrMethodNotAllowed)
	}

	return src, nil
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	p := PathFromContext(r.Context())

	if err := h.service.Delete(r.Context(), p); err != nil {
		HandleError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// fail reports err in the negotiated format: a page for HTML, JSON otherwise.
func (h *Handler) fail(w http.ResponseWriter, f format.Format, err error) {
	if f == format.HTML {
		writeErrorPage(w, err)
		return
	}
	HandleError(w, err)
}

// links builds absolute links from the public URL, or from the request's
// scheme and host when none is configured.
func (h *Handler) links(r *http.Request) rookery.LinkBuilder {
	origin := strings.TrimSuffix(h.config.PublicURL, "/")
	if origin == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme, _, _ = strings.Cut(proto, ",")
			scheme = strings.ToLower(strings.TrimSpace(scheme))
		}
		origin = scheme + "://" + r.Host
	}
	return rookery.BaseURL(origin + h.basePath)
}

func setResourceHeaders(hdr http.Header, t rookery.ResourceType, parentHref string) {
	hdr.Set("Resource-Type", t.String())
	hdr.Set("Resource-Parent", parentHref)
}

func setLastModified(hdr http.Header, r rookery.Resource) {
	if !r.LastModified.IsZero() {
		hdr.Set("Last-Modified", r.LastModified.UTC().Format(http.TimeFormat))
	}
}
