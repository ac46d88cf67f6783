package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sagarc03/rookery"
)

type pathKey struct{}

// PathFromContext returns the resource path stored by PathMiddleware.
// It returns rookery.Root when none was stored.
func PathFromContext(ctx context.Context) rookery.Path {
	p, _ := ctx.Value(pathKey{}).(rookery.Path)
	return p
}

// PathMiddleware resolves the part of the escaped request path below
// basePath into a rookery.Path. Malformed paths are rejected with 400
// before reaching a handler.
//
// The escaped form is used so that an encoded separator inside a segment is
// seen by the resolver instead of being decoded into a second segment.
func PathMiddleware(basePath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.URL.EscapedPath()
			rel, ok := strings.CutPrefix(raw, basePath)
			if !ok || (rel != "" && rel[0] != '/') {
				WriteError(w, http.StatusNotFound, "not_found", "Resource not found")
				return
			}

			p, err := rookery.ResolvePath(rel)
			if err != nil {
				HandleError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), pathKey{}, p)))
		})
	}
}

// RequestLogger logs one line per request at info level, or warn for 5xx.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}

		slog.Log(r.Context(), level, "request",
			"method", r.Method,
			"path", r.URL.EscapedPath(),
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
