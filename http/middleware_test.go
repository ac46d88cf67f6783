package http_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sagarc03/rookery"
	rookeryhttp "github.com/sagarc03/rookery/http"
	"github.com/stretchr/testify/assert"
)

func TestPathMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		base   string
		target string
		want   rookery.Path
		code   int
	}{
		{name: "nested", base: "/resource", target: "/resource/a/b", want: "a/b", code: http.StatusOK},
		{name: "trailing slash", base: "/resource", target: "/resource/a/b/", want: "a/b", code: http.StatusOK},
		{name: "root", base: "/resource", target: "/resource", want: rookery.Root, code: http.StatusOK},
		{name: "root slash", base: "/resource", target: "/resource/", want: rookery.Root, code: http.StatusOK},
		{name: "decoded", base: "/resource", target: "/resource/caf%C3%A9", want: "café", code: http.StatusOK},
		{name: "empty base", base: "", target: "/x/y", want: "x/y", code: http.StatusOK},
		{name: "prefix only", base: "/resource", target: "/resources/a", code: http.StatusNotFound},
		{name: "other mount", base: "/resource", target: "/other/a", code: http.StatusNotFound},
		{name: "encoded slash", base: "/resource", target: "/resource/a%2Fb", code: http.StatusBadRequest},
		{name: "dot dot", base: "/resource", target: "/resource/a/%2e%2e", code: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got rookery.Path
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = rookeryhttp.PathFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			rec := httptest.NewRecorder()
			rookeryhttp.PathMiddleware(tt.base)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))

			assert.Equal(t, tt.code, rec.Code)
			if tt.code == http.StatusOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestRequestLogger_PassesThrough(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})

	rec := httptest.NewRecorder()
	rookeryhttp.RequestLogger(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "short and stout", rec.Body.String())
}
