package rookery_test

import (
	"testing"

	"github.com/sagarc03/rookery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePath(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    rookery.Path
		wantErr bool
	}{
		{name: "root slash", raw: "/", want: rookery.Root},
		{name: "empty", raw: "", want: rookery.Root},
		{name: "simple", raw: "/a/b", want: "a/b"},
		{name: "trailing slash", raw: "/a/b/", want: "a/b"},
		{name: "duplicate slashes", raw: "//a///b", want: "a/b"},
		{name: "no leading slash", raw: "a/b", want: "a/b"},
		{name: "percent encoded multibyte", raw: "/po%C3%ABzie/caf%C3%A9", want: "poëzie/café"},
		{name: "encoded space", raw: "/my%20file.txt", want: "my file.txt"},
		{name: "encoded separator", raw: "/a%2Fb", wantErr: true},
		{name: "lower case encoded separator", raw: "/a%2fb", wantErr: true},
		{name: "dot segment", raw: "/a/./b", wantErr: true},
		{name: "dot dot segment", raw: "/a/../b", wantErr: true},
		{name: "encoded dot dot", raw: "/a/%2E%2E/b", wantErr: true},
		{name: "bad escape", raw: "/a%zz", wantErr: true},
		{name: "control character", raw: "/a%01b", wantErr: true},
		{name: "null byte", raw: "/a%00", wantErr: true},
		{name: "invalid utf8", raw: "/a%FF", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rookery.ResolvePath(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, rookery.ErrInvalidPath)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPath_EscapedRoundTrip(t *testing.T) {
	paths := []string{"a", "a/b/c", "poëzie/café", "my file.txt", "100%/x", "a+b/c?d", "日本語/ファイル"}

	for _, s := range paths {
		t.Run(s, func(t *testing.T) {
			p := rookery.MustParsePath(s)
			back, err := rookery.ResolvePath("/" + p.Escaped())
			require.NoError(t, err)
			assert.Equal(t, p, back)
		})
	}
}

func TestPath_Escaped_UpperCaseHex(t *testing.T) {
	p := rookery.MustParsePath("poëzie/café")
	assert.Equal(t, "po%C3%ABzie/caf%C3%A9", p.Escaped())
}

func TestParsePath(t *testing.T) {
	p, err := rookery.ParsePath("/a/b/")
	require.NoError(t, err)
	assert.Equal(t, rookery.Path("a/b"), p)

	_, err = rookery.ParsePath("a/../b")
	assert.ErrorIs(t, err, rookery.ErrInvalidPath)

	assert.Panics(t, func() { rookery.MustParsePath("..") })
}

func TestPath_Navigation(t *testing.T) {
	p := rookery.MustParsePath("a/b/c.txt")

	assert.Equal(t, "c.txt", p.Name())
	assert.Equal(t, rookery.Path("a/b"), p.Parent())
	assert.Equal(t, rookery.Root, rookery.MustParsePath("a").Parent())
	assert.Equal(t, rookery.Root, rookery.Root.Parent())
	assert.Equal(t, "", rookery.Root.Name())
	assert.Equal(t, []string{"a", "b", "c.txt"}, p.Segments())
	assert.Nil(t, rookery.Root.Segments())
	assert.Equal(t, []rookery.Path{"a", "a/b"}, p.Ancestors())
	assert.Nil(t, rookery.MustParsePath("a").Ancestors())
	assert.Equal(t, "/a/b/c.txt", p.String())
	assert.Equal(t, "/", rookery.Root.String())
	assert.True(t, rookery.Root.IsRoot())
	assert.Equal(t, rookery.Path("x"), rookery.Root.Join("x"))
	assert.Equal(t, rookery.Path("a/x"), rookery.MustParsePath("a").Join("x"))
}

func TestPath_Contains(t *testing.T) {
	tests := []struct {
		name  string
		p     rookery.Path
		other rookery.Path
		want  bool
	}{
		{name: "root contains everything", p: rookery.Root, other: "a/b", want: true},
		{name: "self", p: "a", other: "a", want: true},
		{name: "child", p: "a", other: "a/b", want: true},
		{name: "sibling with common prefix", p: "a", other: "ab", want: false},
		{name: "parent", p: "a/b", other: "a", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.Contains(tt.other))
		})
	}
}

func TestPath_Rebase(t *testing.T) {
	assert.Equal(t, rookery.Path("x/y/c"), rookery.Path("a/b/c").Rebase("a/b", "x/y"))
	assert.Equal(t, rookery.Path("x"), rookery.Path("a").Rebase("a", "x"))
	assert.Equal(t, rookery.Path("c"), rookery.Path("a/c").Rebase("a", rookery.Root))
}

func TestIsValidSegment(t *testing.T) {
	assert.True(t, rookery.IsValidSegment("file.txt"))
	assert.True(t, rookery.IsValidSegment("..."))
	assert.True(t, rookery.IsValidSegment("café"))
	assert.False(t, rookery.IsValidSegment(""))
	assert.False(t, rookery.IsValidSegment("."))
	assert.False(t, rookery.IsValidSegment(".."))
	assert.False(t, rookery.IsValidSegment("a/b"))
	assert.False(t, rookery.IsValidSegment("a\x7f"))
	assert.False(t, rookery.IsValidSegment("\xff"))
}
