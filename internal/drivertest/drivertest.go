// Package drivertest checks that a rookery.Driver honours the driver
// contract. Driver packages call Run from their tests.
package drivertest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/sagarc03/rookery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty driver. Cleanup is registered on t.
type Factory func(t *testing.T) rookery.Driver

// Run exercises every Driver method against drivers made by newDriver.
func Run(t *testing.T, newDriver Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, d rookery.Driver)
	}{
		{"EmptyRoot", testEmptyRoot},
		{"WriteCreatesParents", testWriteCreatesParents},
		{"WriteReplaces", testWriteReplaces},
		{"WriteAncestorIsFile", testWriteAncestorIsFile},
		{"WriteFailureLeavesNothing", testWriteFailureLeavesNothing},
		{"ReadDirSorted", testReadDirSorted},
		{"ReadDirOnFile", testReadDirOnFile},
		{"OpenMissing", testOpenMissing},
		{"RenameFile", testRenameFile},
		{"RenameTree", testRenameTree},
		{"RenameReplacesFile", testRenameReplacesFile},
		{"RenameMissing", testRenameMissing},
		{"RemoveAll", testRemoveAll},
		{"RemoveAllMissing", testRemoveAllMissing},
		{"SimilarPrefixes", testSimilarPrefixes},
		{"SpecialNames", testSpecialNames},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newDriver(t))
		})
	}
}

func put(t *testing.T, d rookery.Driver, p, content string) {
	t.Helper()
	n, err := d.Write(context.Background(), rookery.MustParsePath(p), strings.NewReader(content))
	require.NoError(t, err, "write %s", p)
	require.Equal(t, int64(len(content)), n)
}

func get(t *testing.T, d rookery.Driver, p string) string {
	t.Helper()
	rc, err := d.Open(context.Background(), rookery.MustParsePath(p))
	require.NoError(t, err, "open %s", p)
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func kind(t *testing.T, d rookery.Driver, p string) rookery.ResourceType {
	t.Helper()
	e, err := d.Stat(context.Background(), rookery.MustParsePath(p))
	if errors.Is(err, rookery.ErrNotFound) {
		return rookery.Undefined
	}
	require.NoError(t, err, "stat %s", p)
	return e.Type
}

func names(t *testing.T, d rookery.Driver, p string) []string {
	t.Helper()
	entries, err := d.ReadDir(context.Background(), rookery.MustParsePath(p))
	require.NoError(t, err, "read dir %s", p)
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}

func testEmptyRoot(t *testing.T, d rookery.Driver) {
	e, err := d.Stat(context.Background(), rookery.Root)
	require.NoError(t, err)
	assert.Equal(t, rookery.Directory, e.Type)

	entries, err := d.ReadDir(context.Background(), rookery.Root)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func testWriteCreatesParents(t *testing.T, d rookery.Driver) {
	put(t, d, "a/b/c.txt", "hello")

	assert.Equal(t, rookery.Directory, kind(t, d, "a"))
	assert.Equal(t, rookery.Directory, kind(t, d, "a/b"))
	assert.Equal(t, rookery.File, kind(t, d, "a/b/c.txt"))
	assert.Equal(t, "hello", get(t, d, "a/b/c.txt"))

	e, err := d.Stat(context.Background(), rookery.MustParsePath("a/b/c.txt"))
	require.NoError(t, err)
	assert.Equal(t, "c.txt", e.Name)
	assert.Equal(t, int64(5), e.Size)
	assert.False(t, e.LastModified.IsZero())

	assert.Equal(t, []string{"a"}, names(t, d, ""))
}

func testWriteReplaces(t *testing.T, d rookery.Driver) {
	put(t, d, "f", "first version")
	put(t, d, "f", "second")

	assert.Equal(t, "second", get(t, d, "f"))

	payload := bytes.Repeat([]byte{0, 1, 2, 0xff}, 1<<14)
	_, err := d.Write(context.Background(), rookery.MustParsePath("bin"), bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, string(payload), get(t, d, "bin"))
}

func testWriteAncestorIsFile(t *testing.T, d rookery.Driver) {
	put(t, d, "a", "file")

	_, err := d.Write(context.Background(), rookery.MustParsePath("a/b/c"), strings.NewReader("x"))
	assert.ErrorIs(t, err, rookery.ErrNotADirectory)
	assert.Equal(t, "file", get(t, d, "a"))
}

func testWriteFailureLeavesNothing(t *testing.T, d rookery.Driver) {
	broken := io.MultiReader(strings.NewReader("partial"), iotest.ErrReader(errors.New("connection reset")))

	_, err := d.Write(context.Background(), rookery.MustParsePath("x/y/z"), broken)
	require.Error(t, err)

	assert.Equal(t, rookery.Undefined, kind(t, d, "x/y/z"))
	assert.Equal(t, rookery.Undefined, kind(t, d, "x"))
}

func testReadDirSorted(t *testing.T, d rookery.Driver) {
	for _, p := range []string{"dir/b", "dir/a", "dir/C", "dir/sub/x", "dir/a.txt"} {
		put(t, d, p, p)
	}

	assert.Equal(t, []string{"C", "a", "a.txt", "b", "sub"}, names(t, d, "dir"))

	entries, err := d.ReadDir(context.Background(), rookery.MustParsePath("dir"))
	require.NoError(t, err)
	assert.Equal(t, rookery.Directory, entries[4].Type)
	assert.Equal(t, rookery.File, entries[0].Type)

	_, err = d.ReadDir(context.Background(), rookery.MustParsePath("nope"))
	assert.ErrorIs(t, err, rookery.ErrNotFound)
}

func testReadDirOnFile(t *testing.T, d rookery.Driver) {
	put(t, d, "f", "x")

	_, err := d.ReadDir(context.Background(), rookery.MustParsePath("f"))
	assert.ErrorIs(t, err, rookery.ErrNotADirectory)
}

func testOpenMissing(t *testing.T, d rookery.Driver) {
	put(t, d, "dir/f", "x")

	_, err := d.Open(context.Background(), rookery.MustParsePath("dir/missing"))
	assert.ErrorIs(t, err, rookery.ErrNotFound)

	_, err = d.Open(context.Background(), rookery.MustParsePath("dir"))
	assert.ErrorIs(t, err, rookery.ErrNotFound)

	_, err = d.Stat(context.Background(), rookery.MustParsePath("dir/f/below"))
	assert.ErrorIs(t, err, rookery.ErrNotFound)
}

func testRenameFile(t *testing.T, d rookery.Driver) {
	put(t, d, "src/file", "content")

	err := d.Rename(context.Background(), rookery.MustParsePath("src/file"), rookery.MustParsePath("dst/deep/file"))
	require.NoError(t, err)

	assert.Equal(t, rookery.Undefined, kind(t, d, "src/file"))
	assert.Equal(t, rookery.Directory, kind(t, d, "src"))
	assert.Equal(t, "content", get(t, d, "dst/deep/file"))
}

func testRenameTree(t *testing.T, d rookery.Driver) {
	files := map[string]string{
		"tree/a":          "1",
		"tree/sub/b":      "2",
		"tree/sub/deep/c": "3",
	}
	for p, c := range files {
		put(t, d, p, c)
	}

	err := d.Rename(context.Background(), rookery.MustParsePath("tree"), rookery.MustParsePath("moved/tree"))
	require.NoError(t, err)

	assert.Equal(t, rookery.Undefined, kind(t, d, "tree"))
	assert.Equal(t, rookery.Undefined, kind(t, d, "tree/sub/b"))
	for p, c := range files {
		assert.Equal(t, c, get(t, d, "moved/"+p))
	}
	assert.Equal(t, []string{"a", "sub"}, names(t, d, "moved/tree"))
	assert.Equal(t, []string{"b", "deep"}, names(t, d, "moved/tree/sub"))
}

func testRenameReplacesFile(t *testing.T, d rookery.Driver) {
	put(t, d, "a", "new")
	put(t, d, "b", "old")

	require.NoError(t, d.Rename(context.Background(), rookery.MustParsePath("a"), rookery.MustParsePath("b")))

	assert.Equal(t, rookery.Undefined, kind(t, d, "a"))
	assert.Equal(t, "new", get(t, d, "b"))
}

func testRenameMissing(t *testing.T, d rookery.Driver) {
	err := d.Rename(context.Background(), rookery.MustParsePath("ghost"), rookery.MustParsePath("x/y"))
	assert.ErrorIs(t, err, rookery.ErrNotFound)
	assert.Equal(t, rookery.Undefined, kind(t, d, "x"))
}

func testRemoveAll(t *testing.T, d rookery.Driver) {
	put(t, d, "keep", "k")
	put(t, d, "gone/a", "1")
	put(t, d, "gone/sub/b", "2")

	require.NoError(t, d.RemoveAll(context.Background(), rookery.MustParsePath("gone")))

	assert.Equal(t, rookery.Undefined, kind(t, d, "gone"))
	assert.Equal(t, rookery.Undefined, kind(t, d, "gone/sub/b"))
	assert.Equal(t, []string{"keep"}, names(t, d, ""))

	require.NoError(t, d.RemoveAll(context.Background(), rookery.MustParsePath("keep")))
	assert.Empty(t, names(t, d, ""))
}

func testRemoveAllMissing(t *testing.T, d rookery.Driver) {
	err := d.RemoveAll(context.Background(), rookery.MustParsePath("ghost"))
	assert.ErrorIs(t, err, rookery.ErrNotFound)
}

// testSimilarPrefixes guards against prefix matching that ignores the
// separator or letter case.
func testSimilarPrefixes(t *testing.T, d rookery.Driver) {
	put(t, d, "dir/x", "in")
	put(t, d, "dirt/x", "sibling")
	put(t, d, "DIR/x", "upper")
	put(t, d, "dir_/x", "underscore")

	require.NoError(t, d.Rename(context.Background(), rookery.MustParsePath("dir"), rookery.MustParsePath("moved")))

	assert.Equal(t, "sibling", get(t, d, "dirt/x"))
	assert.Equal(t, "upper", get(t, d, "DIR/x"))
	assert.Equal(t, "underscore", get(t, d, "dir_/x"))
	assert.Equal(t, "in", get(t, d, "moved/x"))

	require.NoError(t, d.RemoveAll(context.Background(), rookery.MustParsePath("moved")))
	assert.Equal(t, "sibling", get(t, d, "dirt/x"))
	assert.Equal(t, "upper", get(t, d, "DIR/x"))
}

func testSpecialNames(t *testing.T, d rookery.Driver) {
	put(t, d, "spécial dir/100% done_", "x")

	assert.Equal(t, []string{"100% done_"}, names(t, d, "spécial dir"))

	require.NoError(t, d.Rename(context.Background(), rookery.MustParsePath("spécial dir"), rookery.MustParsePath("ünïcode")))
	assert.Equal(t, "x", get(t, d, "ünïcode/100% done_"))
}
