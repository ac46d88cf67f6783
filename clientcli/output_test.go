package clientcli_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sagarc03/rookery/clientcli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFormatter(t *testing.T) {
	t.Run("json formatter", func(t *testing.T) {
		formatter := clientcli.NewFormatter(true, false)
		_, ok := formatter.(*clientcli.JSONFormatter)
		assert.True(t, ok)
	})

	t.Run("human formatter quiet", func(t *testing.T) {
		formatter := clientcli.NewFormatter(false, true)
		hf, ok := formatter.(*clientcli.HumanFormatter)
		require.True(t, ok)
		assert.True(t, hf.Quiet)
	})
}

func TestHumanFormatter_FormatUpload(t *testing.T) {
	results := []clientcli.UploadResult{
		{LocalPath: "a.sld", RemotePath: "/styles/a.sld", Created: true, Size: 1024, Location: "http://h/resource/styles/a.sld"},
		{LocalPath: "b.sld", RemotePath: "/styles/b.sld", Size: 3},
		{LocalPath: "c.sld", Err: errors.New("upload failed")},
	}

	var buf bytes.Buffer
	require.NoError(t, (&clientcli.HumanFormatter{}).FormatUpload(&buf, results))

	output := buf.String()
	assert.Contains(t, output, "Created: /styles/a.sld (1.0 KB)")
	assert.Contains(t, output, "Location: http://h/resource/styles/a.sld")
	assert.Contains(t, output, "Replaced: /styles/b.sld (3 B)")
	assert.Contains(t, output, "Error: c.sld - upload failed")

	buf.Reset()
	require.NoError(t, (&clientcli.HumanFormatter{Quiet: true}).FormatUpload(&buf, results))
	assert.Equal(t, "Error: c.sld - upload failed\n", buf.String())
}

func TestHumanFormatter_FormatDownload(t *testing.T) {
	var buf bytes.Buffer
	err := (&clientcli.HumanFormatter{}).FormatDownload(&buf, &clientcli.DownloadResult{
		RemotePath:  "/a/b.txt",
		LocalPath:   "b.txt",
		ContentType: "text/plain",
		Size:        2048,
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Downloaded: /a/b.txt -> b.txt (2.0 KB)")
	assert.Contains(t, buf.String(), "Type: text/plain")
}

func TestHumanFormatter_FormatDelete(t *testing.T) {
	var buf bytes.Buffer
	err := (&clientcli.HumanFormatter{}).FormatDelete(&buf, []clientcli.DeleteResult{
		{Path: "a", Deleted: true},
		{Path: "b", Err: errors.New("gone")},
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Deleted: a")
	assert.Contains(t, buf.String(), "Error: b - gone")
}

func TestHumanFormatter_FormatList(t *testing.T) {
	t.Run("entries", func(t *testing.T) {
		modified := time.Date(2024, 3, 7, 9, 5, 2, 0, time.UTC)
		result := &clientcli.ListResult{
			Path: "/mydir",
			Items: []clientcli.EntryInfo{
				{Path: "/mydir/myres", Type: "resource", MimeType: "application/octet-stream", LastModified: modified},
				{Path: "/mydir/sub", Type: "directory", LastModified: modified},
			},
		}

		var buf bytes.Buffer
		require.NoError(t, (&clientcli.HumanFormatter{}).FormatList(&buf, result))

		output := buf.String()
		assert.Contains(t, output, "PATH")
		assert.Contains(t, output, "LAST MODIFIED")
		assert.Contains(t, output, "/mydir/myres")
		assert.Contains(t, output, "application/octet-stream")
		assert.Contains(t, output, "2024-03-07 09:05:02")
		assert.Contains(t, output, "1 resource(s), 1 directory(ies)")
	})

	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, (&clientcli.HumanFormatter{}).FormatList(&buf, &clientcli.ListResult{Path: "/"}))
		assert.Equal(t, "/ is empty\n", buf.String())
	})
}

func TestHumanFormatter_FormatRelocate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&clientcli.HumanFormatter{}).FormatRelocate(&buf, &clientcli.RelocateResult{
		Operation: "move", Source: "/a", Destination: "/b",
	}))
	assert.Equal(t, "Moved: /a -> /b\n", buf.String())
}

func TestHumanFormatter_Profiles(t *testing.T) {
	profiles := []clientcli.Profile{
		{Name: "local", Endpoint: "http://localhost:5708"},
		{Name: "prod", Endpoint: "https://geo.example.com", BasePath: "/geoserver/rest/resource"},
	}

	var buf bytes.Buffer
	require.NoError(t, (&clientcli.HumanFormatter{}).FormatProfileList(&buf, profiles, "prod"))
	assert.Contains(t, buf.String(), "* prod")
	assert.Contains(t, buf.String(), "/geoserver/rest/resource")
	assert.Contains(t, buf.String(), "/resource")

	buf.Reset()
	require.NoError(t, (&clientcli.HumanFormatter{}).FormatProfileShow(&buf, profiles[0], true))
	assert.Contains(t, buf.String(), "Name:      local (default)")
	assert.Contains(t, buf.String(), "Base path: /resource")
}

func TestJSONFormatter_FormatUpload(t *testing.T) {
	var buf bytes.Buffer
	err := (&clientcli.JSONFormatter{}).FormatUpload(&buf, []clientcli.UploadResult{
		{LocalPath: "a", RemotePath: "/a", Created: true, Size: 1},
		{LocalPath: "b", RemotePath: "/b", Err: errors.New("boom")},
	})
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, true, decoded[0]["created"])
	assert.Equal(t, "boom", decoded[1]["error"])
	assert.NotContains(t, decoded[1], "size_bytes")
}

func TestJSONFormatter_FormatList(t *testing.T) {
	var buf bytes.Buffer
	err := (&clientcli.JSONFormatter{}).FormatList(&buf, &clientcli.ListResult{
		Path:  "/d",
		Items: []clientcli.EntryInfo{{Path: "/d/x", Type: "resource", Href: "http://h/resource/d/x"}},
	})
	require.NoError(t, err)

	var decoded struct {
		Path  string `json:"path"`
		Items []struct {
			Path string `json:"path"`
			Type string `json:"type"`
			Href string `json:"href"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "/d", decoded.Path)
	require.Len(t, decoded.Items, 1)
	assert.Equal(t, "resource", decoded.Items[0].Type)
}

func TestJSONFormatter_FormatDelete(t *testing.T) {
	var buf bytes.Buffer
	err := (&clientcli.JSONFormatter{}).FormatDelete(&buf, []clientcli.DeleteResult{
		{Path: "a", Deleted: true},
		{Path: "b", Err: errors.New("not found")},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"results": [
		{"path": "a", "deleted": true},
		{"path": "b", "deleted": false, "error": "not found"}
	]}`, buf.String())
}

func TestJSONFormatter_FormatError(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&clientcli.JSONFormatter{}).FormatError(&buf, errors.New("nope")))
	assert.JSONEq(t, `{"error": "nope"}`, buf.String())
}

func TestJSONFormatter_FormatProfileShow(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&clientcli.JSONFormatter{}).FormatProfileShow(&buf, clientcli.Profile{Name: "x", Endpoint: "http://e"}, false))
	assert.JSONEq(t, `{"name": "x", "endpoint": "http://e", "base_path": "/resource", "default": false}`, buf.String())
}
