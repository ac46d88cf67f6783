package clientcli

import "time"

// UploadOptions configures an upload operation.
type UploadOptions struct {
	LocalPath  string
	RemotePath string
	Recursive  bool
}

// UploadResult represents the result of uploading a single file.
type UploadResult struct {
	LocalPath  string `json:"local_path"`
	RemotePath string `json:"remote_path"`
	Created    bool   `json:"created"`
	Location   string `json:"location,omitempty"`
	Size       int64  `json:"size_bytes"`
	Err        error  `json:"-"` // nil on success
}

// DownloadOptions configures a download operation.
type DownloadOptions struct {
	RemotePath string
	LocalPath  string // empty = derive from remote, "-" = stdout
}

// DownloadResult represents the result of downloading a file.
type DownloadResult struct {
	RemotePath   string    `json:"remote_path"`
	LocalPath    string    `json:"local_path"`
	ContentType  string    `json:"content_type"`
	LastModified time.Time `json:"last_modified,omitzero"`
	Size         int64     `json:"size_bytes"`
}

// DeleteOptions configures a delete operation.
type DeleteOptions struct {
	Paths []string
}

// DeleteResult represents the result of deleting a single resource.
type DeleteResult struct {
	Path    string `json:"path"`
	Deleted bool   `json:"deleted"`
	Err     error  `json:"-"` // nil on success
}

// ListOptions configures a list operation.
type ListOptions struct {
	Path      string
	Recursive bool
}

// ListResult holds the entries below a directory, sorted by path. Listing a
// file yields that file alone.
type ListResult struct {
	Path  string      `json:"path"`
	Items []EntryInfo `json:"items"`
}

// EntryInfo describes one listed resource.
type EntryInfo struct {
	Path         string    `json:"path"`
	Type         string    `json:"type"`
	MimeType     string    `json:"mime_type,omitempty"`
	Href         string    `json:"href"`
	LastModified time.Time `json:"last_modified"`
}

// IsDirectory reports whether the entry is a collection.
func (e EntryInfo) IsDirectory() bool {
	return e.Type == "directory"
}

// Counts returns the number of files and directories in the result.
func (r *ListResult) Counts() (files, dirs int) {
	for i := range r.Items {
		if r.Items[i].IsDirectory() {
			dirs++
		} else {
			files++
		}
	}
	return files, dirs
}

// RelocateResult reports a finished copy or move.
type RelocateResult struct {
	Operation   string `json:"operation"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
}
