package clientcli

import "errors"

// Errors for profile operations.
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrNoProfiles      = errors.New("no profiles configured")
	ErrProfileExists   = errors.New("profile already exists")
)

var ErrConfigRequired = errors.New("config is required")

// Errors for input validation.
var (
	ErrNoPaths     = errors.New("no paths provided")
	ErrEmptyPath   = errors.New("path is required")
	ErrIsDirectory = errors.New("remote path is a directory")
)
