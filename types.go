package rookery

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ResourceType tags what, if anything, lives at a path.
type ResourceType int

const (
	// Undefined marks a path with no backing object.
	Undefined ResourceType = iota
	// File is a leaf holding content.
	File
	// Directory is a collection of other resources.
	Directory
)

// String returns the wire name used in headers and metadata.
func (t ResourceType) String() string {
	switch t {
	case Undefined:
		return "undefined"
	case File:
		return "resource"
	case Directory:
		return "directory"
	default:
		return fmt.Sprintf("ResourceType(%d)", int(t))
	}
}

// ParseResourceType reverses String for the wire names.
func ParseResourceType(s string) (ResourceType, error) {
	switch s {
	case "resource":
		return File, nil
	case "directory":
		return Directory, nil
	case "undefined":
		return Undefined, nil
	default:
		return Undefined, fmt.Errorf("resource type %q: %w", s, ErrInvalidInput)
	}
}

// Resource is a lookup result from the tree. A Resource has no identity
// beyond its Path; it is a snapshot, not a handle.
type Resource struct {
	Path         Path
	Type         ResourceType
	LastModified time.Time
	Size         int64
}

// Exists reports whether anything backs the resource.
func (r Resource) Exists() bool {
	return r.Type != Undefined
}

// Entry is what a Driver reports about a single node.
type Entry struct {
	Name         string
	Type         ResourceType
	LastModified time.Time
	Size         int64
}

// Operation is a PUT/GET modifier selected with the "operation" query
// parameter.
type Operation string

const (
	OpNone     Operation = ""
	OpMetadata Operation = "metadata"
	OpCopy     Operation = "copy"
	OpMove     Operation = "move"
)

// ParseOperation matches s case-insensitively against the known operations.
// An empty string yields OpNone.
func ParseOperation(s string) (Operation, error) {
	switch op := Operation(strings.ToLower(strings.TrimSpace(s))); op {
	case OpNone, OpMetadata, OpCopy, OpMove:
		return op, nil
	default:
		return OpNone, fmt.Errorf("parse operation %q: %w", s, ErrInvalidInput)
	}
}

// Tables holds configurable table names for the SQL drivers.
// This allows several stores to share one database.
type Tables struct {
	Resources string `mapstructure:"resources"`
}

var validTableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidTableName checks if a table name is valid (lowercase, alphanumeric with underscores, max 63 chars).
func IsValidTableName(name string) bool {
	return validTableNameRegex.MatchString(name) && len(name) <= 63
}

// Validate checks that all required table names are set and valid.
func (t Tables) Validate() error {
	if t.Resources == "" {
		return errors.New("validate tables: resources table name cannot be empty")
	}

	if !IsValidTableName(t.Resources) {
		return fmt.Errorf("validate tables: invalid resources table name: %s (must match ^[a-z_][a-z0-9_]*$ and be <= 63 chars)", t.Resources)
	}

	return nil
}
