// Package internal holds helpers shared by the SQL drivers.
package internal

import (
	"strings"
	"unicode/utf8"

	"github.com/sagarc03/rookery"
)

// EscapeLikePattern escapes special LIKE characters (%, _, \) to prevent SQL injection.
func EscapeLikePattern(pattern string) string {
	pattern = strings.ReplaceAll(pattern, `\`, `\\`)
	pattern = strings.ReplaceAll(pattern, `%`, `\%`)
	pattern = strings.ReplaceAll(pattern, `_`, `\_`)
	return pattern
}

// DescendantPattern is a LIKE pattern, escaped with '\', matching every path
// strictly below p.
func DescendantPattern(p rookery.Path) string {
	return EscapeLikePattern(string(p)) + "/%"
}

// DescendantPrefix returns the prefix shared by every path strictly below p
// and its length in characters, for use with substr().
func DescendantPrefix(p rookery.Path) (string, int) {
	prefix := string(p) + "/"
	return prefix, utf8.RuneCountInString(prefix)
}

// RebaseOffset is the 1-based substr() position of the first character
// after p in any descendant path.
func RebaseOffset(p rookery.Path) int {
	return utf8.RuneCountInString(string(p)) + 1
}
