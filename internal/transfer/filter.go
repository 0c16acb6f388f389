package transfer

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// FileFilter decides which project files take part in a transfer.
type FileFilter interface {
	ShouldInclude(relativePath string) bool
}

// GlobFilter matches slash-separated paths against a doublestar pattern,
// case-insensitively. An empty pattern matches everything.
type GlobFilter struct {
	normalizedPattern string
	isEmpty           bool
}

// NewGlobFilter creates a new GlobFilter with the given pattern
func NewGlobFilter(pattern string) *GlobFilter {
	return &GlobFilter{
		normalizedPattern: strings.ToLower(pattern),
		isEmpty:           pattern == "",
	}
}

// ShouldInclude returns true if the file should be included based on the glob pattern
func (f *GlobFilter) ShouldInclude(relativePath string) bool {
	if f.isEmpty {
		return true
	}

	matched, err := doublestar.Match(f.normalizedPattern, strings.ToLower(relativePath))
	if err != nil {
		// invalid pattern matches nothing
		return false
	}

	return matched
}

// ValidPattern reports whether pattern is a well-formed doublestar pattern.
func ValidPattern(pattern string) bool {
	return doublestar.ValidatePattern(pattern)
}
