package errors

import "strings"

// PatternMatcher matches error messages to categories using string patterns.
type PatternMatcher interface {
	Match(errorMsg string) ErrorCategory
}

// NewPatternMatcher creates a new PatternMatcher with predefined patterns.
// Categories are tried in order; the first hit wins.
func NewPatternMatcher() PatternMatcher {
	return &patternMatcher{
		patterns: []categoryPatterns{
			{CategoryAuth, []string{
				"401",
				"unauthorized",
				"invalid token",
				"not logged in",
				"unable to log in",
			}},
			{CategoryPermission, []string{
				"403",
				"forbidden",
				"permission denied",
				"access denied",
				"operation not permitted",
			}},
			{CategoryDiskSpace, []string{
				"no space left on device",
				"disk full",
				"quota exceeded",
			}},
			{CategoryPath, []string{
				"no such file or directory",
				"path does not exist",
			}},
			{CategoryDirectory, []string{
				"directory not empty",
				"not a directory",
				"is not empty",
				"project files",
			}},
			{CategoryNotFound, []string{
				"404",
				"not found",
			}},
			{CategoryNetwork, []string{
				"connection refused",
				"connection reset",
				"no such host",
				"i/o timeout",
				"timeout",
				"tls:",
				"giving up after",
				"network is unreachable",
			}},
			{CategoryServer, []string{
				"500",
				"502",
				"503",
				"504",
				"internal server error",
				"bad gateway",
				"service unavailable",
			}},
		},
	}
}

type categoryPatterns struct {
	category ErrorCategory
	patterns []string
}

// patternMatcher is the concrete implementation of PatternMatcher.
type patternMatcher struct {
	patterns []categoryPatterns
}

// Match returns the error category based on pattern matching.
func (m *patternMatcher) Match(errorMsg string) ErrorCategory {
	lowerMsg := strings.ToLower(errorMsg)

	for _, entry := range m.patterns {
		for _, pattern := range entry.patterns {
			if strings.Contains(lowerMsg, pattern) {
				return entry.category
			}
		}
	}

	return CategoryUnknown
}
