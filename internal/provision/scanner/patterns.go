// Pattern matching utilities for fixture filtering.
package scanner

import (
	"fmt"
	"path/filepath"
	"strings"
)

// PatternMatcher handles pattern matching for fixture filtering.
type PatternMatcher struct{}

// NewPatternMatcher creates a new pattern matcher.
func NewPatternMatcher() *PatternMatcher {
	return &PatternMatcher{}
}

// ShouldIncludeFile determines if a file should be included based on patterns.
// Exclude patterns take precedence; when include patterns are present a file
// must match at least one.
func (pm *PatternMatcher) ShouldIncludeFile(
	relPath string,
	includePatterns []string,
	excludePatterns []string,
) bool {
	// Normalize path separators to forward slashes for consistent pattern matching
	relPath = filepath.ToSlash(relPath)

	for _, pattern := range excludePatterns {
		if pm.matchesPattern(relPath, pattern) {
			return false
		}
	}

	if len(includePatterns) > 0 {
		included := false
		for _, pattern := range includePatterns {
			if pm.matchesPattern(relPath, pattern) {
				included = true
				break
			}
		}
		if !included {
			return false
		}
	}

	return true
}

// matchesPattern checks if a path matches a glob pattern.
// It supports basic glob patterns like *, **, and ?.
func (pm *PatternMatcher) matchesPattern(path, pattern string) bool {
	// Directory patterns (ending with /) match everything under the directory
	if strings.HasSuffix(pattern, "/") {
		pattern = strings.TrimSuffix(pattern, "/")
		return strings.HasPrefix(path+"/", pattern+"/") || path == pattern
	}

	if strings.Contains(pattern, "**") {
		return pm.matchesGlobPattern(path, pattern)
	}

	// Bare-name patterns like "*.tiff" should match in any directory
	if !strings.Contains(pattern, "/") {
		match, err := filepath.Match(pattern, filepath.Base(path))
		if err != nil {
			return false
		}
		return match
	}

	match, err := filepath.Match(pattern, path)
	if err != nil {
		return false
	}

	return match
}

// matchesGlobPattern handles patterns with ** (recursive wildcard).
func (pm *PatternMatcher) matchesGlobPattern(path, pattern string) bool {
	parts := strings.Split(pattern, "**")

	if len(parts) == 1 {
		match, _ := filepath.Match(pattern, path)
		return match
	}

	if len(parts) == 2 {
		prefix := parts[0]
		suffix := parts[1]

		if !strings.HasPrefix(path, prefix) {
			return false
		}

		if suffix == "" {
			return true
		}

		return strings.HasSuffix(path, suffix)
	}

	// Multiple ** segments are not supported
	return false
}

// ValidatePatterns validates that the given patterns are syntactically correct.
func (pm *PatternMatcher) ValidatePatterns(patterns []string) []error {
	var errs []error

	for i, pattern := range patterns {
		if strings.Count(pattern, "**") > 1 {
			errs = append(errs, &PatternError{
				Pattern: pattern,
				Index:   i,
				Err:     fmt.Errorf("multiple ** segments are not supported"),
			})
			continue
		}

		_, err := filepath.Match(strings.ReplaceAll(pattern, "**", "*"), "probe")
		if err != nil {
			errs = append(errs, &PatternError{
				Pattern: pattern,
				Index:   i,
				Err:     err,
			})
		}
	}

	return errs
}

// PatternError represents an error with a pattern.
type PatternError struct {
	Pattern string
	Index   int
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid pattern at index %d '%s': %v", e.Index, e.Pattern, e.Err)
}
