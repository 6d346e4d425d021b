package watcher

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultIgnorePatterns returns the default patterns for in-progress downloads.
func DefaultIgnorePatterns() []string {
	return []string{
		"*.tmp",
		"*.part",
		"*.download",
		"*.crdownload", // Chrome partial downloads
		"*.partial",    // Generic partial file
		".~*",          // Hidden temp files (e.g., .~lock)
	}
}

// FileFilter decides whether a path is an incomplete artifact that must not
// be moved.
type FileFilter struct {
	patterns []string
}

// NewFileFilter creates a new FileFilter with the given patterns.
// If patterns is nil or empty, default patterns are used. Invalid patterns
// are dropped.
func NewFileFilter(patterns []string) *FileFilter {
	if len(patterns) == 0 {
		patterns = DefaultIgnorePatterns()
	}
	valid := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" || !doublestar.ValidatePattern(p) {
			continue
		}
		valid = append(valid, p)
	}
	return &FileFilter{patterns: valid}
}

// ShouldIgnore checks the base name of path against the patterns, case
// insensitively. Patterns use doublestar syntax, so braces work:
// "*.{part,crdownload}".
func (f *FileFilter) ShouldIgnore(path string) bool {
	filename := strings.ToLower(filepath.Base(path))

	for _, pattern := range f.patterns {
		if matched, err := doublestar.Match(pattern, filename); err == nil && matched {
			return true
		}

		// Bare suffixes such as ".part" match as extensions
		if strings.HasPrefix(pattern, ".") && !strings.ContainsAny(pattern, "*?[{") {
			if strings.HasSuffix(filename, pattern) {
				return true
			}
		}
	}
	return false
}

// Patterns returns the active ignore patterns.
func (f *FileFilter) Patterns() []string {
	return append([]string(nil), f.patterns...)
}
