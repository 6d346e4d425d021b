package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ValidationSeverity represents the severity of a validation issue.
type ValidationSeverity string

const (
	SeverityError   ValidationSeverity = "error"
	SeverityWarning ValidationSeverity = "warning"
)

// ConfigValidationError represents a single validation issue.
type ConfigValidationError struct {
	Field    string             // Config field with issue (e.g., "watch_paths[0]")
	Message  string             // Human-readable description
	Severity ValidationSeverity // "error" or "warning"
}

// ValidationResult contains all validation findings.
type ValidationResult struct {
	Errors   []ConfigValidationError
	Warnings []ConfigValidationError
	Valid    bool // True if no errors (warnings OK)
}

func (r *ValidationResult) add(issues []ConfigValidationError) {
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			r.Errors = append(r.Errors, issue)
		} else {
			r.Warnings = append(r.Warnings, issue)
		}
	}
}

// ValidateConfig checks cfg against the filesystem as well as structurally
// and returns every finding. Missing watch folders are warnings because they
// are skipped at runtime.
func ValidateConfig(cfg *Configuration) *ValidationResult {
	result := &ValidationResult{
		Errors:   []ConfigValidationError{},
		Warnings: []ConfigValidationError{},
	}

	if err := cfg.Validate(); err != nil {
		msg := err.Error()
		var cfgErr *ConfigError
		if errors.As(err, &cfgErr) {
			msg = cfgErr.Message
		}
		result.add([]ConfigValidationError{{Message: msg, Severity: SeverityError}})
	}
	result.add(ValidatePaths(cfg))
	result.add(ValidateCategories(cfg))

	result.Valid = len(result.Errors) == 0
	return result
}

// ValidatePaths checks watch, output and data directories.
func ValidatePaths(cfg *Configuration) []ConfigValidationError {
	var issues []ConfigValidationError

	if len(cfg.WatchPaths) == 0 {
		issues = append(issues, ConfigValidationError{
			Field:    "watch_paths",
			Message:  "no folders are watched",
			Severity: SeverityWarning,
		})
	}
	for i, dir := range cfg.WatchPaths {
		info, err := os.Stat(dir)
		switch {
		case os.IsNotExist(err):
			issues = append(issues, ConfigValidationError{
				Field:    formatField("watch_paths", i),
				Message:  "directory does not exist and will be skipped: " + dir,
				Severity: SeverityWarning,
			})
		case err != nil:
			issues = append(issues, ConfigValidationError{
				Field:    formatField("watch_paths", i),
				Message:  "error accessing directory: " + err.Error(),
				Severity: SeverityWarning,
			})
		case !info.IsDir():
			issues = append(issues, ConfigValidationError{
				Field:    formatField("watch_paths", i),
				Message:  "path is not a directory and will be skipped: " + dir,
				Severity: SeverityWarning,
			})
		}
	}

	if cfg.OutputDir != "" {
		if issue, ok := checkCreatableDir("output_dir", cfg.OutputDir, SeverityError); ok {
			issues = append(issues, issue)
		}
	}
	if cfg.DataDir != "" {
		if issue, ok := checkCreatableDir("data_dir", cfg.DataDir, SeverityWarning); ok {
			issues = append(issues, issue)
		}
	}
	return issues
}

// checkCreatableDir reports a problem if dir is not a directory, or does not
// exist and cannot be created under its nearest existing ancestor.
func checkCreatableDir(field, dir string, severity ValidationSeverity) (ConfigValidationError, bool) {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return ConfigValidationError{Field: field, Message: "path exists but is not a directory: " + dir, Severity: SeverityError}, true
		}
		if !isDirectoryWritable(dir) {
			return ConfigValidationError{Field: field, Message: "directory is not writable: " + dir, Severity: severity}, true
		}
		return ConfigValidationError{}, false
	}
	if !os.IsNotExist(err) {
		return ConfigValidationError{Field: field, Message: "error accessing directory: " + err.Error(), Severity: severity}, true
	}

	ancestor := filepath.Dir(dir)
	for {
		info, err := os.Stat(ancestor)
		if err == nil {
			if !info.IsDir() {
				return ConfigValidationError{Field: field, Message: "parent path is not a directory: " + ancestor, Severity: SeverityError}, true
			}
			if !isDirectoryWritable(ancestor) {
				return ConfigValidationError{Field: field, Message: "cannot create directory under " + ancestor, Severity: severity}, true
			}
			return ConfigValidationError{}, false
		}
		next := filepath.Dir(ancestor)
		if next == ancestor {
			return ConfigValidationError{Field: field, Message: "no existing parent for " + dir, Severity: severity}, true
		}
		ancestor = next
	}
}

// ValidateCategories warns about extensions claimed by more than one
// category and categories with no extensions.
func ValidateCategories(cfg *Configuration) []ConfigValidationError {
	var issues []ConfigValidationError

	for i, cat := range cfg.Categories {
		if len(cat.Extensions) == 0 {
			issues = append(issues, ConfigValidationError{
				Field:    formatField("categories", i),
				Message:  "category " + cat.Name + " has no extensions",
				Severity: SeverityWarning,
			})
		}
	}
	if dupes := cfg.OverlappingExtensions(); len(dupes) > 0 {
		issues = append(issues, ConfigValidationError{
			Field:    "categories",
			Message:  "extensions listed in more than one category, the first wins: " + strings.Join(dupes, ", "),
			Severity: SeverityWarning,
		})
	}
	return issues
}

// formatField creates a field reference string for validation errors.
func formatField(name string, index int) string {
	return name + "[" + strconv.Itoa(index) + "]"
}

// isDirectoryWritable checks if a directory is writable by creating a temp file.
func isDirectoryWritable(dir string) bool {
	f, err := os.CreateTemp(dir, ".kaizen_write_test*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return true
}
