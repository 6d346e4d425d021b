// Package scanner enumerates files already sitting in a watch root.
package scanner

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// ScanErrorType represents the type of scanning error.
type ScanErrorType string

const (
	// DirectoryNotFound indicates the root does not exist or is not a directory.
	DirectoryNotFound ScanErrorType = "DIRECTORY_NOT_FOUND"
	// PermissionDenied indicates insufficient permissions to read the directory.
	PermissionDenied ScanErrorType = "PERMISSION_DENIED"
)

// ScanError represents an error that occurred during directory scanning.
type ScanError struct {
	Type ScanErrorType
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return string(e.Type) + ": " + e.Path
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// FileEntry represents a regular file found in a root.
type FileEntry struct {
	Name     string // Filename only
	FullPath string // Absolute path
	Size     int64
	ModTime  time.Time
}

// Scan lists the regular files directly inside directory, oldest first.
// Subdirectories and symlinks are skipped; scanning does not recurse.
func Scan(directory string) ([]FileEntry, error) {
	info, err := os.Stat(directory)
	if err != nil {
		return nil, rootError(directory, err)
	}
	if !info.IsDir() {
		return nil, &ScanError{
			Type: DirectoryNotFound,
			Path: directory,
			Err:  errors.New("path is not a directory"),
		}
	}

	entries, err := os.ReadDir(directory)
	if err != nil {
		return nil, rootError(directory, err)
	}

	abs, err := filepath.Abs(directory)
	if err != nil {
		abs = directory
	}

	files := make([]FileEntry, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue // Removed while listing
		}
		files = append(files, FileEntry{
			Name:     entry.Name(),
			FullPath: filepath.Join(abs, entry.Name()),
			Size:     fi.Size(),
			ModTime:  fi.ModTime(),
		})
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].Name < files[j].Name
		}
		return files[i].ModTime.Before(files[j].ModTime)
	})
	return files, nil
}

func rootError(directory string, err error) error {
	switch {
	case os.IsNotExist(err):
		return &ScanError{Type: DirectoryNotFound, Path: directory, Err: err}
	case os.IsPermission(err):
		return &ScanError{Type: PermissionDenied, Path: directory, Err: err}
	default:
		return err
	}
}
