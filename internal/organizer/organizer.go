// Package organizer relocates classified files into category folders.
package organizer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// MoveErrorType represents the type of move error.
type MoveErrorType string

const (
	// SourceNotFound indicates the source file does not exist.
	SourceNotFound MoveErrorType = "SOURCE_NOT_FOUND"
	// NotAFile indicates the source is a directory or other non-regular entry.
	NotAFile MoveErrorType = "NOT_A_FILE"
	// Locked indicates another process holds the source or destination.
	Locked MoveErrorType = "LOCKED"
	// PermissionDenied indicates insufficient permissions for the operation.
	PermissionDenied MoveErrorType = "PERMISSION_DENIED"
	// CrossDevice indicates the verified copy fallback failed.
	CrossDevice MoveErrorType = "CROSS_DEVICE"
)

// ErrLocked matches any MoveError of type Locked via errors.Is.
var ErrLocked = errors.New("file is locked by another process")

// MoveError represents an error that occurred during file movement.
type MoveError struct {
	Type MoveErrorType
	Path string
	Err  error
}

func (e *MoveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Path)
}

func (e *MoveError) Unwrap() error {
	return e.Err
}

// Is reports ErrLocked for lock failures.
func (e *MoveError) Is(target error) bool {
	return target == ErrLocked && e.Type == Locked
}

// MoveResult represents the result of a successful file move operation.
type MoveResult struct {
	SourcePath      string
	DestinationPath string
	Category        string
	Renamed         bool // True if a numeric suffix was added to avoid a collision
	CrossDevice     bool // True if the verified copy fallback was used
}

// maxNameAttempts bounds how often Move picks a new name after another
// process took the chosen one.
const maxNameAttempts = 32

// Mover moves files into <outputDir>/<category>. Name selection and the
// rename happen under a per-directory lock so concurrent workers never pick
// the same free name. The rename itself refuses to replace an existing file,
// so a name taken by another process leads to the next suffix.
type Mover struct {
	mu       sync.Mutex
	dirLocks map[string]*sync.Mutex
	rename   func(src, dst string) error
}

// NewMover creates a Mover.
func NewMover() *Mover {
	return &Mover{
		dirLocks: make(map[string]*sync.Mutex),
		rename:   renameNoReplace,
	}
}

// DestinationDir returns the folder a file of category lands in.
func DestinationDir(outputDir, category string) string {
	return filepath.Join(outputDir, category)
}

// Move relocates src into DestinationDir(outputDir, category). Either the file
// ends up fully at the destination or it stays untouched at the source.
func (m *Mover) Move(src, outputDir, category string) (*MoveResult, error) {
	info, err := os.Lstat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &MoveError{Type: SourceNotFound, Path: src, Err: err}
		}
		return nil, classify(src, err)
	}
	if !info.Mode().IsRegular() {
		return nil, &MoveError{Type: NotAFile, Path: src}
	}

	destDir := DestinationDir(outputDir, category)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		if os.IsPermission(err) {
			return nil, &MoveError{Type: PermissionDenied, Path: destDir, Err: err}
		}
		return nil, err
	}

	unlock := m.lockDir(destDir)
	defer unlock()

	name := filepath.Base(src)
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		destName := UniqueName(destDir, name)
		destPath := filepath.Join(destDir, destName)

		result := &MoveResult{
			SourcePath:      src,
			DestinationPath: destPath,
			Category:        category,
			Renamed:         destName != name,
		}

		err := m.rename(src, destPath)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if !isCrossDevice(err) {
			return nil, classify(src, err)
		}
		err = moveAcrossDevices(src, destPath, info.Mode().Perm(), m.rename)
		if err == nil {
			result.CrossDevice = true
			return result, nil
		}
		if errors.Is(err, os.ErrExist) {
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("no free name for %s in %s after %d attempts", name, destDir, maxNameAttempts)
}

func (m *Mover) lockDir(dir string) func() {
	m.mu.Lock()
	l, ok := m.dirLocks[dir]
	if !ok {
		l = &sync.Mutex{}
		m.dirLocks[dir] = l
	}
	m.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// classify turns a raw filesystem error into a MoveError.
func classify(path string, err error) error {
	switch {
	case os.IsNotExist(err):
		return &MoveError{Type: SourceNotFound, Path: path, Err: err}
	case isLockError(err):
		return &MoveError{Type: Locked, Path: path, Err: err}
	case os.IsPermission(err):
		return &MoveError{Type: PermissionDenied, Path: path, Err: err}
	default:
		return err
	}
}
