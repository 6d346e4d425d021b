package organizer

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// FileExists checks if anything exists at the given path.
func FileExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// SplitName splits filename into stem and extension. A leading dot is part
// of the stem, so ".bashrc" has no extension.
func SplitName(filename string) (stem, ext string) {
	ext = filepath.Ext(filename)
	stem = strings.TrimSuffix(filename, ext)
	if stem == "" {
		return filename, ""
	}
	return stem, ext
}

// UniqueName returns filename if it is free in destDir, otherwise the first
// free "<stem>_<n><ext>" with n counting up from 1.
//
// Examples:
//   - "file.pdf" -> "file_1.pdf" (if file.pdf exists)
//   - "file.pdf" -> "file_2.pdf" (if file.pdf and file_1.pdf exist)
//   - "README"   -> "README_1"
//
// The loop ends after at most one probe per existing entry in destDir plus one.
func UniqueName(destDir, filename string) string {
	if !FileExists(filepath.Join(destDir, filename)) {
		return filename
	}

	stem, ext := SplitName(filename)
	for n := 1; ; n++ {
		candidate := stem + "_" + strconv.Itoa(n) + ext
		if !FileExists(filepath.Join(destDir, candidate)) {
			return candidate
		}
	}
}
