package organizer

import (
	"os"
)

// renameIfAbsent is the check-then-rename fallback. It only guards against
// names taken before the check.
func renameIfAbsent(src, dst string) error {
	if FileExists(dst) {
		return &os.LinkError{Op: "rename", Old: src, New: dst, Err: os.ErrExist}
	}
	return os.Rename(src, dst)
}
