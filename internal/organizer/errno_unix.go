//go:build unix

package organizer

import (
	"errors"

	"golang.org/x/sys/unix"
)

func isLockError(err error) bool {
	return errors.Is(err, unix.EBUSY) || errors.Is(err, unix.ETXTBSY)
}

func isCrossDevice(err error) bool {
	return errors.Is(err, unix.EXDEV)
}
