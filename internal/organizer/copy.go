package organizer

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// moveAcrossDevices copies src next to dst under a hidden temporary name with
// size and SHA256 verification, renames it into place, then removes src. On
// any failure the partial copy is removed and src is left untouched. A dst
// that appeared meanwhile is reported as os.ErrExist.
func moveAcrossDevices(src, dst string, mode os.FileMode, rename func(src, dst string) error) error {
	tmp := filepath.Join(filepath.Dir(dst), ".kaizen-"+filepath.Base(dst)+".tmp")

	if err := copyFileVerified(src, tmp, mode); err != nil {
		_ = os.Remove(tmp)
		return classifyCopy(src, err)
	}
	if err := rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		if errors.Is(err, os.ErrExist) {
			return err
		}
		return classifyCopy(dst, err)
	}
	if err := os.Remove(src); err != nil {
		// Source still present; undo so the file exists in exactly one place.
		_ = os.Remove(dst)
		return classifyCopy(src, err)
	}
	return nil
}

func classifyCopy(path string, err error) error {
	if moveErr, ok := classify(path, err).(*MoveError); ok {
		return moveErr
	}
	return &MoveError{Type: CrossDevice, Path: path, Err: err}
}

func copyFileVerified(src, dst string, mode os.FileMode) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, mode)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	srcHasher := sha256.New()
	written, err := io.Copy(out, io.TeeReader(in, srcHasher))
	if err != nil {
		return err
	}
	if err := out.Sync(); err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	if written != srcInfo.Size() {
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcInfo.Size(), written)
	}
	dstSum, err := hashFile(dst)
	if err != nil {
		return err
	}
	if !bytes.Equal(srcHasher.Sum(nil), dstSum) {
		return fmt.Errorf("copy hash mismatch: file corrupted during copy")
	}
	return nil
}

func hashFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}
