// SPDX-License-Identifier: MPL-2.0

package fetch

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Install moves the file at src to dest and applies mode. Rename is
// attempted first; a cross-device move falls back to copy-and-remove.
func Install(src, dest string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating destination directory: %w", err)
	}

	if err := os.Rename(src, dest); err != nil {
		if copyErr := copyFile(src, dest); copyErr != nil {
			return fmt.Errorf("installing %s: %w", dest, copyErr)
		}
		_ = os.Remove(src)
	}

	if err := os.Chmod(dest, mode); err != nil {
		return fmt.Errorf("setting mode on %s: %w", dest, err)
	}
	return nil
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		_ = in.Close()
	}()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	_, err = io.Copy(out, in)
	return err
}
