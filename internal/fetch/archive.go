// SPDX-License-Identifier: MPL-2.0

package fetch

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrMemberNotFound is returned when the requested archive member does not
// exist in the archive.
var ErrMemberNotFound = errors.New("archive member not found")

// ExtractTarGz extracts the member with base name member from the tar.gz
// archive at archivePath into a temp file under targetDir and returns its
// path. Matching by base name handles both flat and nested archive layouts.
func ExtractTarGz(archivePath, member, targetDir string) (_ string, err error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("opening archive: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return "", fmt.Errorf("creating gzip reader: %w", err)
	}
	defer func() {
		_ = gz.Close()
	}()

	tr := tar.NewReader(gz)
	for {
		hdr, nextErr := tr.Next()
		if errors.Is(nextErr, io.EOF) {
			break
		}
		if nextErr != nil {
			return "", fmt.Errorf("reading tar entry: %w", nextErr)
		}

		if hdr.Typeflag != tar.TypeReg || filepath.Base(hdr.Name) != member {
			continue
		}

		tmp, createErr := os.CreateTemp(targetDir, "pipstage-extract-*")
		if createErr != nil {
			return "", fmt.Errorf("creating temp file for member: %w", createErr)
		}

		// Header sizes can lie (decompression bombs), so count what was
		// actually written and reject members over the cap.
		var written int64
		if copyErr := func() (copyErr error) {
			defer func() {
				if closeErr := tmp.Close(); closeErr != nil && copyErr == nil {
					copyErr = closeErr
				}
			}()
			if written, copyErr = io.Copy(tmp, io.LimitReader(tr, maxArtifactBytes+1)); copyErr != nil {
				return fmt.Errorf("extracting member: %w", copyErr)
			}
			return nil
		}(); copyErr != nil {
			_ = os.Remove(tmp.Name())
			return "", copyErr
		}
		if written > maxArtifactBytes {
			_ = os.Remove(tmp.Name())
			return "", fmt.Errorf("%w: member %q is larger than %d bytes", ErrSizeLimitExceeded, member, maxArtifactBytes)
		}

		return tmp.Name(), nil
	}

	return "", fmt.Errorf("%w: %q in %s", ErrMemberNotFound, member, archivePath)
}

// ExtractTarGzAll unpacks the whole tar.gz archive under destDir, the way
// `tar -zxf archive -C destDir` would. Entries escaping destDir are rejected.
func ExtractTarGzAll(archivePath, destDir string) (err error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("creating gzip reader: %w", err)
	}
	defer func() {
		_ = gz.Close()
	}()

	tr := tar.NewReader(gz)
	for {
		hdr, nextErr := tr.Next()
		if errors.Is(nextErr, io.EOF) {
			return nil
		}
		if nextErr != nil {
			return fmt.Errorf("reading tar entry: %w", nextErr)
		}

		target, pathErr := securePath(destDir, hdr.Name)
		if pathErr != nil {
			return pathErr
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if mkErr := os.MkdirAll(target, 0o755); mkErr != nil {
				return fmt.Errorf("creating directory: %w", mkErr)
			}
		case tar.TypeReg:
			if mkErr := os.MkdirAll(filepath.Dir(target), 0o755); mkErr != nil {
				return fmt.Errorf("creating parent directory: %w", mkErr)
			}
			if writeErr := writeFileFrom(tr, target, hdr.FileInfo().Mode().Perm()); writeErr != nil {
				return writeErr
			}
		default:
			// Symlinks and specials are not expected in reference archives.
		}
	}
}

// ExtractZip unpacks the zip archive under destDir, the way
// `unzip -o archive -d destDir` would.
func ExtractZip(archivePath, destDir string) (err error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("opening zip archive: %w", err)
	}
	defer func() {
		_ = zr.Close()
	}()

	for _, zf := range zr.File {
		target, pathErr := securePath(destDir, zf.Name)
		if pathErr != nil {
			return pathErr
		}

		if zf.FileInfo().IsDir() {
			if mkErr := os.MkdirAll(target, 0o755); mkErr != nil {
				return fmt.Errorf("creating directory: %w", mkErr)
			}
			continue
		}

		if mkErr := os.MkdirAll(filepath.Dir(target), 0o755); mkErr != nil {
			return fmt.Errorf("creating parent directory: %w", mkErr)
		}

		rc, openErr := zf.Open()
		if openErr != nil {
			return fmt.Errorf("opening zip member %s: %w", zf.Name, openErr)
		}
		writeErr := writeFileFrom(rc, target, zf.FileInfo().Mode().Perm())
		_ = rc.Close()
		if writeErr != nil {
			return writeErr
		}
	}
	return nil
}

// securePath joins name under destDir and rejects entries escaping it.
func securePath(destDir, name string) (string, error) {
	target := filepath.Join(destDir, filepath.FromSlash(name))
	if target != destDir && !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry %q escapes destination directory", name)
	}
	return target, nil
}

// writeFileFrom writes one archive member to target. The tar and zip readers
// bound each entry at its declared size, and reference index files legitimately
// run to several gigabytes, so no extra cap applies here.
func writeFileFrom(r io.Reader, target string, mode os.FileMode) (err error) {
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if _, err = io.Copy(out, r); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
