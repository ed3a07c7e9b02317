// SPDX-License-Identifier: MPL-2.0

package pipseeker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pipstage-cli/internal/fetch"
)

// ErrReferenceLayout is returned when an unpacked archive does not contain
// the expected top-level directory.
var ErrReferenceLayout = errors.New("unexpected mapping reference layout")

type (
	// ReferenceSource names a mapping reference: either one of the prebuilt
	// genomes or a custom path, which may be an index directory or an
	// archive of one. Exactly one of Genome and CustomPath is set.
	ReferenceSource struct {
		Genome     GenomeType
		CustomPath string
	}

	// ReferenceResolver materializes a ReferenceSource on local disk.
	ReferenceResolver struct {
		client *fetch.Client
	}
)

// NewReferenceResolver creates a resolver; a nil client gets a default with
// the download cap lifted, since hosted reference archives run to tens of
// gigabytes.
func NewReferenceResolver(client *fetch.Client) *ReferenceResolver {
	if client == nil {
		client = fetch.NewClient(fetch.WithMaxDownloadBytes(0))
	}
	return &ReferenceResolver{client: client}
}

// Validate checks that exactly one source is named and, for prebuilt
// genomes, that an archive is hosted for it.
func (s ReferenceSource) Validate() error {
	switch {
	case s.Genome != "" && s.CustomPath != "":
		return errors.New("mapping reference: prebuilt genome and custom path are mutually exclusive")
	case s.Genome != "":
		return s.Genome.Validate()
	case s.CustomPath != "":
		return nil
	default:
		return errors.New("mapping reference: no source named")
	}
}

// Location returns where the reference lives before resolution, for size
// estimation: the hosted URL for prebuilt genomes, the path otherwise.
func (s ReferenceSource) Location() (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}
	if s.Genome != "" {
		return s.Genome.ArchiveURL()
	}
	return s.CustomPath, nil
}

// Resolve materializes the reference under destDir and returns the index
// directory path. A custom directory is used in place; archives are
// unpacked and must yield a top-level directory named after the archive.
func (r *ReferenceResolver) Resolve(ctx context.Context, src ReferenceSource, destDir string) (string, error) {
	if err := src.Validate(); err != nil {
		return "", err
	}

	if src.Genome != "" {
		url, err := src.Genome.ArchiveURL()
		if err != nil {
			return "", err
		}
		return r.fetchAndUnpack(ctx, ArchiveHTTPURL(url), destDir)
	}

	info, err := os.Stat(src.CustomPath)
	if err != nil {
		return "", fmt.Errorf("mapping reference %s: %w", src.CustomPath, err)
	}
	if info.IsDir() {
		return src.CustomPath, nil
	}
	return r.unpackArchive(src.CustomPath, destDir)
}

func (r *ReferenceResolver) fetchAndUnpack(ctx context.Context, url, destDir string) (string, error) {
	tempDir, err := os.MkdirTemp("", "pipstage-reference-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(tempDir)

	archivePath, _, err := r.client.Download(ctx, url, tempDir)
	if err != nil {
		return "", fmt.Errorf("downloading mapping reference: %w", err)
	}

	// Hosted archives do not keep their original filenames through the
	// download, so derive the expected directory from the URL instead.
	stem := archiveStem(filepath.Base(url))
	if err := fetch.ExtractTarGzAll(archivePath, destDir); err != nil {
		return "", fmt.Errorf("unpacking mapping reference: %w", err)
	}
	return verifyUnpacked(destDir, stem)
}

func (r *ReferenceResolver) unpackArchive(archivePath, destDir string) (string, error) {
	stem := archiveStem(filepath.Base(archivePath))

	var err error
	switch {
	case strings.HasSuffix(archivePath, ".tar.gz"):
		err = fetch.ExtractTarGzAll(archivePath, destDir)
	case strings.HasSuffix(archivePath, ".zip"):
		err = fetch.ExtractZip(archivePath, destDir)
	default:
		return "", fmt.Errorf("mapping reference %s: %w: not a directory or supported archive", archivePath, ErrReferenceLayout)
	}
	if err != nil {
		return "", fmt.Errorf("unpacking mapping reference: %w", err)
	}
	return verifyUnpacked(destDir, stem)
}

// verifyUnpacked requires the archive to have carried a top-level directory
// named after the archive stem; the binary expects the index laid out that way.
func verifyUnpacked(destDir, stem string) (string, error) {
	indexDir := filepath.Join(destDir, stem)
	info, err := os.Stat(indexDir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: archive did not contain directory %q", ErrReferenceLayout, stem)
	}
	return indexDir, nil
}

// archiveStem strips the first matching archive suffix from name.
func archiveStem(name string) string {
	for _, suffix := range archiveSuffixes {
		if strings.HasSuffix(name, suffix) {
			return strings.TrimSuffix(name, suffix)
		}
	}
	return name
}

// ArchiveHTTPURL rewrites an s3:// location to its public HTTPS form;
// anything else passes through unchanged.
func ArchiveHTTPURL(url string) string {
	rest, ok := strings.CutPrefix(url, "s3://")
	if !ok {
		return url
	}
	bucket, key, found := strings.Cut(rest, "/")
	if !found {
		return url
	}
	return "https://" + bucket + ".s3.amazonaws.com/" + key
}
