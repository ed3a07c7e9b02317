// SPDX-License-Identifier: MPL-2.0

package pipseeker

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// writeRefArchive writes a tar.gz at path whose members live under topDir.
func writeRefArchive(t *testing.T, path, topDir string) {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	content := []byte("index data")
	hdr := &tar.Header{
		Name: topDir + "/SAindex",
		Mode: 0o644,
		Size: int64(len(content)),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		t.Fatal(err)
	}
	if _, err := tw.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestReferenceSourceValidate(t *testing.T) {
	if err := (ReferenceSource{Genome: GenomeHuman}).Validate(); err != nil {
		t.Errorf("prebuilt source: %v", err)
	}
	if err := (ReferenceSource{CustomPath: "/root/ref"}).Validate(); err != nil {
		t.Errorf("custom source: %v", err)
	}
	if err := (ReferenceSource{}).Validate(); err == nil {
		t.Error("empty source should fail validation")
	}
	if err := (ReferenceSource{Genome: GenomeHuman, CustomPath: "/root/ref"}).Validate(); err == nil {
		t.Error("both sources should fail validation")
	}
	if err := (ReferenceSource{Genome: "yeast"}).Validate(); !errors.Is(err, ErrUnknownGenome) {
		t.Errorf("unknown genome: %v, want ErrUnknownGenome", err)
	}
}

func TestReferenceSourceLocation(t *testing.T) {
	loc, err := (ReferenceSource{Genome: GenomeMouse}).Location()
	if err != nil {
		t.Fatal(err)
	}
	if loc == "" || loc[:5] != "s3://" {
		t.Errorf("prebuilt location = %q, want hosted URL", loc)
	}

	loc, err = (ReferenceSource{CustomPath: "/root/myref"}).Location()
	if err != nil {
		t.Fatal(err)
	}
	if loc != "/root/myref" {
		t.Errorf("custom location = %q", loc)
	}
}

func TestResolveCustomDirectoryInPlace(t *testing.T) {
	dir := t.TempDir()
	r := NewReferenceResolver(nil)

	got, err := r.Resolve(context.Background(), ReferenceSource{CustomPath: dir}, t.TempDir())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != dir {
		t.Errorf("Resolve() = %q, want the directory itself", got)
	}
}

func TestResolveCustomArchive(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "myref.tar.gz")
	writeRefArchive(t, archive, "myref")

	dest := t.TempDir()
	r := NewReferenceResolver(nil)
	got, err := r.Resolve(context.Background(), ReferenceSource{CustomPath: archive}, dest)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != filepath.Join(dest, "myref") {
		t.Errorf("Resolve() = %q, want unpacked index dir", got)
	}
	if _, err := os.Stat(filepath.Join(got, "SAindex")); err != nil {
		t.Errorf("index contents missing: %v", err)
	}
}

func TestResolveArchiveLayoutMismatch(t *testing.T) {
	dir := t.TempDir()
	// The top-level directory does not match the archive stem.
	archive := filepath.Join(dir, "myref.tar.gz")
	writeRefArchive(t, archive, "something-else")

	r := NewReferenceResolver(nil)
	_, err := r.Resolve(context.Background(), ReferenceSource{CustomPath: archive}, t.TempDir())
	if !errors.Is(err, ErrReferenceLayout) {
		t.Errorf("Resolve() error = %v, want ErrReferenceLayout", err)
	}
}

func TestResolveUnsupportedArchiveFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ref.rar")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewReferenceResolver(nil)
	_, err := r.Resolve(context.Background(), ReferenceSource{CustomPath: path}, t.TempDir())
	if !errors.Is(err, ErrReferenceLayout) {
		t.Errorf("Resolve() error = %v, want ErrReferenceLayout", err)
	}
}

func TestResolveMissingCustomPath(t *testing.T) {
	r := NewReferenceResolver(nil)
	_, err := r.Resolve(context.Background(), ReferenceSource{CustomPath: "/no/such/ref"}, t.TempDir())
	if err == nil {
		t.Error("missing custom path should fail")
	}
}

func TestArchiveHTTPURLRewrite(t *testing.T) {
	got := ArchiveHTTPURL("s3://latch-public/test-data/18440/ref.tar.gz")
	want := "https://latch-public.s3.amazonaws.com/test-data/18440/ref.tar.gz"
	if got != want {
		t.Errorf("ArchiveHTTPURL() = %q, want %q", got, want)
	}

	passthrough := "https://example.com/ref.tar.gz"
	if got := ArchiveHTTPURL(passthrough); got != passthrough {
		t.Errorf("ArchiveHTTPURL() rewrote a plain URL: %q", got)
	}
}

func TestArchiveStem(t *testing.T) {
	tests := map[string]string{
		"ref.tar.gz": "ref",
		"ref.zip":    "ref",
		"ref.tar":    "ref",
		"refdir":     "refdir",
	}
	for name, want := range tests {
		if got := archiveStem(name); got != want {
			t.Errorf("archiveStem(%q) = %q, want %q", name, got, want)
		}
	}
}
