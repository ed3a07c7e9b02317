// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pipstage-cli/internal/pipseeker"
)

func resetInvokeFlags(t *testing.T) {
	t.Helper()
	origMode, origFastqs := invokeMode, invokeFastqs
	origReference, origGenome := invokeReference, invokeGenome
	origReferenceDir := invokeReferenceDir
	origChemistry, origVerbosity := invokeChemistry, invokeVerbosity
	origPrevious, origHash := invokePrevious, invokeHash
	origFasta, origGTF := invokeFasta, invokeGTF
	origSorted, origExons := invokeSortedBAM, invokeExonsOnly
	origDownsample, origInputReads := invokeDownsampleTo, invokeInputReads
	origAdditional, origExecute := invokeAdditional, invokeExecute
	t.Cleanup(func() {
		invokeMode, invokeFastqs = origMode, origFastqs
		invokeReference, invokeGenome = origReference, origGenome
		invokeReferenceDir = origReferenceDir
		invokeChemistry, invokeVerbosity = origChemistry, origVerbosity
		invokePrevious, invokeHash = origPrevious, origHash
		invokeFasta, invokeGTF = origFasta, origGTF
		invokeSortedBAM, invokeExonsOnly = origSorted, origExons
		invokeDownsampleTo, invokeInputReads = origDownsample, origInputReads
		invokeAdditional, invokeExecute = origAdditional, origExecute
	})
}

func setInvokeDefaults() {
	invokeMode = "full"
	invokeFastqs = ""
	invokeReference = ""
	invokeReferenceDir = "/root"
	invokeGenome = ""
	invokeChemistry = "v4"
	invokeVerbosity = "2"
	invokePrevious = ""
	invokeHash = ""
	invokeFasta = ""
	invokeGTF = ""
	invokeSortedBAM = false
	invokeExonsOnly = false
	invokeDownsampleTo = 0
	invokeInputReads = 0
	invokeAdditional = ""
	invokeExecute = false
}

func TestRunInvokePrintsCommand(t *testing.T) {
	resetInvokeFlags(t)
	setInvokeDefaults()
	invokeFastqs = "/data/fastqs"
	invokeReference = "/root/myref"

	c, out, errOut := newCaptureCmd(t)
	if err := runInvoke(c, nil); err != nil {
		t.Fatalf("runInvoke() error = %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"pipseeker full",
		"--fastq /data/fastqs/.",
		"--star-index-path /root/myref",
		"--chemistry v4",
		"--skip-version-check",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("invoke output missing %q:\n%s", want, got)
		}
	}
	if errOut.Len() != 0 {
		t.Errorf("unexpected warnings:\n%s", errOut.String())
	}
}

func TestRunInvokeWarnsOnDanglingInputReads(t *testing.T) {
	resetInvokeFlags(t)
	setInvokeDefaults()
	invokeFastqs = "/data/fastqs"
	invokeReference = "/root/myref"
	invokeInputReads = 500000

	c, out, errOut := newCaptureCmd(t)
	if err := runInvoke(c, nil); err != nil {
		t.Fatalf("runInvoke() error = %v", err)
	}
	if !strings.Contains(errOut.String(), "Warning") {
		t.Errorf("expected a warning on stderr:\n%s", errOut.String())
	}
	if strings.Contains(out.String(), "--input-reads") {
		t.Errorf("dangling --input-reads should be dropped:\n%s", out.String())
	}
}

func TestRunInvokeInvalidChemistry(t *testing.T) {
	resetInvokeFlags(t)
	setInvokeDefaults()
	invokeFastqs = "/data/fastqs"
	invokeReference = "/root/myref"
	invokeChemistry = "v9"

	c, _, _ := newCaptureCmd(t)
	err := runInvoke(c, nil)
	if !errors.Is(err, pipseeker.ErrInvalidChemistry) {
		t.Errorf("runInvoke() error = %v, want ErrInvalidChemistry", err)
	}
}

func TestRunInvokeMissingInputs(t *testing.T) {
	resetInvokeFlags(t)
	setInvokeDefaults()

	c, _, _ := newCaptureCmd(t)
	err := runInvoke(c, nil)
	if !errors.Is(err, pipseeker.ErrMissingInput) {
		t.Errorf("runInvoke() error = %v, want ErrMissingInput", err)
	}
}

func TestResolveInvokeReference(t *testing.T) {
	resetInvokeFlags(t)
	setInvokeDefaults()
	ctx := context.Background()

	invokeReference = "/root/myref"
	got, err := resolveInvokeReference(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got != "/root/myref" {
		t.Errorf("local reference = %q", got)
	}

	invokeReference = ""
	invokeGenome = "human"
	got, err = resolveInvokeReference(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got != "/root/pipseeker-gex-reference-GRCh38-2022.04" {
		t.Errorf("prebuilt reference = %q", got)
	}

	invokeGenome = "yeast"
	if _, err := resolveInvokeReference(ctx); !errors.Is(err, pipseeker.ErrUnknownGenome) {
		t.Errorf("unknown genome error = %v, want ErrUnknownGenome", err)
	}
}

// writeIndexArchive writes a tar.gz at path whose members live under topDir.
func writeIndexArchive(t *testing.T, path, topDir string) {
	t.Helper()
	if err := os.WriteFile(path, tarGzBytes(t, topDir+"/SAindex", []byte("index data")), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestResolveInvokeReferenceExecuteUnpacksArchive(t *testing.T) {
	resetInvokeFlags(t)
	setInvokeDefaults()

	archive := filepath.Join(t.TempDir(), "myindex.tar.gz")
	writeIndexArchive(t, archive, "myindex")

	invokeExecute = true
	invokeReference = archive
	invokeReferenceDir = t.TempDir()

	got, err := resolveInvokeReference(context.Background())
	if err != nil {
		t.Fatalf("resolveInvokeReference() error = %v", err)
	}
	if want := filepath.Join(invokeReferenceDir, "myindex"); got != want {
		t.Errorf("resolved reference = %q, want %q", got, want)
	}
	if _, err := os.Stat(filepath.Join(got, "SAindex")); err != nil {
		t.Errorf("unpacked index contents missing: %v", err)
	}
}

func TestResolveInvokeReferenceExecuteDirectoryInPlace(t *testing.T) {
	resetInvokeFlags(t)
	setInvokeDefaults()

	dir := t.TempDir()
	invokeExecute = true
	invokeReference = dir
	invokeReferenceDir = t.TempDir()

	got, err := resolveInvokeReference(context.Background())
	if err != nil {
		t.Fatalf("resolveInvokeReference() error = %v", err)
	}
	if got != dir {
		t.Errorf("resolved reference = %q, want the directory itself", got)
	}
}

func TestResolveInvokeReferenceExecuteMissingPathPassesThrough(t *testing.T) {
	resetInvokeFlags(t)
	setInvokeDefaults()

	invokeExecute = true
	invokeReference = "/only/inside/container/myref"

	got, err := resolveInvokeReference(context.Background())
	if err != nil {
		t.Fatalf("resolveInvokeReference() error = %v", err)
	}
	if got != "/only/inside/container/myref" {
		t.Errorf("resolved reference = %q, want passthrough", got)
	}
}

func TestResolveInvokeReferenceExecuteLayoutMismatch(t *testing.T) {
	resetInvokeFlags(t)
	setInvokeDefaults()

	archive := filepath.Join(t.TempDir(), "myindex.tar.gz")
	writeIndexArchive(t, archive, "something-else")

	invokeExecute = true
	invokeReference = archive
	invokeReferenceDir = t.TempDir()

	_, err := resolveInvokeReference(context.Background())
	if !errors.Is(err, pipseeker.ErrReferenceLayout) {
		t.Errorf("resolveInvokeReference() error = %v, want ErrReferenceLayout", err)
	}
}
