// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func resetEstimateFlags(t *testing.T) {
	t.Helper()
	origFastqs, origReference, origGenome := estimateFastqs, estimateReference, estimateGenome
	origSorted, origExons := estimateSortedBAM, estimateExonsOnly
	origDownsample, origInputReads := estimateDownsampleTo, estimateInputReads
	t.Cleanup(func() {
		estimateFastqs, estimateReference, estimateGenome = origFastqs, origReference, origGenome
		estimateSortedBAM, estimateExonsOnly = origSorted, origExons
		estimateDownsampleTo, estimateInputReads = origDownsample, origInputReads
	})
}

func TestRunEstimateSmallRun(t *testing.T) {
	resetEstimateFlags(t)

	fastqDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(fastqDir, "sample_R1.fastq.gz"), bytes.Repeat([]byte{0}, 100), 0o644); err != nil {
		t.Fatal(err)
	}

	refDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(refDir, "SAindex"), []byte("idx"), 0o644); err != nil {
		t.Fatal(err)
	}

	estimateFastqs = fastqDir
	estimateReference = refDir
	estimateGenome = ""
	estimateSortedBAM = false
	estimateExonsOnly = false
	estimateDownsampleTo = 0
	estimateInputReads = 0

	c, out, _ := newCaptureCmd(t)
	if err := runEstimate(c, nil); err != nil {
		t.Fatalf("runEstimate() error = %v", err)
	}

	got := out.String()
	// A tiny run lands on the smallest tier: 4 threads, barcoding-dominated
	// memory, and the disk floor.
	for _, want := range []string{" 4\n", " 22 GiB", " 2 GiB"} {
		if !strings.Contains(got, want) {
			t.Errorf("estimate output missing %q:\n%s", want, got)
		}
	}
}

func TestRunEstimateMissingFastqDir(t *testing.T) {
	resetEstimateFlags(t)

	estimateFastqs = filepath.Join(t.TempDir(), "nope")
	estimateReference = ""
	estimateGenome = ""

	c, _, _ := newCaptureCmd(t)
	if err := runEstimate(c, nil); err == nil {
		t.Fatal("runEstimate() with a missing fastq dir should fail")
	}
}
