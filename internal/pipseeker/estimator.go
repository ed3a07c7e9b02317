// SPDX-License-Identifier: MPL-2.0

package pipseeker

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const gib = float64(1 << 30)

type (
	// RunShape carries the inputs the resource model depends on. Sizes are
	// in bytes; zero-valued optional fields mean "not requested".
	RunShape struct {
		FastqBytes       int64
		ReferenceBytes   int64
		SortedBAM        bool
		ExonsOnly        bool
		DownsampleFactor float64
	}

	// Estimate is the machine shape a run should be scheduled on.
	Estimate struct {
		Threads  int
		MemoryGB int
		DiskGB   int
	}
)

// threadTiers maps FASTQ gigabytes to a thread count. Tiers follow the
// empirical scaling of the barcoding stage.
var threadTiers = []struct {
	maxFastqGB float64
	threads    int
}{
	{1, 4},
	{4, 8},
	{8, 12},
	{16, 24},
	{32, 32},
}

// Threads returns the thread count for the given FASTQ volume.
func Threads(fastqBytes int64) int {
	fastqGB := float64(fastqBytes) / gib
	for _, tier := range threadTiers {
		if fastqGB < tier.maxFastqGB {
			return tier.threads
		}
	}
	return 64
}

// Estimate sizes the machine for a run. Memory is the peak across the
// barcoding, alignment, and molecule-info stages; each stage model was fit
// against observed RSS of production runs.
func (s RunShape) Estimate() Estimate {
	threads := Threads(s.FastqBytes)

	fastqBytes := float64(s.FastqBytes)
	if s.DownsampleFactor > 0 {
		fastqBytes *= s.DownsampleFactor
	}
	fastqGB := fastqBytes / gib
	t := float64(threads)

	baseline := gib*(2.24+0.01*fastqGB) + 0.0011*t*fastqBytes

	barcoding := baseline + gib*(1.23*t+0.0166*300+0.009*t*300)

	// Sorted BAM output spikes alignment RAM by ~2x; otherwise a 10%
	// safety margin covers alignment without counting.
	star := 0.93*float64(s.ReferenceBytes) + gib*(0.55+0.23*t)
	if s.SortedBAM {
		star = baseline + 2*star
	} else {
		star = 1.1 * (baseline + star)
	}

	exons := 0.0
	if s.ExonsOnly {
		exons = 1.0
	}
	molinfo := baseline + 0.772*fastqBytes + gib*(0.54*exons+0.525*t+0.71*t*exons)

	peak := max(barcoding, star, molinfo)

	diskFactor := 2.5
	if s.SortedBAM {
		diskFactor = 11
	}
	diskGB := int(float64(s.FastqBytes) / gib * diskFactor)
	if diskGB < 2 {
		diskGB = 2
	}

	return Estimate{
		Threads:  threads,
		MemoryGB: int(peak / gib),
		DiskGB:   diskGB,
	}
}

// String renders the estimate for operator display.
func (e Estimate) String() string {
	return fmt.Sprintf("%d threads, %d GiB memory, %d GiB disk", e.Threads, e.MemoryGB, e.DiskGB)
}

// FastqSizeBytes sums the compressed FASTQ files under dir.
func FastqSizeBytes(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".fastq.gz") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("sizing FASTQ directory %s: %w", dir, err)
	}
	return total, nil
}

// archiveSuffixes are the mapping reference archive formats, checked in order.
var archiveSuffixes = []string{".tar.gz", ".tar", ".zip"}

// ReferenceSizeBytes estimates the unpacked size of a mapping reference.
// Archives get a flat expansion factor; directories are summed as-is.
func ReferenceSizeBytes(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("sizing mapping reference %s: %w", path, err)
	}

	if !info.IsDir() {
		for _, suffix := range archiveSuffixes {
			if strings.HasSuffix(path, suffix) {
				return int64(1.25 * float64(info.Size())), nil
			}
		}
		return info.Size(), nil
	}

	var total int64
	err = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		total += fi.Size()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("sizing mapping reference %s: %w", path, err)
	}
	return total, nil
}

// DownsampleFactor returns the read fraction a downsample request keeps, or
// zero when no downsampling applies.
func DownsampleFactor(downsampleTo, inputReads int64) float64 {
	if downsampleTo <= 0 || inputReads <= 0 {
		return 0
	}
	return float64(downsampleTo) / float64(inputReads)
}
