// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"pipstage-cli/internal/fetch"
	"pipstage-cli/internal/pipseeker"
)

var (
	estimateFastqs       string
	estimateReference    string
	estimateGenome       string
	estimateSortedBAM    bool
	estimateExonsOnly    bool
	estimateDownsampleTo int64
	estimateInputReads   int64

	estimateCmd = &cobra.Command{
		Use:   "estimate",
		Short: "Size the machine for a pipeline run",
		Long: `Estimate the threads, memory, and disk a pipeline run needs.

The FASTQ volume drives the thread tier and disk; memory is the peak
across the barcoding, alignment, and molecule-info stages. Prebuilt
genomes are sized with a HEAD probe of the hosted archive; local
references are sized on disk.`,
		RunE: runEstimate,
	}
)

func init() {
	estimateCmd.Flags().StringVar(&estimateFastqs, "fastqs", "", "directory holding the input *.fastq.gz files")
	estimateCmd.Flags().StringVar(&estimateReference, "reference", "", "local mapping reference (directory or archive)")
	estimateCmd.Flags().StringVar(&estimateGenome, "genome", "", "prebuilt genome name (e.g. human, mouse)")
	estimateCmd.Flags().BoolVar(&estimateSortedBAM, "sorted-bam", false, "account for coordinate-sorted BAM output")
	estimateCmd.Flags().BoolVar(&estimateExonsOnly, "exons-only", false, "account for exon-only counting")
	estimateCmd.Flags().Int64Var(&estimateDownsampleTo, "downsample-to", 0, "target read count for downsampling")
	estimateCmd.Flags().Int64Var(&estimateInputReads, "input-reads", 0, "total input reads, used with --downsample-to")
	_ = estimateCmd.MarkFlagRequired("fastqs")
	estimateCmd.MarkFlagsMutuallyExclusive("reference", "genome")
}

func runEstimate(cmd *cobra.Command, _ []string) error {
	fastqBytes, err := pipseeker.FastqSizeBytes(estimateFastqs)
	if err != nil {
		return err
	}

	refBytes, err := referenceSizeBytes(cmd)
	if err != nil {
		return err
	}

	shape := pipseeker.RunShape{
		FastqBytes:       fastqBytes,
		ReferenceBytes:   refBytes,
		SortedBAM:        estimateSortedBAM,
		ExonsOnly:        estimateExonsOnly,
		DownsampleFactor: pipseeker.DownsampleFactor(estimateDownsampleTo, estimateInputReads),
	}
	est := shape.Estimate()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, TitleStyle.Render("run estimate"))
	fmt.Fprintf(out, "%s %d\n", SubtitleStyle.Render("threads:"), est.Threads)
	fmt.Fprintf(out, "%s %d GiB\n", SubtitleStyle.Render("memory: "), est.MemoryGB)
	fmt.Fprintf(out, "%s %d GiB\n", SubtitleStyle.Render("disk:   "), est.DiskGB)
	if verbose {
		fmt.Fprintln(out, VerboseStyle.Render(fmt.Sprintf("fastqs: %d bytes, reference: %d bytes", fastqBytes, refBytes)))
	}
	return nil
}

// referenceSizeBytes sizes the mapping reference from whichever source flag
// was given. Hosted prebuilt archives get the same 1.25x expansion factor
// as local archives.
func referenceSizeBytes(cmd *cobra.Command) (int64, error) {
	switch {
	case estimateReference != "":
		return pipseeker.ReferenceSizeBytes(estimateReference)
	case estimateGenome != "":
		src := pipseeker.ReferenceSource{Genome: pipseeker.GenomeType(estimateGenome)}
		url, err := src.Location()
		if err != nil {
			return 0, err
		}
		size, err := fetch.NewClient().ContentLength(cmd.Context(), pipseeker.ArchiveHTTPURL(url))
		if err != nil {
			return 0, err
		}
		return int64(1.25 * float64(size)), nil
	default:
		return 0, nil
	}
}
