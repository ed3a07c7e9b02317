// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"pipstage-cli/internal/pipseeker"
	"pipstage-cli/pkg/types"
)

var (
	invokeMode         string
	invokeFastqs       string
	invokeReference    string
	invokeReferenceDir string
	invokeGenome       string
	invokeChemistry    string
	invokeVerbosity    string
	invokePrevious     string
	invokeHash         string
	invokeFasta        string
	invokeGTF          string
	invokeSortedBAM    bool
	invokeExonsOnly    bool
	invokeDownsampleTo int64
	invokeInputReads   int64
	invokeAdditional   string
	invokeExecute      bool

	invokeCmd = &cobra.Command{
		Use:   "invoke",
		Short: "Compose (and optionally run) the pipeline command line",
		Long: `Compose the full pipeline command line for a run.

By default the command is printed for inspection; --execute runs it,
which requires the pipeline binary installed at ` + pipseeker.BinaryPath + `
(i.e. inside a provisioned environment). Recoverable option conflicts
are reported as warnings and replaced with defaults, matching the
pipeline's own forgiving argument handling.`,
		RunE: runInvoke,
	}
)

func init() {
	invokeCmd.Flags().StringVar(&invokeMode, "mode", "full", "run mode: full, cells, or buildmapref")
	invokeCmd.Flags().StringVar(&invokeFastqs, "fastqs", "", "directory holding the input *.fastq.gz files (full mode)")
	invokeCmd.Flags().StringVar(&invokeReference, "reference", "", "mapping reference directory or archive (full mode)")
	invokeCmd.Flags().StringVar(&invokeReferenceDir, "reference-dir", "/root", "directory prebuilt and archived references resolve under")
	invokeCmd.Flags().StringVar(&invokeGenome, "genome", "", "prebuilt genome name (full mode)")
	invokeCmd.Flags().StringVar(&invokeChemistry, "chemistry", "v4", "kit chemistry: v3, v4, or V")
	invokeCmd.Flags().StringVar(&invokeVerbosity, "verbosity", "2", "pipeline verbosity: 0, 1, or 2")
	invokeCmd.Flags().StringVar(&invokePrevious, "previous", "", "previous run output directory (cells mode)")
	invokeCmd.Flags().StringVar(&invokeHash, "hash", "", "hashing directory (cells mode)")
	invokeCmd.Flags().StringVar(&invokeFasta, "fasta", "", "genome FASTA (buildmapref mode)")
	invokeCmd.Flags().StringVar(&invokeGTF, "gtf", "", "gene annotation GTF (buildmapref mode)")
	invokeCmd.Flags().BoolVar(&invokeSortedBAM, "sorted-bam", false, "emit a coordinate-sorted BAM")
	invokeCmd.Flags().BoolVar(&invokeExonsOnly, "exons-only", false, "count exonic reads only")
	invokeCmd.Flags().Int64Var(&invokeDownsampleTo, "downsample-to", 0, "target read count for downsampling")
	invokeCmd.Flags().Int64Var(&invokeInputReads, "input-reads", 0, "total input reads, used with --downsample-to")
	invokeCmd.Flags().StringVar(&invokeAdditional, "additional-params", "", "extra arguments appended verbatim")
	invokeCmd.Flags().BoolVar(&invokeExecute, "execute", false, "run the composed command instead of printing it")
	invokeCmd.MarkFlagsMutuallyExclusive("reference", "genome")
}

func runInvoke(cmd *cobra.Command, _ []string) error {
	p := pipseeker.NewParams()
	p.Mode = pipseeker.Mode(invokeMode)
	p.Chemistry = pipseeker.Chemistry(invokeChemistry)
	p.Verbosity = pipseeker.Verbosity(invokeVerbosity)
	p.FastqDir = invokeFastqs
	p.PreviousOut = invokePrevious
	p.HashDir = invokeHash
	p.Fasta = invokeFasta
	p.GTF = invokeGTF
	p.SortedBAM = invokeSortedBAM
	p.ExonsOnly = invokeExonsOnly
	p.DownsampleTo = invokeDownsampleTo
	p.InputReads = invokeInputReads
	p.AdditionalParams = invokeAdditional

	ref, err := resolveInvokeReference(cmd.Context())
	if err != nil {
		return err
	}
	p.ReferencePath = ref

	args, warnings, err := p.BuildCommand()
	if err != nil {
		return err
	}
	for _, w := range warnings {
		fmt.Fprintln(cmd.ErrOrStderr(), WarningStyle.Render("Warning: ")+w)
	}

	if !invokeExecute {
		fmt.Fprintln(cmd.OutOrStdout(), CmdStyle.Render(strings.Join(args, " ")))
		return nil
	}

	run := exec.CommandContext(cmd.Context(), pipseeker.BinaryPath, args[1:]...)
	run.Stdout = cmd.OutOrStdout()
	run.Stderr = cmd.ErrOrStderr()
	run.Stdin = os.Stdin
	if err := run.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ExitError{Code: types.ExitCode(exitErr.ExitCode()), Err: err}
		}
		return err
	}
	return nil
}

// resolveInvokeReference materializes the mapping reference for the run.
// Without --execute nothing is fetched: a prebuilt genome maps to the
// directory its archive unpacks into under the reference dir, and custom
// paths pass through as given. With --execute prebuilt genomes are
// downloaded and unpacked, and a custom archive present on disk is unpacked
// under the reference dir; a custom path that does not exist locally still
// passes through, since it may only exist inside the provisioned environment.
func resolveInvokeReference(ctx context.Context) (string, error) {
	if invokeGenome == "" && invokeReference == "" {
		return "", nil
	}

	src := pipseeker.ReferenceSource{
		Genome:     pipseeker.GenomeType(invokeGenome),
		CustomPath: invokeReference,
	}
	if err := src.Validate(); err != nil {
		return "", err
	}

	if !invokeExecute {
		if invokeGenome == "" {
			return invokeReference, nil
		}
		url, err := src.Location()
		if err != nil {
			return "", err
		}
		stem := strings.TrimSuffix(filepath.Base(url), ".tar.gz")
		return filepath.Join(invokeReferenceDir, stem), nil
	}

	if invokeGenome == "" {
		if _, err := os.Stat(invokeReference); err != nil {
			return invokeReference, nil
		}
	}
	return pipseeker.NewReferenceResolver(nil).Resolve(ctx, src, invokeReferenceDir)
}
