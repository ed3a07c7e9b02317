// SPDX-License-Identifier: MPL-2.0

package pipseeker

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// BinaryPath is where the pipeline binary is installed in the
	// provisioned environment.
	BinaryPath = "/bin/pipseeker"

	// DefaultOutputPath receives pipeline output inside the environment.
	DefaultOutputPath = "/root/pipseeker_out"

	defaultDPI                    = 200
	defaultMinSensitivity         = 1
	defaultMaxSensitivity         = 5
	defaultClusteringPercentGenes = 10
	defaultDiffExpGenes           = 50
	defaultReadLength             = 100
	defaultSparsity               = 3

	sntDefaultColormap = "gray-to-green"
	htoDefaultColormap = "gray-to-red"

	defaultMinPercent = 1.0
	defaultMaxPercent = 99.0
)

// ErrMissingInput is wrapped by the per-mode required-input errors.
var ErrMissingInput = errors.New("missing required input")

type (
	// SubLibrary describes an SNT or HTO feature-barcoding sub-library.
	// Either the scalar value pair or the percentile pair bounds the
	// colorbar; a partial or mixed pair falls back to the percentile
	// defaults with a warning.
	SubLibrary struct {
		FastqDir   string
		Position   int
		Tags       string
		Annotation string
		Colormap   string

		MinValue   *float64
		MaxValue   *float64
		MinPercent *float64
		MaxPercent *float64

		// Colorbar is only consulted for HTO sub-libraries.
		Colorbar bool
	}

	// Params holds every pipeline option across the three run modes.
	// NewParams returns the defaults; zero-valued optional fields are
	// omitted from the command line.
	Params struct {
		Mode      Mode
		Chemistry Chemistry
		Verbosity Verbosity

		// full mode inputs
		FastqDir      string
		ReferencePath string
		OutputPath    string

		// cells mode inputs
		PreviousOut string
		HashDir     string

		// buildmapref inputs
		Fasta        string
		GTF          string
		ReadLength   int
		Sparsity     int
		IncludeTypes string
		ExcludeTypes string
		BiotypeTag   string

		// shared analysis parameters (always emitted for full and cells)
		RandomSeed             int
		DPI                    int
		MinSensitivity         int
		MaxSensitivity         int
		ClusteringPercentGenes int
		DiffExpGenes           int
		Clustering             ClusteringSensitivity

		// downsampling; InputReads is only meaningful with DownsampleTo
		DownsampleTo int64
		InputReads   int64

		// optional scalar parameters, zero means unset
		ForceCells        int
		MinClustersKmeans int
		MaxClustersKmeans int
		Annotation        string
		RunID             string
		Description       string

		// principal components, nearest neighbors, and resolution are
		// all-or-none; a partial set is dropped with a warning
		PrincipalComponents int
		NearestNeighbors    int
		Resolution          float64

		SaveSVG              bool
		RetainBarcodedFastqs bool
		SortedBAM            bool
		RemoveBAM            bool
		ExonsOnly            bool
		RunBarnyard          bool
		UMAPAxes             bool

		SNT *SubLibrary
		HTO *SubLibrary

		// AdditionalParams is split on whitespace and appended verbatim.
		AdditionalParams string
	}
)

// Float returns a pointer to v, for the optional SubLibrary bounds.
func Float(v float64) *float64 { return &v }

// NewParams returns Params with the pipeline defaults for a full run.
func NewParams() Params {
	return Params{
		Mode:                   ModeFull,
		Chemistry:              ChemistryV4,
		Verbosity:              VerbosityDebug,
		OutputPath:             DefaultOutputPath,
		DPI:                    defaultDPI,
		MinSensitivity:         defaultMinSensitivity,
		MaxSensitivity:         defaultMaxSensitivity,
		ClusteringPercentGenes: defaultClusteringPercentGenes,
		DiffExpGenes:           defaultDiffExpGenes,
		Clustering:             ClusteringMedium,
		ReadLength:             defaultReadLength,
		Sparsity:               defaultSparsity,
	}
}

// BuildCommand assembles the full argv for the run. Recoverable
// inconsistencies (partial option groups, conflicting exclusive options)
// produce warnings and fall back to defaults rather than failing the run.
func (p Params) BuildCommand() (args []string, warnings []string, err error) {
	for _, v := range []interface{ Validate() error }{p.Mode, p.Verbosity} {
		if err := v.Validate(); err != nil {
			return nil, nil, err
		}
	}

	b := &argBuilder{args: []string{"pipseeker", p.Mode.String()}}

	switch p.Mode {
	case ModeFull:
		if err := p.buildFull(b); err != nil {
			return nil, nil, err
		}
	case ModeCells:
		if err := p.buildCells(b); err != nil {
			return nil, nil, err
		}
	case ModeBuildMapRef:
		if err := p.buildMapRef(b); err != nil {
			return nil, nil, err
		}
	}

	if extra := strings.Fields(p.AdditionalParams); len(extra) > 0 {
		b.args = append(b.args, extra...)
	}

	return b.args, b.warnings, nil
}

func (p Params) buildFull(b *argBuilder) error {
	if p.FastqDir == "" {
		return fmt.Errorf("full mode requires a FASTQ directory: %w", ErrMissingInput)
	}
	if p.ReferencePath == "" {
		return fmt.Errorf("full mode requires a mapping reference: %w", ErrMissingInput)
	}
	if err := p.Chemistry.Validate(); err != nil {
		return err
	}

	out := p.OutputPath
	if out == "" {
		out = DefaultOutputPath
	}

	// The trailing "/." globs every FASTQ in the directory.
	b.add("--fastq", p.FastqDir+"/.")
	b.add("--star-index-path", p.ReferencePath)
	b.add("--chemistry", p.Chemistry.String())
	b.add("--output-path", out)
	p.addUniversal(b)

	if p.DownsampleTo > 0 {
		b.addInt64("--downsample-to", p.DownsampleTo)
		if p.InputReads > 0 {
			b.addInt64("--input-reads", p.InputReads)
		}
	} else if p.InputReads > 0 {
		b.warnf("--input-reads has no effect without --downsample-to; ignoring")
	}

	if err := p.addAnalysis(b); err != nil {
		return err
	}
	p.addBooleans(b)
	p.addSubLibraries(b)
	return nil
}

func (p Params) buildCells(b *argBuilder) error {
	if p.PreviousOut == "" {
		return fmt.Errorf("cells mode requires a previous run output directory: %w", ErrMissingInput)
	}

	b.add("--previous", p.PreviousOut)
	if p.HashDir != "" {
		b.add("--hash", p.HashDir)
	}
	p.addUniversal(b)

	if err := p.addAnalysis(b); err != nil {
		return err
	}
	p.addBooleans(b)
	p.addSubLibraries(b)
	return nil
}

func (p Params) buildMapRef(b *argBuilder) error {
	if p.Fasta == "" || p.GTF == "" {
		return fmt.Errorf("buildmapref mode requires both a FASTA and a GTF: %w", ErrMissingInput)
	}

	out := p.OutputPath
	if out == "" {
		out = DefaultOutputPath
	}

	b.add("--fasta", p.Fasta)
	b.add("--gtf", p.GTF)
	b.add("--output-path", out)
	b.addInt("--read-length", p.ReadLength)
	b.addInt("--sparsity", p.Sparsity)
	p.addUniversal(b)

	switch {
	case p.IncludeTypes != "" && p.ExcludeTypes != "":
		b.warnf("--include-types and --exclude-types are mutually exclusive; ignoring both")
	case p.IncludeTypes != "":
		b.add("--include-types", p.IncludeTypes)
	case p.ExcludeTypes != "":
		b.add("--exclude-types", p.ExcludeTypes)
	}

	if p.BiotypeTag != "" {
		if p.IncludeTypes != "" || p.ExcludeTypes != "" {
			b.add("--biotype-tag", p.BiotypeTag)
		} else {
			b.warnf("--biotype-tag requires --include-types or --exclude-types; ignoring")
		}
	}
	return nil
}

// addUniversal emits the flags common to every subcommand. Thread count 0
// lets the binary use every core of the machine the estimator sized.
func (p Params) addUniversal(b *argBuilder) {
	b.add("--threads", "0")
	b.add("--verbosity", p.Verbosity.String())
	b.args = append(b.args, "--skip-version-check")
}

func (p Params) addAnalysis(b *argBuilder) error {
	if err := p.Clustering.Validate(); err != nil {
		return err
	}

	b.addInt("--random-seed", p.RandomSeed)
	b.addInt("--dpi", p.DPI)
	b.addInt("--min-sensitivity", p.MinSensitivity)
	b.addInt("--max-sensitivity", p.MaxSensitivity)
	b.addInt("--clustering-percent-genes", p.ClusteringPercentGenes)
	b.addInt("--diff-exp-genes", p.DiffExpGenes)
	b.add("--clustering-sensitivity", p.Clustering.String())

	if p.ForceCells > 0 {
		b.addInt("--force-cells", p.ForceCells)
	}
	if p.MinClustersKmeans > 0 {
		b.addInt("--min-clusters-kmeans", p.MinClustersKmeans)
	}
	if p.MaxClustersKmeans > 0 {
		b.addInt("--max-clusters-kmeans", p.MaxClustersKmeans)
	}
	if p.Annotation != "" {
		b.add("--annotation", p.Annotation)
	}
	if p.RunID != "" {
		b.add("--id", p.RunID)
	}
	if p.Description != "" {
		b.add("--description", p.Description)
	}

	set := 0
	for _, on := range []bool{p.PrincipalComponents > 0, p.NearestNeighbors > 0, p.Resolution > 0} {
		if on {
			set++
		}
	}
	switch set {
	case 3:
		b.addInt("--principal-components", p.PrincipalComponents)
		b.addInt("--nearest-neighbors", p.NearestNeighbors)
		b.add("--resolution", strconv.FormatFloat(p.Resolution, 'g', -1, 64))
	case 0:
	default:
		b.warnf("principal components, nearest neighbors, and resolution must be set together; ignoring the partial set")
	}
	return nil
}

func (p Params) addBooleans(b *argBuilder) {
	for _, f := range []struct {
		on   bool
		flag string
	}{
		{p.SaveSVG, "--save-svg"},
		{p.RetainBarcodedFastqs, "--retain-barcoded-fastqs"},
		{p.SortedBAM, "--sorted-bam"},
		{p.RemoveBAM, "--remove-bam"},
		{p.ExonsOnly, "--exons-only"},
		{p.RunBarnyard, "--run-barnyard"},
		{p.UMAPAxes, "--umap-axes"},
	} {
		if f.on {
			b.args = append(b.args, f.flag)
		}
	}
}

func (p Params) addSubLibraries(b *argBuilder) {
	if p.SNT != nil {
		p.SNT.emit(b, "snt", sntDefaultColormap)
	}
	if p.HTO != nil {
		p.HTO.emit(b, "hto", htoDefaultColormap)
		if p.HTO.Colorbar {
			b.args = append(b.args, "--hto-colorbar")
		}
	}
}

func (s *SubLibrary) emit(b *argBuilder, prefix, defaultColormap string) {
	b.add("--"+prefix+"-fastq", s.FastqDir+"/.")
	b.addInt("--"+prefix+"-position", s.Position)
	if s.Tags != "" {
		b.add("--"+prefix+"-tags", s.Tags)
	}
	if s.Annotation != "" {
		b.add("--"+prefix+"-annotation", s.Annotation)
	}

	colormap := s.Colormap
	if colormap == "" {
		colormap = defaultColormap
	}
	b.add("--"+prefix+"-colormap", colormap)

	values := s.MinValue != nil && s.MaxValue != nil
	percents := s.MinPercent != nil && s.MaxPercent != nil
	partial := (s.MinValue != nil) != (s.MaxValue != nil) ||
		(s.MinPercent != nil) != (s.MaxPercent != nil)

	if partial || (values && percents) {
		b.warnf("%s colorbar bounds must be one complete pair (values or percentiles); using percentile defaults", prefix)
		values = false
		percents = false
	}

	switch {
	case values:
		b.add("--"+prefix+"-min-value", formatFloat(*s.MinValue))
		b.add("--"+prefix+"-max-value", formatFloat(*s.MaxValue))
	case percents:
		b.add("--"+prefix+"-min-percent", formatFloat(*s.MinPercent))
		b.add("--"+prefix+"-max-percent", formatFloat(*s.MaxPercent))
	default:
		b.add("--"+prefix+"-min-percent", formatFloat(defaultMinPercent))
		b.add("--"+prefix+"-max-percent", formatFloat(defaultMaxPercent))
	}
}

type argBuilder struct {
	args     []string
	warnings []string
}

func (b *argBuilder) add(flag, value string) {
	b.args = append(b.args, flag, value)
}

func (b *argBuilder) addInt(flag string, v int) {
	b.add(flag, strconv.Itoa(v))
}

func (b *argBuilder) addInt64(flag string, v int64) {
	b.add(flag, strconv.FormatInt(v, 10))
}

func (b *argBuilder) warnf(format string, a ...any) {
	b.warnings = append(b.warnings, fmt.Sprintf(format, a...))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
