// SPDX-License-Identifier: MPL-2.0

package pipseeker

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

const (
	// ModeFull runs barcoding, mapping, and analysis end to end.
	ModeFull Mode = "full"
	// ModeCells re-runs cell calling and analysis on a previous output.
	ModeCells Mode = "cells"
	// ModeBuildMapRef builds a custom mapping reference from FASTA+GTF.
	ModeBuildMapRef Mode = "buildmapref"

	// ChemistryV3 through ChemistryV5 are the supported kit chemistries.
	// The v5 kit is spelled "V" on the pipeline command line.
	ChemistryV3 Chemistry = "v3"
	ChemistryV4 Chemistry = "v4"
	ChemistryV5 Chemistry = "V"

	// VerbosityQuiet through VerbosityDebug control pipeline log volume.
	VerbosityQuiet  Verbosity = "0"
	VerbosityNormal Verbosity = "1"
	VerbosityDebug  Verbosity = "2"

	// ClusteringLow through ClusteringHigh tune clustering sensitivity.
	ClusteringLow    ClusteringSensitivity = "low"
	ClusteringMedium ClusteringSensitivity = "medium"
	ClusteringHigh   ClusteringSensitivity = "high"

	// GenomeHuman through GenomeArabidopsis are the prebuilt mapping
	// references hosted off-platform.
	GenomeHuman       GenomeType = "human"
	GenomeMouse       GenomeType = "mouse"
	GenomeHumanMouse  GenomeType = "human_mouse"
	GenomeDrosophila  GenomeType = "drosophila"
	GenomeZebrafish   GenomeType = "zebrafish"
	GenomeArabidopsis GenomeType = "arabidopsis_thaliana"
)

var (
	// ErrInvalidMode is the sentinel error wrapped by InvalidModeError.
	ErrInvalidMode = errors.New("invalid run mode")

	// ErrInvalidChemistry is the sentinel error wrapped by InvalidChemistryError.
	ErrInvalidChemistry = errors.New("invalid chemistry")

	// ErrInvalidVerbosity is the sentinel error wrapped by InvalidVerbosityError.
	ErrInvalidVerbosity = errors.New("invalid verbosity")

	// ErrInvalidClusteringSensitivity is the sentinel error wrapped by
	// InvalidClusteringSensitivityError.
	ErrInvalidClusteringSensitivity = errors.New("invalid clustering sensitivity")

	// ErrUnknownGenome is the sentinel error wrapped by UnknownGenomeError.
	ErrUnknownGenome = errors.New("unknown prebuilt genome")
)

// prebuiltGenomeURLs maps each prebuilt genome to its hosted archive.
var prebuiltGenomeURLs = map[GenomeType]string{
	GenomeHuman:       "s3://latch-public/test-data/18440/pipseeker-gex-reference-GRCh38-2022.04.tar.gz",
	GenomeMouse:       "s3://latch-public/test-data/18440/pipseeker-gex-reference-GRCm39-2022.04.tar.gz",
	GenomeHumanMouse:  "s3://latch-public/test-data/18440/pipseeker-gex-reference-GRCh38-and-GRCm39-2022.04.tar.gz",
	GenomeDrosophila:  "s3://latch-public/test-data/18440/pipseeker-gex-reference-dm-flybase-r6-v47-2022.09.tar.gz",
	GenomeZebrafish:   "s3://latch-public/test-data/18440/zebrafish_danio_rerio_GRCz11_r110_2023.08.tar.gz",
	GenomeArabidopsis: "s3://latch-public/test-data/18440/pipseeker-gex-reference-arabidopsis-thaliana-TAIR10.55-protein-coding-2023.02.tar.gz",
}

type (
	// Mode selects the pipeline subcommand.
	Mode string

	// InvalidModeError is returned when a Mode is not a recognized subcommand.
	InvalidModeError struct {
		Value Mode
	}

	// Chemistry identifies the kit chemistry of the input FASTQs.
	Chemistry string

	// InvalidChemistryError is returned when a Chemistry is not a supported kit.
	InvalidChemistryError struct {
		Value Chemistry
	}

	// Verbosity controls pipeline log volume.
	Verbosity string

	// InvalidVerbosityError is returned when a Verbosity is out of range.
	InvalidVerbosityError struct {
		Value Verbosity
	}

	// ClusteringSensitivity tunes the clustering stage.
	ClusteringSensitivity string

	// InvalidClusteringSensitivityError is returned when a
	// ClusteringSensitivity is not a recognized level.
	InvalidClusteringSensitivityError struct {
		Value ClusteringSensitivity
	}

	// GenomeType identifies a prebuilt mapping reference.
	GenomeType string

	// UnknownGenomeError is returned when a GenomeType has no hosted archive.
	UnknownGenomeError struct {
		Value GenomeType
	}
)

// String returns the string representation of the Mode.
func (m Mode) String() string { return string(m) }

// Validate returns an error if the Mode is not one of the defined subcommands.
func (m Mode) Validate() error {
	switch m {
	case ModeFull, ModeCells, ModeBuildMapRef:
		return nil
	default:
		return &InvalidModeError{Value: m}
	}
}

// Error implements the error interface.
func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("invalid run mode %q (valid: full, cells, buildmapref)", e.Value)
}

// Unwrap returns ErrInvalidMode for errors.Is() compatibility.
func (e *InvalidModeError) Unwrap() error { return ErrInvalidMode }

// String returns the string representation of the Chemistry.
func (c Chemistry) String() string { return string(c) }

// Validate returns an error if the Chemistry is not a supported kit.
func (c Chemistry) Validate() error {
	switch c {
	case ChemistryV3, ChemistryV4, ChemistryV5:
		return nil
	default:
		return &InvalidChemistryError{Value: c}
	}
}

// Error implements the error interface.
func (e *InvalidChemistryError) Error() string {
	return fmt.Sprintf("invalid chemistry %q (valid: v3, v4, V)", e.Value)
}

// Unwrap returns ErrInvalidChemistry for errors.Is() compatibility.
func (e *InvalidChemistryError) Unwrap() error { return ErrInvalidChemistry }

// String returns the string representation of the Verbosity.
func (v Verbosity) String() string { return string(v) }

// Validate returns an error if the Verbosity is out of range.
func (v Verbosity) Validate() error {
	switch v {
	case VerbosityQuiet, VerbosityNormal, VerbosityDebug:
		return nil
	default:
		return &InvalidVerbosityError{Value: v}
	}
}

// Error implements the error interface.
func (e *InvalidVerbosityError) Error() string {
	return fmt.Sprintf("invalid verbosity %q (valid: 0, 1, 2)", e.Value)
}

// Unwrap returns ErrInvalidVerbosity for errors.Is() compatibility.
func (e *InvalidVerbosityError) Unwrap() error { return ErrInvalidVerbosity }

// String returns the string representation of the ClusteringSensitivity.
func (s ClusteringSensitivity) String() string { return string(s) }

// Validate returns an error if the ClusteringSensitivity is not a recognized level.
func (s ClusteringSensitivity) Validate() error {
	switch s {
	case ClusteringLow, ClusteringMedium, ClusteringHigh:
		return nil
	default:
		return &InvalidClusteringSensitivityError{Value: s}
	}
}

// Error implements the error interface.
func (e *InvalidClusteringSensitivityError) Error() string {
	return fmt.Sprintf("invalid clustering sensitivity %q (valid: low, medium, high)", e.Value)
}

// Unwrap returns ErrInvalidClusteringSensitivity for errors.Is() compatibility.
func (e *InvalidClusteringSensitivityError) Unwrap() error {
	return ErrInvalidClusteringSensitivity
}

// String returns the string representation of the GenomeType.
func (g GenomeType) String() string { return string(g) }

// ArchiveURL returns the hosted archive location for a prebuilt genome.
func (g GenomeType) ArchiveURL() (string, error) {
	url, ok := prebuiltGenomeURLs[g]
	if !ok {
		return "", &UnknownGenomeError{Value: g}
	}
	return url, nil
}

// Validate returns an error if the GenomeType has no hosted archive.
func (g GenomeType) Validate() error {
	if _, ok := prebuiltGenomeURLs[g]; !ok {
		return &UnknownGenomeError{Value: g}
	}
	return nil
}

// Error implements the error interface.
func (e *UnknownGenomeError) Error() string {
	return fmt.Sprintf("unknown prebuilt genome %q", e.Value)
}

// Unwrap returns ErrUnknownGenome for errors.Is() compatibility.
func (e *UnknownGenomeError) Unwrap() error { return ErrUnknownGenome }

// Genomes returns the prebuilt genome identifiers in sorted order.
func Genomes() []GenomeType {
	return slices.Sorted(maps.Keys(prebuiltGenomeURLs))
}
