// SPDX-License-Identifier: MPL-2.0

package stagefile

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidImageRef is the sentinel error wrapped by InvalidImageRefError.
	ErrInvalidImageRef = errors.New("invalid image reference")

	// ErrInvalidTargetPath is the sentinel error wrapped by InvalidTargetPathError.
	ErrInvalidTargetPath = errors.New("invalid target path")

	// ErrInvalidArtifactURL is the sentinel error wrapped by InvalidArtifactURLError.
	ErrInvalidArtifactURL = errors.New("invalid artifact URL")
)

type (
	// ImageRef is a container image registry reference. A valid reference is
	// non-empty and contains no whitespace.
	ImageRef string

	// InvalidImageRefError is returned when an ImageRef is empty or malformed.
	InvalidImageRefError struct {
		Value ImageRef
	}

	// TargetPath is an absolute path inside the image under construction.
	TargetPath string

	// InvalidTargetPathError is returned when a TargetPath is not absolute.
	InvalidTargetPathError struct {
		Value TargetPath
	}

	// ArtifactURL is the download location of a fetched artifact.
	ArtifactURL string

	// InvalidArtifactURLError is returned when an ArtifactURL does not use an
	// http(s) scheme.
	InvalidArtifactURLError struct {
		Value ArtifactURL
	}
)

// String returns the string representation of the ImageRef.
func (r ImageRef) String() string { return string(r) }

// Validate returns an error if the ImageRef is empty or contains whitespace.
func (r ImageRef) Validate() error {
	s := string(r)
	if strings.TrimSpace(s) == "" || strings.ContainsAny(s, " \t\n") {
		return &InvalidImageRefError{Value: r}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidImageRefError) Error() string {
	return fmt.Sprintf("invalid image reference %q: must be a non-empty registry reference", e.Value)
}

// Unwrap returns ErrInvalidImageRef for errors.Is() compatibility.
func (e *InvalidImageRefError) Unwrap() error { return ErrInvalidImageRef }

// String returns the string representation of the TargetPath.
func (p TargetPath) String() string { return string(p) }

// Validate returns an error if the TargetPath is not an absolute path.
func (p TargetPath) Validate() error {
	if !strings.HasPrefix(string(p), "/") {
		return &InvalidTargetPathError{Value: p}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidTargetPathError) Error() string {
	return fmt.Sprintf("invalid target path %q: must be absolute", e.Value)
}

// Unwrap returns ErrInvalidTargetPath for errors.Is() compatibility.
func (e *InvalidTargetPathError) Unwrap() error { return ErrInvalidTargetPath }

// String returns the string representation of the ArtifactURL.
func (u ArtifactURL) String() string { return string(u) }

// Validate returns an error if the ArtifactURL does not use http or https.
func (u ArtifactURL) Validate() error {
	s := string(u)
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return &InvalidArtifactURLError{Value: u}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidArtifactURLError) Error() string {
	return fmt.Sprintf("invalid artifact URL %q: must use http or https", e.Value)
}

// Unwrap returns ErrInvalidArtifactURL for errors.Is() compatibility.
func (e *InvalidArtifactURLError) Unwrap() error { return ErrInvalidArtifactURL }

// Validate checks every constraint the CUE schema cannot express on the
// decoded Go side (typed fields that arrive through defaults or tests rather
// than through schema unification).
func (r *Recipe) Validate() error {
	var errs []error

	if err := r.Base.Image.Validate(); err != nil {
		errs = append(errs, err)
	}
	for _, a := range r.Artifacts {
		if err := a.URL.Validate(); err != nil {
			errs = append(errs, err)
		}
		if err := a.Dest.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, d := range r.Dirs {
		if err := d.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(r.Workspace.Sources) > 0 {
		if err := r.Workspace.Dest.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if r.WorkDir != "" {
		if err := r.WorkDir.Validate(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
