// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"errors"
	"fmt"
)

// FailureKind classifies a build-abort failure. Every provisioning failure
// carries exactly one kind; there is no recoverable-error category.
type FailureKind string

const (
	// FailureBaseImageUnavailable means the base image reference could not be
	// resolved or pulled.
	FailureBaseImageUnavailable FailureKind = "BaseImageUnavailable"
	// FailureFetch means an artifact download failed (network or HTTP status).
	FailureFetch FailureKind = "FetchError"
	// FailureExtraction means a downloaded archive was malformed or the
	// requested member was absent.
	FailureExtraction FailureKind = "ExtractionError"
	// FailureInstall means moving an artifact into place or granting its
	// permissions failed.
	FailureInstall FailureKind = "InstallError"
	// FailurePackageInstall means a package manager reported a nonzero exit.
	FailurePackageInstall FailureKind = "PackageInstallError"
	// FailureDirectoryCreate means a fixed directory could not be created.
	FailureDirectoryCreate FailureKind = "DirectoryCreateError"
	// FailureCopySourceMissing means a declared workspace source path does
	// not exist in the build context.
	FailureCopySourceMissing FailureKind = "CopySourceMissing"
	// FailureMissingBuildArgument means a required build-time parameter (the
	// tag) was not supplied.
	FailureMissingBuildArgument FailureKind = "MissingBuildArgument"
	// FailurePathNotFound means the final working directory is absent.
	FailurePathNotFound FailureKind = "PathNotFound"
)

// ErrBuildFailed is the sentinel error wrapped by every Failure so callers
// can use errors.Is for coarse detection.
var ErrBuildFailed = errors.New("build failed")

// Failure is a classified provisioning error. Step is filled in by the
// executor when the failing target method did not set it.
type Failure struct {
	Kind FailureKind
	Step string
	Err  error
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f.Step != "" {
		return fmt.Sprintf("step %s failed (%s): %v", f.Step, f.Kind, f.Err)
	}
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

// Unwrap returns the underlying cause and ErrBuildFailed for errors.Is.
func (f *Failure) Unwrap() []error {
	if f.Err != nil {
		return []error{ErrBuildFailed, f.Err}
	}
	return []error{ErrBuildFailed}
}

// NewFailure wraps err with a failure kind.
func NewFailure(kind FailureKind, err error) *Failure {
	return &Failure{Kind: kind, Err: err}
}

// Failf creates a classified failure from a format string.
func Failf(kind FailureKind, format string, a ...any) *Failure {
	return &Failure{Kind: kind, Err: fmt.Errorf(format, a...)}
}

// KindOf extracts the failure kind from an error chain.
// The second return is false when the error carries no classification.
func KindOf(err error) (FailureKind, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind, true
	}
	return "", false
}
