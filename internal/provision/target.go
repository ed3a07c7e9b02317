// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"

	"pipstage-cli/pkg/stagefile"
)

type (
	// Target is the surface a plan executes against. EngineTarget provisions
	// a work container and commits it; LocalTarget materializes the same
	// steps into a host staging directory.
	//
	// Methods return classified *Failure errors where the classification is
	// finer than the step default (artifact installation distinguishes fetch,
	// extraction, and install failures).
	Target interface {
		// Name identifies the target for logs and the manifest.
		Name() string
		// Prepare establishes the base filesystem (pull + start a work
		// container, or create the staging root).
		Prepare(ctx context.Context) error
		// ApplyEnv merges environment entries. Later assignment overwrites
		// earlier; the merged set applies to every subsequent command step
		// and to the finished environment.
		ApplyEnv(ctx context.Context, env map[string]string) error
		// InstallArtifact downloads, optionally extracts, and installs one
		// artifact at its destination with its permission set.
		InstallArtifact(ctx context.Context, artifact stagefile.ArtifactSpec) error
		// RunScript executes a command script under the strict shell flags.
		RunScript(ctx context.Context, name, script string, extraEnv map[string]string) error
		// MakeDir creates a directory (parents included).
		MakeDir(ctx context.Context, path string) error
		// CopyWorkspace materializes host source trees into dest. Every
		// source directory's contents are copied; a missing source aborts.
		CopyWorkspace(ctx context.Context, sources []string, dest string) error
		// SetWorkDir fixes the default working directory. The path must
		// already exist.
		SetWorkDir(ctx context.Context, path string) error
		// Finalize seals the result (commit the container as a tagged image,
		// or verify the staging tree).
		Finalize(ctx context.Context) error
		// Cleanup discards intermediate resources. Safe to call after
		// failure or success.
		Cleanup(ctx context.Context) error
	}

	// ChecksumReporter is implemented by targets that track artifact
	// checksums; the executor copies them into the manifest.
	ChecksumReporter interface {
		ArtifactChecksums() map[string]string
	}

	// EnvReporter is implemented by targets that expose their merged
	// environment for the manifest.
	EnvReporter interface {
		Environment() map[string]string
	}
)
