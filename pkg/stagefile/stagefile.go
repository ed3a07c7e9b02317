// SPDX-License-Identifier: MPL-2.0

package stagefile

import (
	_ "embed"
)

// DefaultFileName is the recipe file looked up in the build context when no
// --recipe flag is given.
const DefaultFileName = "stagefile.cue"

//go:embed default_stagefile.cue
var defaultRecipe []byte

type (
	// Recipe is a decoded stagefile: the complete declarative description of
	// one execution-environment build. Fields map 1:1 to recipe sections; the
	// provisioning pipeline derives its fixed step order from the section
	// order, never from the document.
	Recipe struct {
		// Description is optional markdown describing the environment.
		Description string `json:"description"`

		Base      BaseSpec          `json:"base"`
		Shell     ShellSpec         `json:"shell"`
		Env       map[string]string `json:"env"`
		Artifacts []ArtifactSpec    `json:"artifacts"`
		Apt       PackageSpec       `json:"apt"`
		Pip       PackageSpec       `json:"pip"`
		Dirs      []TargetPath      `json:"dirs"`
		Workspace WorkspaceSpec     `json:"workspace"`

		// TagEnv names the environment variable that receives the build tag
		// supplied per invocation. Empty means the recipe takes no tag.
		TagEnv string `json:"tag_env"`

		WorkDir TargetPath `json:"workdir"`
	}

	// BaseSpec identifies the starting filesystem.
	BaseSpec struct {
		Image ImageRef `json:"image"`
	}

	// ShellSpec carries the strict-mode flags applied before every command
	// step (errexit, nounset, xtrace, pipefail by default).
	ShellSpec struct {
		Flags []string `json:"flags"`
	}

	// ArtifactSpec describes one fetched-and-installed file.
	ArtifactSpec struct {
		URL  ArtifactURL `json:"url"`
		Dest TargetPath  `json:"dest"`

		// Mode is the permission set applied after install; zero means the
		// archive member's own mode (or 0644 for raw downloads).
		Mode uint32 `json:"mode"`

		// Extract names the archive member to install. Empty installs the
		// download verbatim.
		Extract string `json:"extract"`
	}

	// PackageSpec lists packages for one package manager.
	PackageSpec struct {
		Packages []string `json:"packages"`
	}

	// WorkspaceSpec declares the build-context paths materialized into the
	// image. Source entries ending in "/." (or ".") copy directory contents;
	// the hidden-directory entry is copied opaquely, never interpreted.
	WorkspaceSpec struct {
		Sources []string   `json:"sources"`
		Dest    TargetPath `json:"dest"`
	}
)

// Default returns the embedded PIPseeker recipe.
func Default() (*Recipe, error) {
	return Parse(defaultRecipe, "default_stagefile.cue")
}

// DefaultShellFlags is the strict-mode flag set assumed when a recipe omits
// the shell section.
func DefaultShellFlags() []string {
	return []string{"-e", "-u", "-x", "-o", "pipefail"}
}

// EffectiveShellFlags returns the recipe's shell flags, falling back to the
// strict-mode default.
func (r *Recipe) EffectiveShellFlags() []string {
	if len(r.Shell.Flags) == 0 {
		return DefaultShellFlags()
	}
	return r.Shell.Flags
}
