// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"pipstage-cli/pkg/stagefile"
)

const (
	// DefaultDebianFrontend suppresses installer interactivity prompts
	// during system package installation.
	DefaultDebianFrontend = "noninteractive"

	// StepBase through StepWorkDir name the fixed step sequence. Artifact
	// and mkdir steps derive their names from these prefixes.
	StepBase      = "base"
	StepEnv       = "env"
	StepArtifact  = "artifact"
	StepApt       = "apt"
	StepPip       = "pip"
	StepMkdir     = "mkdir"
	StepWorkspace = "workspace"
	StepTag       = "tag"
	StepWorkDir   = "workdir"
)

type (
	// BuildArgs are the per-invocation parameters supplied from outside the
	// recipe.
	BuildArgs struct {
		// Tag is the image tag recorded into the recipe's tag_env variable
		// and used as the committed image tag. Required when the recipe
		// declares a tag_env.
		Tag string

		// ContextDir is the build context the workspace sources resolve
		// against.
		ContextDir string

		// DebianFrontend overrides the installer interactivity mode.
		// Empty means DefaultDebianFrontend.
		DebianFrontend string
	}

	// Step is one provisioning operation. Kind is the classification applied
	// when Run fails without a finer classification of its own.
	Step struct {
		Name   string
		Detail string
		Kind   FailureKind
		Run    func(ctx context.Context, t Target) error
	}

	// Plan is the ordered, compiled step sequence for one recipe.
	Plan struct {
		Recipe *stagefile.Recipe
		Args   BuildArgs
		Steps  []Step
	}
)

// Compile expands a recipe into its fixed step sequence. Compilation is
// pure: no target is touched, so a plan can be rendered or inspected without
// an engine present.
func Compile(recipe *stagefile.Recipe, args BuildArgs) (*Plan, error) {
	if recipe == nil {
		return nil, fmt.Errorf("recipe is nil")
	}
	if err := recipe.Validate(); err != nil {
		return nil, fmt.Errorf("invalid recipe: %w", err)
	}
	if args.DebianFrontend == "" {
		args.DebianFrontend = DefaultDebianFrontend
	}

	p := &Plan{Recipe: recipe, Args: args}

	p.add(Step{
		Name:   StepBase,
		Detail: fmt.Sprintf("establish base filesystem from %s", recipe.Base.Image),
		Kind:   FailureBaseImageUnavailable,
		Run: func(ctx context.Context, t Target) error {
			return t.Prepare(ctx)
		},
	})

	if len(recipe.Env) > 0 {
		env := recipe.Env
		p.add(Step{
			Name:   StepEnv,
			Detail: fmt.Sprintf("set %d environment entries (%s)", len(env), strings.Join(sortedEnvKeys(env), ", ")),
			Kind:   FailureInstall,
			Run: func(ctx context.Context, t Target) error {
				return t.ApplyEnv(ctx, env)
			},
		})
	}

	for _, artifact := range recipe.Artifacts {
		p.add(Step{
			Name:   StepArtifact + ":" + string(artifact.Dest),
			Detail: fmt.Sprintf("fetch %s and install at %s", artifact.URL, artifact.Dest),
			Kind:   FailureInstall,
			Run: func(ctx context.Context, t Target) error {
				return t.InstallArtifact(ctx, artifact)
			},
		})
	}

	if len(recipe.Apt.Packages) > 0 {
		pkgs := recipe.Apt.Packages
		frontend := args.DebianFrontend
		p.add(Step{
			Name:   StepApt,
			Detail: "install system packages: " + strings.Join(pkgs, " "),
			Kind:   FailurePackageInstall,
			Run: func(ctx context.Context, t Target) error {
				return t.RunScript(ctx, StepApt, AptScript(pkgs), map[string]string{
					"DEBIAN_FRONTEND": frontend,
				})
			},
		})
	}

	if len(recipe.Pip.Packages) > 0 {
		pkgs := recipe.Pip.Packages
		p.add(Step{
			Name:   StepPip,
			Detail: "install sdk packages: " + strings.Join(pkgs, " "),
			Kind:   FailurePackageInstall,
			Run: func(ctx context.Context, t Target) error {
				return t.RunScript(ctx, StepPip, PipScript(pkgs), nil)
			},
		})
	}

	for _, dir := range recipe.Dirs {
		dir := string(dir)
		p.add(Step{
			Name:   StepMkdir + ":" + dir,
			Detail: "create directory " + dir,
			Kind:   FailureDirectoryCreate,
			Run: func(ctx context.Context, t Target) error {
				return t.MakeDir(ctx, dir)
			},
		})
	}

	if len(recipe.Workspace.Sources) > 0 {
		sources := resolveSources(args.ContextDir, recipe.Workspace.Sources)
		dest := string(recipe.Workspace.Dest)
		p.add(Step{
			Name:   StepWorkspace,
			Detail: fmt.Sprintf("copy %s into %s", strings.Join(recipe.Workspace.Sources, ", "), dest),
			Kind:   FailureCopySourceMissing,
			Run: func(ctx context.Context, t Target) error {
				return t.CopyWorkspace(ctx, sources, dest)
			},
		})
	}

	if recipe.TagEnv != "" {
		tagEnv := recipe.TagEnv
		tag := args.Tag
		p.add(Step{
			Name:   StepTag,
			Detail: fmt.Sprintf("record build tag into %s", tagEnv),
			Kind:   FailureMissingBuildArgument,
			Run: func(ctx context.Context, t Target) error {
				if tag == "" {
					return Failf(FailureMissingBuildArgument,
						"build argument 'tag' is required to populate %s", tagEnv)
				}
				return t.ApplyEnv(ctx, map[string]string{tagEnv: tag})
			},
		})
	}

	if recipe.WorkDir != "" {
		workdir := string(recipe.WorkDir)
		p.add(Step{
			Name:   StepWorkDir,
			Detail: "set final working directory to " + workdir,
			Kind:   FailurePathNotFound,
			Run: func(ctx context.Context, t Target) error {
				return t.SetWorkDir(ctx, workdir)
			},
		})
	}

	return p, nil
}

func (p *Plan) add(s Step) {
	p.Steps = append(p.Steps, s)
}

// AptScript renders the system package installation script.
func AptScript(packages []string) string {
	return "apt-get update\napt-get install -y " + strings.Join(packages, " ")
}

// PipScript renders the SDK package installation script. Version pins are
// part of the package strings (e.g. "latch==2.47.8").
func PipScript(packages []string) string {
	return "pip install " + strings.Join(packages, " ")
}

// resolveSources joins workspace sources against the build context,
// normalizing the Docker-style "dir/." contents suffix away. Every source
// denotes a tree whose contents land in the destination.
func resolveSources(contextDir string, sources []string) []string {
	resolved := make([]string, 0, len(sources))
	for _, src := range sources {
		src = strings.TrimSuffix(src, "/.")
		if src == "" || src == "." {
			resolved = append(resolved, filepath.Clean(contextDir))
			continue
		}
		resolved = append(resolved, filepath.Join(contextDir, src))
	}
	return resolved
}

// Describe renders the plan as markdown for terminal display.
func (p *Plan) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Provisioning plan\n\n")
	if p.Recipe.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", p.Recipe.Description)
	}
	fmt.Fprintf(&b, "Base image: `%s`\n\n", p.Recipe.Base.Image)
	fmt.Fprintf(&b, "Strict shell flags: `%s`\n\n", strings.Join(p.Recipe.EffectiveShellFlags(), " "))
	for i, s := range p.Steps {
		fmt.Fprintf(&b, "%d. **%s**: %s\n", i+1, s.Name, s.Detail)
	}
	return b.String()
}

func sortedEnvKeys(env map[string]string) []string {
	return slices.Sorted(maps.Keys(env))
}
