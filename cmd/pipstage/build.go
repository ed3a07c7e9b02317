// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"pipstage-cli/internal/config"
	"pipstage-cli/internal/engine"
	"pipstage-cli/internal/fetch"
	"pipstage-cli/internal/issue"
	"pipstage-cli/internal/provision"
	"pipstage-cli/pkg/stagefile"
)

var (
	buildTag      string
	buildRecipe   string
	buildContext  string
	buildTarget   string
	buildRoot     string
	buildManifest string

	buildCmd = &cobra.Command{
		Use:   "build",
		Short: "Build the execution environment from a stagefile",
		Long: `Build the execution environment described by the stagefile recipe.

The build runs the fixed step sequence (base, env, artifacts, apt, pip,
dirs, workspace, tag, workdir) against the selected target and stops at
the first failing step with a classified cause. Container targets commit
the result as a tagged image; the local target materializes it under a
root directory.`,
		RunE: runBuild,
	}
)

func init() {
	buildCmd.Flags().StringVarP(&buildTag, "tag", "t", "", "image tag recorded in the tag environment variable")
	buildCmd.Flags().StringVar(&buildRecipe, "recipe", "", "stagefile path (default: stagefile.cue in the context, else the built-in recipe)")
	buildCmd.Flags().StringVarP(&buildContext, "context", "c", ".", "build context directory")
	buildCmd.Flags().StringVar(&buildTarget, "target", "", "build target: auto, docker, podman, or local (default from config)")
	buildCmd.Flags().StringVar(&buildRoot, "root", "", "root directory for the local target")
	buildCmd.Flags().StringVar(&buildManifest, "manifest", "", "write the build manifest to this path (default from config)")
}

func runBuild(cmd *cobra.Command, _ []string) error {
	cfg := activeConfig()

	recipe, err := loadRecipe(buildRecipe, buildContext)
	if err != nil {
		printGuidance(cmd.ErrOrStderr(), recipeIssueId(err))
		return err
	}

	plan, err := provision.Compile(recipe, provision.BuildArgs{
		Tag:        buildTag,
		ContextDir: buildContext,
	})
	if err != nil {
		return fmt.Errorf("compiling build plan: %w", err)
	}

	logger := newBuildLogger()
	target, err := resolveTarget(cfg, recipe, logger, cmd.OutOrStdout())
	if err != nil {
		var notAvailable *engine.ErrEngineNotAvailable
		if errors.As(err, &notAvailable) {
			printGuidance(cmd.ErrOrStderr(), issue.EngineNotFoundId)
		}
		return err
	}

	manifestPath := buildManifest
	if manifestPath == "" {
		manifestPath = string(cfg.Build.ManifestPath)
	}

	executor := provision.NewExecutor(
		provision.WithLogger(logger),
		provision.WithManifestPath(manifestPath),
	)

	manifest, err := executor.Execute(cmd.Context(), plan, target)
	if err != nil {
		if manifest != nil {
			if failed := manifest.FailedStep(); failed != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), ErrorStyle.Render("build failed")+
					fmt.Sprintf(" at step %s (%s)", failed.Name, failed.Kind))
			}
		}
		if kind, ok := provision.KindOf(err); ok && kind == provision.FailureMissingBuildArgument {
			printGuidance(cmd.ErrOrStderr(), issue.MissingBuildTagId)
		}
		return &ExitError{Code: 1, Err: err}
	}

	fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("build succeeded")+
		fmt.Sprintf(" on %s (%d steps)", manifest.Target, len(manifest.Steps)))
	if buildTag != "" {
		fmt.Fprintln(cmd.OutOrStdout(), SubtitleStyle.Render("image: ")+CmdStyle.Render(buildTag))
	}
	return nil
}

// loadRecipe resolves the stagefile: an explicit path wins, then a
// stagefile.cue in the context directory, then the built-in recipe.
func loadRecipe(recipePath, contextDir string) (*stagefile.Recipe, error) {
	if recipePath != "" {
		return stagefile.ParseFile(recipePath)
	}

	contextRecipe := filepath.Join(contextDir, stagefile.DefaultFileName)
	if _, err := os.Stat(contextRecipe); err == nil {
		return stagefile.ParseFile(contextRecipe)
	}

	return stagefile.Default()
}

// resolveTarget builds the provisioning target from the --target flag,
// falling back to the configured default.
func resolveTarget(cfg *config.Config, recipe *stagefile.Recipe, logger *log.Logger, output io.Writer) (provision.Target, error) {
	selected := config.BuildTarget(buildTarget)
	if buildTarget == "" {
		selected = cfg.DefaultTarget
	}
	if valid, errs := selected.IsValid(); !valid {
		return nil, errs[0]
	}

	flags := recipe.EffectiveShellFlags()
	client := newFetchClient(cfg)

	if selected == config.TargetLocal {
		root := buildRoot
		if root == "" {
			root = filepath.Join(buildContext, "pipstage-root")
		}
		return provision.NewLocalTarget(root, flags,
			provision.WithLocalLogger(logger),
			provision.WithLocalOutput(output),
			provision.WithLocalFetchClient(client),
		), nil
	}

	var (
		eng engine.Engine
		err error
	)
	switch selected {
	case config.TargetDocker:
		eng, err = engine.NewEngine(engine.EngineTypeDocker)
	case config.TargetPodman:
		eng, err = engine.NewEngine(engine.EngineTypePodman)
	default: // auto
		eng, err = engine.AutoDetectEngine()
	}
	if err != nil {
		return nil, err
	}

	return provision.NewEngineTarget(eng, string(recipe.Base.Image), buildTag, flags,
		provision.WithEngineLogger(logger),
		provision.WithEngineOutput(output),
		provision.WithEngineFetchClient(client),
		provision.WithEnginePullAttempts(cfg.Build.PullRetries),
	), nil
}

// newFetchClient builds the artifact download client targets share, pointing
// it at the configured cache directory so repeated builds reuse downloads.
// An empty cache_dir falls back to the platform cache location; if even that
// is unavailable the client simply runs uncached.
func newFetchClient(cfg *config.Config) *fetch.Client {
	cacheDir := cfg.Build.CacheDir.String()
	if cacheDir == "" {
		if dir, err := config.CacheDir(); err == nil {
			cacheDir = dir
		}
	}
	return fetch.NewClient(fetch.WithCacheDir(cacheDir))
}

// newBuildLogger creates the structured logger used during builds. Verbose
// mode lowers the level to debug so per-step detail shows.
func newBuildLogger() *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}
