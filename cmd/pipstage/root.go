// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"pipstage-cli/internal/config"
	"pipstage-cli/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables verbose output
	verbose bool
	// cfgFile allows specifying a custom config file
	cfgFile string

	// loadedConfig holds the configuration resolved at startup; nil until
	// initRootConfig runs or when loading failed.
	loadedConfig *config.Config

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "pipstage",
		Short: "Provision and size PIPseeker execution environments",
		Long: TitleStyle.Render("pipstage") + SubtitleStyle.Render(" - PIPseeker environment provisioning") + `

pipstage builds the container image (or local root) that single-cell
PIPseeker runs execute in. The environment is described declaratively
in a 'stagefile.cue' recipe: base image, strict shell flags, fetched
artifacts, package installs, workspace contents, and metadata.

Builds run through Docker or Podman, or into a plain directory for
engine-less testing. Every build is a fixed step sequence that stops
at the first failure with a classified cause.

` + SubtitleStyle.Render("Quick Start:") + `
  1. Place a stagefile.cue next to your workflow sources (or rely on
     the built-in PIPseeker recipe)
  2. Build the environment with: pipstage build --tag <image-tag>
  3. Size the machine for a run with: pipstage estimate

` + SubtitleStyle.Render("Examples:") + `
  pipstage plan --explain            Show the build step sequence
  pipstage build --tag env:v1        Build and commit the image
  pipstage estimate --fastqs ./fq    Compute threads, memory, and disk
  pipstage invoke --fastqs ./fq ...  Compose the pipeline command line
  pipstage config show               Show current configuration`,
	}
)

func init() {
	cobra.OnInitialize(initRootConfig)

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/pipstage/config.cue)")

	// Add subcommands
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(estimateCmd)
	rootCmd.AddCommand(invokeCmd)
	rootCmd.AddCommand(configCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	// Use fang.Execute for enhanced Cobra styling
	// Pass version via fang.WithVersion() since fang overrides rootCmd.Version
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(1)
	}
}

// initRootConfig reads in config file and ENV variables if set.
func initRootConfig() {
	cfg, err := config.NewProvider().Load(context.Background(), config.LoadOptions{
		ConfigFilePath: cfgFile,
	})
	if err != nil {
		// Always surface config loading errors to the user
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, verbose))
		printGuidance(os.Stderr, issue.ConfigLoadFailedId)
	}
	loadedConfig = cfg

	// Apply verbose from config if not set via flag
	if cfg != nil && !verbose {
		verbose = cfg.UI.Verbose
	}
}

// activeConfig returns the loaded configuration, falling back to defaults
// when startup loading failed.
func activeConfig() *config.Config {
	if loadedConfig != nil {
		return loadedConfig
	}
	return config.DefaultConfig()
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// GetVerbose returns the verbose flag value
func GetVerbose() bool {
	return verbose
}
