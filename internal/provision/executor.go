// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
)

type (
	// ExecutorOption configures an Executor.
	ExecutorOption func(*Executor)

	// Executor runs a plan's steps against a target, strictly in order,
	// aborting on the first failure.
	Executor struct {
		logger       *log.Logger
		manifestPath string
	}
)

// WithLogger sets the executor's logger.
func WithLogger(logger *log.Logger) ExecutorOption {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithManifestPath makes the executor persist the manifest to path after
// every run, successful or not.
func WithManifestPath(path string) ExecutorOption {
	return func(e *Executor) {
		e.manifestPath = path
	}
}

// NewExecutor creates an executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs every plan step against the target in order. The first step
// failure aborts the run; remaining steps are recorded as skipped and the
// target's intermediate resources are discarded. The manifest is returned in
// both outcomes so the caller can report the terminal step.
func (e *Executor) Execute(ctx context.Context, plan *Plan, target Target) (*Manifest, error) {
	manifest := &Manifest{
		Target:    target.Name(),
		BaseImage: string(plan.Recipe.Base.Image),
		Image:     plan.Args.Tag,
		StartedAt: time.Now().UTC(),
	}

	var runErr error
	for i, step := range plan.Steps {
		if runErr != nil {
			manifest.Steps = append(manifest.Steps, StepRecord{
				Name:   step.Name,
				Status: StepStatusSkipped,
			})
			continue
		}

		e.logger.Info("step started", "step", step.Name, "detail", step.Detail)
		started := time.Now()

		err := step.Run(ctx, target)
		elapsed := time.Since(started)

		if err != nil {
			failure := classify(err, step)
			manifest.Steps = append(manifest.Steps, StepRecord{
				Name:       step.Name,
				Status:     StepStatusFailed,
				Kind:       string(failure.Kind),
				Error:      failure.Err.Error(),
				DurationMS: elapsed.Milliseconds(),
			})
			e.logger.Error("step failed, aborting build",
				"step", step.Name, "kind", failure.Kind, "err", failure.Err,
				"completed", i, "total", len(plan.Steps))
			runErr = failure
			continue
		}

		manifest.Steps = append(manifest.Steps, StepRecord{
			Name:       step.Name,
			Status:     StepStatusOK,
			DurationMS: elapsed.Milliseconds(),
		})
		e.logger.Debug("step completed", "step", step.Name, "duration", elapsed)
	}

	if runErr == nil {
		if err := target.Finalize(ctx); err != nil {
			failure := classify(err, Step{Name: "finalize", Kind: FailureInstall})
			e.logger.Error("finalize failed", "kind", failure.Kind, "err", failure.Err)
			runErr = failure
		}
	}

	if err := target.Cleanup(ctx); err != nil {
		e.logger.Warn("cleanup failed", "err", err)
	}

	manifest.FinishedAt = time.Now().UTC()
	manifest.Succeeded = runErr == nil

	if reporter, ok := target.(EnvReporter); ok {
		manifest.Env = reporter.Environment()
	}
	if reporter, ok := target.(ChecksumReporter); ok {
		manifest.Checksums = reporter.ArtifactChecksums()
	}

	if e.manifestPath != "" {
		if err := manifest.WriteFile(e.manifestPath); err != nil {
			e.logger.Warn("failed to persist manifest", "path", e.manifestPath, "err", err)
		}
	}

	return manifest, runErr
}

// classify attaches the step name and the step's default kind to an error
// that does not already carry a finer classification.
func classify(err error, step Step) *Failure {
	var failure *Failure
	if errors.As(err, &failure) {
		if failure.Step == "" {
			failure.Step = step.Name
		}
		return failure
	}
	return &Failure{Kind: step.Kind, Step: step.Name, Err: err}
}
