// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"pipstage-cli/internal/engine"
	"pipstage-cli/internal/fetch"
	"pipstage-cli/internal/shell"
	"pipstage-cli/pkg/stagefile"
)

const (
	pullMaxAttempts = 3
	pullBaseBackoff = 2 * time.Second
)

// Compile-time interface checks
var (
	_ Target           = (*EngineTarget)(nil)
	_ ChecksumReporter = (*EngineTarget)(nil)
	_ EnvReporter      = (*EngineTarget)(nil)
)

type (
	// EngineTargetOption configures an EngineTarget.
	EngineTargetOption func(*EngineTarget)

	// EngineTarget provisions a work container through a container engine
	// and commits it as a tagged image. The container runs a long sleep so
	// it stays up between exec steps; metadata (ENV entries and WORKDIR)
	// is baked in at commit time via --change directives.
	EngineTarget struct {
		eng        engine.Engine
		baseImage  string
		tag        string
		shellFlags []string
		client     *fetch.Client
		logger     *log.Logger
		output     io.Writer

		pullAttempts int
		pullBackoff  time.Duration

		containerID string
		env         map[string]string
		checksums   map[string]string
		workDir     string
		tempDirs    []string
	}
)

// WithEngineLogger sets the target's logger.
func WithEngineLogger(logger *log.Logger) EngineTargetOption {
	return func(t *EngineTarget) {
		t.logger = logger
	}
}

// WithEngineOutput streams engine and script output to w.
func WithEngineOutput(w io.Writer) EngineTargetOption {
	return func(t *EngineTarget) {
		t.output = w
	}
}

// WithEngineFetchClient overrides the download client.
func WithEngineFetchClient(c *fetch.Client) EngineTargetOption {
	return func(t *EngineTarget) {
		t.client = c
	}
}

// WithEnginePullAttempts sets how many times the base image pull is tried
// before the build fails. Non-positive values keep the default.
func WithEnginePullAttempts(attempts int) EngineTargetOption {
	return func(t *EngineTarget) {
		if attempts > 0 {
			t.pullAttempts = attempts
		}
	}
}

// NewEngineTarget creates a container-backed target. tag is the image tag
// the committed result receives.
func NewEngineTarget(eng engine.Engine, baseImage, tag string, shellFlags []string, opts ...EngineTargetOption) *EngineTarget {
	t := &EngineTarget{
		eng:        eng,
		baseImage:  baseImage,
		tag:        tag,
		shellFlags: slices.Clone(shellFlags),
		client:     fetch.NewClient(),
		logger:     log.Default(),
		env:        make(map[string]string),
		checksums:  make(map[string]string),

		pullAttempts: pullMaxAttempts,
		pullBackoff:  pullBaseBackoff,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name identifies the target by its engine.
func (t *EngineTarget) Name() string { return t.eng.Name() }

// ContainerID returns the work container's ID once Prepare has run.
func (t *EngineTarget) ContainerID() string { return t.containerID }

// Environment returns the merged environment set.
func (t *EngineTarget) Environment() map[string]string {
	return maps.Clone(t.env)
}

// ArtifactChecksums returns SHA-256 sums of installed artifacts keyed by
// destination path.
func (t *EngineTarget) ArtifactChecksums() map[string]string {
	return maps.Clone(t.checksums)
}

// Prepare pulls the base image and starts the work container. The pull is
// retried with backoff since registry hiccups are the most common transient
// failure; everything after it runs once.
func (t *EngineTarget) Prepare(ctx context.Context) error {
	pullErr := engine.RetryWithBackoff(ctx, t.pullAttempts, t.pullBackoff, func(attempt int) (bool, error) {
		if attempt > 0 {
			t.logger.Warn("retrying base image pull", "image", t.baseImage, "attempt", attempt+1)
		}
		if err := t.eng.Pull(ctx, t.baseImage, t.output); err != nil {
			return true, err
		}
		return false, nil
	})
	if pullErr != nil {
		return NewFailure(FailureBaseImageUnavailable, pullErr)
	}

	id, err := t.eng.Create(ctx, engine.CreateOptions{
		Image:   t.baseImage,
		Command: []string{"sleep", "infinity"},
	})
	if err != nil {
		return NewFailure(FailureBaseImageUnavailable, err)
	}
	t.containerID = id

	if err := t.eng.Start(ctx, id); err != nil {
		return NewFailure(FailureBaseImageUnavailable, err)
	}

	t.logger.Debug("work container started", "container", shortID(id), "image", t.baseImage)
	return nil
}

// ApplyEnv merges env entries; later assignment overwrites earlier. Entries
// apply to subsequent exec steps and become ENV directives at commit.
func (t *EngineTarget) ApplyEnv(_ context.Context, env map[string]string) error {
	maps.Copy(t.env, env)
	return nil
}

// InstallArtifact downloads and extracts on the host, then copies the result
// into the container and applies its permission set there.
func (t *EngineTarget) InstallArtifact(ctx context.Context, artifact stagefile.ArtifactSpec) error {
	tempDir, err := os.MkdirTemp("", "pipstage-engine-*")
	if err != nil {
		return Failf(FailureFetch, "creating download dir: %v", err)
	}
	t.tempDirs = append(t.tempDirs, tempDir)

	t.logger.Debug("downloading artifact", "url", artifact.URL)
	downloaded, _, err := t.client.Download(ctx, string(artifact.URL), tempDir)
	if err != nil {
		return NewFailure(FailureFetch, err)
	}

	staged := downloaded
	if artifact.Extract != "" {
		staged, err = fetch.ExtractTarGz(downloaded, artifact.Extract, tempDir)
		if err != nil {
			return NewFailure(FailureExtraction, err)
		}
	}

	sum, err := fetch.FileSHA256(staged)
	if err != nil {
		return NewFailure(FailureInstall, err)
	}

	dest := string(artifact.Dest)
	if err := t.eng.CopyInto(ctx, t.containerID, staged, dest); err != nil {
		return NewFailure(FailureInstall, err)
	}

	mode := artifact.Mode
	if mode == 0 {
		mode = 0o644
	}
	chmod := fmt.Sprintf("chmod %o %s", mode, dest)
	if err := t.execChecked(ctx, "chmod", []string{"sh", "-c", chmod}); err != nil {
		return NewFailure(FailureInstall, err)
	}

	t.checksums[dest] = sum
	t.logger.Debug("artifact installed", "dest", dest, "sha256", sum[:12])
	return nil
}

// RunScript executes a command script inside the container under the strict
// shell flags.
func (t *EngineTarget) RunScript(ctx context.Context, name, script string, extraEnv map[string]string) error {
	env := maps.Clone(t.env)
	maps.Copy(env, extraEnv)

	composed := shell.Compose(t.shellFlags, script)
	result, err := t.eng.Exec(ctx, t.containerID, []string{"/bin/sh", "-c", composed}, engine.ExecOptions{
		Env:    env,
		Stdout: t.output,
		Stderr: t.output,
	})
	if err != nil {
		return err
	}
	if result.Error != nil {
		return result.Error
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("script %s exited with status %d", name, result.ExitCode)
	}
	return nil
}

// MakeDir creates a directory in the container, parents included.
func (t *EngineTarget) MakeDir(ctx context.Context, path string) error {
	if err := t.execChecked(ctx, "mkdir", []string{"mkdir", "-p", path}); err != nil {
		return Failf(FailureDirectoryCreate, "creating %s: %v", path, err)
	}
	return nil
}

// CopyWorkspace copies the contents of every source tree into dest inside
// the container. A missing source aborts before anything is copied.
func (t *EngineTarget) CopyWorkspace(ctx context.Context, sources []string, dest string) error {
	for _, src := range sources {
		if _, err := os.Stat(src); err != nil {
			return Failf(FailureCopySourceMissing, "source path %s: %v", src, err)
		}
	}

	if err := t.execChecked(ctx, "mkdir", []string{"mkdir", "-p", dest}); err != nil {
		return fmt.Errorf("creating destination %s: %w", dest, err)
	}

	for _, src := range sources {
		// The "/." suffix makes the engine copy directory contents rather
		// than the directory itself, matching COPY semantics.
		if err := t.eng.CopyInto(ctx, t.containerID, src+"/.", dest); err != nil {
			return fmt.Errorf("copying %s: %w", src, err)
		}
	}
	return nil
}

// SetWorkDir records the default working directory for the committed image.
// The path must already exist in the container.
func (t *EngineTarget) SetWorkDir(ctx context.Context, path string) error {
	if err := t.execChecked(ctx, "workdir", []string{"test", "-d", path}); err != nil {
		return Failf(FailurePathNotFound, "working directory %s does not exist in container", path)
	}
	t.workDir = path
	return nil
}

// Finalize commits the work container as the tagged image, baking the merged
// environment and working directory in as metadata changes.
func (t *EngineTarget) Finalize(ctx context.Context) error {
	changes := make([]string, 0, len(t.env)+1)
	for _, k := range slices.Sorted(maps.Keys(t.env)) {
		changes = append(changes, fmt.Sprintf("ENV %s=%s", k, t.env[k]))
	}
	if t.workDir != "" {
		changes = append(changes, "WORKDIR "+t.workDir)
	}

	if err := t.eng.Commit(ctx, t.containerID, engine.CommitOptions{
		Tag:     t.tag,
		Changes: changes,
	}); err != nil {
		return fmt.Errorf("committing image %s: %w", t.tag, err)
	}

	t.logger.Info("image committed", "tag", t.tag, "container", shortID(t.containerID))
	return nil
}

// Cleanup removes the work container and temp download directories. The
// committed image, if any, is kept.
func (t *EngineTarget) Cleanup(ctx context.Context) error {
	var firstErr error
	if t.containerID != "" {
		if err := t.eng.Remove(ctx, t.containerID, true); err != nil {
			firstErr = err
		}
		t.containerID = ""
	}
	for _, dir := range t.tempDirs {
		_ = os.RemoveAll(dir)
	}
	t.tempDirs = nil
	return firstErr
}

// execChecked runs a command in the container and converts a nonzero exit
// into an error.
func (t *EngineTarget) execChecked(ctx context.Context, name string, command []string) error {
	result, err := t.eng.Exec(ctx, t.containerID, command, engine.ExecOptions{
		Stdout: t.output,
		Stderr: t.output,
	})
	if err != nil {
		return err
	}
	if result.Error != nil {
		return result.Error
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("%s exited with status %d", name, result.ExitCode)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
