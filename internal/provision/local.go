// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"pipstage-cli/internal/fetch"
	"pipstage-cli/internal/shell"
	"pipstage-cli/pkg/stagefile"
)

// Compile-time interface checks
var (
	_ Target           = (*LocalTarget)(nil)
	_ ChecksumReporter = (*LocalTarget)(nil)
	_ EnvReporter      = (*LocalTarget)(nil)
)

type (
	// LocalTargetOption configures a LocalTarget.
	LocalTargetOption func(*LocalTarget)

	// LocalTarget materializes a recipe into a staging directory on the
	// host. Destination paths are rooted under Root, so /bin/pipseeker
	// lands at <root>/bin/pipseeker. Command steps run through the
	// in-process strict shell interpreter, so package installs execute the
	// same apt/pip commands a container build would, against the host.
	LocalTarget struct {
		root      string
		runner    *shell.StrictRunner
		client    *fetch.Client
		logger    *log.Logger
		output    io.Writer
		env       map[string]string
		checksums map[string]string
		modes     map[string]os.FileMode
		workDir   string
		tempDirs  []string
	}
)

// WithLocalLogger sets the target's logger.
func WithLocalLogger(logger *log.Logger) LocalTargetOption {
	return func(t *LocalTarget) {
		t.logger = logger
	}
}

// WithLocalOutput streams script output to w instead of discarding it.
func WithLocalOutput(w io.Writer) LocalTargetOption {
	return func(t *LocalTarget) {
		t.output = w
	}
}

// WithLocalFetchClient overrides the download client (tests point it at a
// local server).
func WithLocalFetchClient(c *fetch.Client) LocalTargetOption {
	return func(t *LocalTarget) {
		t.client = c
	}
}

// NewLocalTarget creates a local staging target rooted at root, running
// command steps under the given strict-mode flags.
func NewLocalTarget(root string, shellFlags []string, opts ...LocalTargetOption) *LocalTarget {
	t := &LocalTarget{
		root:      root,
		runner:    shell.NewStrictRunner(shellFlags),
		client:    fetch.NewClient(),
		logger:    log.Default(),
		env:       make(map[string]string),
		checksums: make(map[string]string),
		modes:     make(map[string]os.FileMode),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name identifies the target.
func (t *LocalTarget) Name() string { return "local" }

// Root returns the staging root directory.
func (t *LocalTarget) Root() string { return t.root }

// Environment returns the merged environment set.
func (t *LocalTarget) Environment() map[string]string {
	return maps.Clone(t.env)
}

// ArtifactChecksums returns SHA-256 sums of installed artifacts keyed by
// destination path.
func (t *LocalTarget) ArtifactChecksums() map[string]string {
	return maps.Clone(t.checksums)
}

// Prepare creates the staging root. There is no base filesystem to pull; the
// empty root plays that role.
func (t *LocalTarget) Prepare(_ context.Context) error {
	if err := os.MkdirAll(t.root, 0o755); err != nil {
		return Failf(FailureBaseImageUnavailable, "creating staging root %s: %v", t.root, err)
	}
	return nil
}

// ApplyEnv merges env entries; later assignment overwrites earlier.
func (t *LocalTarget) ApplyEnv(_ context.Context, env map[string]string) error {
	maps.Copy(t.env, env)
	return nil
}

// InstallArtifact downloads, optionally extracts, and installs one artifact
// under the staging root.
func (t *LocalTarget) InstallArtifact(ctx context.Context, artifact stagefile.ArtifactSpec) error {
	tempDir, err := os.MkdirTemp("", "pipstage-local-*")
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

	dest := t.hostPath(string(artifact.Dest))
	mode := os.FileMode(artifact.Mode)
	if mode == 0 {
		mode = 0o644
	}
	if err := fetch.Install(staged, dest, mode); err != nil {
		return NewFailure(FailureInstall, err)
	}

	sum, err := fetch.FileSHA256(dest)
	if err != nil {
		return NewFailure(FailureInstall, err)
	}
	t.checksums[string(artifact.Dest)] = sum
	t.modes[string(artifact.Dest)] = mode

	t.logger.Debug("artifact installed", "dest", dest, "sha256", sum[:12])
	return nil
}

// RunScript executes a command script under strict mode with the merged
// environment. PATH is carried over from the host so package manager
// binaries resolve.
func (t *LocalTarget) RunScript(ctx context.Context, name, script string, extraEnv map[string]string) error {
	env := map[string]string{
		"PATH": os.Getenv("PATH"),
		"HOME": os.Getenv("HOME"),
	}
	maps.Copy(env, t.env)
	maps.Copy(env, extraEnv)

	result, err := t.runner.Run(ctx, shell.RunSpec{
		Script: script,
		Dir:    t.root,
		Env:    env,
		Stdout: t.output,
		Stderr: t.output,
	})
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("script %s exited with status %d", name, result.ExitCode)
	}
	return nil
}

// MakeDir creates a directory under the staging root, parents included.
// Creation is idempotent.
func (t *LocalTarget) MakeDir(_ context.Context, path string) error {
	if err := os.MkdirAll(t.hostPath(path), 0o755); err != nil {
		return Failf(FailureDirectoryCreate, "creating %s: %v", path, err)
	}
	return nil
}

// CopyWorkspace copies the contents of every source tree into dest under the
// staging root. A missing source aborts before anything is copied.
func (t *LocalTarget) CopyWorkspace(_ context.Context, sources []string, dest string) error {
	for _, src := range sources {
		if _, err := os.Stat(src); err != nil {
			return Failf(FailureCopySourceMissing, "source path %s: %v", src, err)
		}
	}

	destDir := t.hostPath(dest)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("creating destination %s: %w", dest, err)
	}

	for _, src := range sources {
		if err := copyTree(src, destDir); err != nil {
			return fmt.Errorf("copying %s: %w", src, err)
		}
	}
	return nil
}

// SetWorkDir records the default working directory, which must exist under
// the staging root.
func (t *LocalTarget) SetWorkDir(_ context.Context, path string) error {
	info, err := os.Stat(t.hostPath(path))
	if err != nil {
		return Failf(FailurePathNotFound, "working directory %s: %v", path, err)
	}
	if !info.IsDir() {
		return Failf(FailurePathNotFound, "working directory %s is not a directory", path)
	}
	t.workDir = path
	return nil
}

// Finalize verifies installed artifacts kept their requested permission set,
// in particular the owner execute bit on binaries. There is no image to
// commit for a staging tree.
func (t *LocalTarget) Finalize(_ context.Context) error {
	for dest, wantMode := range t.modes {
		info, err := os.Stat(t.hostPath(dest))
		if err != nil {
			return fmt.Errorf("verifying artifact %s: %w", dest, err)
		}
		if wantMode&0o100 != 0 && info.Mode().Perm()&0o100 == 0 {
			return fmt.Errorf("artifact %s is missing owner execute permission", dest)
		}
	}
	return nil
}

// Cleanup removes the temp download directories. The staging tree itself is
// the build output and is kept.
func (t *LocalTarget) Cleanup(_ context.Context) error {
	for _, dir := range t.tempDirs {
		_ = os.RemoveAll(dir)
	}
	t.tempDirs = nil
	return nil
}

// hostPath roots an absolute in-image path under the staging directory.
func (t *LocalTarget) hostPath(path string) string {
	return filepath.Join(t.root, filepath.FromSlash(path))
}

// copyTree copies the contents of srcDir (or a single file) into destDir,
// preserving relative layout and file modes.
func copyTree(src, destDir string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		return copyFileInto(src, filepath.Join(destDir, filepath.Base(src)), info.Mode().Perm())
	}

	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		target := filepath.Join(destDir, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}
		return copyFileInto(path, target, fi.Mode().Perm())
	})
}

func copyFileInto(src, dest string, mode os.FileMode) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		_ = in.Close()
	}()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	_, err = io.Copy(out, in)
	return err
}
