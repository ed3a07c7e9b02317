// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"strings"
)

type (
	// ExecCommandFunc is the function signature for creating exec.Cmd.
	// This allows injection of mock implementations for testing.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// CreateArgsTransformer modifies create arguments after they're built.
	// Used by Podman to inject --userns=keep-id for rootless compatibility.
	CreateArgsTransformer func(args []string) []string

	// BaseCLIEngineOption configures a BaseCLIEngine.
	BaseCLIEngineOption func(*BaseCLIEngine)

	// BaseCLIEngine provides common implementation for CLI-based container
	// engines. Docker and Podman engines embed this struct. Methods that are
	// identical across all CLI engines (Pull, Create, Start, Exec, CopyInto,
	// Commit, Remove, RemoveImage) are implemented here; engine-specific
	// methods (Available, Version, ImageExists) remain on the concrete types.
	BaseCLIEngine struct {
		name string // Engine name for error messages (e.g., "docker", "podman")
		// Resolved at construction via exec.LookPath; not user-configurable.
		binaryPath            string
		execCommand           ExecCommandFunc
		createArgsTransformer CreateArgsTransformer
	}
)

// --- Option Functions ---

// WithName sets the engine name used in error messages.
func WithName(name string) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.name = name
	}
}

// WithExecCommand sets a custom exec command function for testing.
func WithExecCommand(fn ExecCommandFunc) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.execCommand = fn
	}
}

// WithCreateArgsTransformer sets a custom create args transformer.
// This is used by Podman to inject --userns=keep-id for rootless compatibility.
func WithCreateArgsTransformer(fn CreateArgsTransformer) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.createArgsTransformer = fn
	}
}

// --- Constructor ---

// NewBaseCLIEngine creates a new base engine with the given binary path.
func NewBaseCLIEngine(binaryPath string, opts ...BaseCLIEngineOption) *BaseCLIEngine {
	e := &BaseCLIEngine{
		binaryPath:  binaryPath,
		execCommand: exec.CommandContext,
		// Identity function by default
		createArgsTransformer: func(args []string) []string { return args },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// --- Accessor Methods ---

// Name returns the engine name used in error messages.
func (e *BaseCLIEngine) Name() string {
	return e.name
}

// BinaryPath returns the path to the container engine binary.
func (e *BaseCLIEngine) BinaryPath() string {
	return e.binaryPath
}

// --- Argument Builders ---

// PullArgs constructs arguments for an image pull command.
//
// Generated command: <binary> pull <image>
func (e *BaseCLIEngine) PullArgs(image string) []string {
	return []string{"pull", image}
}

// CreateArgs constructs arguments for a container create command.
// Env vars are emitted in sorted key order so the argument list is stable.
//
// Generated command: <binary> create [options] <image> [command...]
func (e *BaseCLIEngine) CreateArgs(opts CreateOptions) []string {
	args := []string{"create"}

	if opts.Name != "" {
		args = append(args, "--name", opts.Name)
	}

	if opts.WorkDir != "" {
		args = append(args, "-w", opts.WorkDir)
	}

	for _, k := range sortedKeys(opts.Env) {
		args = append(args, "-e", fmt.Sprintf("%s=%s", k, opts.Env[k]))
	}

	args = append(args, opts.Image)
	args = append(args, opts.Command...)

	return e.createArgsTransformer(args)
}

// StartArgs constructs arguments for a container start command.
func (e *BaseCLIEngine) StartArgs(containerID string) []string {
	return []string{"start", containerID}
}

// ExecArgs constructs arguments for a container exec command.
//
// Generated command: <binary> exec [options] <container> <command...>
func (e *BaseCLIEngine) ExecArgs(containerID string, command []string, opts ExecOptions) []string {
	args := []string{"exec"}

	if opts.Stdin != nil {
		args = append(args, "-i")
	}

	if opts.WorkDir != "" {
		args = append(args, "-w", opts.WorkDir)
	}

	for _, k := range sortedKeys(opts.Env) {
		args = append(args, "-e", fmt.Sprintf("%s=%s", k, opts.Env[k]))
	}

	args = append(args, containerID)
	args = append(args, command...)

	return args
}

// CopyArgs constructs arguments for a copy-into-container command.
//
// Generated command: <binary> cp <hostPath> <container>:<containerPath>
func (e *BaseCLIEngine) CopyArgs(containerID, hostPath, containerPath string) []string {
	return []string{"cp", hostPath, containerID + ":" + containerPath}
}

// CommitArgs constructs arguments for a container commit command.
// Each metadata change becomes a --change flag.
//
// Generated command: <binary> commit [options] <container> <tag>
func (e *BaseCLIEngine) CommitArgs(containerID string, opts CommitOptions) []string {
	args := []string{"commit"}

	if !opts.Pause {
		args = append(args, "--pause=false")
	}

	for _, change := range opts.Changes {
		args = append(args, "--change", change)
	}

	args = append(args, containerID, opts.Tag)

	return args
}

// RemoveArgs constructs arguments for a container remove command.
func (e *BaseCLIEngine) RemoveArgs(containerID string, force bool) []string {
	args := []string{"rm"}
	if force {
		args = append(args, "-f")
	}
	args = append(args, containerID)
	return args
}

// RemoveImageArgs constructs arguments for an image remove command.
func (e *BaseCLIEngine) RemoveImageArgs(image string, force bool) []string {
	args := []string{"rmi"}
	if force {
		args = append(args, "-f")
	}
	args = append(args, image)
	return args
}

// --- Command Execution ---

// RunCommandStatus executes a command and returns only the error status.
func (e *BaseCLIEngine) RunCommandStatus(ctx context.Context, args ...string) error {
	cmd := e.CreateCommand(ctx, args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("command %s %v failed: %w", e.binaryPath, args, err)
	}
	return nil
}

// RunCommandWithOutput executes a command with stdout captured to a buffer.
func (e *BaseCLIEngine) RunCommandWithOutput(ctx context.Context, args ...string) (string, error) {
	cmd := e.CreateCommand(ctx, args...)
	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("command %s %v failed: %w", e.binaryPath, args, err)
	}

	return out.String(), nil
}

// CreateCommand creates an exec.Cmd for the given arguments.
// This is useful when the caller needs to customize stdin/stdout/stderr.
func (e *BaseCLIEngine) CreateCommand(ctx context.Context, args ...string) *exec.Cmd {
	return e.execCommand(ctx, e.binaryPath, args...)
}

// --- Promoted Engine Methods (shared by Docker and Podman) ---

// Pull fetches an image from its registry, streaming engine output to output.
func (e *BaseCLIEngine) Pull(ctx context.Context, image string, output io.Writer) error {
	cmd := e.CreateCommand(ctx, e.PullArgs(image)...)
	cmd.Stdout = output
	cmd.Stderr = output

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("pulling image %s with %s: %w", image, e.name, err)
	}
	return nil
}

// Create creates a stopped work container and returns its ID.
func (e *BaseCLIEngine) Create(ctx context.Context, opts CreateOptions) (string, error) {
	out, err := e.RunCommandWithOutput(ctx, e.CreateArgs(opts)...)
	if err != nil {
		return "", fmt.Errorf("creating container from %s: %w", opts.Image, err)
	}
	return strings.TrimSpace(out), nil
}

// Start starts a created container.
func (e *BaseCLIEngine) Start(ctx context.Context, containerID string) error {
	return e.RunCommandStatus(ctx, e.StartArgs(containerID)...)
}

// Exec runs a command in a running container.
// A non-zero exit code is captured in ExecResult.ExitCode (not returned as
// error). Only infrastructure failures (binary not found, etc.) set
// ExecResult.Error.
func (e *BaseCLIEngine) Exec(ctx context.Context, containerID string, command []string, opts ExecOptions) (*ExecResult, error) {
	cmd := e.CreateCommand(ctx, e.ExecArgs(containerID, command, opts)...)
	cmd.Stdin = opts.Stdin
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr

	err := cmd.Run()

	result := &ExecResult{ContainerID: containerID}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = 1
			result.Error = err
		}
	}

	return result, nil
}

// CopyInto copies a host path into a container path.
func (e *BaseCLIEngine) CopyInto(ctx context.Context, containerID, hostPath, containerPath string) error {
	return e.RunCommandStatus(ctx, e.CopyArgs(containerID, hostPath, containerPath)...)
}

// Commit snapshots a container as a tagged image.
func (e *BaseCLIEngine) Commit(ctx context.Context, containerID string, opts CommitOptions) error {
	return e.RunCommandStatus(ctx, e.CommitArgs(containerID, opts)...)
}

// Remove removes a container.
func (e *BaseCLIEngine) Remove(ctx context.Context, containerID string, force bool) error {
	return e.RunCommandStatus(ctx, e.RemoveArgs(containerID, force)...)
}

// RemoveImage removes a local image.
func (e *BaseCLIEngine) RemoveImage(ctx context.Context, image string, force bool) error {
	return e.RunCommandStatus(ctx, e.RemoveImageArgs(image, force)...)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
