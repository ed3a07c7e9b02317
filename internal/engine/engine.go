// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"fmt"
	"io"
)

// Engine defines the container operations needed to provision and commit an
// image. Implementations shell out to the engine CLI.
type Engine interface {
	// Name returns the engine name (docker or podman).
	Name() string
	// Available checks if the engine is usable on this system.
	Available() bool
	// Version returns the engine version.
	Version(ctx context.Context) (string, error)

	// Pull fetches an image from its registry.
	Pull(ctx context.Context, image string, output io.Writer) error
	// Create creates a stopped work container from an image.
	Create(ctx context.Context, opts CreateOptions) (string, error)
	// Start starts a created container.
	Start(ctx context.Context, containerID string) error
	// Exec runs a command in a running container.
	Exec(ctx context.Context, containerID string, command []string, opts ExecOptions) (*ExecResult, error)
	// CopyInto copies a host path into a container path.
	CopyInto(ctx context.Context, containerID, hostPath, containerPath string) error
	// Commit snapshots a container as a tagged image, applying metadata changes.
	Commit(ctx context.Context, containerID string, opts CommitOptions) error
	// Remove removes a container.
	Remove(ctx context.Context, containerID string, force bool) error
	// ImageExists checks if an image is present locally.
	ImageExists(ctx context.Context, image string) (bool, error)
	// RemoveImage removes a local image.
	RemoveImage(ctx context.Context, image string, force bool) error
}

// CreateOptions contains options for creating a work container.
type CreateOptions struct {
	// Image is the base image for the container.
	Image string
	// Name is the container name; empty means engine-assigned.
	Name string
	// Env contains environment variables set on the container.
	Env map[string]string
	// WorkDir is the working directory inside the container.
	WorkDir string
	// Command overrides the image entrypoint command. Provisioning uses a
	// long sleep so the container stays up between exec steps.
	Command []string
}

// ExecOptions contains options for executing a command in a container.
type ExecOptions struct {
	// WorkDir is the working directory for the command.
	WorkDir string
	// Env contains environment variables for the command.
	Env map[string]string
	// Stdin is the standard input.
	Stdin io.Reader
	// Stdout is where to write standard output.
	Stdout io.Writer
	// Stderr is where to write standard error.
	Stderr io.Writer
}

// ExecResult contains the result of an exec in a container.
type ExecResult struct {
	// ContainerID is the container the command ran in.
	ContainerID string
	// ExitCode is the command exit code.
	ExitCode int
	// Error contains any infrastructure error (binary missing, etc.).
	Error error
}

// CommitOptions contains options for committing a container as an image.
type CommitOptions struct {
	// Tag is the image tag for the committed image.
	Tag string
	// Changes are Dockerfile-style directives applied at commit time
	// (e.g. "ENV TZ=Etc/UTC", "WORKDIR /root").
	Changes []string
	// Pause pauses the container during commit.
	Pause bool
}

// EngineType identifies the container engine type.
type EngineType string

const (
	EngineTypePodman EngineType = "podman"
	EngineTypeDocker EngineType = "docker"
)

// ErrEngineNotAvailable is returned when a container engine is not available.
type ErrEngineNotAvailable struct {
	Engine string
	Reason string
}

func (e *ErrEngineNotAvailable) Error() string {
	return fmt.Sprintf("container engine '%s' is not available: %s", e.Engine, e.Reason)
}

// NewEngine creates a container engine based on preference, falling back to
// the other engine when the preferred one is missing.
func NewEngine(preferredType EngineType) (Engine, error) {
	switch preferredType {
	case EngineTypePodman:
		engine := NewPodmanEngine()
		if engine.Available() {
			return engine, nil
		}
		dockerEngine := NewDockerEngine()
		if dockerEngine.Available() {
			return dockerEngine, nil
		}
		return nil, &ErrEngineNotAvailable{
			Engine: "podman",
			Reason: "podman is not installed or not accessible, and docker fallback is also not available",
		}

	case EngineTypeDocker:
		engine := NewDockerEngine()
		if engine.Available() {
			return engine, nil
		}
		podmanEngine := NewPodmanEngine()
		if podmanEngine.Available() {
			return podmanEngine, nil
		}
		return nil, &ErrEngineNotAvailable{
			Engine: "docker",
			Reason: "docker is not installed or not accessible, and podman fallback is also not available",
		}

	default:
		return nil, fmt.Errorf("unknown container engine type: %s", preferredType)
	}
}

// AutoDetectEngine tries to find an available container engine.
// Podman is tried first since it is more common in rootless setups.
func AutoDetectEngine() (Engine, error) {
	podman := NewPodmanEngine()
	if podman.Available() {
		return podman, nil
	}

	docker := NewDockerEngine()
	if docker.Available() {
		return docker, nil
	}

	return nil, &ErrEngineNotAvailable{
		Engine: "any",
		Reason: "no container engine (podman or docker) is available on this system",
	}
}
