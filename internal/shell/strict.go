// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

type (
	// StrictRunner executes scripts with a fixed strict-mode flag set applied
	// before every script body.
	StrictRunner struct {
		flags []string
	}

	// RunSpec describes a single script execution.
	RunSpec struct {
		// Script is the POSIX shell script body.
		Script string

		// Dir is the working directory; it must exist.
		Dir string

		// Env is the complete environment for the script. The host process
		// environment is never inherited.
		Env map[string]string

		// Stdout and Stderr receive the script's output. Nil discards.
		Stdout io.Writer
		Stderr io.Writer
	}

	// Result reports a completed (or failed) script execution.
	Result struct {
		ExitCode int
	}
)

// NewStrictRunner creates a runner with the given `set` flags (e.g. "-e",
// "-u", "-x", "-o", "pipefail").
func NewStrictRunner(flags []string) *StrictRunner {
	return &StrictRunner{flags: append([]string(nil), flags...)}
}

// Flags returns the runner's strict-mode flag set.
func (r *StrictRunner) Flags() []string {
	return append([]string(nil), r.flags...)
}

// Validate parses the script without executing it, surfacing syntax errors
// up front.
func (r *StrictRunner) Validate(script string) error {
	if strings.TrimSpace(script) == "" {
		return errors.New("script has no content to execute")
	}
	if _, err := syntax.NewParser().Parse(strings.NewReader(r.compose(script)), "script"); err != nil {
		return fmt.Errorf("script syntax error: %w", err)
	}
	return nil
}

// Run executes the script under strict mode. A nonzero script exit is
// reported through Result.ExitCode with a nil error; all other failures
// (syntax, interpreter setup, working directory) return an error.
func (r *StrictRunner) Run(ctx context.Context, spec RunSpec) (*Result, error) {
	if err := validateWorkDir(spec.Dir); err != nil {
		return nil, err
	}

	prog, err := syntax.NewParser().Parse(strings.NewReader(r.compose(spec.Script)), "script")
	if err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}

	stdout := spec.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := spec.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	runner, err := interp.New(
		interp.Dir(spec.Dir),
		interp.Env(expand.ListEnviron(envToSlice(spec.Env)...)),
		interp.StdIO(nil, stdout, stderr),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create interpreter: %w", err)
	}

	if err := runner.Run(ctx, prog); err != nil {
		var exitStatus interp.ExitStatus
		if errors.As(err, &exitStatus) {
			return &Result{ExitCode: int(exitStatus)}, nil
		}
		return nil, fmt.Errorf("script execution failed: %w", err)
	}

	return &Result{ExitCode: 0}, nil
}

// RunCapture executes the script and captures its output.
func (r *StrictRunner) RunCapture(ctx context.Context, spec RunSpec) (*Result, string, string, error) {
	var stdout, stderr bytes.Buffer
	spec.Stdout = &stdout
	spec.Stderr = &stderr

	result, err := r.Run(ctx, spec)
	return result, stdout.String(), stderr.String(), err
}

// compose prepends the strict-mode `set` line to the script body.
func (r *StrictRunner) compose(script string) string {
	return Compose(r.flags, script)
}

// Compose prepends a strict-mode `set` line to a script body. Callers that
// ship scripts to a remote interpreter (a container's /bin/sh) use this to
// apply the same flags the in-process runner would.
func Compose(flags []string, script string) string {
	if len(flags) == 0 {
		return script
	}
	return "set " + strings.Join(flags, " ") + "\n" + script
}

// envToSlice converts an env map to KEY=VALUE form in sorted key order so
// repeated runs see identical environments.
func envToSlice(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

// validateWorkDir validates that a working directory exists and is
// accessible. This gives a clearer error than letting the interpreter fail.
func validateWorkDir(dir string) error {
	if dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", dir)
		}
		if os.IsPermission(err) {
			return fmt.Errorf("permission denied: %s", dir)
		}
		return fmt.Errorf("cannot access directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", dir)
	}
	return nil
}
