// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"slices"
	"testing"

	"github.com/charmbracelet/log"

	"pipstage-cli/pkg/stagefile"
)

// fakeTarget records every target method call; failOn makes the named
// operation fail.
type fakeTarget struct {
	calls     []string
	failOn    string
	failErr   error
	env       map[string]string
	finalized bool
}

func (f *fakeTarget) record(op string) error {
	f.calls = append(f.calls, op)
	if f.failOn == op {
		if f.failErr != nil {
			return f.failErr
		}
		return errors.New(op + " failed")
	}
	return nil
}

func (f *fakeTarget) Name() string                       { return "fake" }
func (f *fakeTarget) Prepare(context.Context) error      { return f.record("prepare") }
func (f *fakeTarget) Finalize(context.Context) error     { f.finalized = true; return f.record("finalize") }
func (f *fakeTarget) Cleanup(context.Context) error      { return f.record("cleanup") }
func (f *fakeTarget) MakeDir(_ context.Context, p string) error {
	return f.record("mkdir " + p)
}

func (f *fakeTarget) ApplyEnv(_ context.Context, env map[string]string) error {
	if f.env == nil {
		f.env = make(map[string]string)
	}
	for k, v := range env {
		f.env[k] = v
	}
	return f.record("env")
}

func (f *fakeTarget) InstallArtifact(_ context.Context, a stagefile.ArtifactSpec) error {
	return f.record("artifact " + string(a.Dest))
}

func (f *fakeTarget) RunScript(_ context.Context, name, _ string, _ map[string]string) error {
	return f.record("script " + name)
}

func (f *fakeTarget) CopyWorkspace(_ context.Context, _ []string, dest string) error {
	return f.record("copy " + dest)
}

func (f *fakeTarget) SetWorkDir(_ context.Context, p string) error {
	return f.record("workdir " + p)
}

func quietExecutor(opts ...ExecutorOption) *Executor {
	logger := log.New(io.Discard)
	return NewExecutor(append([]ExecutorOption{WithLogger(logger)}, opts...)...)
}

func TestExecuteRunsAllStepsInOrder(t *testing.T) {
	plan := defaultPlan(t, BuildArgs{Tag: "img:v1", ContextDir: t.TempDir()})
	target := &fakeTarget{}

	manifest, err := quietExecutor().Execute(context.Background(), plan, target)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !manifest.Succeeded {
		t.Error("manifest.Succeeded = false")
	}
	if !target.finalized {
		t.Error("target was not finalized")
	}

	want := []string{
		"prepare",
		"env",
		"artifact /bin/pipseeker",
		"script apt",
		"script pip",
		"mkdir /opt/latch",
		"copy /root/",
		"env",
		"workdir /root",
		"finalize",
		"cleanup",
	}
	if !slices.Equal(target.calls, want) {
		t.Errorf("call order = %v, want %v", target.calls, want)
	}
}

func TestExecuteFailFast(t *testing.T) {
	plan := defaultPlan(t, BuildArgs{Tag: "img:v1", ContextDir: t.TempDir()})
	target := &fakeTarget{failOn: "artifact /bin/pipseeker"}

	manifest, err := quietExecutor().Execute(context.Background(), plan, target)
	if err == nil {
		t.Fatal("Execute() should fail when a step fails")
	}
	if manifest.Succeeded {
		t.Error("manifest.Succeeded = true after failure")
	}

	// No package step may run after the artifact download fails.
	for _, call := range target.calls {
		if call == "script apt" || call == "script pip" {
			t.Errorf("step %q ran after the failing step", call)
		}
	}
	if target.finalized {
		t.Error("target was finalized after failure")
	}
	if !slices.Contains(target.calls, "cleanup") {
		t.Error("cleanup did not run after failure")
	}

	failed := manifest.FailedStep()
	if failed == nil {
		t.Fatal("manifest has no failed step")
	}
	if failed.Name != "artifact:/bin/pipseeker" {
		t.Errorf("failed step = %q", failed.Name)
	}
	if failed.Kind != string(FailureInstall) {
		t.Errorf("failed kind = %q, want step default %q", failed.Kind, FailureInstall)
	}

	// Steps after the failure are recorded as skipped.
	last := manifest.Steps[len(manifest.Steps)-1]
	if last.Status != StepStatusSkipped {
		t.Errorf("last step status = %q, want skipped", last.Status)
	}
}

func TestExecutePreservesFinerClassification(t *testing.T) {
	plan := defaultPlan(t, BuildArgs{Tag: "img:v1", ContextDir: t.TempDir()})
	target := &fakeTarget{
		failOn:  "artifact /bin/pipseeker",
		failErr: Failf(FailureExtraction, "member missing"),
	}

	_, err := quietExecutor().Execute(context.Background(), plan, target)
	kind, ok := KindOf(err)
	if !ok || kind != FailureExtraction {
		t.Errorf("kind = %v, %v, want ExtractionError preserved", kind, ok)
	}
}

func TestExecuteMissingTagAbortsBeforeWorkDir(t *testing.T) {
	plan := defaultPlan(t, BuildArgs{ContextDir: t.TempDir()})
	target := &fakeTarget{}

	_, err := quietExecutor().Execute(context.Background(), plan, target)
	kind, ok := KindOf(err)
	if !ok || kind != FailureMissingBuildArgument {
		t.Fatalf("kind = %v, %v, want MissingBuildArgument", kind, ok)
	}
	if slices.Contains(target.calls, "workdir /root") {
		t.Error("workdir step ran despite the missing tag")
	}
}

func TestExecuteEnvSetExactlyOnce(t *testing.T) {
	plan := defaultPlan(t, BuildArgs{Tag: "img:v1", ContextDir: t.TempDir()})
	target := &fakeTarget{}

	if _, err := quietExecutor().Execute(context.Background(), plan, target); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if target.env["TZ"] != "Etc/UTC" {
		t.Errorf("TZ = %q, want Etc/UTC", target.env["TZ"])
	}
	if target.env["FLYTE_INTERNAL_IMAGE"] != "img:v1" {
		t.Errorf("FLYTE_INTERNAL_IMAGE = %q, want img:v1", target.env["FLYTE_INTERNAL_IMAGE"])
	}
}

func TestExecutePersistsManifest(t *testing.T) {
	plan := defaultPlan(t, BuildArgs{Tag: "img:v1", ContextDir: t.TempDir()})
	path := filepath.Join(t.TempDir(), "manifest.toml")

	_, err := quietExecutor(WithManifestPath(path)).Execute(context.Background(), plan, &fakeTarget{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	loaded, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest() error = %v", err)
	}
	if !loaded.Succeeded {
		t.Error("loaded manifest not marked succeeded")
	}
	if loaded.Target != "fake" {
		t.Errorf("loaded target = %q", loaded.Target)
	}
	if len(loaded.Steps) != len(plan.Steps) {
		t.Errorf("loaded steps = %d, want %d", len(loaded.Steps), len(plan.Steps))
	}
}
