// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"pipstage-cli/pkg/stagefile"
)

func defaultPlan(t *testing.T, args BuildArgs) *Plan {
	t.Helper()
	recipe, err := stagefile.Default()
	if err != nil {
		t.Fatalf("loading default recipe: %v", err)
	}
	plan, err := Compile(recipe, args)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	return plan
}

func stepNames(p *Plan) []string {
	names := make([]string, 0, len(p.Steps))
	for _, s := range p.Steps {
		names = append(names, s.Name)
	}
	return names
}

func TestCompileDefaultRecipeStepOrder(t *testing.T) {
	plan := defaultPlan(t, BuildArgs{Tag: "img:v1", ContextDir: t.TempDir()})

	want := []string{
		"base",
		"env",
		"artifact:/bin/pipseeker",
		"apt",
		"pip",
		"mkdir:/opt/latch",
		"workspace",
		"tag",
		"workdir",
	}
	if got := stepNames(plan); !slices.Equal(got, want) {
		t.Errorf("step order = %v, want %v", got, want)
	}
}

func TestCompileNilRecipe(t *testing.T) {
	if _, err := Compile(nil, BuildArgs{}); err == nil {
		t.Fatal("Compile(nil) should error")
	}
}

func TestCompileRejectsInvalidRecipe(t *testing.T) {
	recipe := &stagefile.Recipe{
		Base: stagefile.BaseSpec{Image: ""},
	}
	if _, err := Compile(recipe, BuildArgs{}); !errors.Is(err, stagefile.ErrInvalidImageRef) {
		t.Fatalf("Compile() error = %v, want ErrInvalidImageRef", err)
	}
}

func TestCompileDefaultsDebianFrontend(t *testing.T) {
	plan := defaultPlan(t, BuildArgs{Tag: "img:v1"})
	if plan.Args.DebianFrontend != DefaultDebianFrontend {
		t.Errorf("DebianFrontend = %q, want %q", plan.Args.DebianFrontend, DefaultDebianFrontend)
	}
}

func TestTagStepFailsWithoutTag(t *testing.T) {
	plan := defaultPlan(t, BuildArgs{ContextDir: t.TempDir()})

	var tagStep *Step
	for i := range plan.Steps {
		if plan.Steps[i].Name == StepTag {
			tagStep = &plan.Steps[i]
		}
	}
	if tagStep == nil {
		t.Fatal("default plan has no tag step")
	}

	err := tagStep.Run(context.Background(), &fakeTarget{})
	kind, ok := KindOf(err)
	if !ok || kind != FailureMissingBuildArgument {
		t.Fatalf("tag step without tag: kind = %v, %v, want MissingBuildArgument", kind, ok)
	}
}

func TestTagStepPrecedesWorkDirStep(t *testing.T) {
	plan := defaultPlan(t, BuildArgs{})

	names := stepNames(plan)
	tagIdx := slices.Index(names, StepTag)
	workdirIdx := slices.Index(names, StepWorkDir)
	if tagIdx < 0 || workdirIdx < 0 || tagIdx >= workdirIdx {
		t.Errorf("tag step at %d must precede workdir step at %d", tagIdx, workdirIdx)
	}
}

func TestResolveSources(t *testing.T) {
	got := resolveSources("/ctx", []string{".", ".latch/.", "sub/dir"})
	want := []string{"/ctx", filepath.Join("/ctx", ".latch"), filepath.Join("/ctx", "sub/dir")}
	if !slices.Equal(got, want) {
		t.Errorf("resolveSources() = %v, want %v", got, want)
	}
}

func TestAptScript(t *testing.T) {
	script := AptScript([]string{"unzip", "curl"})
	if !strings.Contains(script, "apt-get update") {
		t.Errorf("AptScript() = %q, missing update", script)
	}
	if !strings.Contains(script, "apt-get install -y unzip curl") {
		t.Errorf("AptScript() = %q, missing install line", script)
	}
}

func TestPipScript(t *testing.T) {
	script := PipScript([]string{"latch==2.47.8"})
	if script != "pip install latch==2.47.8" {
		t.Errorf("PipScript() = %q", script)
	}
}

func TestDescribe(t *testing.T) {
	plan := defaultPlan(t, BuildArgs{Tag: "img:v1"})

	md := plan.Describe()
	for _, want := range []string{"Provisioning plan", "docker.io/library/ubuntu:22.04", "pipefail", "workdir"} {
		if !strings.Contains(md, want) {
			t.Errorf("Describe() missing %q", want)
		}
	}
}
