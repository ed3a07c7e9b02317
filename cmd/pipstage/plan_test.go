// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"pipstage-cli/pkg/stagefile"
)

// newCaptureCmd returns a command wired to buffers for RunE handlers.
func newCaptureCmd(t *testing.T) (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	c := &cobra.Command{}
	var out, errOut bytes.Buffer
	c.SetOut(&out)
	c.SetErr(&errOut)
	c.SetContext(context.Background())
	return c, &out, &errOut
}

func resetPlanFlags(t *testing.T) {
	t.Helper()
	origRecipe, origContext, origTag, origExplain := planRecipe, planContext, planTag, planExplain
	t.Cleanup(func() {
		planRecipe, planContext, planTag, planExplain = origRecipe, origContext, origTag, origExplain
	})
}

func TestRunPlanDefaultRecipe(t *testing.T) {
	resetPlanFlags(t)
	planRecipe = ""
	planContext = t.TempDir() // no stagefile there, built-in recipe applies
	planTag = "env:v1"
	planExplain = false

	c, out, _ := newCaptureCmd(t)
	if err := runPlan(c, nil); err != nil {
		t.Fatalf("runPlan() error = %v", err)
	}

	got := out.String()
	for _, want := range []string{"ubuntu:22.04", "pipefail", "/bin/pipseeker", "workdir"} {
		if !strings.Contains(got, want) {
			t.Errorf("plan output missing %q:\n%s", want, got)
		}
	}
}

func TestRunPlanUsesContextStagefile(t *testing.T) {
	resetPlanFlags(t)

	dir := t.TempDir()
	recipe := `
base: image: "docker.io/library/alpine:3.20"
workdir: "/srv"
`
	if err := os.WriteFile(filepath.Join(dir, stagefile.DefaultFileName), []byte(recipe), 0o644); err != nil {
		t.Fatal(err)
	}

	planContext = dir
	planRecipe = ""
	planTag = ""

	c, out, _ := newCaptureCmd(t)
	if err := runPlan(c, nil); err != nil {
		t.Fatalf("runPlan() error = %v", err)
	}
	if !strings.Contains(out.String(), "alpine:3.20") {
		t.Errorf("plan did not pick up the context stagefile:\n%s", out.String())
	}
}

func TestRunPlanRejectsInvalidRecipe(t *testing.T) {
	resetPlanFlags(t)

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, stagefile.DefaultFileName), []byte(`base: image: ""`), 0o644); err != nil {
		t.Fatal(err)
	}
	planContext = dir
	planRecipe = ""

	c, _, _ := newCaptureCmd(t)
	if err := runPlan(c, nil); err == nil {
		t.Fatal("runPlan() with an empty image ref should fail")
	}
}

func TestLoadRecipePrecedence(t *testing.T) {
	dir := t.TempDir()

	// Built-in fallback when the context has no stagefile.
	recipe, err := loadRecipe("", dir)
	if err != nil {
		t.Fatalf("loadRecipe() fallback error = %v", err)
	}
	if recipe.Base.Image != "docker.io/library/ubuntu:22.04" {
		t.Errorf("fallback base = %q", recipe.Base.Image)
	}

	// A stagefile in the context wins over the built-in.
	contextRecipe := filepath.Join(dir, stagefile.DefaultFileName)
	if err := os.WriteFile(contextRecipe, []byte(`base: image: "docker.io/library/debian:12"`), 0o644); err != nil {
		t.Fatal(err)
	}
	recipe, err = loadRecipe("", dir)
	if err != nil {
		t.Fatal(err)
	}
	if recipe.Base.Image != "docker.io/library/debian:12" {
		t.Errorf("context base = %q", recipe.Base.Image)
	}

	// An explicit path wins over both.
	explicit := filepath.Join(dir, "other.cue")
	if err := os.WriteFile(explicit, []byte(`base: image: "docker.io/library/alpine:3.20"`), 0o644); err != nil {
		t.Fatal(err)
	}
	recipe, err = loadRecipe(explicit, dir)
	if err != nil {
		t.Fatal(err)
	}
	if recipe.Base.Image != "docker.io/library/alpine:3.20" {
		t.Errorf("explicit base = %q", recipe.Base.Image)
	}
}
