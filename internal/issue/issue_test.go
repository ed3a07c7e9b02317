// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"strings"
	"testing"
)

func TestActionableErrorMessage(t *testing.T) {
	cause := errors.New("connection refused")
	ae := NewErrorContext().
		WithOperation("fetch artifact").
		WithResource("https://example.com/pipseeker.tar.gz").
		WithSuggestion("Check network connectivity").
		Wrap(cause).
		Build()

	if ae == nil {
		t.Fatal("Build() = nil")
	}
	want := "failed to fetch artifact: https://example.com/pipseeker.tar.gz: connection refused"
	if got := ae.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(ae, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
}

func TestActionableErrorFormat(t *testing.T) {
	ae := NewErrorContext().
		WithOperation("load stagefile").
		WithSuggestion("Check the file path").
		WithSuggestion("Run 'pipstage plan'").
		Wrap(errors.New("no such file")).
		Build()

	out := ae.Format(false)
	if !strings.Contains(out, "• Check the file path") {
		t.Errorf("Format() missing first suggestion:\n%s", out)
	}
	if strings.Contains(out, "Error chain") {
		t.Errorf("non-verbose Format() should omit the error chain:\n%s", out)
	}

	verbose := ae.Format(true)
	if !strings.Contains(verbose, "Error chain:") {
		t.Errorf("verbose Format() should include the error chain:\n%s", verbose)
	}
}

func TestBuildRequiresOperation(t *testing.T) {
	if got := NewErrorContext().WithResource("x").Build(); got != nil {
		t.Errorf("Build() without operation = %v, want nil", got)
	}
	if got := NewErrorContext().WithResource("x").BuildError(); got != nil {
		t.Errorf("BuildError() without operation = %v, want nil", got)
	}
}

func TestWrapWithOperationNil(t *testing.T) {
	if got := WrapWithOperation(nil, "anything"); got != nil {
		t.Errorf("WrapWithOperation(nil) = %v, want nil", got)
	}
}

func TestIssueCatalog(t *testing.T) {
	for _, id := range []Id{
		StagefileNotFoundId,
		StagefileParseErrorId,
		EngineNotFoundId,
		MissingBuildTagId,
		ConfigLoadFailedId,
	} {
		if Get(id) == nil {
			t.Errorf("Get(%d) = nil", id)
		}
	}
	if got := len(Values()); got != len(issues) {
		t.Errorf("len(Values()) = %d, want %d", got, len(issues))
	}
}

func TestEngineIssueNamesRealFlags(t *testing.T) {
	msg := string(Get(EngineNotFoundId).MarkdownMsg())
	if !strings.Contains(msg, "--target local") {
		t.Errorf("engine guidance should point at --target local:\n%s", msg)
	}
	if strings.Contains(msg, "--engine") {
		t.Errorf("engine guidance names a flag the CLI does not have:\n%s", msg)
	}
}

func TestIssueRender(t *testing.T) {
	orig := render
	defer func() { render = orig }()
	render = func(in, _ string) (string, error) { return in, nil }

	out, err := Get(MissingBuildTagId).Render("")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(out, "--tag") {
		t.Errorf("rendered issue should mention --tag:\n%s", out)
	}
}
