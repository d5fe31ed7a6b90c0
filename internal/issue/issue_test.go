// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"strings"
	"testing"
)

func TestActionableError_Error(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	err := &ActionableError{
		Operation: "fetch package",
		Resource:  "@github/diodeinc/stdlib",
		Cause:     cause,
	}

	msg := err.Error()
	if !strings.Contains(msg, "failed to fetch package") {
		t.Errorf("Error() = %q, want operation", msg)
	}
	if !strings.Contains(msg, "@github/diodeinc/stdlib") {
		t.Errorf("Error() = %q, want resource", msg)
	}
	if !strings.Contains(msg, "connection refused") {
		t.Errorf("Error() = %q, want cause", msg)
	}
}

func TestActionableError_Unwrap(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("sentinel")
	wrapped := WrapWithOperation(sentinel, "resolve load spec")
	if !errors.Is(wrapped, sentinel) {
		t.Error("errors.Is should find the wrapped cause")
	}
}

func TestWrapWithOperation_NilError(t *testing.T) {
	t.Parallel()

	if got := WrapWithOperation(nil, "anything"); got != nil {
		t.Errorf("WrapWithOperation(nil) = %v, want nil", got)
	}
	if got := WrapWithContext(nil, "anything", "res"); got != nil {
		t.Errorf("WrapWithContext(nil) = %v, want nil", got)
	}
}

func TestErrorContext_Build(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	err := NewErrorContext().
		WithOperation("resolve load spec").
		WithResource("@stdlib/x.zen").
		WithSuggestion("run 'zenload vendor' first").
		WithSuggestion("check network access").
		Wrap(cause).
		Build()

	if err.Operation != "resolve load spec" {
		t.Errorf("Operation = %q", err.Operation)
	}
	if err.Resource != "@stdlib/x.zen" {
		t.Errorf("Resource = %q", err.Resource)
	}
	if len(err.Suggestions) != 2 {
		t.Errorf("Suggestions = %v, want 2 entries", err.Suggestions)
	}
	if !errors.Is(err, cause) {
		t.Error("Build() lost the cause")
	}
	if !err.HasSuggestions() {
		t.Error("HasSuggestions() = false")
	}
}

func TestActionableError_Format(t *testing.T) {
	t.Parallel()

	inner := errors.New("inner")
	err := NewErrorContext().
		WithOperation("read manifest").
		WithSuggestion("check that zen.toml is valid TOML").
		Wrap(inner).
		Build()

	plain := err.Format(false)
	if !strings.Contains(plain, "check that zen.toml is valid TOML") {
		t.Errorf("Format(false) = %q, want suggestion", plain)
	}
	if strings.Contains(plain, "Error chain") {
		t.Errorf("Format(false) = %q, should not include error chain", plain)
	}

	verbose := err.Format(true)
	if !strings.Contains(verbose, "Error chain") {
		t.Errorf("Format(true) = %q, want error chain", verbose)
	}
	if !strings.Contains(verbose, "inner") {
		t.Errorf("Format(true) = %q, want inner error", verbose)
	}
}
