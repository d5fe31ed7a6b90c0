// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrFileNotFound is the sentinel error wrapped by NotFoundError.
	ErrFileNotFound = errors.New("file not found")
	// ErrUnknownAlias is the sentinel error wrapped by UnknownAliasError.
	ErrUnknownAlias = errors.New("unknown package alias")
	// ErrAliasCycle is the sentinel error wrapped by AliasCycleError.
	ErrAliasCycle = errors.New("package alias cycle")
)

type (
	// NotFoundError is returned when a spec resolves to a path that does
	// not exist.
	NotFoundError struct {
		// Spec is the load string that was being resolved.
		Spec string
		// Path is the local path the spec resolved to.
		Path string
	}

	// UnknownAliasError is returned when a package alias is not declared
	// by any manifest on the loading file's ancestry nor by the built-in
	// defaults.
	UnknownAliasError struct {
		// Name is the alias that failed to resolve.
		Name string
		// File is the file the load was performed from.
		File string
	}

	// AliasCycleError is returned when alias-to-alias substitution
	// revisits a name or exceeds the substitution depth bound.
	AliasCycleError struct {
		// Chain is the substitution chain, first alias first.
		Chain []string
	}
)

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: resolved to %s which does not exist", e.Spec, e.Path)
}

// Unwrap returns ErrFileNotFound for errors.Is compatibility.
func (e *NotFoundError) Unwrap() error { return ErrFileNotFound }

// Error implements the error interface.
func (e *UnknownAliasError) Error() string {
	return fmt.Sprintf("unknown package alias %q (loaded from %s)", e.Name, e.File)
}

// Unwrap returns ErrUnknownAlias for errors.Is compatibility.
func (e *UnknownAliasError) Unwrap() error { return ErrUnknownAlias }

// Error implements the error interface.
func (e *AliasCycleError) Error() string {
	return fmt.Sprintf("alias cycle: %s", strings.Join(e.Chain, " -> "))
}

// Unwrap returns ErrAliasCycle for errors.Is compatibility.
func (e *AliasCycleError) Unwrap() error { return ErrAliasCycle }
