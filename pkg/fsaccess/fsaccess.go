// SPDX-License-Identifier: MPL-2.0

// Package fsaccess abstracts the filesystem operations the resolver needs.
// Production code uses the OS provider; tests use the in-memory provider so
// resolution logic can be exercised against a scripted tree.
package fsaccess

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

var (
	// ErrNotFound is the sentinel error for a missing path.
	ErrNotFound = errors.New("path not found")
	// ErrPermission is the sentinel error for a permission failure.
	ErrPermission = errors.New("permission denied")
)

type (
	// Provider is the file access capability the resolver depends on.
	Provider interface {
		// ReadFile returns the contents of the file at path.
		ReadFile(path string) ([]byte, error)
		// Exists reports whether path exists.
		Exists(path string) bool
		// IsDir reports whether path exists and is a directory.
		IsDir(path string) bool
		// ListDir returns the entry names of the directory at path.
		ListDir(path string) ([]string, error)
		// Canonicalize resolves path to a canonical absolute form. The
		// path must exist.
		Canonicalize(path string) (string, error)
	}

	// AccessError wraps a provider failure with the path and operation
	// that produced it.
	AccessError struct {
		Op   string
		Path string
		Err  error
	}

	// osProvider implements Provider against the real filesystem.
	osProvider struct{}
)

// Error implements the error interface.
func (e *AccessError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *AccessError) Unwrap() error { return e.Err }

// OS returns a Provider backed by the real filesystem.
func OS() Provider { return osProvider{} }

func (osProvider) ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &AccessError{Op: "read", Path: path, Err: mapOSError(err)}
	}
	return data, nil
}

func (osProvider) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (osProvider) IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func (osProvider) ListDir(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, &AccessError{Op: "list", Path: path, Err: mapOSError(err)}
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (osProvider) Canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &AccessError{Op: "canonicalize", Path: path, Err: err}
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", &AccessError{Op: "canonicalize", Path: path, Err: mapOSError(err)}
	}
	return resolved, nil
}

// mapOSError converts os errors to the package sentinels so callers can use
// errors.Is without depending on the concrete provider.
func mapOSError(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %v", ErrPermission, err)
	default:
		return err
	}
}
