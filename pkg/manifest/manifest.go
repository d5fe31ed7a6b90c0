// SPDX-License-Identifier: MPL-2.0

// Package manifest parses zen.toml files. A manifest may mark its directory
// as a workspace root via a [workspace] section and may declare package
// aliases in a [packages] table. The resolver owns the merge semantics when
// several manifests stack along a directory ancestry; this package only
// parses one file.
package manifest

import (
	"errors"
	"fmt"

	"github.com/pelletier/go-toml/v2"

	"zenload/pkg/fsaccess"
)

// FileName is the manifest file name looked up in each directory.
const FileName = "zen.toml"

// ErrParse is the sentinel error wrapped by ParseError.
var ErrParse = errors.New("manifest parse error")

type (
	// Manifest is one parsed zen.toml.
	Manifest struct {
		// Workspace is non-nil when the file carries a [workspace]
		// section, marking its directory as a workspace root.
		Workspace *WorkspaceSection `toml:"workspace"`

		// Packages maps alias names to load-spec strings.
		Packages map[string]string `toml:"packages"`
	}

	// WorkspaceSection is the [workspace] table. All fields are optional;
	// the section's presence is what marks a workspace root.
	WorkspaceSection struct {
		Name string `toml:"name,omitempty"`
	}

	// ParseError is returned when a zen.toml cannot be decoded.
	ParseError struct {
		Path string
		Err  error
	}
)

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing manifest %s: %v", e.Path, e.Err)
}

// Unwrap returns ErrParse so callers can use errors.Is; the decode cause is
// available via the Err field.
func (e *ParseError) Unwrap() error { return ErrParse }

// Parse decodes manifest contents. The path is used only for diagnostics.
func Parse(path string, data []byte) (*Manifest, error) {
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &m, nil
}

// Load reads and parses the manifest at path through the given provider.
func Load(fs fsaccess.Provider, path string) (*Manifest, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return Parse(path, data)
}

// HasWorkspace reports whether the manifest marks a workspace root.
func (m *Manifest) HasWorkspace() bool { return m.Workspace != nil }
