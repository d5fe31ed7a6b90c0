// SPDX-License-Identifier: MPL-2.0

package fsaccess

import (
	"path"
	"sort"
	"strings"
	"sync"
)

// MemProvider implements Provider over an in-memory tree of slash-separated
// absolute paths. It is safe for concurrent use. Production code uses OS();
// tests build a MemProvider with WriteFile/MkdirAll.
type MemProvider struct {
	mu    sync.RWMutex
	files map[string][]byte
	dirs  map[string]bool
}

// NewMem returns an empty in-memory provider with only the root directory.
func NewMem() *MemProvider {
	return &MemProvider{
		files: make(map[string][]byte),
		dirs:  map[string]bool{"/": true},
	}
}

// WriteFile stores contents at path, creating parent directories.
func (m *MemProvider) WriteFile(p string, contents []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = path.Clean(p)
	m.files[p] = contents
	m.makeParents(p)
}

// MkdirAll creates the directory at path and its parents.
func (m *MemProvider) MkdirAll(p string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = path.Clean(p)
	m.dirs[p] = true
	m.makeParents(p)
}

func (m *MemProvider) makeParents(p string) {
	for dir := path.Dir(p); ; dir = path.Dir(dir) {
		m.dirs[dir] = true
		if dir == "/" || dir == "." {
			return
		}
	}
}

// ReadFile implements Provider.
func (m *MemProvider) ReadFile(p string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[path.Clean(p)]
	if !ok {
		return nil, &AccessError{Op: "read", Path: p, Err: ErrNotFound}
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Exists implements Provider.
func (m *MemProvider) Exists(p string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p = path.Clean(p)
	_, isFile := m.files[p]
	return isFile || m.dirs[p]
}

// IsDir implements Provider.
func (m *MemProvider) IsDir(p string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dirs[path.Clean(p)]
}

// ListDir implements Provider.
func (m *MemProvider) ListDir(p string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p = path.Clean(p)
	if !m.dirs[p] {
		return nil, &AccessError{Op: "list", Path: p, Err: ErrNotFound}
	}

	seen := make(map[string]bool)
	prefix := p
	if prefix != "/" {
		prefix += "/"
	}
	collect := func(candidate string) {
		if !strings.HasPrefix(candidate, prefix) || candidate == p {
			return
		}
		rest := strings.TrimPrefix(candidate, prefix)
		if i := strings.Index(rest, "/"); i >= 0 {
			rest = rest[:i]
		}
		seen[rest] = true
	}
	for f := range m.files {
		collect(f)
	}
	for d := range m.dirs {
		collect(d)
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Canonicalize implements Provider. The in-memory tree has no symlinks, so
// canonicalization is cleaning plus an existence check.
func (m *MemProvider) Canonicalize(p string) (string, error) {
	cleaned := path.Clean(p)
	if !strings.HasPrefix(cleaned, "/") {
		return "", &AccessError{Op: "canonicalize", Path: p, Err: ErrNotFound}
	}
	if !m.Exists(cleaned) {
		return "", &AccessError{Op: "canonicalize", Path: p, Err: ErrNotFound}
	}
	return cleaned, nil
}
