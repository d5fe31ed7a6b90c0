// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"zenload/pkg/fsaccess"
	"zenload/pkg/loadspec"
)

// recordProvenance inserts (path -> spec) into the provenance map. Entries
// are never removed for a resolver's lifetime; a racing duplicate insert
// writes the same value.
func (r *Resolver) recordProvenance(path string, spec loadspec.LoadSpec) {
	path = filepath.Clean(path)
	r.provMu.Lock()
	r.provenance[path] = spec
	r.provMu.Unlock()
}

// trackLocal marks a canonical path as resolved from the local filesystem.
func (r *Resolver) trackLocal(path string) {
	path = filepath.Clean(path)
	r.trackMu.Lock()
	r.trackedLocal[path] = struct{}{}
	r.trackMu.Unlock()
}

// SpecForPath returns the load spec that produced path, if resolution ever
// did. The path must be in canonical form (as returned by Resolve).
func (r *Resolver) SpecForPath(path string) (loadspec.LoadSpec, bool) {
	r.provMu.RLock()
	spec, ok := r.provenance[filepath.Clean(path)]
	r.provMu.RUnlock()
	return spec, ok
}

// RemoteRef returns the remote repository identity a path was fetched from.
// The second return is false for paths with no remote provenance.
func (r *Resolver) RemoteRef(path string) (loadspec.RemoteRef, bool) {
	spec, ok := r.SpecForPath(path)
	if !ok {
		return loadspec.RemoteRef{}, false
	}
	return spec.Ref()
}

// RemoteRefMeta queries the remote fetcher for metadata about a ref.
func (r *Resolver) RemoteRefMeta(ctx context.Context, ref loadspec.RemoteRef) (*loadspec.RemoteRefMeta, error) {
	return r.fetcher.RefMeta(ctx, ref)
}

// TrackFile registers an entry-point file that was not reached through a
// load (for example the file named on the command line). The path is
// canonicalized and must exist.
func (r *Resolver) TrackFile(path string) (string, error) {
	canonical, err := r.fs.Canonicalize(path)
	if err != nil {
		// Only genuine absences become NotFoundError; permission and I/O
		// failures keep their provider error.
		if errors.Is(err, fsaccess.ErrNotFound) {
			return "", fmt.Errorf("tracking %s: %w", path, &NotFoundError{Spec: path, Path: path})
		}
		return "", fmt.Errorf("tracking %s: %w", path, err)
	}
	r.trackLocal(canonical)
	return canonical, nil
}

// TrackedLocalFiles returns the sorted set of canonical paths resolved
// purely from the local filesystem.
func (r *Resolver) TrackedLocalFiles() []string {
	r.trackMu.RLock()
	out := make([]string, 0, len(r.trackedLocal))
	for path := range r.trackedLocal {
		out = append(out, path)
	}
	r.trackMu.RUnlock()
	sort.Strings(out)
	return out
}

// TrackedFiles returns every file resolution touched: tracked local files
// plus provenance entries that are real files (directories fetched from
// remotes are excluded).
func (r *Resolver) TrackedFiles() []string {
	seen := make(map[string]struct{})

	r.trackMu.RLock()
	for path := range r.trackedLocal {
		seen[path] = struct{}{}
	}
	r.trackMu.RUnlock()

	r.provMu.RLock()
	provPaths := make([]string, 0, len(r.provenance))
	for path := range r.provenance {
		provPaths = append(provPaths, path)
	}
	r.provMu.RUnlock()

	// Existence checks happen outside the lock.
	for _, path := range provPaths {
		if r.fs.Exists(path) && !r.fs.IsDir(path) {
			seen[path] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for path := range seen {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}
