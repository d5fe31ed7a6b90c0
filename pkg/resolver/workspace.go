// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"path/filepath"
	"strings"

	"zenload/pkg/fsaccess"
	"zenload/pkg/manifest"
)

// effectiveWorkspaceRoot determines the workspace or repository root that
// governs file, in order:
//
//  1. A file with remote provenance belongs to its fetched snapshot: the
//     root is found by walking up as many levels as the provenance spec's
//     path has components.
//  2. A file under the primary workspace root, and not under its vendor
//     directory, belongs to the primary workspace.
//  3. Otherwise (a vendored dependency or a stray local file) the nearest
//     ancestor manifest declaring a [workspace] section wins; without one,
//     the file's own directory is used.
//
// Results are cached per directory for the session; the filesystem is
// assumed stable while a resolver instance lives.
func (r *Resolver) effectiveWorkspaceRoot(file string) string {
	file = filepath.Clean(file)
	dir := filepath.Dir(file)

	r.rootMu.RLock()
	root, ok := r.rootCache[dir]
	r.rootMu.RUnlock()
	if ok {
		return root
	}

	root = r.computeWorkspaceRoot(file, dir)

	r.rootMu.Lock()
	if cached, ok := r.rootCache[dir]; ok {
		root = cached
	} else {
		r.rootCache[dir] = root
	}
	r.rootMu.Unlock()

	return root
}

func (r *Resolver) computeWorkspaceRoot(file, dir string) string {
	if owner, ok := r.SpecForPath(file); ok && owner.IsRemote() {
		return snapshotRoot(file, owner.Path)
	}

	if r.workspaceRoot != "" && isWithin(r.workspaceRoot, file) {
		vendorRoot := filepath.Join(r.workspaceRoot, r.vendorDir)
		if !isWithin(vendorRoot, file) {
			return r.workspaceRoot
		}
	}

	if found, ok := r.findWorkspaceManifest(dir); ok {
		return found
	}
	if r.workspaceRoot != "" {
		return r.workspaceRoot
	}
	return dir
}

// SnapshotRootFor returns the root directory of the fetched snapshot a
// resolved path belongs to, determined from its recorded provenance. The
// second return is false for paths without remote provenance.
func (r *Resolver) SnapshotRootFor(path string) (string, bool) {
	owner, ok := r.SpecForPath(path)
	if !ok || !owner.IsRemote() {
		return "", false
	}
	return snapshotRoot(filepath.Clean(path), owner.Path), true
}

// snapshotRoot walks up from file as many levels as specPath has
// components, landing on the root of the fetched snapshot the file came
// from. An empty specPath means file is the snapshot root itself.
func snapshotRoot(file, specPath string) string {
	if specPath == "" {
		return file
	}
	root := file
	for range strings.Split(specPath, "/") {
		root = filepath.Dir(root)
	}
	return root
}

// findWorkspaceManifest searches dir and its ancestors for a manifest with
// a [workspace] section.
func (r *Resolver) findWorkspaceManifest(dir string) (string, bool) {
	return FindWorkspaceRoot(r.fs, dir)
}

// FindWorkspaceRoot searches dir and its ancestors for a manifest declaring
// a [workspace] section and returns the directory containing it. Manifests
// that fail to parse during the search are skipped rather than aborting
// root discovery.
func FindWorkspaceRoot(fs fsaccess.Provider, dir string) (string, bool) {
	for d := filepath.Clean(dir); ; d = filepath.Dir(d) {
		manifestPath := filepath.Join(d, manifest.FileName)
		if fs.Exists(manifestPath) {
			if m, err := manifest.Load(fs, manifestPath); err == nil && m.HasWorkspace() {
				return d, true
			}
		}
		if d == filepath.Dir(d) {
			return "", false
		}
	}
}

// isWithin reports whether target equals root or lies underneath it.
func isWithin(root, target string) bool {
	root = filepath.Clean(root)
	target = filepath.Clean(target)
	return target == root || strings.HasPrefix(target, root+string(filepath.Separator))
}
