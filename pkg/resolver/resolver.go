// SPDX-License-Identifier: MPL-2.0

// Package resolver turns load specs into concrete local file paths. One
// Resolver instance serves one build/evaluation session; it owns four
// append-only caches (alias tables, workspace roots, provenance, tracked
// files) that are populated lazily and discarded with the session.
//
// Resolution is provenance-aware: when a file obtained from a remote
// repository performs further relative or workspace-rooted loads, those
// loads resolve against the file's origin repository rather than the local
// filesystem.
package resolver

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"zenload/pkg/fetcher"
	"zenload/pkg/fsaccess"
	"zenload/pkg/loadspec"
)

// DefaultVendorDir is the vendor directory name under the workspace root.
const DefaultVendorDir = "vendor"

type (
	// Options configures a Resolver.
	Options struct {
		// FS is the file access provider. Defaults to the OS provider.
		FS fsaccess.Provider

		// Fetcher materializes remote specs. Defaults to the offline
		// fetcher, which rejects every remote load.
		Fetcher fetcher.Remote

		// WorkspaceRoot is the primary workspace root. Files under it
		// (outside the vendor directory) resolve workspace paths against
		// it without a manifest search.
		WorkspaceRoot string

		// VendorDir is the vendor directory name relative to the
		// workspace root. Defaults to DefaultVendorDir.
		VendorDir string

		// DisableVendor skips the vendor-directory lookup and always goes
		// to the fetcher for remote specs.
		DisableVendor bool

		// DefaultAliases overrides the built-in package aliases. Leave
		// nil to keep the defaults.
		DefaultAliases map[string]string
	}

	// Resolver resolves load specs for one session. Safe for concurrent
	// use: each cache is independently lock-guarded with short critical
	// sections, and no lock is held across a fetch or filesystem call.
	Resolver struct {
		fs      fsaccess.Provider
		fetcher fetcher.Remote

		workspaceRoot  string
		vendorDir      string
		vendorEnabled  bool
		defaultAliases map[string]string

		aliasMu    sync.RWMutex
		aliasCache map[string]AliasTable

		rootMu    sync.RWMutex
		rootCache map[string]string

		provMu     sync.RWMutex
		provenance map[string]loadspec.LoadSpec

		trackMu      sync.RWMutex
		trackedLocal map[string]struct{}
	}
)

// New creates a resolver for one build session.
func New(opts Options) *Resolver {
	fs := opts.FS
	if fs == nil {
		fs = fsaccess.OS()
	}
	remote := opts.Fetcher
	if remote == nil {
		remote = fetcher.NewOffline()
	}
	vendorDir := opts.VendorDir
	if vendorDir == "" {
		vendorDir = DefaultVendorDir
	}
	defaults := opts.DefaultAliases
	if defaults == nil {
		defaults = builtinAliases
	}

	workspaceRoot := opts.WorkspaceRoot
	if workspaceRoot != "" {
		if canonical, err := fs.Canonicalize(workspaceRoot); err == nil {
			workspaceRoot = canonical
		} else {
			workspaceRoot = filepath.Clean(workspaceRoot)
		}
	}

	return &Resolver{
		fs:             fs,
		fetcher:        remote,
		workspaceRoot:  workspaceRoot,
		vendorDir:      vendorDir,
		vendorEnabled:  !opts.DisableVendor,
		defaultAliases: defaults,
		aliasCache:     make(map[string]AliasTable),
		rootCache:      make(map[string]string),
		provenance:     make(map[string]loadspec.LoadSpec),
		trackedLocal:   make(map[string]struct{}),
	}
}

// WorkspaceRoot returns the primary workspace root, which may be empty.
func (r *Resolver) WorkspaceRoot() string { return r.workspaceRoot }

// ResolveText parses a load string and resolves it from currentFile.
func (r *Resolver) ResolveText(ctx context.Context, loadString, currentFile string) (string, error) {
	spec, err := loadspec.Parse(loadString)
	if err != nil {
		return "", err
	}
	return r.Resolve(ctx, spec, currentFile)
}

// Resolve produces the concrete, existing local path the spec refers to
// when loaded from currentFile, recording provenance and tracking side
// effects along the way. Resolution of the same (spec, currentFile) pair is
// idempotent for a resolver's lifetime.
func (r *Resolver) Resolve(ctx context.Context, spec loadspec.LoadSpec, currentFile string) (string, error) {
	currentFile = filepath.Clean(currentFile)

	// A relative or workspace-rooted load performed from inside a fetched
	// snapshot stays inside that snapshot: synthesize a spec of the same
	// remote kind and resolve that instead.
	if owner, ok := r.SpecForPath(currentFile); ok && owner.IsRemote() {
		if synthesized, ok, err := synthesizeRemote(owner, spec); err != nil {
			return "", err
		} else if ok {
			return r.Resolve(ctx, synthesized, currentFile)
		}
	}

	aliasDerived := false
	if spec.Kind == loadspec.KindPackage {
		if hit, ok := r.vendorLookupPackage(spec, currentFile); ok {
			return hit, nil
		}
		substituted, aliasRelative, err := r.substituteAlias(spec, currentFile)
		if err != nil {
			return "", err
		}
		spec = substituted
		aliasDerived = aliasRelative
	}

	switch spec.Kind {
	case loadspec.KindGithub, loadspec.KindGitlab:
		return r.resolveRemote(ctx, spec, currentFile)
	case loadspec.KindWorkspacePath:
		root := r.effectiveWorkspaceRoot(currentFile)
		return r.finishLocal(spec, filepath.Join(root, filepath.FromSlash(spec.Path)))
	case loadspec.KindPath:
		return r.resolveLocalPath(spec, currentFile, aliasDerived)
	default:
		return "", fmt.Errorf("cannot resolve %s: unsupported spec kind %s", spec.LoadString(), spec.Kind)
	}
}

// synthesizeRemote re-anchors a relative or workspace-rooted spec inside
// the remote repository that owner was fetched from. The second return is
// false when the spec kind is not subject to re-anchoring.
func synthesizeRemote(owner, spec loadspec.LoadSpec) (loadspec.LoadSpec, bool, error) {
	switch {
	case spec.Kind == loadspec.KindPath && !spec.IsAbs():
		joined := path.Join(path.Dir(owner.Path), spec.Path)
		if joined == ".." || strings.HasPrefix(joined, "../") {
			return loadspec.LoadSpec{}, false, &NotFoundError{Spec: spec.LoadString(), Path: joined}
		}
		if joined == "." {
			joined = ""
		}
		return owner.WithPath(joined), true, nil
	case spec.Kind == loadspec.KindWorkspacePath:
		// Workspace-relative inside a remote repository means "from that
		// repository's root".
		return owner.WithPath(spec.Path), true, nil
	default:
		return loadspec.LoadSpec{}, false, nil
	}
}

// resolveRemote serves a remote spec from the loading file's own snapshot
// when both share a remote identity, then from the vendor directory, and
// from the fetcher otherwise, recording provenance for the resolved path.
func (r *Resolver) resolveRemote(ctx context.Context, spec loadspec.LoadSpec, currentFile string) (string, error) {
	ref, _ := spec.Ref()

	// A load re-anchored into the repository currentFile came from is
	// served from that already-materialized snapshot, whether it lives in
	// the vendor tree or the fetch cache. Snapshots are immutable, so the
	// sibling is there if it exists at all.
	if owner, ok := r.SpecForPath(currentFile); ok && owner.IsRemote() {
		if ownerRef, _ := owner.Ref(); ownerRef == ref {
			candidate := filepath.Join(snapshotRoot(currentFile, owner.Path), filepath.FromSlash(spec.Path))
			if r.fs.Exists(candidate) {
				canonical, err := r.fs.Canonicalize(candidate)
				if err == nil {
					r.recordProvenance(canonical, spec)
					return canonical, nil
				}
			}
		}
	}

	if r.vendorEnabled {
		// The vendor tree belongs to the primary workspace, not to
		// whatever snapshot currentFile may have come from.
		candidate := filepath.Join(r.vendorBase(currentFile), r.vendorDir, filepath.FromSlash(ref.CacheKey()), filepath.FromSlash(spec.Path))
		if r.fs.Exists(candidate) {
			canonical, err := r.fs.Canonicalize(candidate)
			if err != nil {
				return "", &NotFoundError{Spec: spec.LoadString(), Path: candidate}
			}
			r.recordProvenance(canonical, spec)
			return canonical, nil
		}
	}

	snapshotDir, err := r.fetcher.Fetch(ctx, spec, r.vendorBase(currentFile))
	if err != nil {
		return "", err
	}
	target := filepath.Join(snapshotDir, filepath.FromSlash(spec.Path))
	canonical, err := r.fs.Canonicalize(target)
	if err != nil {
		return "", &NotFoundError{Spec: spec.LoadString(), Path: target}
	}
	r.recordProvenance(canonical, spec)
	return canonical, nil
}

// vendorBase returns the root whose vendor directory is consulted: the
// primary workspace root when configured, else the loading file's
// effective root.
func (r *Resolver) vendorBase(currentFile string) string {
	if r.workspaceRoot != "" {
		return r.workspaceRoot
	}
	return r.effectiveWorkspaceRoot(currentFile)
}

// vendorLookupPackage checks the vendor layout for a package spec before
// alias substitution: vendor/packages/<package>/<tag>/<path>.
func (r *Resolver) vendorLookupPackage(spec loadspec.LoadSpec, currentFile string) (string, bool) {
	if !r.vendorEnabled {
		return "", false
	}
	tag := spec.Tag
	if tag == "" {
		tag = "HEAD"
	}
	candidate := filepath.Join(r.vendorBase(currentFile), r.vendorDir, "packages", spec.Package, tag, filepath.FromSlash(spec.Path))
	if !r.fs.Exists(candidate) {
		return "", false
	}
	canonical, err := r.fs.Canonicalize(candidate)
	if err != nil {
		return "", false
	}
	r.recordProvenance(canonical, spec)
	return canonical, true
}

// resolveLocalPath resolves a plain path spec. Absolute paths stand alone;
// relative paths anchor at the loading file's directory, except
// alias-derived ones, which anchor at the workspace root because an alias
// always denotes a top-level dependency location.
func (r *Resolver) resolveLocalPath(spec loadspec.LoadSpec, currentFile string, aliasDerived bool) (string, error) {
	p := filepath.FromSlash(spec.Path)
	switch {
	case spec.IsAbs():
		return r.finishLocal(spec, p)
	case aliasDerived:
		root := r.effectiveWorkspaceRoot(currentFile)
		return r.finishLocal(spec, filepath.Join(root, p))
	default:
		return r.finishLocal(spec, filepath.Join(filepath.Dir(currentFile), p))
	}
}

// finishLocal canonicalizes a local target, requires that it exists, and
// registers it as a tracked local file.
func (r *Resolver) finishLocal(spec loadspec.LoadSpec, target string) (string, error) {
	canonical, err := r.fs.Canonicalize(target)
	if err != nil {
		return "", &NotFoundError{Spec: spec.LoadString(), Path: target}
	}
	if !r.fs.Exists(canonical) {
		return "", &NotFoundError{Spec: spec.LoadString(), Path: canonical}
	}
	r.trackLocal(canonical)
	return canonical, nil
}
