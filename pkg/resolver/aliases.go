// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"path/filepath"
	"strings"

	"zenload/pkg/loadspec"
	"zenload/pkg/manifest"
)

// maxAliasDepth bounds alias-to-alias substitution. Legitimate chains are
// one or two links deep; anything longer is treated as a cycle.
const maxAliasDepth = 32

// builtinAliases are the default package aliases available everywhere.
// Manifest-declared entries override them.
var builtinAliases = map[string]string{
	"stdlib": "@github/diodeinc/stdlib",
	"kicad":  "@gitlab/kicad/libraries/kicad-symbols",
}

// AliasTable maps alias names to load-spec strings. Tables are immutable
// once built and cached per directory.
type AliasTable map[string]string

// BuiltinAliases returns a copy of the default package alias table.
func BuiltinAliases() map[string]string {
	out := make(map[string]string, len(builtinAliases))
	for name, spec := range builtinAliases {
		out[name] = spec
	}
	return out
}

// AliasesFor returns the merged alias table governing loads from file.
// Manifests are collected from every directory between the file and its
// effective workspace root and folded root-to-leaf, so entries closer to
// the file win; unspecified names fall back to the built-in defaults.
func (r *Resolver) AliasesFor(file string) (AliasTable, error) {
	dir := filepath.Dir(filepath.Clean(file))

	r.aliasMu.RLock()
	table, ok := r.aliasCache[dir]
	r.aliasMu.RUnlock()
	if ok {
		return table, nil
	}

	table, err := r.buildAliasTable(file, dir)
	if err != nil {
		return nil, err
	}

	// A losing racer's table is identical (the filesystem is assumed
	// stable for the session), so keep whichever landed first.
	r.aliasMu.Lock()
	if cached, ok := r.aliasCache[dir]; ok {
		table = cached
	} else {
		r.aliasCache[dir] = table
	}
	r.aliasMu.Unlock()

	return table, nil
}

func (r *Resolver) buildAliasTable(file, dir string) (AliasTable, error) {
	root := r.effectiveWorkspaceRoot(file)
	chain := ancestorChain(dir, root)

	table := make(AliasTable, len(r.defaultAliases))
	for name, spec := range r.defaultAliases {
		table[name] = spec
	}

	// chain is leaf-to-root; fold in reverse so deeper manifests override
	// shallower ones.
	for i := len(chain) - 1; i >= 0; i-- {
		manifestPath := filepath.Join(chain[i], manifest.FileName)
		if !r.fs.Exists(manifestPath) {
			continue
		}
		m, err := manifest.Load(r.fs, manifestPath)
		if err != nil {
			return nil, err
		}
		r.registerManifest(file, manifestPath, root)
		for name, spec := range m.Packages {
			table[name] = spec
		}
	}

	return table, nil
}

// registerManifest records a manifest discovered during alias resolution:
// as a tracked local file, or, when the loading file came from a remote
// snapshot, as a provenance entry addressing the manifest inside that same
// repository.
func (r *Resolver) registerManifest(file, manifestPath, root string) {
	if owner, ok := r.SpecForPath(file); ok && owner.IsRemote() {
		rel, err := filepath.Rel(root, manifestPath)
		if err == nil && !strings.HasPrefix(rel, "..") {
			r.recordProvenance(manifestPath, owner.WithPath(filepath.ToSlash(rel)))
			return
		}
	}
	r.trackLocal(manifestPath)
}

// ancestorChain lists dir and its ancestors up to and including root,
// leaf-first. When dir lies outside root the chain stops at dir's
// filesystem root instead.
func ancestorChain(dir, root string) []string {
	var chain []string
	for d := dir; ; d = filepath.Dir(d) {
		chain = append(chain, d)
		if d == root || d == filepath.Dir(d) {
			return chain
		}
	}
}

// substituteAlias resolves a package spec through the alias table for file.
// The returned bool reports whether the substitution produced a relative
// local path, which anchors at the workspace root rather than the loading
// file's directory (an alias always denotes a top-level dependency
// location). Alias-to-alias chains are followed with a visited set and a
// depth bound; revisiting a name fails with AliasCycleError.
func (r *Resolver) substituteAlias(spec loadspec.LoadSpec, file string) (loadspec.LoadSpec, bool, error) {
	table, err := r.AliasesFor(file)
	if err != nil {
		return loadspec.LoadSpec{}, false, err
	}

	current := spec
	visited := make(map[string]bool)
	chain := []string{spec.Package}

	for depth := 0; depth < maxAliasDepth; depth++ {
		if visited[current.Package] {
			return loadspec.LoadSpec{}, false, &AliasCycleError{Chain: chain}
		}
		visited[current.Package] = true

		targetText, ok := table[current.Package]
		if !ok {
			return loadspec.LoadSpec{}, false, &UnknownAliasError{Name: current.Package, File: file}
		}
		target, err := loadspec.Parse(targetText)
		if err != nil {
			return loadspec.LoadSpec{}, false, err
		}

		merged := mergeAliasTarget(target, current)
		if merged.Kind == loadspec.KindPackage {
			chain = append(chain, merged.Package)
			current = merged
			continue
		}
		aliasRelative := merged.Kind == loadspec.KindPath && !merged.IsAbs()
		return merged, aliasRelative, nil
	}

	return loadspec.LoadSpec{}, false, &AliasCycleError{Chain: chain}
}

// mergeAliasTarget combines an alias target with the requesting package
// spec: the request's trailing path is appended to the target's path, and
// the request's tag pins the target's revision (or tag, for package
// targets) when set.
func mergeAliasTarget(target, request loadspec.LoadSpec) loadspec.LoadSpec {
	merged := target
	if request.Path != "" {
		joined := request.Path
		if target.Path != "" {
			joined = target.Path + "/" + request.Path
		}
		merged = merged.WithPath(joined)
	}
	if request.Tag != "" {
		switch merged.Kind {
		case loadspec.KindPackage:
			merged.Tag = request.Tag
		case loadspec.KindGithub, loadspec.KindGitlab:
			merged.Rev = request.Tag
		}
	}
	return merged
}
