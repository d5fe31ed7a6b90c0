// SPDX-License-Identifier: MPL-2.0

package resolver_test

import (
	"context"
	"errors"
	"testing"

	"zenload/pkg/fsaccess"
	"zenload/pkg/resolver"
)

func TestResolve_BuiltinAlias(t *testing.T) {
	t.Parallel()

	r, _, remote := newWorkspace(t, map[string]string{"/ws/a.zen": ""})
	remote.addRepo("github.com/diodeinc/stdlib/v0.2.9", map[string]string{
		"zen/generics/Resistor.zen": "module Resistor",
	})

	// The tag on the alias request pins the target repository's revision.
	got, err := r.ResolveText(context.Background(), "@stdlib:v0.2.9/zen/generics/Resistor.zen", "/ws/a.zen")
	if err != nil {
		t.Fatalf("ResolveText() error = %v", err)
	}
	want := "/cache/github.com/diodeinc/stdlib/v0.2.9/zen/generics/Resistor.zen"
	if got != want {
		t.Errorf("ResolveText() = %q, want %q", got, want)
	}
}

func TestResolve_BuiltinAlias_UntaggedTracksHead(t *testing.T) {
	t.Parallel()

	r, _, remote := newWorkspace(t, map[string]string{"/ws/a.zen": ""})
	remote.addRepo("github.com/diodeinc/stdlib/HEAD", map[string]string{
		"zen/Led.zen": "module Led",
	})

	got, err := r.ResolveText(context.Background(), "@stdlib/zen/Led.zen", "/ws/a.zen")
	if err != nil {
		t.Fatalf("ResolveText() error = %v", err)
	}
	if got != "/cache/github.com/diodeinc/stdlib/HEAD/zen/Led.zen" {
		t.Errorf("ResolveText() = %q", got)
	}
}

func TestResolve_ManifestAliasOverride(t *testing.T) {
	t.Parallel()

	mem := fsaccess.NewMem()
	mem.WriteFile("/ws/zen.toml", []byte("[workspace]\n\n[packages]\nparts = \"//lib\"\n"))
	mem.WriteFile("/ws/sub/zen.toml", []byte("[packages]\nparts = \"//other\"\n"))
	mem.WriteFile("/ws/lib/x.zen", nil)
	mem.WriteFile("/ws/other/x.zen", nil)
	mem.WriteFile("/ws/sub/a.zen", nil)
	mem.WriteFile("/ws/b.zen", nil)
	r := resolver.New(resolver.Options{FS: mem, WorkspaceRoot: "/ws"})
	ctx := context.Background()

	// From the workspace root the root manifest's entry applies.
	got, err := r.ResolveText(ctx, "@parts/x.zen", "/ws/b.zen")
	if err != nil {
		t.Fatalf("ResolveText() error = %v", err)
	}
	if got != "/ws/lib/x.zen" {
		t.Errorf("ResolveText() from root = %q, want /ws/lib/x.zen", got)
	}

	// A manifest closer to the loading file wins.
	got, err = r.ResolveText(ctx, "@parts/x.zen", "/ws/sub/a.zen")
	if err != nil {
		t.Fatalf("ResolveText() error = %v", err)
	}
	if got != "/ws/other/x.zen" {
		t.Errorf("ResolveText() from sub = %q, want /ws/other/x.zen", got)
	}
}

func TestResolve_AliasRelativeTargetAnchorsAtRoot(t *testing.T) {
	t.Parallel()

	// A relative alias target denotes a location under the workspace root,
	// not under the loading file's directory.
	mem := fsaccess.NewMem()
	mem.WriteFile("/ws/zen.toml", []byte("[workspace]\n\n[packages]\nparts = \"parts\"\n"))
	mem.WriteFile("/ws/parts/r.zen", nil)
	mem.WriteFile("/ws/sub/deep/a.zen", nil)
	r := resolver.New(resolver.Options{FS: mem, WorkspaceRoot: "/ws"})

	got, err := r.ResolveText(context.Background(), "@parts/r.zen", "/ws/sub/deep/a.zen")
	if err != nil {
		t.Fatalf("ResolveText() error = %v", err)
	}
	if got != "/ws/parts/r.zen" {
		t.Errorf("ResolveText() = %q, want /ws/parts/r.zen", got)
	}
}

func TestResolve_AliasChain(t *testing.T) {
	t.Parallel()

	mem := fsaccess.NewMem()
	mem.WriteFile("/ws/zen.toml", []byte("[workspace]\n\n[packages]\ncore = \"@base\"\nbase = \"//lib\"\n"))
	mem.WriteFile("/ws/lib/x.zen", nil)
	mem.WriteFile("/ws/a.zen", nil)
	r := resolver.New(resolver.Options{FS: mem, WorkspaceRoot: "/ws"})

	got, err := r.ResolveText(context.Background(), "@core/x.zen", "/ws/a.zen")
	if err != nil {
		t.Fatalf("ResolveText() error = %v", err)
	}
	if got != "/ws/lib/x.zen" {
		t.Errorf("ResolveText() = %q, want /ws/lib/x.zen", got)
	}
}

func TestResolve_AliasCycle(t *testing.T) {
	t.Parallel()

	mem := fsaccess.NewMem()
	mem.WriteFile("/ws/zen.toml", []byte("[workspace]\n\n[packages]\na = \"@b\"\nb = \"@a\"\n"))
	mem.WriteFile("/ws/f.zen", nil)
	r := resolver.New(resolver.Options{FS: mem, WorkspaceRoot: "/ws"})

	_, err := r.ResolveText(context.Background(), "@a/x.zen", "/ws/f.zen")
	if err == nil {
		t.Fatal("ResolveText() returned nil for alias cycle")
	}
	if !errors.Is(err, resolver.ErrAliasCycle) {
		t.Errorf("error should wrap ErrAliasCycle, got: %v", err)
	}
	var cycErr *resolver.AliasCycleError
	if !errors.As(err, &cycErr) {
		t.Fatalf("error should be *AliasCycleError, got: %T", err)
	}
	if len(cycErr.Chain) == 0 || cycErr.Chain[0] != "a" {
		t.Errorf("AliasCycleError.Chain = %v, want chain starting at a", cycErr.Chain)
	}
}

func TestResolve_UnknownAlias(t *testing.T) {
	t.Parallel()

	r, _, _ := newWorkspace(t, map[string]string{"/ws/a.zen": ""})

	_, err := r.ResolveText(context.Background(), "@nope/x.zen", "/ws/a.zen")
	if err == nil {
		t.Fatal("ResolveText() returned nil for unknown alias")
	}
	if !errors.Is(err, resolver.ErrUnknownAlias) {
		t.Errorf("error should wrap ErrUnknownAlias, got: %v", err)
	}
	var unkErr *resolver.UnknownAliasError
	if !errors.As(err, &unkErr) {
		t.Fatalf("error should be *UnknownAliasError, got: %T", err)
	}
	if unkErr.Name != "nope" {
		t.Errorf("UnknownAliasError.Name = %q", unkErr.Name)
	}
}

func TestAliasesFor(t *testing.T) {
	t.Parallel()

	mem := fsaccess.NewMem()
	mem.WriteFile("/ws/zen.toml", []byte("[workspace]\n\n[packages]\nstdlib = \"@github/acme/forked-stdlib\"\nparts = \"//lib\"\n"))
	mem.WriteFile("/ws/a.zen", nil)
	r := resolver.New(resolver.Options{FS: mem, WorkspaceRoot: "/ws"})

	table, err := r.AliasesFor("/ws/a.zen")
	if err != nil {
		t.Fatalf("AliasesFor() error = %v", err)
	}

	// Manifest entries override built-ins; untouched built-ins remain.
	if got := table["stdlib"]; got != "@github/acme/forked-stdlib" {
		t.Errorf("table[stdlib] = %q, want manifest override", got)
	}
	if got := table["kicad"]; got != "@gitlab/kicad/libraries/kicad-symbols" {
		t.Errorf("table[kicad] = %q, want built-in default", got)
	}
	if got := table["parts"]; got != "//lib" {
		t.Errorf("table[parts] = %q", got)
	}
}

func TestBuiltinAliases_ReturnsCopy(t *testing.T) {
	t.Parallel()

	a := resolver.BuiltinAliases()
	a["stdlib"] = "mutated"
	b := resolver.BuiltinAliases()
	if b["stdlib"] == "mutated" {
		t.Error("BuiltinAliases() returned shared map")
	}
}
