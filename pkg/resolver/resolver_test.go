// SPDX-License-Identifier: MPL-2.0

package resolver_test

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sync"
	"testing"

	"zenload/pkg/fetcher"
	"zenload/pkg/fsaccess"
	"zenload/pkg/loadspec"
	"zenload/pkg/resolver"
)

// fakeRemote is a scripted fetcher. Fetching a known repository writes its
// files into the shared in-memory tree under /cache/<cacheKey> and returns
// that directory; unknown repositories fail.
type fakeRemote struct {
	mem *fsaccess.MemProvider

	// repos maps RemoteRef cache keys to relative-path -> contents.
	repos map[string]map[string]string

	// meta maps ref strings to scripted RefMeta answers.
	meta map[string]*loadspec.RemoteRefMeta

	mu      sync.Mutex
	fetches map[string]int
}

func newFakeRemote(mem *fsaccess.MemProvider) *fakeRemote {
	return &fakeRemote{
		mem:     mem,
		repos:   make(map[string]map[string]string),
		meta:    make(map[string]*loadspec.RemoteRefMeta),
		fetches: make(map[string]int),
	}
}

func (f *fakeRemote) addRepo(key string, files map[string]string) {
	f.repos[key] = files
}

func (f *fakeRemote) fetchCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches[key]
}

func (f *fakeRemote) Fetch(_ context.Context, spec loadspec.LoadSpec, _ string) (string, error) {
	ref, ok := spec.Ref()
	if !ok {
		return "", fmt.Errorf("%w: %s is not remote", fetcher.ErrFetchFailed, spec.LoadString())
	}
	key := ref.CacheKey()

	files, ok := f.repos[key]
	if !ok {
		return "", fmt.Errorf("%w: unknown repository %s", fetcher.ErrFetchFailed, ref)
	}

	f.mu.Lock()
	f.fetches[key]++
	f.mu.Unlock()

	root := "/cache/" + key
	for rel, contents := range files {
		f.mem.WriteFile(path.Join(root, rel), []byte(contents))
	}
	return root, nil
}

func (f *fakeRemote) RefMeta(_ context.Context, ref loadspec.RemoteRef) (*loadspec.RemoteRefMeta, error) {
	if m, ok := f.meta[ref.String()]; ok {
		return m, nil
	}
	return nil, fmt.Errorf("%w: no metadata for %s", fetcher.ErrFetchFailed, ref)
}

// newWorkspace builds an in-memory workspace at /ws with a [workspace]
// manifest and the given extra files, then returns a resolver over it.
func newWorkspace(t *testing.T, files map[string]string) (*resolver.Resolver, *fsaccess.MemProvider, *fakeRemote) {
	t.Helper()

	mem := fsaccess.NewMem()
	mem.WriteFile("/ws/zen.toml", []byte("[workspace]\n"))
	for p, contents := range files {
		mem.WriteFile(p, []byte(contents))
	}

	remote := newFakeRemote(mem)
	r := resolver.New(resolver.Options{
		FS:            mem,
		Fetcher:       remote,
		WorkspaceRoot: "/ws",
	})
	return r, mem, remote
}

func TestResolve_RelativePath(t *testing.T) {
	t.Parallel()

	r, _, _ := newWorkspace(t, map[string]string{
		"/ws/sub/a.zen":   "",
		"/ws/sub/b.zen":   "",
		"/ws/lib/c.zen":   "",
		"/ws/sub/d/e.zen": "",
	})
	ctx := context.Background()

	tests := []struct {
		name string
		load string
		want string
	}{
		{"sibling", "b.zen", "/ws/sub/b.zen"},
		{"parent traversal", "../lib/c.zen", "/ws/lib/c.zen"},
		{"child directory", "d/e.zen", "/ws/sub/d/e.zen"},
		{"redundant segments", "./d/../b.zen", "/ws/sub/b.zen"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := r.ResolveText(ctx, tt.load, "/ws/sub/a.zen")
			if err != nil {
				t.Fatalf("ResolveText(%q) error = %v", tt.load, err)
			}
			if got != tt.want {
				t.Errorf("ResolveText(%q) = %q, want %q", tt.load, got, tt.want)
			}
		})
	}
}

func TestResolve_WorkspacePath(t *testing.T) {
	t.Parallel()

	r, _, _ := newWorkspace(t, map[string]string{
		"/ws/sub/deep/a.zen": "",
		"/ws/lib/c.zen":      "",
	})

	got, err := r.ResolveText(context.Background(), "//lib/c.zen", "/ws/sub/deep/a.zen")
	if err != nil {
		t.Fatalf("ResolveText() error = %v", err)
	}
	if got != "/ws/lib/c.zen" {
		t.Errorf("ResolveText(//lib/c.zen) = %q, want /ws/lib/c.zen", got)
	}
}

func TestResolve_WorkspaceRootFromManifest(t *testing.T) {
	t.Parallel()

	// No WorkspaceRoot option: the [workspace] manifest on the ancestry
	// determines the root.
	mem := fsaccess.NewMem()
	mem.WriteFile("/proj/zen.toml", []byte("[workspace]\n"))
	mem.WriteFile("/proj/sub/a.zen", nil)
	mem.WriteFile("/proj/lib/c.zen", nil)

	r := resolver.New(resolver.Options{FS: mem})
	got, err := r.ResolveText(context.Background(), "//lib/c.zen", "/proj/sub/a.zen")
	if err != nil {
		t.Fatalf("ResolveText() error = %v", err)
	}
	if got != "/proj/lib/c.zen" {
		t.Errorf("ResolveText() = %q, want /proj/lib/c.zen", got)
	}
}

func TestResolve_AbsolutePath(t *testing.T) {
	t.Parallel()

	r, mem, _ := newWorkspace(t, nil)
	mem.WriteFile("/elsewhere/x.zen", nil)

	got, err := r.ResolveText(context.Background(), "/elsewhere/x.zen", "/ws/a.zen")
	if err != nil {
		t.Fatalf("ResolveText() error = %v", err)
	}
	if got != "/elsewhere/x.zen" {
		t.Errorf("ResolveText() = %q", got)
	}
}

func TestResolve_NotFound(t *testing.T) {
	t.Parallel()

	r, _, _ := newWorkspace(t, map[string]string{"/ws/a.zen": ""})

	_, err := r.ResolveText(context.Background(), "missing.zen", "/ws/a.zen")
	if err == nil {
		t.Fatal("ResolveText() returned nil for missing file")
	}
	if !errors.Is(err, resolver.ErrFileNotFound) {
		t.Errorf("error should wrap ErrFileNotFound, got: %v", err)
	}
	var nfErr *resolver.NotFoundError
	if !errors.As(err, &nfErr) {
		t.Fatalf("error should be *NotFoundError, got: %T", err)
	}
	if nfErr.Spec != "missing.zen" {
		t.Errorf("NotFoundError.Spec = %q", nfErr.Spec)
	}
}

func TestResolve_RemoteSpec(t *testing.T) {
	t.Parallel()

	r, _, remote := newWorkspace(t, map[string]string{"/ws/a.zen": ""})
	remote.addRepo("github.com/diodeinc/stdlib/v0.2.9", map[string]string{
		"zen/Led.zen": "module Led",
	})

	got, err := r.ResolveText(context.Background(), "@github/diodeinc/stdlib:v0.2.9/zen/Led.zen", "/ws/a.zen")
	if err != nil {
		t.Fatalf("ResolveText() error = %v", err)
	}
	want := "/cache/github.com/diodeinc/stdlib/v0.2.9/zen/Led.zen"
	if got != want {
		t.Errorf("ResolveText() = %q, want %q", got, want)
	}

	// Provenance is recorded for the fetched file.
	ref, ok := r.RemoteRef(got)
	if !ok {
		t.Fatal("RemoteRef() ok = false for fetched file")
	}
	if ref.User != "diodeinc" || ref.Repo != "stdlib" || ref.Rev != "v0.2.9" {
		t.Errorf("RemoteRef() = %+v", ref)
	}
}

func TestResolve_RemoteSpec_Idempotent(t *testing.T) {
	t.Parallel()

	r, _, remote := newWorkspace(t, map[string]string{"/ws/a.zen": ""})
	remote.addRepo("github.com/diodeinc/stdlib/v0.2.9", map[string]string{
		"zen/Led.zen": "module Led",
	})
	ctx := context.Background()

	first, err := r.ResolveText(ctx, "@github/diodeinc/stdlib:v0.2.9/zen/Led.zen", "/ws/a.zen")
	if err != nil {
		t.Fatalf("first ResolveText() error = %v", err)
	}
	second, err := r.ResolveText(ctx, "@github/diodeinc/stdlib:v0.2.9/zen/Led.zen", "/ws/a.zen")
	if err != nil {
		t.Fatalf("second ResolveText() error = %v", err)
	}
	if first != second {
		t.Errorf("repeated resolution differs: %q vs %q", first, second)
	}
}

func TestResolve_VendorHitSkipsFetch(t *testing.T) {
	t.Parallel()

	r, mem, remote := newWorkspace(t, map[string]string{"/ws/a.zen": ""})
	mem.WriteFile("/ws/vendor/github.com/diodeinc/stdlib/v0.2.9/zen/Led.zen", []byte("module Led"))

	got, err := r.ResolveText(context.Background(), "@github/diodeinc/stdlib:v0.2.9/zen/Led.zen", "/ws/a.zen")
	if err != nil {
		t.Fatalf("ResolveText() error = %v", err)
	}
	want := "/ws/vendor/github.com/diodeinc/stdlib/v0.2.9/zen/Led.zen"
	if got != want {
		t.Errorf("ResolveText() = %q, want vendored %q", got, want)
	}
	if n := remote.fetchCount("github.com/diodeinc/stdlib/v0.2.9"); n != 0 {
		t.Errorf("fetch count = %d, want 0 (vendor hit)", n)
	}

	// The vendored file still carries remote provenance.
	if _, ok := r.RemoteRef(got); !ok {
		t.Error("RemoteRef() ok = false for vendored file")
	}
}

func TestResolve_ReanchoredLoadsFromVendoredFile(t *testing.T) {
	t.Parallel()

	// Loads performed from a vendored file stay inside the vendored
	// snapshot: relative and workspace-rooted siblings are served from the
	// vendor tree without any fetch, so they keep working offline.
	r, mem, remote := newWorkspace(t, map[string]string{"/ws/main.zen": ""})
	vend := "/ws/vendor/github.com/diodeinc/stdlib/v0.2.9"
	mem.WriteFile(vend+"/zen/Led.zen", []byte("module Led"))
	mem.WriteFile(vend+"/zen/Res.zen", []byte("module Res"))
	mem.WriteFile(vend+"/units.zen", []byte("module units"))
	ctx := context.Background()

	led, err := r.ResolveText(ctx, "@github/diodeinc/stdlib:v0.2.9/zen/Led.zen", "/ws/main.zen")
	if err != nil {
		t.Fatalf("ResolveText() error = %v", err)
	}
	if led != vend+"/zen/Led.zen" {
		t.Fatalf("ResolveText() = %q, want vendored path", led)
	}

	sibling, err := r.ResolveText(ctx, "Res.zen", led)
	if err != nil {
		t.Fatalf("ResolveText(Res.zen from vendored file) error = %v", err)
	}
	if sibling != vend+"/zen/Res.zen" {
		t.Errorf("ResolveText(Res.zen) = %q, want %q", sibling, vend+"/zen/Res.zen")
	}

	units, err := r.ResolveText(ctx, "//units.zen", led)
	if err != nil {
		t.Fatalf("ResolveText(//units.zen from vendored file) error = %v", err)
	}
	if units != vend+"/units.zen" {
		t.Errorf("ResolveText(//units.zen) = %q, want %q", units, vend+"/units.zen")
	}

	// The repository was never scripted into the fake, so any fetch would
	// have failed; assert none happened either way.
	if n := remote.fetchCount("github.com/diodeinc/stdlib/v0.2.9"); n != 0 {
		t.Errorf("fetch count = %d, want 0", n)
	}
}

func TestResolve_DisableVendorForcesFetch(t *testing.T) {
	t.Parallel()

	mem := fsaccess.NewMem()
	mem.WriteFile("/ws/zen.toml", []byte("[workspace]\n"))
	mem.WriteFile("/ws/a.zen", nil)
	mem.WriteFile("/ws/vendor/github.com/diodeinc/stdlib/v0.2.9/zen/Led.zen", []byte("stale"))

	remote := newFakeRemote(mem)
	remote.addRepo("github.com/diodeinc/stdlib/v0.2.9", map[string]string{
		"zen/Led.zen": "module Led",
	})
	r := resolver.New(resolver.Options{
		FS:            mem,
		Fetcher:       remote,
		WorkspaceRoot: "/ws",
		DisableVendor: true,
	})

	got, err := r.ResolveText(context.Background(), "@github/diodeinc/stdlib:v0.2.9/zen/Led.zen", "/ws/a.zen")
	if err != nil {
		t.Fatalf("ResolveText() error = %v", err)
	}
	if got != "/cache/github.com/diodeinc/stdlib/v0.2.9/zen/Led.zen" {
		t.Errorf("ResolveText() = %q, want fetched path", got)
	}
	if n := remote.fetchCount("github.com/diodeinc/stdlib/v0.2.9"); n != 1 {
		t.Errorf("fetch count = %d, want 1", n)
	}
}

func TestResolve_PackageVendorLayout(t *testing.T) {
	t.Parallel()

	r, mem, remote := newWorkspace(t, map[string]string{"/ws/a.zen": ""})
	mem.WriteFile("/ws/vendor/packages/stdlib/v0.2.9/zen/Led.zen", []byte("module Led"))

	got, err := r.ResolveText(context.Background(), "@stdlib:v0.2.9/zen/Led.zen", "/ws/a.zen")
	if err != nil {
		t.Fatalf("ResolveText() error = %v", err)
	}
	want := "/ws/vendor/packages/stdlib/v0.2.9/zen/Led.zen"
	if got != want {
		t.Errorf("ResolveText() = %q, want %q", got, want)
	}
	if n := remote.fetchCount("github.com/diodeinc/stdlib/v0.2.9"); n != 0 {
		t.Errorf("fetch count = %d, want 0 (package vendor hit)", n)
	}
}

func TestResolve_OfflineRejectsRemote(t *testing.T) {
	t.Parallel()

	mem := fsaccess.NewMem()
	mem.WriteFile("/ws/zen.toml", []byte("[workspace]\n"))
	mem.WriteFile("/ws/a.zen", nil)

	// The default fetcher is offline.
	r := resolver.New(resolver.Options{FS: mem, WorkspaceRoot: "/ws"})
	_, err := r.ResolveText(context.Background(), "@github/diodeinc/stdlib/x.zen", "/ws/a.zen")
	if !errors.Is(err, fetcher.ErrOfflineMode) {
		t.Errorf("error should wrap ErrOfflineMode, got: %v", err)
	}
}

func TestResolve_Concurrent(t *testing.T) {
	t.Parallel()

	r, _, remote := newWorkspace(t, map[string]string{
		"/ws/sub/a.zen": "",
		"/ws/sub/b.zen": "",
		"/ws/lib/c.zen": "",
	})
	remote.addRepo("github.com/diodeinc/stdlib/v0.2.9", map[string]string{
		"zen/Led.zen": "module Led",
	})
	ctx := context.Background()

	loads := []struct{ text, want string }{
		{"b.zen", "/ws/sub/b.zen"},
		{"../lib/c.zen", "/ws/lib/c.zen"},
		{"//lib/c.zen", "/ws/lib/c.zen"},
		{"@github/diodeinc/stdlib:v0.2.9/zen/Led.zen", "/cache/github.com/diodeinc/stdlib/v0.2.9/zen/Led.zen"},
	}

	var wg sync.WaitGroup
	for range 8 {
		for _, load := range loads {
			wg.Add(1)
			go func() {
				defer wg.Done()
				got, err := r.ResolveText(ctx, load.text, "/ws/sub/a.zen")
				if err != nil {
					t.Errorf("ResolveText(%q) error = %v", load.text, err)
					return
				}
				if got != load.want {
					t.Errorf("ResolveText(%q) = %q, want %q", load.text, got, load.want)
				}
			}()
		}
	}
	wg.Wait()
}

func TestResolve_ConcurrentAliasFromSiblings(t *testing.T) {
	t.Parallel()

	// Concurrent resolutions of the same package spec from sibling files
	// in one directory race on that directory's alias-table cache; all of
	// them must converge to the same path.
	mem := fsaccess.NewMem()
	mem.WriteFile("/ws/zen.toml", []byte("[workspace]\n"))
	const siblings = 8
	for i := range siblings {
		mem.WriteFile(fmt.Sprintf("/ws/sub/s%d.zen", i), nil)
	}

	remote := newFakeRemote(mem)
	remote.addRepo("github.com/diodeinc/stdlib/v0.2.9", map[string]string{
		"zen/Led.zen": "module Led",
	})
	r := resolver.New(resolver.Options{FS: mem, Fetcher: remote, WorkspaceRoot: "/ws"})
	ctx := context.Background()

	const want = "/cache/github.com/diodeinc/stdlib/v0.2.9/zen/Led.zen"
	results := make([]string, siblings)
	var wg sync.WaitGroup
	for i := range siblings {
		wg.Add(1)
		go func() {
			defer wg.Done()
			from := fmt.Sprintf("/ws/sub/s%d.zen", i)
			got, err := r.ResolveText(ctx, "@stdlib:v0.2.9/zen/Led.zen", from)
			if err != nil {
				t.Errorf("ResolveText() from %s error = %v", from, err)
				return
			}
			results[i] = got
		}()
	}
	wg.Wait()

	for i, got := range results {
		if got != want {
			t.Errorf("results[%d] = %q, want %q", i, got, want)
		}
	}

	// The racers left one coherent alias table behind for the directory.
	table, err := r.AliasesFor("/ws/sub/s0.zen")
	if err != nil {
		t.Fatalf("AliasesFor() error = %v", err)
	}
	if table["stdlib"] != "@github/diodeinc/stdlib" {
		t.Errorf("table[stdlib] = %q, want built-in default", table["stdlib"])
	}
}
