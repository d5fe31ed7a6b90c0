// SPDX-License-Identifier: MPL-2.0

package fetcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
	"github.com/go-git/go-git/v5/storage/memory"
	"golang.org/x/mod/semver"

	"zenload/pkg/loadspec"
)

// Git implements Remote using go-git. Snapshots are checked out under the
// cache directory keyed by host/owner/repo/rev, so a given (repo, rev) pair
// is cloned at most once per cache.
type Git struct {
	// cacheDir is the base directory for checked-out snapshots.
	cacheDir string

	// auth is the authentication method used for all git operations.
	auth transport.AuthMethod
}

// NewGit creates a git fetcher rooted at cacheDir. Pass an empty cacheDir
// to use the default (ZEN_CACHE_PATH or ~/.zen/cache).
func NewGit(cacheDir string) (*Git, error) {
	if cacheDir == "" {
		var err error
		cacheDir, err = DefaultCacheDir()
		if err != nil {
			return nil, fmt.Errorf("determining cache directory: %w", err)
		}
	}
	abs, err := filepath.Abs(cacheDir)
	if err != nil {
		return nil, fmt.Errorf("resolving cache directory: %w", err)
	}
	f := &Git{cacheDir: abs}
	f.setupAuth()
	return f, nil
}

// CacheDir returns the base directory for checked-out snapshots.
func (f *Git) CacheDir() string { return f.cacheDir }

// Fetch implements Remote. The returned directory is the repository root of
// the requested snapshot.
func (f *Git) Fetch(ctx context.Context, spec loadspec.LoadSpec, _ string) (string, error) {
	ref, ok := spec.Ref()
	if !ok {
		return "", fmt.Errorf("%w: %s is not a remote spec (aliases must be substituted before fetching)",
			ErrFetchFailed, spec.LoadString())
	}

	dest := filepath.Join(f.cacheDir, filepath.FromSlash(ref.CacheKey()))

	// A completed checkout is immutable: the rev is part of the cache key,
	// so its presence means the snapshot is already materialized.
	if _, err := os.Stat(dest); err == nil {
		return dest, nil
	}

	if err := f.clone(ctx, ref, dest); err != nil {
		// Leave no partial checkout behind; the next attempt must re-clone.
		_ = os.RemoveAll(dest) //nolint:errcheck // Best-effort cleanup of a failed clone
		return "", fmt.Errorf("%w: %s: %v", ErrFetchFailed, ref, err)
	}
	return dest, nil
}

// RefMeta implements Remote by listing the remote's advertised refs without
// cloning and classifying the requested rev against them.
func (f *Git) RefMeta(ctx context.Context, ref loadspec.RemoteRef) (*loadspec.RemoteRefMeta, error) {
	refs, err := f.listRefs(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("%w: listing refs for %s: %v", ErrFetchFailed, ref, err)
	}

	if ref.Rev == "" {
		for _, r := range refs {
			if r.Name() == plumbing.HEAD {
				return &loadspec.RemoteRefMeta{
					CommitSHA1: r.Hash().String(),
					Kind:       loadspec.RefHead,
				}, nil
			}
		}
		return nil, fmt.Errorf("%w: %s advertises no HEAD", ErrFetchFailed, ref)
	}

	if loadspec.IsCommitSHA(ref.Rev) {
		return &loadspec.RemoteRefMeta{CommitSHA1: ref.Rev, Kind: loadspec.RefCommit}, nil
	}

	names := revCandidates(ref.Rev)
	for _, r := range refs {
		short := r.Name().Short()
		switch {
		case r.Name().IsTag() && slices.Contains(names, short):
			return &loadspec.RemoteRefMeta{CommitSHA1: r.Hash().String(), Kind: loadspec.RefTag}, nil
		case r.Name().IsBranch() && short == ref.Rev:
			return &loadspec.RemoteRefMeta{CommitSHA1: r.Hash().String(), Kind: loadspec.RefBranch}, nil
		}
	}
	return nil, fmt.Errorf("%w: rev %q not found in %s", ErrFetchFailed, ref.Rev, ref)
}

// ListVersionTags returns the remote's semver tags, newest first. Non-semver
// tags are ignored.
func (f *Git) ListVersionTags(ctx context.Context, ref loadspec.RemoteRef) ([]string, error) {
	refs, err := f.listRefs(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("%w: listing refs for %s: %v", ErrFetchFailed, ref, err)
	}

	var tags []string
	for _, r := range refs {
		if !r.Name().IsTag() {
			continue
		}
		name := r.Name().Short()
		canonical := name
		if !strings.HasPrefix(canonical, "v") {
			canonical = "v" + canonical
		}
		if semver.IsValid(canonical) {
			tags = append(tags, name)
		}
	}
	semverSort(tags)
	return tags, nil
}

func (f *Git) listRefs(ctx context.Context, ref loadspec.RemoteRef) ([]*plumbing.Reference, error) {
	// In-memory storage lists advertised refs without a clone.
	remote := git.NewRemote(memory.NewStorage(), &config.RemoteConfig{
		Name: "origin",
		URLs: []string{ref.RepoURL()},
	})
	return remote.ListContext(ctx, &git.ListOptions{Auth: f.auth})
}

// clone materializes ref into dest and checks out its rev.
func (f *Git) clone(ctx context.Context, ref loadspec.RemoteRef, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}

	repo, err := git.PlainCloneContext(ctx, dest, false, &git.CloneOptions{
		URL:  ref.RepoURL(),
		Auth: f.auth,
		Tags: git.AllTags,
	})
	if err != nil {
		return fmt.Errorf("cloning %s: %w", ref.RepoURL(), err)
	}

	// Empty rev means the remote HEAD, which the clone already checked out.
	if ref.Rev == "" {
		return nil
	}

	hash, err := f.resolveRev(repo, ref.Rev)
	if err != nil {
		return err
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("getting worktree: %w", err)
	}
	if err := worktree.Checkout(&git.CheckoutOptions{Hash: hash, Force: true}); err != nil {
		return fmt.Errorf("checking out %s: %w", ref.Rev, err)
	}
	return nil
}

// resolveRev resolves a rev (tag, branch, or commit SHA) to a commit hash,
// trying tag-name variants with and without the "v" prefix.
func (f *Git) resolveRev(repo *git.Repository, rev string) (plumbing.Hash, error) {
	var lastErr error
	for _, candidate := range revCandidates(rev) {
		hash, err := repo.ResolveRevision(plumbing.Revision(candidate))
		if err == nil {
			return *hash, nil
		}
		lastErr = err
	}
	return plumbing.ZeroHash, fmt.Errorf("rev %q not found: %w", rev, lastErr)
}

// revCandidates returns the rev plus its with/without-"v" variant, so both
// "1.2.3" and "v1.2.3" match a tag published either way.
func revCandidates(rev string) []string {
	if noV, found := strings.CutPrefix(rev, "v"); found {
		return []string{rev, noV}
	}
	return []string{rev, "v" + rev}
}

// semverSort orders tags newest-first by semver precedence; ties and
// non-comparable names fall back to lexical order.
func semverSort(tags []string) {
	sort.Slice(tags, func(i, j int) bool {
		ci, cj := canonicalTag(tags[i]), canonicalTag(tags[j])
		if c := semver.Compare(ci, cj); c != 0 {
			return c > 0
		}
		return tags[i] < tags[j]
	})
}

func canonicalTag(tag string) string {
	if strings.HasPrefix(tag, "v") {
		return tag
	}
	return "v" + tag
}

// setupAuth configures authentication from available credentials: SSH keys
// first, then token environment variables. Public HTTPS repositories work
// with no auth at all.
func (f *Git) setupAuth() {
	if sshAuth := trySSHAuth(); sshAuth != nil {
		f.auth = sshAuth
		return
	}
	if httpAuth := tryHTTPAuth(); httpAuth != nil {
		f.auth = httpAuth
	}
}

// trySSHAuth attempts to load a key from the common SSH key locations.
func trySSHAuth() transport.AuthMethod {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	for _, name := range []string{"id_ed25519", "id_rsa", "id_ecdsa"} {
		keyPath := filepath.Join(homeDir, ".ssh", name)
		if _, err := os.Stat(keyPath); err != nil {
			continue
		}
		auth, err := ssh.NewPublicKeysFromFile("git", keyPath, "")
		if err == nil {
			return auth
		}
	}
	return nil
}

// tryHTTPAuth attempts token auth from the environment.
func tryHTTPAuth() transport.AuthMethod {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return &http.BasicAuth{Username: "x-access-token", Password: token}
	}
	if token := os.Getenv("GITLAB_TOKEN"); token != "" {
		return &http.BasicAuth{Username: "gitlab-ci-token", Password: token}
	}
	if token := os.Getenv("GIT_TOKEN"); token != "" {
		return &http.BasicAuth{Username: "git", Password: token}
	}
	return nil
}
