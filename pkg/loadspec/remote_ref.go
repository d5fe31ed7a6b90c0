// SPDX-License-Identifier: MPL-2.0

package loadspec

import (
	"fmt"
	"regexp"
)

// commitSHA1Pattern validates a 40-character lowercase hex SHA.
var commitSHA1Pattern = regexp.MustCompile(`^[0-9a-f]{40}$`)

type (
	// Host identifies the git hosting service of a RemoteRef.
	Host int

	// RemoteRef identifies one fetched repository snapshot: a repository
	// plus the revision that was requested for it. Two specs that differ
	// only in their trailing path share a RemoteRef.
	RemoteRef struct {
		Host Host

		// User and Repo are set for HostGithub.
		User string
		Repo string

		// ProjectPath is set for HostGitlab.
		ProjectPath string

		// Rev is the requested revision: a tag, branch, commit SHA, or
		// empty for the remote HEAD.
		Rev string
	}

	// RefKind classifies what a revision string pointed at when the remote
	// was queried.
	RefKind int

	// RemoteRefMeta is the metadata the fetcher reports for a RemoteRef.
	RemoteRefMeta struct {
		// CommitSHA1 is the resolved commit in SHA-1 form.
		CommitSHA1 string
		// CommitSHA256 is the resolved commit in SHA-256 form, when the
		// repository advertises one.
		CommitSHA256 string
		// Kind records what the revision referred to.
		Kind RefKind
	}
)

const (
	// HostGithub is github.com.
	HostGithub Host = iota
	// HostGitlab is gitlab.com.
	HostGitlab
)

const (
	// RefTag means the revision named a tag.
	RefTag RefKind = iota
	// RefBranch means the revision named a branch.
	RefBranch
	// RefCommit means the revision was a commit SHA.
	RefCommit
	// RefHead means no revision was given and the remote HEAD was used.
	RefHead
)

// String returns the host's domain name.
func (h Host) String() string {
	if h == HostGitlab {
		return "gitlab.com"
	}
	return "github.com"
}

// String returns a human-readable kind name.
func (k RefKind) String() string {
	switch k {
	case RefTag:
		return "tag"
	case RefBranch:
		return "branch"
	case RefCommit:
		return "commit"
	case RefHead:
		return "head"
	default:
		return "unknown"
	}
}

// RepoURL returns the canonical HTTPS clone URL for the repository.
func (r RemoteRef) RepoURL() string {
	if r.Host == HostGitlab {
		return fmt.Sprintf("https://gitlab.com/%s.git", r.ProjectPath)
	}
	return fmt.Sprintf("https://github.com/%s/%s.git", r.User, r.Repo)
}

// CacheKey returns a path-safe identifier for the snapshot, used to build
// cache and vendor directory layouts. The rev component is "HEAD" when no
// revision was requested.
func (r RemoteRef) CacheKey() string {
	rev := r.Rev
	if rev == "" {
		rev = "HEAD"
	}
	if r.Host == HostGitlab {
		return fmt.Sprintf("gitlab.com/%s/%s", r.ProjectPath, rev)
	}
	return fmt.Sprintf("github.com/%s/%s/%s", r.User, r.Repo, rev)
}

// String renders the ref for diagnostics, e.g. "github.com/u/r@v1.2.3".
func (r RemoteRef) String() string {
	rev := r.Rev
	if rev == "" {
		rev = "HEAD"
	}
	if r.Host == HostGitlab {
		return fmt.Sprintf("gitlab.com/%s@%s", r.ProjectPath, rev)
	}
	return fmt.Sprintf("github.com/%s/%s@%s", r.User, r.Repo, rev)
}

// Spec returns the LoadSpec addressing path p inside this snapshot.
func (r RemoteRef) Spec(p string) LoadSpec {
	if r.Host == HostGitlab {
		return LoadSpec{Kind: KindGitlab, ProjectPath: r.ProjectPath, Rev: r.Rev}.WithPath(p)
	}
	return LoadSpec{Kind: KindGithub, User: r.User, Repo: r.Repo, Rev: r.Rev}.WithPath(p)
}

// IsCommitSHA reports whether s looks like a full SHA-1 commit hash.
func IsCommitSHA(s string) bool {
	return commitSHA1Pattern.MatchString(s)
}

// Stable reports whether the snapshot is a reproducible pin. Tags and
// commit SHAs are stable; branches and HEAD move over time.
func (m RemoteRefMeta) Stable() bool {
	return m.Kind == RefTag || m.Kind == RefCommit
}
