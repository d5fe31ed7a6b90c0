// SPDX-License-Identifier: MPL-2.0

// Package loadspec models the references a .zen file can load: local paths,
// workspace-rooted paths, aliased packages, and git-hosted remote packages.
// A LoadSpec is the parsed form of the string passed to load(); the resolver
// turns it into a concrete local file path.
package loadspec

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

var (
	// ErrInvalidSpec is the sentinel error wrapped by InvalidSpecError.
	ErrInvalidSpec = errors.New("invalid load spec")
)

type (
	// Kind discriminates the closed set of LoadSpec variants.
	Kind int

	// LoadSpec is a parsed load reference. Which fields are meaningful
	// depends on Kind; Path is shared by every variant and is always in
	// normalized slash form (no "." segments, ".." only at the front of a
	// relative KindPath).
	LoadSpec struct {
		Kind Kind

		// Path is the trailing file path. For KindPath it is the local
		// (relative or absolute) path itself; for KindWorkspacePath it is
		// relative to the workspace root; for remote kinds it is relative
		// to the repository root and may be empty (the repository root).
		Path string

		// Package and Tag identify an aliased package (KindPackage).
		Package string
		Tag     string

		// User, Repo and Rev identify a GitHub repository (KindGithub).
		User string
		Repo string
		Rev  string

		// ProjectPath identifies a GitLab project, possibly nested in
		// subgroups (KindGitlab). Rev is shared with KindGithub.
		ProjectPath string
	}

	// InvalidSpecError is returned when a load string does not match the
	// load-spec grammar.
	InvalidSpecError struct {
		Text   string
		Reason string
	}
)

const (
	// KindPath is a plain local path, relative to the loading file's
	// directory or absolute.
	KindPath Kind = iota
	// KindWorkspacePath is a path rooted at the owning workspace ("//...").
	KindWorkspacePath
	// KindPackage is an aliased package reference ("@name[:tag]/...").
	KindPackage
	// KindGithub is a GitHub-hosted package ("@github/user/repo[:rev]/...").
	KindGithub
	// KindGitlab is a GitLab-hosted package ("@gitlab/project[:rev]/...").
	KindGitlab
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindPath:
		return "path"
	case KindWorkspacePath:
		return "workspace path"
	case KindPackage:
		return "package"
	case KindGithub:
		return "github"
	case KindGitlab:
		return "gitlab"
	default:
		return "unknown"
	}
}

// Error implements the error interface.
func (e *InvalidSpecError) Error() string {
	return fmt.Sprintf("invalid load spec %q: %s", e.Text, e.Reason)
}

// Unwrap returns ErrInvalidSpec so callers can use errors.Is for
// programmatic detection.
func (e *InvalidSpecError) Unwrap() error { return ErrInvalidSpec }

// Parse parses a load string into a LoadSpec.
//
// Grammar:
//
//	//<path>                          workspace-rooted path
//	@github/<user>/<repo>[:rev]/<p>   GitHub package
//	@gitlab/<project...>[:rev]/<p>    GitLab package (project may be nested)
//	@<name>[:tag][/<p>]               aliased package
//	<path>                            local path (absolute or relative)
func Parse(text string) (LoadSpec, error) {
	if strings.TrimSpace(text) == "" {
		return LoadSpec{}, &InvalidSpecError{Text: text, Reason: "empty load string"}
	}

	switch {
	case strings.HasPrefix(text, "//"):
		return parseWorkspacePath(text)
	case strings.HasPrefix(text, "@"):
		return parseRemoteOrPackage(text)
	default:
		return parseLocalPath(text)
	}
}

// MustParse parses a load string and panics on error. Intended for
// compile-time-constant specs such as built-in alias targets.
func MustParse(text string) LoadSpec {
	spec, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return spec
}

func parseWorkspacePath(text string) (LoadSpec, error) {
	p, err := normalizeRooted(text, strings.TrimPrefix(text, "//"))
	if err != nil {
		return LoadSpec{}, err
	}
	if p == "" {
		return LoadSpec{}, &InvalidSpecError{Text: text, Reason: "missing path after //"}
	}
	return LoadSpec{Kind: KindWorkspacePath, Path: p}, nil
}

func parseRemoteOrPackage(text string) (LoadSpec, error) {
	segments := strings.Split(strings.TrimPrefix(text, "@"), "/")
	head, headRev := cutRev(segments[0])
	if head == "" {
		return LoadSpec{}, &InvalidSpecError{Text: text, Reason: "missing package name after @"}
	}

	switch head {
	case "github":
		if headRev != "" {
			return LoadSpec{}, &InvalidSpecError{Text: text, Reason: "revision must follow the repository segment"}
		}
		return parseGithub(text, segments[1:])
	case "gitlab":
		if headRev != "" {
			return LoadSpec{}, &InvalidSpecError{Text: text, Reason: "revision must follow the project segment"}
		}
		return parseGitlab(text, segments[1:])
	default:
		p, err := normalizeRooted(text, strings.Join(segments[1:], "/"))
		if err != nil {
			return LoadSpec{}, err
		}
		return LoadSpec{Kind: KindPackage, Package: head, Tag: headRev, Path: p}, nil
	}
}

func parseGithub(text string, rest []string) (LoadSpec, error) {
	if len(rest) < 2 {
		return LoadSpec{}, &InvalidSpecError{Text: text, Reason: "expected @github/<user>/<repo>"}
	}
	user := rest[0]
	repo, rev := cutRev(rest[1])
	if user == "" || repo == "" {
		return LoadSpec{}, &InvalidSpecError{Text: text, Reason: "expected @github/<user>/<repo>"}
	}
	if strings.Contains(user, ":") {
		return LoadSpec{}, &InvalidSpecError{Text: text, Reason: "revision must follow the repository segment"}
	}
	p, err := normalizeRooted(text, strings.Join(rest[2:], "/"))
	if err != nil {
		return LoadSpec{}, err
	}
	return LoadSpec{Kind: KindGithub, User: user, Repo: repo, Rev: rev, Path: p}, nil
}

// parseGitlab splits the segments after "@gitlab/" into a project path and a
// trailing file path. GitLab projects may be nested in subgroups, so the
// project path ends at the segment carrying a ":rev" marker; without one the
// project path is the conventional <group>/<project> pair.
func parseGitlab(text string, rest []string) (LoadSpec, error) {
	if len(rest) < 2 {
		return LoadSpec{}, &InvalidSpecError{Text: text, Reason: "expected @gitlab/<group>/<project>"}
	}

	projectEnd := -1
	rev := ""
	for i, seg := range rest {
		if base, r := cutRev(seg); r != "" {
			rest[i] = base
			projectEnd = i + 1
			rev = r
			break
		}
	}
	if projectEnd < 0 {
		projectEnd = 2
	}

	project := strings.Join(rest[:projectEnd], "/")
	if strings.Contains(project, "//") || strings.HasPrefix(project, "/") || strings.HasSuffix(project, "/") {
		return LoadSpec{}, &InvalidSpecError{Text: text, Reason: "malformed gitlab project path"}
	}
	p, err := normalizeRooted(text, strings.Join(rest[projectEnd:], "/"))
	if err != nil {
		return LoadSpec{}, err
	}
	return LoadSpec{Kind: KindGitlab, ProjectPath: project, Rev: rev, Path: p}, nil
}

func parseLocalPath(text string) (LoadSpec, error) {
	cleaned := path.Clean(text)
	if cleaned == "." {
		return LoadSpec{}, &InvalidSpecError{Text: text, Reason: "empty path"}
	}
	return LoadSpec{Kind: KindPath, Path: cleaned}, nil
}

// cutRev splits "segment:rev" into its parts. The rev is empty when no
// marker is present.
func cutRev(segment string) (base, rev string) {
	if i := strings.LastIndex(segment, ":"); i >= 0 {
		return segment[:i], segment[i+1:]
	}
	return segment, ""
}

// normalizeRooted cleans a path that is interpreted relative to some root
// (a workspace or a repository). Escaping above the root is malformed.
func normalizeRooted(text, p string) (string, error) {
	if p == "" {
		return "", nil
	}
	cleaned := path.Clean(p)
	if cleaned == "." {
		return "", nil
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") || strings.HasPrefix(cleaned, "/") {
		return "", &InvalidSpecError{Text: text, Reason: "path escapes its root"}
	}
	return cleaned, nil
}

// LoadString renders the canonical textual form of the spec, the inverse of
// Parse. It is used in diagnostics and as a cache key.
func (s LoadSpec) LoadString() string {
	switch s.Kind {
	case KindWorkspacePath:
		return "//" + s.Path
	case KindPackage:
		out := "@" + s.Package
		if s.Tag != "" {
			out += ":" + s.Tag
		}
		if s.Path != "" {
			out += "/" + s.Path
		}
		return out
	case KindGithub:
		out := "@github/" + s.User + "/" + s.Repo
		if s.Rev != "" {
			out += ":" + s.Rev
		}
		if s.Path != "" {
			out += "/" + s.Path
		}
		return out
	case KindGitlab:
		out := "@gitlab/" + s.ProjectPath
		if s.Rev != "" {
			out += ":" + s.Rev
		}
		if s.Path != "" {
			out += "/" + s.Path
		}
		return out
	default:
		return s.Path
	}
}

// String returns the canonical load string.
func (s LoadSpec) String() string { return s.LoadString() }

// WithPath returns a copy of the spec with Path replaced by p (normalized).
// All identity fields (user/repo/rev, project path, package/tag) are
// preserved, so a sibling file inside the same remote repository can be
// addressed without losing the remote identity.
func (s LoadSpec) WithPath(p string) LoadSpec {
	out := s
	if p == "" {
		out.Path = ""
		return out
	}
	cleaned := path.Clean(p)
	if cleaned == "." {
		cleaned = ""
	}
	out.Path = cleaned
	return out
}

// IsRemote reports whether the spec identifies a git-hosted package.
func (s LoadSpec) IsRemote() bool {
	return s.Kind == KindGithub || s.Kind == KindGitlab
}

// IsAbs reports whether a KindPath spec carries an absolute path.
func (s LoadSpec) IsAbs() bool {
	return s.Kind == KindPath && strings.HasPrefix(s.Path, "/")
}

// Ref extracts the remote repository identity from a remote spec. The
// second return is false for non-remote kinds.
func (s LoadSpec) Ref() (RemoteRef, bool) {
	switch s.Kind {
	case KindGithub:
		return RemoteRef{Host: HostGithub, User: s.User, Repo: s.Repo, Rev: s.Rev}, true
	case KindGitlab:
		return RemoteRef{Host: HostGitlab, ProjectPath: s.ProjectPath, Rev: s.Rev}, true
	default:
		return RemoteRef{}, false
	}
}
