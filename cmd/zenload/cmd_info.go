// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"zenload/internal/issue"
	"zenload/pkg/fetcher"
	"zenload/pkg/loadspec"
)

var infoCmd = &cobra.Command{
	Use:   "info <path>",
	Short: "Show a resolved file's provenance and pin metadata",
	Long: `Show where a previously resolved path came from. For files fetched from
a remote package this includes the repository, the requested revision,
the resolved commit, and whether the pin is reproducible (tags and
commits are; branches and HEAD move over time).`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	sess, err := newSession(cmd.Context())
	if err != nil {
		return err
	}

	abs, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	// Resolving the path as a spec seeds the session's provenance map so
	// vendored files can be inspected without a prior resolution.
	canonical, err := sess.resolver.ResolveText(cmd.Context(), abs, abs)
	if err != nil {
		return issue.WrapWithContext(err, "inspect file", args[0])
	}

	ref, ok := sess.resolver.RemoteRef(canonical)
	if !ok {
		// Files under the vendor tree were resolved in an earlier session;
		// reconstruct their identity from the vendor layout.
		ref, ok = refFromVendorPath(sess, canonical)
	}
	if !ok {
		fmt.Printf("%s %s\n", SubtitleStyle.Render("local file:"), canonical)
		return nil
	}

	fmt.Printf("%s %s\n", SubtitleStyle.Render("repository:"), SpecStyle.Render(ref.RepoURL()))
	fmt.Printf("%s %s\n", SubtitleStyle.Render("revision:  "), ref.Rev)

	meta, err := sess.resolver.RemoteRefMeta(cmd.Context(), ref)
	if err != nil {
		sess.logger.Warn("could not query remote metadata", "err", err)
		return nil
	}
	fmt.Printf("%s %s (%s)\n", SubtitleStyle.Render("commit:    "), meta.CommitSHA1, meta.Kind)
	if meta.Stable() {
		fmt.Println(SuccessStyle.Render("pin is reproducible"))
	} else {
		fmt.Println(ErrorStyle.Render("pin is not reproducible (branch or HEAD)"))
	}

	if git, isGit := sess.fetcher.(*fetcher.Git); isGit {
		tags, err := git.ListVersionTags(cmd.Context(), ref)
		if err == nil && len(tags) > 0 {
			limit := len(tags)
			if limit > 5 {
				limit = 5
			}
			fmt.Printf("%s %v\n", SubtitleStyle.Render("latest tags:"), tags[:limit])
		}
	}
	return nil
}

// refFromVendorPath reconstructs a RemoteRef from the vendor layout:
// <root>/<vendor>/github.com/<user>/<repo>/<rev>/... and
// <root>/<vendor>/gitlab.com/<project...>/<rev>/... The second return is
// false for paths outside the vendor tree.
func refFromVendorPath(sess *session, canonical string) (loadspec.RemoteRef, bool) {
	vendorRoot := filepath.Join(sess.resolver.WorkspaceRoot(), sess.cfg.VendorDir)
	rel, err := filepath.Rel(vendorRoot, canonical)
	if err != nil || strings.HasPrefix(rel, "..") {
		return loadspec.RemoteRef{}, false
	}

	parts := strings.Split(filepath.ToSlash(rel), "/")
	switch {
	case len(parts) >= 4 && parts[0] == "github.com":
		return loadspec.RemoteRef{
			Host: loadspec.HostGithub,
			User: parts[1],
			Repo: parts[2],
			Rev:  parts[3],
		}, true
	case len(parts) >= 4 && parts[0] == "gitlab.com":
		// The rev is the last component before the file path; without the
		// original spec the project/path split is ambiguous, so take the
		// conventional group/project pair.
		return loadspec.RemoteRef{
			Host:        loadspec.HostGitlab,
			ProjectPath: parts[1] + "/" + parts[2],
			Rev:         parts[3],
		}, true
	default:
		return loadspec.RemoteRef{}, false
	}
}
