// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"zenload/internal/issue"
	"zenload/pkg/resolver"
)

var vendorCmd = &cobra.Command{
	Use:   "vendor <spec>...",
	Short: "Materialize remote packages into the vendor directory",
	Long: `Fetch each remote (or aliased) spec and copy its repository snapshot
into the workspace's vendor directory, so later resolutions - including
offline ones - are served without touching the network:

  vendor/github.com/<user>/<repo>/<rev>/...
  vendor/gitlab.com/<project>/<rev>/...`,
	Args: cobra.MinimumNArgs(1),
	RunE: runVendor,
}

func runVendor(cmd *cobra.Command, args []string) error {
	sess, err := newSession(cmd.Context())
	if err != nil {
		return err
	}

	// Vendoring must observe the live remote, not a previous vendor copy.
	fetchResolver := resolver.New(resolver.Options{
		FS:             sess.fs,
		Fetcher:        sess.fetcher,
		WorkspaceRoot:  sess.resolver.WorkspaceRoot(),
		VendorDir:      sess.cfg.VendorDir,
		DisableVendor:  true,
		DefaultAliases: mergedDefaultAliases(sess.cfg),
	})

	currentFile, err := currentFileArg("")
	if err != nil {
		return err
	}

	for _, arg := range args {
		resolved, err := fetchResolver.ResolveText(cmd.Context(), arg, currentFile)
		if err != nil {
			return issue.NewErrorContext().
				WithOperation("fetch package").
				WithResource(arg).
				WithSuggestion("vendoring needs network access; drop --offline").
				Wrap(err).
				Build()
		}

		ref, ok := fetchResolver.RemoteRef(resolved)
		if !ok {
			sess.logger.Warn("not a remote package, skipping", "spec", arg)
			continue
		}
		snapshot, ok := fetchResolver.SnapshotRootFor(resolved)
		if !ok {
			return fmt.Errorf("no snapshot recorded for %s", arg)
		}

		dest := filepath.Join(fetchResolver.WorkspaceRoot(), sess.cfg.VendorDir, filepath.FromSlash(ref.CacheKey()))
		sess.logger.Debug("vendoring", "ref", ref.String(), "dest", dest)
		if err := copyDir(snapshot, dest); err != nil {
			return issue.WrapWithContext(err, "copy snapshot into vendor directory", dest)
		}
		fmt.Printf("%s %s %s %s\n",
			SuccessStyle.Render("vendored"),
			SpecStyle.Render(ref.String()),
			SubtitleStyle.Render("->"),
			relativeTo(fetchResolver.WorkspaceRoot(), dest))
	}
	return nil
}
