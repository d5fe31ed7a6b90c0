// SPDX-License-Identifier: MPL-2.0

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"zenload/internal/issue"
)

var (
	resolveFrom string
	resolveJSON bool

	resolveCmd = &cobra.Command{
		Use:   "resolve <spec>",
		Short: "Resolve a load spec to a concrete local path",
		Long: `Resolve a load spec the way a .zen file loading it would: relative to
the --from file, through the workspace's alias tables, the vendor
directory, and the remote fetcher.`,
		Args: cobra.ExactArgs(1),
		RunE: runResolve,
	}
)

func init() {
	resolveCmd.Flags().StringVar(&resolveFrom, "from", "", "file performing the load (default: <cwd>/main.zen)")
	resolveCmd.Flags().BoolVar(&resolveJSON, "json", false, "print spec, path, and provenance as JSON")
}

func runResolve(cmd *cobra.Command, args []string) error {
	sess, err := newSession(cmd.Context())
	if err != nil {
		return err
	}

	currentFile, err := currentFileArg(resolveFrom)
	if err != nil {
		return err
	}
	sess.logger.Debug("resolving", "spec", args[0], "from", currentFile)

	resolved, err := sess.resolver.ResolveText(cmd.Context(), args[0], currentFile)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("resolve load spec").
			WithResource(args[0]).
			WithSuggestion("check the spec against the loading file's alias tables (zenload aliases)").
			WithSuggestion("run 'zenload vendor' first when working offline").
			Wrap(err).
			Build()
	}

	if resolveJSON {
		out := struct {
			Spec string `json:"spec"`
			Path string `json:"path"`
			Via  string `json:"provenance,omitempty"`
		}{Spec: args[0], Path: resolved}
		if via, ok := sess.resolver.SpecForPath(resolved); ok {
			out.Via = via.LoadString()
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Println(resolved)
	return nil
}
