// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"zenload/internal/issue"
)

var aliasesCmd = &cobra.Command{
	Use:   "aliases [file]",
	Short: "Show the merged package alias table for a file",
	Long: `Show the package aliases in effect for loads performed from a file:
built-in defaults, overridden by each zen.toml [packages] table between
the workspace root and the file's directory, innermost last.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAliases,
}

func runAliases(cmd *cobra.Command, args []string) error {
	sess, err := newSession(cmd.Context())
	if err != nil {
		return err
	}

	from := ""
	if len(args) == 1 {
		from = args[0]
	}
	currentFile, err := currentFileArg(from)
	if err != nil {
		return err
	}

	table, err := sess.resolver.AliasesFor(currentFile)
	if err != nil {
		return issue.WrapWithContext(err, "collect alias tables", filepath.Dir(currentFile))
	}

	names := make([]string, 0, len(table))
	width := 0
	for name := range table {
		names = append(names, name)
		if len(name) > width {
			width = len(name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Printf("%s  %s\n",
			SpecStyle.Render(fmt.Sprintf("@%-*s", width, name)),
			table[name])
	}
	return nil
}
