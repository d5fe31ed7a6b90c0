// SPDX-License-Identifier: MPL-2.0

// Command zenload resolves load specs of the Zen hardware-description
// toolchain to concrete local files: local paths, workspace-rooted paths,
// aliased packages, and git-hosted remote packages.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"zenload/internal/config"
	"zenload/internal/issue"
	"zenload/pkg/fetcher"
	"zenload/pkg/fsaccess"
	"zenload/pkg/resolver"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"

	// verbose enables verbose output.
	verbose bool
	// cfgFile allows specifying a custom config file.
	cfgFile string
	// offline rejects every remote fetch.
	offline bool
	// noVendor disables the vendor-directory lookup.
	noVendor bool
	// workspaceFlag overrides workspace root discovery.
	workspaceFlag string

	rootCmd = &cobra.Command{
		Use:   "zenload",
		Short: "Load-spec resolver for the Zen hardware-description toolchain",
		Long: TitleStyle.Render("zenload") + SubtitleStyle.Render(" - load-spec resolver for Zen designs") + `

zenload turns the references .zen files load into concrete local paths:
relative and absolute paths, workspace-rooted paths ("//lib/power.zen"),
aliased packages ("@stdlib/generics/Resistor.zen"), and git-hosted
packages ("@github/diodeinc/stdlib:v0.2.7/zen/units.zen").

` + SubtitleStyle.Render("Examples:") + `
  zenload resolve @stdlib/generics/Resistor.zen
  zenload resolve //boards/main.zen --from designs/amp/amp.zen
  zenload aliases designs/amp/amp.zen
  zenload vendor @github/diodeinc/stdlib:v0.2.7
  zenload info vendor/github.com/diodeinc/stdlib/v0.2.7/zen/units.zen`,
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/zenload/config.toml)")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "reject remote fetches; use vendored packages only")
	rootCmd.PersistentFlags().BoolVar(&noVendor, "no-vendor", false, "skip the vendor directory and always fetch")
	rootCmd.PersistentFlags().StringVar(&workspaceFlag, "workspace", "", "workspace root (default: nearest zen.toml with [workspace])")

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(aliasesCmd)
	rootCmd.AddCommand(vendorCmd)
	rootCmd.AddCommand(infoCmd)
}

func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

// Execute runs the root command through fang for enhanced cobra styling.
func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var actionable *issue.ActionableError
		if errors.As(err, &actionable) {
			fmt.Fprintln(os.Stderr, ErrorStyle.Render(actionable.Format(verbose)))
		}
		os.Exit(1)
	}
}

// newLogger builds the CLI logger honoring the verbosity flag.
func newLogger() *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: false,
		Prefix:          "zenload",
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// session bundles the collaborators a subcommand needs.
type session struct {
	cfg      *config.Config
	logger   *log.Logger
	fs       fsaccess.Provider
	fetcher  fetcher.Remote
	resolver *resolver.Resolver
}

// newSession loads configuration, applies flag overrides, and constructs a
// resolver for one command invocation.
func newSession(ctx context.Context) (*session, error) {
	cfg, err := config.NewProvider().Load(ctx, config.LoadOptions{ConfigFilePath: cfgFile})
	if err != nil {
		return nil, err
	}
	if offline {
		cfg.Offline = true
	}
	if noVendor {
		cfg.NoVendor = true
	}

	logger := newLogger()
	fs := fsaccess.OS()

	var remote fetcher.Remote
	if cfg.Offline {
		remote = fetcher.NewOffline()
		logger.Debug("offline mode: remote fetches disabled")
	} else {
		git, err := fetcher.NewGit(cfg.CachePath)
		if err != nil {
			return nil, issue.WrapWithOperation(err, "initialize snapshot cache")
		}
		logger.Debug("snapshot cache", "dir", git.CacheDir())
		remote = git
	}

	root := workspaceFlag
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		if found, ok := resolver.FindWorkspaceRoot(fs, cwd); ok {
			root = found
		} else {
			root = cwd
		}
	}
	logger.Debug("workspace root", "dir", root)

	return &session{
		cfg:     cfg,
		logger:  logger,
		fs:      fs,
		fetcher: remote,
		resolver: resolver.New(resolver.Options{
			FS:             fs,
			Fetcher:        remote,
			WorkspaceRoot:  root,
			VendorDir:      cfg.VendorDir,
			DisableVendor:  cfg.NoVendor,
			DefaultAliases: mergedDefaultAliases(cfg),
		}),
	}, nil
}

// mergedDefaultAliases folds config-declared aliases over the built-ins.
// Workspace manifests still override both.
func mergedDefaultAliases(cfg *config.Config) map[string]string {
	if len(cfg.Aliases) == 0 {
		return nil
	}
	merged := resolver.BuiltinAliases()
	for name, spec := range cfg.Aliases {
		merged[name] = spec
	}
	return merged
}

// currentFileArg returns the file a load should be resolved from: the
// --from flag when given, else a synthetic entry point in the working
// directory.
func currentFileArg(fromFlag string) (string, error) {
	if fromFlag != "" {
		abs, err := filepath.Abs(fromFlag)
		if err != nil {
			return "", fmt.Errorf("resolving --from path: %w", err)
		}
		return abs, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return filepath.Join(cwd, "main.zen"), nil
}
