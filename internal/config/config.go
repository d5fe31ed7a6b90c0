// SPDX-License-Identifier: MPL-2.0

// Package config loads zenload's tool configuration. Settings come from
// ~/.config/zenload/config.toml (platform-specific directory), a config.toml
// in the current directory, ZENLOAD_* environment variables, and flags, in
// increasing order of precedence.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"zenload/internal/issue"
)

const (
	// AppName is the application name.
	AppName = "zenload"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "toml"
	// EnvPrefix is the prefix for environment variable overrides.
	EnvPrefix = "ZENLOAD"
)

type (
	// Config is the tool configuration.
	Config struct {
		// Offline rejects every remote fetch; only vendored and locally
		// cached dependencies resolve.
		Offline bool `mapstructure:"offline"`

		// NoVendor disables the vendor-directory lookup, forcing remote
		// specs through the fetcher.
		NoVendor bool `mapstructure:"no_vendor"`

		// CachePath overrides the snapshot cache directory
		// (default ~/.zen/cache).
		CachePath string `mapstructure:"cache_path"`

		// VendorDir is the vendor directory name under the workspace
		// root.
		VendorDir string `mapstructure:"vendor_dir"`

		// Aliases adds or overrides built-in package aliases globally.
		// Workspace manifests still take precedence.
		Aliases map[string]string `mapstructure:"aliases"`
	}

	// LoadOptions defines explicit configuration loading inputs.
	LoadOptions struct {
		// ConfigFilePath forces loading from a specific config file when set.
		ConfigFilePath string
		// ConfigDirPath overrides the config directory lookup when set.
		ConfigDirPath string
	}

	// Provider loads configuration from explicit options.
	Provider interface {
		Load(ctx context.Context, opts LoadOptions) (*Config, error)
	}

	fileProvider struct{}
)

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		VendorDir: "vendor",
	}
}

// NewProvider creates a configuration provider backed by config files and
// the environment.
func NewProvider() Provider {
	return &fileProvider{}
}

// Load reads configuration from the requested source.
func (p *fileProvider) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("offline", defaults.Offline)
	v.SetDefault("no_vendor", defaults.NoVendor)
	v.SetDefault("cache_path", defaults.CachePath)
	v.SetDefault("vendor_dir", defaults.VendorDir)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFilePath != "" {
		v.SetConfigFile(opts.ConfigFilePath)
		if err := v.ReadInConfig(); err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("verify the file path is correct").
				WithSuggestion("check that the file contains valid TOML").
				Wrap(err).
				Build()
		}
	} else {
		cfgDir := opts.ConfigDirPath
		if cfgDir == "" {
			var err error
			cfgDir, err = ConfigDir()
			if err != nil {
				return nil, err
			}
		}
		v.SetConfigName(ConfigFileName)
		v.SetConfigType(ConfigFileExt)
		v.AddConfigPath(cfgDir)
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			// Missing config files fall back to defaults; malformed ones
			// are reported.
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, issue.NewErrorContext().
					WithOperation("load configuration").
					WithResource(v.ConfigFileUsed()).
					WithSuggestion("check that the file contains valid TOML").
					Wrap(err).
					Build()
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// ConfigDir returns the zenload configuration directory using
// platform-specific conventions: Windows uses %APPDATA%, macOS uses
// ~/Library/Application Support, and Linux/others use $XDG_CONFIG_HOME
// (defaulting to ~/.config).
func ConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}
