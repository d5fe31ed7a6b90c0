// SPDX-License-Identifier: MPL-2.0

package fetcher

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// CachePathEnv is the environment variable overriding the default
	// snapshot cache path.
	CachePathEnv = "ZEN_CACHE_PATH"

	// defaultCacheDirName is the cache subdirectory under ~/.zen.
	defaultCacheDirName = "cache"
)

// DefaultCacheDir returns the default snapshot cache directory. It checks
// ZEN_CACHE_PATH first, then falls back to ~/.zen/cache.
func DefaultCacheDir() (string, error) {
	return DefaultCacheDirWith(os.Getenv)
}

// DefaultCacheDirWith returns the default snapshot cache directory using the
// provided getenv function. This enables testing without mutating
// process-global environment state.
func DefaultCacheDirWith(getenv func(string) string) (string, error) {
	if envPath := getenv(CachePathEnv); envPath != "" {
		return envPath, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".zen", defaultCacheDirName), nil
}
