// SPDX-License-Identifier: MPL-2.0

// Package fetcher materializes remote load specs as local directories. The
// resolver talks to the Remote interface; the git implementation owns
// cloning, checkout, and its own on-disk cache. The offline implementation
// rejects every remote spec so builds can be forced to run from vendored
// dependencies only.
package fetcher

import (
	"context"
	"errors"
	"fmt"

	"zenload/pkg/loadspec"
)

var (
	// ErrFetchFailed is the sentinel error for any remote fetch failure.
	ErrFetchFailed = errors.New("remote fetch failed")
	// ErrOfflineMode is returned for every remote spec in offline mode.
	// It wraps ErrFetchFailed.
	ErrOfflineMode = fmt.Errorf("%w: blocked by offline mode", ErrFetchFailed)
)

type (
	// Remote fetches remote packages. Implementations own their caching;
	// the resolver calls Fetch without holding any lock.
	Remote interface {
		// Fetch materializes the snapshot identified by spec's remote
		// identity and returns the local directory holding the repository
		// root. The spec's trailing path is not resolved here; the caller
		// joins it onto the returned directory. workspaceRoot is the
		// workspace the fetch is performed for (diagnostics only).
		Fetch(ctx context.Context, spec loadspec.LoadSpec, workspaceRoot string) (string, error)

		// RefMeta queries the remote for metadata about a ref: the
		// resolved commit and whether the rev was a tag, branch, commit,
		// or HEAD.
		RefMeta(ctx context.Context, ref loadspec.RemoteRef) (*loadspec.RemoteRefMeta, error)
	}

	// Offline is a Remote that rejects every fetch with an explicit
	// offline-mode error.
	Offline struct{}
)

// NewOffline returns the offline fetcher.
func NewOffline() Offline { return Offline{} }

// Fetch always fails with ErrOfflineMode.
func (Offline) Fetch(_ context.Context, spec loadspec.LoadSpec, _ string) (string, error) {
	return "", fmt.Errorf("fetching %s: %w", spec.LoadString(), ErrOfflineMode)
}

// RefMeta always fails with ErrOfflineMode.
func (Offline) RefMeta(_ context.Context, ref loadspec.RemoteRef) (*loadspec.RemoteRefMeta, error) {
	return nil, fmt.Errorf("querying %s: %w", ref, ErrOfflineMode)
}
