// Package roll defines the read-only voter roll interface and the resolver
// that maps noisy external identifiers to enrolled records.
package roll

import (
	"context"
	"errors"
	"fmt"

	"github.com/shadowvote/votegate/internal/identity"
)

// ErrNotFound is returned by a Store when no enrolled record matches the
// identifier. Not finding a voter is an expected outcome, distinct from a
// store read failure.
var ErrNotFound = errors.New("voter not found")

// Store is a read-only source of enrolled voters. Implementations must key
// lookups by the canonical identifier (identity.Normalize applied to the
// stored value), so a lookup never misses on formatting differences between
// enrollment time and verification time.
type Store interface {
	// Lookup returns the voter enrolled under the canonical identifier,
	// or ErrNotFound.
	Lookup(ctx context.Context, canonicalID string) (*identity.Voter, error)

	// Count returns the number of enrolled voters.
	Count(ctx context.Context) (int, error)
}

// Resolver canonicalizes raw identifiers and resolves them against a Store.
type Resolver struct {
	store Store
}

// NewResolver creates a resolver over the given store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve normalizes the raw identifier and looks it up. An identifier that
// normalizes to the empty string is rejected before touching the store.
// ErrNotFound passes through untouched so callers can tell "no such voter"
// apart from an I/O failure.
func (r *Resolver) Resolve(ctx context.Context, raw string) (*identity.Voter, error) {
	canonical := identity.Normalize(raw)
	if canonical == "" {
		return nil, ErrNotFound
	}

	voter, err := r.store.Lookup(ctx, canonical)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("roll lookup for %q: %w", canonical, err)
	}
	return voter, nil
}
