// Package ledger enforces at-most-once admission per voter. The ledger
// stores sha256 digests of canonical identifiers, never the identifiers
// themselves, and its check-and-mark step is atomic: of N concurrent
// admissions for the same voter, exactly one wins.
package ledger

import (
	"context"

	"github.com/shadowvote/votegate/internal/identity"
)

// Ledger records completed admissions. Membership is irreversible for the
// lifetime of the backing store.
type Ledger interface {
	// TryAdmit atomically checks and marks the identity as admitted.
	// It returns true when this call performed the admission and false
	// when the identity was already admitted.
	TryAdmit(ctx context.Context, canonicalID string) (bool, error)

	// Admitted reports whether the identity has completed admission.
	Admitted(ctx context.Context, canonicalID string) (bool, error)
}

// digest is the stored unit for every backend.
func digest(canonicalID string) string {
	return identity.Digest(canonicalID)
}
