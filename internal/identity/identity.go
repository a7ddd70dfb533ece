// Package identity defines the enrolled voter record and identifier
// canonicalization shared by the roll, ledger and verification layers.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// Voter is one enrolled record from the voter roll. Records are immutable
// for the duration of an election session; the roll owns them.
type Voter struct {
	Aadhaar          string    `json:"aadhaar"`
	Name             string    `json:"name"`
	Age              string    `json:"age"`
	Address          string    `json:"address"`
	FingerprintPages []uint16  `json:"fingerprint_pages,omitempty"`
	FaceTemplate     []float32 `json:"face_template,omitempty"`
	Phone            string    `json:"phone,omitempty"`
}

// HasFingerprint reports whether the voter has at least one enrolled
// sensor template page.
func (v *Voter) HasFingerprint() bool {
	return len(v.FingerprintPages) > 0
}

// HasFace reports whether the voter has an enrolled face template.
func (v *Voter) HasFace() bool {
	return len(v.FaceTemplate) > 0
}

// stripper removes every Unicode whitespace and control character.
var stripper = transform.Chain(
	runes.Remove(runes.In(unicode.White_Space)),
	runes.Remove(runes.In(unicode.Cc)),
)

// Normalize canonicalizes a raw identifier by stripping all whitespace and
// control characters. Scanned QR payloads and hand-entered identifiers carry
// formatting noise ("1234 5678 9012"); every comparison against the roll or
// the ledger must go through this one function. Idempotent; an empty result
// means the input was not a usable identifier.
func Normalize(raw string) string {
	out, _, err := transform.String(stripper, raw)
	if err != nil {
		// The remove transformers never fail; keep the raw value rather
		// than lose the lookup entirely.
		return raw
	}
	return out
}

// Digest returns the sha256 hex digest of a canonical identifier. The ledger
// stores digests, not cleartext identifiers.
func Digest(canonical string) string {
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}
