// Package jsonfile reads the voter roll from a JSON file. The file is the
// original enrollment format: an object keyed by the raw identifier, with
// each record carrying its own identifier under either the "aadhar" or the
// "aadhaar" field name, depending on which enrollment tool wrote it.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/shadowvote/votegate/internal/identity"
	"github.com/shadowvote/votegate/internal/roll"
)

// record is one raw roll entry. Aadhar and Aadhaar are the two legacy
// spellings of the identifier field; Aadhar wins when both are present.
type record struct {
	Aadhar           string    `json:"aadhar"`
	Aadhaar          string    `json:"aadhaar"`
	Name             string    `json:"name"`
	Age              string    `json:"age"`
	Address          string    `json:"address"`
	FingerprintPages []uint16  `json:"fingerprint_pages"`
	FaceTemplate     []float32 `json:"face_template"`
	Phone            string    `json:"phone"`
}

// identifier returns the record's raw identifier, checking both legacy
// field names.
func (r *record) identifier() string {
	if r.Aadhar != "" {
		return r.Aadhar
	}
	return r.Aadhaar
}

// Store is an immutable in-memory view of the JSON roll, indexed by
// canonical identifier.
type Store struct {
	voters map[string]*identity.Voter
}

// Load reads and indexes a voter roll file. Both the object key and the
// record's own identifier field are indexed after normalization, so a roll
// written with formatted keys ("1234 5678 9012") still resolves.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading voter roll: %w", err)
	}
	return Parse(data)
}

// Parse indexes a voter roll from raw JSON bytes.
func Parse(data []byte) (*Store, error) {
	var raw map[string]record
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing voter roll: %w", err)
	}

	voters := make(map[string]*identity.Voter, len(raw))
	for key, rec := range raw {
		id := identity.Normalize(rec.identifier())
		if id == "" {
			// Fall back to the object key for records that never
			// stored their identifier inline.
			id = identity.Normalize(key)
		}
		if id == "" {
			continue
		}

		voter := &identity.Voter{
			Aadhaar:          id,
			Name:             rec.Name,
			Age:              rec.Age,
			Address:          rec.Address,
			FingerprintPages: rec.FingerprintPages,
			FaceTemplate:     rec.FaceTemplate,
			Phone:            rec.Phone,
		}
		voters[id] = voter

		// Index the normalized object key as well; some rolls were
		// written with a formatted key and a differently formatted
		// inline field.
		if keyID := identity.Normalize(key); keyID != "" && keyID != id {
			voters[keyID] = voter
		}
	}

	return &Store{voters: voters}, nil
}

// Lookup returns the voter enrolled under the canonical identifier.
func (s *Store) Lookup(ctx context.Context, canonicalID string) (*identity.Voter, error) {
	voter, ok := s.voters[canonicalID]
	if !ok {
		return nil, roll.ErrNotFound
	}
	return voter, nil
}

// Count returns the number of distinct enrolled voters.
func (s *Store) Count(ctx context.Context) (int, error) {
	seen := make(map[string]struct{}, len(s.voters))
	for _, v := range s.voters {
		seen[v.Aadhaar] = struct{}{}
	}
	return len(seen), nil
}

// All returns every distinct voter, for bulk copies into other backends.
func (s *Store) All() []*identity.Voter {
	seen := make(map[string]struct{}, len(s.voters))
	out := make([]*identity.Voter, 0, len(s.voters))
	for _, v := range s.voters {
		if _, dup := seen[v.Aadhaar]; dup {
			continue
		}
		seen[v.Aadhaar] = struct{}{}
		out = append(out, v)
	}
	return out
}
