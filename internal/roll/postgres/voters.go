package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/shadowvote/votegate/internal/identity"
	"github.com/shadowvote/votegate/internal/roll"
)

// VoterRepository provides PostgreSQL-backed voter roll access.
type VoterRepository struct {
	pool *Pool
}

// NewVoterRepository creates a new PostgreSQL voter repository.
func NewVoterRepository(pool *Pool) *VoterRepository {
	return &VoterRepository{pool: pool}
}

// nullVector scans a nullable pgvector column.
type nullVector struct {
	vec   pgvector.Vector
	valid bool
}

func (n *nullVector) Scan(src any) error {
	if src == nil {
		n.valid = false
		return nil
	}
	n.valid = true
	return n.vec.Scan(src)
}

// Lookup returns the voter enrolled under the canonical identifier.
func (r *VoterRepository) Lookup(ctx context.Context, canonicalID string) (*identity.Voter, error) {
	query := `
		SELECT aadhaar, name, age, address, fingerprint_pages, face_template, phone
		FROM voters
		WHERE aadhaar = $1
	`

	var v identity.Voter
	var pages []int64
	var face nullVector

	err := r.pool.QueryRow(ctx, query, canonicalID).Scan(
		&v.Aadhaar,
		&v.Name,
		&v.Age,
		&v.Address,
		pq.Array(&pages),
		&face,
		&v.Phone,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, roll.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query voter: %w", err)
	}

	v.FingerprintPages = make([]uint16, 0, len(pages))
	for _, p := range pages {
		v.FingerprintPages = append(v.FingerprintPages, uint16(p))
	}
	if face.valid {
		v.FaceTemplate = face.vec.Slice()
	}
	return &v, nil
}

// Count returns the number of enrolled voters.
func (r *VoterRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM voters").Scan(&count); err != nil {
		return 0, fmt.Errorf("count voters: %w", err)
	}
	return count, nil
}

// Save upserts one voter record. Used only by the roll push command; the
// verification path never writes.
func (r *VoterRepository) Save(ctx context.Context, v *identity.Voter) error {
	query := `
		INSERT INTO voters (aadhaar, name, age, address, fingerprint_pages, face_template, phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (aadhaar) DO UPDATE SET
			name = EXCLUDED.name,
			age = EXCLUDED.age,
			address = EXCLUDED.address,
			fingerprint_pages = EXCLUDED.fingerprint_pages,
			face_template = EXCLUDED.face_template,
			phone = EXCLUDED.phone
	`

	pages := make([]int64, 0, len(v.FingerprintPages))
	for _, p := range v.FingerprintPages {
		pages = append(pages, int64(p))
	}

	var face any
	if len(v.FaceTemplate) > 0 {
		face = pgvector.NewVector(v.FaceTemplate)
	}

	if _, err := r.pool.Exec(ctx, query,
		v.Aadhaar, v.Name, v.Age, v.Address, pq.Array(pages), face, v.Phone); err != nil {
		return fmt.Errorf("save voter: %w", err)
	}
	return nil
}
