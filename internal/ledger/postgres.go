package ledger

import (
	"context"
	"database/sql"
	"fmt"
)

// Postgres is a PostgreSQL-backed ledger. INSERT ... ON CONFLICT DO NOTHING
// provides the atomic check-and-mark, and admissions survive restarts.
type Postgres struct {
	db *sql.DB
}

// NewPostgres creates a ledger over an existing database handle.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema creates the admissions table if it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS admissions (
			digest      CHAR(64) PRIMARY KEY,
			admitted_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("create admissions table: %w", err)
	}
	return nil
}

// TryAdmit atomically checks and marks the identity as admitted.
func (p *Postgres) TryAdmit(ctx context.Context, canonicalID string) (bool, error) {
	result, err := p.db.ExecContext(ctx,
		"INSERT INTO admissions (digest) VALUES ($1) ON CONFLICT (digest) DO NOTHING",
		digest(canonicalID))
	if err != nil {
		return false, fmt.Errorf("insert admission: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("admission rows affected: %w", err)
	}
	return rows == 1, nil
}

// Admitted reports whether the identity has completed admission.
func (p *Postgres) Admitted(ctx context.Context, canonicalID string) (bool, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM admissions WHERE digest = $1)",
		digest(canonicalID)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check admission: %w", err)
	}
	return exists, nil
}
