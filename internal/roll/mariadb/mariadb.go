// Package mariadb reads a legacy voter roll from MariaDB. Some district
// rolls predate the JSON enrollment format and only exist as a MariaDB
// table; this backend gives them the same read-only Store contract without
// migrating the data.
package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/shadowvote/votegate/internal/identity"
	"github.com/shadowvote/votegate/internal/roll"
)

// Store is a read-only MariaDB voter roll.
type Store struct {
	db *sql.DB
}

// New opens a connection pool against the legacy roll.
func New(dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("MariaDB DSN is required")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MariaDB: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MariaDB: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing database connection: %w", err)
	}
	return nil
}

// Lookup returns the voter enrolled under the canonical identifier. Legacy
// rows store the identifier with grouping spaces, so the comparison strips
// them on the database side too.
func (s *Store) Lookup(ctx context.Context, canonicalID string) (*identity.Voter, error) {
	query := `
		SELECT aadhaar, name, age, address, fingerprint_pages, phone
		FROM voters
		WHERE REPLACE(REPLACE(REPLACE(aadhaar, ' ', ''), '\t', ''), '\n', '') = ?
	`

	var v identity.Voter
	var rawPages string

	err := s.db.QueryRowContext(ctx, query, canonicalID).Scan(
		&v.Aadhaar,
		&v.Name,
		&v.Age,
		&v.Address,
		&rawPages,
		&v.Phone,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, roll.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query voter: %w", err)
	}

	v.Aadhaar = identity.Normalize(v.Aadhaar)
	v.FingerprintPages = parsePages(rawPages)
	return &v, nil
}

// Count returns the number of enrolled voters.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM voters").Scan(&count); err != nil {
		return 0, fmt.Errorf("count voters: %w", err)
	}
	return count, nil
}

// parsePages decodes the legacy comma-separated page list column.
func parsePages(raw string) []uint16 {
	var pages []uint16
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.ParseUint(part, 10, 16)
		if err != nil {
			continue
		}
		pages = append(pages, uint16(n))
	}
	return pages
}
