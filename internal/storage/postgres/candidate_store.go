package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JakeFAU/exurl-archiver/internal/archiver"
)

const uniqueViolation = "23505"

// DefaultCandidateTable is created by the bundled migrations.
const DefaultCandidateTable = "external_url_archiver.internet_archive_urls"

// CandidateStore writes archival candidates into Postgres.
type CandidateStore struct {
	db    DB
	table string
	query string
}

var _ archiver.CandidateStore = (*CandidateStore)(nil)

// NewCandidateStore constructs a store writing into table.
func NewCandidateStore(db DB, table string) (*CandidateStore, error) {
	if db == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = DefaultCandidateTable
	}
	if err := checkTable(table); err != nil {
		return nil, err
	}
	return &CandidateStore{
		db:    db,
		table: table,
		query: fmt.Sprintf(`
INSERT INTO %s (url, from_table, from_table_id)
VALUES ($1, $2, $3)
ON CONFLICT (url, from_table, from_table_id) DO NOTHING`, table),
	}, nil
}

// Save inserts c unless an identical candidate exists. It reports whether a
// row was written.
func (s *CandidateStore) Save(ctx context.Context, c archiver.Candidate) (bool, error) {
	if err := archiver.ValidateCandidate(c); err != nil {
		return false, err
	}
	tag, err := s.db.Exec(ctx, s.query, c.URL, string(c.Origin), c.OriginID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return false, nil
		}
		return false, fmt.Errorf("insert candidate: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
