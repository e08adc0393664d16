package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/exurl-archiver/internal/archiver"
)

// DefaultStateTable is created by the bundled migrations.
const DefaultStateTable = "external_url_archiver.poller_state"

// StateStore implements archiver.WatermarkStore with a single named row.
type StateStore struct {
	db        DB
	name      string
	loadQuery string
	saveQuery string
}

var _ archiver.WatermarkStore = (*StateStore)(nil)

// NewStateStore persists state under name in table.
func NewStateStore(db DB, table, name string) (*StateStore, error) {
	if db == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = DefaultStateTable
	}
	if err := checkTable(table); err != nil {
		return nil, err
	}
	if name == "" {
		name = "default"
	}
	return &StateStore{
		db:   db,
		name: name,
		loadQuery: fmt.Sprintf(`
SELECT edit_data_next, edit_note_next, updated_at
FROM %s
WHERE name = $1`, table),
		saveQuery: fmt.Sprintf(`
INSERT INTO %s (name, edit_data_next, edit_note_next, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (name) DO UPDATE
SET edit_data_next = EXCLUDED.edit_data_next,
	edit_note_next = EXCLUDED.edit_note_next,
	updated_at = EXCLUDED.updated_at`, table),
	}, nil
}

// Load returns the stored state or archiver.ErrStateNotFound.
func (s *StateStore) Load(ctx context.Context) (archiver.State, error) {
	var st archiver.State
	err := s.db.QueryRow(ctx, s.loadQuery, s.name).Scan(
		&st.Watermarks.EditData,
		&st.Watermarks.EditNote,
		&st.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return archiver.State{}, archiver.ErrStateNotFound
		}
		return archiver.State{}, fmt.Errorf("load poller state: %w", err)
	}
	return st, nil
}

// Save upserts the state row.
func (s *StateStore) Save(ctx context.Context, st archiver.State) error {
	_, err := s.db.Exec(ctx, s.saveQuery,
		s.name,
		st.Watermarks.EditData,
		st.Watermarks.EditNote,
		st.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save poller state: %w", err)
	}
	return nil
}
