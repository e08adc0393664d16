package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JakeFAU/exurl-archiver/internal/archiver"
)

// SourceConfig names the change-log tables.
type SourceConfig struct {
	Schema        string
	EditDataTable string
	EditNoteTable string
}

// Source implements archiver.RowSource over the edit_data and edit_note tables.
type Source struct {
	db DB

	editDataQuery  string
	editNoteQuery  string
	latestDataStmt string
	latestNoteStmt string
}

var _ archiver.RowSource = (*Source)(nil)

// NewSource validates the table names and prepares the queries.
func NewSource(db DB, cfg SourceConfig) (*Source, error) {
	if db == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if cfg.EditDataTable == "" {
		cfg.EditDataTable = "edit_data"
	}
	if cfg.EditNoteTable == "" {
		cfg.EditNoteTable = "edit_note"
	}
	editData := qualify(cfg.Schema, cfg.EditDataTable)
	editNote := qualify(cfg.Schema, cfg.EditNoteTable)
	for _, table := range []string{editData, editNote} {
		if err := checkTable(table); err != nil {
			return nil, err
		}
	}
	return &Source{
		db: db,
		editDataQuery: fmt.Sprintf(`
SELECT DISTINCT ON (edit) edit, data
FROM %s
WHERE edit >= $1
ORDER BY edit
LIMIT $2`, editData),
		editNoteQuery: fmt.Sprintf(`
SELECT id, editor, edit, text, post_time
FROM %s
WHERE id >= $1
ORDER BY id
LIMIT $2`, editNote),
		latestDataStmt: fmt.Sprintf(`SELECT COALESCE(MAX(edit), -1) + 1 FROM %s`, editData),
		latestNoteStmt: fmt.Sprintf(`SELECT COALESCE(MAX(id), -1) + 1 FROM %s`, editNote),
	}, nil
}

// EditData returns the first row of each edit with edit >= startID.
func (s *Source) EditData(ctx context.Context, startID int64, limit int) ([]archiver.EditDataRow, error) {
	if err := archiver.ValidateRange(startID, limit); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, s.editDataQuery, startID, limit)
	if err != nil {
		return nil, fmt.Errorf("query edit_data: %w", err)
	}
	defer rows.Close()

	out := make([]archiver.EditDataRow, 0, limit)
	for rows.Next() {
		var row archiver.EditDataRow
		if err := rows.Scan(&row.EditID, &row.Payload); err != nil {
			return nil, fmt.Errorf("scan edit_data row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate edit_data: %w", err)
	}
	return out, nil
}

// EditNotes returns notes with id >= startID.
func (s *Source) EditNotes(ctx context.Context, startID int64, limit int) ([]archiver.EditNoteRow, error) {
	if err := archiver.ValidateRange(startID, limit); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, s.editNoteQuery, startID, limit)
	if err != nil {
		return nil, fmt.Errorf("query edit_note: %w", err)
	}
	defer rows.Close()

	out := make([]archiver.EditNoteRow, 0, limit)
	for rows.Next() {
		var (
			row      archiver.EditNoteRow
			postedAt pgtype.Timestamptz
		)
		if err := rows.Scan(&row.NoteID, &row.EditorID, &row.EditID, &row.Text, &postedAt); err != nil {
			return nil, fmt.Errorf("scan edit_note row: %w", err)
		}
		if postedAt.Valid {
			ts := postedAt.Time.UTC()
			row.PostedAt = &ts
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate edit_note: %w", err)
	}
	return out, nil
}

// LatestIDs returns one past the newest edit and note ids.
func (s *Source) LatestIDs(ctx context.Context) (archiver.Watermarks, error) {
	var w archiver.Watermarks
	if err := s.db.QueryRow(ctx, s.latestDataStmt).Scan(&w.EditData); err != nil {
		return archiver.Watermarks{}, fmt.Errorf("latest edit_data id: %w", err)
	}
	if err := s.db.QueryRow(ctx, s.latestNoteStmt).Scan(&w.EditNote); err != nil {
		return archiver.Watermarks{}, fmt.Errorf("latest edit_note id: %w", err)
	}
	return w, nil
}
