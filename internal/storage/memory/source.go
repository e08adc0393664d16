// Package memory provides in-memory row sources and stores for development
// and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/JakeFAU/exurl-archiver/internal/archiver"
)

// Source is an in-memory archiver.RowSource. It applies the same selection
// rules as the Postgres source: ascending keys, first row per edit id.
type Source struct {
	mu    sync.RWMutex
	data  []archiver.EditDataRow
	notes []archiver.EditNoteRow
}

var _ archiver.RowSource = (*Source)(nil)

// NewSource constructs an empty Source.
func NewSource() *Source {
	return &Source{}
}

// AddEditData appends rows. Rows sharing an edit id keep insertion order.
func (s *Source) AddEditData(rows ...archiver.EditDataRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append(s.data, rows...)
	sort.SliceStable(s.data, func(i, j int) bool { return s.data[i].EditID < s.data[j].EditID })
}

// AddEditNotes appends notes.
func (s *Source) AddEditNotes(rows ...archiver.EditNoteRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = append(s.notes, rows...)
	sort.SliceStable(s.notes, func(i, j int) bool { return s.notes[i].NoteID < s.notes[j].NoteID })
}

// EditData implements archiver.RowSource.
func (s *Source) EditData(_ context.Context, startID int64, limit int) ([]archiver.EditDataRow, error) {
	if err := archiver.ValidateRange(startID, limit); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []archiver.EditDataRow
	for i, row := range s.data {
		if row.EditID < startID {
			continue
		}
		if i > 0 && s.data[i-1].EditID == row.EditID {
			continue
		}
		row.Payload = append([]byte(nil), row.Payload...)
		out = append(out, row)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// EditNotes implements archiver.RowSource.
func (s *Source) EditNotes(_ context.Context, startID int64, limit int) ([]archiver.EditNoteRow, error) {
	if err := archiver.ValidateRange(startID, limit); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []archiver.EditNoteRow
	for _, row := range s.notes {
		if row.NoteID < startID {
			continue
		}
		out = append(out, row)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// LatestIDs implements archiver.RowSource.
func (s *Source) LatestIDs(context.Context) (archiver.Watermarks, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var w archiver.Watermarks
	if n := len(s.data); n > 0 {
		w.EditData = s.data[n-1].EditID + 1
	}
	if n := len(s.notes); n > 0 {
		w.EditNote = s.notes[n-1].NoteID + 1
	}
	return w, nil
}
