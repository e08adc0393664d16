// Package archiver defines core types shared across the poller subsystems.
package archiver

import (
	"fmt"
	"time"
)

// OriginTable names the change-log table a candidate URL was extracted from.
type OriginTable string

// Origin tables persisted in the candidate table's from_table column.
const (
	OriginEditData OriginTable = "edit_data"
	OriginEditNote OriginTable = "edit_note"
)

// Valid reports whether t is one of the known origin tables.
func (t OriginTable) Valid() bool {
	return t == OriginEditData || t == OriginEditNote
}

// EditDataRow is one row of the edit_data table. Several rows may share an
// EditID; sources only return the first one per edit.
type EditDataRow struct {
	EditID int64
	// Payload is the raw JSON document stored in the data column.
	Payload []byte
}

// EditNoteRow is one row of the edit_note table.
type EditNoteRow struct {
	NoteID   int64
	EditID   int64
	EditorID int64
	Text     string
	PostedAt *time.Time
}

// Candidate is a URL awaiting archival together with its origin. The triple
// (URL, Origin, OriginID) is unique in the candidate store.
type Candidate struct {
	URL      string      `json:"url"`
	Origin   OriginTable `json:"from_table"`
	OriginID int64       `json:"from_table_id"`
}

// Watermarks is the cursor pair handed into and returned from a poll cycle.
// Each value is the next unprocessed row id of its table.
type Watermarks struct {
	EditData int64 `json:"edit_data"`
	EditNote int64 `json:"edit_note"`
}

// Apply returns w moved forward by the advances in r. Unchanged tables keep
// their current value.
func (w Watermarks) Apply(r CycleResult) Watermarks {
	return Watermarks{
		EditData: r.EditData.Apply(w.EditData),
		EditNote: r.EditNote.Apply(w.EditNote),
	}
}

// Advance is the per-table outcome of a cycle: either the watermark moved to
// a new id or it stays where it was. The zero value is Unchanged.
type Advance struct {
	next     int64
	advanced bool
}

// Advanced reports progress to next.
func Advanced(next int64) Advance {
	return Advance{next: next, advanced: true}
}

// Unchanged reports that no rows were seen.
func Unchanged() Advance {
	return Advance{}
}

// Next returns the new watermark and whether there is one.
func (a Advance) Next() (int64, bool) {
	return a.next, a.advanced
}

// Apply returns the new watermark, or current when unchanged.
func (a Advance) Apply(current int64) int64 {
	if !a.advanced {
		return current
	}
	return a.next
}

func (a Advance) String() string {
	if !a.advanced {
		return "unchanged"
	}
	return fmt.Sprintf("advanced(%d)", a.next)
}

// TableStats counts the work done for one table during a cycle.
type TableStats struct {
	Rows       int `json:"rows"`
	Candidates int `json:"candidates"`
	Inserted   int `json:"inserted"`
	Duplicates int `json:"duplicates"`
	Failed     int `json:"failed"`
}

// CycleStats aggregates both tables.
type CycleStats struct {
	EditData TableStats `json:"edit_data"`
	EditNote TableStats `json:"edit_note"`
}

// CycleResult is returned by a poll cycle.
type CycleResult struct {
	CycleID  string
	EditData Advance
	EditNote Advance
	Stats    CycleStats
}

// State is what a WatermarkStore persists between process restarts.
type State struct {
	Watermarks Watermarks `json:"watermarks"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
