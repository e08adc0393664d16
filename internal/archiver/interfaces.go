package archiver

import (
	"context"
	"time"
)

// RowSource reads the change-log tables. Implementations hold no watermark
// state; every call is an independent, short query.
type RowSource interface {
	// EditData returns up to limit rows with edit >= startID in ascending
	// order, at most one row per edit id.
	EditData(ctx context.Context, startID int64, limit int) ([]EditDataRow, error)
	// EditNotes returns up to limit notes with id >= startID in ascending order.
	EditNotes(ctx context.Context, startID int64, limit int) ([]EditNoteRow, error)
	// LatestIDs returns the watermarks that would skip every existing row.
	LatestIDs(ctx context.Context) (Watermarks, error)
}

// CandidateStore persists archival candidates. Save reports false without an
// error when an identical candidate already exists.
type CandidateStore interface {
	Save(ctx context.Context, c Candidate) (bool, error)
}

// WatermarkStore persists poller state between runs.
type WatermarkStore interface {
	// Load returns ErrStateNotFound when nothing has been saved yet.
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, state State) error
}

// Notifier announces newly inserted candidates to the downstream archiver.
type Notifier interface {
	Notify(ctx context.Context, c Candidate) error
}

// Metrics receives poll cycle observations.
type Metrics interface {
	ObservePoll()
	ObserveCandidate(table OriginTable, result string)
	ObserveFetchError(table OriginTable)
	ObserveNotifyFailure()
	ObserveCycleDuration(d time.Duration)
	Push(ctx context.Context) error
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// IDGenerator creates identifiers for log correlation.
type IDGenerator interface {
	NewID() (string, error)
}

// Candidate results reported to Metrics.ObserveCandidate.
const (
	ResultInserted  = "inserted"
	ResultDuplicate = "duplicate"
	ResultFailed    = "failed"
)
