package archiver

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRange signals a negative start id or a non-positive limit.
	ErrInvalidRange = errors.New("invalid fetch range")
	// ErrInvalidCandidate signals a candidate that cannot be persisted.
	ErrInvalidCandidate = errors.New("invalid candidate")
	// ErrStateNotFound signals that no poller state has been saved yet.
	ErrStateNotFound = errors.New("poller state not found")
)

// FetchError is returned when a row source could not be queried. It aborts
// the cycle; the watermark of Table is not advanced.
type FetchError struct {
	Table OriginTable
	Cause error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Table, e.Cause)
}

func (e *FetchError) Unwrap() error { return e.Cause }

// SaveError describes a failed non-conflict insert of one candidate. It never
// aborts a cycle.
type SaveError struct {
	Candidate Candidate
	Cause     error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("save %s url from %s %d: %v", e.Candidate.URL, e.Candidate.Origin, e.Candidate.OriginID, e.Cause)
}

func (e *SaveError) Unwrap() error { return e.Cause }

// ValidateCandidate checks the fields every store requires.
func ValidateCandidate(c Candidate) error {
	switch {
	case c.URL == "":
		return fmt.Errorf("%w: empty url", ErrInvalidCandidate)
	case !c.Origin.Valid():
		return fmt.Errorf("%w: unknown origin %q", ErrInvalidCandidate, c.Origin)
	case c.OriginID < 0:
		return fmt.Errorf("%w: negative origin id %d", ErrInvalidCandidate, c.OriginID)
	}
	return nil
}

// ValidateRange checks the arguments of a RowSource fetch.
func ValidateRange(startID int64, limit int) error {
	if startID < 0 {
		return fmt.Errorf("%w: start id %d", ErrInvalidRange, startID)
	}
	if limit <= 0 {
		return fmt.Errorf("%w: limit %d", ErrInvalidRange, limit)
	}
	return nil
}
