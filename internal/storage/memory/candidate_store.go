package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/exurl-archiver/internal/archiver"
)

// CandidateStore keeps candidates in a set keyed by (url, origin, origin id).
type CandidateStore struct {
	mu    sync.Mutex
	seen  map[archiver.Candidate]struct{}
	order []archiver.Candidate
}

var _ archiver.CandidateStore = (*CandidateStore)(nil)

// NewCandidateStore constructs an empty CandidateStore.
func NewCandidateStore() *CandidateStore {
	return &CandidateStore{seen: make(map[archiver.Candidate]struct{})}
}

// Save implements archiver.CandidateStore.
func (s *CandidateStore) Save(_ context.Context, c archiver.Candidate) (bool, error) {
	if err := archiver.ValidateCandidate(c); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[c]; ok {
		return false, nil
	}
	s.seen[c] = struct{}{}
	s.order = append(s.order, c)
	return true, nil
}

// Candidates returns a copy of the stored candidates in insertion order.
func (s *CandidateStore) Candidates() []archiver.Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]archiver.Candidate, len(s.order))
	copy(out, s.order)
	return out
}
