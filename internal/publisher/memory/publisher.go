// Package memory contains an in-memory notifier for tests and dry runs.
package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/exurl-archiver/internal/archiver"
)

// Publisher records notified candidates for inspection.
type Publisher struct {
	mu         sync.RWMutex
	candidates []archiver.Candidate
	err        error
}

var _ archiver.Notifier = (*Publisher)(nil)

// New returns a memory Publisher.
func New() *Publisher {
	return &Publisher{}
}

// FailWith makes subsequent Notify calls return err. Pass nil to recover.
func (p *Publisher) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Notify records c.
func (p *Publisher) Notify(_ context.Context, c archiver.Candidate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.candidates = append(p.candidates, c)
	return nil
}

// Candidates returns the recorded notifications.
func (p *Publisher) Candidates() []archiver.Candidate {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]archiver.Candidate, len(p.candidates))
	copy(out, p.candidates)
	return out
}
