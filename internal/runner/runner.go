// Package runner drives poll cycles on a fixed interval and persists the
// resulting watermarks between cycles and across restarts.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/exurl-archiver/internal/archiver"
	"github.com/JakeFAU/exurl-archiver/internal/clock/system"
)

// Where to begin when no state has been stored yet.
const (
	StartLatest   = "latest"
	StartExplicit = "explicit"
)

const defaultInterval = 30 * time.Second

// Cycler runs one poll cycle. *poller.Poller satisfies it.
type Cycler interface {
	Cycle(ctx context.Context, start archiver.Watermarks) (archiver.CycleResult, error)
}

// Config controls scheduling and seeding.
type Config struct {
	Interval time.Duration
	// StartFrom is StartLatest or StartExplicit.
	StartFrom string
	// Start seeds the watermarks when StartFrom is StartExplicit.
	Start archiver.Watermarks
}

// CycleSummary describes the most recent cycle.
type CycleSummary struct {
	ID        string              `json:"id"`
	StartedAt time.Time           `json:"started_at"`
	Duration  string              `json:"duration"`
	EditData  string              `json:"edit_data"`
	EditNote  string              `json:"edit_note"`
	Stats     archiver.CycleStats `json:"stats"`
	Error     string              `json:"error,omitempty"`
}

// Snapshot is the runner's externally visible state.
type Snapshot struct {
	State     archiver.State `json:"state"`
	Cycles    int            `json:"cycles"`
	Failures  int            `json:"failures"`
	LastCycle *CycleSummary  `json:"last_cycle,omitempty"`
}

// Runner owns the watermarks of a running poller.
type Runner struct {
	cycler Cycler
	source archiver.RowSource
	store  archiver.WatermarkStore
	clock  archiver.Clock
	logger *zap.Logger
	cfg    Config

	mu       sync.RWMutex
	state    archiver.State
	cycles   int
	failures int
	last     *CycleSummary
}

// Option customizes a Runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock sets the clock.
func WithClock(clock archiver.Clock) Option {
	return func(r *Runner) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// New validates cfg and constructs a Runner.
func New(cycler Cycler, source archiver.RowSource, store archiver.WatermarkStore, cfg Config, opts ...Option) (*Runner, error) {
	if cycler == nil || store == nil {
		return nil, errors.New("runner: cycler and watermark store are required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	switch cfg.StartFrom {
	case "":
		cfg.StartFrom = StartLatest
	case StartLatest, StartExplicit:
	default:
		return nil, fmt.Errorf("runner: unknown start_from %q", cfg.StartFrom)
	}
	if cfg.StartFrom == StartLatest && source == nil {
		return nil, errors.New("runner: start_from latest requires a row source")
	}
	if cfg.Start.EditData < 0 || cfg.Start.EditNote < 0 {
		return nil, fmt.Errorf("runner: %w: negative start watermark", archiver.ErrInvalidRange)
	}

	r := &Runner{
		cycler: cycler,
		source: source,
		store:  store,
		clock:  system.New(),
		logger: zap.NewNop(),
		cfg:    cfg,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("runner")
	return r, nil
}

// Init loads the stored watermarks, seeding and saving them on first run.
func (r *Runner) Init(ctx context.Context) (archiver.Watermarks, error) {
	st, seeded, err := r.resolve(ctx)
	if err != nil {
		return archiver.Watermarks{}, err
	}
	if seeded {
		if err := r.store.Save(ctx, st); err != nil {
			return archiver.Watermarks{}, fmt.Errorf("save seeded state: %w", err)
		}
	}

	r.mu.Lock()
	r.state = st
	r.mu.Unlock()
	return st.Watermarks, nil
}

// Resolve is Init without writes: seeded watermarks are returned but never
// saved.
func (r *Runner) Resolve(ctx context.Context) (archiver.Watermarks, error) {
	st, _, err := r.resolve(ctx)
	if err != nil {
		return archiver.Watermarks{}, err
	}
	return st.Watermarks, nil
}

func (r *Runner) resolve(ctx context.Context) (archiver.State, bool, error) {
	st, err := r.store.Load(ctx)
	switch {
	case err == nil:
		r.logger.Info("resuming from stored watermarks",
			zap.Int64("edit_data", st.Watermarks.EditData),
			zap.Int64("edit_note", st.Watermarks.EditNote),
		)
		return st, false, nil
	case errors.Is(err, archiver.ErrStateNotFound):
		w, seedErr := r.seed(ctx)
		if seedErr != nil {
			return archiver.State{}, false, seedErr
		}
		r.logger.Info("seeded watermarks",
			zap.String("start_from", r.cfg.StartFrom),
			zap.Int64("edit_data", w.EditData),
			zap.Int64("edit_note", w.EditNote),
		)
		return archiver.State{Watermarks: w, UpdatedAt: r.clock.Now()}, true, nil
	default:
		return archiver.State{}, false, fmt.Errorf("load state: %w", err)
	}
}

func (r *Runner) seed(ctx context.Context) (archiver.Watermarks, error) {
	if r.cfg.StartFrom == StartExplicit {
		return r.cfg.Start, nil
	}
	w, err := r.source.LatestIDs(ctx)
	if err != nil {
		return archiver.Watermarks{}, fmt.Errorf("read latest ids: %w", err)
	}
	return w, nil
}

// RunOnce executes one cycle from w, persists any advance and returns the
// next watermarks. Advances reported alongside a cycle error are still
// applied; the failed table keeps its watermark.
func (r *Runner) RunOnce(ctx context.Context, w archiver.Watermarks) (archiver.CycleResult, archiver.Watermarks, error) {
	started := r.clock.Now()
	res, cycleErr := r.cycler.Cycle(ctx, w)
	next := w.Apply(res)

	summary := &CycleSummary{
		ID:        res.CycleID,
		StartedAt: started,
		Duration:  r.clock.Now().Sub(started).String(),
		EditData:  res.EditData.String(),
		EditNote:  res.EditNote.String(),
		Stats:     res.Stats,
	}
	if cycleErr != nil {
		summary.Error = cycleErr.Error()
	}

	var saveErr error
	if next != w {
		st := archiver.State{Watermarks: next, UpdatedAt: r.clock.Now()}
		if err := r.store.Save(ctx, st); err != nil {
			saveErr = fmt.Errorf("save state: %w", err)
		}
	}

	r.mu.Lock()
	r.cycles++
	if cycleErr != nil {
		r.failures++
	}
	r.last = summary
	if next != w {
		r.state = archiver.State{Watermarks: next, UpdatedAt: r.clock.Now()}
	}
	r.mu.Unlock()

	return res, next, errors.Join(cycleErr, saveErr)
}

// Run initializes state, runs a cycle immediately and then one per interval
// until ctx is cancelled. Cycle errors are logged and the loop continues.
func (r *Runner) Run(ctx context.Context) error {
	w, err := r.Init(ctx)
	if err != nil {
		return err
	}
	r.logger.Info("runner starting", zap.Duration("interval", r.cfg.Interval))

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		_, next, err := r.RunOnce(ctx, w)
		if err != nil {
			if ctx.Err() != nil {
				r.logger.Info("runner stopped")
				return nil
			}
			r.logger.Error("poll cycle failed", zap.Error(err))
		}
		w = next

		select {
		case <-ctx.Done():
			r.logger.Info("runner stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Snapshot returns the current watermarks and the last cycle summary.
func (r *Runner) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap := Snapshot{State: r.state, Cycles: r.cycles, Failures: r.failures}
	if r.last != nil {
		last := *r.last
		snap.LastCycle = &last
	}
	return snap
}
