// Package poller runs one incremental poll cycle over the change-log tables:
// fetch a batch per table from its watermark, extract candidate URLs, save
// them and report how far each watermark may advance.
package poller

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/exurl-archiver/internal/archiver"
	"github.com/JakeFAU/exurl-archiver/internal/clock/system"
	"github.com/JakeFAU/exurl-archiver/internal/extract"
	"github.com/JakeFAU/exurl-archiver/internal/id/uuid"
	"github.com/JakeFAU/exurl-archiver/internal/metrics"
)

// DefaultBatchSize is the number of rows fetched per table per cycle.
const DefaultBatchSize = 10

// Option customizes a Poller.
type Option func(*Poller)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Poller) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m archiver.Metrics) Option {
	return func(p *Poller) {
		if m != nil {
			p.metrics = m
		}
	}
}

// WithNotifier announces every inserted candidate to n.
func WithNotifier(n archiver.Notifier) Option {
	return func(p *Poller) { p.notifier = n }
}

// WithBatchSize overrides DefaultBatchSize.
func WithBatchSize(n int) Option {
	return func(p *Poller) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithConcurrentTables processes both tables in parallel.
func WithConcurrentTables(enabled bool) Option {
	return func(p *Poller) { p.concurrent = enabled }
}

// WithIDGenerator sets the cycle id generator.
func WithIDGenerator(ids archiver.IDGenerator) Option {
	return func(p *Poller) {
		if ids != nil {
			p.ids = ids
		}
	}
}

// WithClock sets the clock used for cycle timing.
func WithClock(clock archiver.Clock) Option {
	return func(p *Poller) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// Poller executes poll cycles. It keeps no watermark state of its own, so a
// single Poller may serve any number of callers.
type Poller struct {
	source     archiver.RowSource
	store      archiver.CandidateStore
	notifier   archiver.Notifier
	metrics    archiver.Metrics
	logger     *zap.Logger
	ids        archiver.IDGenerator
	clock      archiver.Clock
	batchSize  int
	concurrent bool
}

// New constructs a Poller.
func New(source archiver.RowSource, store archiver.CandidateStore, opts ...Option) (*Poller, error) {
	if source == nil {
		return nil, errors.New("poller: row source is required")
	}
	if store == nil {
		return nil, errors.New("poller: candidate store is required")
	}
	p := &Poller{
		source:    source,
		store:     store,
		metrics:   metrics.Noop{},
		logger:    zap.NewNop(),
		ids:       uuid.New(),
		clock:     system.New(),
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.Named("poller")
	return p, nil
}

// BatchSize reports the per-table fetch limit.
func (p *Poller) BatchSize() int { return p.batchSize }

// Cycle runs one poll cycle starting at start. On success the poll counter
// is incremented once and metrics are pushed; a push failure is logged only.
//
// When a table cannot be fetched the returned error wraps an
// *archiver.FetchError, that table's advance is Unchanged, and the advance of
// any table that was processed is still reported in the result.
func (p *Poller) Cycle(ctx context.Context, start archiver.Watermarks) (archiver.CycleResult, error) {
	begin := p.clock.Now()
	cycleID, err := p.ids.NewID()
	if err != nil {
		p.logger.Warn("cycle id unavailable", zap.Error(err))
		cycleID = fmt.Sprintf("cycle-%d", begin.UnixNano())
	}
	logger := p.logger.With(zap.String("cycle_id", cycleID))
	logger.Debug("poll cycle starting",
		zap.Int64("edit_data_start", start.EditData),
		zap.Int64("edit_note_start", start.EditNote),
		zap.Int("batch_size", p.batchSize),
	)

	result := archiver.CycleResult{CycleID: cycleID}
	var dataErr, noteErr error
	if p.concurrent {
		var g errgroup.Group
		g.Go(func() error {
			result.EditData, result.Stats.EditData, dataErr = p.editData(ctx, logger, start.EditData)
			return nil
		})
		g.Go(func() error {
			result.EditNote, result.Stats.EditNote, noteErr = p.editNotes(ctx, logger, start.EditNote)
			return nil
		})
		_ = g.Wait()
	} else {
		result.EditData, result.Stats.EditData, dataErr = p.editData(ctx, logger, start.EditData)
		if dataErr == nil {
			result.EditNote, result.Stats.EditNote, noteErr = p.editNotes(ctx, logger, start.EditNote)
		}
	}

	if err := errors.Join(dataErr, noteErr); err != nil {
		logger.Error("poll cycle failed", zap.Error(err))
		return result, err
	}

	p.metrics.ObservePoll()
	p.metrics.ObserveCycleDuration(p.clock.Now().Sub(begin))
	if err := p.metrics.Push(ctx); err != nil {
		logger.Warn("metrics push failed", zap.Error(err))
	}

	logger.Info("poll cycle complete",
		zap.Stringer("edit_data", result.EditData),
		zap.Stringer("edit_note", result.EditNote),
		zap.Int("rows", result.Stats.EditData.Rows+result.Stats.EditNote.Rows),
		zap.Int("inserted", result.Stats.EditData.Inserted+result.Stats.EditNote.Inserted),
		zap.Int("failed", result.Stats.EditData.Failed+result.Stats.EditNote.Failed),
	)
	return result, nil
}

func (p *Poller) editData(ctx context.Context, logger *zap.Logger, start int64) (archiver.Advance, archiver.TableStats, error) {
	var stats archiver.TableStats
	rows, err := p.source.EditData(ctx, start, p.batchSize)
	if err != nil {
		p.metrics.ObserveFetchError(archiver.OriginEditData)
		return archiver.Unchanged(), stats, &archiver.FetchError{Table: archiver.OriginEditData, Cause: err}
	}
	stats.Rows = len(rows)
	if len(rows) == 0 {
		return archiver.Unchanged(), stats, nil
	}
	for _, row := range rows {
		candidates := extract.ForEditData(row)
		if len(candidates) == 0 {
			logger.Debug("no urls in edit data", zap.Int64("edit_id", row.EditID))
		}
		for _, c := range candidates {
			p.save(ctx, logger, c, &stats)
		}
	}
	return archiver.Advanced(rows[len(rows)-1].EditID + 1), stats, nil
}

func (p *Poller) editNotes(ctx context.Context, logger *zap.Logger, start int64) (archiver.Advance, archiver.TableStats, error) {
	var stats archiver.TableStats
	rows, err := p.source.EditNotes(ctx, start, p.batchSize)
	if err != nil {
		p.metrics.ObserveFetchError(archiver.OriginEditNote)
		return archiver.Unchanged(), stats, &archiver.FetchError{Table: archiver.OriginEditNote, Cause: err}
	}
	stats.Rows = len(rows)
	if len(rows) == 0 {
		return archiver.Unchanged(), stats, nil
	}
	for _, row := range rows {
		for _, c := range extract.ForEditNote(row) {
			p.save(ctx, logger, c, &stats)
		}
	}
	return archiver.Advanced(rows[len(rows)-1].NoteID + 1), stats, nil
}

// save persists one candidate. Failures are logged and counted, never
// returned.
func (p *Poller) save(ctx context.Context, logger *zap.Logger, c archiver.Candidate, stats *archiver.TableStats) {
	stats.Candidates++
	fields := []zap.Field{
		zap.String("url", c.URL),
		zap.String("from_table", string(c.Origin)),
		zap.Int64("from_table_id", c.OriginID),
	}

	inserted, err := p.store.Save(ctx, c)
	switch {
	case err != nil:
		stats.Failed++
		p.metrics.ObserveCandidate(c.Origin, archiver.ResultFailed)
		logger.Warn("candidate save failed", zap.Error(&archiver.SaveError{Candidate: c, Cause: err}))
		return
	case !inserted:
		stats.Duplicates++
		p.metrics.ObserveCandidate(c.Origin, archiver.ResultDuplicate)
		logger.Debug("candidate already recorded", fields...)
		return
	}

	stats.Inserted++
	p.metrics.ObserveCandidate(c.Origin, archiver.ResultInserted)
	logger.Info("candidate added", fields...)

	if p.notifier == nil {
		return
	}
	if err := p.notifier.Notify(ctx, c); err != nil {
		p.metrics.ObserveNotifyFailure()
		logger.Warn("candidate notification failed", append(fields, zap.Error(err))...)
	}
}
