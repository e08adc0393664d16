// Package app initializes and holds long-lived application services, acting
// as the dependency injection container for the CLI commands.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/JakeFAU/exurl-archiver/internal/archiver"
	"github.com/JakeFAU/exurl-archiver/internal/config"
	"github.com/JakeFAU/exurl-archiver/internal/metrics"
	"github.com/JakeFAU/exurl-archiver/internal/poller"
	pspub "github.com/JakeFAU/exurl-archiver/internal/publisher/pubsub"
	"github.com/JakeFAU/exurl-archiver/internal/runner"
	"github.com/JakeFAU/exurl-archiver/internal/storage/memory"
	"github.com/JakeFAU/exurl-archiver/internal/storage/postgres"
	redisstore "github.com/JakeFAU/exurl-archiver/internal/storage/redis"
)

// Options alter how services are built.
type Options struct {
	// DryRun keeps candidates in memory and disables notifications.
	DryRun bool
}

// App holds the shared services of one process.
type App struct {
	Config     config.Config
	Logger     *zap.Logger
	Pool       *pgxpool.Pool
	Source     archiver.RowSource
	Candidates archiver.CandidateStore
	State      archiver.WatermarkStore
	Metrics    *metrics.Metrics
	Poller     *poller.Poller
	Runner     *runner.Runner

	closers []func()
}

// New builds every service from cfg. It fails fast when a critical service
// cannot be initialized and releases whatever was already opened.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts Options) (_ *App, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if cfg.Database.AutoMigrate && !opts.DryRun {
		logger.Info("applying schema migrations")
		if err := postgres.Migrate(cfg.Database.DSN, postgres.MigrateUp); err != nil {
			return nil, err
		}
	}

	a.Pool, err = postgres.NewPool(ctx, postgres.PoolConfig{
		DSN:                   cfg.Database.DSN,
		MaxConns:              cfg.Database.MaxConns,
		MinConns:              cfg.Database.MinConns,
		MaxConnLifetime:       cfg.Database.MaxConnLifetime,
		DisableStatementCache: cfg.Database.DisableStatementCache,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.Pool.Close)

	a.Source, err = postgres.NewSource(a.Pool, postgres.SourceConfig{
		Schema:        cfg.Source.Schema,
		EditDataTable: cfg.Source.EditDataTable,
		EditNoteTable: cfg.Source.EditNoteTable,
	})
	if err != nil {
		return nil, fmt.Errorf("init row source: %w", err)
	}

	if opts.DryRun {
		logger.Info("dry run: candidates are kept in memory")
		a.Candidates = memory.NewCandidateStore()
	} else {
		a.Candidates, err = postgres.NewCandidateStore(a.Pool, cfg.Archive.Table)
		if err != nil {
			return nil, fmt.Errorf("init candidate store: %w", err)
		}
	}

	if err := a.initState(ctx); err != nil {
		return nil, err
	}

	a.Metrics = metrics.New(metrics.Options{
		Namespace: cfg.Metrics.Namespace,
		PushURL:   cfg.Metrics.PushURL,
		Job:       cfg.Metrics.Job,
	})

	pollerOpts := []poller.Option{
		poller.WithLogger(logger),
		poller.WithMetrics(a.Metrics),
		poller.WithBatchSize(cfg.Source.BatchSize),
		poller.WithConcurrentTables(cfg.Poller.Concurrent),
	}
	if cfg.Notify.Enabled && !opts.DryRun {
		pub, client, err := pspub.Dial(ctx, cfg.Notify.ProjectID, cfg.Notify.Topic)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pub.Stop, func() {
			if err := client.Close(); err != nil {
				logger.Warn("error closing pubsub client", zap.Error(err))
			}
		})
		pollerOpts = append(pollerOpts, poller.WithNotifier(pub))
		logger.Info("candidate notifications enabled", zap.String("topic", cfg.Notify.Topic))
	}

	a.Poller, err = poller.New(a.Source, a.Candidates, pollerOpts...)
	if err != nil {
		return nil, err
	}

	a.Runner, err = runner.New(a.Poller, a.Source, a.State, runner.Config{
		Interval:  cfg.Poller.Interval,
		StartFrom: cfg.Poller.StartFrom,
		Start: archiver.Watermarks{
			EditData: cfg.Poller.EditDataStart,
			EditNote: cfg.Poller.EditNoteStart,
		},
	}, runner.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	logger.Info("application services initialized",
		zap.String("state_backend", cfg.State.Backend),
		zap.Int("batch_size", a.Poller.BatchSize()),
	)
	return a, nil
}

func (a *App) initState(ctx context.Context) error {
	switch a.Config.State.Backend {
	case config.StatePostgres, "":
		st, err := postgres.NewStateStore(a.Pool, a.Config.State.Table, a.Config.State.Name)
		if err != nil {
			return fmt.Errorf("init state store: %w", err)
		}
		a.State = st
	case config.StateRedis:
		st, err := redisstore.NewStateStore(ctx, a.Config.State.RedisURL, a.Config.State.Name)
		if err != nil {
			return fmt.Errorf("init state store: %w", err)
		}
		a.closers = append(a.closers, func() {
			if err := st.Close(); err != nil {
				a.Logger.Warn("error closing redis client", zap.Error(err))
			}
		})
		a.State = st
	case config.StateMemory:
		a.State = memory.NewStateStore()
	default:
		return fmt.Errorf("unknown state backend %q", a.Config.State.Backend)
	}
	return nil
}

// Close shuts down services in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
