package cmd

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/exurl-archiver/internal/api"
	"github.com/JakeFAU/exurl-archiver/internal/app"
)

// newRunCmd creates the long-running 'run' subcommand.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Poll continuously and serve the operator endpoints",
		Args:  cobra.NoArgs,
		RunE:  runRunCommand,
	}
}

func runRunCommand(cmd *cobra.Command, _ []string) error {
	e, err := resolveEnv(cmd.Context())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, e.cfg, e.logger, app.Options{})
	if err != nil {
		return fmt.Errorf("initialize application services: %w", err)
	}
	defer a.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Runner.Run(gctx)
	})
	if e.cfg.Server.Enabled {
		opts := api.Options{
			State:      a.Runner,
			Metrics:    a.Metrics.Handler(),
			Middleware: []func(http.Handler) http.Handler{a.Metrics.Middleware},
			Logger:     e.logger,
		}
		if a.Pool != nil {
			opts.Ready = a.Pool
		}
		srv := api.NewServer(opts)
		g.Go(func() error {
			return srv.ListenAndServe(gctx, e.cfg.Server.Addr)
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	e.logger.Info("shutdown complete")
	return nil
}
