package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/exurl-archiver/internal/storage/postgres"
)

// migrateFunc is swapped out in tests.
var migrateFunc = postgres.Migrate

// newMigrateCmd creates the 'migrate' subcommand.
func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or roll back the candidate and state table migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{postgres.MigrateUp, postgres.MigrateDown},
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := resolveEnv(cmd.Context())
			if err != nil {
				return err
			}
			direction := args[0]
			if err := migrateFunc(e.cfg.Database.DSN, direction); err != nil {
				return err
			}
			e.logger.Info("migrations applied", zap.String("direction", direction))
			return nil
		},
	}
}
