package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/exurl-archiver/internal/app"
	"github.com/JakeFAU/exurl-archiver/internal/archiver"
)

type pollFlags struct {
	editData int64
	editNote int64
	dryRun   bool
}

// pollOutput is printed as JSON after a single cycle.
type pollOutput struct {
	CycleID  string              `json:"cycle_id"`
	Start    archiver.Watermarks `json:"start"`
	Next     archiver.Watermarks `json:"next"`
	EditData string              `json:"edit_data"`
	EditNote string              `json:"edit_note"`
	Stats    archiver.CycleStats `json:"stats"`
	Saved    bool                `json:"saved"`
	Error    string              `json:"error,omitempty"`
}

// newPollCmd creates the 'poll' subcommand, which runs exactly one cycle.
func newPollCmd() *cobra.Command {
	var flags pollFlags
	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Run a single poll cycle and print the result",
		Long: `Runs one poll cycle. Without --edit-data/--edit-note the cycle starts from
the stored watermarks and the advanced watermarks are saved afterwards. With
explicit starting points nothing is saved. --dry-run keeps candidates in memory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPollCommand(cmd, flags)
		},
	}
	cmd.Flags().Int64Var(&flags.editData, "edit-data", -1, "edit_data watermark to start from")
	cmd.Flags().Int64Var(&flags.editNote, "edit-note", -1, "edit_note watermark to start from")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "do not write candidates or state")
	return cmd
}

func runPollCommand(cmd *cobra.Command, flags pollFlags) error {
	e, err := resolveEnv(cmd.Context())
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	a, err := newApp(ctx, e.cfg, e.logger, app.Options{DryRun: flags.dryRun})
	if err != nil {
		return fmt.Errorf("initialize application services: %w", err)
	}
	defer a.Close()

	explicit := cmd.Flags().Changed("edit-data") || cmd.Flags().Changed("edit-note")
	var start archiver.Watermarks
	if !explicit || flags.editData < 0 || flags.editNote < 0 {
		resolve := a.Runner.Init
		if flags.dryRun {
			resolve = a.Runner.Resolve
		}
		if start, err = resolve(ctx); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("edit-data") {
		start.EditData = flags.editData
	}
	if cmd.Flags().Changed("edit-note") {
		start.EditNote = flags.editNote
	}
	if start.EditData < 0 || start.EditNote < 0 {
		return fmt.Errorf("%w: watermarks must be >= 0", archiver.ErrInvalidRange)
	}

	out := pollOutput{Start: start}
	var (
		res      archiver.CycleResult
		cycleErr error
	)
	if explicit || flags.dryRun {
		res, cycleErr = a.Poller.Cycle(ctx, start)
		out.Next = start.Apply(res)
	} else {
		res, out.Next, cycleErr = a.Runner.RunOnce(ctx, start)
		out.Saved = out.Next != start
	}
	out.CycleID = res.CycleID
	out.EditData = res.EditData.String()
	out.EditNote = res.EditNote.String()
	out.Stats = res.Stats
	if cycleErr != nil {
		out.Error = cycleErr.Error()
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return cycleErr
}
