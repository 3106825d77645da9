package cli

import (
	"github.com/spf13/cobra"
)

func newUndoCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Discard the newest staged batch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ctl, _, err := openController(ctx, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := ctl.Undo(ctx); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{"state": ctl.State(), "env": ctl.Snapshot()},
			})
		},
	}
}
