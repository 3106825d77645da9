package cli

import (
	"github.com/spf13/cobra"
)

func newApplyCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Publish staged batches and write the export script",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackend(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			res, err := b.Apply(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			hints := []string{}
			if res.ExportPath == "" {
				hints = append(hints, "envdesk config set export.path ~/.envdesk/env.sh")
			}
			return writeOut(cmd, app, map[string]any{"data": res, "_hints": hints})
		},
	}
}
