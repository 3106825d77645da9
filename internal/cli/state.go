package cli

import (
	"envdesk/internal/model"

	"github.com/spf13/cobra"
)

func newStateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Show the backend's working environment and whether batches are staged",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackend(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			st, err := b.FetchState(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			sync := model.Synced
			if st.Dirty {
				sync = model.Dirty
			}
			return writeList(cmd, app, st, map[string]any{
				"env":     st.Env,
				"dirty":   st.Dirty,
				"state":   sync,
				"backend": backendLabel(app),
			})
		},
	}
}

func backendLabel(app *App) string {
	if app.Backend != "" {
		return app.Backend
	}
	return "local:" + app.Dir
}
