package cli

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
)

func newInitCmd(app *App) *cobra.Command {
	var (
		importEnv bool
		separator string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the local store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Backend != "" {
				return writeErr(cmd, errors.New("init only works on the local store; unset --backend"))
			}
			st, err := localStore(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			existed := st.Exists()
			id, err := st.StoreID(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}

			imported := 0
			if importEnv {
				if imported, err = st.ImportEnviron(cmd.Context(), os.Environ(), separator); err != nil {
					return writeErr(cmd, err)
				}
			}

			hints := []string{}
			if !importEnv && !existed {
				hints = append(hints, "envdesk init --import-env")
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"dir":      st.Dir,
					"storeId":  id,
					"created":  !existed,
					"imported": imported,
				},
				"_hints": hints,
			})
		},
	}

	cmd.Flags().BoolVar(&importEnv, "import-env", false, "Seed variables from the current process environment")
	cmd.Flags().StringVar(&separator, "separator", string(os.PathListSeparator), "List separator used to split imported values")
	return cmd
}
