package cli

import (
	"envdesk/internal/model"
	"envdesk/internal/syncer"

	"github.com/spf13/cobra"
)

func newVarsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "vars",
		Aliases: []string{"var", "variables"},
		Short:   "List, show, add and delete variables",
	}
	cmd.AddCommand(newVarsListCmd(app))
	cmd.AddCommand(newVarsShowCmd(app))
	cmd.AddCommand(newVarsAddCmd(app))
	cmd.AddCommand(newVarsRmCmd(app))
	cmd.AddCommand(newVarsSetCmd(app))
	return cmd
}

func newVarsListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all variables",
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
			vars := make([]model.Variable, 0, len(st.Env))
			for _, name := range st.Env.Names() {
				vars = append(vars, model.Variable{Name: name, Values: st.Env[name]})
			}
			return writeList(cmd, app, st.Env, map[string]any{"variables": vars, "dirty": st.Dirty})
		},
	}
}

func newVarsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <NAME>",
		Short: "Show one variable's values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := model.NormalizeName(args[0])
			b, err := openBackend(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			st, err := b.FetchState(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			values, ok := st.Env[name]
			if !ok {
				return writeErr(cmd, errNotFound("variable", name))
			}
			v := model.Variable{Name: name, Values: values}
			return writeList(cmd, app, v, v)
		},
	}
}

func newVarsAddCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "add <NAME> [value...]",
		Short: "Create a variable, optionally with initial values",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := model.NormalizeName(args[0])
			return runEdit(cmd, app, name, func(ctl *syncer.Controller) error {
				if err := ctl.AddVariable(name); err != nil {
					return err
				}
				for _, v := range args[1:] {
					if err := ctl.AppendValue(name, v); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newVarsRmCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <NAME>",
		Aliases: []string{"delete"},
		Short:   "Delete a variable",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := model.NormalizeName(args[0])
			return runEdit(cmd, app, name, func(ctl *syncer.Controller) error {
				if _, ok := ctl.Values(name); !ok {
					return errNotFound("variable", name)
				}
				return ctl.DeleteVariable(name)
			})
		},
	}
}

func newVarsSetCmd(app *App) *cobra.Command {
	var create bool

	cmd := &cobra.Command{
		Use:   "set <NAME> [value...]",
		Short: "Replace a variable's whole value list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := model.NormalizeName(args[0])
			return runEdit(cmd, app, name, func(ctl *syncer.Controller) error {
				if _, ok := ctl.Values(name); !ok && create {
					if err := ctl.AddVariable(name); err != nil {
						return err
					}
				}
				return ctl.SetValues(name, args[1:])
			})
		},
	}
	cmd.Flags().BoolVar(&create, "create", false, "Create the variable if it does not exist")
	return cmd
}

// runEdit loads a controller, applies edit, flushes, and prints the variable
// as the backend now sees it.
func runEdit(cmd *cobra.Command, app *App, name string, edit func(*syncer.Controller) error) error {
	ctx := cmd.Context()
	ctl, _, err := openController(ctx, app)
	if err != nil {
		return writeErr(cmd, err)
	}
	if err := edit(ctl); err != nil {
		return writeErr(cmd, err)
	}
	if err := ctl.Flush(ctx); err != nil {
		return writeErr(cmd, err)
	}

	data := map[string]any{"variable": name, "state": ctl.State()}
	if values, ok := ctl.Values(name); ok {
		data["values"] = values
	} else {
		data["deleted"] = true
	}
	hints := []string{"envdesk undo", "envdesk apply"}
	return writeOut(cmd, app, map[string]any{"data": data, "_hints": hints})
}
