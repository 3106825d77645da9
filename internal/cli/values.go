package cli

import (
	"slices"
	"strconv"
	"strings"

	"envdesk/internal/model"
	"envdesk/internal/syncer"

	"github.com/spf13/cobra"
)

func newValuesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "values",
		Aliases: []string{"value"},
		Short:   "Edit the values of one variable",
		Long: strings.TrimSpace(`
Edit the ordered values of a variable. Indexes are zero-based and refer to the
list as shown by ` + "`envdesk vars show <NAME>`" + `.
`),
	}
	cmd.AddCommand(newValuesAppendCmd(app))
	cmd.AddCommand(newValuesSetCmd(app))
	cmd.AddCommand(newValuesRmCmd(app))
	cmd.AddCommand(newValuesMoveCmd(app))
	return cmd
}

func newValuesAppendCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "append <NAME> <value...>",
		Short: "Append values to the end of the list",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := model.NormalizeName(args[0])
			return runEdit(cmd, app, name, func(ctl *syncer.Controller) error {
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

func newValuesSetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "set <NAME> <index> <value>",
		Short: "Replace the value at index",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := model.NormalizeName(args[0])
			idx, err := parseIndex(args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			return runEdit(cmd, app, name, func(ctl *syncer.Controller) error {
				return ctl.ModifyValue(name, idx, args[2])
			})
		},
	}
}

func newValuesRmCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <NAME> <index...>",
		Aliases: []string{"delete"},
		Short:   "Delete values by index",
		Long:    "Delete values by index. Several indexes refer to the list as it is before any of them is removed.",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := model.NormalizeName(args[0])
			idxs := make([]int, 0, len(args)-1)
			for _, a := range args[1:] {
				idx, err := parseIndex(a)
				if err != nil {
					return writeErr(cmd, err)
				}
				idxs = append(idxs, idx)
			}
			return runEdit(cmd, app, name, func(ctl *syncer.Controller) error {
				for _, idx := range sortedDesc(idxs) {
					if err := ctl.DeleteValue(name, idx); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newValuesMoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "move <NAME> <index> <up|down|target-index>",
		Short: "Move a value one step up or down, or to a target index",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := model.NormalizeName(args[0])
			idx, err := parseIndex(args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			to := strings.ToLower(strings.TrimSpace(args[2]))
			return runEdit(cmd, app, name, func(ctl *syncer.Controller) error {
				switch to {
				case "up":
					return ctl.MoveValue(name, idx, syncer.Up)
				case "down":
					return ctl.MoveValue(name, idx, syncer.Down)
				}
				target, err := parseIndex(to)
				if err != nil {
					return errUsage("move target must be up, down or an index (got %q)", args[2])
				}
				return ctl.ReorderValue(name, idx, target)
			})
		},
	}
}

func parseIndex(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, errUsage("invalid index %q (expected a non-negative integer)", s)
	}
	return n, nil
}

// sortedDesc returns the distinct indexes, highest first.
func sortedDesc(in []int) []int {
	out := slices.Clone(in)
	slices.Sort(out)
	out = slices.Compact(out)
	slices.Reverse(out)
	return out
}
