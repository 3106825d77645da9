package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"

	"envdesk/internal/editlog"
	"envdesk/internal/model"

	"github.com/spf13/cobra"
)

func newBatchCmd(app *App) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Apply operations from stdin (one JSON object per line) as one flush",
		Long: strings.TrimSpace(`
Read operations from stdin, one JSON object per line, and commit them as a
single compacted flush. Blank lines and lines starting with # are ignored.

Carried values (oldValue, value, priorValues) may be omitted; they are filled
in from the current state before compaction.
`),
		Example: strings.TrimSpace(`
printf '%s\n' \
  '{"kind":"AppendValue","variable":"PATH","value":"/opt/bin"}' \
  '{"kind":"DeleteValue","variable":"PATH","index":0}' | envdesk batch --dry-run
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := readOps(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}

			ctx := cmd.Context()
			ctl, _, err := openController(ctx, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			for i, op := range ops {
				if err := ctl.Mutate(op); err != nil {
					return writeErr(cmd, fmt.Errorf("operation %d: %w", i+1, err))
				}
			}

			res := editlog.CompactAgainst(ctl.Base(), ctl.Pending())
			data := map[string]any{
				"submitted":   len(ops),
				"ops":         res.Ops,
				"folded":      res.Folded,
				"uncompacted": res.Fallback,
			}
			if dryRun {
				data["dryRun"] = true
				data["env"] = ctl.Snapshot()
				return writeOut(cmd, app, map[string]any{"data": data})
			}

			if err := ctl.Flush(ctx); err != nil {
				return writeErr(cmd, err)
			}
			data["state"] = ctl.State()
			return writeOut(cmd, app, map[string]any{"data": data})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the compacted operations without committing")
	return cmd
}

func readOps(cmd *cobra.Command) ([]model.Operation, error) {
	sc := bufio.NewScanner(cmd.InOrStdin())
	sc.Buffer(make([]byte, 0, 64<<10), 4<<20)

	ops := []model.Operation{}
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var op model.Operation
		dec := json.NewDecoder(strings.NewReader(text))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&op); err != nil {
			return nil, errUsage("line %d: %v", line, err)
		}
		if !op.Kind.Valid() {
			return nil, errUsage("line %d: unknown operation kind %q", line, op.Kind)
		}
		op.Variable = model.NormalizeName(op.Variable)
		ops = append(ops, op)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(ops) == 0 {
		return nil, errUsage("no operations on stdin")
	}
	return ops, nil
}
