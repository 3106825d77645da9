package cli

import (
	"encoding/json"
	"time"

	"envdesk/internal/model"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

type historyEntry struct {
	model.Batch
	Status string `json:"status"`
	Age    string `json:"age"`
}

func batchStatus(b model.Batch) string {
	switch {
	case b.UndoneAt != nil:
		return "undone"
	case b.AppliedAt != nil:
		return "applied"
	case b.SealedAt != nil:
		return "staged"
	}
	return "open"
}

func newHistoryCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List batches, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackend(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			batches, err := b.Batches(cmd.Context(), limit)
			if err != nil {
				return writeErr(cmd, err)
			}
			now := time.Now()
			out := make([]historyEntry, 0, len(batches))
			for _, bt := range batches {
				out = append(out, historyEntry{
					Batch:  bt,
					Status: batchStatus(bt),
					Age:    humanize.RelTime(bt.OpenedAt, now, "ago", "from now"),
				})
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"batches": out}})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum batches to list (0 = all)")
	cmd.AddCommand(newHistoryShowCmd(app))
	return cmd
}

func newHistoryShowCmd(app *App) *cobra.Command {
	var jsonl bool

	cmd := &cobra.Command{
		Use:   "show <batch-id>",
		Short: "Show the operations committed in one batch",
		Long:  "Show the operations committed in one batch. With --jsonl the output can be piped back into `envdesk batch`.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackend(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			ops, err := b.BatchOps(cmd.Context(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if jsonl {
				enc := json.NewEncoder(cmd.OutOrStdout())
				for _, op := range ops {
					if err := enc.Encode(op); err != nil {
						return err
					}
				}
				return nil
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"id": args[0], "ops": ops}})
		},
	}

	cmd.Flags().BoolVar(&jsonl, "jsonl", false, "Print one JSON operation per line")
	return cmd
}
