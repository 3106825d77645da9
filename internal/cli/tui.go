package cli

import (
	"os"
	"path/filepath"

	"envdesk/internal/store"
	"envdesk/internal/tui"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func newTUICmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Start the interactive editor (default with no command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, app)
		},
	}
}

func runTUI(cmd *cobra.Command, app *App) error {
	b, err := openBackend(cmd.Context(), app)
	if err != nil {
		return writeErr(cmd, err)
	}

	logger, closeLog := tuiLogger(app)
	defer closeLog()

	opts := tui.Options{
		Label:   backendLabel(app),
		Applier: b,
		Logger:  logger,
	}
	if d, ok := app.cfg.AutoFlushDebounce(); ok {
		opts.AutoFlush = d
	}
	if app.cfg != nil && app.cfg.TUI != nil {
		opts.Theme = app.cfg.TUI.Theme
	}
	if err := tui.Run(cmd.Context(), b, opts); err != nil {
		return writeErr(cmd, err)
	}
	return nil
}

// tuiLogger writes to <config dir>/tui.log at debug level; stderr belongs to
// the alt screen while the TUI runs.
func tuiLogger(app *App) (zerolog.Logger, func()) {
	if app.log.GetLevel() > zerolog.DebugLevel {
		return zerolog.Nop(), func() {}
	}
	dir, err := store.ConfigDir()
	if err != nil {
		return zerolog.Nop(), func() {}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return zerolog.Nop(), func() {}
	}
	f, err := os.OpenFile(filepath.Join(dir, "tui.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return zerolog.Nop(), func() {}
	}
	return zerolog.New(f).With().Timestamp().Logger(), func() { _ = f.Close() }
}
