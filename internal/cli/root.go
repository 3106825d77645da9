package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"envdesk/internal/format"
	"envdesk/internal/gateway"
	"envdesk/internal/store"
	"envdesk/internal/syncer"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

type App struct {
	Dir        string
	Backend    string
	PrettyJSON bool
	Format     string
	LogLevel   string

	cfg *store.GlobalConfig
	log zerolog.Logger
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "envdesk",
		Short:        "Edit PATH-like environment variables with staged, undoable batches",
		SilenceUsage: true,
		// Errors are written by writeErr.
		SilenceErrors: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  envdesk

  # Seed the store from the current shell
  envdesk init --import-env

  # Shortcut for: envdesk vars show PATH
  envdesk PATH

  # Edit, then publish
  envdesk values append PATH /opt/bin
  envdesk apply
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if !format.Valid(app.Format) {
			return writeErr(cmd, fmt.Errorf("unknown format: %s (expected json|edn|env)", app.Format))
		}
		lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(app.LogLevel)))
		if err != nil || app.LogLevel == "" {
			lvl = zerolog.WarnLevel
		}
		app.log = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.Kitchen}).
			Level(lvl).With().Timestamp().Logger()

		cfg, err := store.LoadConfig()
		if err != nil {
			return writeErr(cmd, err)
		}
		app.cfg = cfg
		if app.Backend == "" {
			app.Backend = strings.TrimSpace(cfg.Backend)
		}
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.Dir, "dir", envOr("ENVDESK_DIR", ""), "Path to the local store dir (default: <config dir>/store)")
	cmd.PersistentFlags().StringVar(&app.Backend, "backend", envOr("ENVDESK_BACKEND", ""), "URL of an envdesk server (default: local store)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("ENVDESK_FORMAT", "json"), "Output format (json|edn|env)")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", envOr("ENVDESK_LOG_LEVEL", "warn"), "Log level on stderr (debug|info|warn|error)")

	cmd.AddCommand(newInitCmd(app))
	cmd.AddCommand(newStateCmd(app))
	cmd.AddCommand(newVarsCmd(app))
	cmd.AddCommand(newValuesCmd(app))
	cmd.AddCommand(newBatchCmd(app))
	cmd.AddCommand(newUndoCmd(app))
	cmd.AddCommand(newApplyCmd(app))
	cmd.AddCommand(newHistoryCmd(app))
	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newDocsCmd(app))
	cmd.AddCommand(newTUICmd(app))

	return cmd
}

// resolveDir picks the local store dir: --dir / ENVDESK_DIR, then the config
// file, then <config dir>/store.
func resolveDir(app *App) (string, error) {
	if strings.TrimSpace(app.Dir) != "" {
		return app.Dir, nil
	}
	dir, err := store.DefaultDir(app.cfg)
	if err != nil {
		return "", err
	}
	app.Dir = dir
	return dir, nil
}

func localStore(app *App) (store.Store, error) {
	dir, err := resolveDir(app)
	if err != nil {
		return store.Store{}, err
	}
	exp, err := app.cfg.ExporterFor(afero.NewOsFs())
	if err != nil {
		return store.Store{}, err
	}
	return store.Store{Dir: dir, Exporter: exp, Logger: app.log.With().Str("component", "store").Logger()}, nil
}

var errNoStore = errors.New("no envdesk store here; run `envdesk init` (or pass --dir / --backend)")

// openBackend returns the HTTP client when --backend is set, else the local
// store, which must already be initialized.
func openBackend(ctx context.Context, app *App) (gateway.Backend, error) {
	if app.Backend != "" {
		c := gateway.NewClient(app.Backend, nil)
		if err := gateway.Ping(ctx, c); err != nil {
			return nil, err
		}
		return c, nil
	}
	st, err := localStore(app)
	if err != nil {
		return nil, err
	}
	if !st.Exists() {
		return nil, errNoStore
	}
	return st, nil
}

// openController loads a controller over the selected backend.
func openController(ctx context.Context, app *App) (*syncer.Controller, gateway.Backend, error) {
	b, err := openBackend(ctx, app)
	if err != nil {
		return nil, nil, err
	}
	ctl := syncer.New(b, syncer.WithLogger(app.log.With().Str("component", "sync").Logger()))
	if err := ctl.Load(ctx); err != nil {
		return nil, nil, err
	}
	return ctl, b, nil
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

// writeList writes env-format listings bare and everything else in the
// {"data": ...} envelope.
func writeList(cmd *cobra.Command, app *App, env any, data any) error {
	if app.Format == "env" {
		return writeOut(cmd, app, env)
	}
	return writeOut(cmd, app, map[string]any{"data": data})
}

func writeErr(cmd *cobra.Command, err error) error {
	_ = format.WriteJSON(cmd.ErrOrStderr(), map[string]any{
		"error": map[string]any{"code": errorCode(err), "message": err.Error()},
	}, false)
	return err
}
