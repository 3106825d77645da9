package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"envdesk/internal/store"

	"github.com/spf13/cobra"
)

// configKeys maps dotted keys to setters on GlobalConfig.
var configKeys = map[string]func(cfg *store.GlobalConfig, v string) error{
	"backend":  func(cfg *store.GlobalConfig, v string) error { cfg.Backend = v; return nil },
	"storeDir": func(cfg *store.GlobalConfig, v string) error { cfg.StoreDir = v; return nil },
	"autoFlush.enabled": func(cfg *store.GlobalConfig, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errUsage("autoFlush.enabled: %v", err)
		}
		autoFlush(cfg).Enabled = b
		return nil
	},
	"autoFlush.debounce": func(cfg *store.GlobalConfig, v string) error {
		if _, err := time.ParseDuration(v); err != nil {
			return errUsage("autoFlush.debounce: %v", err)
		}
		autoFlush(cfg).Debounce = v
		return nil
	},
	"export.path": func(cfg *store.GlobalConfig, v string) error { export(cfg).Path = v; return nil },
	"export.shell": func(cfg *store.GlobalConfig, v string) error {
		sh, err := store.ParseShell(v)
		if err != nil {
			return errUsage("export.shell: %v", err)
		}
		export(cfg).Shell = string(sh)
		return nil
	},
	"export.separator": func(cfg *store.GlobalConfig, v string) error { export(cfg).Separator = v; return nil },
	"tui.theme": func(cfg *store.GlobalConfig, v string) error {
		switch v {
		case "", "auto", "dark", "light":
		default:
			return errUsage("tui.theme: expected auto|dark|light")
		}
		if cfg.TUI == nil {
			cfg.TUI = &store.TUIConfig{}
		}
		cfg.TUI.Theme = v
		return nil
	},
}

func autoFlush(cfg *store.GlobalConfig) *store.AutoFlushConfig {
	if cfg.AutoFlush == nil {
		cfg.AutoFlush = &store.AutoFlushConfig{}
	}
	return cfg.AutoFlush
}

func export(cfg *store.GlobalConfig) *store.ExportConfig {
	if cfg.Export == nil {
		cfg.Export = &store.ExportConfig{}
	}
	return cfg.Export
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change ~/.envdesk/config.json",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := store.ConfigPath()
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"path": path, "config": app.cfg}})
		},
	})

	keys := make([]string, 0, len(configKeys))
	for k := range configKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set one config key",
		Long:  "Set one config key. Keys: " + strings.Join(keys, ", ") + ". An empty value clears the key.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, ok := configKeys[args[0]]
			if !ok {
				return writeErr(cmd, errUsage("unknown config key %q (expected one of: %s)", args[0], strings.Join(keys, ", ")))
			}
			// Re-read so values merged in from flags never leak into the file.
			cfg, err := store.LoadConfig()
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := set(cfg, strings.TrimSpace(args[1])); err != nil {
				return writeErr(cmd, err)
			}
			if err := store.SaveConfig(cfg); err != nil {
				return writeErr(cmd, fmt.Errorf("save config: %w", err))
			}
			return writeOut(cmd, app, map[string]any{"data": cfg})
		},
	})
	return cmd
}
