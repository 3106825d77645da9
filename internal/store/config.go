package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

type GlobalConfig struct {
	// Backend is the base URL of an envdesk server. Empty means the local store.
	Backend string `json:"backend,omitempty"`

	// StoreDir overrides the local store location (default: <config dir>/store).
	StoreDir string `json:"storeDir,omitempty"`

	AutoFlush *AutoFlushConfig `json:"autoFlush,omitempty"`
	Export    *ExportConfig    `json:"export,omitempty"`

	// TUI holds optional user preferences for the interactive TUI.
	TUI *TUIConfig `json:"tui,omitempty"`
}

type AutoFlushConfig struct {
	Enabled bool `json:"enabled"`
	// Debounce is a Go duration string, e.g. "2s".
	Debounce string `json:"debounce,omitempty"`
}

type ExportConfig struct {
	Path      string `json:"path,omitempty"`
	Shell     string `json:"shell,omitempty"`
	Separator string `json:"separator,omitempty"`
}

type TUIConfig struct {
	// Theme is "auto", "dark" or "light".
	Theme string `json:"theme,omitempty"`
}

func ConfigDir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.envdesk).
	if v := strings.TrimSpace(os.Getenv("ENVDESK_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".envdesk"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

func LoadConfig() (*GlobalConfig, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &GlobalConfig{}, nil
		}
		return nil, err
	}
	var cfg GlobalConfig
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)
	return os.Rename(tmp, path)
}

func SaveConfig(cfg *GlobalConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	// Keep the previous config around; losing it should not block saving.
	if prev, err := os.ReadFile(path); err == nil && len(prev) > 0 {
		_ = atomicWriteFile(dir, "config.json.bak.*.tmp", path+".bak", prev, 0o644)
	}
	return atomicWriteFile(dir, "config.json.*.tmp", path, b, 0o600)
}

// DefaultDir is the local store directory: the configured StoreDir, or
// <config dir>/store.
func DefaultDir(cfg *GlobalConfig) (string, error) {
	if cfg != nil && strings.TrimSpace(cfg.StoreDir) != "" {
		return filepath.Clean(cfg.StoreDir), nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "store"), nil
}

// ExporterFor builds the exporter described by the config. It returns nil
// when no export path is configured.
func (c *GlobalConfig) ExporterFor(fs afero.Fs) (*Exporter, error) {
	if c == nil || c.Export == nil || strings.TrimSpace(c.Export.Path) == "" {
		return nil, nil
	}
	shell := DefaultShell()
	if strings.TrimSpace(c.Export.Shell) != "" {
		var err error
		if shell, err = ParseShell(c.Export.Shell); err != nil {
			return nil, err
		}
	}
	return &Exporter{
		Fs:        fs,
		Path:      c.Export.Path,
		Shell:     shell,
		Separator: c.Export.Separator,
	}, nil
}

// AutoFlushDebounce reports whether auto-flush is enabled and its delay.
func (c *GlobalConfig) AutoFlushDebounce() (time.Duration, bool) {
	if c == nil || c.AutoFlush == nil || !c.AutoFlush.Enabled {
		return 0, false
	}
	d, err := time.ParseDuration(strings.TrimSpace(c.AutoFlush.Debounce))
	if err != nil || d <= 0 {
		d = 2 * time.Second
	}
	return d, true
}
