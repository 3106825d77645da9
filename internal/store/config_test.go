package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func TestSaveConfig_ConcurrentWriters_DoesNotCorruptConfig(t *testing.T) {
	cfgDir := t.TempDir()
	t.Setenv("ENVDESK_CONFIG_DIR", cfgDir)

	if err := SaveConfig(&GlobalConfig{Backend: "http://seed"}); err != nil {
		t.Fatalf("SaveConfig(seed): %v", err)
	}

	const n = 32
	errCh := make(chan error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			cfg, err := LoadConfig()
			if err != nil {
				errCh <- err
				return
			}
			cfg.StoreDir = fmt.Sprintf("/tmp/store-%d", i)
			if err := SaveConfig(cfg); err != nil {
				errCh <- err
			}
		}(i)
	}

	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Errorf("concurrent SaveConfig: %v", err)
	}
	if t.Failed() {
		return
	}

	path, err := ConfigPath()
	if err != nil {
		t.Fatalf("ConfigPath: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config.json: %v", err)
	}
	var cfg GlobalConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		t.Fatalf("config.json corrupted/unparseable: %v\nraw:\n%s", err, string(raw))
	}

	ents, err := os.ReadDir(cfgDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, "config.json.") && strings.HasSuffix(name, ".tmp") {
			t.Fatalf("leftover temp file: %s", name)
		}
	}
}

func TestLoadConfig_MissingFileIsEmpty(t *testing.T) {
	withEnv(t, "ENVDESK_CONFIG_DIR", t.TempDir(), func() {
		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig: %v", err)
		}
		if cfg.Backend != "" || cfg.Export != nil {
			t.Fatalf("expected empty config, got %+v", cfg)
		}
	})
}

func TestDefaultDir(t *testing.T) {
	cfgDir := t.TempDir()
	withEnv(t, "ENVDESK_CONFIG_DIR", cfgDir, func() {
		got, err := DefaultDir(nil)
		if err != nil {
			t.Fatalf("DefaultDir: %v", err)
		}
		if got != filepath.Join(cfgDir, "store") {
			t.Fatalf("unexpected default dir %q", got)
		}
		got, _ = DefaultDir(&GlobalConfig{StoreDir: "/srv/envdesk/"})
		if got != filepath.Clean("/srv/envdesk") {
			t.Fatalf("StoreDir not honoured: %q", got)
		}
	})
}

func TestGlobalConfig_ExporterAndAutoFlush(t *testing.T) {
	cfg := &GlobalConfig{
		Export:    &ExportConfig{Path: "/tmp/env.ps1", Shell: "pwsh", Separator: ";"},
		AutoFlush: &AutoFlushConfig{Enabled: true, Debounce: "500ms"},
	}
	fs := afero.NewMemMapFs()
	e, err := cfg.ExporterFor(fs)
	if err != nil {
		t.Fatalf("ExporterFor: %v", err)
	}
	if e == nil || e.Shell != ShellPowerShell || e.Separator != ";" || e.Fs != fs {
		t.Fatalf("unexpected exporter %+v", e)
	}
	if d, ok := cfg.AutoFlushDebounce(); !ok || d != 500*time.Millisecond {
		t.Fatalf("unexpected debounce %v %v", d, ok)
	}

	cfg.Export.Shell = "fish"
	if _, err := cfg.ExporterFor(fs); err == nil {
		t.Fatalf("expected unknown shell error")
	}
	if e, err := (&GlobalConfig{}).ExporterFor(fs); err != nil || e != nil {
		t.Fatalf("expected no exporter without a path, got %+v %v", e, err)
	}
}
