package store

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"envdesk/internal/model"

	"github.com/spf13/afero"
)

type Shell string

const (
	ShellPOSIX      Shell = "posix"
	ShellPowerShell Shell = "powershell"
)

func ParseShell(s string) (Shell, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "posix", "sh", "bash", "zsh":
		return ShellPOSIX, nil
	case "powershell", "pwsh", "ps":
		return ShellPowerShell, nil
	default:
		return "", fmt.Errorf("unknown shell %q (expected posix|powershell)", s)
	}
}

func DefaultShell() Shell {
	if runtime.GOOS == "windows" {
		return ShellPowerShell
	}
	return ShellPOSIX
}

// Exporter renders the applied environment as a script that a shell can
// source, and writes it to Path on Fs.
type Exporter struct {
	Fs        afero.Fs
	Path      string
	Shell     Shell
	Separator string
}

func (e Exporter) separator() string {
	if e.Separator != "" {
		return e.Separator
	}
	return string(os.PathListSeparator)
}

// Render produces the script: one assignment per variable in name order, then
// one removal per deleted name.
func (e Exporter) Render(env model.Snapshot, deleted []string) []byte {
	var b bytes.Buffer
	sep := e.separator()
	switch e.Shell {
	case ShellPowerShell:
		b.WriteString("# generated by envdesk\n")
		for _, name := range env.Names() {
			fmt.Fprintf(&b, "$env:%s = %s\n", name, psQuote(strings.Join(env[name], sep)))
		}
		for _, name := range sorted(deleted) {
			fmt.Fprintf(&b, "Remove-Item Env:%s -ErrorAction SilentlyContinue\n", name)
		}
	default:
		b.WriteString("# generated by envdesk\n")
		for _, name := range env.Names() {
			fmt.Fprintf(&b, "export %s=%s\n", name, shQuote(strings.Join(env[name], sep)))
		}
		for _, name := range sorted(deleted) {
			fmt.Fprintf(&b, "unset %s\n", name)
		}
	}
	return b.Bytes()
}

// Write renders the script and replaces Path atomically.
func (e Exporter) Write(env model.Snapshot, deleted []string) error {
	if strings.TrimSpace(e.Path) == "" {
		return fmt.Errorf("export path is empty")
	}
	fs := e.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	dir := filepath.Dir(e.Path)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := afero.TempFile(fs, dir, filepath.Base(e.Path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = fs.Remove(tmp) }()
	if _, err := f.Write(e.Render(env, deleted)); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = fs.Chmod(tmp, 0o644)
	return fs.Rename(tmp, e.Path)
}

func shQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func sorted(in []string) []string {
	out := slices.Clone(in)
	slices.Sort(out)
	return out
}
