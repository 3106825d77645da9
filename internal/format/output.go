package format

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"envdesk/internal/model"
)

// Write renders v as json (default), edn or env.
func Write(w io.Writer, v any, format string, pretty bool) error {
	switch format {
	case "", "json":
		return WriteJSON(w, v, pretty)
	case "edn":
		return WriteEDN(w, v, pretty)
	case "env":
		return WriteEnv(w, v, string(os.PathListSeparator))
	default:
		return fmt.Errorf("unknown format: %s (expected json|edn|env)", format)
	}
}

func Valid(format string) bool {
	switch format {
	case "", "json", "edn", "env":
		return true
	}
	return false
}

func WriteJSON(w io.Writer, v any, pretty bool) error {
	var b []byte
	var err error
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// ErrNotEnv is returned by WriteEnv for values that have no NAME=VALUE form.
var ErrNotEnv = errors.New("env format is only available for environment listings")

// WriteEnv prints one NAME=VALUE line per variable, joining values with sep.
// It accepts a model.Snapshot, a model.State, or a single variable as
// model.Variable.
func WriteEnv(w io.Writer, v any, sep string) error {
	var env model.Snapshot
	switch t := v.(type) {
	case model.Snapshot:
		env = t
	case model.State:
		env = t.Env
	case model.Variable:
		env = model.Snapshot{t.Name: t.Values}
	case *model.Variable:
		env = model.Snapshot{t.Name: t.Values}
	default:
		return ErrNotEnv
	}
	var b strings.Builder
	for _, name := range env.Names() {
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(strings.Join(env[name], sep))
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}
