package store

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"time"

	"envdesk/internal/model"
)

// ParseEnviron turns KEY=VALUE pairs into a snapshot, splitting each value on
// sep and dropping blank entries. Names are normalized; entries without a name
// (such as the "=C:" drive variables on Windows) are skipped.
func ParseEnviron(environ []string, sep string) model.Snapshot {
	if sep == "" {
		sep = string(os.PathListSeparator)
	}
	out := model.Snapshot{}
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		name := model.NormalizeName(k)
		if name == "" {
			continue
		}
		values := []string{}
		for _, part := range strings.Split(v, sep) {
			if strings.TrimSpace(part) == "" {
				continue
			}
			values = append(values, part)
		}
		out[name] = values
	}
	return out
}

// ImportEnviron writes the parsed environment straight into the applied
// variables, overwriting existing names. Live batches stay on top of it.
func (s Store) ImportEnviron(ctx context.Context, environ []string, sep string) (int, error) {
	env := ParseEnviron(environ, sep)
	err := s.withWriteLock(ctx, func(db *sql.DB) error {
		tx, err := db.BeginTx(ctx, &sql.TxOptions{})
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		now := time.Now().UTC().UnixMilli()
		for _, name := range env.Names() {
			if err := upsertVariable(ctx, tx, name, env[name], now); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, err
	}
	s.Logger.Info().Int("variables", len(env)).Msg("imported environment")
	return len(env), nil
}
