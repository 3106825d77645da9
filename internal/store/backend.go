package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"envdesk/internal/model"
	"envdesk/internal/mutate"

	"github.com/oklog/ulid/v2"
)

const liveBatch = `applied_at_unixms IS NULL AND undone_at_unixms IS NULL`

// FetchState returns the working environment (applied variables plus every
// live batch) and whether any batch is still waiting to be applied.
func (s Store) FetchState(ctx context.Context) (model.State, error) {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return model.State{}, err
	}
	defer db.Close()

	env, dirty, err := working(ctx, db)
	if err != nil {
		return model.State{}, err
	}
	return model.State{Env: env, Dirty: dirty}, nil
}

// Commit validates op strictly against the working environment and journals
// it in the open batch, opening one if needed.
func (s Store) Commit(ctx context.Context, op model.Operation) error {
	if !op.Kind.Valid() {
		return &mutate.ValidationError{Op: op.Kind, Variable: op.Variable, Reason: mutate.ReasonInvalidKind}
	}
	return s.withWriteLock(ctx, func(db *sql.DB) error {
		tx, err := db.BeginTx(ctx, &sql.TxOptions{})
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		env, _, err := working(ctx, tx)
		if err != nil {
			return err
		}
		if err := mutate.ApplyStrict(env, op); err != nil {
			return err
		}

		now := time.Now().UTC().UnixMilli()
		batchID, err := openBatch(ctx, tx, now)
		if err != nil {
			return err
		}
		payload, err := json.Marshal(op)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO journal(batch_id, kind, variable, payload_json, committed_at_unixms)
			VALUES(?, ?, ?, ?, ?)`, batchID, string(op.Kind), op.Variable, string(payload), now); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		s.Logger.Debug().Str("batch", batchID).Str("kind", string(op.Kind)).Str("variable", op.Variable).Msg("committed")
		return nil
	})
}

func openBatch(ctx context.Context, q querier, nowMs int64) (string, error) {
	var id string
	err := q.QueryRowContext(ctx, `SELECT batch_id FROM batches
		WHERE sealed_at_unixms IS NULL AND `+liveBatch+`
		ORDER BY batch_id DESC LIMIT 1`).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}
	id = ulid.Make().String()
	if _, err := q.ExecContext(ctx, `INSERT INTO batches(batch_id, opened_at_unixms) VALUES(?, ?)`, id, nowMs); err != nil {
		return "", err
	}
	return id, nil
}

// SealBatch closes the open batch so the next commit starts a new one. It is
// a no-op when no batch is open.
func (s Store) SealBatch(ctx context.Context) error {
	return s.withWriteLock(ctx, func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, `UPDATE batches SET sealed_at_unixms = ?
			WHERE sealed_at_unixms IS NULL AND `+liveBatch, time.Now().UTC().UnixMilli())
		return err
	})
}

// UndoLastBatch discards the newest batch that has not been applied yet.
func (s Store) UndoLastBatch(ctx context.Context) error {
	return s.withWriteLock(ctx, func(db *sql.DB) error {
		var id string
		err := db.QueryRowContext(ctx, `SELECT batch_id FROM batches WHERE `+liveBatch+`
			ORDER BY batch_id DESC LIMIT 1`).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNothingToUndo
		}
		if err != nil {
			return err
		}
		now := time.Now().UTC().UnixMilli()
		if _, err := db.ExecContext(ctx, `UPDATE batches
			SET undone_at_unixms = ?, sealed_at_unixms = COALESCE(sealed_at_unixms, ?)
			WHERE batch_id = ?`, now, now, id); err != nil {
			return err
		}
		s.Logger.Info().Str("batch", id).Msg("undone")
		return nil
	})
}

// Apply folds every live batch into the applied variables and writes the
// export script. Updated lists variables whose values changed or that are new;
// Deleted lists variables that no longer exist.
func (s Store) Apply(ctx context.Context) (model.ApplyResult, error) {
	var (
		res model.ApplyResult
		env model.Snapshot
	)
	err := s.withWriteLock(ctx, func(db *sql.DB) error {
		tx, err := db.BeginTx(ctx, &sql.TxOptions{})
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		old, err := applied(ctx, tx)
		if err != nil {
			return err
		}
		env, _, err = working(ctx, tx)
		if err != nil {
			return err
		}
		res.Updated, res.Deleted = diff(old, env)

		now := time.Now().UTC().UnixMilli()
		for _, name := range res.Deleted {
			if _, err := tx.ExecContext(ctx, `DELETE FROM variables WHERE name = ?`, name); err != nil {
				return err
			}
		}
		for _, name := range res.Updated {
			if err := upsertVariable(ctx, tx, name, env[name], now); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE batches
			SET applied_at_unixms = ?, sealed_at_unixms = COALESCE(sealed_at_unixms, ?)
			WHERE `+liveBatch, now, now); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return model.ApplyResult{}, err
	}

	if s.Exporter != nil {
		if err := s.Exporter.Write(env, res.Deleted); err != nil {
			return res, fmt.Errorf("export: %w", err)
		}
		res.ExportPath = s.Exporter.Path
	}
	s.Logger.Info().Int("updated", len(res.Updated)).Int("deleted", len(res.Deleted)).Msg("applied")
	return res, nil
}

func diff(old, next model.Snapshot) (updated, deleted []string) {
	updated, deleted = []string{}, []string{}
	for _, name := range next.Names() {
		prev, ok := old[name]
		if !ok || !slices.Equal(prev, next[name]) {
			updated = append(updated, name)
		}
	}
	for _, name := range old.Names() {
		if _, ok := next[name]; !ok {
			deleted = append(deleted, name)
		}
	}
	return updated, deleted
}

// Batches lists batches newest first. limit <= 0 means all.
func (s Store) Batches(ctx context.Context, limit int) ([]model.Batch, error) {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	q := `SELECT b.batch_id, b.opened_at_unixms, b.sealed_at_unixms, b.applied_at_unixms, b.undone_at_unixms,
		(SELECT COUNT(*) FROM journal j WHERE j.batch_id = b.batch_id)
	FROM batches b
	ORDER BY b.batch_id DESC`
	var rows *sql.Rows
	if limit > 0 {
		rows, err = db.QueryContext(ctx, q+` LIMIT ?`, limit)
	} else {
		rows, err = db.QueryContext(ctx, q)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Batch{}
	for rows.Next() {
		var (
			b                         model.Batch
			openedMs                  int64
			sealed, appliedAt, undone sql.NullInt64
		)
		if err := rows.Scan(&b.ID, &openedMs, &sealed, &appliedAt, &undone, &b.Ops); err != nil {
			return nil, err
		}
		b.OpenedAt = time.UnixMilli(openedMs).UTC()
		b.SealedAt = msPtr(sealed)
		b.AppliedAt = msPtr(appliedAt)
		b.UndoneAt = msPtr(undone)
		out = append(out, b)
	}
	return out, rows.Err()
}

// BatchOps returns the journaled operations of one batch in commit order.
func (s Store) BatchOps(ctx context.Context, batchID string) ([]model.Operation, error) {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var one int
	err = db.QueryRowContext(ctx, `SELECT 1 FROM batches WHERE batch_id = ?`, batchID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBatch, batchID)
	}
	if err != nil {
		return nil, err
	}
	ops, err := journalOps(ctx, db, `SELECT payload_json FROM journal WHERE batch_id = ? ORDER BY seq`, batchID)
	if ops == nil && err == nil {
		ops = []model.Operation{}
	}
	return ops, err
}

func msPtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64).UTC()
	return &t
}

func applied(ctx context.Context, q querier) (model.Snapshot, error) {
	rows, err := q.QueryContext(ctx, `SELECT name, values_json FROM variables`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := model.Snapshot{}
	for rows.Next() {
		var name, valuesJSON string
		if err := rows.Scan(&name, &valuesJSON); err != nil {
			return nil, err
		}
		var values []string
		if err := json.Unmarshal([]byte(valuesJSON), &values); err != nil {
			return nil, fmt.Errorf("variable %s: %w", name, err)
		}
		if values == nil {
			values = []string{}
		}
		out[name] = values
	}
	return out, rows.Err()
}

func working(ctx context.Context, q querier) (model.Snapshot, bool, error) {
	env, err := applied(ctx, q)
	if err != nil {
		return nil, false, err
	}
	ops, err := journalOps(ctx, q, `SELECT j.payload_json FROM journal j
		JOIN batches b ON b.batch_id = j.batch_id
		WHERE b.applied_at_unixms IS NULL AND b.undone_at_unixms IS NULL
		ORDER BY j.seq`)
	if err != nil {
		return nil, false, err
	}
	env, err = mutate.Replay(env, ops, false)
	if err != nil {
		return nil, false, fmt.Errorf("replay journal: %w", err)
	}

	var live int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM batches WHERE `+liveBatch).Scan(&live); err != nil {
		return nil, false, err
	}
	return env, live > 0, nil
}

func journalOps(ctx context.Context, q querier, query string, args ...any) ([]model.Operation, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ops []model.Operation
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var op model.Operation
		if err := json.Unmarshal([]byte(payload), &op); err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

func upsertVariable(ctx context.Context, q querier, name string, values []string, nowMs int64) error {
	if values == nil {
		values = []string{}
	}
	b, err := json.Marshal(values)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `INSERT INTO variables(name, values_json, updated_at_unixms) VALUES(?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET values_json = excluded.values_json, updated_at_unixms = excluded.updated_at_unixms`,
		name, string(b), nowMs)
	return err
}
