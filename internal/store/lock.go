package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gofrs/flock"
)

// withWriteLock serializes writers across processes with a lock file next to
// the database, then runs fn with an open handle.
func (s Store) withWriteLock(ctx context.Context, fn func(db *sql.DB) error) error {
	if err := s.Ensure(); err != nil {
		return err
	}
	lock := flock.New(s.lockPath())
	lockCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	locked, err := lock.TryLockContext(lockCtx, 25*time.Millisecond)
	if err != nil && ctx.Err() != nil {
		return fmt.Errorf("acquiring store lock: %w", err)
	}
	if err != nil || !locked {
		return ErrLocked
	}
	defer func() { _ = lock.Unlock() }()

	db, err := s.openSQLite(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}
