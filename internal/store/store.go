package store

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

const (
	dbFileName   = "envdesk.sqlite"
	lockFileName = "envdesk.lock"
)

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrLocked        = errors.New("store is locked by another process")
	ErrUnknownBatch  = errors.New("unknown batch")
)

// Store is the authoritative backend: applied variables, the journal of
// committed operations grouped into batches, and the export sink. Every call
// opens the database, so a Store value is cheap to copy and safe to share
// between processes.
type Store struct {
	Dir string

	// Exporter receives the full environment on Apply. Nil disables export.
	Exporter *Exporter
	Logger   zerolog.Logger
}

func (s Store) Ensure() error {
	return os.MkdirAll(s.Dir, 0o755)
}

func (s Store) dbPath() string {
	return filepath.Join(s.Dir, dbFileName)
}

func (s Store) lockPath() string {
	return filepath.Join(s.Dir, lockFileName)
}

// Exists reports whether the store has been initialized in Dir.
func (s Store) Exists() bool {
	_, err := os.Stat(s.dbPath())
	return err == nil
}
