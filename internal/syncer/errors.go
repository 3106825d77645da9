package syncer

import (
	"errors"
	"fmt"

	"envdesk/internal/model"
)

var (
	ErrBusy           = errors.New("a flush or undo is already in progress")
	ErrUndoNotAllowed = errors.New("undo is only allowed while dirty")
)

// CommitError reports the operation the gateway rejected during a flush.
// Index is its position in the compacted sequence; everything before it was
// committed.
type CommitError struct {
	Index int
	Op    model.Operation
	Err   error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit %d (%s %s): %v", e.Index, e.Op.Kind, e.Op.Variable, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// UndoError is returned when undo is refused locally or by the backend.
type UndoError struct {
	State model.SyncState
	Err   error
}

func (e *UndoError) Error() string {
	if errors.Is(e.Err, ErrUndoNotAllowed) {
		return fmt.Sprintf("undo: not allowed while %s", e.State)
	}
	return fmt.Sprintf("undo: %v", e.Err)
}

func (e *UndoError) Unwrap() error { return e.Err }
