package cli

import (
	"errors"
	"fmt"

	"envdesk/internal/gateway"
	"envdesk/internal/mutate"
	"envdesk/internal/store"
	"envdesk/internal/syncer"
)

type notFoundError struct {
	kind string
	id   string
}

func (e notFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.kind, e.id)
}

func errNotFound(kind, id string) error {
	return notFoundError{kind: kind, id: id}
}

type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func errUsage(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

// errorCode is the stable machine-readable code in the stderr error envelope.
func errorCode(err error) string {
	var (
		ve  *mutate.ValidationError
		nf  notFoundError
		use usageError
	)
	switch {
	case errors.As(err, &ve):
		return string(ve.Reason)
	case errors.As(err, &nf):
		return "not_found"
	case errors.As(err, &use):
		return "usage"
	case errors.Is(err, syncer.ErrBusy):
		return "busy"
	case errors.Is(err, syncer.ErrUndoNotAllowed):
		return "undo_not_allowed"
	case errors.Is(err, store.ErrNothingToUndo):
		return "nothing_to_undo"
	case errors.Is(err, store.ErrUnknownBatch):
		return "unknown_batch"
	case errors.Is(err, store.ErrLocked):
		return "locked"
	case errors.Is(err, gateway.ErrUnreachable):
		return "unreachable"
	case errors.Is(err, errNoStore):
		return "no_store"
	}
	return "error"
}
