package cli

import (
	"errors"
	"fmt"
	"testing"

	"envdesk/internal/model"
	"envdesk/internal/mutate"
	"envdesk/internal/store"
	"envdesk/internal/syncer"
)

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&mutate.ValidationError{Op: model.OpAppendValue, Variable: "X", Reason: mutate.ReasonUnknownVariable}, "unknown_variable"},
		{&syncer.CommitError{Err: &mutate.ValidationError{Reason: mutate.ReasonValueMismatch}}, "value_mismatch"},
		{errNotFound("variable", "PATH"), "not_found"},
		{fmt.Errorf("wrapped: %w", syncer.ErrBusy), "busy"},
		{&syncer.UndoError{State: model.Synced, Err: syncer.ErrUndoNotAllowed}, "undo_not_allowed"},
		{&syncer.UndoError{State: model.Dirty, Err: store.ErrNothingToUndo}, "nothing_to_undo"},
		{errNoStore, "no_store"},
		{errUsage("bad %s", "thing"), "usage"},
		{errors.New("boom"), "error"},
	}
	for _, tt := range tests {
		if got := errorCode(tt.err); got != tt.want {
			t.Fatalf("errorCode(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
