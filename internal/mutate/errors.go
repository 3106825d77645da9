package mutate

import (
	"errors"
	"fmt"

	"envdesk/internal/model"
)

type Reason string

const (
	ReasonInvalidName       Reason = "invalid_name"
	ReasonInvalidKind       Reason = "invalid_kind"
	ReasonUnknownVariable   Reason = "unknown_variable"
	ReasonDuplicateVariable Reason = "duplicate_variable"
	ReasonIndexOutOfRange   Reason = "index_out_of_range"
	ReasonValueMismatch     Reason = "value_mismatch"
)

var (
	ErrInvalidName       = errors.New("invalid variable name")
	ErrInvalidKind       = errors.New("invalid operation kind")
	ErrUnknownVariable   = errors.New("unknown variable")
	ErrDuplicateVariable = errors.New("duplicate variable")
	ErrIndexOutOfRange   = errors.New("index out of range")
	ErrValueMismatch     = errors.New("value mismatch")
)

var reasonSentinels = map[Reason]error{
	ReasonInvalidName:       ErrInvalidName,
	ReasonInvalidKind:       ErrInvalidKind,
	ReasonUnknownVariable:   ErrUnknownVariable,
	ReasonDuplicateVariable: ErrDuplicateVariable,
	ReasonIndexOutOfRange:   ErrIndexOutOfRange,
	ReasonValueMismatch:     ErrValueMismatch,
}

// ValidationError reports an operation that cannot be applied to a snapshot.
type ValidationError struct {
	Op       model.OpKind
	Variable string
	Index    int
	Reason   Reason
	Detail   string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Op, e.Variable, e.Reason)
	if e.Reason == ReasonIndexOutOfRange {
		msg = fmt.Sprintf("%s %s: index %d out of range", e.Op, e.Variable, e.Index)
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

func (e *ValidationError) Is(target error) bool {
	return reasonSentinels[e.Reason] == target
}

// ReasonSentinel maps a wire reason back to its sentinel error.
func ReasonSentinel(r Reason) (error, bool) {
	err, ok := reasonSentinels[r]
	return err, ok
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func invalid(op model.Operation, reason Reason, detail string) error {
	return &ValidationError{Op: op.Kind, Variable: op.Variable, Index: op.Index, Reason: reason, Detail: detail}
}
