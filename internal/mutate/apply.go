package mutate

import (
	"fmt"
	"slices"
	"strings"

	"envdesk/internal/model"
)

// Apply applies op to snap in place. Index fields are authoritative; carried
// values are not checked. On error snap is left unchanged.
func Apply(snap model.Snapshot, op model.Operation) error {
	return apply(snap, op, false)
}

// ApplyStrict is Apply plus a check that the values an operation carries match
// the list at the given index (ModifyValue old value, DeleteValue and
// ReorderValue value).
func ApplyStrict(snap model.Snapshot, op model.Operation) error {
	return apply(snap, op, true)
}

func apply(snap model.Snapshot, op model.Operation, strict bool) error {
	if strings.TrimSpace(op.Variable) == "" {
		return invalid(op, ReasonInvalidName, "empty name")
	}
	name := op.Variable

	switch op.Kind {
	case model.OpAddVariable:
		if _, ok := snap[name]; ok {
			return invalid(op, ReasonDuplicateVariable, "")
		}
		snap[name] = []string{}
		return nil

	case model.OpDeleteVariable:
		delete(snap, name)
		return nil
	}

	values, ok := snap[name]
	if !ok {
		return invalid(op, ReasonUnknownVariable, "")
	}

	switch op.Kind {
	case model.OpModifyVariable:
		next := slices.Clone(op.Values)
		if next == nil {
			next = []string{}
		}
		snap[name] = next

	case model.OpAppendValue:
		snap[name] = append(slices.Clone(values), op.Value)

	case model.OpModifyValue:
		if err := checkIndex(op, op.Index, len(values)); err != nil {
			return err
		}
		if strict && values[op.Index] != op.OldValue {
			return invalid(op, ReasonValueMismatch, fmt.Sprintf("have %q, want %q", values[op.Index], op.OldValue))
		}
		next := slices.Clone(values)
		next[op.Index] = op.NewValue
		snap[name] = next

	case model.OpDeleteValue:
		if err := checkIndex(op, op.Index, len(values)); err != nil {
			return err
		}
		if strict && values[op.Index] != op.Value {
			return invalid(op, ReasonValueMismatch, fmt.Sprintf("have %q, want %q", values[op.Index], op.Value))
		}
		snap[name] = slices.Delete(slices.Clone(values), op.Index, op.Index+1)

	case model.OpReorderValue:
		if err := checkIndex(op, op.Index, len(values)); err != nil {
			return err
		}
		if op.IndexAfter < 0 || op.IndexAfter >= len(values) {
			return &ValidationError{Op: op.Kind, Variable: name, Index: op.IndexAfter, Reason: ReasonIndexOutOfRange}
		}
		moved := values[op.Index]
		if strict && moved != op.Value {
			return invalid(op, ReasonValueMismatch, fmt.Sprintf("have %q, want %q", moved, op.Value))
		}
		next := slices.Delete(slices.Clone(values), op.Index, op.Index+1)
		snap[name] = slices.Insert(next, op.IndexAfter, moved)

	default:
		return invalid(op, ReasonInvalidKind, string(op.Kind))
	}
	return nil
}

func checkIndex(op model.Operation, idx, n int) error {
	if idx < 0 || idx >= n {
		return &ValidationError{Op: op.Kind, Variable: op.Variable, Index: idx, Reason: ReasonIndexOutOfRange}
	}
	return nil
}

// ReplayError carries the position of the operation that failed during Replay.
type ReplayError struct {
	Index int
	Err   error
}

func (e *ReplayError) Error() string {
	return fmt.Sprintf("replay op %d: %v", e.Index, e.Err)
}

func (e *ReplayError) Unwrap() error { return e.Err }

// Replay applies ops in order to a copy of base.
func Replay(base model.Snapshot, ops []model.Operation, strict bool) (model.Snapshot, error) {
	out := base.Clone()
	for i, op := range ops {
		var err error
		if strict {
			err = ApplyStrict(out, op)
		} else {
			err = Apply(out, op)
		}
		if err != nil {
			return nil, &ReplayError{Index: i, Err: err}
		}
	}
	return out, nil
}
