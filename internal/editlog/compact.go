package editlog

import (
	"slices"

	"envdesk/internal/model"
	"envdesk/internal/mutate"
)

// Compact returns the minimal ordered sequence equivalent to ops. It is a
// left-to-right pass where each operation is tested against the output built
// so far for the same variable:
//
//   - AppendValue replaces an earlier append of the same value.
//   - ModifyValue folds into an earlier append of its old value, or into an
//     earlier modify whose new value is its old value. Modifies that end where
//     they started are dropped.
//   - DeleteValue cancels an earlier append of the value. If the value came
//     from an earlier modify, the modify is dropped and the delete removes the
//     original value instead.
//   - DeleteVariable cancels an earlier AddVariable together with everything
//     queued for the variable after it. Without one, earlier value edits for
//     the variable are dropped.
//   - AddVariable, ModifyVariable and ReorderValue are kept as-is.
//
// Matching always takes the first candidate. The pass is repeated until the
// output stops shrinking, so Compact(Compact(x)) == Compact(x).
func Compact(ops []model.Operation) []model.Operation {
	cur := cloneOps(ops)
	for {
		next := compactPass(cur)
		if len(next) == len(cur) {
			return next
		}
		cur = next
	}
}

// Compact replaces the log contents with their compacted form.
func (l *Log) Compact() {
	l.ops = Compact(l.ops)
}

func compactPass(ops []model.Operation) []model.Operation {
	out := make([]model.Operation, 0, len(ops))
	for _, op := range ops {
		switch op.Kind {
		case model.OpAppendValue:
			if i := find(out, func(o model.Operation) bool {
				return o.Kind == model.OpAppendValue && o.Variable == op.Variable && o.Value == op.Value
			}); i >= 0 {
				out = slices.Delete(out, i, i+1)
			}
			out = append(out, op)

		case model.OpModifyValue:
			if op.OldValue == op.NewValue {
				continue
			}
			if i := find(out, func(o model.Operation) bool {
				return o.Kind == model.OpAppendValue && o.Variable == op.Variable && o.Value == op.OldValue
			}); i >= 0 {
				out[i].Value = op.NewValue
				continue
			}
			if i := find(out, func(o model.Operation) bool {
				return o.Kind == model.OpModifyValue && o.Variable == op.Variable && o.NewValue == op.OldValue
			}); i >= 0 {
				out[i].NewValue = op.NewValue
				if out[i].NewValue == out[i].OldValue {
					out = slices.Delete(out, i, i+1)
				}
				continue
			}
			out = append(out, op)

		case model.OpDeleteValue:
			i := find(out, func(o model.Operation) bool {
				if o.Variable != op.Variable {
					return false
				}
				return (o.Kind == model.OpAppendValue && o.Value == op.Value) ||
					(o.Kind == model.OpModifyValue && o.NewValue == op.Value)
			})
			switch {
			case i < 0:
				out = append(out, op)
			case out[i].Kind == model.OpAppendValue:
				out = slices.Delete(out, i, i+1)
			default:
				// The value replaced one that predates the log: delete that one instead.
				prior := out[i].OldValue
				out = slices.Delete(out, i, i+1)
				out = append(out, model.DeleteValue(op.Variable, op.Index, prior))
			}

		case model.OpDeleteVariable:
			add := find(out, func(o model.Operation) bool {
				return o.Kind == model.OpAddVariable && o.Variable == op.Variable
			})
			if add >= 0 {
				kept := out[:add:add]
				for _, o := range out[add+1:] {
					if o.Variable != op.Variable {
						kept = append(kept, o)
					}
				}
				out = kept
				continue
			}
			kept := out[:0:0]
			for _, o := range out {
				if o.Variable == op.Variable && isValueEdit(o.Kind) {
					continue
				}
				kept = append(kept, o)
			}
			out = append(kept, op)

		default:
			out = append(out, op)
		}
	}
	return out
}

func isValueEdit(k model.OpKind) bool {
	switch k {
	case model.OpAppendValue, model.OpModifyValue, model.OpDeleteValue,
		model.OpReorderValue, model.OpModifyVariable:
		return true
	}
	return false
}

func find(ops []model.Operation, match func(model.Operation) bool) int {
	for i, o := range ops {
		if match(o) {
			return i
		}
	}
	return -1
}

func cloneOps(ops []model.Operation) []model.Operation {
	out := make([]model.Operation, len(ops))
	for i, op := range ops {
		out[i] = op.Clone()
	}
	return out
}

// Result is the outcome of CompactAgainst.
type Result struct {
	Ops []model.Operation
	// Folded is how many operations compaction removed.
	Folded int
	// Fallback lists variables whose raw operations were kept because folding
	// by value would have changed their final state.
	Fallback []string
}

// CompactAgainst compacts ops and checks, per variable, that the compacted
// sequence applied to base ends in the same state as the raw one. Value
// matching cannot tell duplicate values apart, so any variable that fails the
// check is sent with its raw operations instead.
func CompactAgainst(base model.Snapshot, ops []model.Operation) Result {
	compacted := Compact(ops)

	var vars []string
	seen := map[string]bool{}
	for _, op := range ops {
		if !seen[op.Variable] {
			seen[op.Variable] = true
			vars = append(vars, op.Variable)
		}
	}

	fallback := map[string]bool{}
	var fallbackNames []string
	for _, name := range vars {
		want, err := replayVariable(base, name, ops, false)
		if err != nil {
			// The raw log itself does not replay; nothing to compare against.
			continue
		}
		got, err := replayVariable(base, name, compacted, true)
		if err != nil || !want.equal(got) {
			fallback[name] = true
			fallbackNames = append(fallbackNames, name)
		}
	}

	if len(fallback) == 0 {
		return Result{Ops: compacted, Folded: len(ops) - len(compacted)}
	}

	out := make([]model.Operation, 0, len(ops))
	for _, op := range compacted {
		if !fallback[op.Variable] {
			out = append(out, op)
		}
	}
	for _, op := range ops {
		if fallback[op.Variable] {
			out = append(out, op.Clone())
		}
	}
	return Result{Ops: out, Folded: len(ops) - len(out), Fallback: fallbackNames}
}

type varState struct {
	present bool
	values  []string
}

func (v varState) equal(o varState) bool {
	return v.present == o.present && slices.Equal(v.values, o.values)
}

func replayVariable(base model.Snapshot, name string, ops []model.Operation, strict bool) (varState, error) {
	snap := model.Snapshot{}
	if v, ok := base[name]; ok {
		snap[name] = slices.Clone(v)
	}
	for _, op := range ops {
		if op.Variable != name {
			continue
		}
		var err error
		if strict {
			err = mutate.ApplyStrict(snap, op)
		} else {
			err = mutate.Apply(snap, op)
		}
		if err != nil {
			return varState{}, err
		}
	}
	v, ok := snap[name]
	return varState{present: ok, values: v}, nil
}
