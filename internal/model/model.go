package model

import (
	"slices"
	"sort"
	"strings"
	"time"
)

type OpKind string

const (
	OpAddVariable    OpKind = "AddVariable"
	OpDeleteVariable OpKind = "DeleteVariable"
	OpModifyVariable OpKind = "ModifyVariable"
	OpAppendValue    OpKind = "AppendValue"
	OpModifyValue    OpKind = "ModifyValue"
	OpDeleteValue    OpKind = "DeleteValue"
	OpReorderValue   OpKind = "ReorderValue"
)

func (k OpKind) Valid() bool {
	switch k {
	case OpAddVariable, OpDeleteVariable, OpModifyVariable,
		OpAppendValue, OpModifyValue, OpDeleteValue, OpReorderValue:
		return true
	default:
		return false
	}
}

// Operation describes one edit intent. Only the fields relevant to Kind are set:
//
//   - AddVariable:    Variable
//   - DeleteVariable: Variable, PriorValues
//   - ModifyVariable: Variable, Values
//   - AppendValue:    Variable, Value
//   - ModifyValue:    Variable, Index, OldValue, NewValue
//   - DeleteValue:    Variable, Index, Value
//   - ReorderValue:   Variable, Index, IndexAfter, Value
//
// Index fields are positions at creation time. Operations are passed by value;
// slices are copied by the constructors and by Clone.
type Operation struct {
	Kind     OpKind `json:"kind"`
	Variable string `json:"variable"`

	Index      int `json:"index,omitempty"`
	IndexAfter int `json:"indexAfter,omitempty"`

	Value    string `json:"value,omitempty"`
	OldValue string `json:"oldValue,omitempty"`
	NewValue string `json:"newValue,omitempty"`

	PriorValues []string `json:"priorValues,omitempty"`
	Values      []string `json:"values,omitempty"`
}

func AddVariable(name string) Operation {
	return Operation{Kind: OpAddVariable, Variable: name}
}

func DeleteVariable(name string, prior []string) Operation {
	return Operation{Kind: OpDeleteVariable, Variable: name, PriorValues: slices.Clone(prior)}
}

func ModifyVariable(name string, values []string) Operation {
	v := slices.Clone(values)
	if v == nil {
		v = []string{}
	}
	return Operation{Kind: OpModifyVariable, Variable: name, Values: v}
}

func AppendValue(name, value string) Operation {
	return Operation{Kind: OpAppendValue, Variable: name, Value: value}
}

func ModifyValue(name string, index int, oldValue, newValue string) Operation {
	return Operation{Kind: OpModifyValue, Variable: name, Index: index, OldValue: oldValue, NewValue: newValue}
}

func DeleteValue(name string, index int, value string) Operation {
	return Operation{Kind: OpDeleteValue, Variable: name, Index: index, Value: value}
}

func ReorderValue(name string, from, to int, value string) Operation {
	return Operation{Kind: OpReorderValue, Variable: name, Index: from, IndexAfter: to, Value: value}
}

func (op Operation) Clone() Operation {
	op.PriorValues = slices.Clone(op.PriorValues)
	op.Values = slices.Clone(op.Values)
	return op
}

func (op Operation) Equal(other Operation) bool {
	return op.Kind == other.Kind &&
		op.Variable == other.Variable &&
		op.Index == other.Index &&
		op.IndexAfter == other.IndexAfter &&
		op.Value == other.Value &&
		op.OldValue == other.OldValue &&
		op.NewValue == other.NewValue &&
		slices.Equal(op.PriorValues, other.PriorValues) &&
		slices.Equal(op.Values, other.Values)
}

// NormalizeName trims a variable name and upper-cases it.
func NormalizeName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// Snapshot maps variable name to its ordered value list.
type Snapshot map[string][]string

func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for k, v := range s {
		cp := slices.Clone(v)
		if cp == nil {
			cp = []string{}
		}
		out[k] = cp
	}
	return out
}

// Equal reports whether both snapshots hold the same names with the same
// ordered values. A nil and an empty value list compare equal.
func (s Snapshot) Equal(other Snapshot) bool {
	if len(s) != len(other) {
		return false
	}
	for k, v := range s {
		ov, ok := other[k]
		if !ok || !slices.Equal(v, ov) {
			return false
		}
	}
	return true
}

// Names returns the variable names in sorted order.
func (s Snapshot) Names() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Variable is one name with its values.
type Variable struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

type SyncState string

const (
	Synced     SyncState = "synced"
	Dirty      SyncState = "dirty"
	Committing SyncState = "committing"
)

// State is what the backend reports as authoritative.
type State struct {
	Env   Snapshot `json:"env"`
	Dirty bool     `json:"dirty"`
}

// Batch is one backend commit group: every operation committed between two seals.
type Batch struct {
	ID        string     `json:"id"`
	OpenedAt  time.Time  `json:"openedAt"`
	SealedAt  *time.Time `json:"sealedAt,omitempty"`
	AppliedAt *time.Time `json:"appliedAt,omitempty"`
	UndoneAt  *time.Time `json:"undoneAt,omitempty"`
	Ops       int        `json:"ops"`
}

func (b Batch) Live() bool {
	return b.AppliedAt == nil && b.UndoneAt == nil
}

type ApplyResult struct {
	Updated    []string `json:"updated"`
	Deleted    []string `json:"deleted"`
	ExportPath string   `json:"exportPath,omitempty"`
}
