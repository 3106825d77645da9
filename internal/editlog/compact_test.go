package editlog

import (
	"fmt"
	"math/rand"
	"slices"
	"testing"

	"envdesk/internal/model"
	"envdesk/internal/mutate"
)

func opsEqual(a, b []model.Operation) bool {
	return slices.EqualFunc(a, b, func(x, y model.Operation) bool { return x.Equal(y) })
}

func TestCompact_Folds(t *testing.T) {
	cases := []struct {
		name string
		in   []model.Operation
		want []model.Operation
	}{
		{
			name: "append then delete cancels",
			in: []model.Operation{
				model.AppendValue("X", "a"),
				model.DeleteValue("X", 0, "a"),
			},
			want: []model.Operation{},
		},
		{
			name: "append then modify becomes one append",
			in: []model.Operation{
				model.AppendValue("X", "a"),
				model.ModifyValue("X", 0, "a", "b"),
			},
			want: []model.Operation{model.AppendValue("X", "b")},
		},
		{
			name: "chained modifies collapse",
			in: []model.Operation{
				model.ModifyValue("X", 0, "a", "b"),
				model.ModifyValue("X", 0, "b", "c"),
			},
			want: []model.Operation{model.ModifyValue("X", 0, "a", "c")},
		},
		{
			name: "added variable deleted again",
			in: []model.Operation{
				model.AddVariable("Y"),
				model.AppendValue("Y", "p"),
				model.DeleteVariable("Y", []string{"p"}),
			},
			want: []model.Operation{},
		},
		{
			name: "repeated append keeps the latest",
			in: []model.Operation{
				model.AppendValue("X", "a"),
				model.AppendValue("X", "b"),
				model.AppendValue("X", "a"),
			},
			want: []model.Operation{
				model.AppendValue("X", "b"),
				model.AppendValue("X", "a"),
			},
		},
		{
			name: "delete of pre-existing value is kept",
			in: []model.Operation{
				model.DeleteValue("X", 1, "old"),
			},
			want: []model.Operation{model.DeleteValue("X", 1, "old")},
		},
		{
			name: "modify then delete removes the original value",
			in: []model.Operation{
				model.ModifyValue("X", 0, "p", "a"),
				model.ModifyValue("X", 1, "q", "r"),
				model.DeleteValue("X", 0, "a"),
			},
			want: []model.Operation{
				model.ModifyValue("X", 1, "q", "r"),
				model.DeleteValue("X", 0, "p"),
			},
		},
		{
			name: "modify back to the start is dropped",
			in: []model.Operation{
				model.ModifyValue("X", 0, "a", "b"),
				model.ModifyValue("X", 0, "b", "a"),
			},
			want: []model.Operation{},
		},
		{
			name: "other variables are untouched",
			in: []model.Operation{
				model.AppendValue("X", "a"),
				model.AppendValue("Z", "a"),
				model.DeleteValue("X", 0, "a"),
			},
			want: []model.Operation{model.AppendValue("Z", "a")},
		},
		{
			name: "delete of existing variable drops earlier edits",
			in: []model.Operation{
				model.AppendValue("X", "a"),
				model.ReorderValue("X", 0, 1, "p"),
				model.AppendValue("Z", "z"),
				model.DeleteVariable("X", nil),
			},
			want: []model.Operation{
				model.AppendValue("Z", "z"),
				model.DeleteVariable("X", nil),
			},
		},
		{
			name: "add, set and reorder are never folded",
			in: []model.Operation{
				model.AddVariable("Y"),
				model.ModifyVariable("Y", []string{"a", "b"}),
				model.ReorderValue("Y", 0, 1, "a"),
			},
			want: []model.Operation{
				model.AddVariable("Y"),
				model.ModifyVariable("Y", []string{"a", "b"}),
				model.ReorderValue("Y", 0, 1, "a"),
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Compact(tc.in)
			if !opsEqual(got, tc.want) {
				t.Fatalf("Compact:\n got  %+v\n want %+v", got, tc.want)
			}
		})
	}
}

func TestCompact_DoesNotMutateInput(t *testing.T) {
	in := []model.Operation{
		model.AppendValue("X", "a"),
		model.ModifyValue("X", 0, "a", "b"),
	}
	orig := cloneOps(in)
	_ = Compact(in)
	if !opsEqual(in, orig) {
		t.Fatalf("input changed: %+v", in)
	}
}

func TestCompact_DeleteVariableKeepsEarlierDelete(t *testing.T) {
	// X existed, was deleted, re-added and deleted again: the first delete
	// must survive or X would come back.
	in := []model.Operation{
		model.DeleteVariable("X", []string{"p"}),
		model.AddVariable("X"),
		model.AppendValue("X", "q"),
		model.DeleteVariable("X", nil),
	}
	got := Compact(in)
	want := []model.Operation{model.DeleteVariable("X", []string{"p"})}
	if !opsEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

// randomOps builds a valid sequence of value edits for PATH against base. A
// small alphabet makes duplicate values common when unique is false.
func randomOps(r *rand.Rand, base []string, n int, unique bool) []model.Operation {
	cur := slices.Clone(base)
	fresh := 0
	value := func() string {
		if unique {
			fresh++
			return fmt.Sprintf("v%d", fresh)
		}
		return string(rune('a' + r.Intn(3)))
	}
	var ops []model.Operation
	for len(ops) < n {
		switch k := r.Intn(3); {
		case k == 0 || len(cur) == 0:
			v := value()
			ops = append(ops, model.AppendValue("PATH", v))
			cur = append(cur, v)
		case k == 1:
			i := r.Intn(len(cur))
			v := value()
			ops = append(ops, model.ModifyValue("PATH", i, cur[i], v))
			cur[i] = v
		default:
			i := r.Intn(len(cur))
			ops = append(ops, model.DeleteValue("PATH", i, cur[i]))
			cur = slices.Delete(cur, i, i+1)
		}
	}
	return ops
}

func replay(t *testing.T, base model.Snapshot, ops []model.Operation, strict bool) model.Snapshot {
	t.Helper()
	out, err := mutate.Replay(base, ops, strict)
	if err != nil {
		t.Fatalf("replay %+v: %v", ops, err)
	}
	return out
}

func TestCompact_PreservesNetEffectForDistinctValues(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		base := model.Snapshot{"PATH": {"p0", "p1", "p2"}}
		raw := randomOps(r, base["PATH"], 1+r.Intn(12), true)

		want := replay(t, base, raw, false)
		got := replay(t, base, Compact(raw), true)
		if !got.Equal(want) {
			t.Fatalf("iteration %d: net effect changed\n raw       %+v\n compacted %+v\n want %v got %v",
				i, raw, Compact(raw), want, got)
		}
	}
}

func TestCompactAgainst_PreservesNetEffect(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		base := model.Snapshot{"PATH": {"a", "b", "a"}}
		raw := randomOps(r, base["PATH"], 1+r.Intn(10), false)

		res := CompactAgainst(base, raw)
		want := replay(t, base, raw, false)
		got := replay(t, base, res.Ops, true)
		if !got.Equal(want) {
			t.Fatalf("iteration %d: net effect changed\n raw  %+v\n sent %+v", i, raw, res.Ops)
		}
		if res.Folded != len(raw)-len(res.Ops) {
			t.Fatalf("iteration %d: folded=%d, want %d", i, res.Folded, len(raw)-len(res.Ops))
		}
	}
}

func TestCompactAgainst_FallsBackOnDuplicates(t *testing.T) {
	base := model.Snapshot{"PATH": {"a", "b"}, "GOPATH": {"/go"}}
	raw := []model.Operation{
		model.AppendValue("PATH", "a"),
		// Deletes the pre-existing "a" at index 0, not the appended one.
		model.DeleteValue("PATH", 0, "a"),
		model.AppendValue("GOPATH", "/x"),
		model.DeleteValue("GOPATH", 1, "/x"),
	}
	res := CompactAgainst(base, raw)

	if !slices.Equal(res.Fallback, []string{"PATH"}) {
		t.Fatalf("fallback = %v, want [PATH]", res.Fallback)
	}
	want := []model.Operation{
		model.AppendValue("PATH", "a"),
		model.DeleteValue("PATH", 0, "a"),
	}
	if !opsEqual(res.Ops, want) {
		t.Fatalf("ops = %+v, want %+v", res.Ops, want)
	}
	if res.Folded != 2 {
		t.Fatalf("folded = %d, want 2", res.Folded)
	}
}

func TestCompact_Idempotent(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for i := 0; i < 500; i++ {
		raw := randomOps(r, []string{"a", "b"}, 1+r.Intn(15), i%2 == 0)
		if i%5 == 0 {
			raw = append(raw, model.DeleteVariable("PATH", nil), model.AddVariable("PATH"), model.AppendValue("PATH", "z"))
		}
		once := Compact(raw)
		twice := Compact(once)
		if !opsEqual(once, twice) {
			t.Fatalf("iteration %d: not idempotent\n once  %+v\n twice %+v", i, once, twice)
		}
	}
}

func TestLog_CompactInPlace(t *testing.T) {
	var l Log
	l.Append(model.AppendValue("X", "a"))
	l.Append(model.DeleteValue("X", 0, "a"))
	l.Compact()
	if l.Len() != 0 {
		t.Fatalf("expected empty log, got %+v", l.Ops())
	}
}
