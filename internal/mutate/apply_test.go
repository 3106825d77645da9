package mutate

import (
	"errors"
	"slices"
	"testing"

	"envdesk/internal/model"
)

func TestApply_Variants(t *testing.T) {
	cases := []struct {
		name string
		op   model.Operation
		want []string
	}{
		{"append", model.AppendValue("PATH", "/opt"), []string{"/bin", "/usr/bin", "/sbin", "/opt"}},
		{"modify", model.ModifyValue("PATH", 1, "/usr/bin", "/usr/local/bin"), []string{"/bin", "/usr/local/bin", "/sbin"}},
		{"delete", model.DeleteValue("PATH", 0, "/bin"), []string{"/usr/bin", "/sbin"}},
		{"reorder up", model.ReorderValue("PATH", 2, 1, "/sbin"), []string{"/bin", "/sbin", "/usr/bin"}},
		{"reorder far", model.ReorderValue("PATH", 0, 2, "/bin"), []string{"/usr/bin", "/sbin", "/bin"}},
		{"set all", model.ModifyVariable("PATH", []string{"/x"}), []string{"/x"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			snap := model.Snapshot{"PATH": {"/bin", "/usr/bin", "/sbin"}}
			if err := Apply(snap, tc.op); err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if !slices.Equal(snap["PATH"], tc.want) {
				t.Fatalf("got %v, want %v", snap["PATH"], tc.want)
			}
		})
	}
}

func TestApply_AddAndDeleteVariable(t *testing.T) {
	snap := model.Snapshot{}
	if err := Apply(snap, model.AddVariable("GOPATH")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if v, ok := snap["GOPATH"]; !ok || len(v) != 0 {
		t.Fatalf("expected empty GOPATH, got %v (present=%v)", v, ok)
	}

	err := Apply(snap, model.AddVariable("GOPATH"))
	if !errors.Is(err, ErrDuplicateVariable) {
		t.Fatalf("expected ErrDuplicateVariable, got %v", err)
	}

	if err := Apply(snap, model.DeleteVariable("GOPATH", nil)); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := snap["GOPATH"]; ok {
		t.Fatalf("expected GOPATH removed")
	}
	// Deleting an absent variable is a no-op.
	if err := Apply(snap, model.DeleteVariable("GOPATH", nil)); err != nil {
		t.Fatalf("delete absent: %v", err)
	}
}

func TestApply_Validation(t *testing.T) {
	base := model.Snapshot{"PATH": {"/bin"}}
	cases := []struct {
		name string
		op   model.Operation
		want error
	}{
		{"unknown variable", model.AppendValue("NOPE", "x"), ErrUnknownVariable},
		{"empty name", model.AddVariable("  "), ErrInvalidName},
		{"modify out of range", model.ModifyValue("PATH", 3, "", "x"), ErrIndexOutOfRange},
		{"delete negative", model.DeleteValue("PATH", -1, ""), ErrIndexOutOfRange},
		{"reorder target out of range", model.ReorderValue("PATH", 0, 1, "/bin"), ErrIndexOutOfRange},
		{"bad kind", model.Operation{Kind: "Rename", Variable: "PATH"}, ErrInvalidKind},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			snap := base.Clone()
			err := Apply(snap, tc.op)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !IsValidation(err) {
				t.Fatalf("expected a validation error, got %T", err)
			}
			if !snap.Equal(base) {
				t.Fatalf("snapshot changed on error: %v", snap)
			}
		})
	}
}

func TestApply_IndexIsAuthoritativeUnlessStrict(t *testing.T) {
	snap := model.Snapshot{"PATH": {"/bin", "/usr/bin"}}
	op := model.ModifyValue("PATH", 0, "/stale", "/new")

	strictSnap := snap.Clone()
	if err := ApplyStrict(strictSnap, op); !errors.Is(err, ErrValueMismatch) {
		t.Fatalf("expected ErrValueMismatch, got %v", err)
	}

	if err := Apply(snap, op); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if snap["PATH"][0] != "/new" {
		t.Fatalf("expected index 0 replaced, got %v", snap["PATH"])
	}
}

func TestApply_DoesNotAliasCallerSlices(t *testing.T) {
	shared := []string{"/a", "/b"}
	snap := model.Snapshot{"PATH": shared}
	if err := Apply(snap, model.DeleteValue("PATH", 0, "/a")); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if shared[0] != "/a" || shared[1] != "/b" {
		t.Fatalf("caller slice mutated: %v", shared)
	}
}

func TestReplay_ReportsFailingIndex(t *testing.T) {
	ops := []model.Operation{
		model.AppendValue("PATH", "/x"),
		model.DeleteValue("PATH", 5, "/y"),
	}
	_, err := Replay(model.Snapshot{"PATH": {}}, ops, false)
	var re *ReplayError
	if !errors.As(err, &re) {
		t.Fatalf("expected ReplayError, got %v", err)
	}
	if re.Index != 1 {
		t.Fatalf("expected failing index 1, got %d", re.Index)
	}
	if !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected wrapped ErrIndexOutOfRange, got %v", err)
	}
}
