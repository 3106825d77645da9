package editlog

import (
	"testing"

	"envdesk/internal/model"
)

func TestLog_OpsIsACopy(t *testing.T) {
	var l Log
	l.Append(model.ModifyVariable("PATH", []string{"/a"}))

	ops := l.Ops()
	ops[0].Values[0] = "/changed"
	ops[0].Variable = "OTHER"

	got := l.Ops()[0]
	if got.Variable != "PATH" || got.Values[0] != "/a" {
		t.Fatalf("log mutated through returned copy: %+v", got)
	}
}

func TestLog_DropPrefixKeepsTail(t *testing.T) {
	var l Log
	l.Append(model.AppendValue("PATH", "1"))
	l.Append(model.AppendValue("PATH", "2"))
	l.Append(model.AppendValue("PATH", "3"))

	l.DropPrefix(2)
	if l.Len() != 1 || l.Ops()[0].Value != "3" {
		t.Fatalf("unexpected log after DropPrefix: %+v", l.Ops())
	}
	l.DropPrefix(5)
	if l.Len() != 0 {
		t.Fatalf("expected empty log, got %+v", l.Ops())
	}
}

func TestLog_ReplacePrefix(t *testing.T) {
	var l Log
	l.Append(model.AppendValue("PATH", "a"))
	l.Append(model.DeleteValue("PATH", 0, "a"))
	l.Append(model.AppendValue("PATH", "tail"))

	l.ReplacePrefix(2, []model.Operation{model.AppendValue("GOPATH", "x")})
	ops := l.Ops()
	if len(ops) != 2 || ops[0].Variable != "GOPATH" || ops[1].Value != "tail" {
		t.Fatalf("unexpected log after ReplacePrefix: %+v", ops)
	}

	l.ReplacePrefix(10, nil)
	if l.Len() != 0 {
		t.Fatalf("expected empty log, got %+v", l.Ops())
	}
}

func TestLog_Clear(t *testing.T) {
	var l Log
	l.Append(model.AddVariable("X"))
	l.Clear()
	if l.Len() != 0 {
		t.Fatalf("expected empty log")
	}
}
