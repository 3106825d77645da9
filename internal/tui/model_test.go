package tui

import (
	"context"
	"slices"
	"strings"
	"sync"
	"testing"

	"envdesk/internal/model"
	"envdesk/internal/mutate"
	"envdesk/internal/store"
	"envdesk/internal/syncer"

	tea "github.com/charmbracelet/bubbletea"
)

// memGateway keeps applied state plus a stack of committed batches.
type memGateway struct {
	mu      sync.Mutex
	applied model.Snapshot
	batches [][]model.Operation
	open    bool
	commits int
}

func (g *memGateway) working() model.Snapshot {
	env := g.applied.Clone()
	for _, b := range g.batches {
		for _, op := range b {
			_ = mutate.Apply(env, op)
		}
	}
	return env
}

func (g *memGateway) FetchState(ctx context.Context) (model.State, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return model.State{Env: g.working(), Dirty: len(g.batches) > 0}, nil
}

func (g *memGateway) Commit(ctx context.Context, op model.Operation) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := mutate.ApplyStrict(g.working(), op); err != nil {
		return err
	}
	if !g.open {
		g.batches = append(g.batches, nil)
		g.open = true
	}
	g.batches[len(g.batches)-1] = append(g.batches[len(g.batches)-1], op)
	g.commits++
	return nil
}

func (g *memGateway) SealBatch(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.open = false
	return nil
}

func (g *memGateway) UndoLastBatch(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.batches) == 0 {
		return store.ErrNothingToUndo
	}
	g.batches = g.batches[:len(g.batches)-1]
	g.open = false
	return nil
}

func (g *memGateway) Apply(ctx context.Context) (model.ApplyResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.applied = g.working()
	g.batches = nil
	g.open = false
	return model.ApplyResult{Updated: g.applied.Names(), Deleted: []string{}}, nil
}

func newTestModel(t *testing.T, env model.Snapshot) (appModel, *memGateway) {
	t.Helper()
	gw := &memGateway{applied: env}
	ctl := syncer.New(gw)
	if err := ctl.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return newAppModel(ctl, gw, nil), gw
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m appModel, keys ...string) (appModel, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(keyMsg(k))
		m = next.(appModel)
	}
	return m, cmd
}

// finish runs a pending action command and feeds its result back.
func finish(t *testing.T, m appModel, cmd tea.Cmd) appModel {
	t.Helper()
	if cmd == nil {
		t.Fatalf("expected a command")
	}
	next, _ := m.Update(cmd())
	return next.(appModel)
}

func TestAppendValueFromValuesPane(t *testing.T) {
	m, _ := newTestModel(t, model.Snapshot{"PATH": {"/bin"}})

	m, _ = press(t, m, "tab", "a", "/opt/bin", "enter")
	if m.mode != modeNormal {
		t.Fatalf("expected input to close, mode=%v", m.mode)
	}
	if got, _ := m.ctl.Values("PATH"); !slices.Equal(got, []string{"/bin", "/opt/bin"}) {
		t.Fatalf("values = %v", got)
	}
	if m.state != model.Dirty || len(m.ctl.Pending()) != 1 {
		t.Fatalf("expected one pending edit, state=%s pending=%v", m.state, m.ctl.Pending())
	}
	if idx, v, _ := m.selectedValue(); idx != 1 || v != "/opt/bin" {
		t.Fatalf("expected the new value selected, got %d %q", idx, v)
	}
}

func TestAddVariableSelectsIt(t *testing.T) {
	m, _ := newTestModel(t, model.Snapshot{"PATH": {}})

	m, _ = press(t, m, "a", "gopath", "enter")
	if name, _ := m.selectedVar(); name != "GOPATH" {
		t.Fatalf("expected GOPATH selected, got %q", name)
	}
	if m.focus != paneValues {
		t.Fatalf("expected focus on values after adding a variable")
	}

	m, _ = press(t, m, "tab", "a", "path", "enter")
	if !strings.Contains(m.flash, string(mutate.ReasonDuplicateVariable)) || !m.flashErr {
		t.Fatalf("expected duplicate error flash, got %q", m.flash)
	}
}

func TestEditAndCancel(t *testing.T) {
	m, _ := newTestModel(t, model.Snapshot{"PATH": {"/bin", "/usr/bin"}})

	m, _ = press(t, m, "tab")
	m.values.Select(1)
	m, _ = press(t, m, "e")
	if m.input.Value() != "/usr/bin" {
		t.Fatalf("expected prefilled input, got %q", m.input.Value())
	}
	m, _ = press(t, m, "esc")
	if len(m.ctl.Pending()) != 0 {
		t.Fatalf("cancelled edit must not queue anything")
	}

	m, _ = press(t, m, "e", "/local", "enter")
	if got, _ := m.ctl.Values("PATH"); !slices.Equal(got, []string{"/bin", "/usr/bin/local"}) {
		t.Fatalf("values = %v", got)
	}
}

func TestMoveKeepsSelectionOnValue(t *testing.T) {
	m, _ := newTestModel(t, model.Snapshot{"PATH": {"a", "b", "c"}})

	m, _ = press(t, m, "tab", "J")
	if got, _ := m.ctl.Values("PATH"); !slices.Equal(got, []string{"b", "a", "c"}) {
		t.Fatalf("values = %v", got)
	}
	if idx, v, _ := m.selectedValue(); idx != 1 || v != "a" {
		t.Fatalf("selection did not follow the value: %d %q", idx, v)
	}

	m.values.Select(0)
	m, _ = press(t, m, "K")
	if got, _ := m.ctl.Values("PATH"); !slices.Equal(got, []string{"b", "a", "c"}) {
		t.Fatalf("moving past the top must be a no-op, got %v", got)
	}
}

func TestDeleteVariableNeedsConfirmation(t *testing.T) {
	m, _ := newTestModel(t, model.Snapshot{"A": {}, "B": {"x"}})

	m, _ = press(t, m, "d", "n")
	if _, ok := m.ctl.Values("A"); !ok {
		t.Fatalf("expected A to survive a declined delete")
	}
	m, _ = press(t, m, "d", "y")
	if _, ok := m.ctl.Values("A"); ok {
		t.Fatalf("expected A deleted")
	}
	if name, _ := m.selectedVar(); name != "B" {
		t.Fatalf("expected selection to move to B, got %q", name)
	}
}

func TestFlushUndoApply(t *testing.T) {
	m, gw := newTestModel(t, model.Snapshot{"PATH": {"/bin"}})

	m, _ = press(t, m, "tab", "a", "/x", "enter", "a", "/y", "enter")
	m.values.Select(1)
	m, _ = press(t, m, "d")

	m, cmd := press(t, m, "s")
	if m.busy != "flush" {
		t.Fatalf("expected flush in flight")
	}
	if _, again := press(t, m, "s"); again != nil {
		t.Fatalf("a second action must not start while one is running")
	}
	m = finish(t, m, cmd)
	if gw.commits != 1 {
		t.Fatalf("expected one compacted commit, got %d", gw.commits)
	}
	if m.state != model.Dirty || m.busy != "" {
		t.Fatalf("expected dirty after flush, state=%s busy=%q", m.state, m.busy)
	}

	m, cmd = press(t, m, "u")
	m = finish(t, m, cmd)
	if m.state != model.Synced {
		t.Fatalf("expected synced after undo, got %s (%s)", m.state, m.flash)
	}
	if got, _ := m.ctl.Values("PATH"); !slices.Equal(got, []string{"/bin"}) {
		t.Fatalf("undo not visible: %v", got)
	}

	m, _ = press(t, m, "a", "/z", "enter")
	m, cmd = press(t, m, "A")
	m = finish(t, m, cmd)
	if !m.flashErr || !strings.Contains(m.flash, "flush first") {
		t.Fatalf("apply with pending edits must be refused, flash=%q", m.flash)
	}

	m, cmd = press(t, m, "s")
	m = finish(t, m, cmd)
	m, cmd = press(t, m, "A")
	m = finish(t, m, cmd)
	if m.state != model.Synced || !strings.HasPrefix(m.flash, "applied") {
		t.Fatalf("expected synced after apply, state=%s flash=%q", m.state, m.flash)
	}
}

func TestDiscardAndQuit(t *testing.T) {
	m, _ := newTestModel(t, model.Snapshot{"PATH": {"/bin"}})

	m, _ = press(t, m, "tab", "a", "/tmp", "enter")
	m, cmd := press(t, m, "q")
	if cmd != nil || !m.quitArmed {
		t.Fatalf("first q with pending edits must only warn")
	}

	m, _ = press(t, m, "x")
	if len(m.ctl.Pending()) != 0 || m.state != model.Synced {
		t.Fatalf("expected discard to restore synced state")
	}
	if _, cmd = press(t, m, "q"); cmd == nil {
		t.Fatalf("expected quit without pending edits")
	}
}

func TestViewShowsStateAndHelp(t *testing.T) {
	m, _ := newTestModel(t, model.Snapshot{"PATH": {"/bin"}})
	m.label = "local"

	if v := m.View(); !strings.Contains(v, "synced") || !strings.Contains(v, "PATH") {
		t.Fatalf("view missing state or variable:\n%s", v)
	}
	m, _ = press(t, m, "tab", "a", "/x", "enter")
	if v := m.View(); !strings.Contains(v, "dirty (1 pending)") {
		t.Fatalf("expected dirty badge:\n%s", v)
	}

	m, _ = press(t, m, "?")
	if m.mode != modeHelp || !strings.Contains(m.View(), "flush") {
		t.Fatalf("expected help view")
	}
	m, _ = press(t, m, "esc")
	if m.mode != modeNormal {
		t.Fatalf("expected help to close")
	}
}

func TestSyncStateMessage(t *testing.T) {
	m, _ := newTestModel(t, model.Snapshot{})
	next, _ := m.Update(syncStateMsg{state: model.Committing})
	if got := next.(appModel).state; got != model.Committing {
		t.Fatalf("state = %s", got)
	}
}
