package tui

import (
	"context"
	"fmt"
	"time"

	"envdesk/internal/model"
	"envdesk/internal/syncer"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type pane int

const (
	paneVars pane = iota
	paneValues
)

type mode int

const (
	modeNormal mode = iota
	modeAddVar
	modeAppendValue
	modeEditValue
	modeConfirmDelete
	modeHelp
)

// syncStateMsg is sent by the controller's change hook.
type syncStateMsg struct{ state model.SyncState }

// opDoneMsg reports a backend action started from a key press.
type opDoneMsg struct {
	action string
	result string
	err    error
}

type autoFlushErrMsg struct{ err error }

// Applier publishes staged batches. Both the local store and the HTTP client
// implement it.
type Applier interface {
	Apply(ctx context.Context) (model.ApplyResult, error)
}

const actionTimeout = 30 * time.Second

type appModel struct {
	ctl     *syncer.Controller
	applier Applier
	flusher *syncer.DebouncedFlusher
	label   string

	vars   list.Model
	values list.Model
	input  textinput.Model

	focus pane
	mode  mode
	state model.SyncState

	// busy names the backend action in flight, if any.
	busy      string
	flash     string
	flashErr  bool
	quitArmed bool

	width  int
	height int
}

func newAppModel(ctl *syncer.Controller, applier Applier, flusher *syncer.DebouncedFlusher) appModel {
	in := textinput.New()
	in.CharLimit = 4096

	m := appModel{
		ctl:     ctl,
		applier: applier,
		flusher: flusher,
		vars:    newList(true),
		values:  newList(false),
		input:   in,
		state:   ctl.State(),
		width:   80,
		height:  24,
	}
	m.resize()
	m.refresh()
	return m
}

func (m appModel) Init() tea.Cmd { return nil }

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case syncStateMsg:
		m.state = msg.state
		m.refresh()
		return m, nil

	case opDoneMsg:
		m.busy = ""
		if msg.err != nil {
			m.setFlash(fmt.Sprintf("%s: %v", msg.action, msg.err), true)
		} else if msg.result != "" {
			m.setFlash(msg.result, false)
		}
		m.state = m.ctl.State()
		m.refresh()
		return m, nil

	case autoFlushErrMsg:
		m.setFlash("auto flush: "+msg.err.Error(), true)
		m.state = m.ctl.State()
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.updateKey(msg)
	}
	return m, nil
}

func (m appModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeHelp:
		switch msg.String() {
		case "?", "esc", "q", "enter":
			m.mode = modeNormal
		}
		return m, nil
	case modeConfirmDelete:
		m.mode = modeNormal
		if msg.String() == "y" {
			if name, ok := m.selectedVar(); ok {
				m.edited(m.ctl.DeleteVariable(name))
			}
		}
		return m, nil
	case modeAddVar, modeAppendValue, modeEditValue:
		switch msg.String() {
		case "esc":
			m.closeInput()
			return m, nil
		case "enter":
			m.submitInput()
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	key := msg.String()
	if key != "q" {
		m.quitArmed = false
	}

	switch key {
	case "ctrl+c":
		return m, tea.Quit
	case "q":
		if n := len(m.ctl.Pending()); n > 0 && !m.quitArmed {
			m.quitArmed = true
			m.setFlash(fmt.Sprintf("%d pending edit(s) not flushed; press q again to quit, s to flush", n), true)
			return m, nil
		}
		return m, tea.Quit
	case "tab", "left", "right", "h", "l":
		if m.focus == paneVars {
			m.setFocus(paneValues)
		} else {
			m.setFocus(paneVars)
		}
		return m, nil
	case "?":
		m.mode = modeHelp
		return m, nil
	case "a":
		if m.focus == paneVars {
			m.openInput(modeAddVar, "new variable: ", "")
		} else if _, ok := m.selectedVar(); ok {
			m.openInput(modeAppendValue, "append value: ", "")
		}
		return m, nil
	case "e", "enter":
		if m.focus == paneVars {
			if key == "enter" {
				m.setFocus(paneValues)
			}
			return m, nil
		}
		if _, v, ok := m.selectedValue(); ok {
			m.openInput(modeEditValue, "edit value: ", v)
		}
		return m, nil
	case "d":
		if m.focus == paneVars {
			if _, ok := m.selectedVar(); ok {
				m.mode = modeConfirmDelete
			}
			return m, nil
		}
		if name, ok := m.selectedVar(); ok {
			if idx, _, ok := m.selectedValue(); ok {
				m.edited(m.ctl.DeleteValue(name, idx))
			}
		}
		return m, nil
	case "K", "J":
		m.moveSelected(key == "K")
		return m, nil
	case "s":
		return m.runAction("flush", func(ctx context.Context) (string, error) {
			if err := m.ctl.Flush(ctx); err != nil {
				return "", err
			}
			return "flushed", nil
		})
	case "u":
		return m.runAction("undo", func(ctx context.Context) (string, error) {
			if err := m.ctl.Undo(ctx); err != nil {
				return "", err
			}
			return "undid last batch", nil
		})
	case "x":
		n := len(m.ctl.Pending())
		if err := m.ctl.Discard(); err != nil {
			m.setFlash(err.Error(), true)
			return m, nil
		}
		m.state = m.ctl.State()
		m.refresh()
		m.setFlash(fmt.Sprintf("discarded %d pending edit(s)", n), false)
		return m, nil
	case "A":
		if m.applier == nil {
			m.setFlash("apply is not available for this backend", true)
			return m, nil
		}
		return m.runAction("apply", func(ctx context.Context) (string, error) {
			if n := len(m.ctl.Pending()); n > 0 {
				return "", fmt.Errorf("%d pending edit(s); flush first", n)
			}
			res, err := m.applier.Apply(ctx)
			if err != nil {
				return "", err
			}
			if err := m.ctl.Load(ctx); err != nil {
				return "", err
			}
			out := fmt.Sprintf("applied: %d updated, %d deleted", len(res.Updated), len(res.Deleted))
			if res.ExportPath != "" {
				out += " → " + res.ExportPath
			}
			return out, nil
		})
	case "r":
		return m.runAction("reload", func(ctx context.Context) (string, error) {
			return "", m.ctl.Load(ctx)
		})
	}

	var cmd tea.Cmd
	if m.focus == paneVars {
		before := m.vars.Index()
		m.vars, cmd = m.vars.Update(msg)
		if m.vars.Index() != before {
			m.refreshValues(0)
		}
	} else {
		m.values, cmd = m.values.Update(msg)
	}
	return m, cmd
}

// runAction starts a backend call off the update loop. Only one runs at a time.
func (m appModel) runAction(action string, fn func(ctx context.Context) (string, error)) (tea.Model, tea.Cmd) {
	if m.busy != "" {
		m.setFlash(m.busy+" in progress", true)
		return m, nil
	}
	m.busy = action
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		res, err := fn(ctx)
		return opDoneMsg{action: action, result: res, err: err}
	}
}

func (m *appModel) openInput(md mode, prompt, value string) {
	m.mode = md
	m.input.Prompt = prompt
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
}

func (m *appModel) closeInput() {
	m.mode = modeNormal
	m.input.Blur()
	m.input.SetValue("")
}

func (m *appModel) submitInput() {
	text := m.input.Value()
	md := m.mode
	m.closeInput()

	switch md {
	case modeAddVar:
		name := model.NormalizeName(text)
		if err := m.ctl.AddVariable(name); err != nil {
			m.edited(err)
			return
		}
		m.edited(nil)
		m.selectVar(name)
		m.setFocus(paneValues)
	case modeAppendValue:
		name, _ := m.selectedVar()
		if err := m.ctl.AppendValue(name, text); err != nil {
			m.edited(err)
			return
		}
		m.edited(nil)
		m.values.Select(len(m.values.Items()) - 1)
	case modeEditValue:
		name, _ := m.selectedVar()
		idx, _, _ := m.selectedValue()
		m.edited(m.ctl.ModifyValue(name, idx, text))
	}
}

func (m *appModel) moveSelected(up bool) {
	if m.focus != paneValues {
		return
	}
	name, ok := m.selectedVar()
	if !ok {
		return
	}
	idx, _, ok := m.selectedValue()
	if !ok {
		return
	}
	dir := syncer.Down
	if up {
		dir = syncer.Up
	}
	// Moving past either end is rejected by the controller; ignore it.
	if err := m.ctl.MoveValue(name, idx, dir); err != nil {
		return
	}
	m.edited(nil)
	m.values.Select(idx + int(dir))
}

// edited refreshes the view after a local edit and schedules an auto flush.
func (m *appModel) edited(err error) {
	if err != nil {
		m.setFlash(err.Error(), true)
		return
	}
	m.state = m.ctl.State()
	m.refresh()
	m.flusher.Notify()
}

func (m *appModel) setFlash(s string, isErr bool) {
	m.flash = s
	m.flashErr = isErr
}

func (m *appModel) setFocus(p pane) {
	m.focus = p
	m.vars.SetDelegate(newRowDelegate(p == paneVars))
	m.values.SetDelegate(newRowDelegate(p == paneValues))
}

func (m *appModel) selectedVar() (string, bool) {
	it, ok := m.vars.SelectedItem().(varItem)
	if !ok {
		return "", false
	}
	return it.name, true
}

func (m *appModel) selectedValue() (int, string, bool) {
	it, ok := m.values.SelectedItem().(valueItem)
	if !ok {
		return 0, "", false
	}
	return it.index, it.value, true
}

func (m *appModel) selectVar(name string) {
	for i, it := range m.vars.Items() {
		if v, ok := it.(varItem); ok && v.name == name {
			m.vars.Select(i)
			m.refreshValues(0)
			return
		}
	}
}

// refresh rebuilds both lists from the controller's snapshot, keeping the
// selected variable and value position where possible.
func (m *appModel) refresh() {
	snap := m.ctl.Snapshot()
	selected, _ := m.selectedVar()
	valueIdx := m.values.Index()

	items := make([]list.Item, 0, len(snap))
	at := -1
	for i, name := range snap.Names() {
		items = append(items, varItem{name: name, count: len(snap[name])})
		if name == selected {
			at = i
		}
	}
	if at < 0 {
		// The selected variable is gone; stay near its old row.
		at = max(0, min(m.vars.Index(), len(items)-1))
	}
	m.vars.SetItems(items)
	m.vars.Select(at)
	m.refreshValues(valueIdx)
}

func (m *appModel) refreshValues(keep int) {
	name, ok := m.selectedVar()
	var values []string
	if ok {
		values, _ = m.ctl.Values(name)
	}
	items := make([]list.Item, 0, len(values))
	for i, v := range values {
		items = append(items, valueItem{index: i, value: v})
	}
	m.values.SetItems(items)
	if keep >= len(items) {
		keep = len(items) - 1
	}
	if keep < 0 {
		keep = 0
	}
	m.values.Select(keep)
}

func (m *appModel) resize() {
	w, h := m.width, m.height
	bodyH := h - 5
	if bodyH < 3 {
		bodyH = 3
	}
	varsW := w / 3
	if varsW < 16 {
		varsW = 16
	}
	valuesW := w - varsW - 8
	if valuesW < 16 {
		valuesW = 16
	}
	m.vars.SetSize(varsW, bodyH)
	m.values.SetSize(valuesW, bodyH)
}
