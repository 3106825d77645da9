package tui

import (
	"fmt"
	"strings"

	"envdesk/internal/docs"
	"envdesk/internal/model"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

const keyHints = "a add  e edit  d delete  K/J move  s flush  u undo  x discard  A apply  ? help  q quit"

func (m appModel) View() string {
	if m.mode == modeHelp {
		return m.viewHelp()
	}

	title := lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Render("envdesk")
	if m.label != "" {
		title += " " + styleMuted().Render(m.label)
	}

	varsTitle := "Variables"
	valuesTitle := "Values"
	if name, ok := m.selectedVar(); ok {
		valuesTitle = "Values of " + name
	}
	left := stylePane(m.focus == paneVars).Render(lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Bold(true).Render(varsTitle), m.vars.View()))
	right := stylePane(m.focus == paneValues).Render(lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Bold(true).Render(valuesTitle), m.valuesBody()))
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, right)

	return lipgloss.JoinVertical(lipgloss.Left, title, body, m.viewBottom(), m.viewFooter())
}

func (m appModel) valuesBody() string {
	if _, ok := m.selectedVar(); !ok {
		return styleMuted().Render("no variable selected (a adds one)")
	}
	if len(m.values.Items()) == 0 {
		return styleMuted().Render("no values (a appends one)")
	}
	return m.values.View()
}

// viewBottom is the input line while editing, else the flash message.
func (m appModel) viewBottom() string {
	w := max(m.width, 20)
	switch m.mode {
	case modeAddVar, modeAppendValue, modeEditValue:
		line := lipgloss.NewStyle().Background(colorInputBg).Render(" " + m.input.View() + " ")
		if xansi.StringWidth(line) > w {
			line = xansi.Cut(line, 0, w) + "\x1b[0m"
		}
		return line
	case modeConfirmDelete:
		name, _ := m.selectedVar()
		return lipgloss.NewStyle().Foreground(colorError).Render(fmt.Sprintf("delete %s? (y/N)", name))
	}
	if m.flash == "" {
		return ""
	}
	st := styleMuted()
	if m.flashErr {
		st = lipgloss.NewStyle().Foreground(colorError)
	}
	return st.Render(xansi.Truncate(m.flash, w, "…"))
}

func (m appModel) viewFooter() string {
	w := max(m.width, 20)
	badge := syncBadge(m.state, len(m.ctl.Pending()))
	if m.busy != "" {
		badge += styleMuted().Render(" " + m.busy + "…")
	}
	hints := styleMuted().Render(keyHints)
	line := badge + "  " + hints
	if xansi.StringWidth(line) > w {
		line = xansi.Truncate(line, w, "…")
	}
	return line
}

func syncBadge(s model.SyncState, pending int) string {
	switch s {
	case model.Committing:
		return lipgloss.NewStyle().Foreground(colorCommitting).Render("◌ committing")
	case model.Dirty:
		label := "● dirty"
		if pending > 0 {
			label += fmt.Sprintf(" (%d pending)", pending)
		}
		return lipgloss.NewStyle().Foreground(colorDirty).Render(label)
	}
	return lipgloss.NewStyle().Foreground(colorSynced).Render("● synced")
}

func (m appModel) viewHelp() string {
	body, ok := docs.Get("keys")
	if !ok {
		body = keyHints
	}
	out := renderMarkdown(body, min(max(m.width-4, 20), 100))
	lines := strings.Split(out, "\n")
	if m.height > 2 && len(lines) > m.height-1 {
		lines = lines[:m.height-1]
	}
	return strings.Join(lines, "\n") + "\n" + styleMuted().Render("? or esc to close")
}
