package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

type varItem struct {
	name  string
	count int
}

func (i varItem) Title() string       { return fmt.Sprintf("%s %s", i.name, styleMuted().Render(fmt.Sprintf("(%d)", i.count))) }
func (i varItem) FilterValue() string { return i.name }

type valueItem struct {
	index int
	value string
}

func (i valueItem) Title() string {
	v := i.value
	if v == "" {
		v = styleMuted().Render("(empty)")
	}
	return fmt.Sprintf("%s %s", styleMuted().Render(fmt.Sprintf("%2d", i.index)), v)
}
func (i valueItem) FilterValue() string { return i.value }

// rowDelegate renders one line per item, padded or cut to the list width.
// The selection is only highlighted in the focused pane.
type rowDelegate struct {
	normal   lipgloss.Style
	selected lipgloss.Style
	focused  bool
}

func newRowDelegate(focused bool) rowDelegate {
	return rowDelegate{
		normal:   lipgloss.NewStyle(),
		selected: lipgloss.NewStyle().Foreground(colorSelectedFg).Background(colorSelectedBg).Bold(true),
		focused:  focused,
	}
}

func (d rowDelegate) Height() int                             { return 1 }
func (d rowDelegate) Spacing() int                            { return 0 }
func (d rowDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d rowDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	contentW := m.Width()
	if contentW < 4 {
		return
	}

	txt := fmt.Sprint(item)
	if t, ok := item.(interface{ Title() string }); ok {
		txt = t.Title()
	}

	prefix := "  "
	style := d.normal
	if index == m.Index() {
		prefix = "› "
		if d.focused {
			style = d.selected
		}
	}

	line := prefix + txt
	if lineW := xansi.StringWidth(line); lineW < contentW {
		line += strings.Repeat(" ", contentW-lineW)
	} else if lineW > contentW {
		line = xansi.Truncate(line, contentW, "…")
	}
	fmt.Fprint(w, style.Render(line))
}

func newList(focused bool) list.Model {
	l := list.New(nil, newRowDelegate(focused), 0, 0)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()
	return l
}
