package tui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Colors adapt to light and dark terminal backgrounds. Faint styling is only
// used on dark backgrounds; faint text on light terminals is often illegible.

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

func faintIfDark(st lipgloss.Style) lipgloss.Style {
	if lipgloss.HasDarkBackground() {
		return st.Faint(true)
	}
	return st
}

var (
	colorMuted       lipgloss.TerminalColor = ac("240", "243")
	colorSelectedBg  lipgloss.TerminalColor = ac("#e9e9e9", "#262626")
	colorSelectedFg  lipgloss.TerminalColor = ac("235", "255")
	colorBorder      lipgloss.TerminalColor = ac("250", "243")
	colorFocusBorder lipgloss.TerminalColor = ac("232", "255")
	colorAccent      lipgloss.TerminalColor = ac("27", "62")
	colorInputBg     lipgloss.TerminalColor = ac("254", "234")

	colorSynced     lipgloss.TerminalColor = ac("28", "42")
	colorDirty      lipgloss.TerminalColor = ac("130", "214")
	colorCommitting lipgloss.TerminalColor = ac("27", "39")
	colorError      lipgloss.TerminalColor = ac("160", "203")
)

func styleMuted() lipgloss.Style {
	return faintIfDark(lipgloss.NewStyle().Foreground(colorMuted))
}

func stylePane(focused bool) lipgloss.Style {
	border := colorBorder
	if focused {
		border = colorFocusBorder
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1)
}

// applyThemePreference sets the color profile and background for the TUI.
// Only NO_COLOR disables color; CLICOLOR is meant for plain CLI output.
func applyThemePreference(theme string) {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
	} else {
		profile := termenv.ColorProfile()
		colorterm := strings.ToLower(strings.TrimSpace(os.Getenv("COLORTERM")))
		if colorterm == "truecolor" || colorterm == "24bit" {
			profile = termenv.TrueColor
		} else if profile == termenv.Ascii && strings.Contains(os.Getenv("TERM"), "256color") {
			profile = termenv.ANSI256
		}
		lipgloss.SetColorProfile(profile)
	}

	if v := strings.TrimSpace(os.Getenv("ENVDESK_TUI_THEME")); v != "" {
		theme = v
	}
	switch strings.ToLower(strings.TrimSpace(theme)) {
	case "dark":
		lipgloss.SetHasDarkBackground(true)
	case "light":
		lipgloss.SetHasDarkBackground(false)
	}
}
