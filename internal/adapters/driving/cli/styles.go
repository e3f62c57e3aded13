package cli

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Styles holds the lipgloss styles used by the table outputs.
// When stdout is not a terminal every style is a zero style, so piped
// output stays free of escape sequences.
type Styles struct {
	// Header style for section headings.
	Header lipgloss.Style

	// Muted style for file paths and other secondary detail.
	Muted lipgloss.Style

	// Warn style for degraded-mode notices.
	Warn lipgloss.Style

	// Err style for failure markers.
	Err lipgloss.Style
}

// styles is resolved once at startup from the stdout terminal state.
var styles = newStyles(term.IsTerminal(int(os.Stdout.Fd())))

func newStyles(tty bool) Styles {
	if !tty {
		return Styles{}
	}
	return Styles{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")),

		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C7086")),

		Warn: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F9E2AF")),

		Err: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F38BA8")),
	}
}
