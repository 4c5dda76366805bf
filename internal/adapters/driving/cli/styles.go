package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// styles colours terminal output. The zero value renders plain text.
type styles struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Box     lipgloss.Style
}

// colourStyles returns the palette used on interactive terminals.
func colourStyles() styles {
	var (
		primary = lipgloss.Color("#7C3AED") // Purple
		accent  = lipgloss.Color("#06B6D4") // Cyan
		muted   = lipgloss.Color("#6C7086") // Medium gray
		success = lipgloss.Color("#A6E3A1") // Green
		warning = lipgloss.Color("#F9E2AF") // Yellow
		failure = lipgloss.Color("#F38BA8") // Red
		border  = lipgloss.Color("#45475A") // Border gray
	)

	return styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(primary),
		Label:   lipgloss.NewStyle().Bold(true).Foreground(accent),
		Muted:   lipgloss.NewStyle().Foreground(muted),
		Success: lipgloss.NewStyle().Foreground(success),
		Warning: lipgloss.NewStyle().Foreground(warning),
		Error:   lipgloss.NewStyle().Foreground(failure),
		Box: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1),
	}
}

// stylesFor picks colour styles when w is a terminal and plain ones otherwise.
func stylesFor(w io.Writer) styles {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return colourStyles()
	}
	return styles{}
}

// isTerminal reports whether r is an interactive terminal.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
