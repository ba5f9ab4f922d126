package cmd

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	successColor = lipgloss.Color("#10B981") // Green
	warningColor = lipgloss.Color("#F59E0B") // Amber
	errorColor   = lipgloss.Color("#F87171") // Red
	mutedColor   = lipgloss.Color("#9CA3AF") // Gray

	successStyle = lipgloss.NewStyle().Foreground(successColor)
	warningStyle = lipgloss.NewStyle().Foreground(warningColor).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(errorColor)
	mutedStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	labelStyle   = lipgloss.NewStyle().Bold(true).Width(12)
)

// painter styles text only when writing to a terminal, so piped output and
// tests see plain strings.
type painter struct {
	enabled bool
}

func newPainter(w io.Writer) painter {
	f, ok := w.(*os.File)
	return painter{enabled: ok && term.IsTerminal(int(f.Fd()))}
}

func (p painter) render(style lipgloss.Style, s string) string {
	if !p.enabled {
		return s
	}
	return style.Render(s)
}

func (p painter) ok(s string) string    { return p.render(successStyle, s) }
func (p painter) warn(s string) string  { return p.render(warningStyle, s) }
func (p painter) fail(s string) string  { return p.render(errorStyle, s) }
func (p painter) muted(s string) string { return p.render(mutedStyle, s) }
func (p painter) label(s string) string {
	if !p.enabled {
		return s + ":"
	}
	return labelStyle.Render(s + ":")
}
