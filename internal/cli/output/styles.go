package output

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Styles holds the lipgloss styles used for diagnostics.
type Styles struct {
	Error   lipgloss.Style
	Warning lipgloss.Style
	Success lipgloss.Style
	Muted   lipgloss.Style
	Gutter  lipgloss.Style
	Caret   lipgloss.Style
}

// NewStyles builds styles bound to w. Without color every style renders
// plain text.
func NewStyles(w io.Writer, color bool) Styles {
	lr := lipgloss.NewRenderer(w)
	if !color {
		lr.SetColorProfile(termenv.Ascii)
	}
	return Styles{
		Error:   lr.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		Warning: lr.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
		Success: lr.NewStyle().Foreground(lipgloss.Color("10")),
		Muted:   lr.NewStyle().Foreground(lipgloss.Color("8")),
		Gutter:  lr.NewStyle().Foreground(lipgloss.Color("12")),
		Caret:   lr.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
	}
}
