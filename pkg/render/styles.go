// Package render formats workflow runs and listings for the terminal.
package render

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Status glyphs convey meaning without relying on color alone.
const (
	GlyphArrow   = "→"
	GlyphPassed  = "✓"
	GlyphFailed  = "✗"
	GlyphWarning = "⚠"
)

var (
	colorGreen  = lipgloss.Color("42")
	colorRed    = lipgloss.Color("196")
	colorYellow = lipgloss.Color("214")
	colorCyan   = lipgloss.Color("51")
	colorDim    = lipgloss.Color("240")
)

// styles is the palette bound to one output's renderer, so color detection
// follows the writer rather than the process's stdout.
type styles struct {
	plain bool

	header  lipgloss.Style
	step    lipgloss.Style
	passed  lipgloss.Style
	failed  lipgloss.Style
	action  lipgloss.Style
	warning lipgloss.Style
	dim     lipgloss.Style
	badge   lipgloss.Style
}

func newStyles(w io.Writer, color bool) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		plain:   !color,
		header:  r.NewStyle().Bold(true).Foreground(colorCyan),
		step:    r.NewStyle().Bold(true),
		passed:  r.NewStyle().Foreground(colorGreen),
		failed:  r.NewStyle().Foreground(colorRed).Bold(true),
		action:  r.NewStyle().Foreground(colorYellow),
		warning: r.NewStyle().Foreground(colorYellow),
		dim:     r.NewStyle().Foreground(colorDim),
		badge:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(colorYellow).Padding(0, 1),
	}
}

// apply renders s with st unless color is off.
func (s styles) apply(st lipgloss.Style, text string) string {
	if s.plain {
		return text
	}
	return st.Render(text)
}
