package ui

import (
	"strings"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// MarkdownRenderer renders the detail pane through glamour, recreating the
// underlying renderer when the wrap width changes.
type MarkdownRenderer struct {
	r     *glamour.TermRenderer
	width int
	style string
}

// NewMarkdownRenderer creates a renderer wrapping at width. An empty style
// picks "notty", "dark" or "light" from the terminal.
func NewMarkdownRenderer(width int, style string) *MarkdownRenderer {
	if style == "" {
		style = detectMarkdownStyle()
	}
	m := &MarkdownRenderer{style: style}
	m.SetWidth(width)
	return m
}

func detectMarkdownStyle() string {
	switch {
	case TermProfile <= colorprofile.ASCII:
		return "notty"
	case lipgloss.HasDarkBackground():
		return "dark"
	default:
		return "light"
	}
}

// SetWidth changes the wrap width.
func (m *MarkdownRenderer) SetWidth(width int) {
	if width < 20 {
		width = 20
	}
	if m.r != nil && width == m.width {
		return
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(m.style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		m.r = nil
		return
	}
	m.r = r
	m.width = width
}

// Width returns the wrap width.
func (m *MarkdownRenderer) Width() int {
	return m.width
}

// Render renders md, falling back to the raw text when no renderer could
// be built.
func (m *MarkdownRenderer) Render(md string) (string, error) {
	if m == nil || m.r == nil {
		return md, nil
	}
	out, err := m.r.Render(md)
	if err != nil {
		return "", err
	}
	return strings.Trim(out, "\n"), nil
}
