package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/databrowser/pkg/metrics"
	"github.com/vanderheijden86/databrowser/pkg/version"
)

const helpNotes = `Scope: type a dataset (/A/B/C), a block (/A/B/C#uuid)
or a saved view (block=/A/B/C#uuid block_create_since=48).
Quick views: 1-9 open, alt+1-9 save the current view.
Windows cycle Any → Last Hour → … → Forever.`

// renderHelpOverlay renders the key reference as a centered modal.
func (m Model) renderHelpOverlay() string {
	t := m.theme
	r := t.Renderer

	modalWidth := 76
	if modalWidth > m.width-4 {
		modalWidth = m.width - 4
	}
	if modalWidth < 30 {
		modalWidth = 30
	}

	titleStyle := r.NewStyle().Bold(true).Foreground(t.Primary)
	contentStyle := r.NewStyle().Foreground(t.Subtext)
	footerStyle := r.NewStyle().Foreground(t.Muted).Italic(true)

	h := m.help
	h.ShowAll = true
	h.Width = modalWidth - 6

	var b strings.Builder
	b.WriteString(titleStyle.Render("dbw " + version.Version))
	b.WriteString("\n")
	b.WriteString(RenderDivider(modalWidth - 6))
	b.WriteString("\n\n")
	b.WriteString(h.FullHelpView(m.keys.FullHelp()))
	b.WriteString("\n\n")
	b.WriteString(contentStyle.Render(helpNotes))
	if metrics.Enabled() {
		b.WriteString("\n\n")
		b.WriteString(contentStyle.Render(formatMetrics(metrics.Collect())))
	}
	b.WriteString("\n\n")
	b.WriteString(footerStyle.Render("Esc or ? to close"))

	modal := r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Secondary).
		Padding(1, 2).
		Width(modalWidth).
		Render(b.String())

	return lipgloss.Place(m.width, m.bodyHeight(), lipgloss.Center, lipgloss.Center, modal)
}

func formatMetrics(s metrics.Snapshot) string {
	var b strings.Builder
	b.WriteString("Metrics")
	names := make([]string, 0, len(s.Counters))
	for name := range s.Counters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "\n  %-18s %d", name, s.Counters[name])
	}
	for _, ts := range s.Timings {
		fmt.Fprintf(&b, "\n  %-18s n=%d avg=%.1fms max=%.1fms", ts.Name, ts.Count, ts.AvgMs, ts.MaxMs)
	}
	return b.String()
}
