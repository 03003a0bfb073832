package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/hochfrequenz/task-forest/internal/domain"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	rootStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	declaredStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	reconstructedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("42"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("255"))

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			Underline(true)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("244"))

	selectedStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("240")).
			Foreground(lipgloss.Color("255"))
)

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	roots := 0
	for _, sk := range m.skeletons {
		if sk.IsRootTask {
			roots++
		}
	}

	header := fmt.Sprintf(" Task Forest │ Skeletons: %d │ Roots: %d │ Runs: %d ",
		len(m.skeletons), roots, len(m.runs))
	b.WriteString(headerStyle.Width(m.width).Render(header))
	b.WriteString("\n")

	b.WriteString(m.renderTabs())
	b.WriteString("\n")

	switch m.activeTab {
	case 0:
		b.WriteString(sectionStyle.Width(m.width - 2).Render(m.renderForest()))
	case 1:
		b.WriteString(sectionStyle.Width(m.width - 2).Render(m.renderRuns()))
	}
	b.WriteString("\n")

	if m.statusMsg != "" {
		if m.rebuilding {
			b.WriteString(warningStyle.Width(m.width).Render(" ⏳ " + m.statusMsg + " "))
		} else {
			b.WriteString(dimStyle.Width(m.width).Render(" " + m.statusMsg + " "))
		}
		b.WriteString("\n")
	}

	statusBar := " [tab]switch [j/k]navigate [g/G]top/bottom [r]eload [b]rebuild [q]uit "
	b.WriteString(statusBarStyle.Width(m.width).Render(statusBar))

	return b.String()
}

func (m Model) renderTabs() string {
	tabs := []string{"Forest", "Runs"}
	var parts []string

	for i, tab := range tabs {
		if i == m.activeTab {
			parts = append(parts, tabActiveStyle.Render(fmt.Sprintf(" %s ", tab)))
		} else {
			parts = append(parts, tabInactiveStyle.Render(fmt.Sprintf(" %s ", tab)))
		}
	}

	return strings.Join(parts, "│")
}

func (m Model) renderForest() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("FOREST"))
	b.WriteString("\n")

	if len(m.rows) == 0 {
		b.WriteString(dimStyle.Render("  No skeletons. Press [b] to rebuild from transcripts."))
		return b.String()
	}

	maxVisible := m.visibleRows()
	start := m.scroll
	if start >= len(m.rows) {
		start = 0
	}
	end := start + maxVisible
	if end > len(m.rows) {
		end = len(m.rows)
	}

	for i := start; i < end; i++ {
		row := m.rows[i]
		b.WriteString(m.formatRow(row, i == m.selectedRow))
		b.WriteString("\n")
	}

	if len(m.rows) > maxVisible {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  ... showing %d-%d of %d (j/k to scroll)",
			start+1, end, len(m.rows))))
		b.WriteString("\n")
	}

	return strings.TrimSuffix(b.String(), "\n")
}

func (m Model) formatRow(row treeRow, selected bool) string {
	sk := row.skeleton
	indent := strings.Repeat("  ", row.depth)

	var icon string
	var style lipgloss.Style
	switch {
	case sk.IsRootTask:
		icon = "▸"
		style = rootStyle
	case sk.IsReconstructed():
		icon = "~"
		style = reconstructedStyle
	default:
		icon = "•"
		style = declaredStyle
	}

	instruction := sk.TruncatedInstruction
	if instruction == "" {
		instruction = "(no instruction)"
	}
	maxInstr := m.width - len(indent) - 30
	if maxInstr < 20 {
		maxInstr = 20
	}

	line := fmt.Sprintf("  %s%s %-12s %s  %s",
		indent, icon, truncate(sk.TaskID, 12),
		sk.CreatedAt.Format("01-02 15:04"),
		truncate(instruction, maxInstr))

	if selected {
		return selectedStyle.Render("> " + line[2:])
	}
	return style.Render(line)
}

func (m Model) renderRuns() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("RUNS"))
	b.WriteString("\n")

	if len(m.runs) == 0 {
		b.WriteString(dimStyle.Render("  No runs recorded yet"))
		return b.String()
	}

	header := fmt.Sprintf("  %-10s %-16s %8s %9s %9s %10s %9s %6s",
		"Run", "Started", "Records", "Skeletons", "Resolved", "Unresolved", "Ambiguous", "Depth")
	b.WriteString(headerStyle.Render(header))
	b.WriteString("\n")

	maxVisible := m.visibleRows()
	start := m.scroll
	if start >= len(m.runs) {
		start = 0
	}
	end := start + maxVisible
	if end > len(m.runs) {
		end = len(m.runs)
	}

	for i := start; i < end; i++ {
		st := m.runs[i]
		line := fmt.Sprintf("  %-10s %-16s %8d %9d %9d %10d %9d %6d",
			truncate(st.RunID, 10),
			st.StartedAt.Local().Format("01-02 15:04:05"),
			st.TotalRecords,
			st.TotalSkeletons,
			st.ResolvedEdges,
			st.Unresolved,
			st.AmbiguousMatches,
			st.MaxDepth)

		style := declaredStyle
		if st.Unresolved > 0 || st.AmbiguousMatches > 0 {
			style = warningStyle
		}
		if i == m.selectedRow {
			b.WriteString(selectedStyle.Render("> " + line[2:]))
		} else {
			b.WriteString(style.Render(line))
		}
		b.WriteString("\n")

		if i == m.selectedRow {
			b.WriteString(m.renderRunDetail(st))
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

func (m Model) renderRunDetail(st *domain.RunStats) string {
	var b strings.Builder
	b.WriteString(dimStyle.Render(fmt.Sprintf("      duration %s, %d malformed, %d declared, %d invalidated",
		st.Duration().Round(time.Millisecond), st.MalformedRecords, st.DeclaredEdges, st.InvalidatedEdges)))
	b.WriteString("\n")
	if len(st.InvalidatedBy) > 0 {
		var parts []string
		for _, reason := range []domain.Reason{domain.ReasonCycle, domain.ReasonTemporal, domain.ReasonWorkspace, domain.ReasonMissingParent} {
			if n := st.InvalidatedBy[reason]; n > 0 {
				parts = append(parts, fmt.Sprintf("%s: %d", reason, n))
			}
		}
		if len(parts) > 0 {
			b.WriteString(dimStyle.Render("      invalidated by " + strings.Join(parts, ", ")))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
