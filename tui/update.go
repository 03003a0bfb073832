package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hochfrequenz/task-forest/internal/domain"
)

// ReloadMsg carries fresh data from the store
type ReloadMsg struct {
	Skeletons []*domain.Skeleton
	Runs      []*domain.RunStats
	Err       error
}

// RebuildDoneMsg is sent when a triggered rebuild finishes
type RebuildDoneMsg struct {
	Stats *domain.RunStats
	Err   error
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.activeTab = (m.activeTab + 1) % 2
			m.scroll = 0
			m.selectedRow = 0
		case "j", "down":
			if m.selectedRow < m.rowCount()-1 {
				m.selectedRow++
			}
			if m.selectedRow >= m.scroll+m.visibleRows() {
				m.scroll = m.selectedRow - m.visibleRows() + 1
			}
		case "k", "up":
			if m.selectedRow > 0 {
				m.selectedRow--
			}
			if m.selectedRow < m.scroll {
				m.scroll = m.selectedRow
			}
		case "g":
			m.selectedRow = 0
			m.scroll = 0
		case "G":
			m.selectedRow = m.rowCount() - 1
			if m.selectedRow < 0 {
				m.selectedRow = 0
			}
			m.scroll = m.selectedRow - m.visibleRows() + 1
			if m.scroll < 0 {
				m.scroll = 0
			}
		case "r":
			return m, m.reloadCmd()
		case "b":
			if m.rebuild != nil && !m.rebuilding {
				m.rebuilding = true
				m.statusMsg = "Rebuilding forest..."
				return m, m.rebuildCmd()
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case TickMsg:
		m.lastRefresh = time.Time(msg)
		return m, tea.Batch(tickCmd(), m.reloadCmd())

	case ReloadMsg:
		if msg.Err != nil {
			m.statusMsg = "Reload failed: " + msg.Err.Error()
			return m, nil
		}
		m.skeletons = msg.Skeletons
		m.runs = msg.Runs
		m.rows = flattenForest(msg.Skeletons)
		if m.selectedRow >= m.rowCount() {
			m.selectedRow = m.rowCount() - 1
			if m.selectedRow < 0 {
				m.selectedRow = 0
			}
		}
		return m, nil

	case RebuildDoneMsg:
		m.rebuilding = false
		if msg.Err != nil {
			m.statusMsg = "Rebuild failed: " + msg.Err.Error()
			return m, nil
		}
		m.statusMsg = fmt.Sprintf("Rebuild complete: %d skeletons, %d resolved, %d unresolved",
			msg.Stats.TotalSkeletons, msg.Stats.ResolvedEdges, msg.Stats.Unresolved)
		return m, m.reloadCmd()
	}

	return m, nil
}

func (m Model) rowCount() int {
	if m.activeTab == 1 {
		return len(m.runs)
	}
	return len(m.rows)
}

func (m Model) visibleRows() int {
	if m.height > 10 {
		return m.height - 8
	}
	return 15
}

func (m Model) reloadCmd() tea.Cmd {
	if m.reload == nil {
		return nil
	}
	reload := m.reload
	return func() tea.Msg {
		skeletons, runs, err := reload()
		return ReloadMsg{Skeletons: skeletons, Runs: runs, Err: err}
	}
}

func (m Model) rebuildCmd() tea.Cmd {
	rebuild := m.rebuild
	return func() tea.Msg {
		stats, err := rebuild()
		return RebuildDoneMsg{Stats: stats, Err: err}
	}
}
