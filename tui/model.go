package tui

import (
	"sort"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hochfrequenz/task-forest/internal/domain"
)

// Model is the TUI application model
type Model struct {
	// Data
	skeletons []*domain.Skeleton
	runs      []*domain.RunStats
	rows      []treeRow

	// Data sources
	reload  func() ([]*domain.Skeleton, []*domain.RunStats, error)
	rebuild func() (*domain.RunStats, error)

	// UI state
	width       int
	height      int
	activeTab   int
	scroll      int
	selectedRow int
	statusMsg   string
	rebuilding  bool

	lastRefresh time.Time
}

// treeRow is one visible line of the flattened forest
type treeRow struct {
	skeleton *domain.Skeleton
	depth    int
}

// ModelConfig holds initial data for the TUI model
type ModelConfig struct {
	Skeletons []*domain.Skeleton
	Runs      []*domain.RunStats

	// Reload fetches fresh data from the store. Optional.
	Reload func() ([]*domain.Skeleton, []*domain.RunStats, error)

	// Rebuild triggers a full reconstruction run. Optional.
	Rebuild func() (*domain.RunStats, error)
}

// NewModel creates a new TUI model
func NewModel(cfg ModelConfig) Model {
	m := Model{
		skeletons: cfg.Skeletons,
		runs:      cfg.Runs,
		reload:    cfg.Reload,
		rebuild:   cfg.Rebuild,
		activeTab: 0,
	}
	m.rows = flattenForest(cfg.Skeletons)
	return m
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// TickMsg triggers a refresh
type TickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// flattenForest orders roots by creation time and walks each tree
// depth-first so children render under their parent.
func flattenForest(skeletons []*domain.Skeleton) []treeRow {
	children := make(map[string][]*domain.Skeleton)
	var roots []*domain.Skeleton

	for _, sk := range skeletons {
		if sk.HasParent() {
			children[sk.ParentTaskID] = append(children[sk.ParentTaskID], sk)
		} else {
			roots = append(roots, sk)
		}
	}

	byCreation := func(list []*domain.Skeleton) {
		sort.Slice(list, func(i, j int) bool {
			if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
				return list[i].CreatedAt.Before(list[j].CreatedAt)
			}
			return list[i].TaskID < list[j].TaskID
		})
	}

	byCreation(roots)
	for _, list := range children {
		byCreation(list)
	}

	var rows []treeRow
	var walk func(sk *domain.Skeleton, depth int)
	walk = func(sk *domain.Skeleton, depth int) {
		rows = append(rows, treeRow{skeleton: sk, depth: depth})
		for _, child := range children[sk.TaskID] {
			walk(child, depth+1)
		}
	}
	for _, root := range roots {
		walk(root, 0)
	}

	return rows
}
