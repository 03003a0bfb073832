package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hochfrequenz/task-forest/internal/domain"
)

func sampleForest() []*domain.Skeleton {
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	return []*domain.Skeleton{
		{TaskID: "root-b", CreatedAt: base.Add(time.Hour), IsRootTask: true,
			TruncatedInstruction: "write release notes"},
		{TaskID: "root-a", CreatedAt: base, IsRootTask: true,
			TruncatedInstruction: "refactor the importer"},
		{TaskID: "child-a1", CreatedAt: base.Add(time.Minute), ParentTaskID: "root-a",
			ReconstructedParentID: "root-a", Depth: 1, TruncatedInstruction: "split the parser"},
		{TaskID: "child-a2", CreatedAt: base.Add(2 * time.Minute), ParentTaskID: "root-a",
			Depth: 1, TruncatedInstruction: "add retry logic"},
		{TaskID: "grandchild", CreatedAt: base.Add(3 * time.Minute), ParentTaskID: "child-a1",
			Depth: 2, TruncatedInstruction: "handle quoting"},
	}
}

func TestFlattenForest(t *testing.T) {
	rows := flattenForest(sampleForest())

	if len(rows) != 5 {
		t.Fatalf("len(rows) = %d, want 5", len(rows))
	}

	// Roots sorted by creation: root-a first, root-b last
	wantOrder := []string{"root-a", "child-a1", "grandchild", "child-a2", "root-b"}
	for i, want := range wantOrder {
		if rows[i].skeleton.TaskID != want {
			t.Errorf("rows[%d] = %s, want %s", i, rows[i].skeleton.TaskID, want)
		}
	}

	// Depth follows nesting
	if rows[0].depth != 0 {
		t.Errorf("root-a depth = %d, want 0", rows[0].depth)
	}
	if rows[1].depth != 1 {
		t.Errorf("child-a1 depth = %d, want 1", rows[1].depth)
	}
	if rows[2].depth != 2 {
		t.Errorf("grandchild depth = %d, want 2", rows[2].depth)
	}
}

func TestNewModel(t *testing.T) {
	model := NewModel(ModelConfig{Skeletons: sampleForest()})

	if len(model.skeletons) != 5 {
		t.Errorf("skeletons count = %d, want 5", len(model.skeletons))
	}
	if len(model.rows) != 5 {
		t.Errorf("rows count = %d, want 5", len(model.rows))
	}
	if model.activeTab != 0 {
		t.Errorf("activeTab = %d, want 0", model.activeTab)
	}
}

func TestModel_TabSwitching(t *testing.T) {
	model := NewModel(ModelConfig{Skeletons: sampleForest()})
	model.width = 100
	model.height = 40

	newModel, _ := model.Update(tea.KeyMsg{Type: tea.KeyTab})
	model = newModel.(Model)

	if model.activeTab != 1 {
		t.Errorf("after tab: activeTab = %d, want 1", model.activeTab)
	}

	newModel, _ = model.Update(tea.KeyMsg{Type: tea.KeyTab})
	model = newModel.(Model)

	if model.activeTab != 0 {
		t.Errorf("after second tab: activeTab = %d, want 0 (wrapped)", model.activeTab)
	}
}

func TestModel_Navigation(t *testing.T) {
	model := NewModel(ModelConfig{Skeletons: sampleForest()})
	model.width = 100
	model.height = 40

	newModel, _ := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	model = newModel.(Model)

	if model.selectedRow != 1 {
		t.Errorf("after j: selectedRow = %d, want 1", model.selectedRow)
	}

	newModel, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("k")})
	model = newModel.(Model)

	if model.selectedRow != 0 {
		t.Errorf("after k: selectedRow = %d, want 0", model.selectedRow)
	}

	// k at the top stays at 0
	newModel, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("k")})
	model = newModel.(Model)

	if model.selectedRow != 0 {
		t.Errorf("k at top: selectedRow = %d, want 0", model.selectedRow)
	}

	// G jumps to last row
	newModel, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("G")})
	model = newModel.(Model)

	if model.selectedRow != 4 {
		t.Errorf("after G: selectedRow = %d, want 4", model.selectedRow)
	}

	// g jumps back to top
	newModel, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("g")})
	model = newModel.(Model)

	if model.selectedRow != 0 {
		t.Errorf("after g: selectedRow = %d, want 0", model.selectedRow)
	}
}

func TestModel_QuitCommands(t *testing.T) {
	model := NewModel(ModelConfig{})
	model.width = 100
	model.height = 40

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Error("'q' should return a quit command")
	}

	_, cmd = model.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Error("ctrl+c should return a quit command")
	}
}

func TestModel_WindowResize(t *testing.T) {
	model := NewModel(ModelConfig{})

	newModel, _ := model.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	model = newModel.(Model)

	if model.width != 120 {
		t.Errorf("width = %d, want 120", model.width)
	}
	if model.height != 40 {
		t.Errorf("height = %d, want 40", model.height)
	}
}

func TestModel_ReloadMsg(t *testing.T) {
	model := NewModel(ModelConfig{})
	model.width = 100
	model.height = 40

	newModel, _ := model.Update(ReloadMsg{Skeletons: sampleForest()})
	model = newModel.(Model)

	if len(model.rows) != 5 {
		t.Errorf("rows = %d, want 5 after reload", len(model.rows))
	}

	newModel, _ = model.Update(ReloadMsg{Err: errors.New("db locked")})
	model = newModel.(Model)

	if model.statusMsg != "Reload failed: db locked" {
		t.Errorf("statusMsg = %q", model.statusMsg)
	}
	// Previous data survives a failed reload
	if len(model.rows) != 5 {
		t.Errorf("rows = %d, want 5 after failed reload", len(model.rows))
	}
}

func TestModel_RebuildKey(t *testing.T) {
	stats := domain.NewRunStats("run-1")
	stats.TotalSkeletons = 5
	stats.ResolvedEdges = 3

	model := NewModel(ModelConfig{
		Rebuild: func() (*domain.RunStats, error) { return stats, nil },
	})
	model.width = 100
	model.height = 40

	newModel, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("b")})
	model = newModel.(Model)

	if !model.rebuilding {
		t.Error("rebuilding should be true after 'b'")
	}
	if cmd == nil {
		t.Fatal("'b' should return a rebuild command")
	}

	msg := cmd()
	done, ok := msg.(RebuildDoneMsg)
	if !ok {
		t.Fatalf("cmd returned %T, want RebuildDoneMsg", msg)
	}
	if done.Stats.RunID != "run-1" {
		t.Errorf("RunID = %q, want run-1", done.Stats.RunID)
	}

	newModel, _ = model.Update(done)
	model = newModel.(Model)

	if model.rebuilding {
		t.Error("rebuilding should be false after RebuildDoneMsg")
	}
	if model.statusMsg != "Rebuild complete: 5 skeletons, 3 resolved, 0 unresolved" {
		t.Errorf("statusMsg = %q", model.statusMsg)
	}
}

func TestModel_RebuildKeyWithoutRebuilder(t *testing.T) {
	model := NewModel(ModelConfig{})
	model.width = 100
	model.height = 40

	newModel, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("b")})
	model = newModel.(Model)

	if model.rebuilding {
		t.Error("rebuilding should stay false without a rebuild source")
	}
	if cmd != nil {
		t.Error("'b' without a rebuild source should not return a command")
	}
}

func TestModel_TickMsgSchedulesNextTick(t *testing.T) {
	model := NewModel(ModelConfig{})
	model.width = 100
	model.height = 40

	_, cmd := model.Update(TickMsg(time.Now()))
	if cmd == nil {
		t.Error("TickMsg should return a command for the next tick")
	}
}

func TestModel_View(t *testing.T) {
	model := NewModel(ModelConfig{Skeletons: sampleForest()})
	model.width = 100
	model.height = 40

	out := model.View()
	if out == "" {
		t.Fatal("View should render content")
	}
	if !containsAll(out, "Task Forest", "Forest", "Runs", "root-a") {
		t.Errorf("View output missing expected content:\n%s", out)
	}

	// Zero width renders the loading placeholder
	model.width = 0
	if model.View() != "Loading..." {
		t.Error("zero-width View should render Loading...")
	}
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
