package foreststore

import (
	"testing"
	"time"

	"github.com/hochfrequenz/task-forest/internal/domain"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleForest(base time.Time) []*domain.Skeleton {
	return []*domain.Skeleton{
		{
			TaskID:                   "root-1",
			CreatedAt:                base,
			LastActivity:             base.Add(time.Hour),
			Workspace:                "/work/alpha",
			TruncatedInstruction:     "refactor the importer",
			ChildInstructionPrefixes: []string{"split the csv parser", "add retry logic"},
			IsRootTask:               true,
		},
		{
			TaskID:                "child-1",
			CreatedAt:             base.Add(time.Minute),
			LastActivity:          base.Add(2 * time.Minute),
			Workspace:             "/work/alpha",
			TruncatedInstruction:  "split the csv parser",
			ParentTaskID:          "root-1",
			ReconstructedParentID: "root-1",
			Depth:                 1,
		},
		{
			TaskID:               "root-2",
			CreatedAt:            base.Add(time.Hour),
			Workspace:            "/work/beta",
			TruncatedInstruction: "write release notes",
			IsRootTask:           true,
		},
	}
}

func TestReplaceForestAndList(t *testing.T) {
	s := testStore(t)
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	if err := s.ReplaceForest("run-1", sampleForest(base)); err != nil {
		t.Fatalf("ReplaceForest failed: %v", err)
	}

	all, err := s.ListSkeletons(ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("len(all) = %d, want 3", len(all))
	}
	if all[0].TaskID != "root-1" {
		t.Errorf("first skeleton = %s, want root-1 (created_at order)", all[0].TaskID)
	}

	roots, err := s.ListSkeletons(ListOptions{RootsOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(roots) != 2 {
		t.Errorf("len(roots) = %d, want 2", len(roots))
	}

	alpha, err := s.ListSkeletons(ListOptions{Workspace: "/work/alpha"})
	if err != nil {
		t.Fatal(err)
	}
	if len(alpha) != 2 {
		t.Errorf("len(alpha) = %d, want 2", len(alpha))
	}
}

func TestReplaceForestIsFullSwap(t *testing.T) {
	s := testStore(t)
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	if err := s.ReplaceForest("run-1", sampleForest(base)); err != nil {
		t.Fatal(err)
	}

	replacement := []*domain.Skeleton{
		{TaskID: "only-one", CreatedAt: base, IsRootTask: true},
	}
	if err := s.ReplaceForest("run-2", replacement); err != nil {
		t.Fatal(err)
	}

	all, err := s.ListSkeletons(ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Fatalf("len(all) = %d, want 1 after swap", len(all))
	}
	if all[0].TaskID != "only-one" {
		t.Errorf("TaskID = %s, want only-one", all[0].TaskID)
	}
}

func TestGetSkeleton(t *testing.T) {
	s := testStore(t)
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	if err := s.ReplaceForest("run-1", sampleForest(base)); err != nil {
		t.Fatal(err)
	}

	sk, err := s.GetSkeleton("child-1")
	if err != nil {
		t.Fatal(err)
	}
	if sk == nil {
		t.Fatal("GetSkeleton returned nil for existing task")
	}
	if sk.ParentTaskID != "root-1" {
		t.Errorf("ParentTaskID = %q, want root-1", sk.ParentTaskID)
	}
	if sk.ReconstructedParentID != "root-1" {
		t.Errorf("ReconstructedParentID = %q, want root-1", sk.ReconstructedParentID)
	}
	if sk.Depth != 1 {
		t.Errorf("Depth = %d, want 1", sk.Depth)
	}

	missing, err := s.GetSkeleton("nope")
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Error("GetSkeleton should return nil for missing task")
	}
}

func TestChildPrefixesRoundTrip(t *testing.T) {
	s := testStore(t)
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	if err := s.ReplaceForest("run-1", sampleForest(base)); err != nil {
		t.Fatal(err)
	}

	sk, err := s.GetSkeleton("root-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(sk.ChildInstructionPrefixes) != 2 {
		t.Fatalf("len(ChildInstructionPrefixes) = %d, want 2", len(sk.ChildInstructionPrefixes))
	}
	if sk.ChildInstructionPrefixes[0] != "split the csv parser" {
		t.Errorf("prefix[0] = %q", sk.ChildInstructionPrefixes[0])
	}
}

func TestListChildren(t *testing.T) {
	s := testStore(t)
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	if err := s.ReplaceForest("run-1", sampleForest(base)); err != nil {
		t.Fatal(err)
	}

	children, err := s.ListChildren("root-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(children) != 1 {
		t.Fatalf("len(children) = %d, want 1", len(children))
	}
	if children[0].TaskID != "child-1" {
		t.Errorf("child = %s, want child-1", children[0].TaskID)
	}

	none, err := s.ListChildren("root-2")
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Errorf("len(children of root-2) = %d, want 0", len(none))
	}
}

func TestSaveAndListRuns(t *testing.T) {
	s := testStore(t)

	st := domain.NewRunStats("run-1")
	st.TotalRecords = 10
	st.MalformedRecords = 1
	st.TotalSkeletons = 9
	st.ResolvedEdges = 5
	st.Unresolved = 2
	st.InvalidatedBy = map[domain.Reason]int{domain.ReasonTemporal: 2}
	st.FinishedAt = st.StartedAt.Add(time.Second)

	if err := s.SaveRun(st); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	st2 := domain.NewRunStats("run-2")
	st2.StartedAt = st.StartedAt.Add(time.Minute)
	st2.FinishedAt = st2.StartedAt.Add(time.Second)
	if err := s.SaveRun(st2); err != nil {
		t.Fatal(err)
	}

	runs, err := s.ListRuns(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("len(runs) = %d, want 2", len(runs))
	}
	if runs[0].RunID != "run-2" {
		t.Errorf("newest run = %s, want run-2", runs[0].RunID)
	}
	if runs[1].TotalRecords != 10 {
		t.Errorf("TotalRecords = %d, want 10", runs[1].TotalRecords)
	}
	if runs[1].InvalidatedBy[domain.ReasonTemporal] != 2 {
		t.Errorf("InvalidatedBy[temporal] = %d, want 2", runs[1].InvalidatedBy[domain.ReasonTemporal])
	}
}

func TestPruneRuns(t *testing.T) {
	s := testStore(t)

	old := domain.NewRunStats("run-old")
	old.StartedAt = time.Now().Add(-48 * time.Hour)
	if err := s.SaveRun(old); err != nil {
		t.Fatal(err)
	}
	recent := domain.NewRunStats("run-recent")
	if err := s.SaveRun(recent); err != nil {
		t.Fatal(err)
	}

	n, err := s.PruneRuns(time.Now().Add(-24 * time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("pruned = %d, want 1", n)
	}

	runs, err := s.ListRuns(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].RunID != "run-recent" {
		t.Errorf("remaining runs = %v", runs)
	}
}
