package extract

import (
	"errors"
	"testing"
	"time"

	"github.com/hochfrequenz/task-forest/internal/record"
)

// fakeRecord implements record.Record for tests.
type fakeRecord struct {
	id       string
	created  time.Time
	last     time.Time
	ws       string
	own      string
	children []string
	parent   string
}

func (f *fakeRecord) ID() string                          { return f.id }
func (f *fakeRecord) CreatedAt() time.Time                { return f.created }
func (f *fakeRecord) LastActivity() time.Time             { return f.last }
func (f *fakeRecord) Workspace() string                   { return f.ws }
func (f *fakeRecord) OwnInstruction() string              { return f.own }
func (f *fakeRecord) DeclaredChildInstructions() []string { return f.children }
func (f *fakeRecord) DeclaredParentID() string            { return f.parent }

var _ record.Record = (*fakeRecord)(nil)

func TestSkeleton(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rec := &fakeRecord{
		id:       "sess-1",
		created:  now,
		last:     now.Add(time.Minute),
		ws:       "/home/dev/proj",
		own:      "  Build the   REPORT  ",
		children: []string{"Write Unit Tests", "   ", "deploy it"},
		parent:   "sess-0",
	}

	s, err := Skeleton(rec, 192)
	if err != nil {
		t.Fatal(err)
	}

	if s.TaskID != "sess-1" {
		t.Errorf("TaskID = %q", s.TaskID)
	}
	if s.TruncatedInstruction != "build the report" {
		t.Errorf("TruncatedInstruction = %q", s.TruncatedInstruction)
	}
	if s.ParentTaskID != "sess-0" {
		t.Errorf("ParentTaskID = %q", s.ParentTaskID)
	}
	// The whitespace-only child must be dropped, not indexed as "".
	want := []string{"write unit tests", "deploy it"}
	if len(s.ChildInstructionPrefixes) != len(want) {
		t.Fatalf("ChildInstructionPrefixes = %v, want %v", s.ChildInstructionPrefixes, want)
	}
	for i := range want {
		if s.ChildInstructionPrefixes[i] != want[i] {
			t.Errorf("ChildInstructionPrefixes[%d] = %q, want %q", i, s.ChildInstructionPrefixes[i], want[i])
		}
	}
}

func TestSkeleton_MissingID(t *testing.T) {
	rec := &fakeRecord{created: time.Now()}
	_, err := Skeleton(rec, 192)
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("err = %v, want ErrMalformed", err)
	}
}

func TestSkeleton_MissingTimestamp(t *testing.T) {
	rec := &fakeRecord{id: "sess-1"}
	_, err := Skeleton(rec, 192)
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("err = %v, want ErrMalformed", err)
	}
}

func TestSkeleton_LastActivityDefaultsToCreated(t *testing.T) {
	now := time.Now()
	rec := &fakeRecord{id: "sess-1", created: now}
	s, err := Skeleton(rec, 192)
	if err != nil {
		t.Fatal(err)
	}
	if !s.LastActivity.Equal(now) {
		t.Errorf("LastActivity = %v, want %v", s.LastActivity, now)
	}
}
