package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherBatchesJSONLChanges(t *testing.T) {
	dir := t.TempDir()
	project := filepath.Join(dir, "project-a")
	if err := os.Mkdir(project, 0o755); err != nil {
		t.Fatal(err)
	}

	changed := make(chan []string, 1)
	w, err := New(dir, func(files []string) {
		select {
		case changed <- files:
		default:
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	w.SetDebounce(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	session := filepath.Join(project, "session-1.jsonl")
	if err := os.WriteFile(session, []byte(`{"type":"user"}`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Non-transcript files are ignored
	if err := os.WriteFile(filepath.Join(project, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case files := <-changed:
		if len(files) != 1 {
			t.Fatalf("changed files = %v, want exactly the session file", files)
		}
		if files[0] != session {
			t.Errorf("changed file = %s, want %s", files[0], session)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for change callback")
	}
}

func TestWatcherPicksUpNewProjectDirs(t *testing.T) {
	dir := t.TempDir()

	changed := make(chan []string, 1)
	w, err := New(dir, func(files []string) {
		select {
		case changed <- files:
		default:
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	w.SetDebounce(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	// Directory created after the watcher started
	project := filepath.Join(dir, "project-b")
	if err := os.Mkdir(project, 0o755); err != nil {
		t.Fatal(err)
	}
	// Give the watcher a moment to register the new directory
	time.Sleep(200 * time.Millisecond)

	session := filepath.Join(project, "session-2.jsonl")
	if err := os.WriteFile(session, []byte(`{"type":"user"}`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case files := <-changed:
		if files[0] != session {
			t.Errorf("changed file = %s, want %s", files[0], session)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for change callback")
	}
}
