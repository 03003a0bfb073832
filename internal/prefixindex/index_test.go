package prefixindex

import (
	"reflect"
	"testing"
)

func TestIndex_InsertAndLookup(t *testing.T) {
	ix := New()
	ix.Insert("build the report", "task-a")

	got := ix.Lookup("build the report")
	if !reflect.DeepEqual(got, []string{"task-a"}) {
		t.Errorf("Lookup = %v, want [task-a]", got)
	}
}

func TestIndex_ExactMatchOnly(t *testing.T) {
	ix := New()
	ix.Insert("build the report", "task-a")

	if got := ix.Lookup("build the"); got != nil {
		t.Errorf("partial prefix matched: %v", got)
	}
	if got := ix.Lookup("build the report now"); got != nil {
		t.Errorf("superstring matched: %v", got)
	}
}

func TestIndex_CollisionsRetained(t *testing.T) {
	ix := New()
	ix.Insert("fix the tests", "task-a")
	ix.Insert("fix the tests", "task-b")

	got := ix.Lookup("fix the tests")
	want := []string{"task-a", "task-b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Lookup = %v, want %v", got, want)
	}
}

func TestIndex_DuplicateOwnerDeduped(t *testing.T) {
	ix := New()
	ix.Insert("fix the tests", "task-a")
	ix.Insert("fix the tests", "task-a")

	if got := ix.Lookup("fix the tests"); len(got) != 1 {
		t.Errorf("Lookup = %v, want single owner", got)
	}
}

func TestIndex_EmptyPrefixNeverMatches(t *testing.T) {
	ix := New()
	ix.Insert("", "task-a")

	if got := ix.Lookup(""); got != nil {
		t.Errorf("empty prefix matched: %v", got)
	}
	if ix.Len() != 0 {
		t.Errorf("Len = %d, want 0", ix.Len())
	}
}

func TestIndex_Clear(t *testing.T) {
	ix := New()
	ix.Insert("a", "task-a")
	ix.Insert("b", "task-b")

	ix.Clear()

	if ix.Len() != 0 {
		t.Errorf("Len after Clear = %d, want 0", ix.Len())
	}
	if got := ix.Lookup("a"); got != nil {
		t.Errorf("Lookup after Clear = %v, want nil", got)
	}
}

func TestIndex_LookupReturnsCopy(t *testing.T) {
	ix := New()
	ix.Insert("a", "task-a")

	got := ix.Lookup("a")
	got[0] = "mutated"

	if again := ix.Lookup("a"); again[0] != "task-a" {
		t.Error("Lookup result aliases internal state")
	}
}
