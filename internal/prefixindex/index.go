// Package prefixindex provides the exact-match lookup structure from
// normalized instruction prefix to owning task id. The index is owned
// by a single reconstruction run: it is built during the build phase,
// read during resolve, and cleared before any reuse. It is never a
// process-wide static.
package prefixindex

import "sync"

// Index maps a normalized prefix to the task ids that declared it as a
// sub-task instruction. Collisions are retained, never overwritten:
// lookup returns all owners so the caller can treat the match as
// ambiguous.
type Index struct {
	owners map[string][]string
	mu     sync.RWMutex
}

// New returns an empty Index.
func New() *Index {
	return &Index{owners: make(map[string][]string)}
}

// Insert adds an index entry. Empty prefixes are ignored. Inserting the
// same prefix/owner pair twice is a no-op; a second distinct owner is
// appended in insertion order.
func (ix *Index) Insert(prefix, ownerTaskID string) {
	if prefix == "" || ownerTaskID == "" {
		return
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for _, id := range ix.owners[prefix] {
		if id == ownerTaskID {
			return
		}
	}
	ix.owners[prefix] = append(ix.owners[prefix], ownerTaskID)
}

// Lookup returns the owner ids for an exact prefix match, in insertion
// order. Empty prefixes never match. The returned slice is a copy.
func (ix *Index) Lookup(prefix string) []string {
	if prefix == "" {
		return nil
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	found := ix.owners[prefix]
	if len(found) == 0 {
		return nil
	}
	out := make([]string, len(found))
	copy(out, found)
	return out
}

// Clear resets the index to empty.
func (ix *Index) Clear() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.owners = make(map[string][]string)
}

// Len returns the number of distinct prefixes held.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.owners)
}
