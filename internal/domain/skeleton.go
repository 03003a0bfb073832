package domain

import "time"

// Skeleton is the in-memory representation of one task record during
// forest reconstruction. It is created once per run from immutable raw
// input; only the parent link, depth and root fields are mutated, and
// only by the reconstruction phases.
type Skeleton struct {
	TaskID       string
	CreatedAt    time.Time
	LastActivity time.Time

	// Workspace is the isolation boundary (project/repo). Two tasks with
	// different non-empty workspaces may never be linked.
	Workspace string

	// TruncatedInstruction is the normalized prefix of this task's own
	// opening instruction, used as the search key when this skeleton
	// looks for its parent.
	TruncatedInstruction string

	// ChildInstructionPrefixes holds one normalized prefix per sub-task
	// this record's transcript declares having spawned, in transcript
	// order. Other skeletons find this one as their parent through them.
	ChildInstructionPrefixes []string

	// ParentTaskID is the current parent link: either inherited verbatim
	// from the raw record, or committed by the resolve phase.
	ParentTaskID string

	// ReconstructedParentID is set only when the resolve phase inferred
	// the parent via prefix matching, so callers can tell declared and
	// reconstructed edges apart.
	ReconstructedParentID string

	// Depth and IsRootTask are derived after the forest is finalized.
	Depth      int
	IsRootTask bool
}

// HasParent reports whether the skeleton currently has a parent link.
func (s *Skeleton) HasParent() bool {
	return s.ParentTaskID != ""
}

// IsReconstructed reports whether the current parent link was inferred
// by prefix matching rather than declared by the raw record.
func (s *Skeleton) IsReconstructed() bool {
	return s.ReconstructedParentID != "" && s.ReconstructedParentID == s.ParentTaskID
}

// ClearParent demotes the skeleton to parentless.
func (s *Skeleton) ClearParent() {
	s.ParentTaskID = ""
	s.ReconstructedParentID = ""
}
