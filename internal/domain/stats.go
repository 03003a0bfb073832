package domain

import "time"

// RunStats aggregates the outcome of one reconstruction run.
type RunStats struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	// Build phase
	TotalRecords     int
	MalformedRecords int
	TotalSkeletons   int
	IndexedPrefixes  int

	// Re-validate phase
	DeclaredEdges    int
	ValidatedEdges   int
	InvalidatedEdges int
	InvalidatedBy    map[Reason]int

	// Resolve phase
	ResolvedEdges    int
	AmbiguousMatches int
	Unresolved       int

	// WorkspaceRelaxed counts edges admitted despite a workspace
	// mismatch while strict isolation is disabled.
	WorkspaceRelaxed int

	// Finalize
	RootCount int
	MaxDepth  int
}

// NewRunStats returns a RunStats with the reason counter map ready.
func NewRunStats(runID string) *RunStats {
	return &RunStats{
		RunID:         runID,
		StartedAt:     time.Now(),
		InvalidatedBy: make(map[Reason]int),
	}
}

// Duration returns the wall time of the run.
func (s *RunStats) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
