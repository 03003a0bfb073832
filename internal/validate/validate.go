// Package validate decides whether a parent/child edge is admissible.
// Every decision is emitted as a typed trace event with a reason code,
// so matching behavior stays auditable without debug prints scattered
// through the logic.
package validate

import (
	"time"

	"github.com/hochfrequenz/task-forest/internal/domain"
)

// Event is one validation decision.
type Event struct {
	Phase    string        `json:"phase"`
	ChildID  string        `json:"child_id"`
	ParentID string        `json:"parent_id"`
	Admitted bool          `json:"admitted"`
	Reason   domain.Reason `json:"reason,omitempty"`
	Relaxed  bool          `json:"relaxed,omitempty"`
}

// EventFunc consumes trace events. A nil EventFunc disables tracing.
type EventFunc func(Event)

// Result is the outcome of validating one candidate edge.
type Result struct {
	Admissible bool
	Reason     domain.Reason

	// Relaxed is true when the edge carries a workspace mismatch that
	// was admitted because strict isolation is disabled.
	Relaxed bool
}

// Engine validates candidate and declared edges against the loaded
// skeleton set.
type Engine struct {
	skeletons map[string]*domain.Skeleton
	tolerance time.Duration
	strict    bool
	trace     EventFunc
}

// NewEngine creates an Engine over the given skeletons, keyed by task
// id. tolerance absorbs writer clock skew in the temporal check; strict
// controls workspace isolation.
func NewEngine(skeletons map[string]*domain.Skeleton, tolerance time.Duration, strict bool, trace EventFunc) *Engine {
	return &Engine{
		skeletons: skeletons,
		tolerance: tolerance,
		strict:    strict,
		trace:     trace,
	}
}

// Validate checks a candidate edge in fixed order: cycle, temporal,
// workspace. The first failure wins.
func (e *Engine) Validate(phase string, parent, child *domain.Skeleton) Result {
	res := e.check(parent, child)
	e.emit(Event{
		Phase:    phase,
		ChildID:  child.TaskID,
		ParentID: parent.TaskID,
		Admitted: res.Admissible,
		Reason:   res.Reason,
		Relaxed:  res.Relaxed,
	})
	return res
}

// Revalidate re-confirms a declared edge. A dangling parent reference
// counts as invalid. Any failure demotes the child to parentless: an
// invalid declared edge is strictly worse than no edge, because a stale
// pointer would poison depth and ancestry computations silently.
func (e *Engine) Revalidate(child *domain.Skeleton) Result {
	parent, ok := e.skeletons[child.ParentTaskID]
	if !ok {
		child.ClearParent()
		res := Result{Admissible: false, Reason: domain.ReasonMissingParent}
		e.emit(Event{
			Phase:   "revalidate",
			ChildID: child.TaskID,
			Reason:  res.Reason,
		})
		return res
	}

	res := e.Validate("revalidate", parent, child)
	if !res.Admissible {
		child.ClearParent()
	}
	return res
}

func (e *Engine) check(parent, child *domain.Skeleton) Result {
	if e.isCycle(parent, child) {
		return Result{Reason: domain.ReasonCycle}
	}
	if !e.temporalOK(parent, child) {
		return Result{Reason: domain.ReasonTemporal}
	}
	if !workspaceMatch(parent, child) {
		if e.strict {
			return Result{Reason: domain.ReasonWorkspace}
		}
		return Result{Admissible: true, Relaxed: true}
	}
	return Result{Admissible: true}
}

// isCycle walks the candidate parent's current ancestor chain looking
// for the child. The visited set bounds the walk even if the existing
// chain is already corrupt.
func (e *Engine) isCycle(parent, child *domain.Skeleton) bool {
	if parent.TaskID == child.TaskID {
		return true
	}
	visited := make(map[string]bool)
	for cur := parent; cur != nil && cur.ParentTaskID != ""; {
		if visited[cur.TaskID] {
			return true
		}
		visited[cur.TaskID] = true

		next, ok := e.skeletons[cur.ParentTaskID]
		if !ok {
			return false
		}
		if next.TaskID == child.TaskID {
			return true
		}
		cur = next
	}
	return false
}

// TemporalOK reports whether parent/child creation times are causally
// ordered within tolerance. Exported for the resolve phase tie-break,
// which must exclude temporally impossible candidates before comparing
// proximity.
func (e *Engine) TemporalOK(parent, child *domain.Skeleton) bool {
	return e.temporalOK(parent, child)
}

func (e *Engine) temporalOK(parent, child *domain.Skeleton) bool {
	if parent.CreatedAt.IsZero() || child.CreatedAt.IsZero() {
		return true
	}
	return !parent.CreatedAt.After(child.CreatedAt.Add(e.tolerance))
}

func workspaceMatch(parent, child *domain.Skeleton) bool {
	if parent.Workspace == "" || child.Workspace == "" {
		return true
	}
	return parent.Workspace == child.Workspace
}

// WorkspaceMatches reports whether the candidate's workspace equals the
// child's. Used by the resolve phase tie-break to prefer same-workspace
// candidates.
func WorkspaceMatches(candidate, child *domain.Skeleton) bool {
	return candidate.Workspace != "" && candidate.Workspace == child.Workspace
}

func (e *Engine) emit(ev Event) {
	if e.trace != nil {
		e.trace(ev)
	}
}
