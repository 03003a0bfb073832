// Package reconstruct rebuilds the parent/child task forest from raw
// records in three fixed phases: build, re-validate, resolve. A run
// either completes all three or fails wholesale; partial results are
// never a valid forest.
package reconstruct

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hochfrequenz/task-forest/internal/domain"
	"github.com/hochfrequenz/task-forest/internal/extract"
	"github.com/hochfrequenz/task-forest/internal/normalize"
	"github.com/hochfrequenz/task-forest/internal/prefixindex"
	"github.com/hochfrequenz/task-forest/internal/record"
	"github.com/hochfrequenz/task-forest/internal/validate"
)

// ErrCycleDetected signals a cycle surviving into depth computation.
// The resolve phases only commit cycle-checked edges, so this firing
// means a defect in the validation engine itself; the run is aborted
// rather than returning a forest that cannot be trusted.
var ErrCycleDetected = errors.New("cycle detected at finalize")

// Orchestrator drives one reconstruction run. The prefix index is owned
// by the orchestrator for the duration of the run and cleared at the
// end; it is never shared across runs.
type Orchestrator struct {
	opts  Options
	index *prefixindex.Index

	skeletons []*domain.Skeleton
	byID      map[string]*domain.Skeleton
	engine    *validate.Engine
	stats     *domain.RunStats
}

// New creates an Orchestrator with the given options.
func New(opts Options) *Orchestrator {
	if opts.MaxPrefixLength <= 0 {
		opts.MaxPrefixLength = normalize.DefaultMaxLen
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = 1
	}
	return &Orchestrator{
		opts:  opts,
		index: prefixindex.New(),
	}
}

// Run executes the three phases over the corpus and returns the
// finalized skeletons (mutated in place) plus run statistics. On
// ErrCycleDetected no forest is returned.
func (o *Orchestrator) Run(records []record.Record) ([]*domain.Skeleton, *domain.RunStats, error) {
	o.stats = domain.NewRunStats(uuid.NewString())
	o.index.Clear()
	defer o.index.Clear()

	if err := o.buildPhase(records); err != nil {
		return nil, nil, fmt.Errorf("build phase: %w", err)
	}

	o.engine = validate.NewEngine(o.byID, o.opts.TemporalTolerance, o.opts.StrictWorkspaceIsolation, o.opts.Trace)

	o.revalidatePhase()
	o.resolvePhase()

	if err := o.finalize(); err != nil {
		return nil, nil, err
	}

	o.stats.FinishedAt = time.Now()
	return o.skeletons, o.stats, nil
}

// buildPhase extracts skeletons (in parallel, records are independent)
// and populates the prefix index. Index insertion happens after the
// fan-out completes, in deterministic order.
func (o *Orchestrator) buildPhase(records []record.Record) error {
	o.stats.TotalRecords = len(records)

	extracted := make([]*domain.Skeleton, len(records))
	malformed := make([]bool, len(records))

	var g errgroup.Group
	g.SetLimit(o.opts.Parallelism)
	for i, rec := range records {
		g.Go(func() error {
			s, err := extract.Skeleton(rec, o.opts.MaxPrefixLength)
			if err != nil {
				if errors.Is(err, extract.ErrMalformed) {
					malformed[i] = true
					return nil
				}
				return err
			}
			extracted[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	o.byID = make(map[string]*domain.Skeleton)
	for i, s := range extracted {
		if malformed[i] {
			o.stats.MalformedRecords++
			continue
		}
		if s == nil {
			continue
		}
		if _, dup := o.byID[s.TaskID]; dup {
			// Duplicate record ids are treated as malformed input.
			o.stats.MalformedRecords++
			continue
		}
		o.byID[s.TaskID] = s
		o.skeletons = append(o.skeletons, s)
	}

	// Deterministic processing order for phases 2 and 3.
	sort.Slice(o.skeletons, func(i, j int) bool {
		si, sj := o.skeletons[i], o.skeletons[j]
		if !si.CreatedAt.Equal(sj.CreatedAt) {
			return si.CreatedAt.Before(sj.CreatedAt)
		}
		return si.TaskID < sj.TaskID
	})

	// Index every declared child instruction at every configured
	// length, so decreasing-length lookups in the resolve phase stay
	// exact matches. Normalization is idempotent, so re-truncating the
	// stored prefix equals truncating the original text.
	lengths := o.opts.prefixLengths()
	for _, s := range o.skeletons {
		for _, prefix := range s.ChildInstructionPrefixes {
			for _, l := range lengths {
				o.index.Insert(normalize.Prefix(prefix, l), s.TaskID)
			}
		}
	}

	o.stats.TotalSkeletons = len(o.skeletons)
	o.stats.IndexedPrefixes = o.index.Len()
	return nil
}

// revalidatePhase re-confirms every declared edge. Invalid or dangling
// edges are cleared by the engine, never repaired.
func (o *Orchestrator) revalidatePhase() {
	for _, s := range o.skeletons {
		if !s.HasParent() {
			continue
		}
		o.stats.DeclaredEdges++

		res := o.engine.Revalidate(s)
		if res.Admissible {
			o.stats.ValidatedEdges++
			if res.Relaxed {
				o.stats.WorkspaceRelaxed++
			}
			continue
		}
		o.stats.InvalidatedEdges++
		o.stats.InvalidatedBy[res.Reason]++
	}
}

// resolvePhase tries to find a parent for every skeleton left
// parentless, via exact prefix matching at each configured length,
// longest first.
func (o *Orchestrator) resolvePhase() {
	for _, s := range o.skeletons {
		if s.HasParent() {
			continue
		}
		if o.resolveOne(s) {
			o.stats.ResolvedEdges++
		} else {
			o.stats.Unresolved++
		}
	}
}

func (o *Orchestrator) resolveOne(child *domain.Skeleton) bool {
	if child.TruncatedInstruction == "" {
		return false
	}

	sawAmbiguous := false
	defer func() {
		if sawAmbiguous && !child.HasParent() {
			o.stats.AmbiguousMatches++
		}
	}()

	for _, length := range o.opts.prefixLengths() {
		key := normalize.Prefix(child.TruncatedInstruction, length)
		owners := o.index.Lookup(key)
		if len(owners) == 0 {
			continue
		}

		candidate := o.pickCandidate(child, owners)
		if candidate == nil {
			if len(owners) > 1 {
				sawAmbiguous = true
				o.emitAmbiguous(child)
			}
			continue
		}

		res := o.engine.Validate("resolve", candidate, child)
		if !res.Admissible {
			continue
		}

		child.ParentTaskID = candidate.TaskID
		child.ReconstructedParentID = candidate.TaskID
		if res.Relaxed {
			o.stats.WorkspaceRelaxed++
		}
		return true
	}
	return false
}

// pickCandidate reduces the index owners to a single candidate. With
// one owner that owner wins outright. With several, the tie-break is
// deterministic: a same-workspace candidate beats a differing one, then
// the closest CreatedAt to the child wins, considering only candidates
// that satisfy the temporal check. A remaining tie yields nil. A
// workspace winner that is temporally impossible is still returned so
// that validation rejects it rather than a weaker candidate slipping in.
func (o *Orchestrator) pickCandidate(child *domain.Skeleton, owners []string) *domain.Skeleton {
	var candidates []*domain.Skeleton
	for _, id := range owners {
		if c, ok := o.byID[id]; ok && c.TaskID != child.TaskID {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	if len(candidates) == 1 {
		return candidates[0]
	}

	var matching []*domain.Skeleton
	for _, c := range candidates {
		if validate.WorkspaceMatches(c, child) {
			matching = append(matching, c)
		}
	}
	if len(matching) == 1 {
		return matching[0]
	}
	if len(matching) > 1 {
		candidates = matching
	}

	var viable []*domain.Skeleton
	for _, c := range candidates {
		if o.engine.TemporalOK(c, child) {
			viable = append(viable, c)
		}
	}
	if len(viable) == 0 {
		return nil
	}
	if len(viable) == 1 {
		return viable[0]
	}

	best := viable[0]
	bestDist := timeDistance(best, child)
	tied := false
	for _, c := range viable[1:] {
		d := timeDistance(c, child)
		switch {
		case d < bestDist:
			best, bestDist, tied = c, d, false
		case d == bestDist:
			tied = true
		}
	}
	if tied {
		return nil
	}
	return best
}

func timeDistance(a, b *domain.Skeleton) int64 {
	d := a.CreatedAt.Sub(b.CreatedAt).Nanoseconds()
	if d == math.MinInt64 {
		return math.MaxInt64
	}
	if d < 0 {
		return -d
	}
	return d
}

func (o *Orchestrator) emitAmbiguous(child *domain.Skeleton) {
	if o.opts.Trace != nil {
		o.opts.Trace(validate.Event{
			Phase:   "resolve",
			ChildID: child.TaskID,
			Reason:  domain.ReasonAmbiguous,
		})
	}
}

// finalize computes depth and root status top-down. The committed edges
// all passed the cycle check, but the walk still carries a visited
// guard: a surviving cycle is a logic defect and aborts the run.
func (o *Orchestrator) finalize() error {
	depths := make(map[string]int, len(o.skeletons))

	for _, s := range o.skeletons {
		if _, done := depths[s.TaskID]; done {
			continue
		}

		// Walk up to a root or an already-resolved ancestor.
		var path []*domain.Skeleton
		onPath := make(map[string]bool)
		cur := s
		base := 0
		for {
			if onPath[cur.TaskID] {
				return fmt.Errorf("%w: task %s", ErrCycleDetected, cur.TaskID)
			}
			if d, ok := depths[cur.TaskID]; ok {
				base = d
				break
			}
			onPath[cur.TaskID] = true
			path = append(path, cur)

			if cur.ParentTaskID == "" {
				base = -1 // the last path element is a root at depth 0
				break
			}
			parent, ok := o.byID[cur.ParentTaskID]
			if !ok {
				// Dangling pointers were cleared in phase 2; a survivor
				// here still makes this node a root.
				base = -1
				break
			}
			cur = parent
		}

		// Assign depths back down the walked path.
		for i := len(path) - 1; i >= 0; i-- {
			base++
			depths[path[i].TaskID] = base
		}
	}

	for _, s := range o.skeletons {
		s.Depth = depths[s.TaskID]
		s.IsRootTask = s.ParentTaskID == ""
		if s.IsRootTask {
			o.stats.RootCount++
		}
		if s.Depth > o.stats.MaxDepth {
			o.stats.MaxDepth = s.Depth
		}
	}
	return nil
}
