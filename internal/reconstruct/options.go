package reconstruct

import (
	"sort"
	"time"

	"github.com/hochfrequenz/task-forest/internal/normalize"
	"github.com/hochfrequenz/task-forest/internal/validate"
)

// Options is the configuration surface consumed by the reconstruction
// core.
type Options struct {
	// MaxPrefixLength bounds the normalized instruction prefixes used
	// as index keys.
	MaxPrefixLength int

	// FallbackPrefixLengths are shorter lengths retried, in decreasing
	// order, when the full-length lookup finds no exact match. Empty by
	// default: the single full-length pass is the only one.
	FallbackPrefixLengths []int

	// TemporalTolerance absorbs writer clock skew in the causal-order
	// check.
	TemporalTolerance time.Duration

	// StrictWorkspaceIsolation rejects edges across different non-empty
	// workspaces. When false, such edges are admitted but counted.
	StrictWorkspaceIsolation bool

	// Parallelism bounds the extraction fan-out in the build phase.
	Parallelism int

	// Trace receives validation and orchestrator events. Nil disables
	// tracing.
	Trace validate.EventFunc
}

// DefaultOptions returns the normal-operation configuration.
func DefaultOptions() Options {
	return Options{
		MaxPrefixLength:          normalize.DefaultMaxLen,
		TemporalTolerance:        time.Second,
		StrictWorkspaceIsolation: true,
		Parallelism:              4,
	}
}

// prefixLengths returns the configured lengths, longest first, with the
// max length always included and duplicates and oversized fallbacks
// dropped.
func (o Options) prefixLengths() []int {
	max := o.MaxPrefixLength
	if max <= 0 {
		max = normalize.DefaultMaxLen
	}

	lengths := []int{max}
	seen := map[int]bool{max: true}
	for _, l := range o.FallbackPrefixLengths {
		if l <= 0 || l >= max || seen[l] {
			continue
		}
		seen[l] = true
		lengths = append(lengths, l)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(lengths)))
	return lengths
}
