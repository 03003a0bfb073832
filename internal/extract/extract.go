// Package extract builds reconstruction skeletons from raw task
// records. Extraction is pure: it reads one record and produces one
// skeleton, normalizing the instruction texts on the way in so both
// sides of every later index match went through the same normalizer.
package extract

import (
	"errors"
	"fmt"

	"github.com/hochfrequenz/task-forest/internal/domain"
	"github.com/hochfrequenz/task-forest/internal/normalize"
	"github.com/hochfrequenz/task-forest/internal/record"
)

// ErrMalformed marks a record that cannot produce a minimally valid
// skeleton. Such records are skipped and counted by the orchestrator,
// never defaulted: a made-up CreatedAt would corrupt temporal
// validation for everything downstream.
var ErrMalformed = errors.New("malformed record")

// Skeleton extracts a domain.Skeleton from a raw record, truncating
// instructions to maxPrefixLen. Records without an id or a valid
// creation timestamp fail with ErrMalformed.
func Skeleton(rec record.Record, maxPrefixLen int) (*domain.Skeleton, error) {
	if rec.ID() == "" {
		return nil, fmt.Errorf("%w: missing id", ErrMalformed)
	}
	if rec.CreatedAt().IsZero() {
		return nil, fmt.Errorf("%w: missing creation timestamp (%s)", ErrMalformed, rec.ID())
	}

	s := &domain.Skeleton{
		TaskID:               rec.ID(),
		CreatedAt:            rec.CreatedAt(),
		LastActivity:         rec.LastActivity(),
		Workspace:            rec.Workspace(),
		TruncatedInstruction: normalize.Prefix(rec.OwnInstruction(), maxPrefixLen),
		ParentTaskID:         rec.DeclaredParentID(),
	}
	if s.LastActivity.IsZero() {
		s.LastActivity = s.CreatedAt
	}

	for _, instr := range rec.DeclaredChildInstructions() {
		prefix := normalize.Prefix(instr, maxPrefixLen)
		if prefix == "" {
			continue
		}
		s.ChildInstructionPrefixes = append(s.ChildInstructionPrefixes, prefix)
	}

	return s, nil
}
