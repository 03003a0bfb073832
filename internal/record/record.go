// Package record defines the adapter between raw task-record storage
// and the reconstruction core, plus a reader for Claude Code style
// session transcripts. The core never touches the on-disk schema
// directly; it only sees the Record interface.
package record

import "time"

// Record is the minimal view of a raw task record the reconstruction
// core needs. The storage layer implements it.
type Record interface {
	// ID returns the record's unique, immutable identifier.
	ID() string
	// CreatedAt returns the creation timestamp, the causal anchor for
	// temporal validation. A zero time marks the record as malformed.
	CreatedAt() time.Time
	// LastActivity returns the timestamp of the record's last entry.
	LastActivity() time.Time
	// Workspace returns the isolation boundary label, or "".
	Workspace() string
	// OwnInstruction returns the record's opening instruction text.
	OwnInstruction() string
	// DeclaredChildInstructions returns the instruction texts of the
	// sub-tasks this record claims to have spawned, in order.
	DeclaredChildInstructions() []string
	// DeclaredParentID returns a pre-existing parent id claimed by the
	// raw record, or "". The re-validate phase exists to re-confirm
	// such claims rather than trust them blindly.
	DeclaredParentID() string
}
