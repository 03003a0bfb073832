package domain

// Reason identifies why the validation engine rejected a candidate edge
// or demoted a declared one.
type Reason string

const (
	// ReasonNone means the edge passed all checks.
	ReasonNone Reason = ""
	// ReasonCycle means the child appears in the candidate parent's
	// ancestor chain (or parent and child are the same task).
	ReasonCycle Reason = "cycle"
	// ReasonTemporal means the parent was created after the child,
	// beyond the configured tolerance.
	ReasonTemporal Reason = "temporal"
	// ReasonWorkspace means parent and child carry different non-empty
	// workspaces.
	ReasonWorkspace Reason = "workspace"
	// ReasonMissingParent means the declared parent id does not exist
	// among the loaded skeletons.
	ReasonMissingParent Reason = "missing_parent"
	// ReasonAmbiguous means the prefix index returned multiple owners
	// and the tie-break could not pick a single winner.
	ReasonAmbiguous Reason = "ambiguous"
)

// EdgeProvenance distinguishes how a parent link came to be.
type EdgeProvenance string

const (
	EdgeDeclared      EdgeProvenance = "declared"
	EdgeReconstructed EdgeProvenance = "reconstructed"
)
