package model

// OutcomeKind tags the variant of an Outcome. Every install/update operation
// returns exactly one variant; callers branch on the kind and read only the
// payload fields that variant carries.
type OutcomeKind string

const (
	// OutcomeSuccess carries Message, and UpToDate when the operation
	// short-circuited because nothing changed.
	OutcomeSuccess OutcomeKind = "success"
	// OutcomeFailure carries Err.
	OutcomeFailure OutcomeKind = "failure"
	// OutcomeRequiresConfirmation carries Conflicts; retry with Force to
	// proceed.
	OutcomeRequiresConfirmation OutcomeKind = "requires-confirmation"
	// OutcomeRequiresVariantSelection carries Variants; re-invoke with the
	// chosen variant or asset.
	OutcomeRequiresVariantSelection OutcomeKind = "requires-variant-selection"
	// OutcomeRequiresEntrypointSelection carries LuaFiles; re-invoke with
	// the chosen entrypoint name.
	OutcomeRequiresEntrypointSelection OutcomeKind = "requires-entrypoint-selection"
	// OutcomeRequiresManualUpdate carries Reason; re-invoke the update with
	// a ManualPayload.
	OutcomeRequiresManualUpdate OutcomeKind = "requires-manual-update"
)

// Outcome is the uniform result of every install/update operation.
type Outcome struct {
	Kind    OutcomeKind
	Message string
	Err     error

	// UpToDate is set on success when no filesystem mutation was needed.
	UpToDate bool

	// Conflicts maps addon name to its conflict report. Single-package
	// installs carry one entry.
	Conflicts map[string]*ConflictReport

	// Variants lists plugin variants or release assets to choose from.
	Variants []Variant
	// IsReleaseAsset marks Variants as release assets rather than plugin
	// variant folders.
	IsReleaseAsset bool

	// LuaFiles lists candidate entrypoint stems for an ambiguous addon.
	LuaFiles []string

	// SourceURL, IsGit and IsRelease identify the pending operation so the
	// caller can re-invoke it with a selection.
	SourceURL string
	IsGit     bool
	IsRelease bool

	// PackageName, PackageKind and IsUpdate identify the package whose
	// update surfaced this checkpoint.
	PackageName string
	PackageKind PackageKind
	IsUpdate    bool

	// Reason explains why a manual update is required: "manual" or
	// "unknown-source".
	Reason string
}

// Success returns a success outcome with a human-readable message.
func Success(message string) *Outcome {
	return &Outcome{Kind: OutcomeSuccess, Message: message}
}

// UpToDate returns a success outcome for an idempotent short-circuit.
func UpToDate(message string) *Outcome {
	return &Outcome{Kind: OutcomeSuccess, Message: message, UpToDate: true}
}

// Failure returns a failure outcome wrapping err.
func Failure(err error) *Outcome {
	return &Outcome{Kind: OutcomeFailure, Err: err}
}

// RequiresConfirmation returns a conflict checkpoint outcome.
func RequiresConfirmation(conflicts map[string]*ConflictReport) *Outcome {
	return &Outcome{Kind: OutcomeRequiresConfirmation, Conflicts: conflicts}
}

// RequiresVariantSelection returns a variant checkpoint outcome.
func RequiresVariantSelection(variants []Variant, sourceURL string) *Outcome {
	return &Outcome{Kind: OutcomeRequiresVariantSelection, Variants: variants, SourceURL: sourceURL}
}

// RequiresEntrypointSelection returns an entrypoint checkpoint outcome.
func RequiresEntrypointSelection(luaFiles []string, sourceURL string, isGit, isRelease bool) *Outcome {
	return &Outcome{
		Kind:      OutcomeRequiresEntrypointSelection,
		LuaFiles:  luaFiles,
		SourceURL: sourceURL,
		IsGit:     isGit,
		IsRelease: isRelease,
	}
}

// RequiresManualUpdate returns a manual-intervention checkpoint outcome.
func RequiresManualUpdate(name string, kind PackageKind, reason string) *Outcome {
	return &Outcome{
		Kind:        OutcomeRequiresManualUpdate,
		PackageName: name,
		PackageKind: kind,
		Reason:      reason,
	}
}

// OK reports whether the outcome is a success.
func (o *Outcome) OK() bool {
	return o != nil && o.Kind == OutcomeSuccess
}

// NeedsInput reports whether the outcome is a checkpoint that pauses the
// pipeline for a caller decision.
func (o *Outcome) NeedsInput() bool {
	if o == nil {
		return false
	}
	switch o.Kind {
	case OutcomeRequiresConfirmation,
		OutcomeRequiresVariantSelection,
		OutcomeRequiresEntrypointSelection,
		OutcomeRequiresManualUpdate:
		return true
	default:
		return false
	}
}
