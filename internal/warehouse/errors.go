package warehouse

import "errors"

// Error kinds surfaced by the planning and execution layers. Callers route
// on these with errors.Is; the concrete message carries the detail.
var (
	// ErrInvalidFilter marks a caller-supplied filter or group-by that
	// references a column not declared on the template's schema refs.
	// Raised before any backend call.
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrBackendQuery marks a transport, syntax or timeout failure from
	// either executor. Never retried inside the core.
	ErrBackendQuery = errors.New("backend query failed")

	// ErrUnsupportedPlan marks a plan shape the emulated executor cannot
	// represent with single-table operations. Surfaced distinctly so the
	// caller can route to the direct executor instead of accepting a
	// false empty result.
	ErrUnsupportedPlan = errors.New("plan not supported by this executor")
)
