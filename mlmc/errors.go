package mlmc

import "errors"

// Sentinel errors for the estimation core. Callers match with errors.Is;
// every failure aborts the run immediately — there are no internal retries
// and no partial estimates.
var (
	// ErrConfiguration reports an unusable level hierarchy: no input source,
	// no models, or too few levels for a paired pilot run.
	ErrConfiguration = errors.New("mlmc: invalid configuration")

	// ErrInvalidValue reports a negative or non-finite numeric parameter, or
	// per-level payloads whose lengths cannot form a consistent hierarchy.
	ErrInvalidValue = errors.New("mlmc: invalid value")

	// ErrInvalidType reports a missing or wrongly-shaped container: nil
	// sample-count slices, negative sample counts, or filename lists that do
	// not line up with the level count.
	ErrInvalidType = errors.New("mlmc: invalid type")
)
