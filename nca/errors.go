package nca

import "errors"

// Structural failure classes. All are detected at construction or before
// dispatch; the per-step compute loop itself has no fallible operations.
var (
	// ErrParamLength reports a parameter buffer whose length does not match
	// the configured NParams. A configuration error, never tolerated silently.
	ErrParamLength = errors.New("parameter buffer length mismatch")

	// ErrGridTooLarge reports a grid whose cell count exceeds MaxGridSize.
	// Rejected before any kernel dispatch.
	ErrGridTooLarge = errors.New("grid exceeds max schedulable size")

	// ErrDivergence reports backend output drifting from the sequential
	// reference beyond tolerance. A correctness bug, not a runtime condition.
	ErrDivergence = errors.New("output diverges from reference")
)
