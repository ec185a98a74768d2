package analysis

import "errors"

var (
	// ErrInvalidInput reports a malformed or empty required series.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoData reports that one or both analyzers never produced a reading,
	// so no error distribution exists for the pair. It is an expected outcome:
	// callers skip the pair instead of failing.
	ErrNoData = errors.New("insufficient data")
)
