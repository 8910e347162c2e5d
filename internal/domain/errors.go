package domain

import "errors"

var (
	// ErrInvalidGeometry marks a basin polygon that is empty, self-intersecting,
	// or has zero area. The basin is skipped, never retried.
	ErrInvalidGeometry = errors.New("invalid basin geometry")

	// ErrEmptyInput marks an alignment request with zero stations or zero
	// readings across all stations.
	ErrEmptyInput = errors.New("no station readings")
)
