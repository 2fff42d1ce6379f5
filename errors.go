package qmap

import (
	"errors"

	"github.com/qbloq/qmap/internal/qspec"
)

// Compile stage failures surface before any statement reaches the executor.
// Match them with errors.Is.
var (
	ErrInvalidIdentifier  = qspec.ErrInvalidIdentifier
	ErrMalformedCondition = qspec.ErrMalformedCondition
	ErrAmbiguousWildcard  = qspec.ErrAmbiguousWildcard
	ErrMalformedJoinKey   = qspec.ErrMalformedJoinKey
	ErrDuplicateParameter = qspec.ErrDuplicateParameter
)

var (
	// ErrExecution wraps any failure reported by the executor or driver.
	ErrExecution = errors.New("execution failed")

	// ErrNotFound is returned by Get when no row matches.
	ErrNotFound = errors.New("not found")
)
