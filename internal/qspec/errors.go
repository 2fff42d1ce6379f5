package qspec

import "errors"

// Compile stage failures. Callers match these with errors.Is; the wrapped
// message carries the offending token or shape.
var (
	ErrInvalidIdentifier  = errors.New("invalid identifier")
	ErrMalformedCondition = errors.New("malformed condition")
	ErrAmbiguousWildcard  = errors.New("cannot select a wildcard while joining tables")
	ErrMalformedJoinKey   = errors.New("malformed join key")
	ErrDuplicateParameter = errors.New("duplicate parameter")
)

// errBadToken is an internal marker for token scan failures. It is always
// wrapped into one of the exported errors before leaving the package.
var errBadToken = errors.New("bad token")
