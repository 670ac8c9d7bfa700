package rtti

import "errors"

// Usage errors. All of them indicate a programming mistake and are raised by
// panicking with an error that wraps one of these values, so a recovered panic
// can be inspected using errors.Is.
var (
	ErrUseBeforeReady      = errors.New("rtti: used before it is ready")
	ErrRegisterAfterFreeze = errors.New("rtti: registration after freeze")
	ErrDoubleBuild         = errors.New("rtti: hierarchy already built")
	ErrMissingComponent    = errors.New("rtti: component not present")
	ErrIdentifierOverflow  = errors.New("rtti: identifier overflow")
	ErrUnknownType         = errors.New("rtti: unknown type")
	ErrAlreadyDeclared     = errors.New("rtti: type already declared")
	ErrOrphanType          = errors.New("rtti: type not reachable from root")
	ErrDuplicateComponent  = errors.New("rtti: component embedded more than once")
	ErrInvalidEntity       = errors.New("rtti: invalid entity")
)
