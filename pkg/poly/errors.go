package poly

import "errors"

// All failures this package defines surface at handle construction or
// conversion time; the dispatch path itself never checks, wraps, or
// translates anything.
var (
	// ErrNotImplemented: the concrete type has no registered free function
	// for a declared operation, or the registered one has the wrong shape.
	ErrNotImplemented = errors.New("poly: operation not implemented for concrete type")

	// ErrIncompatible: a handle conversion targets an operation the source
	// handle was not built with.
	ErrIncompatible = errors.New("poly: handle interfaces are not compatible")

	// ErrNotPointer: binding a reference handle requires a non-nil pointer
	// to the concrete instance.
	ErrNotPointer = errors.New("poly: binding requires a non-nil pointer to the concrete instance")
)
