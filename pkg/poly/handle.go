package poly

import "github.com/funvibe/morph/internal/vtable"

// Handle is implemented by every handle this package produces and selects
// the rebind constructor path: passing a Handle to Interface.Ref or
// Interface.Object converts it instead of wrapping it as a concrete value.
//
// The interface is sealed. Its unexported methods can only be implemented
// inside this package, so a user type that happens to expose similarly named
// exported members can never be mistaken for a handle — it takes the
// wrap-as-concrete path like any other value.
type Handle interface {
	// Valid reports whether the handle is bound to an instance.
	Valid() bool

	vtable() *vtable.Table
	pointer() any
}
