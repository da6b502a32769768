package poly

import "github.com/funvibe/morph/internal/vtable"

// Ref is a non-owning reference handle: a dispatch table plus the address
// of an instance someone else owns. Refs are plain values; copying one
// copies the binding, never the instance. A Ref performs no lifetime
// management — using it past the bound instance's lifetime is undefined,
// exactly as with a raw pointer.
type Ref struct {
	vt  *vtable.Table
	ptr any
}

// Valid reports whether the Ref is bound to an instance. Calling an
// operation on an invalid Ref is the caller's misuse; Valid exists so
// callers can check, dispatch itself does not.
func (r Ref) Valid() bool { return r.ptr != nil }

// Pointer returns the bound instance as the *T it was created from, or nil
// for an unbound Ref.
func (r Ref) Pointer() any { return r.ptr }

func (r Ref) vtable() *vtable.Table { return r.vt }
func (r Ref) pointer() any          { return r.ptr }
