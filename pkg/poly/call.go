package poly

import (
	"fmt"
	"reflect"

	"github.com/funvibe/morph/internal/config"
	"github.com/funvibe/morph/internal/tags"
)

// Call dispatches the operation tagged Tag through h and returns its result
// as R: logical index by tag, permutation to the physical thunk, thunk to
// the registered free function. Arguments must be assignable (or
// numerically convertible) to the declared parameter types.
//
// Calling a tag that is not in h's declared signature list, or calling
// through an empty handle, is caller misuse and panics; no checking happens
// on the happy path. A panic raised by the free function itself propagates
// unchanged.
func Call[Tag any, R any](h Handle, args ...any) R {
	out := dispatch[Tag](h, args)
	if out == nil {
		var zero R
		return zero
	}
	return out.(R)
}

// CallVoid is Call for operations that return nothing.
func CallVoid[Tag any](h Handle, args ...any) {
	dispatch[Tag](h, args)
}

func dispatch[Tag any](h Handle, args []any) any {
	vt := h.vtable()
	if config.DebugChecks && (vt == nil || !h.Valid()) {
		panic("poly: dispatch through an empty handle")
	}
	i, ok := vt.List().Index(tags.Of[Tag]())
	if !ok {
		panic(fmt.Sprintf("poly: %s is not part of this handle's interface",
			reflect.TypeOf((*Tag)(nil)).Elem()))
	}
	return vt.Call(i, h.pointer(), args)
}
