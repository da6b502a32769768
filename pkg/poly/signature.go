// Package poly is a non-intrusive polymorphism toolkit.
//
// A concrete type participates in polymorphism by having free functions
// registered for operation tags, not by implementing an interface or
// embedding anything. An Interface value fixes an ordered list of operation
// signatures; handles built over it dispatch through a thunk table plus a
// permutation array, so a handle built for a superset of operations can be
// narrowed to a subset without regenerating any dispatch code.
//
// Two handle kinds exist: Ref, a non-owning view over caller-owned storage,
// and Object, an owning value handle with copy, move, and explicit release.
//
//	type AreaOp struct{}
//	type ScaleOp struct{}
//
//	var Shape = poly.MustInterface(
//		poly.ConstOp[AreaOp]((func() float64)(nil)),
//		poly.Op[ScaleOp]((func(float64))(nil)),
//	)
//
//	poly.Provide[AreaOp](func(c Circle) float64 { return math.Pi * c.Radius * c.Radius })
//	poly.Provide[ScaleOp](func(c *Circle, f float64) { c.Radius *= f })
//
//	r, err := Shape.Ref(&circle)
//	area := poly.Call[AreaOp, float64](r)
package poly

import (
	"fmt"
	"reflect"

	"github.com/funvibe/morph/internal/tags"
	"github.com/funvibe/morph/internal/vtable"
)

// Signature declares one dispatchable operation of an Interface: the tag
// identifying the operation, its parameter and result types, and whether it
// is const-qualified. Signatures are values; declare them once and reuse
// them across interface declarations — equal tags mean the same operation
// everywhere.
type Signature struct {
	sig vtable.Signature
}

// Op declares a mutating operation tagged Tag. shape is a typed nil function
// value describing the parameters and result without the receiver slot, e.g.
// (func(float64))(nil) for an operation taking one float64 and returning
// nothing. Implementations registered for a mutating operation take the
// concrete type by pointer.
//
// Op panics on a malformed shape; signature declaration is init-time code.
func Op[Tag any](shape any) Signature {
	return newSignature[Tag](shape, false)
}

// ConstOp declares a const-qualified operation tagged Tag. Implementations
// take the concrete type by value and therefore cannot mutate the bound
// instance. An Interface whose signatures are all const uses cheap shared
// storage for its owning handles.
func ConstOp[Tag any](shape any) Signature {
	return newSignature[Tag](shape, true)
}

func newSignature[Tag any](shape any, isConst bool) Signature {
	ft := reflect.TypeOf(shape)
	if ft == nil || ft.Kind() != reflect.Func {
		panic(fmt.Sprintf("poly: signature shape must be a typed nil function value, got %T", shape))
	}
	if ft.IsVariadic() {
		panic("poly: variadic operations are not supported")
	}
	if ft.NumOut() > 1 {
		panic(fmt.Sprintf("poly: operations return at most one value, shape %s has %d", ft, ft.NumOut()))
	}
	in := make([]reflect.Type, ft.NumIn())
	for i := range in {
		in[i] = ft.In(i)
	}
	var out reflect.Type
	if ft.NumOut() == 1 {
		out = ft.Out(0)
	}
	tagType := reflect.TypeOf((*Tag)(nil)).Elem()
	return Signature{sig: vtable.Signature{
		Tag:   tags.Intern(tagType),
		Name:  tagType.String(),
		In:    in,
		Out:   out,
		Const: isConst,
	}}
}

// Const reports whether the signature is const-qualified.
func (s Signature) Const() bool { return s.sig.Const }

// Tag returns the marker type identifying the operation.
func (s Signature) Tag() reflect.Type { return tags.TypeOf(s.sig.Tag) }

// cloneOp tags the implicit clone operation every owning handle carries.
type cloneOp struct{}

var cloneID = tags.Of[cloneOp]()

// Copyable is the clone operation signature. Owning handles fold it into
// their signature list automatically; include it explicitly in a reference
// Interface to allow constructing an Object from one of its Refs.
var Copyable = ConstOp[cloneOp]((func() *holder)(nil))
