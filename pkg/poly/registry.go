package poly

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/funvibe/morph/internal/tags"
	"github.com/funvibe/morph/internal/vtable"
)

// The registry maps (operation tag, concrete type) to a thunk generated at
// registration time. Thunks are generated once per pair and shared by every
// table built over that concrete type; tables only index them.

type implKey struct {
	tag tags.ID
	typ reflect.Type
}

type impl struct {
	thunk   vtable.Thunk
	in      []reflect.Type // parameters, receiver excluded
	out     reflect.Type   // nil for no result
	isConst bool
	fnType  reflect.Type
}

var registry = struct {
	sync.RWMutex
	impls     map[implKey]*impl
	clones    map[reflect.Type]vtable.Thunk
	disposers map[reflect.Type]func(any)
}{
	impls:     make(map[implKey]*impl),
	clones:    make(map[reflect.Type]vtable.Thunk),
	disposers: make(map[reflect.Type]func(any)),
}

// Provide registers fn as the free-function implementation of the operation
// tagged Tag for the concrete type named by fn's first parameter. A value
// receiver (func(T, ...)) registers a const implementation; a pointer
// receiver (func(*T, ...)) a mutating one. The remaining parameters and the
// result must match the Signature the operation is declared with — that
// match is checked when a handle is first built, and a mismatch fails the
// construction, never a call.
//
// Provide panics on misuse (non-function, missing receiver slot, duplicate
// registration), following the database/sql.Register idiom: registration is
// init-time code and a bad registration is a programming error.
func Provide[Tag any](fn any) {
	ft := reflect.TypeOf(fn)
	if ft == nil || ft.Kind() != reflect.Func {
		panic(fmt.Sprintf("poly: Provide requires a function, got %T", fn))
	}
	if ft.NumIn() == 0 {
		panic("poly: implementation functions take the concrete receiver as their first parameter")
	}
	if ft.IsVariadic() {
		panic("poly: variadic implementations are not supported")
	}
	if ft.NumOut() > 1 {
		panic(fmt.Sprintf("poly: implementations return at most one value, %s returns %d", ft, ft.NumOut()))
	}

	recv := ft.In(0)
	isConst := recv.Kind() != reflect.Pointer
	concrete := recv
	if !isConst {
		concrete = recv.Elem()
	}

	tagType := reflect.TypeOf((*Tag)(nil)).Elem()
	key := implKey{tag: tags.Intern(tagType), typ: concrete}

	in := make([]reflect.Type, ft.NumIn()-1)
	for i := range in {
		in[i] = ft.In(i + 1)
	}
	var out reflect.Type
	if ft.NumOut() == 1 {
		out = ft.Out(0)
	}

	entry := &impl{
		thunk:   makeThunk(reflect.ValueOf(fn), ft, isConst),
		in:      in,
		out:     out,
		isConst: isConst,
		fnType:  ft,
	}

	registry.Lock()
	defer registry.Unlock()
	if _, dup := registry.impls[key]; dup {
		panic(fmt.Sprintf("poly: %s already provided for %s", tagType, concrete))
	}
	registry.impls[key] = entry
}

// ProvideClone overrides the default clone for T. The default copies the
// value by assignment, which is correct for value-only payloads; types
// holding pointers, slices, or maps that need deep-copy isolation under the
// exclusive storage strategy register their own.
func ProvideClone[T any](fn func(T) T) {
	rt := reflect.TypeOf((*T)(nil)).Elem()
	registry.Lock()
	defer registry.Unlock()
	registry.clones[rt] = func(recv any, _ []any) any {
		c := fn(*recv.(*T))
		return newHolder(&c, rt)
	}
}

// ProvideDisposer registers a hook invoked exactly once when a holder of T
// is destroyed: on Release of an exclusive Object, or when the last shared
// Object over the payload is released.
func ProvideDisposer[T any](fn func(*T)) {
	rt := reflect.TypeOf((*T)(nil)).Elem()
	registry.Lock()
	defer registry.Unlock()
	registry.disposers[rt] = func(p any) { fn(p.(*T)) }
}

func lookupDisposer(concrete reflect.Type) func(any) {
	registry.RLock()
	defer registry.RUnlock()
	return registry.disposers[concrete]
}

// makeThunk wraps a registered free function in the type-erased calling
// convention. The opaque receiver is always a *T; const implementations get
// the dereferenced value, mutating ones the pointer itself.
func makeThunk(fv reflect.Value, ft reflect.Type, isConst bool) vtable.Thunk {
	return func(recv any, args []any) any {
		if len(args) != ft.NumIn()-1 {
			panic(fmt.Sprintf("poly: %s called with %d arguments, want %d", ft, len(args), ft.NumIn()-1))
		}
		in := make([]reflect.Value, ft.NumIn())
		rv := reflect.ValueOf(recv)
		if isConst {
			rv = rv.Elem()
		}
		in[0] = rv
		for i, a := range args {
			in[i+1] = materialize(a, ft.In(i+1))
		}
		out := fv.Call(in)
		if len(out) == 0 {
			return nil
		}
		return out[0].Interface()
	}
}

// materialize turns a call argument into a reflect.Value of the parameter
// type. Assignable values pass through; convertible ones (untyped-looking
// numerics mostly) are converted; anything else is caller misuse.
func materialize(a any, pt reflect.Type) reflect.Value {
	if a == nil {
		return reflect.Zero(pt)
	}
	av := reflect.ValueOf(a)
	switch {
	case av.Type().AssignableTo(pt):
		return av
	case av.Type().ConvertibleTo(pt):
		return av.Convert(pt)
	}
	panic(fmt.Sprintf("poly: argument of type %s is not assignable to parameter type %s", av.Type(), pt))
}

// defaultCloneThunk is the clone every concrete type gets for free: an
// assignment copy into a fresh holder, mirroring plain value copying.
func defaultCloneThunk(concrete reflect.Type) vtable.Thunk {
	return func(recv any, _ []any) any {
		nv := reflect.New(concrete)
		nv.Elem().Set(reflect.ValueOf(recv).Elem())
		return newHolder(nv.Interface(), concrete)
	}
}

// resolverFor returns the thunk resolver used when building a fresh table
// for concrete. It also validates the registered implementation's shape
// against the declared signature, so every mismatch surfaces at handle
// construction.
func resolverFor(concrete reflect.Type) func(vtable.Signature) (vtable.Thunk, error) {
	return func(sig vtable.Signature) (vtable.Thunk, error) {
		if sig.Tag == cloneID {
			registry.RLock()
			th, ok := registry.clones[concrete]
			registry.RUnlock()
			if ok {
				return th, nil
			}
			return defaultCloneThunk(concrete), nil
		}

		registry.RLock()
		entry := registry.impls[implKey{tag: sig.Tag, typ: concrete}]
		registry.RUnlock()
		if entry == nil {
			return nil, fmt.Errorf("%w: %s has no implementation of %s", ErrNotImplemented, concrete, sig.Name)
		}
		if entry.isConst != sig.Const {
			return nil, fmt.Errorf("%w: %s implements %s with a %s receiver, signature declares %s",
				ErrNotImplemented, concrete, sig.Name, receiverMode(entry.isConst), receiverMode(sig.Const))
		}
		if len(entry.in) != len(sig.In) {
			return nil, fmt.Errorf("%w: %s implements %s as %s, want %d parameters after the receiver",
				ErrNotImplemented, concrete, sig.Name, entry.fnType, len(sig.In))
		}
		for i, pt := range sig.In {
			if entry.in[i] != pt {
				return nil, fmt.Errorf("%w: %s implements %s as %s, parameter %d should be %s",
					ErrNotImplemented, concrete, sig.Name, entry.fnType, i, pt)
			}
		}
		if entry.out != sig.Out {
			return nil, fmt.Errorf("%w: %s implements %s as %s, result should be %s",
				ErrNotImplemented, concrete, sig.Name, entry.fnType, describeOut(sig.Out))
		}
		return entry.thunk, nil
	}
}

func receiverMode(isConst bool) string {
	if isConst {
		return "const (value)"
	}
	return "mutable (pointer)"
}

func describeOut(out reflect.Type) string {
	if out == nil {
		return "none"
	}
	return out.String()
}
