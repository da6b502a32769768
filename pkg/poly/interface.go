package poly

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/funvibe/morph/internal/vtable"
)

// Interface is a handle declaration: a fixed, ordered list of operation
// signatures. Every Ref and Object built from the same Interface dispatches
// through tables sharing one thunk array per concrete type; only the
// permutation differs between handles converted from differently shaped
// sources.
//
// The owning-storage strategy is also fixed here, at declaration: an
// all-const signature list gets reference-counted shared storage, anything
// with a mutating signature gets exclusive storage with deep copies.
type Interface struct {
	list     *vtable.List // declared signatures
	owning   *vtable.List // declared signatures plus the implicit clone
	allConst bool

	refTables sync.Map // reflect.Type → *vtable.Table over list
	objTables sync.Map // reflect.Type → *vtable.Table over owning
}

// NewInterface declares an interface over sigs. Declaration order is the
// physical thunk order of every fresh table built for it. Duplicate tags
// are rejected.
func NewInterface(sigs ...Signature) (*Interface, error) {
	vsigs := make([]vtable.Signature, len(sigs))
	allConst := true
	for i, s := range sigs {
		vsigs[i] = s.sig
		if !s.sig.Const {
			allConst = false
		}
	}
	list, err := vtable.NewList(vsigs...)
	if err != nil {
		return nil, fmt.Errorf("poly: %w", err)
	}

	// Owning handles need the clone operation; fold it in unless the
	// declaration already carries Copyable. The storage strategy is decided
	// by the declared signatures only — clone itself is const and never
	// forces exclusive storage.
	owning := list
	if _, ok := list.Index(cloneID); !ok {
		osigs := append(append(make([]vtable.Signature, 0, len(vsigs)+1), vsigs...), Copyable.sig)
		owning, err = vtable.NewList(osigs...)
		if err != nil {
			return nil, fmt.Errorf("poly: %w", err)
		}
	}

	return &Interface{list: list, owning: owning, allConst: allConst}, nil
}

// MustInterface is NewInterface that panics on error, for package-level
// declarations.
func MustInterface(sigs ...Signature) *Interface {
	in, err := NewInterface(sigs...)
	if err != nil {
		panic(err)
	}
	return in
}

// AllConst reports whether every declared signature is const-qualified,
// which is also whether owning handles use the shared storage strategy.
func (in *Interface) AllConst() bool { return in.allConst }

// NumOperations returns the number of declared signatures.
func (in *Interface) NumOperations() int { return in.list.Len() }

// refTable returns the cached fresh-built table over the declared list for
// a concrete type, building it on first use.
func (in *Interface) refTable(concrete reflect.Type) (*vtable.Table, error) {
	return cachedTable(&in.refTables, in.list, concrete)
}

// objTable is refTable for the owning list (declared + clone).
func (in *Interface) objTable(concrete reflect.Type) (*vtable.Table, error) {
	return cachedTable(&in.objTables, in.owning, concrete)
}

func cachedTable(cache *sync.Map, list *vtable.List, concrete reflect.Type) (*vtable.Table, error) {
	if t, ok := cache.Load(concrete); ok {
		return t.(*vtable.Table), nil
	}
	t, err := vtable.Build(list, resolverFor(concrete))
	if err != nil {
		return nil, err
	}
	actual, _ := cache.LoadOrStore(concrete, t)
	return actual.(*vtable.Table), nil
}

// wrapHolder applies the declaration-time storage strategy to a holder.
func (in *Interface) wrapHolder(h *holder) cell {
	if in.allConst {
		return &sharedCell{h: h}
	}
	return &exclusiveCell{h: h}
}

// Ref binds a non-owning reference handle.
//
// Given a handle (anything satisfying Handle), Ref converts it: the source's
// signatures must be a superset of this interface's, the thunk array is
// shared, and only a new permutation is computed. The source's opaque
// pointer is copied as-is, so converting an empty handle yields an empty Ref.
//
// Given anything else, x must be a non-nil pointer to a concrete instance
// with implementations registered for every declared operation; the table is
// built (or fetched from the per-type cache) and the instance's address
// bound. The Ref does not extend the instance's lifetime — it must not
// outlive the caller's storage.
func (in *Interface) Ref(x any) (Ref, error) {
	if h, ok := x.(Handle); ok {
		src := h.vtable()
		if src == nil {
			return Ref{}, fmt.Errorf("%w: source handle was never bound", ErrIncompatible)
		}
		vt, err := vtable.Rebind(src, in.list)
		if err != nil {
			return Ref{}, fmt.Errorf("%w: %v", ErrIncompatible, err)
		}
		return Ref{vt: vt, ptr: h.pointer()}, nil
	}

	rv := reflect.ValueOf(x)
	if x == nil || rv.Kind() != reflect.Pointer {
		return Ref{}, fmt.Errorf("%w: got %T", ErrNotPointer, x)
	}
	if rv.IsNil() {
		return Ref{}, fmt.Errorf("%w: got a nil %s", ErrNotPointer, rv.Type())
	}
	vt, err := in.refTable(rv.Type().Elem())
	if err != nil {
		return Ref{}, err
	}
	return Ref{vt: vt, ptr: x}, nil
}

// Object binds an owning value handle.
//
// Given a handle, Object converts it by dispatching the source's clone
// operation into a fresh holder — so the new Object never aliases the
// source's payload. The source must expose the clone operation: other
// Objects always do, a Ref only if its Interface declared Copyable.
// Converting an empty handle yields an empty Object. As the one exception,
// converting between two all-const declarations shares the reference-counted
// holder instead of cloning; with no mutating operation on either side the
// payload is immutable to everyone.
//
// Given anything else, x is a concrete value moved in by copy (pass the
// value, not a pointer) and wrapped in a fresh holder.
func (in *Interface) Object(x any) (*Object, error) {
	if h, ok := x.(Handle); ok {
		src := h.vtable()
		if src == nil {
			return nil, fmt.Errorf("%w: source handle was never bound", ErrIncompatible)
		}

		if so, isObj := x.(*Object); isObj && in.allConst && so.iface.allConst {
			vt, err := vtable.Rebind(src, in.owning)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrIncompatible, err)
			}
			o := &Object{iface: in, vt: vt}
			if so.c != nil {
				o.c = so.c.copyCell(so.vt)
			}
			return o, nil
		}

		vt, err := vtable.Rebind(src, in.owning)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIncompatible, err)
		}
		o := &Object{iface: in, vt: vt}
		if h.Valid() {
			i, _ := vt.List().Index(cloneID)
			o.c = in.wrapHolder(vt.Call(i, h.pointer(), nil).(*holder))
		}
		return o, nil
	}

	if x == nil {
		return nil, fmt.Errorf("%w: cannot own a nil value", ErrNotPointer)
	}
	rv := reflect.ValueOf(x)
	if rv.Kind() == reflect.Pointer {
		return nil, fmt.Errorf("poly: Object takes the concrete value, not a pointer (got %s)", rv.Type())
	}
	concrete := rv.Type()
	vt, err := in.objTable(concrete)
	if err != nil {
		return nil, err
	}
	np := reflect.New(concrete)
	np.Elem().Set(rv)
	return &Object{
		iface: in,
		vt:    vt,
		c:     in.wrapHolder(newHolder(np.Interface(), concrete)),
	}, nil
}
