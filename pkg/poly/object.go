package poly

import "github.com/funvibe/morph/internal/vtable"

// Object is an owning value handle. It binds a dispatch table to a holder
// whose lifetime it manages: exclusively (deep copy on Clone, immediate
// disposal on Release) when the declaring Interface has any mutating
// signature, or via an atomic reference count (Clone increments, the last
// Release disposes) when every signature is const.
//
// Objects are used through pointers; the zero Object is empty and invalid.
type Object struct {
	iface *Interface
	vt    *vtable.Table
	c     cell
}

// Valid reports whether the Object currently owns a payload. Moved-from and
// released Objects are invalid; calling operations on them is undefined.
func (o *Object) Valid() bool { return o.c != nil }

// Pointer returns raw access to the owned payload as a *T, or nil when
// empty. For a shared-strategy Object the payload is still returned by
// pointer, but with every declared operation const no dispatch can mutate
// it; mutating through the raw pointer while copies share the holder is
// caller misuse.
func (o *Object) Pointer() any {
	if o.c == nil {
		return nil
	}
	return o.c.get().ptr
}

// Clone copies the handle according to the declaration-time strategy:
// an independent deep copy via the clone operation under exclusive storage,
// a reference-count increment under shared storage.
func (o *Object) Clone() *Object {
	n := &Object{iface: o.iface, vt: o.vt}
	if o.c != nil {
		n.c = o.c.copyCell(o.vt)
	}
	return n
}

// Move transfers ownership into a new handle and leaves o empty. The
// payload is not copied and the clone operation is never invoked.
func (o *Object) Move() *Object {
	n := &Object{iface: o.iface, vt: o.vt, c: o.c}
	o.c = nil
	return n
}

// Assign replaces o's payload with an independent copy of x, which may be a
// concrete value or any compatible handle. Copy-then-swap: the replacement
// is fully constructed before the old payload is released, so assigning a
// Ref into the Object that owns the Ref's target is safe, and an Object
// never ends up aliasing a reference's target.
func (o *Object) Assign(x any) error {
	tmp, err := o.iface.Object(x)
	if err != nil {
		return err
	}
	old := o.c
	o.vt, o.c = tmp.vt, tmp.c
	tmp.c = nil
	if old != nil {
		old.release()
	}
	return nil
}

// Release drops this handle's ownership: immediate disposal under exclusive
// storage, a reference-count decrement (disposing at zero) under shared
// storage. The Object is empty afterwards. Release is idempotent on an
// already-empty Object. An Object that is never released is reclaimed by the
// garbage collector, but its disposer (if any) will not run.
func (o *Object) Release() {
	if o.c != nil {
		o.c.release()
		o.c = nil
	}
}

func (o *Object) vtable() *vtable.Table { return o.vt }

func (o *Object) pointer() any { return o.Pointer() }
