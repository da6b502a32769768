package poly

import (
	"reflect"
	"sync/atomic"

	"github.com/funvibe/morph/internal/vtable"
)

// holder is the type-erased ownership cell behind an Object: the boxed *T
// payload, a reference count (used only by the shared strategy), and the
// optional disposer registered for the concrete type. A holder is destroyed
// at most once no matter how many handles raced to release it.
type holder struct {
	ptr      any // always a *T boxed in any
	refs     atomic.Int64
	disposed atomic.Bool
	dispose  func(any)
}

func newHolder(ptr any, concrete reflect.Type) *holder {
	h := &holder{ptr: ptr, dispose: lookupDisposer(concrete)}
	h.refs.Store(1)
	return h
}

func (h *holder) destroy() {
	if h.dispose != nil && h.disposed.CompareAndSwap(false, true) {
		h.dispose(h.ptr)
	}
}

// cell is the ownership strategy of an Object. The strategy is fixed when
// the Interface is declared: sharedCell for all-const signature lists,
// exclusiveCell otherwise.
type cell interface {
	get() *holder
	// copyCell implements handle copy semantics: a refcount increment for
	// the shared strategy, a clone dispatch for the exclusive one.
	copyCell(vt *vtable.Table) cell
	release()
}

// exclusiveCell owns its holder outright. Copying dispatches the clone
// operation to produce an independent deep copy; releasing disposes
// immediately.
type exclusiveCell struct {
	h *holder
}

func (c *exclusiveCell) get() *holder { return c.h }

func (c *exclusiveCell) copyCell(vt *vtable.Table) cell {
	i, _ := vt.List().Index(cloneID) // owning lists always carry clone
	nh := vt.Call(i, c.h.ptr, nil).(*holder)
	return &exclusiveCell{h: nh}
}

func (c *exclusiveCell) release() { c.h.destroy() }

// sharedCell reference-counts its holder. All signatures being const, no
// operation can mutate the payload, so sharing is safe; copies are a single
// atomic increment and never invoke clone.
type sharedCell struct {
	h *holder
}

func (c *sharedCell) get() *holder { return c.h }

func (c *sharedCell) copyCell(*vtable.Table) cell {
	c.h.refs.Add(1)
	return &sharedCell{h: c.h}
}

func (c *sharedCell) release() {
	if c.h.refs.Add(-1) == 0 {
		c.h.destroy()
	}
}
