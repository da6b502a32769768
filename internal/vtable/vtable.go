// Package vtable builds and rebinds type-erased dispatch tables.
//
// A Table pairs an array of thunks (one per operation, in the declaration
// order of the signature list it was first built for) with a permutation
// array mapping logical position — the position in the owning handle's own
// signature list — to physical thunk position. Rebinding a table onto a
// subset of its signatures shares the thunk array unchanged and only
// recomputes the permutation, so narrowing conversions never regenerate
// thunks.
package vtable

import (
	"fmt"
	"reflect"

	"github.com/funvibe/morph/internal/config"
	"github.com/funvibe/morph/internal/tags"
)

// Thunk is the type-erased calling convention of one dispatch entry.
// recv is the opaque instance (a *T boxed in any); the thunk recovers the
// concrete type and forwards to the registered free function.
type Thunk func(recv any, args []any) any

// Signature describes one dispatchable operation: its tag identity, its
// parameter and result types (receiver excluded), and whether it is
// const-qualified (implemented on a value receiver, unable to mutate the
// bound instance).
type Signature struct {
	Tag   tags.ID
	Name  string
	In    []reflect.Type
	Out   reflect.Type // nil for operations with no result
	Const bool
}

// List is an ordered signature list, unique by tag, with O(1) tag lookup.
// A handle declaration owns exactly one List; it is immutable once built.
type List struct {
	sigs  []Signature
	index map[tags.ID]uint8
}

// NewList builds a List from sigs in declaration order.
// Duplicate tags and lists longer than config.MaxSignatures are rejected.
func NewList(sigs ...Signature) (*List, error) {
	if len(sigs) > config.MaxSignatures {
		return nil, fmt.Errorf("signature list has %d operations, limit is %d", len(sigs), config.MaxSignatures)
	}
	index := make(map[tags.ID]uint8, len(sigs))
	for i, s := range sigs {
		if _, dup := index[s.Tag]; dup {
			return nil, fmt.Errorf("duplicate operation %s in signature list", s.Name)
		}
		index[s.Tag] = uint8(i)
	}
	return &List{sigs: sigs, index: index}, nil
}

// Len returns the number of signatures.
func (l *List) Len() int { return len(l.sigs) }

// At returns the signature at logical position i.
func (l *List) At(i int) Signature { return l.sigs[i] }

// Index returns the logical position of tag in this list.
func (l *List) Index(tag tags.ID) (uint8, bool) {
	i, ok := l.index[tag]
	return i, ok
}

// AllConst reports whether every signature is const-qualified.
func (l *List) AllConst() bool {
	for _, s := range l.sigs {
		if !s.Const {
			return false
		}
	}
	return true
}

// Table is a dispatch table: thunks in physical order plus the permutation
// from this table's logical signature order to physical positions.
// Invariant: len(perm) == list.Len() and every perm entry < len(thunks).
type Table struct {
	thunks []Thunk
	perm   []uint8
	list   *List
}

// Build synthesizes a fresh table for l, resolving one thunk per signature
// in declaration order. The permutation starts as the identity mapping since
// physical order is exactly l's order. A resolver failure (no implementation
// for a signature, mismatched shape) aborts construction.
func Build(l *List, resolve func(Signature) (Thunk, error)) (*Table, error) {
	thunks := make([]Thunk, l.Len())
	perm := make([]uint8, l.Len())
	for i := 0; i < l.Len(); i++ {
		th, err := resolve(l.At(i))
		if err != nil {
			return nil, err
		}
		thunks[i] = th
		perm[i] = uint8(i)
	}
	return &Table{thunks: thunks, perm: perm, list: l}, nil
}

// Rebind converts src onto target, which must be a subset of src's
// signatures by tag. The thunk array is shared unchanged; only a new
// permutation is computed: entry i is the physical position, in src, of
// target's i-th tag. A tag absent from src is an error — a handle may only
// narrow to operations it was actually built with.
func Rebind(src *Table, target *List) (*Table, error) {
	perm := make([]uint8, target.Len())
	for i := 0; i < target.Len(); i++ {
		sig := target.At(i)
		j, ok := src.list.Index(sig.Tag)
		if !ok {
			return nil, fmt.Errorf("operation %s is not part of the source handle", sig.Name)
		}
		perm[i] = src.perm[j]
	}
	return &Table{thunks: src.thunks, perm: perm, list: target}, nil
}

// List returns the table's own logical signature list.
func (t *Table) List() *List { return t.list }

// Call dispatches the operation at logical position i: the permutation
// selects the physical thunk, which receives the opaque instance and the
// arguments. No validity checks are performed here.
func (t *Table) Call(i uint8, recv any, args []any) any {
	return t.thunks[t.perm[i]](recv, args)
}
