// Package tags interns operation tag types to dense IDs.
//
// A tag is an empty marker type whose only role is identity: two signatures
// carrying the same tag are the same operation no matter which interface
// declared them. Interning gives each marker type a small stable integer so
// dispatch tables and registries can key on it without touching reflection
// on the call path.
package tags

import (
	"reflect"
	"sync"
)

// ID is the interned identity of an operation tag type.
// IDs are dense from 0 and stable for the lifetime of the process.
type ID int32

var (
	mu    sync.RWMutex
	ids   = make(map[reflect.Type]ID)
	types []reflect.Type
)

// Of interns the marker type T and returns its ID.
func Of[T any]() ID {
	return Intern(reflect.TypeOf((*T)(nil)).Elem())
}

// Intern returns the ID for rt, assigning the next dense ID on first use.
// Safe for concurrent use.
func Intern(rt reflect.Type) ID {
	mu.RLock()
	id, ok := ids[rt]
	mu.RUnlock()
	if ok {
		return id
	}

	mu.Lock()
	defer mu.Unlock()
	if id, ok := ids[rt]; ok {
		return id
	}
	id = ID(len(types))
	ids[rt] = id
	types = append(types, rt)
	return id
}

// Name returns the tag type's name for diagnostics.
func Name(id ID) string {
	mu.RLock()
	defer mu.RUnlock()
	if int(id) < 0 || int(id) >= len(types) {
		return "<unknown tag>"
	}
	return types[id].String()
}

// TypeOf returns the marker type behind id, or nil if id was never assigned.
func TypeOf(id ID) reflect.Type {
	mu.RLock()
	defer mu.RUnlock()
	if int(id) < 0 || int(id) >= len(types) {
		return nil
	}
	return types[id]
}
