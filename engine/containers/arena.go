package containers

import (
	"fmt"

	"github.com/spaghettifunk/tremor/engine/core"
)

// Handle indexes an entry of an Arena. Handles stay valid until Reset.
type Handle uint32

// Arena is a fixed-capacity, append-only table of values keyed by a
// comparable descriptor. Lookups are a linear scan in insertion order on
// exact key equality. The arena never grows past its capacity and only
// shrinks through Reset.
type Arena[K comparable, V any] struct {
	name     string
	capacity int
	keys     []K
	values   []V
}

// NewArena creates an empty arena holding at most capacity entries.
// The name is used in error messages.
func NewArena[K comparable, V any](name string, capacity int) *Arena[K, V] {
	return &Arena[K, V]{
		name:     name,
		capacity: capacity,
		keys:     make([]K, 0, capacity),
		values:   make([]V, 0, capacity),
	}
}

// Find returns the handle of the first entry whose key equals key.
func (a *Arena[K, V]) Find(key K) (Handle, bool) {
	for i := range a.keys {
		if a.keys[i] == key {
			return Handle(i), true
		}
	}
	return 0, false
}

// Append stores a new entry and returns its handle. It fails with
// core.ErrCapacityExhausted once the arena is full.
func (a *Arena[K, V]) Append(key K, value V) (Handle, error) {
	if len(a.keys) >= a.capacity {
		return 0, fmt.Errorf("%s: %w (%d entries)", a.name, core.ErrCapacityExhausted, a.capacity)
	}
	a.keys = append(a.keys, key)
	a.values = append(a.values, value)
	return Handle(len(a.keys) - 1), nil
}

// FindOrCreate returns the value stored under key, calling build and
// appending its result on a miss. The capacity is checked before build
// runs so that nothing is built for a full arena.
func (a *Arena[K, V]) FindOrCreate(key K, build func(K) (V, error)) (V, error) {
	if h, ok := a.Find(key); ok {
		return a.values[h], nil
	}
	var zero V
	if a.Full() {
		return zero, fmt.Errorf("%s: %w (%d entries)", a.name, core.ErrCapacityExhausted, a.capacity)
	}
	v, err := build(key)
	if err != nil {
		return zero, err
	}
	if _, err := a.Append(key, v); err != nil {
		return zero, err
	}
	return v, nil
}

func (a *Arena[K, V]) Get(h Handle) V {
	return a.values[h]
}

// Set replaces the value of an existing entry.
func (a *Arena[K, V]) Set(h Handle, v V) {
	a.values[h] = v
}

func (a *Arena[K, V]) Key(h Handle) K {
	return a.keys[h]
}

func (a *Arena[K, V]) Len() int {
	return len(a.keys)
}

func (a *Arena[K, V]) Cap() int {
	return a.capacity
}

func (a *Arena[K, V]) Full() bool {
	return len(a.keys) >= a.capacity
}

// Each visits the entries in insertion order.
func (a *Arena[K, V]) Each(fn func(h Handle, key K, value V)) {
	for i := range a.keys {
		fn(Handle(i), a.keys[i], a.values[i])
	}
}

// Reset drops every entry. Releasing whatever the values own is up to the
// caller.
func (a *Arena[K, V]) Reset() {
	var zk K
	var zv V
	for i := range a.keys {
		a.keys[i] = zk
		a.values[i] = zv
	}
	a.keys = a.keys[:0]
	a.values = a.values[:0]
}
