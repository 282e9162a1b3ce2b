// Package arena implements a generational slot arena. Values are addressed
// by Handle, a (slot, generation) pair. Removing a value bumps the slot's
// generation so every handle issued for the old value stops resolving,
// even after the slot is reused.
package arena

import (
	"fmt"
	"math"
)

// Handle identifies a value stored in an Arena. The zero Handle never
// resolves: generations start at 1.
type Handle struct {
	Slot uint32
	Gen  uint32
}

// IsZero reports whether h is the zero Handle.
func (h Handle) IsZero() bool {
	return h.Slot == 0 && h.Gen == 0
}

// Less orders handles by slot, then generation.
func (h Handle) Less(other Handle) bool {
	if h.Slot != other.Slot {
		return h.Slot < other.Slot
	}
	return h.Gen < other.Gen
}

// String renders the handle as "<slot>v<generation>".
func (h Handle) String() string {
	return fmt.Sprintf("%dv%d", h.Slot, h.Gen)
}

// InvalidHandleError is the panic value raised by MustGet when a handle is
// stale or out of range.
type InvalidHandleError struct {
	Kind   string
	Handle fmt.Stringer
}

func (e *InvalidHandleError) Error() string {
	return fmt.Sprintf("invalid %s handle %v: slot is empty or was reused", e.Kind, e.Handle)
}

type entry[T any] struct {
	value T
	gen   uint32
	live  bool
}

// Arena stores values of type T in reusable slots.
type Arena[T any] struct {
	kind    string
	entries []entry[T]
	free    []uint32
	live    int
}

// New returns an empty arena. kind names the element type in diagnostics.
func New[T any](kind string) *Arena[T] {
	return &Arena[T]{kind: kind}
}

// Kind returns the element kind name given to New.
func (a *Arena[T]) Kind() string {
	return a.kind
}

// Insert stores v and returns a fresh handle for it. Freed slots are reused
// most-recently-freed first.
func (a *Arena[T]) Insert(v T) Handle {
	a.live++
	if n := len(a.free); n > 0 {
		slot := a.free[n-1]
		a.free = a.free[:n-1]
		e := &a.entries[slot]
		e.value = v
		e.live = true
		return Handle{Slot: slot, Gen: e.gen}
	}
	slot := uint32(len(a.entries))
	a.entries = append(a.entries, entry[T]{value: v, gen: 1, live: true})
	return Handle{Slot: slot, Gen: 1}
}

// Get returns a pointer to the value for h, or false if h is stale or out of
// range. The pointer is valid until the next Insert.
func (a *Arena[T]) Get(h Handle) (*T, bool) {
	if int(h.Slot) >= len(a.entries) {
		return nil, false
	}
	e := &a.entries[h.Slot]
	if !e.live || e.gen != h.Gen {
		return nil, false
	}
	return &e.value, true
}

// Contains reports whether h resolves to a live value.
func (a *Arena[T]) Contains(h Handle) bool {
	_, ok := a.Get(h)
	return ok
}

// MustGet is Get for callers that treat a bad handle as a programming error.
// It panics with *InvalidHandleError.
func (a *Arena[T]) MustGet(h Handle) *T {
	v, ok := a.Get(h)
	if !ok {
		panic(&InvalidHandleError{Kind: a.kind, Handle: h})
	}
	return v
}

// Remove deletes the value for h and returns it. A slot whose generation
// cannot be bumped any further is retired instead of being reused.
func (a *Arena[T]) Remove(h Handle) (T, bool) {
	var zero T
	if !a.Contains(h) {
		return zero, false
	}
	e := &a.entries[h.Slot]
	v := e.value
	e.value = zero
	e.live = false
	a.live--
	if e.gen == math.MaxUint32 {
		return v, true
	}
	e.gen++
	a.free = append(a.free, h.Slot)
	return v, true
}

// Len returns the number of live values.
func (a *Arena[T]) Len() int {
	return a.live
}

// Handles returns the live handles in slot order.
func (a *Arena[T]) Handles() []Handle {
	out := make([]Handle, 0, a.live)
	for i := range a.entries {
		if a.entries[i].live {
			out = append(out, Handle{Slot: uint32(i), Gen: a.entries[i].gen})
		}
	}
	return out
}

// Each calls fn for every live value in slot order until fn returns false.
func (a *Arena[T]) Each(fn func(Handle, *T) bool) {
	for i := range a.entries {
		e := &a.entries[i]
		if !e.live {
			continue
		}
		if !fn(Handle{Slot: uint32(i), Gen: e.gen}, &e.value) {
			return
		}
	}
}

// Successor returns an empty arena that never issues a handle a has issued.
// Its slots are handed out in ascending order, so values inserted into it
// keep their insertion order in Handles.
func (a *Arena[T]) Successor() *Arena[T] {
	s := &Arena[T]{kind: a.kind, entries: make([]entry[T], len(a.entries))}
	for i := len(a.entries) - 1; i >= 0; i-- {
		gen := a.entries[i].gen
		if a.entries[i].live && gen < math.MaxUint32 {
			gen++
		}
		s.entries[i].gen = gen
		if gen == math.MaxUint32 {
			// retired
			continue
		}
		s.free = append(s.free, uint32(i))
	}
	return s
}

// Clone returns an independent copy of the arena. Values are copied by
// assignment.
func (a *Arena[T]) Clone() *Arena[T] {
	c := &Arena[T]{
		kind:    a.kind,
		entries: make([]entry[T], len(a.entries)),
		free:    make([]uint32, len(a.free)),
		live:    a.live,
	}
	copy(c.entries, a.entries)
	copy(c.free, a.free)
	return c
}
