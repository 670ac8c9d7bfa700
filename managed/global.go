package managed

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Global is a lazily constructed, reference counted value. The value is
// constructed when the first reference is acquired and destructed when the
// last reference is released. Acquiring again later constructs a new value.
//
// Acquire and Release are safe for concurrent use.
type Global[T any] struct {
	construct func() T

	mu   sync.Mutex
	refs int
	obj  Obj[T]

	generation atomic.Uint64
}

// NewGlobal creates a Global that uses construct to create its value.
func NewGlobal[T any](construct func() T) *Global[T] {
	if construct == nil {
		panic("managed: NewGlobal(nil)")
	}

	return &Global[T]{construct: construct}
}

// Acquire returns a reference to the value, constructing it if necessary.
func (g *Global[T]) Acquire() *Ref[T] {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.refs == 0 {
		g.obj.Construct(g.construct())
		g.generation.Add(1)
	}

	g.refs += 1

	return &Ref[T]{global: g, value: g.obj.Get()}
}

func (g *Global[T]) release() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.refs <= 0 {
		panic(fmt.Sprintf("managed: %T released more often than acquired", g.obj.value))
	}

	g.refs -= 1

	if g.refs == 0 {
		g.obj.Destruct()
	}
}

// Peek returns the current value without taking a reference. The second
// return value is false if no reference is alive.
func (g *Global[T]) Peek() (T, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.refs == 0 {
		var zero T
		return zero, false
	}

	return *g.obj.Get(), true
}

// Refs returns the number of live references.
func (g *Global[T]) Refs() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.refs
}

// Generation counts how often the value was constructed.
func (g *Global[T]) Generation() uint64 {
	return g.generation.Load()
}

// Ref keeps the value of a Global alive until Release is called.
type Ref[T any] struct {
	global   *Global[T]
	value    *T
	released atomic.Bool
}

// Get returns the value. It must not be used after Release.
func (r *Ref[T]) Get() *T {
	if r.released.Load() {
		panic("managed: reference used after release")
	}

	return r.value
}

// Release drops the reference. Releasing twice panics.
func (r *Ref[T]) Release() {
	if !r.released.CompareAndSwap(false, true) {
		panic("managed: reference released twice")
	}

	r.global.release()
}
