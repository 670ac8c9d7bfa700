// Package strata gives access to a process wide default layout.Registry.
//
// The default registry is created when the first reference is acquired and
// dropped when the last reference is released. A program typically acquires
// a reference at startup, declares its entity types, calls Finalize and keeps
// the reference until it shuts down:
//
//	ref := strata.Acquire()
//	defer ref.Release()
//
//	strata.DeclareRoot[Object]()
//	ships := strata.DeclareEntity[Ship, Object]()
//	strata.Finalize()
//
//	ship := ships.New()
//	body := strata.Get[Body](ship)
//
// Applications that need more than one registry, and tests, should use
// layout.NewRegistry directly.
package strata

import (
	"fmt"
	"log/slog"

	"github.com/oliverbestmann/strata/layout"
	"github.com/oliverbestmann/strata/managed"
	"github.com/oliverbestmann/strata/rtti"
)

var defaultOptions []layout.Option

var global = managed.NewGlobal(func() *layout.Registry {
	slog.Debug("Creating default registry")
	return layout.NewRegistry(defaultOptions...)
})

// Configure sets the options used when the default registry is created
// the next time. It panics if a default registry is alive.
func Configure(opts ...layout.Option) {
	if global.Refs() > 0 {
		panic(fmt.Errorf("%w: default registry is already alive", rtti.ErrRegisterAfterFreeze))
	}

	defaultOptions = opts
}

// Acquire returns a reference to the default registry, creating it if needed.
func Acquire() *managed.Ref[*layout.Registry] {
	return global.Acquire()
}

// Registry returns the default registry. It panics if no reference to the
// default registry is alive.
func Registry() *layout.Registry {
	registry, ok := global.Peek()
	if !ok {
		panic(fmt.Errorf("%w: no reference to the default registry, call strata.Acquire first", rtti.ErrUseBeforeReady))
	}

	return registry
}

func DeclareRoot[Root any]() {
	layout.DeclareRoot[Root](Registry())
}

func DeclareKind[K, Parent any]() {
	layout.DeclareKind[K, Parent](Registry())
}

func DeclareEntity[E, Parent any]() *layout.EntityType[E] {
	return layout.DeclareEntity[E, Parent](Registry())
}

func RegisterComponent[C any]() layout.ComponentId {
	return layout.RegisterComponent[C](Registry())
}

func Finalize() {
	Registry().Finalize()
}

func Has[C any](e layout.Entity) bool {
	return layout.Has[C](Registry(), e)
}

func Get[C any](e layout.Entity) *C {
	return layout.Get[C](Registry(), e)
}

func GetOrNil[C any](e layout.Entity) *C {
	return layout.GetOrNil[C](Registry(), e)
}

func IsA[K any](e layout.Entity) bool {
	return layout.IsA[K](Registry(), e)
}
