package rtti

import (
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
)

// LinearId is a dense identifier handed out by a LinearIds category. The Tag
// type parameter separates categories at compile time: ids of two categories
// with different tags can not be compared or mixed up.
type LinearId[Tag any, I Unsigned] struct {
	value I
}

func (id LinearId[Tag, I]) Value() I {
	return id.value
}

func (id LinearId[Tag, I]) String() string {
	return strconv.FormatUint(uint64(id.value), 10)
}

func (id LinearId[Tag, I]) LogValue() slog.Value {
	return slog.Uint64Value(uint64(id.value))
}

// LinearIds assigns increasing ids to go types, starting at a configurable
// value. The first read of any id freezes the category. Registering a new
// type afterwards is a usage error.
//
// Registration is meant to happen during a single threaded bootstrap phase.
// Reads after the category is frozen do not take any locks.
type LinearIds[Tag any, I Unsigned] struct {
	name  string
	start I

	mu      sync.Mutex
	frozen  atomic.Bool
	counter uint64
	ids     map[UniqueId]I
	types   []reflect.Type
}

func NewLinearIds[Tag any, I Unsigned](name string, start I) *LinearIds[Tag, I] {
	return &LinearIds[Tag, I]{
		name:    name,
		start:   start,
		counter: uint64(start),
		ids:     map[UniqueId]I{},
	}
}

// Register returns the id of the given type, assigning the next free id
// if the type was not seen before.
func (l *LinearIds[Tag, I]) Register(ty reflect.Type) LinearId[Tag, I] {
	key := UniqueIdFor(ty)

	l.mu.Lock()
	defer l.mu.Unlock()

	if value, ok := l.ids[key]; ok {
		return LinearId[Tag, I]{value: value}
	}

	if l.frozen.Load() {
		panic(fmt.Errorf("%w: type %s registered in category %q after its ids were read",
			ErrRegisterAfterFreeze, ty, l.name))
	}

	value := nextValue[I](l.counter, "id of "+ty.String())
	l.counter += 1

	l.ids[key] = value
	l.types = append(l.types, ty)

	slog.Debug(
		"New type registered",
		slog.String("category", l.name),
		slog.String("type", ty.String()),
		slog.Uint64("id", uint64(value)),
	)

	return LinearId[Tag, I]{value: value}
}

// Get returns the id of a type, if it was registered. This freezes the category.
func (l *LinearIds[Tag, I]) Get(ty reflect.Type) (LinearId[Tag, I], bool) {
	l.freeze()

	// the map does not change anymore once frozen
	value, ok := l.ids[UniqueIdFor(ty)]
	return LinearId[Tag, I]{value: value}, ok
}

// IdOf works like Get but panics if the type was never registered.
func (l *LinearIds[Tag, I]) IdOf(ty reflect.Type) LinearId[Tag, I] {
	id, ok := l.Get(ty)
	if !ok {
		panic(fmt.Errorf("%w: %s is not registered in category %q", ErrUnknownType, ty, l.name))
	}

	return id
}

// MaxId returns one past the highest id handed out. This freezes the category.
func (l *LinearIds[Tag, I]) MaxId() LinearId[Tag, I] {
	l.freeze()
	return LinearId[Tag, I]{value: I(l.counter)}
}

// Count returns the number of registered types. This freezes the category.
func (l *LinearIds[Tag, I]) Count() int {
	return int(l.MaxId().value - l.start)
}

func (l *LinearIds[Tag, I]) Start() I {
	return l.start
}

func (l *LinearIds[Tag, I]) Name() string {
	return l.name
}

func (l *LinearIds[Tag, I]) Frozen() bool {
	return l.frozen.Load()
}

// Types returns the registered types in the order of their ids.
// It does not freeze the category.
func (l *LinearIds[Tag, I]) Types() []reflect.Type {
	l.mu.Lock()
	defer l.mu.Unlock()

	return slices.Clone(l.types)
}

func (l *LinearIds[Tag, I]) freeze() {
	if l.frozen.Load() {
		return
	}

	// taking the lock orders all previous registrations before the store
	l.mu.Lock()
	l.frozen.Store(true)
	l.mu.Unlock()
}

// Register registers T with the given category.
func Register[T any, Tag any, I Unsigned](l *LinearIds[Tag, I]) LinearId[Tag, I] {
	return l.Register(reflect.TypeFor[T]())
}

// IdOf returns the id of T in the given category, freezing the category.
func IdOf[T any, Tag any, I Unsigned](l *LinearIds[Tag, I]) LinearId[Tag, I] {
	return l.IdOf(reflect.TypeFor[T]())
}
