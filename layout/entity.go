package layout

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/oliverbestmann/strata/rtti"
)

// Base must be embedded as the first field of every concrete entity type.
// It holds the id of the concrete type, stamped when the entity is
// initialized through its EntityType.
type Base struct {
	id      EntityId
	stamped bool
}

func (b *Base) entityBase() *Base {
	return b
}

// EntityId returns the id of the concrete type of the entity.
func (b *Base) EntityId() EntityId {
	if !b.stamped {
		panic(fmt.Errorf("%w: entity was not initialized", rtti.ErrInvalidEntity))
	}

	return b.id
}

// Initialized returns true if the entity was initialized and not yet released.
func (b *Base) Initialized() bool {
	return b.stamped
}

// Entity is a handle to any entity. A pointer to a struct embedding Base
// satisfies it, as does *Base itself.
type Entity interface {
	entityBase() *Base
}

var baseType = reflect.TypeFor[Base]()

func baseOf(e Entity) *Base {
	base := e.entityBase()
	if !base.stamped {
		panic(fmt.Errorf("%w: entity was not initialized", rtti.ErrInvalidEntity))
	}

	return base
}

func (r *Registry) offsetOf(base *Base, ty reflect.Type) (Offset, bool) {
	component, ok := r.components.Get(ty)
	if !ok {
		return 0, false
	}

	offset := r.offsets.Lookup(int(base.id.Value()), int(component.Value()))
	return offset, offset != r.offsets.Invalid()
}

// ConcreteType returns the go type the entity was initialized as.
func (r *Registry) ConcreteType(e Entity) reflect.Type {
	return r.TypeOf(baseOf(e).id)
}

// Has returns true if the entity contains a component of type C.
func Has[C any](r *Registry, e Entity) bool {
	r.ready()

	_, ok := r.offsetOf(baseOf(e), reflect.TypeFor[C]())
	return ok
}

// GetOrNil returns a pointer to the component C of the entity,
// or nil if the entity does not contain C.
func GetOrNil[C any](r *Registry, e Entity) *C {
	r.ready()

	base := baseOf(e)

	offset, ok := r.offsetOf(base, reflect.TypeFor[C]())
	if !ok {
		return nil
	}

	// Base is the first field of the entity, so its address is the
	// address of the entity itself
	return (*C)(unsafe.Add(unsafe.Pointer(base), offset))
}

// Get returns a pointer to the component C of the entity. It panics
// if the entity does not contain C.
func Get[C any](r *Registry, e Entity) *C {
	component := GetOrNil[C](r, e)
	if component == nil {
		panic(fmt.Errorf("%w: %s does not contain %s",
			rtti.ErrMissingComponent, r.ConcreteType(e), reflect.TypeFor[C]()))
	}

	return component
}

// IsA returns true if the entity is of type K or any of its descendants.
func IsA[K any](r *Registry, e Entity) bool {
	r.ready()

	kind := r.entities.IdOf(reflect.TypeFor[K]())
	return r.entities.IsAncestorOf(kind, baseOf(e).id)
}
