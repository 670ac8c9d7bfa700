package layout

import (
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"sync"
	"unsafe"

	"github.com/oliverbestmann/strata/internal/assert"
	"github.com/oliverbestmann/strata/internal/refl"
	"github.com/oliverbestmann/strata/internal/set"
	"github.com/oliverbestmann/strata/rtti"
)

// FieldLayout describes where a component lives within a concrete entity type.
type FieldLayout struct {
	Component ComponentId
	Type      reflect.Type

	// Path is the dotted path of the field, e.g. "Vehicle.Engine"
	Path string

	Offset uintptr
	Size   uintptr
	Align  uintptr
}

// EntityType is the binder of a concrete entity type E. Use it to create or
// initialize instances of E. The first instance binds the type: the offsets
// of all components of E are written to the offset table of the registry.
// Binding happens exactly once, even if many goroutines create the first
// instances concurrently.
type EntityType[E any] struct {
	registry *Registry
	ty       reflect.Type

	once         sync.Once
	failure      any
	id           EntityId
	fields       []FieldLayout
	constructors []FieldLayout
	destructors  []FieldLayout
}

// DeclareEntity declares the concrete entity type E as a child of Parent.
// E must be a struct with Base as its first embedded field. Component types
// embedding Component[C] found in E are registered automatically.
func DeclareEntity[E any, Parent any](r *Registry) *EntityType[E] {
	ty := reflect.TypeFor[E]()
	r.checkOpen(ty)

	assert.IsStructType(ty, "entity")

	if offset, ok := refl.EmbeddedOffset(ty, baseType); !ok || offset != 0 {
		panic(fmt.Errorf("%w: %s must embed layout.Base as its first field", rtti.ErrInvalidEntity, ty))
	}

	r.entities.DeclareChild(ty, reflect.TypeFor[Parent]())

	isMarked := func(field refl.Field) bool {
		return refl.EmbedsDirectly[isComponent](field.Type)
	}

	descend := func(field refl.Field) bool {
		return field.Anonymous && field.Type != baseType && !isMarked(field)
	}

	for field := range refl.WalkFields(ty, descend) {
		if isMarked(field) {
			r.registerComponent(field.Type)
		}
	}

	entityType := &EntityType[E]{registry: r, ty: ty}

	r.mu.Lock()
	r.concrete = append(r.concrete, entityType)
	r.mu.Unlock()

	return entityType
}

func (t *EntityType[E]) bind() {
	// check outside of once, a failed Do would never run again
	t.registry.ready()

	t.once.Do(func() {
		defer func() {
			// a failed bind must fail again on every later use
			t.failure = recover()
		}()

		t.bindOnce()
	})

	if t.failure != nil {
		panic(t.failure)
	}
}

func (t *EntityType[E]) bindOnce() {
	r := t.registry

	t.id = r.entities.IdOf(t.ty)

	isComponentField := func(field refl.Field) (ComponentId, bool) {
		return r.components.Get(field.Type)
	}

	descend := func(field refl.Field) bool {
		if !field.Anonymous || field.Type == baseType {
			return false
		}

		_, ok := isComponentField(field)
		return !ok
	}

	var seen set.Set[ComponentId]
	var fields, constructors, destructors []FieldLayout

	for field := range refl.WalkFields(t.ty, descend) {
		componentId, ok := isComponentField(field)
		if !ok {
			continue
		}

		if !seen.Insert(componentId) {
			panic(fmt.Errorf("%w: %s found again at %s in %s",
				rtti.ErrDuplicateComponent, field.Type, field.PathString(), t.ty))
		}

		if field.Offset >= uintptr(r.offsets.Invalid()) {
			panic(fmt.Errorf("%w: %s at offset %d in %s does not fit below the sentinel %d",
				rtti.ErrIdentifierOverflow, field.Type, field.Offset, t.ty, r.offsets.Invalid()))
		}

		fieldLayout := FieldLayout{
			Component: componentId,
			Type:      field.Type,
			Path:      field.PathString(),
			Offset:    field.Offset,
			Size:      field.Type.Size(),
			Align:     uintptr(field.Type.Align()),
		}

		fields = append(fields, fieldLayout)

		ptrType := reflect.PointerTo(field.Type)

		if ptrType.Implements(reflect.TypeFor[Constructor]()) {
			constructors = append(constructors, fieldLayout)
		}

		if ptrType.Implements(reflect.TypeFor[Destructor]()) {
			destructors = append(destructors, fieldLayout)
		}
	}

	// the row is only written once the whole layout is known to be valid
	for _, field := range fields {
		r.offsets.Record(int(t.id.Value()), int(field.Component.Value()), field.Offset)
	}

	t.fields = fields
	t.constructors = constructors
	t.destructors = destructors

	slog.Debug(
		"Entity type bound",
		slog.String("type", t.ty.String()),
		slog.Any("id", t.id),
		slog.Int("components", len(t.fields)),
	)
}

// componentAt returns a pointer to the component described by field,
// boxed in an interface.
func componentAt(entity unsafe.Pointer, field FieldLayout) any {
	return reflect.NewAt(field.Type, unsafe.Add(entity, field.Offset)).Interface()
}

// New allocates and initializes a new entity on the heap.
func (t *EntityType[E]) New() *E {
	return t.Init(new(E))
}

// Init initializes an entity in caller owned memory, e.g. on the stack or
// taken from a pool. It stamps the entity with its type id and calls
// Construct on all components implementing Constructor. Initializing an
// entity that was not released panics.
func (t *EntityType[E]) Init(entity *E) *E {
	t.bind()

	ptr := unsafe.Pointer(entity)

	base := (*Base)(ptr)
	if base.stamped {
		panic(fmt.Errorf("%w: %s initialized twice", rtti.ErrInvalidEntity, t.ty))
	}

	base.id = t.id
	base.stamped = true

	for _, field := range t.constructors {
		componentAt(ptr, field).(Constructor).Construct()
	}

	return entity
}

// Release calls Destruct on all components implementing Destructor, in
// reverse field order. The entity can not be queried afterwards.
func (t *EntityType[E]) Release(entity *E) {
	ptr := unsafe.Pointer(entity)

	base := (*Base)(ptr)
	if !base.stamped {
		panic(fmt.Errorf("%w: %s released twice or never initialized", rtti.ErrInvalidEntity, t.ty))
	}

	for _, field := range slices.Backward(t.destructors) {
		componentAt(ptr, field).(Destructor).Destruct()
	}

	base.stamped = false
}

// Id returns the entity id of E.
func (t *EntityType[E]) Id() EntityId {
	t.bind()
	return t.id
}

func (t *EntityType[E]) Type() reflect.Type {
	return t.ty
}

// Layout returns the components of E in field order.
func (t *EntityType[E]) Layout() []FieldLayout {
	t.bind()
	return slices.Clone(t.fields)
}

// Has answers from the layout of E, without consulting the offset table.
func (t *EntityType[E]) Has(component ComponentId) bool {
	t.bind()

	return slices.ContainsFunc(t.fields, func(field FieldLayout) bool {
		return field.Component == component
	})
}

func (t *EntityType[E]) reflectType() reflect.Type {
	return t.ty
}

func (t *EntityType[E]) describe() []FieldLayout {
	return t.Layout()
}

// HasStatic returns true if entity type E contains the component C.
func HasStatic[C any, E any](t *EntityType[E]) bool {
	componentId, ok := ComponentIdOf[C](t.registry)
	return ok && t.Has(componentId)
}
