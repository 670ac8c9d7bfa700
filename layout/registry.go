package layout

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/oliverbestmann/strata/internal/assert"
	"github.com/oliverbestmann/strata/rtti"
)

// binding is implemented by EntityType and gives the registry access to
// concrete entity types independent of their type parameter.
type binding interface {
	reflectType() reflect.Type
	describe() []FieldLayout
	bind()
}

// Registry combines the entity hierarchy, the component ids and the offset
// table. It starts in the rtti.Open phase, where entity and component types
// are declared. Finalize moves it to rtti.Frozen, after which entities can be
// created and queried.
//
// Declarations are not safe for concurrent use and should happen on a single
// goroutine during startup. All queries after Finalize are safe for
// concurrent use.
type Registry struct {
	config Config

	entities   *rtti.Hierarchy[entityCategory, uint16]
	components *rtti.LinearIds[componentCategory, uint16]
	offsets    *OffsetTable

	phase    atomic.Uint32
	finalize sync.Once
	failure  any

	mu       sync.Mutex
	concrete []binding

	// read only after Finalize
	byEntity map[EntityId]binding
}

func NewRegistry(opts ...Option) *Registry {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	return &Registry{
		config:     config,
		entities:   rtti.NewHierarchy[entityCategory, uint16](config.EntityStart),
		components: rtti.NewLinearIds[componentCategory, uint16]("components", config.ComponentStart),
		offsets:    NewOffsetTable(config.OffsetBits),
	}
}

func (r *Registry) Config() Config {
	return r.config
}

func (r *Registry) Phase() rtti.Phase {
	return rtti.Phase(r.phase.Load())
}

func (r *Registry) checkOpen(ty reflect.Type) {
	if r.Phase() != rtti.Open {
		panic(fmt.Errorf("%w: %s declared after Finalize", rtti.ErrRegisterAfterFreeze, ty))
	}
}

func (r *Registry) ready() {
	if r.Phase() != rtti.Frozen {
		panic(fmt.Errorf("%w: registry used before Finalize", rtti.ErrUseBeforeReady))
	}
}

// Finalize builds the entity hierarchy, freezes the component ids and
// allocates the offset table. Calls after the first one do nothing, unless
// the first one failed. Then they fail again.
func (r *Registry) Finalize() {
	r.finalize.Do(func() {
		defer func() {
			r.failure = recover()
		}()

		r.entities.Build()

		maxEntityId := int(r.entities.MaxId().Value())
		maxComponentId := int(r.components.MaxId().Value())
		r.offsets.Finalize(maxEntityId, maxComponentId)

		r.mu.Lock()
		r.byEntity = make(map[EntityId]binding, len(r.concrete))
		for _, b := range r.concrete {
			r.byEntity[r.entities.IdOf(b.reflectType())] = b
		}
		r.mu.Unlock()

		r.phase.Store(uint32(rtti.Frozen))

		slog.Debug(
			"Registry finalized",
			slog.Int("entityTypes", r.entities.Count()),
			slog.Int("concreteTypes", len(r.byEntity)),
			slog.Int("componentTypes", r.components.Count()),
		)
	})

	if r.failure != nil {
		panic(r.failure)
	}
}

func (r *Registry) registerComponent(ty reflect.Type) ComponentId {
	r.checkOpen(ty)
	assert.IsNonPointerType(ty)

	return r.components.Register(ty)
}

// Entities gives access to the hierarchy of entity types.
func (r *Registry) Entities() *rtti.Hierarchy[entityCategory, uint16] {
	return r.entities
}

// Components gives access to the component id category.
func (r *Registry) Components() *rtti.LinearIds[componentCategory, uint16] {
	return r.components
}

// InvalidOffset returns the sentinel returned by LookupOffset for absent components.
func (r *Registry) InvalidOffset() Offset {
	return r.offsets.Invalid()
}

// LookupOffset returns the offset of a component within entities of the given
// concrete type, or InvalidOffset if the entity type does not contain it.
// Reading the row of an entity type binds it, if that did not happen yet.
func (r *Registry) LookupOffset(entity EntityId, component ComponentId) Offset {
	r.bound(entity)
	return r.offsets.Lookup(int(entity.Value()), int(component.Value()))
}

// Row returns a copy of the offsets recorded for an entity type, indexed by
// component id value.
func (r *Registry) Row(entity EntityId) []Offset {
	r.bound(entity)
	return r.offsets.Row(int(entity.Value()))
}

// bound makes sure the row of a concrete entity type is written before it is
// read. Rows of kinds are never written.
func (r *Registry) bound(entity EntityId) {
	r.ready()

	if b, ok := r.byEntity[entity]; ok {
		b.bind()
	}
}

func (r *Registry) HasComponent(entity EntityId, component ComponentId) bool {
	return r.LookupOffset(entity, component) != r.offsets.Invalid()
}

// IsAncestorOf returns true if test is candidate or one of its descendants.
func (r *Registry) IsAncestorOf(candidate, test EntityId) bool {
	r.ready()
	return r.entities.IsAncestorOf(candidate, test)
}

// TypeOf returns the go type of an entity id.
func (r *Registry) TypeOf(entity EntityId) reflect.Type {
	r.ready()
	return r.entities.TypeOf(entity)
}

// Describe returns the component layout of a concrete entity type.
// This binds the entity type if it was not bound yet.
func (r *Registry) Describe(entity EntityId) ([]FieldLayout, bool) {
	r.ready()

	b, ok := r.byEntity[entity]
	if !ok {
		return nil, false
	}

	return b.describe(), true
}

// DeclareRoot declares the root of the entity hierarchy. Usually this is an
// abstract marker type that all entity types descend from.
func DeclareRoot[Root any](r *Registry) {
	ty := reflect.TypeFor[Root]()
	r.checkOpen(ty)
	r.entities.DeclareRoot(ty)
}

// DeclareKind declares an abstract entity type below Parent. Kinds have no
// instances, they only group their descendants.
func DeclareKind[K, Parent any](r *Registry) {
	ty := reflect.TypeFor[K]()
	r.checkOpen(ty)
	r.entities.DeclareChild(ty, reflect.TypeFor[Parent]())
}

// RegisterComponent makes C known as a component type.
func RegisterComponent[C any](r *Registry) ComponentId {
	return r.registerComponent(reflect.TypeFor[C]())
}

// ComponentIdOf returns the id of C, if C is a registered component.
func ComponentIdOf[C any](r *Registry) (ComponentId, bool) {
	r.ready()
	return r.components.Get(reflect.TypeFor[C]())
}

// EntityIdOf returns the id of a declared entity type or kind.
func EntityIdOf[T any](r *Registry) EntityId {
	r.ready()
	return r.entities.IdOf(reflect.TypeFor[T]())
}
