package layout

import (
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"unsafe"

	"github.com/oliverbestmann/strata/rtti"
	"github.com/stretchr/testify/require"
)

func requirePanicsWith(t *testing.T, target error, fn func()) {
	t.Helper()

	defer func() {
		err, _ := recover().(error)
		require.ErrorIs(t, err, target)
	}()

	fn()
}

type Object struct{}

type Shape struct{}

type X struct {
	Component[X]
	Value int
}

type Y struct {
	Component[Y]
	Value string
}

type Z struct {
	Component[Z]
	Value float64
}

// Velocity is not marked and must be registered explicitly
type Velocity struct {
	DX, DY float64
}

type E1 struct {
	Base
	X
	Y
}

type E2 struct {
	Base
	Y
	Z
}

type Inner struct {
	Z
	Label string
}

type E3 struct {
	Base
	Inner
	Velocity Velocity
}

type fixture struct {
	registry *Registry
	e1       *EntityType[E1]
	e2       *EntityType[E2]
	e3       *EntityType[E3]
}

func newFixture(opts ...Option) fixture {
	r := NewRegistry(opts...)

	DeclareRoot[Object](r)
	DeclareKind[Shape, Object](r)
	RegisterComponent[Velocity](r)

	f := fixture{
		registry: r,
		e1:       DeclareEntity[E1, Shape](r),
		e2:       DeclareEntity[E2, Shape](r),
		e3:       DeclareEntity[E3, Object](r),
	}

	r.Finalize()

	return f
}

func TestLayoutRoundTrip(t *testing.T) {
	f := newFixture()
	r := f.registry

	e1 := f.e1.New()
	e1.X.Value = 7

	require.True(t, Has[X](r, e1))
	require.True(t, Has[Y](r, e1))
	require.False(t, Has[Z](r, e1))

	// querying through the base handle yields the same component
	require.Same(t, &e1.X, Get[X](r, e1))
	require.Same(t, Get[X](r, e1), Get[X](r, &e1.Base))
	require.Equal(t, 7, Get[X](r, &e1.Base).Value)

	var e2 E2
	f.e2.Init(&e2)

	require.False(t, Has[X](r, &e2))
	require.Nil(t, GetOrNil[X](r, &e2))
	require.Same(t, &e2.Z, Get[Z](r, &e2))

	requirePanicsWith(t, rtti.ErrMissingComponent, func() { Get[X](r, &e2) })

	// component ids are shared, offsets differ per entity type
	yId, ok := ComponentIdOf[Y](r)
	require.True(t, ok)
	require.EqualValues(t, unsafe.Offsetof(E1{}.Y), r.LookupOffset(f.e1.Id(), yId))
	require.EqualValues(t, unsafe.Offsetof(e2.Y), r.LookupOffset(f.e2.Id(), yId))

	require.Equal(t, reflect.TypeFor[E2](), r.ConcreteType(&e2))
}

func TestNestedAndExplicitComponents(t *testing.T) {
	f := newFixture()
	r := f.registry

	e3 := f.e3.New()

	var shape E3

	require.Same(t, &e3.Inner.Z, Get[Z](r, e3))
	require.Same(t, &e3.Velocity, Get[Velocity](r, e3))
	require.False(t, Has[Y](r, e3))

	fields := f.e3.Layout()
	require.Len(t, fields, 2)

	require.Equal(t, "Inner.Z", fields[0].Path)
	require.Equal(t, unsafe.Offsetof(shape.Inner)+unsafe.Offsetof(shape.Inner.Z), fields[0].Offset)
	require.Equal(t, reflect.TypeFor[Z]().Size(), fields[0].Size)

	require.Equal(t, "Velocity", fields[1].Path)
	require.Equal(t, unsafe.Offsetof(shape.Velocity), fields[1].Offset)
}

func TestHierarchyQueries(t *testing.T) {
	f := newFixture()
	r := f.registry

	e1 := f.e1.New()
	e3 := f.e3.New()

	require.True(t, IsA[Object](r, e1))
	require.True(t, IsA[Shape](r, e1))
	require.True(t, IsA[E1](r, e1))
	require.False(t, IsA[E2](r, e1))

	require.True(t, IsA[Object](r, e3))
	require.False(t, IsA[Shape](r, e3))

	require.True(t, r.IsAncestorOf(EntityIdOf[Shape](r), f.e2.Id()))
	require.Equal(t, reflect.TypeFor[Shape](), r.TypeOf(EntityIdOf[Shape](r)))
}

func TestDescribe(t *testing.T) {
	f := newFixture()
	r := f.registry

	fields, ok := r.Describe(f.e2.Id())
	require.True(t, ok)
	require.Len(t, fields, 2)

	var e2 E2
	require.Equal(t, reflect.TypeFor[Y](), fields[0].Type)
	require.Equal(t, unsafe.Offsetof(e2.Y), fields[0].Offset)
	require.Equal(t, reflect.TypeFor[Z](), fields[1].Type)
	require.Equal(t, unsafe.Offsetof(e2.Z), fields[1].Offset)

	// describing binds the row even without any instance
	require.True(t, r.HasComponent(f.e2.Id(), fields[0].Component))

	// kinds have no layout
	_, ok = r.Describe(EntityIdOf[Shape](r))
	require.False(t, ok)
}

func TestHasStatic(t *testing.T) {
	f := newFixture()

	require.True(t, HasStatic[X](f.e1))
	require.False(t, HasStatic[Z](f.e1))
	require.True(t, HasStatic[Velocity](f.e3))

	// not a component at all
	require.False(t, HasStatic[Object](f.e1))
}

func TestPhases(t *testing.T) {
	r := NewRegistry()
	require.Equal(t, rtti.Open, r.Phase())

	DeclareRoot[Object](r)
	e1 := DeclareEntity[E1, Object](r)

	requirePanicsWith(t, rtti.ErrUseBeforeReady, func() { e1.New() })
	requirePanicsWith(t, rtti.ErrUseBeforeReady, func() { Has[X](r, &E1{}) })

	r.Finalize()
	r.Finalize()
	require.Equal(t, rtti.Frozen, r.Phase())
	require.Equal(t, "frozen", r.Phase().String())

	requirePanicsWith(t, rtti.ErrRegisterAfterFreeze, func() { RegisterComponent[Velocity](r) })
	requirePanicsWith(t, rtti.ErrRegisterAfterFreeze, func() { DeclareEntity[E2, Object](r) })
	requirePanicsWith(t, rtti.ErrRegisterAfterFreeze, func() { DeclareKind[Shape, Object](r) })

	// works now that the registry is frozen
	require.NotNil(t, e1.New())
}

func TestInvalidEntities(t *testing.T) {
	type NoBase struct {
		X
	}

	type LateBase struct {
		X
		Base
	}

	r := NewRegistry()
	DeclareRoot[Object](r)

	requirePanicsWith(t, rtti.ErrInvalidEntity, func() { DeclareEntity[NoBase, Object](r) })
	requirePanicsWith(t, rtti.ErrInvalidEntity, func() { DeclareEntity[LateBase, Object](r) })

	e1 := DeclareEntity[E1, Object](r)
	r.Finalize()

	// never initialized
	requirePanicsWith(t, rtti.ErrInvalidEntity, func() { Has[X](r, &E1{}) })

	entity := e1.New()
	e1.Release(entity)
	require.False(t, entity.Initialized())

	requirePanicsWith(t, rtti.ErrInvalidEntity, func() { e1.Release(entity) })
	requirePanicsWith(t, rtti.ErrInvalidEntity, func() { entity.EntityId() })
}

func TestDuplicateComponent(t *testing.T) {
	type Twice struct {
		Base
		X
		Other X
	}

	r := NewRegistry()
	DeclareRoot[Object](r)
	twice := DeclareEntity[Twice, Object](r)
	r.Finalize()

	requirePanicsWith(t, rtti.ErrDuplicateComponent, func() { twice.New() })

	// the failure sticks
	requirePanicsWith(t, rtti.ErrDuplicateComponent, func() { twice.New() })

	// queries fail the same way instead of reporting a partial layout
	twiceId := EntityIdOf[Twice](r)
	xId, _ := ComponentIdOf[X](r)
	requirePanicsWith(t, rtti.ErrDuplicateComponent, func() { r.HasComponent(twiceId, xId) })
	requirePanicsWith(t, rtti.ErrDuplicateComponent, func() { r.Row(twiceId) })

	// nothing of the failed layout was written
	for _, offset := range r.offsets.Row(int(twiceId.Value())) {
		require.Equal(t, r.InvalidOffset(), offset)
	}
}

func TestOffsetOverflow(t *testing.T) {
	type Large struct {
		Base
		Padding [300]byte
		X
	}

	r := NewRegistry(WithOffsetBits(8))
	DeclareRoot[Object](r)
	large := DeclareEntity[Large, Object](r)
	r.Finalize()

	require.EqualValues(t, 0xff, r.InvalidOffset())
	requirePanicsWith(t, rtti.ErrIdentifierOverflow, func() { large.New() })

	for _, offset := range r.offsets.Row(int(EntityIdOf[Large](r).Value())) {
		require.Equal(t, r.InvalidOffset(), offset)
	}
}

func TestFailedFinalize(t *testing.T) {
	type Detached struct{}

	r := NewRegistry()
	DeclareRoot[Object](r)
	DeclareKind[Shape, Detached](r)

	requirePanicsWith(t, rtti.ErrOrphanType, r.Finalize)

	// the registry stays unusable
	requirePanicsWith(t, rtti.ErrOrphanType, r.Finalize)
	require.Equal(t, rtti.Open, r.Phase())
	requirePanicsWith(t, rtti.ErrUseBeforeReady, func() { EntityIdOf[Object](r) })
}

func TestInitTwice(t *testing.T) {
	resetCounters()

	r := NewRegistry()
	DeclareRoot[Object](r)
	pooled := DeclareEntity[Pooled, Object](r)
	r.Finalize()

	var entity Pooled
	pooled.Init(&entity)

	requirePanicsWith(t, rtti.ErrInvalidEntity, func() { pooled.Init(&entity) })
	require.EqualValues(t, 1, constructed.Load())

	// a released entity can be initialized again
	pooled.Release(&entity)
	pooled.Init(&entity)
	require.True(t, entity.Alive)
	require.EqualValues(t, 2, constructed.Load())
}

func TestStartValues(t *testing.T) {
	f := newFixture(WithEntityStart(10), WithComponentStart(3))
	r := f.registry

	require.EqualValues(t, 10, EntityIdOf[Object](r).Value())
	require.EqualValues(t, 3, r.Components().Start())

	velocity, ok := ComponentIdOf[Velocity](r)
	require.True(t, ok)
	require.EqualValues(t, 3, velocity.Value())

	e1 := f.e1.New()
	Get[X](r, e1).Value = 7
	require.Equal(t, 7, e1.X.Value)
}

var (
	constructed atomic.Int64
	destructed  atomic.Int64
)

type Tracked struct {
	Component[Tracked]
	Alive bool
}

func (t *Tracked) Construct() {
	t.Alive = true
	constructed.Add(1)
}

func (t *Tracked) Destruct() {
	t.Alive = false
	destructed.Add(1)
}

type Pooled struct {
	Base
	X
	Tracked
}

func resetCounters() {
	constructed.Store(0)
	destructed.Store(0)
}

func TestLifecycleAccounting(t *testing.T) {
	resetCounters()

	r := NewRegistry()
	DeclareRoot[Object](r)
	pooled := DeclareEntity[Pooled, Object](r)
	r.Finalize()

	const count = 100

	var entities []*Pooled
	for range count {
		entity := pooled.New()
		require.True(t, entity.Alive)

		entities = append(entities, entity)
	}

	require.EqualValues(t, count, constructed.Load())
	require.EqualValues(t, 0, destructed.Load())

	for _, entity := range entities {
		pooled.Release(entity)
		require.False(t, entity.Alive)
	}

	require.EqualValues(t, count, constructed.Load())
	require.EqualValues(t, count, destructed.Load())
}

func TestConcurrentFirstBind(t *testing.T) {
	resetCounters()

	r := NewRegistry()
	DeclareRoot[Object](r)
	pooled := DeclareEntity[Pooled, Object](r)
	r.Finalize()

	xId, _ := ComponentIdOf[X](r)
	trackedId, _ := ComponentIdOf[Tracked](r)

	const goroutines = 64
	const perGoroutine = 50

	rows := make([][2]Offset, goroutines)

	start := make(chan struct{})

	var wg sync.WaitGroup
	for idx := range goroutines {
		wg.Add(1)

		go func() {
			defer wg.Done()

			<-start

			for range perGoroutine {
				var entity Pooled
				pooled.Init(&entity)

				Get[X](r, &entity).Value += 1

				rows[idx] = [2]Offset{
					r.LookupOffset(entity.EntityId(), xId),
					r.LookupOffset(entity.EntityId(), trackedId),
				}

				pooled.Release(&entity)
			}
		}()
	}

	close(start)
	wg.Wait()

	var entity Pooled
	expected := [2]Offset{
		Offset(unsafe.Offsetof(entity.X)),
		Offset(unsafe.Offsetof(entity.Tracked)),
	}

	for _, row := range rows {
		require.Equal(t, expected, row)
	}

	require.EqualValues(t, goroutines*perGoroutine, constructed.Load())
	require.Equal(t, constructed.Load(), destructed.Load())
}

func TestRowDuringFirstBind(t *testing.T) {
	resetCounters()

	r := NewRegistry()
	DeclareRoot[Object](r)
	pooled := DeclareEntity[Pooled, Object](r)
	r.Finalize()

	pooledId := EntityIdOf[Pooled](r)
	xId, _ := ComponentIdOf[X](r)
	trackedId, _ := ComponentIdOf[Tracked](r)

	var entity Pooled
	expected := r.offsets.Row(int(pooledId.Value()))
	expected[xId.Value()] = Offset(unsafe.Offsetof(entity.X))
	expected[trackedId.Value()] = Offset(unsafe.Offsetof(entity.Tracked))

	const readers = 32

	rows := make([][]Offset, readers)
	has := make([]bool, readers)

	start := make(chan struct{})

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		<-start
		pooled.Release(pooled.New())
	}()

	for idx := range readers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			<-start
			rows[idx] = r.Row(pooledId)
			has[idx] = r.HasComponent(pooledId, trackedId)
		}()
	}

	close(start)
	wg.Wait()

	for idx := range readers {
		require.Equal(t, expected, rows[idx])
		require.True(t, has[idx])
	}
}

func BenchmarkGet(b *testing.B) {
	r := NewRegistry()
	DeclareRoot[Object](r)
	e2 := DeclareEntity[E2, Object](r)
	r.Finalize()

	var entity Entity = e2.New()

	for b.Loop() {
		Get[Z](r, entity).Value += 1
	}
}

func BenchmarkIsA(b *testing.B) {
	f := newFixture()

	var entity Entity = f.e1.New()

	for b.Loop() {
		_ = IsA[Shape](f.registry, entity)
	}
}
