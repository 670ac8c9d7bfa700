package main

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/oliverbestmann/strata/internal/typedpool"
	"github.com/oliverbestmann/strata/layout"
)

type Stats struct {
	Entities int
	Duration time.Duration
}

// stressFirstBind creates entities of all types from many goroutines at once.
// None of the types is bound before, so the goroutines race to bind them.
// Every goroutine reads back the offset rows afterwards, they must all match
// the layout of the types.
func stressFirstBind(r *layout.Registry, types Types, goroutines, count int) (Stats, error) {
	walls := typedpool.New[Wall]()
	particles := typedpool.New[Particle]()
	actors := typedpool.New[Actor]()

	constructedBefore := constructed.Load()
	destructedBefore := destructed.Load()

	rows := make([][3][]layout.Offset, goroutines)
	failures := make([]error, goroutines)

	start := make(chan struct{})

	var wg sync.WaitGroup
	for idx := range goroutines {
		wg.Add(1)

		go func() {
			defer wg.Done()

			<-start

			for n := range count {
				var entity layout.Entity

				switch n % 3 {
				case 0:
					entity = types.Walls.Init(walls.Get())
				case 1:
					entity = types.Particles.Init(particles.Get())
				case 2:
					entity = types.Actors.Init(actors.Get())
				}

				if err := touch(r, entity); err != nil {
					failures[idx] = err
					return
				}

				switch entity := entity.(type) {
				case *Wall:
					types.Walls.Release(entity)
					walls.Put(entity)
				case *Particle:
					types.Particles.Release(entity)
					particles.Put(entity)
				case *Actor:
					types.Actors.Release(entity)
					actors.Put(entity)
				}
			}

			rows[idx] = [3][]layout.Offset{
				r.Row(types.Walls.Id()),
				r.Row(types.Particles.Id()),
				r.Row(types.Actors.Id()),
			}
		}()
	}

	startTime := time.Now()
	close(start)
	wg.Wait()

	stats := Stats{
		Entities: goroutines * count,
		Duration: time.Since(startTime),
	}

	if err := errors.Join(failures...); err != nil {
		return stats, err
	}

	expected := [3][]layout.Offset{
		expectedRow(r, types.Walls.Id()),
		expectedRow(r, types.Particles.Id()),
		expectedRow(r, types.Actors.Id()),
	}

	for idx, row := range rows {
		for typeIdx := range row {
			if !slices.Equal(row[typeIdx], expected[typeIdx]) {
				return stats, fmt.Errorf("goroutine %d read row %v, expected %v", idx, row[typeIdx], expected[typeIdx])
			}
		}
	}

	// every third entity is an actor, the only type with a Counter
	actorCount := int64(goroutines * (count / 3))

	constructedNow := constructed.Load() - constructedBefore
	destructedNow := destructed.Load() - destructedBefore

	if constructedNow != actorCount || destructedNow != actorCount {
		return stats, fmt.Errorf("expected %d constructions and destructions, got %d and %d",
			actorCount, constructedNow, destructedNow)
	}

	return stats, nil
}

// touch uses the components of an entity through its handle.
func touch(r *layout.Registry, entity layout.Entity) error {
	if !layout.IsA[Node](r, entity) {
		return fmt.Errorf("%s is not a node", r.ConcreteType(entity))
	}

	transform := layout.Get[Transform](r, entity)
	transform.X += 1

	if velocity := layout.GetOrNil[Velocity](r, entity); velocity != nil {
		velocity.X += 1

		if !layout.IsA[Dynamic](r, entity) {
			return fmt.Errorf("%s has a velocity but is not dynamic", r.ConcreteType(entity))
		}
	}

	if layout.Has[Label](r, entity) != layout.IsA[Actor](r, entity) {
		return fmt.Errorf("only actors should have a label, got %s", r.ConcreteType(entity))
	}

	return nil
}

// expectedRow computes the row of an entity type from its static layout.
func expectedRow(r *layout.Registry, entity layout.EntityId) []layout.Offset {
	fields, _ := r.Describe(entity)

	row := r.Row(entity)
	for idx := range row {
		row[idx] = r.InvalidOffset()
	}

	for _, field := range fields {
		row[field.Component.Value()] = layout.Offset(field.Offset)
	}

	return row
}
