package main

import (
	"log/slog"
	"time"

	"github.com/oliverbestmann/strata/layout"
)

func timeLookups(r *layout.Registry, types Types, count int) []Timing {
	actor := types.Actors.New()
	defer types.Actors.Release(actor)

	wall := types.Walls.New()
	defer types.Walls.Release(wall)

	var entity layout.Entity = actor
	var other layout.Entity = wall

	var sink float64
	var hits int

	measure := func(name string, fn func()) Timing {
		startTime := time.Now()

		for range count {
			fn()
		}

		return Timing{Name: name, Duration: time.Since(startTime)}
	}

	timings := []Timing{
		measure("field access", func() { sink += actor.Transform.X }),
		measure("Get", func() { sink += layout.Get[Transform](r, entity).X }),
		measure("GetOrNil absent", func() {
			if layout.GetOrNil[Velocity](r, other) == nil {
				hits++
			}
		}),
		measure("Has", func() {
			if layout.Has[Collider](r, entity) {
				hits++
			}
		}),
		measure("IsA", func() {
			if layout.IsA[Dynamic](r, entity) {
				hits++
			}
		}),
	}

	slog.Debug("Lookups done", slog.Float64("sink", sink), slog.Int("hits", hits))

	return timings
}
