package main

import (
	"sync/atomic"

	"github.com/oliverbestmann/strata/layout"
)

type Node struct{}

type Static struct{}

type Dynamic struct{}

type Transform struct {
	layout.Component[Transform]
	X, Y, Rotation float64
}

type Velocity struct {
	layout.Component[Velocity]
	X, Y float64
}

type Collider struct {
	layout.Component[Collider]
	Radius float64
	Mask   uint32
}

type Label struct {
	layout.Component[Label]
	Text string
}

var (
	constructed atomic.Int64
	destructed  atomic.Int64
)

// Counter counts constructions and destructions of the entities it is part of.
type Counter struct {
	layout.Component[Counter]
	Serial int64
}

func (c *Counter) Construct() {
	c.Serial = constructed.Add(1)
}

func (c *Counter) Destruct() {
	destructed.Add(1)
}

type Wall struct {
	layout.Base
	Transform
	Collider
}

type Particle struct {
	layout.Base
	Transform
	Velocity
}

type Actor struct {
	layout.Base
	Label
	Transform
	Velocity
	Collider
	Counter
}

type Types struct {
	Walls     *layout.EntityType[Wall]
	Particles *layout.EntityType[Particle]
	Actors    *layout.EntityType[Actor]
}

func declare(r *layout.Registry) Types {
	layout.DeclareRoot[Node](r)
	layout.DeclareKind[Static, Node](r)
	layout.DeclareKind[Dynamic, Node](r)

	return Types{
		Walls:     layout.DeclareEntity[Wall, Static](r),
		Particles: layout.DeclareEntity[Particle, Dynamic](r),
		Actors:    layout.DeclareEntity[Actor, Dynamic](r),
	}
}
