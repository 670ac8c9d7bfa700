package layout

import "github.com/oliverbestmann/strata/rtti"

type entityCategory struct{}

type componentCategory struct{}

// EntityId identifies an entity type within the hierarchy of a Registry.
type EntityId = rtti.HierarchyId[entityCategory, uint16]

// ComponentId identifies a component type within a Registry.
type ComponentId = rtti.LinearId[componentCategory, uint16]

// Offset is the distance in bytes from the start of an entity to one of its components.
type Offset = uint32
