package layout

type componentMarker struct{}

type isComponent interface {
	isLayoutComponent(componentMarker)
}

// Component marks a struct as a component. Entity types declared with
// DeclareEntity automatically register all marked component types they embed:
//
//	type Health struct {
//	   layout.Component[Health]
//	   Value int
//	}
//
// Plain types can be used as components too, they need to be registered
// explicitly using RegisterComponent.
type Component[C any] struct{}

func (Component[C]) isLayoutComponent(componentMarker) {}

// Constructor is implemented by components that need to run code whenever
// an entity containing them is initialized.
type Constructor interface {
	Construct()
}

// Destructor is implemented by components that need to run code whenever
// an entity containing them is released.
type Destructor interface {
	Destruct()
}
