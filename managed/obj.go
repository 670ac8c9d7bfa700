package managed

import "fmt"

// Obj holds a value of type T whose lifetime is controlled explicitly using
// Construct and Destruct. Using the value outside of its lifetime panics.
type Obj[T any] struct {
	constructed bool
	value       T
}

// Construct starts the lifetime of the value.
func (o *Obj[T]) Construct(value T) {
	if o.constructed {
		panic(fmt.Sprintf("managed: %T constructed twice", value))
	}

	o.value = value
	o.constructed = true
}

// Destruct ends the lifetime of the value. If *T or T implements
// interface{ Destruct() }, it is called before the value is cleared.
func (o *Obj[T]) Destruct() {
	if !o.constructed {
		panic(fmt.Sprintf("managed: %T destructed but not constructed", o.value))
	}

	switch value := any(&o.value).(type) {
	case interface{ Destruct() }:
		value.Destruct()

	default:
		if value, ok := any(o.value).(interface{ Destruct() }); ok {
			value.Destruct()
		}
	}

	var zero T
	o.value = zero
	o.constructed = false
}

// Get returns a pointer to the value. It panics if the value is not constructed.
func (o *Obj[T]) Get() *T {
	if !o.constructed {
		panic(fmt.Sprintf("managed: %T accessed outside of its lifetime", o.value))
	}

	return &o.value
}

func (o *Obj[T]) Constructed() bool {
	return o.constructed
}
