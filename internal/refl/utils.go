package refl

import (
	"iter"
	"reflect"
	"strings"
)

func IterFields(ty reflect.Type) iter.Seq[reflect.StructField] {
	return func(yield func(reflect.StructField) bool) {
		for idx := range ty.NumField() {
			if !yield(ty.Field(idx)) {
				return
			}
		}
	}
}

// Field is a struct field found by WalkFields. Offset is relative to the
// start of the outermost struct, not to the struct that declares the field.
type Field struct {
	reflect.StructField
	Offset uintptr
	Path   []string
}

func (f Field) PathString() string {
	return strings.Join(f.Path, ".")
}

// WalkFields yields the fields of the struct type ty in declaration order.
// If descend returns true for a struct typed field, the walk continues with
// the fields of that struct before moving on to the next sibling.
func WalkFields(ty reflect.Type, descend func(field Field) bool) iter.Seq[Field] {
	return func(yield func(Field) bool) {
		walkFields(ty, 0, nil, descend, yield)
	}
}

func walkFields(ty reflect.Type, base uintptr, path []string, descend func(Field) bool, yield func(Field) bool) bool {
	for structField := range IterFields(ty) {
		field := Field{
			StructField: structField,
			Offset:      base + structField.Offset,
			Path:        append(path[:len(path):len(path)], structField.Name),
		}

		if !yield(field) {
			return false
		}

		if field.Type.Kind() == reflect.Struct && descend(field) {
			if !walkFields(field.Type, field.Offset, field.Path, descend, yield) {
				return false
			}
		}
	}

	return true
}

// EmbeddedOffset searches ty for target, following anonymous fields only.
// It returns the offset of the first occurrence in declaration order.
func EmbeddedOffset(ty, target reflect.Type) (uintptr, bool) {
	onlyEmbedded := func(field Field) bool { return field.Anonymous }

	for field := range WalkFields(ty, onlyEmbedded) {
		if field.Anonymous && field.Type == target {
			return field.Offset, true
		}
	}

	return 0, false
}

// ImplementsInterfaceDirectly returns true if ty implements If by itself and
// not only because it embeds another type implementing If.
func ImplementsInterfaceDirectly[If any](ty reflect.Type) bool {
	iface := reflect.TypeFor[If]()

	if !ty.Implements(iface) {
		return false
	}

	for ty.Kind() == reflect.Pointer {
		ty = ty.Elem()
	}

	if ty.Kind() != reflect.Struct {
		return true
	}

	for field := range IterFields(ty) {
		if !field.Anonymous {
			continue
		}

		if field.Type.Implements(iface) {
			return false
		}

		if reflect.PointerTo(field.Type).Implements(iface) {
			return false
		}
	}

	return true
}

// EmbedsDirectly returns true if exactly one of the anonymous fields of the
// struct ty implements If directly. This is how a marker type like
// layout.Component[C] is recognized without matching types that merely
// embed another marked type.
func EmbedsDirectly[If any](ty reflect.Type) bool {
	if ty.Kind() != reflect.Struct || !ty.Implements(reflect.TypeFor[If]()) {
		return false
	}

	var count int
	for field := range IterFields(ty) {
		if field.Anonymous && ImplementsInterfaceDirectly[If](field.Type) {
			count += 1
		}
	}

	return count == 1
}
