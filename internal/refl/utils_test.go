package refl

import (
	"reflect"
	"slices"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

type marker interface {
	mark()
}

type Marker struct{}

func (Marker) mark() {}

type Marked struct {
	Marker
	Value int
}

type Nested struct {
	Marked
	Extra int
}

type Header struct {
	Id int32
}

type Outer struct {
	Header
	Name  string
	Inner Nested
	Nested
}

func TestWalkFields(t *testing.T) {
	descend := func(field Field) bool {
		return field.Anonymous
	}

	var paths []string
	offsets := map[string]uintptr{}

	for field := range WalkFields(reflect.TypeFor[Outer](), descend) {
		paths = append(paths, field.PathString())
		offsets[field.PathString()] = field.Offset
	}

	require.Equal(t, []string{
		"Header",
		"Header.Id",
		"Name",
		"Inner",
		"Nested",
		"Nested.Marked",
		"Nested.Marked.Marker",
		"Nested.Marked.Value",
		"Nested.Extra",
	}, paths)

	var outer Outer
	require.Equal(t, unsafe.Offsetof(outer.Nested)+unsafe.Offsetof(outer.Nested.Marked)+unsafe.Offsetof(outer.Nested.Marked.Value),
		offsets["Nested.Marked.Value"])
	require.Equal(t, unsafe.Offsetof(outer.Nested)+unsafe.Offsetof(outer.Nested.Extra), offsets["Nested.Extra"])
}

func TestWalkFieldsStops(t *testing.T) {
	all := func(Field) bool { return true }

	var names []string
	for field := range WalkFields(reflect.TypeFor[Outer](), all) {
		names = append(names, field.Name)
		if field.Name == "Name" {
			break
		}
	}

	require.Equal(t, []string{"Header", "Id", "Name"}, names)
}

func TestEmbeddedOffset(t *testing.T) {
	var outer Outer

	offset, ok := EmbeddedOffset(reflect.TypeFor[Outer](), reflect.TypeFor[Marked]())
	require.True(t, ok)
	require.Equal(t, unsafe.Offsetof(outer.Nested)+unsafe.Offsetof(outer.Nested.Marked), offset)

	offset, ok = EmbeddedOffset(reflect.TypeFor[Outer](), reflect.TypeFor[Header]())
	require.True(t, ok)
	require.Zero(t, offset)

	// not embedded, only a regular field
	_, ok = EmbeddedOffset(reflect.TypeFor[Header](), reflect.TypeFor[Nested]())
	require.False(t, ok)
}

func TestEmbedsDirectly(t *testing.T) {
	require.True(t, EmbedsDirectly[marker](reflect.TypeFor[Marked]()))
	require.False(t, EmbedsDirectly[marker](reflect.TypeFor[Nested]()))
	require.False(t, EmbedsDirectly[marker](reflect.TypeFor[Header]()))
	require.False(t, EmbedsDirectly[marker](reflect.TypeFor[int]()))

	require.True(t, ImplementsInterfaceDirectly[marker](reflect.TypeFor[Marker]()))
	require.False(t, ImplementsInterfaceDirectly[marker](reflect.TypeFor[Marked]()))
}

func TestIterFields(t *testing.T) {
	var names []string
	for field := range IterFields(reflect.TypeFor[Nested]()) {
		names = append(names, field.Name)
	}

	require.True(t, slices.Equal([]string{"Marked", "Extra"}, names))
}
