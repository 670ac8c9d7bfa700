package rtti

import (
	"fmt"
	"reflect"
	"unsafe"
)

// UniqueId identifies a go type. Two UniqueIds are equal exactly if they
// were created for the same type. Other than LinearId, a UniqueId does not
// need any registration and is not dense.
type UniqueId struct {
	ptr unsafe.Pointer
}

func UniqueIdOf[T any]() UniqueId {
	return UniqueIdFor(reflect.TypeFor[T]())
}

func UniqueIdFor(ty reflect.Type) UniqueId {
	if ty == nil {
		panic(fmt.Errorf("%w: nil type", ErrUnknownType))
	}

	return UniqueId{ptr: abiTypePointerTo(ty)}
}

func (u UniqueId) String() string {
	return fmt.Sprintf("type@%p", u.ptr)
}

func abiTypePointerTo(t reflect.Type) unsafe.Pointer {
	type eface struct {
		typ, val unsafe.Pointer
	}

	// a reflect.Type is backed by an *rType, which starts with the abi.Type.
	// The pointer is unique per type for the lifetime of the process.
	return (*eface)(unsafe.Pointer(&t)).val
}
