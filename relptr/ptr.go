// Package relptr provides a pointer that stores the distance to its target
// instead of an address. Copying a struct that holds both the pointer and its
// target keeps the pointer pointing into the copy.
package relptr

import (
	"fmt"
	"unsafe"
)

// Signed lists the widths a Ptr can store its offset in.
type Signed interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~int
}

// Ptr is a self relative pointer to a T. The zero value is nil.
//
// The target must live in the same allocation as the Ptr itself, usually a
// sibling field of the same struct. Resolving a Ptr whose target lives in a
// different allocation is undefined. A Ptr can not point to its own address.
type Ptr[T any, I Signed] struct {
	offset I
}

func (p *Ptr[T, I]) self() uintptr {
	return uintptr(unsafe.Pointer(p))
}

// Set points p to target. A nil target clears the pointer.
func (p *Ptr[T, I]) Set(target *T) {
	if target == nil {
		p.offset = 0
		return
	}

	distance := int64(uintptr(unsafe.Pointer(target)) - p.self())
	if distance == 0 {
		panic("relptr: pointer can not point to itself")
	}

	offset := I(distance)
	if int64(offset) != distance {
		panic(fmt.Sprintf("relptr: offset %d does not fit into %T", distance, offset))
	}

	p.offset = offset
}

// Get returns the target, or nil.
func (p *Ptr[T, I]) Get() *T {
	if p.offset == 0 {
		return nil
	}

	return (*T)(unsafe.Add(unsafe.Pointer(p), int(p.offset)))
}

// MustGet works like Get but panics on a nil pointer.
func (p *Ptr[T, I]) MustGet() *T {
	target := p.Get()
	if target == nil {
		panic(fmt.Sprintf("relptr: nil dereference of %T", p))
	}

	return target
}

func (p *Ptr[T, I]) IsNil() bool {
	return p.offset == 0
}

func (p *Ptr[T, I]) Clear() {
	p.offset = 0
}

// Offset returns the stored distance in bytes.
func (p *Ptr[T, I]) Offset() I {
	return p.offset
}
