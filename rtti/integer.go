package rtti

import "fmt"

// Unsigned lists the integer widths identifiers can be stored in. The width
// is chosen by the user of a LinearIds or Hierarchy and bounds the number of
// types it can hold.
type Unsigned interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uint
}

// MaxOf returns the largest value representable by I.
func MaxOf[I Unsigned]() I {
	return ^I(0)
}

// nextValue returns counter as an I, making sure that counter+1 is still
// representable, as it will be handed out as the exclusive upper bound later.
func nextValue[I Unsigned](counter uint64, what string) I {
	if counter >= uint64(MaxOf[I]()) {
		panic(fmt.Errorf("%w: %s does not fit into %T", ErrIdentifierOverflow, what, I(0)))
	}

	return I(counter)
}
