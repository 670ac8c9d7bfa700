package assert

import (
	"fmt"
	"reflect"
)

func IsNonPointerType(t reflect.Type) {
	if t.Kind() == reflect.Pointer {
		panic(fmt.Sprintf("expected non pointer type, got %s", t))
	}
}

// IsStructType panics if t is not a struct. what describes the role of
// the type in the message, e.g. "entity".
func IsStructType(t reflect.Type, what string) {
	if t.Kind() != reflect.Struct {
		panic(fmt.Sprintf("%s must be a struct type, got %s (%s)", what, t, t.Kind()))
	}
}
