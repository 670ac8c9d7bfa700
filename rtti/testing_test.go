package rtti

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// requirePanicsWith runs fn and requires it to panic with an error wrapping target.
func requirePanicsWith(t *testing.T, target error, fn func()) {
	t.Helper()

	defer func() {
		err, _ := recover().(error)
		require.ErrorIs(t, err, target)
	}()

	fn()
}
