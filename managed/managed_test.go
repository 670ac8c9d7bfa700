package managed

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type counters struct {
	constructed atomic.Int64
	destructed  atomic.Int64
}

type tracked struct {
	counters *counters
	Value    int
}

func (t *tracked) Destruct() {
	t.counters.destructed.Add(1)
}

func newGlobal(c *counters) *Global[tracked] {
	return NewGlobal(func() tracked {
		c.constructed.Add(1)
		return tracked{counters: c, Value: 42}
	})
}

func TestObj(t *testing.T) {
	var c counters

	var obj Obj[tracked]
	require.False(t, obj.Constructed())
	require.Panics(t, func() { obj.Get() })
	require.Panics(t, func() { obj.Destruct() })

	obj.Construct(tracked{counters: &c, Value: 1})
	require.True(t, obj.Constructed())
	require.Equal(t, 1, obj.Get().Value)
	require.Panics(t, func() { obj.Construct(tracked{}) })

	obj.Destruct()
	require.False(t, obj.Constructed())
	require.EqualValues(t, 1, c.destructed.Load())
}

func TestGlobalBasic(t *testing.T) {
	var c counters
	global := newGlobal(&c)

	_, ok := global.Peek()
	require.False(t, ok)

	{
		a := global.Acquire()
		require.EqualValues(t, 1, c.constructed.Load())
		require.EqualValues(t, 0, c.destructed.Load())

		b := global.Acquire()
		require.EqualValues(t, 1, c.constructed.Load())
		require.Same(t, a.Get(), b.Get())
		require.Equal(t, 2, global.Refs())

		b.Release()
		a.Release()
	}

	require.EqualValues(t, 1, c.constructed.Load())
	require.EqualValues(t, 1, c.destructed.Load())
	require.Equal(t, 0, global.Refs())

	{
		a := global.Acquire()
		require.EqualValues(t, 2, c.constructed.Load())

		value, ok := global.Peek()
		require.True(t, ok)
		require.Equal(t, 42, value.Value)

		a.Release()
	}

	require.EqualValues(t, 2, c.constructed.Load())
	require.EqualValues(t, 2, c.destructed.Load())
	require.EqualValues(t, 2, global.Generation())
}

func TestRefReleaseTwice(t *testing.T) {
	var c counters
	global := newGlobal(&c)

	ref := global.Acquire()
	ref.Release()

	require.Panics(t, func() { ref.Release() })
	require.Panics(t, func() { ref.Get() })
	require.Equal(t, 0, global.Refs())
}

func TestGlobalThreads(t *testing.T) {
	var c counters
	global := newGlobal(&c)

	var stop atomic.Bool
	var wg sync.WaitGroup

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for !stop.Load() {
				a := global.Acquire()
				b := global.Acquire()

				if a.Get().Value != 42 {
					panic("unexpected value")
				}

				b.Release()
				a.Release()
			}
		}()
	}

	time.Sleep(100 * time.Millisecond)
	stop.Store(true)
	wg.Wait()

	require.Equal(t, 0, global.Refs())
	require.Equal(t, c.constructed.Load(), c.destructed.Load())
	require.Positive(t, c.constructed.Load())
}
