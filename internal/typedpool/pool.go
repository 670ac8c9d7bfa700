package typedpool

import "sync"

// Pool is a typed wrapper around sync.Pool. Values returned to the pool
// are reset to their zero value before they are handed out again.
type Pool[T any] struct {
	pool sync.Pool
}

func New[T any]() *Pool[T] {
	return &Pool[T]{
		pool: sync.Pool{
			New: func() any { return new(T) },
		},
	}
}

func (p *Pool[T]) Get() *T {
	return p.pool.Get().(*T)
}

func (p *Pool[T]) Put(value *T) {
	var zero T
	*value = zero

	p.pool.Put(value)
}
