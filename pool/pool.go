// Package pool recycles buffers released by the consumer so the producer can reuse them.
package pool

import (
	"sync"

	"go.uber.org/atomic"
)

// ReuseMemory may be set to false to make every Get allocate (e.g. to hunt use-after-release bugs).
var ReuseMemory = atomic.NewBool(true)

type Pool[T any] struct {
	pool      sync.Pool
	resetFunc func(*T)
}

func New[T any](
	allocFunc func() *T,
	resetFunc func(*T),
) *Pool[T] {
	return &Pool[T]{
		pool: sync.Pool{
			New: func() any {
				return allocFunc()
			},
		},
		resetFunc: resetFunc,
	}
}

func (p *Pool[T]) Get() *T {
	if !ReuseMemory.Load() {
		return p.pool.New().(*T)
	}
	return p.pool.Get().(*T)
}

// Put resets the items and makes them available to Get; the caller must not use them anymore.
func (p *Pool[T]) Put(items ...*T) {
	if !ReuseMemory.Load() {
		return
	}
	for _, item := range items {
		if item == nil {
			continue
		}
		if p.resetFunc != nil {
			p.resetFunc(item)
		}
		p.pool.Put(item)
	}
}
