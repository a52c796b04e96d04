package pool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type buffer struct {
	data []byte
}

func TestPoolReset(t *testing.T) {
	allocated := 0
	p := New(func() *buffer {
		allocated++
		return &buffer{}
	}, func(b *buffer) {
		b.data = b.data[:0]
	})

	b := p.Get()
	require.Equal(t, 1, allocated)
	b.data = append(b.data, 1, 2, 3)
	p.Put(b, nil)

	// sync.Pool may drop items at any time, so only the reset is deterministic
	b = p.Get()
	require.Empty(t, b.data)
}

func TestPoolNoReuse(t *testing.T) {
	ReuseMemory.Store(false)
	defer ReuseMemory.Store(true)

	allocated := 0
	p := New(func() *buffer {
		allocated++
		return &buffer{}
	}, nil)
	b := p.Get()
	p.Put(b)
	p.Get()
	require.Equal(t, 2, allocated)
}
