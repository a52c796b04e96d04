package frame

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReorderBuffer(t *testing.T) {
	b := NewReorderBuffer(2)

	var out []int64
	push := func(pts int64) {
		if f := b.Push(&Decoded{PTS: pts}); f != nil {
			out = append(out, f.PTS)
		}
	}
	// I P B B order as emitted by a decoder without reordering
	for _, pts := range []int64{0, 3, 1, 2, 6, 4, 5} {
		push(pts)
	}
	for f := b.Pop(); f != nil; f = b.Pop() {
		out = append(out, f.PTS)
	}
	require.Equal(t, []int64{0, 1, 2, 3, 4, 5, 6}, out)
	require.Zero(t, b.Len())
}

func TestReorderBufferPassThrough(t *testing.T) {
	b := NewReorderBuffer(0)
	f := &Decoded{PTS: 42}
	require.Same(t, f, b.Push(f))
	require.Nil(t, b.Pop())
}

func TestReorderBufferReset(t *testing.T) {
	b := NewReorderBuffer(3)
	f1 := NewDecoded(4, 4, 1, 1)
	f2 := NewDecoded(4, 4, 2, 1)
	require.Nil(t, b.Push(f1))
	require.Nil(t, b.Push(f2))
	b.Reset()
	require.Zero(t, b.Len())
	require.Nil(t, b.Pop())

	// the dropped frames went back to the pool
	for _, f := range []*Decoded{f1, f2} {
		require.Nil(t, f.buffer)
		require.Zero(t, f.Size())
	}
}

func TestNewDecoded(t *testing.T) {
	f := NewDecoded(5, 3, 10, 1)
	require.Len(t, f.Y, 15)
	require.Len(t, f.U, 6)
	require.Len(t, f.V, 6)
	require.Equal(t, 3, f.ChromaWidth())
	require.Equal(t, 2, f.ChromaHeight())
	require.Equal(t, 27, f.Size())
	require.Equal(t, "Frame(pts:10, dur:1, 5x3)", f.String())
	f.Release()
	require.Zero(t, f.Size())
}
