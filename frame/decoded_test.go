package frame

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewDecodedLayout(t *testing.T) {
	f := NewDecoded(5, 3, 100, 10)
	require.Len(t, f.Y, 15)
	require.Equal(t, 3, f.ChromaWidth())
	require.Equal(t, 2, f.ChromaHeight())
	require.Len(t, f.U, 6)
	require.Len(t, f.V, 6)
	require.Equal(t, 5, f.YStride)
	require.Equal(t, 3, f.UStride)
	require.Equal(t, 27, f.Size())

	// the planes must not overlap
	f.Y = append(f.Y, 0xff)
	require.Zero(t, f.U[0])
	f.U = append(f.U, 0xff)
	require.Zero(t, f.V[0])
}

func TestDecodedRelease(t *testing.T) {
	f := NewDecoded(4, 4, 0, 1)
	for i := range f.Y {
		f.Y[i] = 0xaa
	}
	f.Release()
	require.Nil(t, f.Y)
	require.Zero(t, f.Size())
	f.Release()

	g := NewDecoded(4, 4, 1, 1)
	for _, b := range g.Y {
		require.Zero(t, b)
	}
	g.Release()

	(&Decoded{PTS: 1}).Release()
}
