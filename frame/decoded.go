// Package frame defines decoded video frames handed from the decoding goroutine to the consumer.
package frame

import (
	"fmt"

	"github.com/xaionaro-go/avplayback/pool"
)

// Planes is a read-only view of a planar YUV 4:2:0 picture. The chroma
// planes (U, V) have half the luma resolution in both dimensions. A row may
// be longer than the logical width (see the strides).
//
// The slices are valid only during the callback they were passed to.
type Planes struct {
	Y, U, V                   []byte
	YStride, UStride, VStride int
	Width, Height             int
}

// ChromaWidth returns the logical width of the U and V planes.
func (p Planes) ChromaWidth() int {
	return (p.Width + 1) / 2
}

// ChromaHeight returns the logical height of the U and V planes.
func (p Planes) ChromaHeight() int {
	return (p.Height + 1) / 2
}

// Size returns the total amount of bytes in the three planes.
func (p Planes) Size() int {
	return len(p.Y) + len(p.U) + len(p.V)
}

// Decoded is an independently owned copy of one decoded picture.
//
// It never aliases decoder memory: the decoder reuses its buffers on the next call.
type Decoded struct {
	Planes

	// PTS and Duration are in ticks of the stream's time base.
	PTS      int64
	Duration int64

	buffer *planeBuffer
}

type planeBuffer struct {
	data []byte
}

var planeBuffers = pool.New(
	func() *planeBuffer { return &planeBuffer{} },
	func(b *planeBuffer) { b.data = b.data[:0] },
)

func (f *Decoded) String() string {
	if f == nil {
		return "<nil>"
	}
	return fmt.Sprintf("Frame(pts:%d, dur:%d, %dx%d)", f.PTS, f.Duration, f.Width, f.Height)
}

// Release drops the references to the plane buffers, recycling them if
// they came from the pool (NewDecoded, Copier). Releasing twice is a no-op.
func (f *Decoded) Release() {
	f.Planes = Planes{}
	if f.buffer != nil {
		planeBuffers.Put(f.buffer)
		f.buffer = nil
	}
}

// NewDecoded allocates a zeroed frame of the given logical size with
// tightly packed planes; the memory is recycled by Release.
func NewDecoded(width, height int, pts, duration int64) *Decoded {
	f := allocDecoded(width, height, pts, duration)
	clear(f.buffer.data)
	return f
}

// allocDecoded is NewDecoded without zeroing; the planes follow each
// other in the buffer the way libav packs a yuv420p image with align 1.
func allocDecoded(width, height int, pts, duration int64) *Decoded {
	cw, ch := (width+1)/2, (height+1)/2
	ySize, cSize := width*height, cw*ch

	b := planeBuffers.Get()
	if total := ySize + 2*cSize; cap(b.data) < total {
		b.data = make([]byte, total)
	} else {
		b.data = b.data[:total]
	}
	return &Decoded{
		buffer: b,
		Planes: Planes{
			Y:       b.data[:ySize:ySize],
			U:       b.data[ySize : ySize+cSize : ySize+cSize],
			V:       b.data[ySize+cSize:],
			YStride: width,
			UStride: cw,
			VStride: cw,
			Width:   width,
			Height:  height,
		},
		PTS:      pts,
		Duration: duration,
	}
}
