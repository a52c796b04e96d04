package frame

import (
	"github.com/go-ng/container/heap"
)

type decodedByPTS []*Decoded

func (s decodedByPTS) Len() int {
	return len(s)
}

func (s decodedByPTS) Less(i, j int) bool {
	return s[i].PTS < s[j].PTS
}

func (s decodedByPTS) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
}

func (s *decodedByPTS) Push(f *Decoded) {
	*s = append(*s, f)
}

func (s *decodedByPTS) Pop() *Decoded {
	old := *s
	n := len(old)
	f := old[n-1]
	old[n-1] = nil
	*s = old[:n-1]
	return f
}

// ReorderBuffer holds up to Depth frames and releases them in PTS order.
// It is for decoders that do not output frames in presentation order.
//
// A zero Depth makes it a pass-through.
type ReorderBuffer struct {
	Depth uint
	items decodedByPTS
}

func NewReorderBuffer(depth uint) *ReorderBuffer {
	return &ReorderBuffer{
		Depth: depth,
		items: make(decodedByPTS, 0, depth+1),
	}
}

// Push adds a frame and returns the frame with the lowest PTS if the
// buffer exceeded its depth, otherwise nil.
func (b *ReorderBuffer) Push(f *Decoded) *Decoded {
	if b.Depth == 0 {
		return f
	}
	heap.Push(&b.items, f)
	if uint(b.items.Len()) <= b.Depth {
		return nil
	}
	return heap.Pop(&b.items)
}

// Pop returns the frame with the lowest PTS, or nil if empty.
func (b *ReorderBuffer) Pop() *Decoded {
	if b.items.Len() == 0 {
		return nil
	}
	return heap.Pop(&b.items)
}

func (b *ReorderBuffer) Len() int {
	return b.items.Len()
}

// Reset releases all the buffered frames.
func (b *ReorderBuffer) Reset() {
	for i := range b.items {
		b.items[i].Release()
		b.items[i] = nil
	}
	b.items = b.items[:0]
}
