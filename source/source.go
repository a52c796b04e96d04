// Package source provides the decoded-frame sources the decoding goroutine pulls from.
package source

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/avplayback/frame"
	"github.com/xaionaro-go/avplayback/types"
)

// Source yields decoded frames of a single video stream.
//
// Implementations are used by exactly one goroutine at a time; only
// Metadata is safe to be called concurrently.
type Source interface {
	Metadata() Metadata

	// DecodeNext returns the next decoded frame, discarding the frames
	// with PTS strictly earlier than skipBeforeTicks (pass avconv.NoPTS
	// to discard nothing). io.EOF is returned at the end of the stream.
	DecodeNext(ctx context.Context, skipBeforeTicks int64) (*frame.Decoded, error)

	// SeekTo moves to the closest sync point at or before the given
	// timestamp and drops everything buffered in the decoder.
	SeekTo(ctx context.Context, ticks int64) error

	types.Closer
}

// Metadata is the immutable description of the selected video stream.
type Metadata struct {
	Width  int
	Height int

	// TimeBase is the amount of seconds per tick.
	TimeBase types.Rational

	StartTicks    int64
	DurationTicks int64

	// FrameRate is the nominal amount of frames per second.
	FrameRate types.Rational

	IsBT709   bool
	CodecName string
}

func (m Metadata) String() string {
	return fmt.Sprintf(
		"%s %dx%d@%s (time_base: %s, start: %d, duration: %d, bt709: %t)",
		m.CodecName, m.Width, m.Height, m.FrameRate, m.TimeBase, m.StartTicks, m.DurationTicks, m.IsBT709,
	)
}

// NominalFrameDuration returns one frame interval in ticks, or 0 if unknown.
func (m Metadata) NominalFrameDuration() int64 {
	if m.FrameRate.IsZero() || m.TimeBase.IsZero() {
		return 0
	}
	// ticks = 1/fps / tb
	d := m.FrameRate.Reverse().Mul(m.TimeBase.Reverse()).Float64()
	if d < 1 {
		return 1
	}
	return int64(d + 0.5)
}
