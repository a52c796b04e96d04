package source

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xaionaro-go/avplayback/avconv"
	"github.com/xaionaro-go/avplayback/frame"
	"github.com/xaionaro-go/avplayback/logger"
	"github.com/xaionaro-go/avplayback/types"
	"go.uber.org/atomic"
)

// SyntheticConfig describes a generated constant-frame-rate stream.
type SyntheticConfig struct {
	Width, Height int
	TimeBase      types.Rational
	FrameRate     types.Rational
	StartTicks    int64
	FrameCount    int

	// GOPSize is the distance between sync points; seeks land on the
	// closest sync point at or before the target, like libav's backward seek.
	GOPSize int

	// SwapPairs emits every two consecutive frames in reversed order,
	// like a decoder that does not reorder B-frames.
	SwapPairs bool

	// DecodeDelay is slept before each decoded frame.
	DecodeDelay time.Duration

	Counters *types.Counters
}

// Synthetic is a Source generating frames out of thin air: frame #i has
// every luma byte equal to byte(i).
type Synthetic struct {
	config        SyntheticConfig
	metadata      Metadata
	frameDuration int64
	next          int
	counters      *types.Counters

	SeekCount atomic.Uint64
	closed    atomic.Bool
}

var _ Source = (*Synthetic)(nil)

func NewSynthetic(cfg SyntheticConfig) *Synthetic {
	if cfg.GOPSize <= 0 {
		cfg.GOPSize = 1
	}
	s := &Synthetic{
		config:   cfg,
		counters: cfg.Counters,
		metadata: Metadata{
			Width:      cfg.Width,
			Height:     cfg.Height,
			TimeBase:   cfg.TimeBase,
			StartTicks: cfg.StartTicks,
			FrameRate:  cfg.FrameRate,
			IsBT709:    cfg.Height >= 720,
			CodecName:  "synthetic",
		},
	}
	if s.counters == nil {
		s.counters = types.NewCounters()
	}
	s.frameDuration = s.metadata.NominalFrameDuration()
	s.metadata.DurationTicks = int64(cfg.FrameCount) * s.frameDuration
	return s
}

func (s *Synthetic) String() string {
	return fmt.Sprintf("Synthetic(%d frames)", s.config.FrameCount)
}

func (s *Synthetic) Metadata() Metadata {
	return s.metadata
}

// FrameDuration returns the duration of each frame in ticks.
func (s *Synthetic) FrameDuration() int64 {
	return s.frameDuration
}

func (s *Synthetic) PTSOf(idx int) int64 {
	return s.config.StartTicks + int64(idx)*s.frameDuration
}

func (s *Synthetic) emitOrder(idx int) int {
	if !s.config.SwapPairs {
		return idx
	}
	pair := idx ^ 1
	if pair >= s.config.FrameCount {
		return idx
	}
	return pair
}

func (s *Synthetic) DecodeNext(
	ctx context.Context,
	skipBeforeTicks int64,
) (*frame.Decoded, error) {
	if s.closed.Load() {
		return nil, fmt.Errorf("the source is closed")
	}
	for s.next < s.config.FrameCount {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		idx := s.emitOrder(s.next)
		s.next++
		if s.config.DecodeDelay > 0 {
			time.Sleep(s.config.DecodeDelay)
		}
		s.counters.Frames.Decoded.Increment(0)

		pts := s.PTSOf(idx)
		if skipBeforeTicks != avconv.NoPTS && pts < skipBeforeTicks {
			s.counters.Frames.Skipped.Increment(0)
			continue
		}

		f := frame.NewDecoded(s.config.Width, s.config.Height, pts, s.frameDuration)
		for i := range f.Y {
			f.Y[i] = byte(idx)
		}
		return f, nil
	}
	return nil, io.EOF
}

func (s *Synthetic) SeekTo(
	ctx context.Context,
	ticks int64,
) error {
	s.SeekCount.Inc()
	idx := 0
	if s.frameDuration > 0 && ticks > s.config.StartTicks {
		idx = int((ticks - s.config.StartTicks) / s.frameDuration)
	}
	if idx > s.config.FrameCount {
		idx = s.config.FrameCount
	}
	idx -= idx % s.config.GOPSize
	logger.Debugf(ctx, "seeking to %d: sync point is frame #%d", ticks, idx)
	s.next = idx
	return nil
}

func (s *Synthetic) Close(ctx context.Context) error {
	s.closed.Store(true)
	return nil
}
