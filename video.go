// Package avplayback decodes a video stream in a background goroutine and
// hands the decoded frames to a presentation loop, paced by their
// timestamps, with pause/resume, single-stepping and seeking.
package avplayback

import (
	"context"
	"fmt"
	"time"

	"github.com/facebookincubator/go-belt"
	"github.com/xaionaro-go/avplayback/avconv"
	"github.com/xaionaro-go/avplayback/frame"
	"github.com/xaionaro-go/avplayback/framequeue"
	"github.com/xaionaro-go/avplayback/logger"
	"github.com/xaionaro-go/avplayback/source"
	"github.com/xaionaro-go/avplayback/types"
	"go.uber.org/atomic"
)

// Video is the playback pipeline of a single video stream.
//
// Except for Statistics, SeekState and Close, the methods must be called
// from the single goroutine running the presentation loop. None of them
// blocks on decoding.
type Video struct {
	source   source.Source
	metadata source.Metadata
	queue    *framequeue.Queue
	worker   *DecodeWorker
	clock    *PlaybackClock
	counters *types.Counters

	cancelFunc context.CancelFunc
	closed     atomic.Bool
}

var _ types.Closer = (*Video)(nil)

// Open opens the media by URL (or a file path) and starts decoding it.
// The playback starts paused.
func Open(
	ctx context.Context,
	url string,
	cfg Config,
) (*Video, error) {
	if cfg.Counters == nil {
		cfg.Counters = types.NewCounters()
	}
	src, err := source.Open(ctx, url, cfg.AuthKey, cfg.Config)
	if err != nil {
		return nil, err
	}
	return New(ctx, src, cfg), nil
}

// New starts decoding the given source; the Video takes the ownership of it.
func New(
	ctx context.Context,
	src source.Source,
	cfg Config,
) *Video {
	if cfg.Counters == nil {
		cfg.Counters = types.NewCounters()
	}
	ctx = belt.WithField(ctx, "source", fmt.Sprint(src))
	ctx, cancelFn := context.WithCancel(ctx)

	m := src.Metadata()
	v := &Video{
		source:     src,
		metadata:   m,
		queue:      framequeue.New(ctx, framequeue.DefaultCapacity),
		clock:      newPlaybackClock(cfg, m.TimeBase),
		counters:   cfg.Counters,
		cancelFunc: cancelFn,
	}
	v.worker = newDecodeWorker(src, v.queue, cfg.ReorderDepth, cfg.Counters)
	v.worker.start(ctx)
	return v
}

// ConsumeFrame hands the next due frame to callback and returns true; it
// returns false without calling callback if the playback is paused (and
// force-display is not set), the next frame is not due yet, or no frame
// is decoded yet (underflow).
//
// The planes are valid only until callback returns.
func (v *Video) ConsumeFrame(
	callback func(pts, duration int64, planes frame.Planes),
) bool {
	if !v.clock.mayConsume() {
		return false
	}
	f := v.queue.TryPop()
	if f == nil {
		v.counters.Underflows.Inc()
		return false
	}
	defer f.Release()

	callback(f.PTS, f.Duration, f.Planes)
	v.clock.onDisplayed(f.PTS, f.Duration)
	v.counters.Frames.Consumed.Increment(uint64(f.Size()))
	return true
}

// SeekPTS requests a seek to the timestamp in ticks of TimeBase. All the
// queued frames are dropped before it returns, and the next consumed
// frame is the first one at or after the target.
func (v *Video) SeekPTS(ctx context.Context, ticks int64) {
	v.SeekSeconds(ctx, avconv.TicksToSeconds(ticks, v.metadata.TimeBase))
}

// SeekSeconds is SeekPTS with the target as pts*TimeBase.
func (v *Video) SeekSeconds(ctx context.Context, seconds float64) {
	v.counters.Seeks.Inc()
	v.queue.RequestSeek(ctx, seconds)
	v.clock.reset()
}

func (v *Video) Seek(ctx context.Context, ts time.Duration) {
	v.SeekSeconds(ctx, ts.Seconds())
}

func (v *Video) SeekState() SeekState {
	return v.worker.SeekState()
}

func (v *Video) Play(playing bool) {
	v.clock.SetPlaying(playing)
}

func (v *Video) Playing() bool {
	return v.clock.Playing()
}

// SetForceDisplay allows exactly one frame to be consumed regardless of pausing and pacing.
func (v *Video) SetForceDisplay() {
	v.clock.SetForceDisplay()
}

func (v *Video) ClearForceDisplay() {
	v.clock.ClearForceDisplay()
}

func (v *Video) ForceDisplay() bool {
	return v.clock.ForceDisplay()
}

// LastPTS returns the timestamp of the last consumed frame, or avconv.NoPTS.
func (v *Video) LastPTS() int64 {
	return v.clock.LastPTS()
}

func (v *Video) StartPTS() int64 {
	return v.metadata.StartTicks
}

func (v *Video) DurationPTS() int64 {
	return v.metadata.DurationTicks
}

func (v *Video) DurationSec() float64 {
	return avconv.TicksToSeconds(v.metadata.DurationTicks, v.metadata.TimeBase)
}

// TimeBase returns the amount of seconds per tick.
func (v *Video) TimeBase() types.Rational {
	return v.metadata.TimeBase
}

func (v *Video) FrameSize() (width, height int) {
	return v.metadata.Width, v.metadata.Height
}

func (v *Video) ColorspaceIsBT709() bool {
	return v.metadata.IsBT709
}

func (v *Video) Metadata() source.Metadata {
	return v.metadata
}

func (v *Video) Statistics() types.Statistics {
	return v.counters.ToStats()
}

// Close stops the decoding goroutine, waits for it to return and closes the source.
func (v *Video) Close(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "Close")
	defer func() { logger.Debugf(ctx, "/Close: %v", _err) }()
	if !v.closed.CompareAndSwap(false, true) {
		return nil
	}
	v.queue.Close(ctx)
	v.cancelFunc()
	<-v.worker.Done()
	return v.source.Close(ctx)
}
