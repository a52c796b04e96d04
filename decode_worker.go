package avplayback

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/facebookincubator/go-belt"
	"github.com/xaionaro-go/avplayback/avconv"
	"github.com/xaionaro-go/avplayback/frame"
	"github.com/xaionaro-go/avplayback/framequeue"
	"github.com/xaionaro-go/avplayback/logger"
	"github.com/xaionaro-go/avplayback/source"
	"github.com/xaionaro-go/avplayback/types"
	"github.com/xaionaro-go/observability"
	"go.uber.org/atomic"
)

type SeekState int32

const (
	SeekStateRunning = SeekState(iota)
	SeekStateSeekPending
	SeekStateFlushing
	SeekStateResuming
)

func (s SeekState) String() string {
	switch s {
	case SeekStateRunning:
		return "running"
	case SeekStateSeekPending:
		return "seek_pending"
	case SeekStateFlushing:
		return "flushing"
	case SeekStateResuming:
		return "resuming"
	}
	return fmt.Sprintf("unknown_%d", int32(s))
}

// DecodeWorker is the producer: it decodes frames from the source into
// the queue until the queue is closed, acting upon seek requests found
// in the queue's state.
type DecodeWorker struct {
	source   source.Source
	queue    *framequeue.Queue
	reorder  *frame.ReorderBuffer
	counters *types.Counters

	generation framequeue.Generation
	skipBefore int64
	lastPTS    int64

	state           atomic.Int32
	stateGeneration atomic.Uint64
	done            chan struct{}
}

func newDecodeWorker(
	src source.Source,
	queue *framequeue.Queue,
	reorderDepth uint,
	counters *types.Counters,
) *DecodeWorker {
	return &DecodeWorker{
		source:     src,
		queue:      queue,
		reorder:    frame.NewReorderBuffer(reorderDepth),
		counters:   counters,
		generation: queue.Generation(),
		skipBefore: avconv.NoPTS,
		lastPTS:    avconv.NoPTS,
		done:       make(chan struct{}),
	}
}

func (w *DecodeWorker) start(ctx context.Context) {
	observability.Go(ctx, func(ctx context.Context) {
		defer close(w.done)
		w.serve(ctx)
	})
}

// Done is closed when the worker has returned.
func (w *DecodeWorker) Done() <-chan struct{} {
	return w.done
}

// SeekState is for diagnostics only: it may be stale by the time it is returned.
func (w *DecodeWorker) SeekState() SeekState {
	if !w.queue.IsSeekPending() {
		return SeekStateRunning
	}
	if framequeue.Generation(w.stateGeneration.Load()) != w.queue.Generation() {
		return SeekStateSeekPending
	}
	return SeekState(w.state.Load())
}

func (w *DecodeWorker) setState(state SeekState) {
	w.stateGeneration.Store(uint64(w.generation))
	w.state.Store(int32(state))
}

func (w *DecodeWorker) serve(ctx context.Context) {
	logger.Debugf(ctx, "serve")
	defer logger.Debugf(ctx, "/serve")
	defer w.reorder.Reset()

	for {
		if ctx.Err() != nil || w.queue.IsClosed() {
			return
		}
		if req, ok := w.queue.PendingSeek(w.generation); ok {
			w.seek(ctx, req)
			continue
		}

		f, err := w.source.DecodeNext(ctx, w.skipBefore)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if !errors.Is(err, io.EOF) {
				w.counters.DecodeErrors.Inc()
				logger.Errorf(ctx, "unable to decode, considering it the end of the stream: %v", err)
			}
			if !w.onEndOfStream(ctx) {
				return
			}
			continue
		}

		if f = w.reorder.Push(f); f == nil {
			continue
		}
		if !w.enqueue(ctx, f) {
			return
		}
	}
}

// onEndOfStream flushes the reorder buffer and blocks until a seek is
// requested; false is returned if the queue got closed instead.
func (w *DecodeWorker) onEndOfStream(ctx context.Context) bool {
	logger.Debugf(ctx, "end of stream")
	for f := w.reorder.Pop(); f != nil; f = w.reorder.Pop() {
		if !w.enqueue(ctx, f) {
			return false
		}
	}
	if _, ok := w.queue.PendingSeek(w.generation); ok {
		return true
	}

	_, ok := w.queue.WaitForSeek(w.generation)
	return ok
}

// enqueue returns false if the queue is closed.
func (w *DecodeWorker) enqueue(
	ctx context.Context,
	f *frame.Decoded,
) bool {
	if w.lastPTS != avconv.NoPTS && f.PTS < w.lastPTS {
		logger.Warnf(ctx, "dropping %s: the timestamp went backwards from %d", f, w.lastPTS)
		w.counters.Frames.OutOfOrder.Increment(uint64(f.Size()))
		f.Release()
		return true
	}

	// the frame belongs to the consumer once enqueued
	pts, size := f.PTS, uint64(f.Size())
	switch r := w.queue.Push(ctx, f, w.generation); r {
	case framequeue.PushResultEnqueued:
		w.lastPTS = pts
		w.counters.Frames.Enqueued.Increment(size)
		if w.state.Load() != int32(SeekStateRunning) {
			w.setState(SeekStateRunning)
		}
		return true
	case framequeue.PushResultCancelled:
		w.counters.Frames.Cancelled.Increment(size)
		f.Release()
		return true
	case framequeue.PushResultClosed:
		f.Release()
		return false
	default:
		assert(ctx, false, "unexpected push result", r)
		f.Release()
		return false
	}
}

func (w *DecodeWorker) seek(
	ctx context.Context,
	req framequeue.SeekRequest,
) {
	w.generation = req.Generation
	ctx = belt.WithField(ctx, "seek_generation", req.Generation)
	logger.Debugf(ctx, "seek to %fs", req.TargetSeconds)
	defer logger.Debugf(ctx, "/seek to %fs", req.TargetSeconds)

	w.setState(SeekStateFlushing)
	w.reorder.Reset()
	w.lastPTS = avconv.NoPTS

	timeBase := w.source.Metadata().TimeBase
	target := avconv.SecondsToTicks(req.TargetSeconds, timeBase)
	if target == avconv.NoPTS {
		w.counters.DecodeErrors.Inc()
		logger.Errorf(ctx, "unable to seek to %fs: invalid time base %s; continuing from the current position", req.TargetSeconds, timeBase)
		w.setState(SeekStateResuming)
		return
	}
	if err := w.source.SeekTo(ctx, target); err != nil {
		logger.Errorf(ctx, "unable to seek to %d: %v", target, err)
	}
	w.skipBefore = target
	w.setState(SeekStateResuming)
}
