// Package framequeue implements the bounded frame queue shared by the
// decoding goroutine (the only producer) and the consumer.
//
// Besides the frames, the queue's guarded state holds the pending seek
// request and the shutdown flag, so a single mutex+condition pair covers
// everything both goroutines touch.
package framequeue

import (
	"context"
	"fmt"
	"sync"

	"github.com/xaionaro-go/avplayback/frame"
	"github.com/xaionaro-go/avplayback/logger"
	"github.com/xaionaro-go/typing"
)

// DefaultCapacity is the amount of frames buffered ahead of the consumer.
const DefaultCapacity = 10

// Generation identifies a seek request; frames are pushed on behalf of a generation
// and get rejected once a newer seek was requested.
type Generation uint64

type PushResult int

const (
	PushResultUndefined = PushResult(iota)
	PushResultEnqueued
	PushResultCancelled
	PushResultClosed
)

func (r PushResult) String() string {
	switch r {
	case PushResultUndefined:
		return "undefined"
	case PushResultEnqueued:
		return "enqueued"
	case PushResultCancelled:
		return "cancelled"
	case PushResultClosed:
		return "closed"
	}
	return fmt.Sprintf("unknown_%d", int(r))
}

// SeekRequest is a seek the producer has not acted upon yet.
type SeekRequest struct {
	TargetSeconds float64
	Generation    Generation
}

type Queue struct {
	locker sync.Mutex
	cond   *sync.Cond

	capacity    int
	frames      []*frame.Decoded
	pendingSeek typing.Optional[float64]
	generation  Generation
	closed      bool

	stopAfterFunc func() bool
}

// New returns an empty queue that gets closed by Close or by cancelling ctx,
// whichever comes first.
func New(ctx context.Context, capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	q := &Queue{
		capacity: capacity,
		frames:   make([]*frame.Decoded, 0, capacity),
	}
	q.cond = sync.NewCond(&q.locker)
	q.stopAfterFunc = context.AfterFunc(ctx, func() {
		logger.Debugf(ctx, "context cancelled: %v", ctx.Err())
		q.close(ctx)
	})
	return q
}

func (q *Queue) Capacity() int {
	return q.capacity
}

func (q *Queue) Len() int {
	q.locker.Lock()
	defer q.locker.Unlock()
	return len(q.frames)
}

// Push enqueues the frame, blocking while the queue is full.
//
// The frame is not enqueued (and PushResultCancelled is returned) if a
// seek newer than generation was requested before or while waiting.
// A successful push on behalf of a seek generation completes that seek.
func (q *Queue) Push(
	ctx context.Context,
	f *frame.Decoded,
	generation Generation,
) PushResult {
	q.locker.Lock()
	defer q.locker.Unlock()
	for len(q.frames) >= q.capacity && !q.closed && q.generation == generation {
		q.cond.Wait()
	}
	switch {
	case q.closed:
		return PushResultClosed
	case q.generation != generation:
		logger.Tracef(ctx, "cancelled pushing %s: generation %d != %d", f, generation, q.generation)
		return PushResultCancelled
	}
	q.frames = append(q.frames, f)
	if q.pendingSeek.IsSet() {
		logger.Debugf(ctx, "seek #%d to %fs completed with %s", generation, q.pendingSeek.Get(), f)
		q.pendingSeek = typing.Optional[float64]{}
	}
	return PushResultEnqueued
}

// TryPop never blocks; a nil result is an underflow.
func (q *Queue) TryPop() *frame.Decoded {
	q.locker.Lock()
	defer q.locker.Unlock()
	if len(q.frames) == 0 {
		return nil
	}
	f := q.frames[0]
	n := copy(q.frames, q.frames[1:])
	q.frames[n] = nil
	q.frames = q.frames[:n]
	q.cond.Broadcast()
	return f
}

// clear must be called with the locker held.
func (q *Queue) clear() {
	for i := range q.frames {
		q.frames[i].Release()
		q.frames[i] = nil
	}
	q.frames = q.frames[:0]
	q.cond.Broadcast()
}

// Clear drops all the queued frames.
func (q *Queue) Clear() {
	q.locker.Lock()
	defer q.locker.Unlock()
	q.clear()
}

// RequestSeek drops all the queued frames and records the seek target,
// overwriting one not acted upon yet. A producer blocked in Push is woken up.
func (q *Queue) RequestSeek(
	ctx context.Context,
	targetSeconds float64,
) Generation {
	q.locker.Lock()
	defer q.locker.Unlock()
	q.generation++
	q.pendingSeek = typing.Opt(targetSeconds)
	q.clear()
	logger.Debugf(ctx, "requested seek #%d to %fs", q.generation, targetSeconds)
	return q.generation
}

// PendingSeek returns the seek request if it is newer than the given generation.
func (q *Queue) PendingSeek(known Generation) (SeekRequest, bool) {
	q.locker.Lock()
	defer q.locker.Unlock()
	return q.pendingSeekLocked(known)
}

func (q *Queue) pendingSeekLocked(known Generation) (SeekRequest, bool) {
	if q.generation == known || !q.pendingSeek.IsSet() {
		return SeekRequest{}, false
	}
	return SeekRequest{
		TargetSeconds: q.pendingSeek.Get(),
		Generation:    q.generation,
	}, true
}

// IsSeekPending reports whether a requested seek has not produced a frame yet.
func (q *Queue) IsSeekPending() bool {
	q.locker.Lock()
	defer q.locker.Unlock()
	return q.pendingSeek.IsSet()
}

// WaitForSeek blocks until a seek newer than the given generation is
// requested; false is returned if the queue got closed instead.
func (q *Queue) WaitForSeek(known Generation) (SeekRequest, bool) {
	q.locker.Lock()
	defer q.locker.Unlock()
	for {
		if q.closed {
			return SeekRequest{}, false
		}
		if req, ok := q.pendingSeekLocked(known); ok {
			return req, true
		}
		q.cond.Wait()
	}
}

func (q *Queue) Generation() Generation {
	q.locker.Lock()
	defer q.locker.Unlock()
	return q.generation
}

// Close drops all the frames and makes every blocked or future Push return PushResultClosed.
func (q *Queue) Close(ctx context.Context) {
	logger.Debugf(ctx, "Close")
	defer logger.Debugf(ctx, "/Close")
	q.stopAfterFunc()
	q.close(ctx)
}

func (q *Queue) close(ctx context.Context) {
	q.locker.Lock()
	defer q.locker.Unlock()
	if !q.closed {
		logger.Tracef(ctx, "closing with %d frames queued", len(q.frames))
	}
	q.closed = true
	q.clear()
}

func (q *Queue) IsClosed() bool {
	q.locker.Lock()
	defer q.locker.Unlock()
	return q.closed
}
