package framequeue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/facebookincubator/go-belt"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/avplayback/frame"
	"github.com/xaionaro-go/avplayback/logger"
)

func testCtx(t *testing.T) context.Context {
	ctx := logger.CtxWithLogger(context.Background(), logger.NewLogrus(logger.LevelDebug))
	t.Cleanup(func() { belt.Flush(ctx) })
	return ctx
}

func TestQueueFIFO(t *testing.T) {
	ctx := testCtx(t)
	q := New(ctx, 0)
	require.Equal(t, DefaultCapacity, q.Capacity())
	require.Nil(t, q.TryPop())

	for i := 0; i < 3; i++ {
		require.Equal(t, PushResultEnqueued, q.Push(ctx, &frame.Decoded{PTS: int64(i)}, 0))
	}
	require.Equal(t, 3, q.Len())
	for i := 0; i < 3; i++ {
		f := q.TryPop()
		require.NotNil(t, f)
		require.Equal(t, int64(i), f.PTS)
	}
	require.Nil(t, q.TryPop())
}

func TestQueueBackpressure(t *testing.T) {
	ctx := testCtx(t)
	q := New(ctx, DefaultCapacity)
	for i := 0; i < DefaultCapacity; i++ {
		require.Equal(t, PushResultEnqueued, q.Push(ctx, &frame.Decoded{PTS: int64(i)}, 0))
	}

	pushed := make(chan PushResult)
	go func() {
		pushed <- q.Push(ctx, &frame.Decoded{PTS: DefaultCapacity}, 0)
	}()

	select {
	case r := <-pushed:
		t.Fatalf("push into a full queue returned early: %v", r)
	case <-time.After(50 * time.Millisecond):
	}
	require.Equal(t, DefaultCapacity, q.Len())

	require.Equal(t, int64(0), q.TryPop().PTS)
	require.Equal(t, PushResultEnqueued, <-pushed)
	require.Equal(t, DefaultCapacity, q.Len())
}

func TestQueueSeekCancelsBlockedPush(t *testing.T) {
	ctx := testCtx(t)
	q := New(ctx, 2)
	require.Equal(t, PushResultEnqueued, q.Push(ctx, &frame.Decoded{PTS: 0}, 0))
	require.Equal(t, PushResultEnqueued, q.Push(ctx, &frame.Decoded{PTS: 1}, 0))

	pushed := make(chan PushResult)
	go func() {
		pushed <- q.Push(ctx, &frame.Decoded{PTS: 2}, 0)
	}()
	time.Sleep(20 * time.Millisecond)

	gen := q.RequestSeek(ctx, 5)
	require.Equal(t, Generation(1), gen)
	require.Equal(t, PushResultCancelled, <-pushed)
	require.Zero(t, q.Len())
	require.True(t, q.IsSeekPending())

	// a frame of the stale generation is never enqueued
	require.Equal(t, PushResultCancelled, q.Push(ctx, &frame.Decoded{PTS: 3}, 0))

	req, ok := q.PendingSeek(0)
	require.True(t, ok)
	require.Equal(t, SeekRequest{TargetSeconds: 5, Generation: gen}, req)

	_, ok = q.PendingSeek(gen)
	require.False(t, ok)

	require.Equal(t, PushResultEnqueued, q.Push(ctx, &frame.Decoded{PTS: 150}, gen))
	require.False(t, q.IsSeekPending())
	require.Equal(t, int64(150), q.TryPop().PTS)
}

func TestQueueSeekLastWriterWins(t *testing.T) {
	ctx := testCtx(t)
	q := New(ctx, DefaultCapacity)
	q.RequestSeek(ctx, 1)
	genB := q.RequestSeek(ctx, 2)

	req, ok := q.PendingSeek(0)
	require.True(t, ok)
	require.Equal(t, 2.0, req.TargetSeconds)
	require.Equal(t, genB, req.Generation)

	require.Equal(t, PushResultCancelled, q.Push(ctx, &frame.Decoded{PTS: 30}, genB-1))
	require.Zero(t, q.Len())
}

func TestQueueWaitForSeek(t *testing.T) {
	ctx := testCtx(t)
	q := New(ctx, DefaultCapacity)

	got := make(chan SeekRequest)
	go func() {
		req, ok := q.WaitForSeek(0)
		if ok {
			got <- req
		}
		close(got)
	}()
	time.Sleep(20 * time.Millisecond)
	gen := q.RequestSeek(ctx, 3)
	require.Equal(t, SeekRequest{TargetSeconds: 3, Generation: gen}, <-got)
}

func TestQueueClose(t *testing.T) {
	ctx := testCtx(t)
	q := New(ctx, 1)
	require.Equal(t, PushResultEnqueued, q.Push(ctx, &frame.Decoded{PTS: 0}, 0))

	var wg sync.WaitGroup
	results := make([]PushResult, 2)
	var waitOK bool
	wg.Add(3)
	go func() {
		defer wg.Done()
		results[0] = q.Push(ctx, &frame.Decoded{PTS: 1}, 0)
	}()
	go func() {
		defer wg.Done()
		results[1] = q.Push(ctx, &frame.Decoded{PTS: 2}, 0)
	}()
	go func() {
		defer wg.Done()
		_, waitOK = q.WaitForSeek(0)
	}()
	time.Sleep(20 * time.Millisecond)

	q.Close(ctx)
	wg.Wait()
	require.Equal(t, []PushResult{PushResultClosed, PushResultClosed}, results)
	require.False(t, waitOK)
	require.True(t, q.IsClosed())
	require.Nil(t, q.TryPop())
}

func TestQueueNeverExceedsCapacity(t *testing.T) {
	ctx := testCtx(t)
	q := New(ctx, DefaultCapacity)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			if q.Push(ctx, &frame.Decoded{PTS: int64(i)}, 0) != PushResultEnqueued {
				return
			}
		}
	}()

	var lastPTS int64 = -1
	for received := 0; received < 200; {
		require.LessOrEqual(t, q.Len(), DefaultCapacity)
		f := q.TryPop()
		if f == nil {
			time.Sleep(time.Microsecond)
			continue
		}
		require.Greater(t, f.PTS, lastPTS)
		lastPTS = f.PTS
		received++
	}
	<-done
}

func TestQueueClosedByContext(t *testing.T) {
	ctx, cancelFn := context.WithCancel(testCtx(t))
	q := New(ctx, 1)
	require.Equal(t, PushResultEnqueued, q.Push(ctx, &frame.Decoded{PTS: 0}, 0))

	pushed := make(chan PushResult)
	go func() {
		pushed <- q.Push(ctx, &frame.Decoded{PTS: 1}, 0)
	}()
	waited := make(chan bool)
	go func() {
		_, ok := q.WaitForSeek(0)
		waited <- ok
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFn()
	require.Equal(t, PushResultClosed, <-pushed)
	require.False(t, <-waited)
	require.True(t, q.IsClosed())
	require.Nil(t, q.TryPop())

	q.Close(ctx)
	require.True(t, q.IsClosed())
}
