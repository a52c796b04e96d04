package avplayback

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/facebookincubator/go-belt"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/avplayback/frame"
	"github.com/xaionaro-go/avplayback/logger"
	"github.com/xaionaro-go/avplayback/source"
	"github.com/xaionaro-go/avplayback/types"
)

const (
	testFPS           = 30
	testTimeBaseDen   = 90000
	testFrameDuration = testTimeBaseDen / testFPS
)

func testCtx(t *testing.T) context.Context {
	ctx := logger.CtxWithLogger(context.Background(), logger.NewLogrus(logger.LevelDebug))
	t.Cleanup(func() { belt.Flush(ctx) })
	return ctx
}

type fakeClock struct {
	locker sync.Mutex
	now    time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.locker.Lock()
	defer c.locker.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.locker.Lock()
	defer c.locker.Unlock()
	c.now = c.now.Add(d)
}

func newTestSource(frameCount int, opts ...func(*source.SyntheticConfig)) *source.Synthetic {
	cfg := source.SyntheticConfig{
		Width:      32,
		Height:     16,
		TimeBase:   types.Rational{Num: 1, Den: testTimeBaseDen},
		FrameRate:  types.Rational{Num: testFPS, Den: 1},
		FrameCount: frameCount,
		GOPSize:    30,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return source.NewSynthetic(cfg)
}

func unpacedConfig() Config {
	cfg := DefaultConfig()
	cfg.DisablePacing = true
	return cfg
}

func newTestVideo(t *testing.T, src source.Source, cfg Config) (context.Context, *Video) {
	ctx := testCtx(t)
	v := New(ctx, src, cfg)
	t.Cleanup(func() {
		require.NoError(t, v.Close(ctx))
	})
	return ctx, v
}

type consumedFrame struct {
	PTS      int64
	Duration int64
	Luma     byte
}

// consumeEventually retries ConsumeFrame until it succeeds or the timeout expires.
func consumeEventually(t *testing.T, v *Video, timeout time.Duration) consumedFrame {
	t.Helper()
	var result consumedFrame
	deadline := time.Now().Add(timeout)
	for {
		ok := v.ConsumeFrame(func(pts, duration int64, planes frame.Planes) {
			result = consumedFrame{PTS: pts, Duration: duration, Luma: planes.Y[0]}
		})
		if ok {
			return result
		}
		if time.Now().After(deadline) {
			require.FailNow(t, "no frame consumed in time")
		}
		time.Sleep(time.Millisecond)
	}
}

// gatedSource blocks decoding until the gate is opened.
type gatedSource struct {
	source.Source
	gate chan struct{}
}

func (s *gatedSource) DecodeNext(ctx context.Context, skipBeforeTicks int64) (*frame.Decoded, error) {
	select {
	case <-s.gate:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.Source.DecodeNext(ctx, skipBeforeTicks)
}
