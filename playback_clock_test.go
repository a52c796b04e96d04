package avplayback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/avplayback/avconv"
	"github.com/xaionaro-go/avplayback/types"
)

func TestPlaybackClockVariableFrameDuration(t *testing.T) {
	clk := newFakeClock()
	cfg := DefaultConfig()
	cfg.Now = clk.Now
	c := newPlaybackClock(cfg, types.Rational{Num: 1, Den: 1000})

	require.False(t, c.mayConsume())
	c.SetPlaying(true)
	require.True(t, c.mayConsume())

	c.onDisplayed(0, 10)
	require.Equal(t, int64(0), c.LastPTS())
	clk.Advance(9 * time.Millisecond)
	require.False(t, c.mayConsume())
	clk.Advance(time.Millisecond)
	require.True(t, c.mayConsume())

	c.onDisplayed(10, 50)
	clk.Advance(40 * time.Millisecond)
	require.False(t, c.mayConsume())
	clk.Advance(10 * time.Millisecond)
	require.True(t, c.mayConsume())
}

func TestPlaybackClockStepWhilePaused(t *testing.T) {
	clk := newFakeClock()
	cfg := DefaultConfig()
	cfg.Now = clk.Now
	c := newPlaybackClock(cfg, types.Rational{Num: 1, Den: 1000})

	require.Equal(t, avconv.NoPTS, c.LastPTS())
	c.SetForceDisplay()
	require.True(t, c.mayConsume())
	c.onDisplayed(0, 40)
	require.False(t, c.ForceDisplay())
	require.False(t, c.mayConsume())

	clk.Advance(time.Minute)
	c.SetPlaying(true)
	require.False(t, c.mayConsume())
	clk.Advance(40 * time.Millisecond)
	require.True(t, c.mayConsume())
}

func TestPlaybackClockDisabledPacing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DisablePacing = true
	c := newPlaybackClock(cfg, types.Rational{Num: 1, Den: 1000})
	c.SetPlaying(true)
	for i := int64(0); i < 10; i++ {
		require.True(t, c.mayConsume())
		c.onDisplayed(i*40, 40)
	}
	c.SetPlaying(false)
	require.False(t, c.mayConsume())
}

func TestPlaybackClockReset(t *testing.T) {
	clk := newFakeClock()
	cfg := DefaultConfig()
	cfg.Now = clk.Now
	c := newPlaybackClock(cfg, types.Rational{Num: 1, Den: 1000})
	c.SetPlaying(true)
	c.onDisplayed(0, 1000)
	require.False(t, c.mayConsume())
	c.reset()
	require.True(t, c.mayConsume())
	require.Equal(t, int64(0), c.LastPTS())
}
