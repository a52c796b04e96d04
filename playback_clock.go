package avplayback

import (
	"time"

	"github.com/xaionaro-go/avplayback/avconv"
	"github.com/xaionaro-go/avplayback/types"
)

// PlaybackClock decides when the next frame is due. Frames are paced by
// the accumulated durations of the displayed frames, not by a nominal
// frame rate.
//
// It is owned by the consuming goroutine and is not safe for concurrent use.
type PlaybackClock struct {
	now      func() time.Time
	timeBase types.Rational
	pacing   bool
	maxLag   time.Duration

	playing      bool
	forceDisplay bool

	// nextAt is the wall time the next frame is due at; zero means "now".
	nextAt time.Time

	// remaining is what was left until nextAt when paused.
	remaining time.Duration

	lastPTS int64
}

func newPlaybackClock(cfg Config, timeBase types.Rational) *PlaybackClock {
	return &PlaybackClock{
		now:      cfg.now,
		timeBase: timeBase,
		pacing:   !cfg.DisablePacing,
		maxLag:   cfg.MaxClockLag,
		lastPTS:  avconv.NoPTS,
	}
}

func (c *PlaybackClock) Playing() bool {
	return c.playing
}

func (c *PlaybackClock) SetPlaying(playing bool) {
	if playing == c.playing {
		return
	}
	c.playing = playing
	if !playing {
		c.remaining = 0
		if !c.nextAt.IsZero() {
			c.remaining = max(c.nextAt.Sub(c.now()), 0)
		}
		c.nextAt = time.Time{}
		return
	}
	if c.remaining > 0 {
		c.nextAt = c.now().Add(c.remaining)
	}
	c.remaining = 0
}

func (c *PlaybackClock) SetForceDisplay() {
	c.forceDisplay = true
}

func (c *PlaybackClock) ClearForceDisplay() {
	c.forceDisplay = false
}

func (c *PlaybackClock) ForceDisplay() bool {
	return c.forceDisplay
}

// LastPTS returns the timestamp of the last displayed frame, or avconv.NoPTS.
func (c *PlaybackClock) LastPTS() int64 {
	return c.lastPTS
}

// mayConsume reports whether a frame may be taken from the queue now.
func (c *PlaybackClock) mayConsume() bool {
	switch {
	case c.forceDisplay:
		return true
	case !c.playing:
		return false
	case !c.pacing || c.nextAt.IsZero():
		return true
	}
	return !c.now().Before(c.nextAt)
}

// onDisplayed is called after a frame was handed to the presentation loop.
func (c *PlaybackClock) onDisplayed(pts, duration int64) {
	c.lastPTS = pts
	c.forceDisplay = false
	if !c.pacing {
		return
	}

	d := avconv.Duration(duration, c.timeBase)
	if d < 0 {
		d = 0
	}
	if !c.playing {
		// stepping while paused: the next frame is due one frame after resuming
		c.remaining = d
		return
	}

	now := c.now()
	if c.nextAt.IsZero() || now.Sub(c.nextAt) > c.maxLag {
		c.nextAt = now.Add(d)
		return
	}
	c.nextAt = c.nextAt.Add(d)
}

// reset forgets the schedule; called when seeking.
func (c *PlaybackClock) reset() {
	c.nextAt = time.Time{}
	c.remaining = 0
}
