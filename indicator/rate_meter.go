// Package indicator smooths noisy playback measurements (like the decoding rate) for reporting.
package indicator

import (
	"sync"
	"time"

	indicators "github.com/lmpizarro/go_ehlers_indicators"
	"golang.org/x/exp/constraints"
)

// RateMeter turns a monotonically growing counter into a per-second rate
// smoothed by the MESA Adaptive Moving Average.
//
// The rate is sampled once per Interval: an observation covering k
// intervals (e.g. after a stall) contributes k samples, so the average
// is weighted by time rather than by the amount of observations.
type RateMeter[T constraints.Integer | constraints.Float] struct {
	Interval  time.Duration
	FastLimit float64
	SlowLimit float64

	locker    sync.Mutex
	window    int
	samples   []float64
	lastTotal T
	lastAt    time.Time
}

// NewRateMeter averages over the last window intervals.
func NewRateMeter[T constraints.Integer | constraints.Float](window int, interval time.Duration) *RateMeter[T] {
	if window < 1 {
		window = 1
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &RateMeter[T]{
		Interval:  interval,
		FastLimit: 0.3,
		SlowLimit: 0.05,
		window:    window,
		samples:   make([]float64, 0, window),
	}
}

// Observe accounts the counter value at the given time and returns the
// smoothed rate; the first observation only sets the reference point.
func (m *RateMeter[T]) Observe(total T, now time.Time) float64 {
	m.locker.Lock()
	defer m.locker.Unlock()

	if m.lastAt.IsZero() {
		m.lastTotal, m.lastAt = total, now
		return 0
	}
	elapsed := now.Sub(m.lastAt)
	if elapsed <= 0 {
		return m.rate()
	}

	// a counter reset is a zero rate, not a negative one
	var delta float64
	if total > m.lastTotal {
		delta = float64(total - m.lastTotal)
	}
	m.lastTotal, m.lastAt = total, now

	v := delta / elapsed.Seconds()
	n := min(max(int(elapsed/m.Interval), 1), m.window)
	for range n {
		m.samples = append(m.samples, v)
	}
	if excess := len(m.samples) - m.window; excess > 0 {
		m.samples = append(m.samples[:0], m.samples[excess:]...)
	}
	return m.rate()
}

// Rate returns the last smoothed rate without observing anything.
func (m *RateMeter[T]) Rate() float64 {
	m.locker.Lock()
	defer m.locker.Unlock()
	return m.rate()
}

func (m *RateMeter[T]) rate() float64 {
	if len(m.samples) == 0 {
		return 0
	}
	if len(m.samples) < m.window {
		var sum float64
		for _, v := range m.samples {
			sum += v
		}
		return sum / float64(len(m.samples))
	}
	result := indicators.MAMA(m.samples, m.FastLimit, m.SlowLimit)
	return result[len(result)-1]
}

// Valid reports whether the rate is already averaged over the whole window.
func (m *RateMeter[T]) Valid() bool {
	m.locker.Lock()
	defer m.locker.Unlock()
	return len(m.samples) >= m.window
}
