package indicator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateMeter(t *testing.T) {
	t.Run("flat", func(t *testing.T) {
		m := NewRateMeter[uint64](50, time.Second)
		now := time.Unix(0, 0)
		require.Zero(t, m.Observe(0, now))

		var total uint64
		for i := range 100 {
			now = now.Add(time.Second)
			total += 30
			require.InDelta(t, 30, m.Observe(total, now), 0.01, "%d", i)
			require.Equal(t, i >= 49, m.Valid(), "%d", i)
		}
	})

	t.Run("warm-up-mean", func(t *testing.T) {
		m := NewRateMeter[int](10, time.Second)
		now := time.Unix(0, 0)
		m.Observe(0, now)
		require.Equal(t, 10.0, m.Observe(10, now.Add(time.Second)))
		require.Equal(t, 15.0, m.Observe(30, now.Add(2*time.Second)))
		require.Equal(t, 15.0, m.Rate())
		require.False(t, m.Valid())
	})

	t.Run("jitter", func(t *testing.T) {
		m := NewRateMeter[uint64](50, time.Second)
		now := time.Unix(0, 0)
		m.Observe(0, now)
		var total uint64
		for i := range 100 {
			now = now.Add(time.Second)
			total += 25
			m.Observe(total, now)
			now = now.Add(time.Second)
			total += 35
			v := m.Observe(total, now)
			if i > 50 {
				require.InDelta(t, 30, v, 5, "%d", i)
			}
		}
	})

	t.Run("counter-reset", func(t *testing.T) {
		m := NewRateMeter[uint64](50, time.Second)
		now := time.Unix(0, 0)
		var total uint64
		m.Observe(total, now)
		for range 60 {
			now = now.Add(time.Second)
			total += 30
			m.Observe(total, now)
		}
		now = now.Add(time.Second)
		v := m.Observe(0, now)
		require.GreaterOrEqual(t, v, 0.0)
		require.Less(t, v, 30.0)
	})

	t.Run("stall-is-weighted-by-time", func(t *testing.T) {
		const window = 20
		steady := func() (*RateMeter[uint64], uint64, time.Time) {
			m := NewRateMeter[uint64](window, time.Second)
			now := time.Unix(0, 0)
			var total uint64
			m.Observe(total, now)
			for range window {
				now = now.Add(time.Second)
				total += 30
				m.Observe(total, now)
			}
			return m, total, now
		}

		short, total, now := steady()
		afterShort := short.Observe(total, now.Add(time.Second))

		long, total, now := steady()
		afterLong := long.Observe(total, now.Add(window*time.Second))

		require.Less(t, afterShort, 30.0)
		require.Less(t, afterLong, afterShort)
		require.InDelta(t, 0, afterLong, 1e-9, "the whole window is the stall")
	})
}
