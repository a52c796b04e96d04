package avconv

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/avplayback/types"
)

func TestSecondsToTicks(t *testing.T) {
	require.Equal(t, int64(450000), SecondsToTicks(5.0, types.Rational{Num: 1, Den: 90000}))
	require.Equal(t, int64(150), SecondsToTicks(5.0, types.Rational{Num: 1, Den: 30}))
	require.Equal(t, int64(149), SecondsToTicks(4.99, types.Rational{Num: 1, Den: 30}))
	require.Equal(t, NoPTS, SecondsToTicks(1, types.Rational{}))
}

func TestDuration(t *testing.T) {
	tb := types.Rational{Num: 1, Den: 1000}
	require.Equal(t, 1500*time.Millisecond, Duration(1500, tb))
	require.Equal(t, NoDuration, Duration(NoPTS, tb))
	require.Equal(t, int64(1500), FromDuration(1500*time.Millisecond, tb))
	require.Equal(t, NoPTS, FromDuration(NoDuration, tb))
	require.InDelta(t, 1.5, TicksToSeconds(1500, tb), 1e-9)
}
