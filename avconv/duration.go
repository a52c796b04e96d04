// Package avconv provides conversions between libav timestamps, seconds and time.Duration.
package avconv

import (
	"math"
	"time"

	"github.com/asticode/go-astiav"
	"github.com/xaionaro-go/avplayback/types"
)

const (
	// NoPTS is libav's AV_NOPTS_VALUE.
	NoPTS = int64(math.MinInt64)

	// NoDuration is the time.Duration counterpart of NoPTS.
	NoDuration = time.Duration(math.MinInt64)
)

func init() {
	if astiav.NoPtsValue != NoPTS {
		panic("AV_NOPTS_VALUE changed")
	}
}

func Duration(t int64, timeBase types.Rational) time.Duration {
	if t == NoPTS {
		return NoDuration
	}
	return time.Duration(float64(t) * timeBase.Float64() * float64(time.Second))
}

func FromDuration(d time.Duration, timeBase types.Rational) int64 {
	if d == NoDuration {
		return NoPTS
	}
	return SecondsToTicks(d.Seconds(), timeBase)
}

func TicksToSeconds(t int64, timeBase types.Rational) float64 {
	return float64(t) * timeBase.Float64()
}

// SecondsToTicks converts seconds into ticks rounding down; the tiny bias
// absorbs float errors like 5.0/(1/90000) == 449999.99999.
func SecondsToTicks(s float64, timeBase types.Rational) int64 {
	tb := timeBase.Float64()
	if tb == 0 {
		return NoPTS
	}
	return int64(math.Floor(s/tb + 1e-6))
}

func RationalFromAstiav(r astiav.Rational) types.Rational {
	return types.Rational{Num: r.Num(), Den: r.Den()}
}

func RationalToAstiav(r types.Rational) astiav.Rational {
	return astiav.NewRational(r.Num, r.Den)
}
