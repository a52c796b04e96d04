package types

import (
	"go.uber.org/atomic"
)

type StatisticsItem struct {
	Count uint64 `json:",omitempty"`
	Bytes uint64 `json:",omitempty"`
}

type CountersItem struct {
	Count atomic.Uint64
	Bytes atomic.Uint64
}

func (c *CountersItem) Increment(msgSize uint64) {
	c.Count.Inc()
	c.Bytes.Add(msgSize)
}

func (c *CountersItem) ToStats() StatisticsItem {
	return StatisticsItem{
		Count: c.Count.Load(),
		Bytes: c.Bytes.Load(),
	}
}

// Statistics is a snapshot of Counters.
type Statistics struct {
	Frames struct {
		Decoded    StatisticsItem
		Skipped    StatisticsItem
		Cancelled  StatisticsItem
		OutOfOrder StatisticsItem
		Enqueued   StatisticsItem
		Consumed   StatisticsItem
	}
	DecodeErrors uint64 `json:",omitempty"`
	Underflows   uint64 `json:",omitempty"`
	Seeks        uint64 `json:",omitempty"`
}

// Counters are updated by both the decoding and the consuming goroutines.
type Counters struct {
	Frames struct {
		Decoded    CountersItem
		Skipped    CountersItem
		Cancelled  CountersItem
		OutOfOrder CountersItem
		Enqueued   CountersItem
		Consumed   CountersItem
	}
	DecodeErrors atomic.Uint64
	Underflows   atomic.Uint64
	Seeks        atomic.Uint64
}

func NewCounters() *Counters {
	return &Counters{}
}

func (c *Counters) ToStats() Statistics {
	var s Statistics
	s.Frames.Decoded = c.Frames.Decoded.ToStats()
	s.Frames.Skipped = c.Frames.Skipped.ToStats()
	s.Frames.Cancelled = c.Frames.Cancelled.ToStats()
	s.Frames.OutOfOrder = c.Frames.OutOfOrder.ToStats()
	s.Frames.Enqueued = c.Frames.Enqueued.ToStats()
	s.Frames.Consumed = c.Frames.Consumed.ToStats()
	s.DecodeErrors = c.DecodeErrors.Load()
	s.Underflows = c.Underflows.Load()
	s.Seeks = c.Seeks.Load()
	return s
}
