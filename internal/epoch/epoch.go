// Package epoch converts wall-clock time into a monotonic epoch counter.
//
// An epoch is floor(now / interval), with now measured from the Unix epoch.
// The Source never reports a smaller epoch than it has already reported,
// so a wall clock stepping backwards produces repeats, not regressions.
package epoch

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// ErrNoTimeSource is returned when a Source is built without a time source.
var ErrNoTimeSource = errors.New("epoch: time source unavailable")

// TimeSource reports the current real time.
type TimeSource interface {
	Now() time.Time
}

// SystemTime reads the host clock.
type SystemTime struct{}

// Now returns time.Now().
func (SystemTime) Now() time.Time {
	return time.Now()
}

// Source maps a TimeSource onto epochs of a fixed interval.
//
// Thread-safety: Current is safe for concurrent use. Several clocks may
// share one Source.
type Source struct {
	ts       TimeSource
	interval time.Duration
	last     atomic.Uint64
}

// NewSource creates a Source. The interval must be positive.
func NewSource(ts TimeSource, interval time.Duration) (*Source, error) {
	if ts == nil {
		return nil, ErrNoTimeSource
	}
	if interval <= 0 {
		return nil, fmt.Errorf("epoch: interval must be positive, got %s", interval)
	}
	return &Source{ts: ts, interval: interval}, nil
}

// Interval returns the epoch width.
func (s *Source) Interval() time.Duration {
	return s.interval
}

// Current returns the current epoch. Successive calls never decrease.
func (s *Source) Current() uint64 {
	e := FromTime(s.ts.Now(), s.interval)
	for {
		last := s.last.Load()
		if e <= last {
			return last
		}
		if s.last.CompareAndSwap(last, e) {
			return e
		}
	}
}

// FromTime returns floor(t / interval) measured from the Unix epoch.
// Times before 1970 map to epoch 0.
func FromTime(t time.Time, interval time.Duration) uint64 {
	ns := t.UnixNano()
	if ns <= 0 {
		return 0
	}
	return uint64(ns / int64(interval))
}
