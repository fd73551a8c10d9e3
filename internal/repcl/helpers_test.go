package repcl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/repcl/internal/bitfield"
	"github.com/roach88/repcl/internal/epoch"
	"github.com/roach88/repcl/internal/testutil"
)

func testConfig(procID, procCount int, epsilon uint64) Config {
	return Config{
		ProcID:    procID,
		ProcCount: procCount,
		WordWidth: 64,
		Interval:  time.Millisecond,
		Epsilon:   epsilon,
	}
}

// manualEpochs returns a millisecond epoch source frozen at ms.
func manualEpochs(t *testing.T, ms int64) (*epoch.Source, *testutil.ManualTime) {
	t.Helper()
	mt := testutil.NewManualTime(time.UnixMilli(ms))
	src, err := epoch.NewSource(mt, time.Millisecond)
	require.NoError(t, err)
	return src, mt
}

// packed builds a packed offset word from slot values in rank order.
func packed(t *testing.T, epsilon uint64, values ...uint64) uint64 {
	t.Helper()
	var word uint64
	for i, v := range values {
		var err error
		word, err = bitfield.Set(word, BitsPerOffset(epsilon), i, v)
		require.NoError(t, err)
	}
	return word
}

// snap builds a snapshot tracking entries, which must be in process order.
func snap(t *testing.T, cfg Config, hlc, counters uint64, entries ...Entry) Snapshot {
	t.Helper()
	s := Snapshot{ProcID: cfg.ProcID, HLC: hlc, Counters: counters}
	values := make([]uint64, 0, len(entries))
	for _, e := range entries {
		s.OffsetBmp |= bitfield.Bit(e.ProcID)
		values = append(values, e.Offset)
	}
	s.Offsets = packed(t, cfg.Epsilon, values...)
	require.NoError(t, s.Validate(cfg))
	return s
}

// restored builds a clock holding the given state.
func restored(t *testing.T, cfg Config, src EpochSource, hlc, counters uint64, entries ...Entry) *Clock {
	t.Helper()
	c, err := Restore(cfg, src, snap(t, cfg, hlc, counters, entries...))
	require.NoError(t, err)
	return c
}
