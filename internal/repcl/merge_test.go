package repcl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_DisjointKnowledge(t *testing.T) {
	src, _ := manualEpochs(t, 50)
	cfgA := testConfig(0, 2, 8)
	cfgB := cfgA.ForProcess(1)

	a := restored(t, cfgA, src, 50, 0, Entry{1, 2})
	b := snap(t, cfgB, 50, 0, Entry{0, 3})

	a.Merge(b)

	assert.Equal(t, uint64(50), a.HLC())
	assert.Equal(t, uint64(0b11), a.Bitmap(), "both ranks live")
	own, _ := a.Offset(0)
	assert.Equal(t, uint64(0), own, "own rank rewritten after merge")
	p1, ok := a.Offset(1)
	require.True(t, ok)
	assert.Equal(t, uint64(2), p1, "process 1 keeps A's offset; B does not track it")
	assert.Equal(t, uint64(0), a.Counters(), "genuinely new combined state")
}

func TestMerge_JoinBeforeOwnRewrite(t *testing.T) {
	cfg := testConfig(0, 2, 8)
	mine := table{width: 3, epsilon: 8}
	mine.put(1, 2)
	theirs := table{width: 3, epsilon: 8}
	theirs.put(0, 3)

	joined := mine.join(&theirs)
	s := Snapshot{OffsetBmp: joined.bmp, Offsets: joined.offsets}
	assert.Equal(t, []Entry{{0, 3}, {1, 2}}, s.Entries(cfg))
}

func TestMerge_AgesBothSidesToCommonEpoch(t *testing.T) {
	src, _ := manualEpochs(t, 50)
	cfg := testConfig(0, 2, 8)

	a := restored(t, cfg, src, 50, 4, Entry{0, 0})
	b := snap(t, cfg.ForProcess(1), 53, 1, Entry{1, 0})

	a.Merge(b)

	assert.Equal(t, uint64(53), a.HLC())
	assert.Equal(t, []Entry{{0, 0}, {1, 0}}, a.Tracked())
	assert.Equal(t, uint64(0), a.Counters())
}

func TestMerge_UsesEpochSource(t *testing.T) {
	src, _ := manualEpochs(t, 60)
	cfg := testConfig(0, 2, 16)

	a := restored(t, cfg, src, 50, 4, Entry{0, 0}, Entry{1, 1})
	b := snap(t, cfg.ForProcess(1), 55, 1, Entry{1, 0})

	a.Merge(b)

	assert.Equal(t, uint64(60), a.HLC())
	// A's view of process 1 ages 1+10, B's view ages 0+5; the minimum wins.
	assert.Equal(t, []Entry{{0, 0}, {1, 5}}, a.Tracked())
}

func TestMerge_EvictsStaleRemoteOffsets(t *testing.T) {
	src, _ := manualEpochs(t, 50)
	cfg := testConfig(0, 3, 8)

	a := restored(t, cfg, src, 50, 2, Entry{0, 0})
	b := snap(t, cfg.ForProcess(1), 40, 6, Entry{1, 0}, Entry{2, 1})

	a.Merge(b)

	assert.Equal(t, uint64(50), a.HLC())
	assert.Equal(t, []Entry{{0, 0}}, a.Tracked(), "remote offsets aged past epsilon")
	assert.Equal(t, uint64(3), a.Counters(), "stale message adds nothing")
}

func TestMerge_DoesNotModifyOther(t *testing.T) {
	src, _ := manualEpochs(t, 50)
	cfg := testConfig(0, 3, 8)

	a := restored(t, cfg, src, 50, 0, Entry{0, 0})
	b, err := Restore(cfg.ForProcess(1), src, snap(t, cfg.ForProcess(1), 45, 3, Entry{1, 0}, Entry{2, 4}))
	require.NoError(t, err)
	before := b.Snapshot()

	a.Merge(b.Snapshot())

	assert.Equal(t, before, b.Snapshot())
}

func TestMerge_IgnoresBitsBeyondProcessCount(t *testing.T) {
	src, _ := manualEpochs(t, 50)
	cfg := testConfig(0, 2, 8)
	a := restored(t, cfg, src, 50, 0, Entry{0, 0})

	other := Snapshot{
		ProcID:    1,
		HLC:       50,
		OffsetBmp: 1<<1 | 1<<5,
		Offsets:   packed(t, 8, 1, 4),
	}
	a.Merge(other)

	assert.Equal(t, uint64(0b11), a.Bitmap())
	assert.Equal(t, []Entry{{0, 0}, {1, 1}}, a.Tracked())
	assert.NoError(t, a.Snapshot().Validate(cfg))
}

func TestMerge_SecondMergeAddsNothing(t *testing.T) {
	src, _ := manualEpochs(t, 50)
	cfg := testConfig(0, 3, 8)

	a := restored(t, cfg, src, 50, 0, Entry{0, 0}, Entry{2, 5})
	b := snap(t, cfg.ForProcess(1), 50, 2, Entry{1, 0}, Entry{2, 1})

	a.Merge(b)
	first := a.Snapshot()
	a.Merge(b)
	second := a.Snapshot()

	assert.True(t, first.EqualOffsets(second))
	assert.Equal(t, first.Counters+1, second.Counters)
	assert.Equal(t, []Entry{{0, 0}, {1, 0}, {2, 1}}, a.Tracked())
}

func TestMerge_CounterBranches(t *testing.T) {
	cfg := testConfig(0, 2, 8)
	peer := cfg.ForProcess(1)

	tests := []struct {
		name     string
		self     []Entry
		selfCtr  uint64
		other    []Entry
		otherCtr uint64
		want     uint64
	}{
		{
			name: "both equal merged", self: []Entry{{0, 0}, {1, 2}}, selfCtr: 4,
			other: []Entry{{0, 0}, {1, 2}}, otherCtr: 7, want: 8,
		},
		{
			name: "only self equals merged", self: []Entry{{0, 0}, {1, 2}}, selfCtr: 4,
			other: []Entry{{1, 2}}, otherCtr: 7, want: 5,
		},
		{
			name: "only other equals merged", self: []Entry{{0, 0}}, selfCtr: 3,
			other: []Entry{{0, 0}, {1, 0}}, otherCtr: 9, want: 10,
		},
		{
			name: "neither equals merged", self: []Entry{{0, 0}}, selfCtr: 3,
			other: []Entry{{1, 0}}, otherCtr: 9, want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, _ := manualEpochs(t, 50)
			a := restored(t, cfg, src, 50, tt.selfCtr, tt.self...)
			a.Merge(snap(t, peer, 50, tt.otherCtr, tt.other...))
			assert.Equal(t, tt.want, a.Counters())
		})
	}
}

func TestTieBreak(t *testing.T) {
	merged := Snapshot{HLC: 7, OffsetBmp: 0b11, Offsets: 0b010_000}
	same := func(ctr uint64) Snapshot {
		s := merged
		s.Counters = ctr
		return s
	}
	differs := func(ctr uint64) Snapshot {
		return Snapshot{HLC: 7, OffsetBmp: 0b01, Offsets: 0, Counters: ctr}
	}

	assert.Equal(t, uint64(10), tieBreak(same(9), same(4), merged), "both: larger counter advances")
	assert.Equal(t, uint64(10), tieBreak(same(4), same(9), merged), "both: symmetric in max")
	assert.Equal(t, uint64(5), tieBreak(same(4), differs(9), merged), "self only")
	assert.Equal(t, uint64(10), tieBreak(differs(4), same(9), merged), "other only")
	assert.Equal(t, uint64(0), tieBreak(differs(4), differs(9), merged), "neither")

	// Equality covers hlc too.
	older := same(4)
	older.HLC = 6
	assert.Equal(t, uint64(0), tieBreak(older, differs(9), merged))
}
