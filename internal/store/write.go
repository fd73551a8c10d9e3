package store

import (
	"context"
	"fmt"

	"github.com/roach88/repcl/internal/sim"
)

// BeginRun inserts a run record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - a run recorded twice
// keeps its first record.
//
// Implements sim.Recorder.
func (s *Store) BeginRun(ctx context.Context, run sim.RunInfo) error {
	cfgJSON, err := marshalConfig(run.Config)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, seed, config)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		formatTime(run.StartedAt),
		toSQL(run.Seed),
		cfgJSON,
	)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// RecordEvent inserts an event record.
// Uses ON CONFLICT DO NOTHING for idempotency - duplicate (run_id, seq)
// pairs are silently ignored.
//
// Note: The run referenced by ev.RunID must exist (foreign key constraint).
//
// Implements sim.Recorder.
func (s *Store) RecordEvent(ctx context.Context, ev sim.Event) error {
	vecJSON, err := marshalVector(ev.Vector)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events
		(run_id, seq, op, proc, peer, hlc, offset_bmp, offsets, counters, vector, elapsed_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		ev.RunID,
		ev.Seq,
		string(ev.Op),
		ev.Proc,
		ev.Peer,
		toSQL(ev.Clock.HLC),
		toSQL(ev.Clock.OffsetBmp),
		toSQL(ev.Clock.Offsets),
		toSQL(ev.Clock.Counters),
		vecJSON,
		int64(ev.Elapsed),
	)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}
