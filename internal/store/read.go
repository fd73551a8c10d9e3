package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/repcl/internal/repcl"
	"github.com/roach88/repcl/internal/sim"
)

// ErrRunNotFound is returned when a run id has no record.
var ErrRunNotFound = errors.New("run not found")

// ReadRun returns the run with the given id.
func (s *Store) ReadRun(ctx context.Context, id string) (sim.RunInfo, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, seed, config
		FROM runs
		WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return sim.RunInfo{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return sim.RunInfo{}, err
	}
	return run, nil
}

// ListRuns returns all runs ordered by start time, then id.
//
// Returns an empty slice (not nil) if no runs exist.
func (s *Store) ListRuns(ctx context.Context) ([]sim.RunInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, seed, config
		FROM runs
		ORDER BY started_at ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []sim.RunInfo{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadEvents returns the events of a run ordered by seq.
//
// Returns an empty slice (not nil) if the run has no events.
func (s *Store) ReadEvents(ctx context.Context, runID string) ([]sim.Event, error) {
	return s.queryEvents(ctx, `
		SELECT run_id, seq, op, proc, peer, hlc, offset_bmp, offsets, counters, vector, elapsed_ns
		FROM events
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
}

// ReadProcessEvents returns the events of a run in which proc acted,
// ordered by seq.
func (s *Store) ReadProcessEvents(ctx context.Context, runID string, proc int) ([]sim.Event, error) {
	return s.queryEvents(ctx, `
		SELECT run_id, seq, op, proc, peer, hlc, offset_bmp, offsets, counters, vector, elapsed_ns
		FROM events
		WHERE run_id = ? AND proc = ?
		ORDER BY seq ASC
	`, runID, proc)
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]sim.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []sim.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (sim.RunInfo, error) {
	var (
		run       sim.RunInfo
		startedAt string
		seed      int64
		cfgJSON   string
	)
	if err := row.Scan(&run.ID, &startedAt, &seed, &cfgJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sim.RunInfo{}, err
		}
		return sim.RunInfo{}, fmt.Errorf("scan run: %w", err)
	}

	t, err := parseTime(startedAt)
	if err != nil {
		return sim.RunInfo{}, fmt.Errorf("scan run %s: %w", run.ID, err)
	}
	cfg, err := unmarshalConfig(cfgJSON)
	if err != nil {
		return sim.RunInfo{}, fmt.Errorf("scan run %s: %w", run.ID, err)
	}

	run.StartedAt = t
	run.Seed = fromSQL(seed)
	run.Config = cfg
	return run, nil
}

func scanEvent(row scanner) (sim.Event, error) {
	var (
		ev                                sim.Event
		op, vecJSON                       string
		hlc, bmp, offsets, counters, nsec int64
	)
	if err := row.Scan(&ev.RunID, &ev.Seq, &op, &ev.Proc, &ev.Peer, &hlc, &bmp, &offsets, &counters, &vecJSON, &nsec); err != nil {
		return sim.Event{}, fmt.Errorf("scan event: %w", err)
	}

	vec, err := unmarshalVector(vecJSON)
	if err != nil {
		return sim.Event{}, fmt.Errorf("scan event %d: %w", ev.Seq, err)
	}

	ev.Op = sim.Op(op)
	ev.Clock = repcl.Snapshot{
		ProcID:    ev.Proc,
		HLC:       fromSQL(hlc),
		OffsetBmp: fromSQL(bmp),
		Offsets:   fromSQL(offsets),
		Counters:  fromSQL(counters),
	}
	ev.Vector = vec
	ev.Elapsed = time.Duration(nsec)
	return ev, nil
}
