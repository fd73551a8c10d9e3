package harness

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/repcl/internal/epoch"
	"github.com/roach88/repcl/internal/repcl"
	"github.com/roach88/repcl/internal/testutil"
	"github.com/roach88/repcl/internal/vecclock"
	"github.com/roach88/repcl/internal/wire"
)

// Harness executes one scenario against a manual time source.
type Harness struct {
	scenario *Scenario
	now      *testutil.ManualTime
	clocks   []*repcl.Clock
	vectors  []*vecclock.Clock
	logger   *slog.Logger
	seq      int64
}

// Run executes a scenario and returns the result. Logs are discarded.
//
// Execution flow:
// 1. Create every clock at start_ms
// 2. Execute steps, checking step expectations
// 3. Evaluate assertions against the trace and final state
//
// The error is non-nil only when the scenario cannot run (invalid clock
// parameters, a corrupt frame); failed expectations are reported in the
// result.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger is Run with step logging to logger.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	h, err := newHarness(scenario, logger)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		ev, err := h.execute(step)
		if err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
		result.Trace = append(result.Trace, ev)

		if step.Expect != nil {
			if err := checkExpectation(h.state(step.Expect.Proc), *step.Expect); err != nil {
				result.AddError(fmt.Sprintf("steps[%d].expect: %v", i, err))
			}
		}
	}

	for pid := range h.clocks {
		result.Final = append(result.Final, h.state(pid))
	}

	for i, a := range scenario.Assertions {
		if err := evaluateAssertion(result, a); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}

	logger.Info("scenario finished",
		"scenario", scenario.Name,
		"steps", len(result.Trace),
		"pass", result.Pass,
	)
	return result, nil
}

func newHarness(s *Scenario, logger *slog.Logger) (*Harness, error) {
	now := testutil.NewManualTime(time.UnixMilli(s.StartMS))
	interval := time.Duration(s.Clock.IntervalMS) * time.Millisecond
	src, err := epoch.NewSource(now, interval)
	if err != nil {
		return nil, fmt.Errorf("epoch source: %w", err)
	}

	h := &Harness{
		scenario: s,
		now:      now,
		clocks:   make([]*repcl.Clock, s.Clock.Procs),
		vectors:  make([]*vecclock.Clock, s.Clock.Procs),
		logger:   logger,
	}
	for pid := range s.Clock.Procs {
		c, err := repcl.New(h.clockConfig(pid), src)
		if err != nil {
			return nil, fmt.Errorf("process %d: %w", pid, err)
		}
		v, err := vecclock.New(pid, s.Clock.Procs, s.Clock.CounterWidth)
		if err != nil {
			return nil, fmt.Errorf("process %d: %w", pid, err)
		}
		h.clocks[pid] = c
		h.vectors[pid] = v
	}
	return h, nil
}

func (h *Harness) clockConfig(pid int) repcl.Config {
	p := h.scenario.Clock
	return repcl.Config{
		ProcID:    pid,
		ProcCount: p.Procs,
		WordWidth: p.WordWidth,
		Interval:  time.Duration(p.IntervalMS) * time.Millisecond,
		Epsilon:   p.Epsilon,
	}
}

func (h *Harness) state(pid int) ProcessState {
	return ProcessState{
		Clock:   h.clocks[pid].Snapshot(),
		Tracked: h.clocks[pid].Tracked(),
		Vector:  h.vectors[pid].Counters(),
	}
}

func (h *Harness) execute(step Step) (TraceEvent, error) {
	h.seq++
	ev := TraceEvent{Seq: h.seq}

	switch {
	case step.Tick != nil:
		pid := *step.Tick
		h.clocks[pid].Tick()
		h.vectors[pid].Tick()
		ev.Op = OpTick
		ev.Proc = pid

	case step.Merge != nil:
		into, from := step.Merge.Into, step.Merge.From
		frame, err := wire.Encode(h.clocks[from].Snapshot())
		if err != nil {
			return TraceEvent{}, err
		}
		msg, err := wire.DecodeFor(frame, h.clockConfig(from))
		if err != nil {
			return TraceEvent{}, err
		}
		h.clocks[into].Merge(msg)
		if err := h.vectors[into].Merge(h.vectors[from].Counters()); err != nil {
			return TraceEvent{}, err
		}
		ev.Op = OpMerge
		ev.Proc = into
		ev.From = &from

	default:
		now := h.now.Advance(time.Duration(*step.AdvanceMS) * time.Millisecond)
		ev.Op = OpAdvance
		ev.NowMS = now.UnixMilli()
		h.logger.Debug("advance", "seq", ev.Seq, "now_ms", ev.NowMS)
		return ev, nil
	}

	st := h.state(ev.Proc)
	ev.Clock, ev.Tracked, ev.Vector = st.Clock, st.Tracked, st.Vector
	h.logger.Debug(ev.Op,
		"seq", ev.Seq,
		"proc", ev.Proc,
		"hlc", ev.Clock.HLC,
		"counters", ev.Clock.Counters,
	)
	return ev, nil
}
