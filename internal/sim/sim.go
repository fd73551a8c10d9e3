package sim

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/roach88/repcl/internal/config"
	"github.com/roach88/repcl/internal/epoch"
	"github.com/roach88/repcl/internal/repcl"
	"github.com/roach88/repcl/internal/vecclock"
	"github.com/roach88/repcl/internal/wire"
)

// Simulator owns one replay clock and one vector clock per process.
type Simulator struct {
	cfg    config.Config
	seed   uint64
	rng    *rand.Rand
	ts     epoch.TimeSource
	epochs *epoch.Source

	clocks  []*repcl.Clock
	vectors []*vecclock.Clock

	out    io.Writer
	rec    Recorder
	runIDs RunIDGenerator
	logger *slog.Logger

	runID string
	seq   int64
	stats Stats
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithTimeSource replaces the host clock as the source of epochs.
func WithTimeSource(ts epoch.TimeSource) Option {
	return func(s *Simulator) {
		s.ts = ts
	}
}

// WithOutput renders the state of every clock to w after each iteration.
func WithOutput(w io.Writer) Option {
	return func(s *Simulator) {
		s.out = w
	}
}

// WithRecorder records the run and every event to rec.
func WithRecorder(rec Recorder) Option {
	return func(s *Simulator) {
		s.rec = rec
	}
}

// WithRunIDGenerator sets the generator naming the run.
// Default: UUIDv7Generator.
func WithRunIDGenerator(gen RunIDGenerator) Option {
	return func(s *Simulator) {
		s.runIDs = gen
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Simulator) {
		s.logger = logger
	}
}

// New creates a simulator for cfg. A zero cfg.Seed picks a random seed;
// Seed reports the one in use.
func New(cfg config.Config, opts ...Option) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Simulator{
		cfg:    cfg,
		ts:     epoch.SystemTime{},
		runIDs: UUIDv7Generator{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.seed = cfg.Seed
	if s.seed == 0 {
		s.seed = rand.Uint64() | 1
	}
	s.rng = rand.New(rand.NewPCG(s.seed, s.seed>>1))

	epochs, err := epoch.NewSource(s.ts, cfg.Interval())
	if err != nil {
		return nil, fmt.Errorf("sim: %w", err)
	}
	s.epochs = epochs

	s.clocks = make([]*repcl.Clock, cfg.Procs)
	s.vectors = make([]*vecclock.Clock, cfg.Procs)
	for i := range cfg.Procs {
		c, err := repcl.New(cfg.Clock(i), epochs)
		if err != nil {
			return nil, fmt.Errorf("sim: process %d: %w", i, err)
		}
		v, err := vecclock.New(i, cfg.Procs, cfg.CounterWidth)
		if err != nil {
			return nil, fmt.Errorf("sim: process %d: %w", i, err)
		}
		s.clocks[i] = c
		s.vectors[i] = v
	}

	s.runID = s.runIDs.Generate()
	s.stats = Stats{
		RunID:      s.runID,
		Seed:       s.seed,
		RepClBits:  wire.FrameSize * 8,
		VectorBits: s.vectors[0].SizeBits(),
	}
	return s, nil
}

// RunID returns the id of the run.
func (s *Simulator) RunID() string { return s.runID }

// Seed returns the random seed in use.
func (s *Simulator) Seed() uint64 { return s.seed }

// Stats returns the statistics so far.
func (s *Simulator) Stats() Stats { return s.stats }

// Clock returns the replay clock of process pid.
func (s *Simulator) Clock(pid int) *repcl.Clock { return s.clocks[pid] }

// Vector returns the vector clock of process pid.
func (s *Simulator) Vector(pid int) *vecclock.Clock { return s.vectors[pid] }

// Begin records the start of the run. Run calls it; callers driving Step
// directly call it first if they use a Recorder.
func (s *Simulator) Begin(ctx context.Context) error {
	s.logger.Info("simulation starting",
		"run_id", s.runID,
		"procs", s.cfg.Procs,
		"epsilon", s.cfg.Epsilon,
		"seed", s.seed,
	)
	if s.rec == nil {
		return nil
	}
	info := RunInfo{
		ID:        s.runID,
		StartedAt: s.ts.Now().UTC(),
		Seed:      s.seed,
		Config:    s.cfg,
	}
	if err := s.rec.BeginRun(ctx, info); err != nil {
		return fmt.Errorf("sim: begin run: %w", err)
	}
	return nil
}

// Step performs one iteration.
func (s *Simulator) Step(ctx context.Context) (Event, error) {
	i := s.rng.IntN(s.cfg.Procs)
	j := s.rng.IntN(s.cfg.Procs)

	s.seq++
	ev := Event{RunID: s.runID, Seq: s.seq, Proc: i, Peer: j}

	if i == j {
		ev.Op = OpTick
		ev.Elapsed = s.clocks[i].Tick()
		s.vectors[i].Tick()
		s.stats.Ticks++
		s.stats.TickTime += ev.Elapsed
	} else {
		ev.Op = OpMerge
		msg, err := s.send(j)
		if err != nil {
			return Event{}, err
		}
		ev.Elapsed = s.clocks[i].Merge(msg)
		if err := s.vectors[i].Merge(s.vectors[j].Counters()); err != nil {
			return Event{}, fmt.Errorf("sim: %w", err)
		}
		s.stats.Merges++
		s.stats.MergeTime += ev.Elapsed
	}
	s.stats.Iterations++

	ev.Clock = s.clocks[i].Snapshot()
	ev.Vector = s.vectors[i].Counters()

	s.logger.Debug("step",
		"seq", ev.Seq,
		"op", ev.Op,
		"proc", ev.Proc,
		"peer", ev.Peer,
		"hlc", ev.Clock.HLC,
		"counters", ev.Clock.Counters,
	)

	if s.rec != nil {
		if err := s.rec.RecordEvent(ctx, ev); err != nil {
			return Event{}, fmt.Errorf("sim: record event %d: %w", ev.Seq, err)
		}
	}
	if s.out != nil {
		if err := s.Render(s.out); err != nil {
			return Event{}, fmt.Errorf("sim: render: %w", err)
		}
	}
	return ev, nil
}

// send encodes the snapshot of process j and decodes it on the receiving
// side.
func (s *Simulator) send(j int) (repcl.Snapshot, error) {
	frame, err := wire.Encode(s.clocks[j].Snapshot())
	if err != nil {
		return repcl.Snapshot{}, fmt.Errorf("sim: send from %d: %w", j, err)
	}
	msg, err := wire.DecodeFor(frame, s.cfg.Clock(j))
	if err != nil {
		return repcl.Snapshot{}, fmt.Errorf("sim: receive from %d: %w", j, err)
	}
	return msg, nil
}

// Run performs iterations steps, or runs until ctx is done when iterations
// is 0, pausing cfg.Sleep() between steps. It returns ctx.Err() when
// interrupted, together with the statistics so far.
func (s *Simulator) Run(ctx context.Context, iterations int) (Stats, error) {
	if err := s.Begin(ctx); err != nil {
		return s.stats, err
	}

	for n := 0; iterations == 0 || n < iterations; n++ {
		if n > 0 {
			if err := sleep(ctx, s.cfg.Sleep()); err != nil {
				s.logger.Info("simulation interrupted", "run_id", s.runID, "iterations", s.stats.Iterations)
				return s.stats, err
			}
		}
		if err := ctx.Err(); err != nil {
			s.logger.Info("simulation interrupted", "run_id", s.runID, "iterations", s.stats.Iterations)
			return s.stats, err
		}
		if _, err := s.Step(ctx); err != nil {
			return s.stats, err
		}
	}

	s.logger.Info("simulation finished",
		"run_id", s.runID,
		"ticks", s.stats.Ticks,
		"merges", s.stats.Merges,
	)
	return s.stats, nil
}

// Render writes every replay clock, then every vector clock, then a blank
// line.
func (s *Simulator) Render(w io.Writer) error {
	for _, c := range s.clocks {
		if _, err := fmt.Fprintln(w, c); err != nil {
			return err
		}
	}
	for _, v := range s.vectors {
		if _, err := fmt.Fprintln(w, v); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
