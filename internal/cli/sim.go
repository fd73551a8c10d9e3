package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/repcl/internal/config"
	"github.com/roach88/repcl/internal/sim"
	"github.com/roach88/repcl/internal/store"
)

// SimOptions holds flags for the sim command.
type SimOptions struct {
	*RootOptions
	Procs      int
	Epsilon    uint64
	Iterations int
	SleepMS    int64
	Seed       uint64
	Trace      string
	Quiet      bool

	// RunIDs overrides the run id generator (for testing).
	// If nil, defaults to sim.UUIDv7Generator.
	RunIDs sim.RunIDGenerator
}

// SimResult is the summary printed after a simulation.
type SimResult struct {
	Stats       sim.Stats     `json:"stats"`
	Config      config.Config `json:"config"`
	Interrupted bool          `json:"interrupted"`
}

// NewSimCommand creates the sim command.
func NewSimCommand(rootOpts *RootOptions) *cobra.Command {
	return newSimCommand(&SimOptions{RootOptions: rootOpts})
}

func newSimCommand(opts *SimOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sim [config.cue]",
		Short: "Run a random simulation",
		Long: `Run a simulation of replay clocks next to vector clocks.

Each iteration picks two processes at random. The same process twice is a
local event; two different processes deliver the state of the second to
the first. Every clock is printed after each iteration.

Parameters come from an optional CUE config file; flags override it.
With iterations 0 the simulation runs until interrupted (Ctrl-C).

Examples:
  repcl sim
  repcl sim sim.cue --iterations 100 --sleep-ms 0
  repcl sim --procs 16 --epsilon 4 --seed 42 --trace ./runs.db
  repcl sim --iterations 1000 --sleep-ms 0 --quiet --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := simConfig(cmd, opts, args)
			if err != nil {
				return err
			}
			return runSim(cmd, opts, cfg)
		},
	}

	cmd.Flags().IntVar(&opts.Procs, "procs", 0, "number of processes")
	cmd.Flags().Uint64Var(&opts.Epsilon, "epsilon", 0, "exclusive bound on stored offsets")
	cmd.Flags().IntVarP(&opts.Iterations, "iterations", "n", 0, "iterations (0 runs until interrupted)")
	cmd.Flags().Int64Var(&opts.SleepMS, "sleep-ms", 0, "pause between iterations in milliseconds")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "random seed (0 picks one)")
	cmd.Flags().StringVar(&opts.Trace, "trace", "", "SQLite file receiving the trace")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "do not print clocks after each iteration")

	return cmd
}

// simConfig loads the config file, or the defaults, and applies the flags
// the user set.
func simConfig(cmd *cobra.Command, opts *SimOptions, args []string) (config.Config, error) {
	cfg := config.Default()
	if len(args) == 1 {
		loaded, err := config.Load(args[0])
		if err != nil {
			return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("procs") {
		cfg.Procs = opts.Procs
	}
	if flags.Changed("epsilon") {
		cfg.Epsilon = opts.Epsilon
	}
	if flags.Changed("iterations") {
		cfg.Iterations = opts.Iterations
	}
	if flags.Changed("sleep-ms") {
		cfg.SleepMS = opts.SleepMS
	}
	if flags.Changed("seed") {
		cfg.Seed = opts.Seed
	}
	if flags.Changed("trace") {
		cfg.Trace = opts.Trace
	}

	if cfg.Iterations < 0 || cfg.SleepMS < 0 {
		return config.Config{}, NewExitError(ExitCommandError, "iterations and sleep-ms must not be negative")
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	return cfg, nil
}

func runSim(cmd *cobra.Command, opts *SimOptions, cfg config.Config) error {
	logger := opts.logger()
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout())

	simOpts := []sim.Option{sim.WithLogger(logger)}
	if opts.RunIDs != nil {
		simOpts = append(simOpts, sim.WithRunIDGenerator(opts.RunIDs))
	}
	// Clock dumps would corrupt the JSON summary.
	if !opts.Quiet && !formatter.JSON() {
		simOpts = append(simOpts, sim.WithOutput(cmd.OutOrStdout()))
	}

	if cfg.Trace != "" {
		logger.Info("opening trace store", "path", cfg.Trace)
		st, err := store.Open(cfg.Trace)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open trace store", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing trace store", "error", closeErr)
			}
		}()
		simOpts = append(simOpts, sim.WithRecorder(st))
	}

	s, err := sim.New(cfg, simOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create simulation", err)
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, err := s.Run(ctx, cfg.Iterations)
	interrupted := errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
	if err != nil && !interrupted {
		return WrapExitError(ExitFailure, "simulation failed", err)
	}

	cfg.Seed = s.Seed()
	result := SimResult{Stats: stats, Config: cfg, Interrupted: interrupted}
	return formatter.Success(result, func(w io.Writer) error {
		return writeSimSummary(w, result)
	})
}

func writeSimSummary(w io.Writer, r SimResult) error {
	s := r.Stats
	status := "finished"
	if r.Interrupted {
		status = "interrupted"
	}
	_, err := fmt.Fprintf(w,
		"Run %s %s after %d iterations (seed %d)\n"+
			"  ticks:  %d (mean %s)\n"+
			"  merges: %d (mean %s)\n"+
			"  size:   repcl %d bits, vector clock %d bits\n",
		s.RunID, status, s.Iterations, s.Seed,
		s.Ticks, s.MeanTick(),
		s.Merges, s.MeanMerge(),
		s.RepClBits, s.VectorBits,
	)
	return err
}
