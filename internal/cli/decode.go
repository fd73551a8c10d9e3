package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/repcl/internal/config"
	"github.com/roach88/repcl/internal/repcl"
	"github.com/roach88/repcl/internal/wire"
)

// DecodeOptions holds flags for the decode command.
type DecodeOptions struct {
	*RootOptions
	Config    string
	Procs     int
	Epsilon   uint64
	WordWidth int
}

// DecodeResult is a decoded frame. Tracked is set when the clock
// parameters are known.
type DecodeResult struct {
	Snapshot repcl.Snapshot `json:"snapshot"`
	Tracked  []repcl.Entry  `json:"tracked,omitempty"`
}

// NewDecodeCommand creates the decode command.
func NewDecodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DecodeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "decode <hex>",
		Short: "Decode a wire frame",
		Long: `Decode the hex form of a replay clock wire frame.

Prints the sender, hlc, bitmap, packed offsets and counters. When the
clock parameters are given, either as flags or through a simulation
config file, the frame is validated against them and the tracked offsets
are listed per process.

Examples:
  repcl decode 000000010000000000000037000000000000000300000000000000020000000000000001
  repcl decode <hex> --procs 2 --epsilon 8
  repcl decode <hex> --config sim.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "simulation config file supplying the clock parameters")
	cmd.Flags().IntVar(&opts.Procs, "procs", 0, "number of processes")
	cmd.Flags().Uint64Var(&opts.Epsilon, "epsilon", 0, "exclusive bound on stored offsets")
	cmd.Flags().IntVar(&opts.WordWidth, "word-width", 64, "width of the packed offset word")
	cmd.MarkFlagsMutuallyExclusive("config", "procs")
	cmd.MarkFlagsRequiredTogether("procs", "epsilon")

	return cmd
}

func runDecode(opts *DecodeOptions, text string, cmd *cobra.Command) error {
	s, err := wire.DecodeHex(text)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid frame", err)
	}
	result := DecodeResult{Snapshot: s}

	cfg, ok, err := decodeConfig(opts)
	if err != nil {
		return err
	}
	if ok {
		if err := s.Validate(cfg); err != nil {
			return WrapExitError(ExitFailure, "frame does not match the clock parameters", err)
		}
		result.Tracked = s.Entries(cfg)
	}

	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout())
	return formatter.Success(result, func(w io.Writer) error {
		fmt.Fprintln(w, s)
		if ok {
			fmt.Fprintf(w, "tracked: %s\n", formatEntries(result.Tracked))
		}
		return nil
	})
}

// decodeConfig returns the clock parameters, and false when none were
// given. The owning process is irrelevant to frame validation.
func decodeConfig(opts *DecodeOptions) (repcl.Config, bool, error) {
	switch {
	case opts.Config != "":
		sc, err := config.Load(opts.Config)
		if err != nil {
			return repcl.Config{}, false, WrapExitError(ExitCommandError, "failed to load config", err)
		}
		return sc.Clock(0), true, nil

	case opts.Procs > 0:
		cfg := repcl.Config{
			ProcCount: opts.Procs,
			WordWidth: opts.WordWidth,
			Interval:  time.Millisecond,
			Epsilon:   opts.Epsilon,
		}
		if err := cfg.Validate(); err != nil {
			return repcl.Config{}, false, WrapExitError(ExitCommandError, "invalid clock parameters", err)
		}
		return cfg, true, nil
	}
	return repcl.Config{}, false, nil
}
