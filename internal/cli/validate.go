package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/repcl/internal/config"
	"github.com/roach88/repcl/internal/repcl"
)

// ValidateResult is the resolved form of a valid config file.
type ValidateResult struct {
	File   string        `json:"file"`
	Config config.Config `json:"config"`

	// BitsPerOffset and OffsetBits describe the packed offset word.
	BitsPerOffset uint `json:"bits_per_offset"`
	OffsetBits    int  `json:"offset_bits"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config.cue>",
		Short: "Validate a simulation config",
		Long: `Validate a CUE simulation config against the schema and the capacity
rule procs x ceil(log2(epsilon)) <= word_width.

Prints the config with defaults filled in.

Exit codes:
  0 - Config is valid
  1 - Config is invalid
  2 - Command error (file not found)

Examples:
  repcl validate sim.cue
  repcl validate sim.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	if _, err := os.Stat(path); err != nil {
		return WrapExitError(ExitCommandError, "cannot read config", err)
	}

	formatter := newFormatter(opts, cmd.OutOrStdout())
	cfg, err := config.Load(path)
	if err != nil {
		opts.logger().Debug("config rejected", "file", path, "error", err)
		if ferr := formatter.Error("E_CONFIG_INVALID", err.Error(), nil); ferr != nil {
			return ferr
		}
		return WrapExitError(ExitFailure, "invalid config", err)
	}

	width := repcl.BitsPerOffset(cfg.Epsilon)
	result := ValidateResult{
		File:          path,
		Config:        cfg,
		BitsPerOffset: width,
		OffsetBits:    cfg.Procs * int(width),
	}
	return formatter.Success(result, func(w io.Writer) error {
		c := result.Config
		fmt.Fprintf(w, "%s: valid\n", path)
		fmt.Fprintf(w, "  procs:         %d\n", c.Procs)
		fmt.Fprintf(w, "  epsilon:       %d (%d bits per offset, %d of %d bits used)\n",
			c.Epsilon, result.BitsPerOffset, result.OffsetBits, c.WordWidth)
		fmt.Fprintf(w, "  interval:      %s\n", c.Interval())
		fmt.Fprintf(w, "  counter width: %d\n", c.CounterWidth)
		fmt.Fprintf(w, "  iterations:    %d\n", c.Iterations)
		fmt.Fprintf(w, "  sleep:         %s\n", c.Sleep())
		fmt.Fprintf(w, "  seed:          %d\n", c.Seed)
		if c.Trace != "" {
			fmt.Fprintf(w, "  trace:         %s\n", c.Trace)
		}
		return nil
	})
}
