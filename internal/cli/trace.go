package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/repcl/internal/repcl"
	"github.com/roach88/repcl/internal/sim"
	"github.com/roach88/repcl/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Proc     int // -1 for every process
}

// TraceEvent is one recorded step with its tracked offsets decoded.
type TraceEvent struct {
	Seq     int64          `json:"seq"`
	Op      sim.Op         `json:"op"`
	Proc    int            `json:"proc"`
	Peer    int            `json:"peer"`
	Clock   repcl.Snapshot `json:"clock"`
	Tracked []repcl.Entry  `json:"tracked"`
	Vector  []uint64       `json:"vector"`
	Elapsed time.Duration  `json:"elapsed_ns"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Run      sim.RunInfo  `json:"run"`
	Timeline []TraceEvent `json:"timeline"`
	Stats    TraceStats   `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalEvents int    `json:"total_events"`
	Ticks       int    `json:"ticks"`
	Merges      int    `json:"merges"`
	MaxHLC      uint64 `json:"max_hlc"`

	// MaxTracked is the largest number of offsets any clock carried.
	MaxTracked int `json:"max_tracked"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show a recorded simulation",
		Long: `Show the timeline of a simulation recorded with sim --trace.

Without --run, lists the recorded runs. With --run, prints every step:
the acting process, the sender of a merge, and the replay clock and
vector clock of the acting process afterwards.

Examples:
  repcl trace --db ./runs.db
  repcl trace --db ./runs.db --run 0190a5c4-...
  repcl trace --db ./runs.db --run 0190a5c4-... --proc 3
  repcl trace --db ./runs.db --run 0190a5c4-... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to show")
	cmd.Flags().IntVar(&opts.Proc, "proc", -1, "only show steps of this process")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout())
	if opts.RunID == "" {
		return listRuns(ctx, st, formatter)
	}

	run, err := st.ReadRun(ctx, opts.RunID)
	if errors.Is(err, store.ErrRunNotFound) {
		return WrapExitError(ExitCommandError, "unknown run", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	var events []sim.Event
	if opts.Proc >= 0 {
		if opts.Proc >= run.Config.Procs {
			return NewExitError(ExitCommandError,
				fmt.Sprintf("process %d out of range [0, %d)", opts.Proc, run.Config.Procs))
		}
		events, err = st.ReadProcessEvents(ctx, opts.RunID, opts.Proc)
	} else {
		events, err = st.ReadEvents(ctx, opts.RunID)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}

	result := buildTraceResult(run, events)
	return formatter.Success(result, func(w io.Writer) error {
		return writeTraceText(w, result)
	})
}

func listRuns(ctx context.Context, st *store.Store, formatter *OutputFormatter) error {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}
	return formatter.Success(runs, func(w io.Writer) error {
		if len(runs) == 0 {
			_, err := fmt.Fprintln(w, "No runs recorded.")
			return err
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RUN\tSTARTED\tPROCS\tEPSILON\tSEED")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\n",
				r.ID, r.StartedAt.Format(time.RFC3339), r.Config.Procs, r.Config.Epsilon, r.Seed)
		}
		return tw.Flush()
	})
}

func buildTraceResult(run sim.RunInfo, events []sim.Event) TraceResult {
	result := TraceResult{
		Run:      run,
		Timeline: make([]TraceEvent, 0, len(events)),
	}
	for _, ev := range events {
		tracked := ev.Clock.Entries(run.Config.Clock(ev.Proc))
		result.Timeline = append(result.Timeline, TraceEvent{
			Seq:     ev.Seq,
			Op:      ev.Op,
			Proc:    ev.Proc,
			Peer:    ev.Peer,
			Clock:   ev.Clock,
			Tracked: tracked,
			Vector:  ev.Vector,
			Elapsed: ev.Elapsed,
		})

		result.Stats.TotalEvents++
		switch ev.Op {
		case sim.OpTick:
			result.Stats.Ticks++
		case sim.OpMerge:
			result.Stats.Merges++
		}
		result.Stats.MaxHLC = max(result.Stats.MaxHLC, ev.Clock.HLC)
		result.Stats.MaxTracked = max(result.Stats.MaxTracked, len(tracked))
	}
	return result
}

func writeTraceText(w io.Writer, r TraceResult) error {
	fmt.Fprintf(w, "Run %s (seed %d, %d processes, epsilon %d)\n\n",
		r.Run.ID, r.Run.Seed, r.Run.Config.Procs, r.Run.Config.Epsilon)

	if len(r.Timeline) == 0 {
		_, err := fmt.Fprintln(w, "No events recorded.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tSTEP\tHLC\tCOUNTERS\tOFFSETS\tVECTOR")
	for _, ev := range r.Timeline {
		step := fmt.Sprintf("tick %d", ev.Proc)
		if ev.Op == sim.OpMerge {
			step = fmt.Sprintf("merge %d<-%d", ev.Proc, ev.Peer)
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\t%v\n",
			ev.Seq, step, ev.Clock.HLC, ev.Clock.Counters, formatEntries(ev.Tracked), ev.Vector)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\nEvents: %d (%d ticks, %d merges), max hlc %d, max tracked %d\n",
		r.Stats.TotalEvents, r.Stats.Ticks, r.Stats.Merges, r.Stats.MaxHLC, r.Stats.MaxTracked)
	return err
}

// formatEntries renders tracked offsets as {pid:offset ...}.
func formatEntries(entries []repcl.Entry) string {
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("%d:%d", e.ProcID, e.Offset)
	}
	return "{" + strings.Join(parts, " ") + "}"
}
