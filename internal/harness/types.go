package harness

import "github.com/roach88/repcl/internal/repcl"

// TraceEvent is one executed step and, for ticks and merges, the state of
// the acting process afterwards.
type TraceEvent struct {
	Seq  int64  `json:"seq"`
	Op   string `json:"op"`
	Proc int    `json:"proc"`

	// From is the sender of a merge.
	From *int `json:"from,omitempty"`

	// NowMS is the manual time after an advance.
	NowMS int64 `json:"now_ms,omitempty"`

	Clock   repcl.Snapshot `json:"clock"`
	Tracked []repcl.Entry  `json:"tracked,omitempty"`
	Vector  []uint64       `json:"vector,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	Pass bool `json:"pass"`

	// Trace contains every executed step in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Final holds the state of every process after the last step, indexed
	// by process id.
	Final []ProcessState `json:"final"`
}

// ProcessState is the state of both clocks of one process.
type ProcessState struct {
	Clock   repcl.Snapshot `json:"clock"`
	Tracked []repcl.Entry  `json:"tracked"`
	Vector  []uint64       `json:"vector"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
