// Package config loads simulation parameters from CUE files.
//
// A file is unified with the embedded #Config schema, which supplies
// bounds and defaults and rejects unknown fields. The decoded values are
// then checked against the clock capacity rules.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/roach88/repcl/internal/repcl"
)

//go:embed schema.cue
var schemaSource string

// Config holds the parameters of one simulation.
type Config struct {
	Procs        int    `json:"procs"`
	Epsilon      uint64 `json:"epsilon"`
	IntervalMS   int64  `json:"interval_ms"`
	WordWidth    int    `json:"word_width"`
	CounterWidth uint   `json:"counter_width"`
	Iterations   int    `json:"iterations"`
	SleepMS      int64  `json:"sleep_ms"`
	Seed         uint64 `json:"seed"`
	Trace        string `json:"trace,omitempty"`
}

// Interval returns the epoch width.
func (c Config) Interval() time.Duration {
	return time.Duration(c.IntervalMS) * time.Millisecond
}

// Sleep returns the pause between iterations.
func (c Config) Sleep() time.Duration {
	return time.Duration(c.SleepMS) * time.Millisecond
}

// Clock returns the clock parameters of process procID.
func (c Config) Clock(procID int) repcl.Config {
	return repcl.Config{
		ProcID:    procID,
		ProcCount: c.Procs,
		WordWidth: c.WordWidth,
		Interval:  c.Interval(),
		Epsilon:   c.Epsilon,
	}
}

// Validate checks the cross-field rules the schema cannot express.
func (c Config) Validate() error {
	if err := c.Clock(0).Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.CounterWidth < 1 || c.CounterWidth > 64 {
		return fmt.Errorf("config: counter width %d out of range [1, 64]", c.CounterWidth)
	}
	return nil
}

// Default returns the schema defaults.
func Default() Config {
	cfg, err := LoadBytes("default.cue", nil)
	if err != nil {
		panic(fmt.Sprintf("config: embedded schema: %v", err))
	}
	return cfg
}

// Load reads and validates the CUE file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return LoadBytes(path, data)
}

// LoadBytes validates CUE source; filename is used in error positions.
func LoadBytes(filename string, data []byte) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("config: compile schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	file := ctx.CompileBytes(data, cue.Filename(filename))
	if err := file.Err(); err != nil {
		return Config{}, fmt.Errorf("config: %s", details(err))
	}

	merged := def.Unify(file)
	if err := merged.Validate(cue.Concrete(true)); err != nil {
		return Config{}, fmt.Errorf("config: %s", details(err))
	}

	var cfg Config
	if err := merged.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %s", details(err))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func details(err error) string {
	return cueerrors.Details(err, nil)
}
