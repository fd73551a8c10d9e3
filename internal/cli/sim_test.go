package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/repcl/internal/testutil"
)

// runSimCommand executes sim with a fixed run id.
func runSimCommand(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := newSimCommand(&SimOptions{
		RootOptions: &RootOptions{Format: format, Logger: newLogger(&bytes.Buffer{}, false)},
		RunIDs:      testutil.NewFixedRunIDGenerator("run-1"),
	})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestSimCommand_RendersClocks(t *testing.T) {
	out, err := runSimCommand(t, "text", "--procs", "2", "--epsilon", "4", "-n", "3", "--sleep-ms", "0", "--seed", "9")
	require.NoError(t, err)

	// 3 iterations x (2 replay clocks + 2 vector clocks)
	assert.Equal(t, 6, strings.Count(out, "RepCl("))
	assert.Equal(t, 6, strings.Count(out, "VectorCl("))
	assert.Contains(t, out, "Run run-1 finished after 3 iterations (seed 9)")
	assert.Contains(t, out, "size:   repcl 288 bits, vector clock 16 bits")
}

func TestSimCommand_Quiet(t *testing.T) {
	out, err := runSimCommand(t, "text", "-n", "5", "--sleep-ms", "0", "--seed", "9", "--quiet")
	require.NoError(t, err)

	assert.NotContains(t, out, "RepCl(")
	assert.True(t, strings.HasPrefix(out, "Run run-1 finished after 5 iterations"))
}

func TestSimCommand_JSON(t *testing.T) {
	out, err := runSimCommand(t, "json", "--procs", "4", "-n", "20", "--sleep-ms", "0", "--seed", "11")
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		Data   SimResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))

	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-1", resp.Data.Stats.RunID)
	assert.Equal(t, 20, resp.Data.Stats.Iterations)
	assert.Equal(t, 20, resp.Data.Stats.Ticks+resp.Data.Stats.Merges)
	assert.Equal(t, uint64(11), resp.Data.Config.Seed)
	assert.Equal(t, 4, resp.Data.Config.Procs)
	assert.False(t, resp.Data.Interrupted)
}

func TestSimCommand_RandomSeedReported(t *testing.T) {
	out, err := runSimCommand(t, "json", "-n", "1", "--sleep-ms", "0")
	require.NoError(t, err)

	var resp struct {
		Data SimResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.NotZero(t, resp.Data.Config.Seed)
	assert.Equal(t, resp.Data.Config.Seed, resp.Data.Stats.Seed)
}

func TestSimCommand_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.cue")
	require.NoError(t, os.WriteFile(path, []byte("procs: 3\nepsilon: 16\niterations: 4\nsleep_ms: 0\nseed: 5\n"), 0644))

	out, err := runSimCommand(t, "json", path)
	require.NoError(t, err)

	var resp struct {
		Data SimResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 3, resp.Data.Config.Procs)
	assert.Equal(t, uint64(16), resp.Data.Config.Epsilon)
	assert.Equal(t, 4, resp.Data.Stats.Iterations)
}

func TestSimCommand_FlagsOverrideConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.cue")
	require.NoError(t, os.WriteFile(path, []byte("procs: 3\niterations: 4\nsleep_ms: 0\nseed: 5\n"), 0644))

	out, err := runSimCommand(t, "json", path, "--procs", "6", "-n", "2")
	require.NoError(t, err)

	var resp struct {
		Data SimResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 6, resp.Data.Config.Procs)
	assert.Equal(t, 2, resp.Data.Stats.Iterations)
	assert.Equal(t, uint64(5), resp.Data.Stats.Seed)
}

func TestSimCommand_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "missing config", args: []string{"/nonexistent/sim.cue"}, wantErr: "failed to load config"},
		{name: "capacity exceeded", args: []string{"--procs", "64", "--epsilon", "4", "-n", "1"}, wantErr: "invalid configuration"},
		{name: "zero epsilon", args: []string{"--epsilon", "0", "-n", "1"}, wantErr: "invalid configuration"},
		{name: "negative iterations", args: []string{"--iterations=-1"}, wantErr: "must not be negative"},
		{name: "trace in missing directory", args: []string{"-n", "1", "--trace", "/nonexistent/dir/runs.db"}, wantErr: "failed to open trace store"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runSimCommand(t, "text", tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
}
