package repcl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitsPerOffset(t *testing.T) {
	tests := []struct {
		epsilon uint64
		want    uint
	}{
		{1, 0},
		{2, 1},
		{3, 2},
		{4, 2},
		{5, 3},
		{8, 3},
		{9, 4},
		{16, 4},
		{17, 5},
		{1 << 32, 32},
		{^uint64(0), 64},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, BitsPerOffset(tt.epsilon), "epsilon=%d", tt.epsilon)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{ProcID: 0, ProcCount: 8, WordWidth: 64, Interval: time.Millisecond, Epsilon: 256}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "exact fit", mutate: func(c *Config) { c.ProcCount = 16; c.Epsilon = 16 }},
		{name: "epsilon one", mutate: func(c *Config) { c.ProcCount = 64; c.Epsilon = 1 }},
		{name: "narrow word", mutate: func(c *Config) { c.WordWidth = 16; c.ProcCount = 4; c.Epsilon = 16 }},
		{name: "zero processes", mutate: func(c *Config) { c.ProcCount = 0 }, wantErr: "process count"},
		{name: "too many processes", mutate: func(c *Config) { c.ProcCount = 65; c.Epsilon = 1 }, wantErr: "process count"},
		{name: "negative proc id", mutate: func(c *Config) { c.ProcID = -1 }, wantErr: "process id"},
		{name: "proc id at count", mutate: func(c *Config) { c.ProcID = 8 }, wantErr: "process id"},
		{name: "odd word width", mutate: func(c *Config) { c.WordWidth = 48 }, wantErr: "word width"},
		{name: "zero interval", mutate: func(c *Config) { c.Interval = 0 }, wantErr: "interval"},
		{name: "zero epsilon", mutate: func(c *Config) { c.Epsilon = 0 }, wantErr: "epsilon"},
		{name: "capacity exceeded", mutate: func(c *Config) { c.Epsilon = 257 }, wantErr: "exceeds word width"},
		{name: "capacity exceeded narrow", mutate: func(c *Config) { c.WordWidth = 8; c.ProcCount = 3; c.Epsilon = 8 }, wantErr: "exceeds word width"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, IsConfigurationError(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_CapacityProperty(t *testing.T) {
	for procs := 1; procs <= MaxProcesses; procs++ {
		for _, eps := range []uint64{1, 2, 3, 4, 7, 8, 9, 100, 1 << 20} {
			cfg := Config{ProcCount: procs, WordWidth: 64, Interval: time.Millisecond, Epsilon: eps}
			fits := procs*int(BitsPerOffset(eps)) <= 64
			err := cfg.Validate()
			assert.Equal(t, fits, err == nil, "procs=%d epsilon=%d err=%v", procs, eps, err)
		}
	}
}

func TestConfig_ForProcess(t *testing.T) {
	cfg := testConfig(0, 4, 8)
	other := cfg.ForProcess(3)
	assert.Equal(t, 3, other.ProcID)
	assert.Equal(t, 0, cfg.ProcID, "receiver must not change")
}
