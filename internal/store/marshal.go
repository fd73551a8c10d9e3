package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/repcl/internal/canonical"
	"github.com/roach88/repcl/internal/config"
)

// marshalConfig converts a simulation config to canonical JSON TEXT.
func marshalConfig(cfg config.Config) (string, error) {
	data, err := canonical.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	return string(data), nil
}

func unmarshalConfig(data string) (config.Config, error) {
	var cfg config.Config
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		return config.Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// marshalVector converts vector clock counters to canonical JSON TEXT.
func marshalVector(v []uint64) (string, error) {
	if v == nil {
		v = []uint64{}
	}
	data, err := canonical.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal vector: %w", err)
	}
	return string(data), nil
}

// unmarshalVector parses counters. json.Unmarshal into []uint64 keeps
// values above 2^53 exact.
func unmarshalVector(data string) ([]uint64, error) {
	v := []uint64{}
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return nil, fmt.Errorf("unmarshal vector: %w", err)
	}
	return v, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

// toSQL and fromSQL carry a uint64 through a signed SQLite integer.
func toSQL(v uint64) int64   { return int64(v) }
func fromSQL(v int64) uint64 { return uint64(v) }
