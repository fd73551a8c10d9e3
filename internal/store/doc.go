// Package store provides SQLite-backed storage for simulation traces.
//
// The store is an append-only log with two tables:
//   - runs: one row per simulation run (id, start time, seed, config)
//   - events: one row per simulated step, keyed by (run_id, seq)
//
// Events are ordered by seq, the logical step number of the run, never by
// wall time, so a run reads back in the order it was simulated.
//
// Clock words are unsigned 64-bit values. SQLite integers are signed, so
// every word is stored as the int64 with the same bit pattern and converted
// back on read.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
