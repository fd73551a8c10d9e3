// Package vecclock implements a fixed-size vector clock with saturating
// counters. It is the baseline the replay clock is compared against in
// simulations: one counter of CounterWidth bits per process.
package vecclock
