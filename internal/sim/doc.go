// Package sim drives a population of replay clocks and vector clocks with
// random events, mirroring the message pattern of a distributed system.
//
// Each iteration picks two processes i and j at random:
//
//   - i == j: process i records a local event on both of its clocks
//   - i != j: process i receives the current state of process j; the replay
//     clock snapshot travels through the wire codec
//
// After every iteration the state of all clocks can be rendered to an
// io.Writer and recorded through a Recorder, and the simulator pauses for
// the configured interval. A Simulator is driven from one goroutine.
package sim
