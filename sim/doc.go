// Package sim provides the discrete-event simulation kernel for conveyor-sim.
//
// # Reading Guide
//
// Start with these files to understand the kernel:
//   - scheduler.go: the delta-cycle loop that runs processes and advances the clock
//   - process.go: the handle a process uses to wait on time, events and channels
//   - event.go: notifications, immediate and timed
//   - channel.go: bounded FIFO channels between processes
//
// # Execution Model
//
// Every process runs on its own goroutine, but the Scheduler resumes exactly one
// at a time and waits for it to suspend, so simulation state needs no locking.
// Processes made runnable during a delta cycle run in the next delta cycle of the
// same instant, in the order they became runnable. The clock only advances when
// nothing is runnable, to the earliest pending timer.
//
// Randomness comes from PartitionedRNG, which derives an independent stream per
// named subsystem from one seed, so adding draws in one component never shifts
// another.
//
// Domain code lives in sub-packages:
//   - sim/conveyor/: scanner, segments, control system and line wiring
//   - sim/trace/: trace records of commands, transitions and packets
//   - sim/metrics/: Prometheus collector for line and scheduler counters
package sim
