// Package sim provides the core SP-PIFO simulation engine.
//
// SP-PIFO approximates a push-in first-out (PIFO) queue with N strict-priority
// FIFO queues. Every queue i has a bound; an arriving packet is placed in the
// first queue whose bound its rank reaches (push-up), and the bounds below
// the top queue are lowered whenever a packet is admitted with a rank below
// the top bound (push-down). Such a packet is an inversion.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - bounds.go: BoundTracker, the admission and inversion algorithm
//   - scheduler.go: a stage's admission loop and its sentinel handling
//   - pipeline.go: generator, admitter and dispatcher joined as one run
//
// # Architecture
//
// A run is a set of actors joined by an errgroup. The generator feeds packets
// into a capacity-1 channel, one stage (Scheduler) or two (HierarchicalScheduler)
// admit them into unbounded OutputQueues, and a Dispatcher drains the terminal
// queues in strict priority order. End of input travels in-band as Item
// sentinels; any actor error cancels the others and the run returns no result.
//
// Sub-packages:
//   - sim/trace/: per-admission decision records and their summary
//   - sim/workload/: packet-trace files and synthetic rank generation
//   - sim/sweep/: parameter sweeps over queue counts and max ranks
//   - sim/report/: sweep CSV, per-rank blocks and Prometheus textfile output
//
// # Key Interfaces
//
//   - Source: where a stage reads items from (an input channel or an upstream queue)
//   - Admitter: a topology the pipeline drives (single stage or hierarchy)
package sim
