// Package replay records and replays execution event traces.
//
// A trace is a YAML document listing events in the order they were observed,
// each with the clock and allocation readings taken when it occurred:
//
//	cpu: true
//	allocs: true
//	events:
//	  - {kind: call, file: main.go, line: 12, thread: 1, wall_us: 0, cpu_us: 0, allocs: 0}
//	  - {kind: line, file: util.go, line: 3, thread: 1, wall_us: 5, cpu_us: 4, allocs: 1}
//	  - {kind: return, thread: 1, wall_us: 105, cpu_us: 40, allocs: 3}
//
// [Load] parses a trace into a [Trace], which is a [trace.Source]. Profiling
// it with the clock and counter returned by [Trace.Clock] and [Trace.Counter]
// reproduces the original measurements exactly. A [Recorder] produces traces
// from any live source.
package replay
