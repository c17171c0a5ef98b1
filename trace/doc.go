// Package trace defines the boundary between an instrumentation source and
// the profiler.
//
// A [Source] delivers [Event] values to one [Handler] on the goroutine that
// produced them. Each event names a [Kind], a source location, and the
// logical thread it occurred on. Events of one thread arrive in order; events
// of different threads may interleave arbitrarily.
package trace
