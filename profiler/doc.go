// Package profiler attributes wall time, processor time, and allocations to
// individual source lines.
//
// A [Session] subscribes to a [trace.Source] for the duration of one unit of
// work and folds the resulting call, line, return, and raise events into a
// [Result]:
//
//	res, err := profiler.Run(ctx, src, filter.All(), work)
//
// # Attribution
//
// Each activation is charged to the line that made the call. When it
// returns, its elapsed cost is added to that line and the line's call count
// is incremented. Between line events, the cost of the current line less the
// cost of the calls it made is added to that line as well, so a line's
// record is inclusive of everything it caused.
//
// Only the outermost open activation charged to a line is timed, so
// recursion never counts the same interval twice. Raise is accounted exactly
// like return, and activations still open when the work ends are closed at
// that instant.
//
// Each tracked file also gets a [Summary]: the time any of its lines or
// activations was open, and the part of that time spent in other files.
//
// # Concurrency
//
// Events are handled on the goroutine that delivers them. Each thread has its
// own unlocked call stack; only updates to the shared result table take a
// lock, and only for files the filter tracks.
package profiler
