// Package profile records pprof profiles of the lineprof command itself.
//
// Profiling is compiled in only with the "pprof" build tag:
//
//	go build -tags pprof .
//
// Without the tag, [Modes] is empty and [Start] returns a no-op [Stopper],
// so callers need no conditional code.
//
// # Modes
//
//   - allocs:    memory allocation profiling (all allocations)
//   - block:     blocking on synchronization primitives
//   - clock:     wall-clock profiling
//   - cpu:       CPU profiling
//   - goroutine: goroutine stacks
//   - heap:      live heap allocations
//   - mem:       general memory profiling
//   - mutex:     mutex contention
//   - thread:    thread creation
//   - trace:     execution trace
//
// # Usage
//
//	s := profile.Start(
//	    profile.WithMode("cpu"),
//	    profile.WithDir("/tmp/profiles"),
//	)
//	defer s.Stop()
//
// The command exposes the same through its --pprof-mode and --pprof-dir
// flags. The default directory is the pprof subdirectory of the user cache
// directory, e.g. $XDG_CACHE_HOME/lineprof/pprof.
//
// Analyze the output with go tool pprof:
//
//	go tool pprof -http=: ./lineprof /tmp/profiles/cpu.pprof
//
// Builds with the tag also register the net/http/pprof handlers on the
// default mux.
//
// lineprof measures the lines of the program it profiles; this package
// measures lineprof. The two are unrelated.
package profile
