package profiler

import "github.com/ardnew/lineprof/pkg"

var (
	// ErrNoSource indicates a session was created without an
	// instrumentation source.
	ErrNoSource = pkg.NewError("no instrumentation source")
	// ErrNoWork indicates a session was run without a unit of work.
	ErrNoWork = pkg.NewError("no work to profile")
	// ErrSessionUsed indicates a session was run more than once.
	ErrSessionUsed = pkg.NewError("session already used")
	// ErrInstall indicates the dispatcher could not subscribe to the source.
	ErrInstall = pkg.NewError("install trace hook")
	// ErrWorkPanic indicates the profiled work panicked. The profile up to
	// the panic is still returned unless the session is strict.
	ErrWorkPanic = pkg.NewError("profiled work panicked")
)
