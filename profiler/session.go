package profiler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/ardnew/lineprof/alloc"
	"github.com/ardnew/lineprof/clock"
	"github.com/ardnew/lineprof/filter"
	"github.com/ardnew/lineprof/log"
	"github.com/ardnew/lineprof/trace"
)

// newClock constructs the default clock when none is configured.
var newClock = clock.New

// Work is a unit of work to profile.
type Work func(context.Context) error

// Session profiles exactly one [Work] invocation.
type Session struct {
	src    trace.Source
	filter filter.Filter
	cfg    config
	used   atomic.Bool
}

// New returns a [Session] that tracks the files matched by f in events
// delivered by src.
func New(src trace.Source, f filter.Filter, opts ...Option) (*Session, error) {
	if src == nil {
		return nil, ErrNoSource
	}

	if f == nil {
		return nil, filter.ErrEmptyFilter
	}

	return &Session{src: src, filter: f, cfg: apply(config{}, opts...)}, nil
}

// Run profiles the given file filter over work. It is shorthand for [New]
// followed by [Session.Run].
func Run(
	ctx context.Context,
	src trace.Source,
	f filter.Filter,
	work Work,
	opts ...Option,
) (*Result, error) {
	s, err := New(src, f, opts...)
	if err != nil {
		return nil, err
	}

	return s.Run(ctx, work)
}

func (s *Session) logger() log.Logger {
	if s.cfg.logger != nil {
		return *s.cfg.logger
	}

	return log.Default()
}

// Run installs the trace hook, runs work, and removes the hook on every exit
// path.
//
// If work returns an error or panics, Run returns that error together with
// the profile accumulated up to the failure, or a nil profile if the session
// is strict. A panic is returned as an error wrapping [ErrWorkPanic].
func (s *Session) Run(ctx context.Context, work Work) (res *Result, err error) {
	if work == nil {
		return nil, ErrNoWork
	}

	if !s.used.CompareAndSwap(false, true) {
		return nil, ErrSessionUsed
	}

	if err := context.Cause(ctx); err != nil {
		return nil, err
	}

	logger := s.logger().With(slog.String("filter", s.filter.String()))

	clk := s.cfg.clock
	if clk == nil {
		var cerr error
		if clk, cerr = newClock(clock.DefaultFor(trace.IsPinned(s.src))); cerr != nil {
			logger.WarnContext(ctx, "processor time unavailable",
				slog.Any("error", cerr))
		}
	}

	counter := s.cfg.counter
	if counter == nil {
		counter = alloc.Runtime()
	}

	d := newDispatcher(s.src, s.filter, clk, counter)

	if err := d.start(); err != nil {
		return nil, ErrInstall.Wrap(err)
	}

	logger.DebugContext(ctx, "trace hook installed",
		slog.Bool("cpu", d.caps.CPU),
		slog.Bool("thread_cpu", d.caps.ThreadCPU),
		slog.Bool("allocs", d.caps.Allocs))

	ctx, cancel := context.WithCancelCause(ctx)

	began := time.Now()

	defer func() {
		d.stop()
		cancel(err)

		res = d.result()

		logger.DebugContext(ctx, "trace hook removed",
			slog.Duration("elapsed", time.Since(began)))
		logger.TraceContext(ctx, "profile complete", slog.Any("result", res))

		if err != nil && s.cfg.strict {
			res = nil
		}
	}()

	return nil, call(ctx, work)
}

// call runs work, converting a panic into an error.
func call(ctx context.Context, work Work) (err error) {
	defer func() {
		if r := recover(); r != nil {
			cause, ok := r.(error)
			if !ok {
				cause = fmt.Errorf("%v", r) //nolint:err113
			}

			err = ErrWorkPanic.Wrap(cause).
				With(slog.String("stack", string(debug.Stack())))
		}
	}()

	return work(ctx)
}
