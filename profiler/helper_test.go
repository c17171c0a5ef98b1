package profiler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ardnew/lineprof/alloc"
	"github.com/ardnew/lineprof/clock"
	"github.com/ardnew/lineprof/filter"
	"github.com/ardnew/lineprof/log"
	"github.com/ardnew/lineprof/trace"
)

const us = int64(time.Microsecond)

// source is a single-subscriber trace.Source driven directly by tests.
type source struct {
	mu        sync.Mutex
	h         trace.Handler
	reentrant bool
}

func (s *source) Subscribe(_ trace.Kind, h trace.Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.h != nil && !s.reentrant {
		return trace.ErrSubscribed
	}

	s.h = h

	return nil
}

func (s *source) Unsubscribe() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.h = nil
}

func (s *source) emit(e trace.Event) {
	s.mu.Lock()
	h := s.h
	s.mu.Unlock()

	if h != nil {
		h.HandleEvent(e)
	}
}

// rig scripts one thread's events against a manual clock and counter.
type rig struct {
	src    *source
	clk    *clock.Manual
	allocs *atomic.Uint64
	thread trace.ThreadID
}

func newRig() *rig {
	return &rig{
		src:    &source{},
		clk:    clock.NewManual(true),
		allocs: new(atomic.Uint64),
		thread: 1,
	}
}

// on returns a rig for another thread sharing the same source and meters.
func (r *rig) on(thread trace.ThreadID) *rig {
	c := *r
	c.thread = thread

	return &c
}

func (r *rig) options(opts ...Option) []Option {
	return append([]Option{
		WithClock(r.clk),
		WithCounter(alloc.Func(r.allocs.Load)),
		WithLogger(log.Discard()),
	}, opts...)
}

// at sets the clocks in microseconds.
func (r *rig) at(wall, cpu int64) *rig {
	r.clk.Set(wall*us, cpu*us)

	return r
}

func (r *rig) alloc(n uint64) *rig {
	r.allocs.Add(n)

	return r
}

func (r *rig) call(file string, line int) *rig {
	r.src.emit(trace.Event{Kind: trace.KindCall, File: file, Line: line, Thread: r.thread})

	return r
}

func (r *rig) line(file string, line int) *rig {
	r.src.emit(trace.Event{Kind: trace.KindLine, File: file, Line: line, Thread: r.thread})

	return r
}

func (r *rig) ret() *rig {
	r.src.emit(trace.Event{Kind: trace.KindReturn, Thread: r.thread})

	return r
}

func (r *rig) raise() *rig {
	r.src.emit(trace.Event{Kind: trace.KindRaise, Thread: r.thread})

	return r
}

// run profiles script with f and fails the test on error.
func (r *rig) run(t *testing.T, f filter.Filter, script func(), opts ...Option) *Result {
	t.Helper()

	res, err := Run(context.Background(), r.src, f, func(context.Context) error {
		script()

		return nil
	}, r.options(opts...)...)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	checkInvariants(t, res)

	return res
}

func checkInvariants(t *testing.T, res *Result) {
	t.Helper()

	for _, path := range res.Paths() {
		f := res.File(path)

		for n, rec := range f.Records() {
			if rec.Wall < 0 || rec.CPU < 0 || rec.CPU > rec.Wall {
				t.Errorf("%s:%d violates wall >= cpu >= 0: %+v", path, n, rec)
			}
		}

		ex := f.Summary.Exclusive()
		if ex.Wall < 0 || ex.CPU < 0 {
			t.Errorf("%s: negative exclusive cost %+v", path, ex)
		}
	}
}

func wantLine(t *testing.T, res *Result, file string, line int, wall, cpu int64, calls uint64) {
	t.Helper()

	got := res.File(file).Line(line)
	if got.Wall != time.Duration(wall*us) || got.CPU != time.Duration(cpu*us) || got.Calls != calls {
		t.Errorf("%s:%d = {wall %v, cpu %v, calls %d}, want {wall %v, cpu %v, calls %d}",
			file, line, got.Wall, got.CPU, got.Calls,
			time.Duration(wall*us), time.Duration(cpu*us), calls)
	}
}

func cost(wall, cpu int64, allocs uint64) Cost {
	return Cost{Wall: time.Duration(wall * us), CPU: time.Duration(cpu * us), Allocs: allocs}
}
