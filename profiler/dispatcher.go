package profiler

import (
	"sync"
	"sync/atomic"

	"github.com/ardnew/lineprof/alloc"
	"github.com/ardnew/lineprof/clock"
	"github.com/ardnew/lineprof/filter"
	"github.com/ardnew/lineprof/trace"
)

// dispatcher routes events from a [trace.Source] to per-thread trackers.
type dispatcher struct {
	src     trace.Source
	filter  filter.Filter
	clock   clock.Clock
	counter alloc.Counter
	tab     *table
	caps    Capabilities

	// gate is read-held while an event is processed so that stop can wait
	// for in-flight events before unwinding.
	gate    sync.RWMutex
	closed  bool
	threads sync.Map // trace.ThreadID -> *tracker
	events  atomic.Uint64
}

func newDispatcher(
	src trace.Source,
	f filter.Filter,
	clk clock.Clock,
	counter alloc.Counter,
) *dispatcher {
	return &dispatcher{
		src:     src,
		filter:  filter.Memo(f),
		clock:   clk,
		counter: counter,
		tab:     newTable(),
		caps: Capabilities{
			CPU:       clk.HasCPU(),
			ThreadCPU: clk.HasCPU() && clock.PerThread(clk),
			Allocs:    counter.Available(),
		},
	}
}

func (d *dispatcher) start() error {
	return d.src.Subscribe(trace.KindAll, d)
}

// stop unsubscribes, waits for in-flight events, and closes every open
// activation. It is idempotent.
func (d *dispatcher) stop() {
	d.src.Unsubscribe()

	d.gate.Lock()
	defer d.gate.Unlock()

	if d.closed {
		return
	}

	d.closed = true

	now := d.now()

	d.threads.Range(func(_, v any) bool {
		t := v.(*tracker) //nolint:forcetypeassert

		// Processor time read here is that of the stopping thread.
		at := t.adjust(now)
		if d.caps.ThreadCPU {
			at.cpu = t.last.cpu
		}

		t.unwind(at)

		return true
	})
}

func (d *dispatcher) now() snapshot {
	var s snapshot

	s.wall = d.clock.Wall()

	if d.caps.CPU {
		s.cpu = d.clock.CPU()
	}

	if d.caps.Allocs {
		s.allocs = d.counter.Allocs()
	}

	return s
}

func (d *dispatcher) tracker(id trace.ThreadID) *tracker {
	if v, ok := d.threads.Load(id); ok {
		return v.(*tracker) //nolint:forcetypeassert
	}

	v, _ := d.threads.LoadOrStore(id, newTracker(id, d.tab))

	return v.(*tracker) //nolint:forcetypeassert
}

// HandleEvent implements [trace.Handler].
//
// Objects allocated while an event is handled are not charged to the
// profiled code: the counter is read again on the way out and the difference
// is excluded from the thread's later readings.
func (d *dispatcher) HandleEvent(e trace.Event) {
	raw := d.now()

	d.gate.RLock()
	defer d.gate.RUnlock()

	if d.closed {
		return
	}

	d.events.Add(1)

	t := d.tracker(e.Thread)
	t.events++

	now := t.adjust(raw)
	t.last = now

	if d.caps.Allocs {
		defer func() {
			if n := d.counter.Allocs(); n > raw.allocs {
				t.overhead += n - raw.allocs
			}
		}()
	}

	e.Resolve()

	switch e.Kind {
	case trace.KindCall:
		t.call(e.File, e.Line, d.tracked(e.File), now)

	case trace.KindLine:
		t.line(e.File, e.Line, d.tracked(e.File), now)

	case trace.KindReturn, trace.KindRaise:
		t.ret(now)
	}
}

func (d *dispatcher) tracked(file string) bool {
	return file != "" && d.filter.Match(file)
}

// result collects the table and per-thread counters. Call after stop.
func (d *dispatcher) result() *Result {
	d.gate.RLock()
	defer d.gate.RUnlock()

	r := &Result{
		Files:        d.tab.result(),
		Capabilities: d.caps,
		Events:       d.events.Load(),
	}

	d.threads.Range(func(_, v any) bool {
		t := v.(*tracker) //nolint:forcetypeassert

		r.Threads++
		r.Anomalies.Clamped += t.clamped
		r.Anomalies.Unmatched += t.unmatched

		return true
	})

	return r
}
