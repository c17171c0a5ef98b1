package replay

import (
	"context"
	"io"
	"sync"

	"github.com/goccy/go-yaml"

	"github.com/ardnew/lineprof/alloc"
	"github.com/ardnew/lineprof/clock"
	"github.com/ardnew/lineprof/trace"
)

// Recorder is a [trace.Handler] that captures events with the readings of a
// clock and counter. Install it on a live source, then write the captured
// trace with [Recorder.Encode].
type Recorder struct {
	clock   clock.Clock
	counter alloc.Counter

	mu  sync.Mutex
	doc Document
}

// NewRecorder returns a [Recorder] reading clk and counter.
func NewRecorder(clk clock.Clock, counter alloc.Counter) *Recorder {
	return &Recorder{
		clock:   clk,
		counter: counter,
		doc: Document{
			CPU:    clk.HasCPU(),
			Allocs: counter.Available(),
		},
	}
}

// HandleEvent implements [trace.Handler].
//
// Readings are taken under the recorder's lock so that they never decrease
// across threads.
func (r *Recorder) HandleEvent(e trace.Event) {
	e.Resolve()

	r.mu.Lock()
	defer r.mu.Unlock()

	rec := Record{
		Kind:   e.Kind.String(),
		File:   e.File,
		Line:   e.Line,
		Thread: uint64(e.Thread),
		WallUS: r.clock.Wall() / us,
	}

	if r.doc.CPU {
		rec.CPUUS = r.clock.CPU() / us
	}

	if r.doc.Allocs {
		rec.Allocs = r.counter.Allocs()
	}

	if n := len(r.doc.Events); n > 0 {
		prev := r.doc.Events[n-1]
		rec.WallUS = max(rec.WallUS, prev.WallUS)
		rec.CPUUS = max(rec.CPUUS, prev.CPUUS)
		rec.Allocs = max(rec.Allocs, prev.Allocs)
	}

	r.doc.Events = append(r.doc.Events, rec)
}

// Document returns a copy of the captured trace.
func (r *Recorder) Document() Document {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc := r.doc
	doc.Events = append([]Record(nil), r.doc.Events...)

	return doc
}

// Encode writes the captured trace to w as YAML.
func (r *Recorder) Encode(ctx context.Context, w io.Writer) error {
	data, err := yaml.MarshalContext(ctx, r.Document())
	if err != nil {
		return ErrWriteTrace.Wrap(err)
	}

	if _, err := w.Write(data); err != nil {
		return ErrWriteTrace.Wrap(err)
	}

	return nil
}

// Source returns a [trace.Source] that delivers the events of src to its
// subscriber and also records every event in r.
func (r *Recorder) Source(src trace.Source) trace.Source {
	return &recording{Source: src, rec: r}
}

type recording struct {
	trace.Source

	rec *Recorder
}

func (s *recording) Subscribe(kinds trace.Kind, h trace.Handler) error {
	return s.Source.Subscribe(trace.KindAll, trace.HandlerFunc(func(e trace.Event) {
		e.Resolve()
		s.rec.HandleEvent(e)

		if kinds.Has(e.Kind) {
			h.HandleEvent(e)
		}
	}))
}

// Pinned implements [trace.Pinned] for the wrapped source.
func (s *recording) Pinned() bool { return trace.IsPinned(s.Source) }
