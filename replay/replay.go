package replay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/klauspost/readahead"

	"github.com/ardnew/lineprof/alloc"
	"github.com/ardnew/lineprof/clock"
	"github.com/ardnew/lineprof/filter"
	"github.com/ardnew/lineprof/pkg"
	"github.com/ardnew/lineprof/profiler"
	"github.com/ardnew/lineprof/trace"
)

var (
	// ErrReadTrace indicates the trace could not be read.
	ErrReadTrace = pkg.NewError("failed to read trace")
	// ErrInvalidTrace indicates the trace is malformed.
	ErrInvalidTrace = pkg.NewError("invalid trace")
	// ErrWriteTrace indicates the trace could not be written.
	ErrWriteTrace = pkg.NewError("failed to write trace")
)

const us = int64(time.Microsecond)

// Document is the serialized form of a trace.
type Document struct {
	CPU    bool     `yaml:"cpu"`
	Allocs bool     `yaml:"allocs"`
	Events []Record `yaml:"events"`
}

// Record is one event with the readings taken when it occurred.
type Record struct {
	Kind   string `yaml:"kind"`
	File   string `yaml:"file,omitempty"`
	Line   int    `yaml:"line,omitempty"`
	Thread uint64 `yaml:"thread"`
	WallUS int64  `yaml:"wall_us"`
	CPUUS  int64  `yaml:"cpu_us,omitempty"`
	Allocs uint64 `yaml:"allocs,omitempty"`
}

type step struct {
	event  trace.Event
	wall   int64
	cpu    int64
	allocs uint64
}

// Trace is a loaded event trace. It implements [trace.Source] for a single
// subscriber.
type Trace struct {
	steps  []step
	clock  *clock.Manual
	allocs atomic.Uint64
	hasAlc bool

	mu    sync.Mutex
	h     trace.Handler
	kinds trace.Kind
}

// stream records the first failure of the reader it wraps, so that it is
// reported apart from malformed input.
type stream struct {
	io.ReadCloser
	err error
}

func (s *stream) Read(p []byte) (int, error) {
	n, err := s.ReadCloser.Read(p)
	if err != nil && !errors.Is(err, io.EOF) && s.err == nil {
		s.err = err
	}

	return n, err
}

// Load reads a trace document from r. Empty input is an empty trace.
func Load(r io.Reader) (*Trace, error) {
	in := &stream{ReadCloser: readahead.NewReader(r)}
	defer in.Close()

	var doc Document

	err := yaml.NewDecoder(in).Decode(&doc)

	switch {
	case in.err != nil:
		return nil, ErrReadTrace.Wrap(in.err).
			With(slog.String("source", "reader"))

	case err != nil && !errors.Is(err, io.EOF):
		return nil, ErrInvalidTrace.Wrap(err)
	}

	return Compile(doc)
}

// ReadFile reads a trace document from the named file.
func ReadFile(path string) (*Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ErrReadTrace.Wrap(err).With(slog.String("path", path))
	}
	defer f.Close()

	t, err := Load(f)
	if err != nil {
		return nil, pkg.WrapError(err).With(slog.String("path", path))
	}

	return t, nil
}

// Compile validates doc and returns its [Trace].
//
// Every kind must name exactly one event kind, and the readings must never
// decrease from one event to the next.
func Compile(doc Document) (*Trace, error) {
	t := &Trace{
		steps:  make([]step, 0, len(doc.Events)),
		clock:  clock.NewManual(doc.CPU),
		hasAlc: doc.Allocs,
	}

	var prev step

	for i, rec := range doc.Events {
		kind, err := trace.ParseKind(rec.Kind)
		if err != nil {
			return nil, ErrInvalidTrace.Wrap(err).With(slog.Int("event", i))
		}

		if kind&(kind-1) != 0 {
			return nil, ErrInvalidTrace.With(
				slog.Int("event", i),
				slog.String("kind", rec.Kind),
				slog.String("reason", "more than one kind"),
			)
		}

		s := step{
			event: trace.Event{
				File:   rec.File,
				Line:   rec.Line,
				Thread: trace.ThreadID(rec.Thread),
				Kind:   kind,
			},
			wall: rec.WallUS * us,
		}

		// Readings of a missing capability are ignored.
		if doc.CPU {
			s.cpu = rec.CPUUS * us
		}

		if doc.Allocs {
			s.allocs = rec.Allocs
		}

		if i > 0 && (s.wall < prev.wall || s.cpu < prev.cpu || s.allocs < prev.allocs) {
			return nil, ErrInvalidTrace.With(
				slog.Int("event", i),
				slog.String("reason", "readings decrease"),
			)
		}

		t.steps = append(t.steps, s)
		prev = s
	}

	return t, nil
}

// Len returns the number of events in the trace.
func (t *Trace) Len() int { return len(t.steps) }

// Clock returns the clock set to each event's recorded readings during
// [Trace.Play].
func (t *Trace) Clock() clock.Clock { return t.clock }

// Counter returns the allocation counter set during [Trace.Play], or a
// counter reporting no capability if the trace carries no allocation counts.
func (t *Trace) Counter() alloc.Counter {
	if !t.hasAlc {
		return alloc.None()
	}

	return alloc.Func(t.allocs.Load)
}

// Subscribe implements [trace.Source].
func (t *Trace) Subscribe(kinds trace.Kind, h trace.Handler) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.h != nil {
		return trace.ErrSubscribed
	}

	t.h, t.kinds = h, kinds

	return nil
}

// Unsubscribe implements [trace.Source].
func (t *Trace) Unsubscribe() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.h, t.kinds = nil, 0
}

func (t *Trace) handler() (trace.Handler, trace.Kind) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.h, t.kinds
}

// Play delivers every event in order to the current subscriber, first
// setting the clock and counter to the event's readings. It stops early if
// ctx is done.
func (t *Trace) Play(ctx context.Context) error {
	for _, s := range t.steps {
		if err := context.Cause(ctx); err != nil {
			return err
		}

		t.clock.Set(s.wall, s.cpu)
		t.allocs.Store(s.allocs)

		if h, kinds := t.handler(); h != nil && kinds.Has(s.event.Kind) {
			h.HandleEvent(s.event)
		}
	}

	return nil
}

// Profile plays the trace under a [profiler.Session] tracking the files
// matched by f, using the trace's own clock and counter.
func (t *Trace) Profile(
	ctx context.Context,
	f filter.Filter,
	opts ...profiler.Option,
) (*profiler.Result, error) {
	opts = append([]profiler.Option{
		profiler.WithClock(t.Clock()),
		profiler.WithCounter(t.Counter()),
	}, opts...)

	return profiler.Run(ctx, t, f, t.Play, opts...)
}
