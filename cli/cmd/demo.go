package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/ardnew/lineprof/alloc"
	"github.com/ardnew/lineprof/clock"
	"github.com/ardnew/lineprof/filter"
	"github.com/ardnew/lineprof/log"
	"github.com/ardnew/lineprof/probe"
	"github.com/ardnew/lineprof/profiler"
	"github.com/ardnew/lineprof/replay"
	"github.com/ardnew/lineprof/trace"
)

// clockAuto selects per-thread processor time for live profiles and process
// time for recorded ones, whose readings must be comparable across threads.
const clockAuto = "auto"

// Demo profiles a built-in workload instrumented with probe calls.
type Demo struct {
	Output `embed:""`

	Clock  string `default:"${clockDefault}" enum:"${clockEnum}"        help:"Processor time source."`
	Allocs string `default:"runtime"         enum:"runtime,exact,none" help:"Allocation counter; exact stops the world per event."`
	Size   int    `default:"20"                                        help:"Number of iterations of the main loop."   short:"n"`
	Record string `help:"Also write the captured event trace to this file." type:"path"`
}

// Run executes the demo command.
func (d *Demo) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	kind, err := d.clockKind()
	if err != nil {
		return err
	}

	clk, err := clock.New(kind)
	if err != nil {
		if !errors.Is(err, clock.ErrCPUUnavailable) {
			return err
		}

		log.WarnContext(ctx, "processor time unavailable",
			slog.String("clock", kind.String()))
	}

	f, err := d.filter(filter.Path(workloadFile))
	if err != nil {
		return err
	}

	src := probe.New()
	w := workload{src: src, size: d.Size}

	counter := d.counter()

	var (
		traced trace.Source = src
		rec    *replay.Recorder
	)

	if d.Record != "" {
		rec = replay.NewRecorder(clk, counter)
		traced = rec.Source(src)
	}

	opts := append(d.options(),
		profiler.WithClock(clk),
		profiler.WithCounter(counter),
	)

	res, cause := profiler.Run(ctx, traced, f, w.run, opts...)

	if rec != nil {
		if err := writeTrace(ctx, d.Record, rec); err != nil {
			return err
		}
	}

	return d.render(ctx, stdout(ctx), res, cause)
}

func (d *Demo) clockKind() (clock.Kind, error) {
	if d.Clock == clockAuto {
		return clock.DefaultFor(d.Record == ""), nil
	}

	return clock.ParseKind(d.Clock)
}

func (d *Demo) counter() alloc.Counter {
	switch d.Allocs {
	case "exact":
		return alloc.MemStats()
	case "none":
		return alloc.None()
	default:
		return alloc.Runtime()
	}
}

func writeTrace(ctx context.Context, path string, rec *replay.Recorder) error {
	file, err := os.Create(path)
	if err != nil {
		return ErrWriteTrace.With(slog.String("file", path)).Wrap(err)
	}
	defer file.Close()

	if err := rec.Encode(ctx, file); err != nil {
		return ErrWriteTrace.With(slog.String("file", path)).Wrap(err)
	}

	log.DebugContext(ctx, "wrote event trace",
		slog.String("path", path),
		slog.Int("events", len(rec.Document().Events)))

	return nil
}
