package cmd

import (
	"context"
	"log/slog"

	"github.com/ardnew/lineprof/cli/cmd/browse"
	"github.com/ardnew/lineprof/filter"
	"github.com/ardnew/lineprof/log"
	"github.com/ardnew/lineprof/profiler"
	"github.com/ardnew/lineprof/replay"
)

// Replay profiles a recorded event trace.
type Replay struct {
	Output `embed:""`

	Trace string `arg:"" help:"Recorded event trace (YAML)." type:"existingfile"`
}

// Run executes the replay command.
func (r *Replay) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	f, err := r.filter(filter.All())
	if err != nil {
		return err
	}

	res, cause := profileTrace(ctx, r.Trace, f, r.options()...)

	return r.render(ctx, stdout(ctx), res, cause)
}

// Browse explores the profile of a recorded event trace interactively.
type Browse struct {
	Filter   string `help:"Files to track: a path, re:<regexp>, expr:<expression>, or dir:<list>." short:"F"`
	AllLines bool   `help:"List every source line, not only those with events."`
	Source   bool   `default:"true" help:"Print source text beside each line." negatable:""`

	Trace string `arg:"" help:"Recorded event trace (YAML)." type:"existingfile"`
}

// Run executes the browse command.
func (b *Browse) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	f := filter.All()
	if b.Filter != "" {
		if f, err = filter.Parse(b.Filter); err != nil {
			return err
		}
	}

	res, err := profileTrace(ctx, b.Trace, f)
	if err != nil {
		return err
	}

	return browse.Run(ctx, res,
		browse.WithSource(b.Source),
		browse.WithAllLines(b.AllLines),
		browse.WithLogger(log.Default()),
	)
}

func profileTrace(
	ctx context.Context,
	path string,
	f filter.Filter,
	opts ...profiler.Option,
) (*profiler.Result, error) {
	tr, err := replay.ReadFile(path)
	if err != nil {
		return nil, err
	}

	log.DebugContext(ctx, "loaded event trace",
		slog.String("path", path),
		slog.Int("events", tr.Len()))

	return tr.Profile(ctx, f, opts...)
}
