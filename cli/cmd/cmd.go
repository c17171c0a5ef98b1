package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/alecthomas/kong"

	"github.com/ardnew/lineprof/filter"
	"github.com/ardnew/lineprof/profiler"
	"github.com/ardnew/lineprof/report"
)

// ContextKey is used to store a [kong.Context] value in [context.Context].
type contextKey struct{}

// WithContext returns a new context.Context containing the given kong.Context.
func WithContext(ctx context.Context, ktx *kong.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ktx)
}

func kongContextFrom(ctx context.Context) *kong.Context {
	ktx, ok := ctx.Value(contextKey{}).(*kong.Context)
	if !ok || ktx == nil {
		return nil
	}

	return ktx
}

// stdout returns the writer kong was configured with, or os.Stdout.
func stdout(ctx context.Context) io.Writer {
	if ktx := kongContextFrom(ctx); ktx != nil && ktx.Stdout != nil {
		return ktx.Stdout
	}

	return os.Stdout
}

var formats = []string{"text", "json", "yaml"}

// Output holds the flags shared by commands that print a profile.
type Output struct {
	Filter   string   `help:"Files to track: a path, re:<regexp>, expr:<expression>, or dir:<list>." short:"F"`
	Format   string   `default:"text" enum:"${formatEnum}" help:"Report format."                        short:"o"`
	File     []string `help:"Report only files fuzzy-matching these patterns."                           short:"f"`
	Indent   int      `default:"2"                         help:"Indent width for JSON and YAML reports." short:"i"`
	AllLines bool     `help:"List every source line, not only those with events."`
	Source   bool     `default:"true"                      help:"Print source text beside each line."    negatable:""`
	Strict   bool     `help:"Report nothing if the profiled work fails."`
}

// filter parses the --filter flag, or returns def if it is unset.
func (o *Output) filter(def filter.Filter) (filter.Filter, error) {
	if o.Filter == "" {
		return def, nil
	}

	return filter.Parse(o.Filter)
}

// options returns the profiler options selected by the flags.
func (o *Output) options() []profiler.Option {
	return []profiler.Option{profiler.WithStrict(o.Strict)}
}

// files returns the paths of res selected by the --file patterns, in the
// order the patterns were given, or nil if no pattern was given.
func (o *Output) files(res *profiler.Result) ([]string, error) {
	var paths []string

	for _, pattern := range o.File {
		found := report.Select(res, pattern)
		if len(found) == 0 {
			return nil, ErrNoMatch.With(slog.String("pattern", pattern))
		}

		for _, p := range found {
			if !slices.Contains(paths, p) {
				paths = append(paths, p)
			}
		}
	}

	return paths, nil
}

// render writes res to w in the selected format. If cause is non-nil, it is
// the error that ended the profiled work; res is rendered if present and
// cause is returned.
func (o *Output) render(
	ctx context.Context,
	w io.Writer,
	res *profiler.Result,
	cause error,
) error {
	if res == nil {
		return cause
	}

	paths, err := o.files(res)
	if err != nil {
		return err
	}

	if paths != nil {
		res = subset(res, paths)
	}

	switch o.Format {
	case "json":
		err = report.JSON(w, res, o.Indent)

	case "yaml":
		err = report.YAML(ctx, w, res, o.Indent)

	default:
		err = report.Text(w, res,
			report.WithFiles(paths...),
			report.WithSource(o.Source),
			report.WithAllLines(o.AllLines),
		)
	}

	if cause != nil {
		return cause
	}

	return err
}

// subset returns a copy of res containing only the given paths.
func subset(res *profiler.Result, paths []string) *profiler.Result {
	out := *res
	out.Files = make(map[string]*profiler.File, len(paths))

	for _, p := range paths {
		if f := res.File(p); f != nil {
			out.Files[p] = f
		}
	}

	return &out
}
