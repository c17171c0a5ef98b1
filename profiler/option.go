package profiler

import (
	"github.com/ardnew/lineprof/alloc"
	"github.com/ardnew/lineprof/clock"
	"github.com/ardnew/lineprof/log"
)

// Option applies a configuration option to config.
type Option func(config) config

type config struct {
	clock   clock.Clock
	counter alloc.Counter
	logger  *log.Logger
	strict  bool
}

func apply(cfg config, opts ...Option) config {
	for _, opt := range opts {
		cfg = opt(cfg)
	}

	return cfg
}

// WithClock returns a functional option that sets the clock read on every
// event. By default a session uses [clock.New] with the kind
// [clock.DefaultFor] selects for its source, falling back to wall time only.
func WithClock(c clock.Clock) Option {
	return func(cfg config) config {
		cfg.clock = c

		return cfg
	}
}

// WithCounter returns a functional option that sets the allocation counter.
// By default a session uses [alloc.Runtime].
func WithCounter(c alloc.Counter) Option {
	return func(cfg config) config {
		cfg.counter = c

		return cfg
	}
}

// WithLogger returns a functional option that sets the logger for session
// lifecycle messages. By default the package-level logger of [log] is used.
func WithLogger(l log.Logger) Option {
	return func(cfg config) config {
		cfg.logger = &l

		return cfg
	}
}

// WithStrict returns a functional option that discards the partial profile
// of a run that fails.
func WithStrict(strict bool) Option {
	return func(cfg config) config {
		cfg.strict = strict

		return cfg
	}
}
