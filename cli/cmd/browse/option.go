package browse

import "github.com/ardnew/lineprof/log"

// Option configures [Run].
type Option func(config) config

type config struct {
	logger   log.Logger
	source   bool
	allLines bool
}

func makeConfig(opts ...Option) config {
	cfg := config{logger: log.Default(), source: true}

	for _, opt := range opts {
		if opt != nil {
			cfg = opt(cfg)
		}
	}

	return cfg
}

// WithSource sets whether listings include source text read from disk.
func WithSource(enabled bool) Option {
	return func(c config) config {
		c.source = enabled

		return c
	}
}

// WithAllLines sets whether listings include lines that received no events.
func WithAllLines(enabled bool) Option {
	return func(c config) config {
		c.allLines = enabled

		return c
	}
}

// WithLogger sets the logger for browser events.
func WithLogger(l log.Logger) Option {
	return func(c config) config {
		c.logger = l

		return c
	}
}
