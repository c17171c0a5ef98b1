package report

// Option configures [Text].
type Option func(config) config

type config struct {
	files    []string
	source   bool
	allLines bool
}

func makeConfig(opts ...Option) config {
	cfg := config{source: true}

	for _, opt := range opts {
		if opt != nil {
			cfg = opt(cfg)
		}
	}

	return cfg
}

// WithSource sets whether source text is read from disk and printed beside
// each line's costs. It is enabled by default. Files that cannot be read are
// printed without source.
func WithSource(enabled bool) Option {
	return func(c config) config {
		c.source = enabled

		return c
	}
}

// WithFiles restricts the report to the given paths, in the given order.
func WithFiles(paths ...string) Option {
	return func(c config) config {
		c.files = append([]string(nil), paths...)

		return c
	}
}

// WithAllLines sets whether every line of the source is printed, including
// lines that received no events. It has no effect without source.
func WithAllLines(enabled bool) Option {
	return func(c config) config {
		c.allLines = enabled

		return c
	}
}
