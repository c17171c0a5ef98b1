package profile

// Tag is the build tag required to enable pprof profiling.
const Tag = `pprof`

// Stopper ends a running profile and writes its output.
type Stopper interface{ Stop() }

type config struct {
	mode  string
	dir   string
	quiet bool
}

// Option configures [Start].
type Option func(config) config

// WithMode selects the profile to record, one of [Modes].
func WithMode(mode string) Option {
	return func(c config) config {
		c.mode = mode

		return c
	}
}

// WithDir sets the directory the profile is written to.
func WithDir(dir string) Option {
	return func(c config) config {
		c.dir = dir

		return c
	}
}

// WithQuiet suppresses the messages printed when profiling starts and stops.
func WithQuiet(quiet bool) Option {
	return func(c config) config {
		c.quiet = quiet

		return c
	}
}

// Start begins recording the profile selected by opts.
//
// If no mode or an unknown mode is selected, or the binary was built without
// the pprof tag, Start returns a [Stopper] that does nothing. Stop is always
// safe to call.
func Start(opts ...Option) Stopper {
	var c config

	for _, opt := range opts {
		if opt != nil {
			c = opt(c)
		}
	}

	if c.mode == "" {
		return ignore{}
	}

	return start(c)
}

type ignore struct{}

func (ignore) Stop() {}
