package clock

//go:generate go tool stringer --linecomment --type Kind --output kind_string.go

import (
	"iter"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/ardnew/lineprof/pkg"
)

// Clock reports elapsed wall and processor time in nanoseconds.
// Implementations must be safe for concurrent use.
type Clock interface {
	Wall() int64
	CPU() int64
	HasCPU() bool
}

// Kind selects the processor time reader of a [Clock].
type Kind int

const (
	KindProcess Kind = iota // process
	KindThread              // thread
	KindRusage              // rusage
	KindPsutil              // psutil
	KindNone                // none
)

// DefaultKind is the reader used when none is configured for a source whose
// goroutines may migrate between OS threads. Whole-process time is the only
// reading that is consistent across such a workload.
const DefaultKind = KindProcess

// DefaultFor returns the reader to use for a source. If pinned, every thread
// of the source stays on one OS thread, and per-thread time is used where
// the platform supports it.
func DefaultFor(pinned bool) Kind {
	if pinned && platformReader(KindThread) != nil {
		return KindThread
	}

	return DefaultKind
}

// Kinds returns an iterator over the names of all clock kinds.
func Kinds() iter.Seq[string] {
	return func(yield func(string) bool) {
		for k := KindProcess; k <= KindNone; k++ {
			if !yield(k.String()) {
				return
			}
		}
	}
}

// ParseKind returns the kind named s (case-insensitive).
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))

	for k := KindProcess; k <= KindNone; k++ {
		if k.String() == name {
			return k, nil
		}
	}

	return DefaultKind, ErrInvalidKind.With(slog.String("kind", s))
}

var (
	// ErrCPUUnavailable indicates the requested processor time reader does
	// not work on this platform. The accompanying clock reports wall time
	// only.
	ErrCPUUnavailable = pkg.NewError("processor time unavailable")
	// ErrInvalidKind indicates an unrecognized clock kind name.
	ErrInvalidKind = pkg.NewError("invalid clock kind")
)

// reader returns cumulative processor time in nanoseconds.
type reader func() (int64, bool)

// New returns a [Clock] whose processor time comes from the reader of the
// given kind. The reader is probed once. If it fails, the returned clock
// reports wall time only and the error wraps [ErrCPUUnavailable].
func New(kind Kind) (Clock, error) {
	c := &clock{origin: time.Now()}

	if kind == KindNone {
		return c, nil
	}

	read := platformReader(kind)
	if kind == KindPsutil {
		read = psutilReader()
	}

	if read == nil {
		return c, ErrCPUUnavailable.With(slog.String("kind", kind.String()))
	}

	start, ok := read()
	if !ok {
		return c, ErrCPUUnavailable.With(slog.String("kind", kind.String()))
	}

	c.cpu = read
	c.perThread = kind == KindThread

	// Per-thread readings are only compared on the thread that took them.
	if !c.perThread {
		c.cpuOrigin = start
	}

	return c, nil
}

// PerThread reports whether the processor time of c is that of the calling
// OS thread rather than the whole process. Clocks without a PerThread method
// report process time.
func PerThread(c Clock) bool {
	p, ok := c.(interface{ PerThread() bool })

	return ok && p.PerThread()
}

// Wall returns a wall-only [Clock].
func Wall() Clock { return &clock{origin: time.Now()} }

type clock struct {
	origin    time.Time
	cpu       reader
	cpuOrigin int64
	last      atomic.Int64
	perThread bool
}

func (c *clock) Wall() int64 { return int64(time.Since(c.origin)) }

// CPU returns processor time since the clock was created. A failed read
// repeats the last good reading.
func (c *clock) CPU() int64 {
	if c.cpu == nil {
		return 0
	}

	v, ok := c.cpu()
	if !ok {
		return c.last.Load()
	}

	v -= c.cpuOrigin
	c.last.Store(v)

	return v
}

func (c *clock) HasCPU() bool { return c.cpu != nil }

func (c *clock) PerThread() bool { return c.perThread }

// psutilReader reads user plus system time of this process through gopsutil.
// It works on every platform gopsutil supports but costs a system query per
// reading.
func psutilReader() reader {
	p, err := process.NewProcess(int32(os.Getpid())) //nolint:gosec
	if err != nil {
		return nil
	}

	return func() (int64, bool) {
		t, err := p.Times()
		if err != nil {
			return 0, false
		}

		return int64((t.User + t.System) * float64(time.Second)), true
	}
}
