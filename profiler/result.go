package profiler

import (
	"encoding/binary"
	"iter"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/zeebo/xxh3"
)

// Cost is an amount of wall time, processor time, and allocated objects.
type Cost struct {
	Wall   time.Duration
	CPU    time.Duration
	Allocs uint64
}

// Add returns the component-wise sum of c and o.
func (c Cost) Add(o Cost) Cost {
	return Cost{Wall: c.Wall + o.Wall, CPU: c.CPU + o.CPU, Allocs: c.Allocs + o.Allocs}
}

// Sub returns c minus o, with every component clamped at zero.
func (c Cost) Sub(o Cost) Cost {
	r := Cost{Wall: max(0, c.Wall-o.Wall), CPU: max(0, c.CPU-o.CPU)}
	if c.Allocs > o.Allocs {
		r.Allocs = c.Allocs - o.Allocs
	}

	return r
}

func (c Cost) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Duration("wall", c.Wall),
		slog.Duration("cpu", c.CPU),
		slog.Uint64("allocs", c.Allocs),
	)
}

// LineRecord holds the inclusive cost of one source line.
//
// Wall and CPU include the time of every call the line made. Calls counts the
// activations charged to the line as their call site.
type LineRecord struct {
	Wall   time.Duration
	CPU    time.Duration
	Calls  uint64
	Allocs uint64
}

// Cost returns the time and allocations of r.
func (r LineRecord) Cost() Cost {
	return Cost{Wall: r.Wall, CPU: r.CPU, Allocs: r.Allocs}
}

// Summary is the whole-file aggregate of a tracked file.
//
// Total covers every interval in which some activation or line of the file
// was open. Child is the part of Total spent in other files.
type Summary struct {
	Total Cost
	Child Cost
}

// Exclusive returns the time spent executing the file's own lines.
func (s Summary) Exclusive() Cost { return s.Total.Sub(s.Child) }

// File is the profile of one tracked source file.
type File struct {
	Path    string
	Summary Summary
	// Lines is indexed by 1-based line number; Lines[0] is unused.
	Lines   []LineRecord
	touched []int
}

// Line returns the record of line n, or the zero record if n is out of range.
func (f *File) Line(n int) LineRecord {
	if f == nil || n <= 0 || n >= len(f.Lines) {
		return LineRecord{}
	}

	return f.Lines[n]
}

// Records returns an iterator over the lines that received any event, in
// line order.
func (f *File) Records() iter.Seq2[int, LineRecord] {
	return func(yield func(int, LineRecord) bool) {
		if f == nil {
			return
		}

		for _, n := range f.touched {
			if !yield(n, f.Lines[n]) {
				return
			}
		}
	}
}

// Touched reports the number of lines that received any event.
func (f *File) Touched() int {
	if f == nil {
		return 0
	}

	return len(f.touched)
}

// Capabilities reports which metrics were measured. A metric that was not
// measured reads as zero everywhere in the result.
type Capabilities struct {
	CPU bool
	// ThreadCPU reports that processor time is that of each thread alone
	// rather than of the whole process.
	ThreadCPU bool
	Allocs    bool
}

// Anomalies counts irregular inputs the profiler corrected.
type Anomalies struct {
	// Clamped counts deltas that were negative or whose processor time
	// exceeded their wall time.
	Clamped uint64
	// Unmatched counts returns delivered to a thread with no open activation.
	Unmatched uint64
}

// Result is the profile produced by one [Session]. It is not modified after
// it is returned.
type Result struct {
	Files        map[string]*File
	Capabilities Capabilities
	Anomalies    Anomalies
	// Threads is the number of distinct threads that delivered events.
	Threads int
	// Events is the number of events processed.
	Events uint64
}

// File returns the profile of path, or nil if it was not tracked.
func (r *Result) File(path string) *File {
	if r == nil {
		return nil
	}

	return r.Files[path]
}

// Paths returns the tracked file paths in sorted order.
func (r *Result) Paths() []string {
	if r == nil {
		return nil
	}

	return slices.Sorted(maps.Keys(r.Files))
}

// Fingerprint returns a hash of the structure of r: the tracked files, the
// lines of each that received events, and each line's call count. Two runs of
// the same deterministic work have equal fingerprints regardless of timing.
func (r *Result) Fingerprint() uint64 {
	var buf []byte

	for _, path := range r.Paths() {
		f := r.Files[path]

		buf = binary.AppendUvarint(buf, uint64(len(path)))
		buf = append(buf, path...)
		buf = binary.AppendUvarint(buf, uint64(len(f.touched)))

		for n, rec := range f.Records() {
			buf = binary.AppendUvarint(buf, uint64(n))
			buf = binary.AppendUvarint(buf, rec.Calls)
		}
	}

	return xxh3.Hash(buf)
}

func (r *Result) LogValue() slog.Value {
	if r == nil {
		return slog.GroupValue()
	}

	return slog.GroupValue(
		slog.Int("files", len(r.Files)),
		slog.Int("threads", r.Threads),
		slog.Uint64("events", r.Events),
		slog.Bool("cpu", r.Capabilities.CPU),
		slog.Bool("allocs", r.Capabilities.Allocs),
		slog.Uint64("clamped", r.Anomalies.Clamped),
		slog.Uint64("unmatched", r.Anomalies.Unmatched),
	)
}
