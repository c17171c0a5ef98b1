package profiler

import (
	"time"

	"github.com/ardnew/lineprof/trace"
)

// snapshot is one reading of every meter.
type snapshot struct {
	wall   int64
	cpu    int64
	allocs uint64
}

type lineKey struct {
	file string
	line int
}

// frame is one open activation on a thread's stack.
type frame struct {
	// Location the activation is charged to: the line that made the call.
	file string
	line int
	// owner is the innermost tracked file at or outside the charged location.
	owner   string
	start   snapshot
	child   Cost
	tracked bool

	// Current line bucket.
	curTracked bool
	curFile    string
	curLine    int
	curStart   snapshot
	curChild   Cost
}

// window accumulates the time a thread spends with a file open.
type window struct {
	start     snapshot
	exclusive Cost
	depth     int
}

// tracker converts the event stream of one thread into costs.
// It is used by a single goroutine at a time and holds no locks; only table
// updates synchronize.
type tracker struct {
	tab     *table
	stack   []frame
	active  map[lineKey]int
	windows map[string]*window

	// inner is the file receiving exclusive time since innerStart.
	inner      string
	innerStart snapshot

	// last is the most recent reading of the thread.
	last snapshot
	// overhead is the number of objects allocated while handling the
	// thread's events.
	overhead uint64

	id        trace.ThreadID
	events    uint64
	clamped   uint64
	unmatched uint64
}

func newTracker(id trace.ThreadID, tab *table) *tracker {
	return &tracker{
		id:      id,
		tab:     tab,
		stack:   make([]frame, 0, 64),
		active:  make(map[lineKey]int),
		windows: make(map[string]*window),
	}
}

// adjust returns the raw reading s less the thread's handling overhead.
func (t *tracker) adjust(s snapshot) snapshot {
	s.allocs -= min(t.overhead, s.allocs)

	return s
}

// delta returns now minus then with processor time clamped to wall time and
// negative components clamped to zero.
func (t *tracker) delta(now, then snapshot) Cost {
	wall, cpu := now.wall-then.wall, now.cpu-then.cpu

	if wall < 0 {
		wall = 0
		t.clamped++
	}

	if cpu < 0 {
		cpu = 0
		t.clamped++
	}

	if cpu > wall {
		cpu = wall
		t.clamped++
	}

	var allocs uint64
	if now.allocs >= then.allocs {
		allocs = now.allocs - then.allocs
	} else {
		t.clamped++
	}

	return Cost{Wall: time.Duration(wall), CPU: time.Duration(cpu), Allocs: allocs}
}

// sub returns a minus b, counting any component that had to be clamped.
// Processor time in the difference never exceeds its wall time.
func (t *tracker) sub(a, b Cost) Cost {
	if b.Wall > a.Wall || b.CPU > a.CPU || b.Allocs > a.Allocs {
		t.clamped++
	}

	c := a.Sub(b)
	if c.CPU > c.Wall {
		c.CPU = c.Wall
		t.clamped++
	}

	return c
}

// innermost returns the file of the innermost tracked location on the stack.
func (t *tracker) innermost() string {
	if len(t.stack) == 0 {
		return ""
	}

	top := &t.stack[len(t.stack)-1]
	if top.curTracked {
		return top.curFile
	}

	return top.owner
}

// relocate moves the exclusive window to the innermost tracked location.
func (t *tracker) relocate(now snapshot) {
	in := t.innermost()
	if in == t.inner {
		return
	}

	if t.inner != "" {
		w := t.windows[t.inner]
		w.exclusive = w.exclusive.Add(t.delta(now, t.innerStart))
	}

	t.inner, t.innerStart = in, now
}

func (t *tracker) enter(file string, now snapshot) {
	w, ok := t.windows[file]
	if !ok {
		w = &window{}
		t.windows[file] = w
	}

	if w.depth == 0 {
		w.start, w.exclusive = now, Cost{}
	}

	w.depth++
}

func (t *tracker) leave(file string, now snapshot) {
	w := t.windows[file]

	w.depth--
	if w.depth > 0 {
		return
	}

	total := t.delta(now, w.start)
	t.tab.addSummary(file, total, t.sub(total, w.exclusive))
}

// call opens an activation charged to file:line.
func (t *tracker) call(file string, line int, tracked bool, now snapshot) {
	f := frame{
		file:    file,
		line:    line,
		owner:   t.innermost(),
		start:   now,
		tracked: tracked,
	}

	if tracked {
		f.owner = file
		t.active[lineKey{file, line}]++
		t.enter(file, now)
	}

	t.stack = append(t.stack, f)
	t.relocate(now)
}

// line makes file:line the current line of the top activation.
func (t *tracker) line(file string, line int, tracked bool, now snapshot) {
	if len(t.stack) == 0 {
		t.stack = append(t.stack, frame{file: file, start: now})
	}

	top := &t.stack[len(t.stack)-1]
	t.closeLine(top, now)

	prevFile, prevTracked := top.curFile, top.curTracked

	if tracked {
		t.enter(file, now)
	}

	top.curTracked, top.curFile, top.curLine = tracked, file, line
	top.curStart, top.curChild = now, top.child

	t.relocate(now)

	if prevTracked {
		t.leave(prevFile, now)
	}
}

// closeLine charges the time since f's current line began, less the time of
// calls made meanwhile, to that line.
func (t *tracker) closeLine(f *frame, now snapshot) {
	if !f.curTracked || f.curLine <= 0 {
		return
	}

	var self Cost

	if t.active[lineKey{f.curFile, f.curLine}] == 0 {
		self = t.sub(t.delta(now, f.curStart), f.child.Sub(f.curChild))
	}

	t.tab.addLine(f.curFile, f.curLine, self, 0)
}

// ret closes the top activation.
func (t *tracker) ret(now snapshot) {
	if len(t.stack) == 0 {
		t.unmatched++

		return
	}

	top := &t.stack[len(t.stack)-1]
	t.closeLine(top, now)

	f := *top
	t.stack = t.stack[:len(t.stack)-1]

	elapsed := t.delta(now, f.start)

	if f.tracked {
		key := lineKey{f.file, f.line}

		var cost Cost

		// Only the outermost open activation of a line is timed.
		t.active[key]--
		if t.active[key] == 0 {
			delete(t.active, key)

			cost = elapsed
		}

		t.tab.addLine(f.file, f.line, cost, 1)
	}

	if n := len(t.stack); n > 0 {
		parent := &t.stack[n-1]
		parent.child = parent.child.Add(elapsed)
	}

	t.relocate(now)

	if f.curTracked {
		t.leave(f.curFile, now)
	}

	if f.tracked {
		t.leave(f.file, now)
	}
}

// unwind closes every open activation as if it returned at now.
func (t *tracker) unwind(now snapshot) {
	for len(t.stack) > 0 {
		t.ret(now)
	}
}
