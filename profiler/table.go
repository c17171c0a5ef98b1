package profiler

import (
	"slices"
	"sync"
)

// lineHeadroom is the number of extra line slots reserved whenever a file's
// line slice grows.
const lineHeadroom = 100

// table is the shared, lock-protected aggregate of every thread's costs.
type table struct {
	mu    sync.Mutex
	files map[string]*fileTable
}

type fileTable struct {
	lines   []LineRecord
	touched []bool
	summary Summary
	max     int
}

func newTable() *table {
	return &table{files: make(map[string]*fileTable)}
}

// file returns the entry for path, creating it. Callers hold t.mu.
func (t *table) file(path string) *fileTable {
	ft, ok := t.files[path]
	if !ok {
		ft = &fileTable{}
		t.files[path] = ft
	}

	return ft
}

// addLine adds c and calls to the record of path:line.
func (t *table) addLine(path string, line int, c Cost, calls uint64) {
	if line <= 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	ft := t.file(path)

	if line >= len(ft.lines) {
		n := line + lineHeadroom
		ft.lines = slices.Grow(ft.lines, n-len(ft.lines))[:n]
		ft.touched = slices.Grow(ft.touched, n-len(ft.touched))[:n]
	}

	rec := &ft.lines[line]
	rec.Wall += c.Wall
	rec.CPU += c.CPU
	rec.Allocs += c.Allocs
	rec.Calls += calls

	ft.touched[line] = true
	ft.max = max(ft.max, line)
}

// addSummary merges one closed window of path into its file summary.
func (t *table) addSummary(path string, total, child Cost) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ft := t.file(path)
	ft.summary.Total = ft.summary.Total.Add(total)
	ft.summary.Child = ft.summary.Child.Add(child)
}

// result returns an independent copy of the table with each line slice
// trimmed to its highest touched line.
func (t *table) result() map[string]*File {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]*File, len(t.files))

	for path, ft := range t.files {
		f := &File{Path: path, Summary: ft.summary}

		if ft.max > 0 {
			f.Lines = slices.Clone(ft.lines[:ft.max+1])

			for n, ok := range ft.touched[:ft.max+1] {
				if ok {
					f.touched = append(f.touched, n)
				}
			}
		}

		out[path] = f
	}

	return out
}
