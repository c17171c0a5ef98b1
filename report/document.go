package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/ardnew/lineprof/profiler"
)

// Document is the serialized form of a result. Times are in microseconds and
// only lines that received events are listed.
type Document struct {
	Capabilities Capabilities `json:"capabilities" yaml:"capabilities"`
	Anomalies    Anomalies    `json:"anomalies"    yaml:"anomalies"`
	Files        []File       `json:"files"        yaml:"files"`
	Threads      int          `json:"threads"      yaml:"threads"`
	Events       uint64       `json:"events"       yaml:"events"`
}

// Capabilities lists the metrics a result measured.
// ThreadCPU is set when processor time is that of the reporting OS thread
// rather than the whole process.
type Capabilities struct {
	CPU       bool `json:"cpu"        yaml:"cpu"`
	ThreadCPU bool `json:"thread_cpu" yaml:"thread_cpu"`
	Allocs    bool `json:"allocs"     yaml:"allocs"`
}

// Anomalies counts the irregular inputs a result corrected.
type Anomalies struct {
	Clamped   uint64 `json:"clamped"   yaml:"clamped"`
	Unmatched uint64 `json:"unmatched" yaml:"unmatched"`
}

// File is one tracked file.
type File struct {
	Path    string  `json:"path"    yaml:"path"`
	Lines   []Line  `json:"lines"   yaml:"lines"`
	Summary Summary `json:"summary" yaml:"summary"`
}

// Summary is the whole-file aggregate of a [File].
type Summary struct {
	TotalWallUS     int64  `json:"total_wall_us"     yaml:"total_wall_us"`
	ChildWallUS     int64  `json:"child_wall_us"     yaml:"child_wall_us"`
	ExclusiveWallUS int64  `json:"exclusive_wall_us" yaml:"exclusive_wall_us"`
	TotalCPUUS      int64  `json:"total_cpu_us"      yaml:"total_cpu_us"`
	ChildCPUUS      int64  `json:"child_cpu_us"      yaml:"child_cpu_us"`
	ExclusiveCPUUS  int64  `json:"exclusive_cpu_us"  yaml:"exclusive_cpu_us"`
	Allocs          uint64 `json:"allocs"            yaml:"allocs"`
}

// Line is the record of one source line.
type Line struct {
	Line   int    `json:"line"    yaml:"line"`
	WallUS int64  `json:"wall_us" yaml:"wall_us"`
	CPUUS  int64  `json:"cpu_us"  yaml:"cpu_us"`
	Calls  uint64 `json:"calls"   yaml:"calls"`
	Allocs uint64 `json:"allocs"  yaml:"allocs"`
}

// Build returns the [Document] of res with files in path order.
func Build(res *profiler.Result) Document {
	doc := Document{
		Capabilities: Capabilities{
			CPU:       res.Capabilities.CPU,
			ThreadCPU: res.Capabilities.ThreadCPU,
			Allocs:    res.Capabilities.Allocs,
		},
		Anomalies: Anomalies{
			Clamped:   res.Anomalies.Clamped,
			Unmatched: res.Anomalies.Unmatched,
		},
		Threads: res.Threads,
		Events:  res.Events,
		Files:   make([]File, 0, len(res.Files)),
	}

	for _, path := range res.Paths() {
		f := res.File(path)
		s := f.Summary
		ex := s.Exclusive()

		file := File{
			Path: path,
			Summary: Summary{
				TotalWallUS:     s.Total.Wall.Microseconds(),
				ChildWallUS:     s.Child.Wall.Microseconds(),
				ExclusiveWallUS: ex.Wall.Microseconds(),
				TotalCPUUS:      s.Total.CPU.Microseconds(),
				ChildCPUUS:      s.Child.CPU.Microseconds(),
				ExclusiveCPUUS:  ex.CPU.Microseconds(),
				Allocs:          s.Total.Allocs,
			},
			Lines: make([]Line, 0, f.Touched()),
		}

		for n, rec := range f.Records() {
			file.Lines = append(file.Lines, Line{
				Line:   n,
				WallUS: rec.Wall.Microseconds(),
				CPUUS:  rec.CPU.Microseconds(),
				Calls:  rec.Calls,
				Allocs: rec.Allocs,
			})
		}

		doc.Files = append(doc.Files, file)
	}

	return doc
}

// Table returns res in its compact numeric form. Each file maps to a list
// whose first element is the file summary
//
//	[total_wall, child_wall, exclusive_wall, total_cpu, child_cpu, exclusive_cpu, allocs]
//
// and whose element n is the record of line n
//
//	[wall, cpu, calls, allocs]
//
// with times in microseconds.
func Table(res *profiler.Result) map[string][][]uint64 {
	tab := make(map[string][][]uint64, len(res.Files))

	u := func(c profiler.Cost) (wall, cpu uint64) {
		return uint64(max(c.Wall.Microseconds(), 0)),
			uint64(max(c.CPU.Microseconds(), 0))
	}

	for path, f := range res.Files {
		rows := make([][]uint64, max(len(f.Lines), 1))

		s := f.Summary
		tw, tc := u(s.Total)
		cw, cc := u(s.Child)
		ew, ec := u(s.Exclusive())
		rows[0] = []uint64{tw, cw, ew, tc, cc, ec, s.Total.Allocs}

		for n := 1; n < len(rows); n++ {
			rec := f.Lines[n]
			w, c := u(rec.Cost())
			rows[n] = []uint64{w, c, rec.Calls, rec.Allocs}
		}

		tab[path] = rows
	}

	return tab
}

// JSON writes the [Document] of res to w, indented by indent spaces per
// level, or compact if indent is not positive.
func JSON(w io.Writer, res *profiler.Result, indent int) error {
	var (
		data []byte
		err  error
	)

	if indent > 0 {
		data, err = json.MarshalIndent(Build(res), "", strings.Repeat(" ", indent))
	} else {
		data, err = json.Marshal(Build(res))
	}

	if err != nil {
		return ErrWrite.Wrap(err)
	}

	if _, err := fmt.Fprintln(w, string(data)); err != nil {
		return ErrWrite.Wrap(err)
	}

	return nil
}

// YAML writes the [Document] of res to w, indented by indent spaces per
// level, or in flow style if indent is not positive.
func YAML(ctx context.Context, w io.Writer, res *profiler.Result, indent int) error {
	var opts []yaml.EncodeOption
	if indent > 0 {
		opts = append(opts, yaml.Indent(indent))
	} else {
		opts = append(opts, yaml.Flow(true))
	}

	data, err := yaml.MarshalContext(ctx, Build(res), opts...)
	if err != nil {
		return ErrWrite.Wrap(err)
	}

	if _, err := fmt.Fprint(w, string(data)); err != nil {
		return ErrWrite.Wrap(err)
	}

	return nil
}
