package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/ardnew/lineprof/alloc"
	"github.com/ardnew/lineprof/clock"
	"github.com/ardnew/lineprof/filter"
	"github.com/ardnew/lineprof/profiler"
	"github.com/ardnew/lineprof/report"
)

const callSite = `
cpu: true
allocs: true
events:
  - {kind: line, file: alpha.go, line: 10, thread: 1, wall_us: 0}
  - {kind: call, file: alpha.go, line: 10, thread: 1, wall_us: 10, cpu_us: 5}
  - {kind: line, file: beta.go, line: 3, thread: 1, wall_us: 10, cpu_us: 5}
  - {kind: return, thread: 1, wall_us: 40, cpu_us: 20, allocs: 4}
  - {kind: line, file: alpha.go, line: 11, thread: 1, wall_us: 50, cpu_us: 25, allocs: 4}
  - {kind: return, thread: 1, wall_us: 60, cpu_us: 30, allocs: 4}
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	return path
}

func callSiteResult(t *testing.T) *profiler.Result {
	t.Helper()

	res, err := profileTrace(context.Background(),
		writeFile(t, "trace.yaml", callSite), filter.All())
	if err != nil {
		t.Fatalf("profileTrace: %v", err)
	}

	return res
}

func decode(t *testing.T, out *bytes.Buffer) report.Document {
	t.Helper()

	var doc report.Document
	if err := json.Unmarshal(out.Bytes(), &doc); err != nil {
		t.Fatalf("report is not valid JSON: %v\n%s", err, out)
	}

	return doc
}

func TestOutputFiles(t *testing.T) {
	res := callSiteResult(t)

	tests := []struct {
		name    string
		file    []string
		want    []string
		wantErr error
	}{
		{name: "none", file: nil, want: nil},
		{name: "single", file: []string{"bet"}, want: []string{"beta.go"}},
		{
			name: "ordered",
			file: []string{"bet", "alp"},
			want: []string{"beta.go", "alpha.go"},
		},
		{
			name: "duplicate",
			file: []string{"alp", "alpha"},
			want: []string{"alpha.go"},
		},
		{name: "no_match", file: []string{"zzz"}, wantErr: ErrNoMatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := Output{File: tt.file}

			got, err := o.files(res)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("files() error = %v, want %v", err, tt.wantErr)
			}

			if !slices.Equal(got, tt.want) {
				t.Errorf("files() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSubset(t *testing.T) {
	res := callSiteResult(t)

	sub := subset(res, []string{"beta.go", "missing.go"})

	if got := sub.Paths(); !slices.Equal(got, []string{"beta.go"}) {
		t.Errorf("Paths() = %q, want [beta.go]", got)
	}

	if got := len(res.Files); got != 2 {
		t.Errorf("subset modified its input: %d files", got)
	}

	if sub.Events != res.Events {
		t.Errorf("Events = %d, want %d", sub.Events, res.Events)
	}
}

func TestOutputRender(t *testing.T) {
	res := callSiteResult(t)
	cause := errors.New("work failed")

	t.Run("nil_result", func(t *testing.T) {
		var (
			o   Output
			out bytes.Buffer
		)

		if err := o.render(context.Background(), &out, nil, cause); !errors.Is(err, cause) {
			t.Errorf("render() error = %v, want %v", err, cause)
		}

		if out.Len() != 0 {
			t.Errorf("render() wrote %q", out.String())
		}
	})

	t.Run("partial_result", func(t *testing.T) {
		var out bytes.Buffer

		o := Output{Format: "json", Indent: 2}

		if err := o.render(context.Background(), &out, res, cause); !errors.Is(err, cause) {
			t.Errorf("render() error = %v, want %v", err, cause)
		}

		if got := len(decode(t, &out).Files); got != 2 {
			t.Errorf("rendered %d files, want 2", got)
		}
	})

	t.Run("text_subset", func(t *testing.T) {
		var out bytes.Buffer

		o := Output{Format: "text", File: []string{"bet"}}

		if err := o.render(context.Background(), &out, res, nil); err != nil {
			t.Fatalf("render() error = %v", err)
		}

		if got := out.String(); !strings.Contains(got, "beta.go") ||
			strings.Contains(got, "alpha.go") {
			t.Errorf("render() =\n%s", got)
		}
	})
}

func TestReplayRun(t *testing.T) {
	path := writeFile(t, "trace.yaml", callSite)

	ctx, cli, out := parse(t, "", "replay", "--format=json", "--file=alp", path)

	if err := cli.Replay.Run(ctx); err != nil {
		t.Fatalf("Replay.Run() error = %v", err)
	}

	doc := decode(t, out)

	if len(doc.Files) != 1 || doc.Files[0].Path != "alpha.go" {
		t.Fatalf("Files = %+v, want only alpha.go", doc.Files)
	}

	sum := doc.Files[0].Summary
	if sum.TotalWallUS != 60 || sum.ChildWallUS != 30 || sum.ExclusiveWallUS != 30 {
		t.Errorf("Summary = %+v", sum)
	}
}

func TestReplayRun_BadFilter(t *testing.T) {
	path := writeFile(t, "trace.yaml", callSite)

	ctx, cli, _ := parse(t, "", "replay", "--filter=re:(", path)

	if err := cli.Replay.Run(ctx); err == nil {
		t.Error("Replay.Run() error = nil, want filter error")
	}
}

func TestDemoRun(t *testing.T) {
	record := filepath.Join(t.TempDir(), "demo.yaml")

	ctx, cli, out := parse(t, "",
		"demo", "--format=json", "--size=2", "--record="+record)

	if err := cli.Demo.Run(ctx); err != nil {
		t.Fatalf("Demo.Run() error = %v", err)
	}

	demo := decode(t, out)

	if len(demo.Files) != 1 || demo.Files[0].Path != workloadFile {
		t.Fatalf("Files = %+v, want only %s", demo.Files, workloadFile)
	}

	if demo.Threads != 2 {
		t.Errorf("Threads = %d, want 2", demo.Threads)
	}

	if len(demo.Files[0].Lines) == 0 {
		t.Error("no lines recorded")
	}

	// Replaying the recording yields the same lines and call counts.
	ctx, cli, out = parse(t, "",
		"replay", "--format=json", "--filter="+workloadFile, record)

	if err := cli.Replay.Run(ctx); err != nil {
		t.Fatalf("Replay.Run() error = %v", err)
	}

	replayed := decode(t, out)

	if len(replayed.Files) != 1 {
		t.Fatalf("replayed %d files, want 1", len(replayed.Files))
	}

	want, got := demo.Files[0].Lines, replayed.Files[0].Lines
	if len(got) != len(want) {
		t.Fatalf("replayed %d lines, want %d", len(got), len(want))
	}

	for i := range want {
		if got[i].Line != want[i].Line || got[i].Calls != want[i].Calls {
			t.Errorf("line %d: replayed %+v, want %+v", want[i].Line, got[i], want[i])
		}
	}
}

func TestDemo_ClockKind(t *testing.T) {
	tests := []struct {
		name    string
		demo    Demo
		want    clock.Kind
		wantErr bool
	}{
		{"auto live", Demo{Clock: clockAuto}, clock.DefaultFor(true), false},
		{"auto recorded", Demo{Clock: clockAuto, Record: "t.yaml"}, clock.KindProcess, false},
		{"explicit", Demo{Clock: "none"}, clock.KindNone, false},
		{"unknown", Demo{Clock: "sundial"}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.demo.clockKind()
			if (err != nil) != tt.wantErr {
				t.Fatalf("clockKind() error = %v, wantErr %v", err, tt.wantErr)
			}

			if !tt.wantErr && got != tt.want {
				t.Errorf("clockKind() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDemo_Counter(t *testing.T) {
	tests := []struct {
		allocs    string
		available bool
	}{
		{"runtime", alloc.Runtime().Available()},
		{"exact", true},
		{"none", false},
	}

	for _, tt := range tests {
		t.Run(tt.allocs, func(t *testing.T) {
			d := Demo{Allocs: tt.allocs}
			if got := d.counter().Available(); got != tt.available {
				t.Errorf("counter().Available() = %v, want %v", got, tt.available)
			}
		})
	}
}
