package probe

import (
	"errors"
	"os"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/ardnew/lineprof/trace"
)

type recorder struct {
	mu     sync.Mutex
	events []trace.Event
}

func (r *recorder) HandleEvent(e trace.Event) {
	e.Resolve()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, e)
}

func (r *recorder) kinds() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, len(r.events))
	for i, e := range r.events {
		names[i] = e.Kind.String()
	}

	return strings.Join(names, ",")
}

// markLine returns the line of this file containing the comment marker.
func markLine(t *testing.T, marker string) (string, int) {
	t.Helper()

	_, file, _, _ := runtime.Caller(0)

	src, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}

	for i, l := range strings.Split(string(src), "\n") {
		if strings.HasSuffix(l, "// "+marker) {
			return file, i + 1
		}
	}

	t.Fatalf("marker %q not found", marker)

	return "", 0
}

func subscribed(t *testing.T, kinds trace.Kind) (*Source, *recorder) {
	t.Helper()

	src, rec := New(), &recorder{}
	if err := src.Subscribe(kinds, rec); err != nil {
		t.Fatal(err)
	}

	t.Cleanup(src.Unsubscribe)

	return src, rec
}

func instrumented(th *Thread) {
	defer th.Call()()

	th.Line()
	_ = th.ID() // mark:body
}

func TestThread_Call_ReportsCallSiteAndReturn(t *testing.T) {
	src, rec := subscribed(t, trace.KindAll)
	th := src.Thread()
	defer th.Close()

	instrumented(th) // mark:callsite

	file, site := markLine(t, "mark:callsite")
	_, body := markLine(t, "mark:body")

	if got := rec.kinds(); got != "call,line,return" {
		t.Fatalf("events = %s", got)
	}

	if e := rec.events[0]; e.File != file || e.Line != site || e.Thread != th.ID() {
		t.Errorf("call event = %+v, want %s:%d", e, file, site)
	}
	if e := rec.events[1]; e.File != file || e.Line != body {
		t.Errorf("line event = %+v, want %s:%d", e, file, body)
	}
}

func TestThread_Do_ChargesCallingLine(t *testing.T) {
	src, rec := subscribed(t, trace.KindAll)
	th := src.Thread()
	defer th.Close()

	ran := false
	th.Do(func() { ran = true }) // mark:do

	file, line := markLine(t, "mark:do")

	if !ran {
		t.Fatal("fn did not run")
	}
	if got := rec.kinds(); got != "call,return" {
		t.Fatalf("events = %s", got)
	}
	if e := rec.events[0]; e.File != file || e.Line != line {
		t.Errorf("call event = %+v, want %s:%d", e, file, line)
	}
}

func TestThread_Panic_ReportsRaiseAndRepanics(t *testing.T) {
	src, rec := subscribed(t, trace.KindAll)
	th := src.Thread()
	defer th.Close()

	boom := errors.New("boom")

	func() {
		defer func() {
			if r := recover(); r != boom { //nolint:errorlint
				t.Errorf("recovered %v, want boom", r)
			}
		}()

		th.Do(func() {
			func() {
				defer th.Call()()

				panic(boom)
			}()
		})
	}()

	if got := rec.kinds(); got != "call,call,raise,raise" {
		t.Errorf("events = %s", got)
	}
}

func TestThread_Inactive_EmitsNothing(t *testing.T) {
	src, rec := New(), &recorder{}
	th := src.Thread()
	defer th.Close()

	instrumented(th)
	th.Do(func() {})

	if err := src.Subscribe(trace.KindAll, rec); err != nil {
		t.Fatal(err)
	}

	src.Unsubscribe()
	instrumented(th)

	if got := rec.kinds(); got != "" {
		t.Errorf("events = %s", got)
	}
}

func TestThread_Emit_HonorsKindMask(t *testing.T) {
	src, rec := subscribed(t, trace.KindCall|trace.KindReturn)
	th := src.Thread()
	defer th.Close()

	instrumented(th)
	th.Emit(trace.KindRaise, "x.go", 1)

	if got := rec.kinds(); got != "call,return" {
		t.Errorf("events = %s", got)
	}
}

func TestSource_Subscribe_IsExclusive(t *testing.T) {
	src, _ := subscribed(t, trace.KindAll)

	if err := src.Subscribe(trace.KindAll, &recorder{}); !errors.Is(err, trace.ErrSubscribed) {
		t.Errorf("second subscribe: %v", err)
	}

	src.Unsubscribe()
	src.Unsubscribe()

	if err := src.Subscribe(trace.KindAll, &recorder{}); err != nil {
		t.Errorf("resubscribe: %v", err)
	}

	src.Unsubscribe()
}

func TestThread_Active_DoesNotAllocate(t *testing.T) {
	src := New()
	if err := src.Subscribe(trace.KindAll, trace.HandlerFunc(func(trace.Event) {})); err != nil {
		t.Fatal(err)
	}
	defer src.Unsubscribe()

	th := src.Thread()
	defer th.Close()

	tests := []struct {
		name string
		fn   func()
	}{
		{"line", th.Line},
		{"call", func() { instrumented(th) }},
		{"do", func() { th.Do(nop) }},
		{"emit", func() { th.Emit(trace.KindLine, "f.go", 1) }},
	}

	for _, tt := range tests {
		if n := testing.AllocsPerRun(100, tt.fn); n != 0 {
			t.Errorf("%s: %v allocations per event, want 0", tt.name, n)
		}
	}
}

func TestSource_IsPinned(t *testing.T) {
	if !trace.IsPinned(New()) {
		t.Error("expected probe source to report pinned threads")
	}
}

func TestSource_Thread_UniqueIDs(t *testing.T) {
	src := New()
	seen := make(map[trace.ThreadID]bool)

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for range 64 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			id := src.Thread().ID()

			mu.Lock()
			defer mu.Unlock()

			if seen[id] {
				t.Errorf("duplicate thread id %d", id)
			}

			seen[id] = true
		}()
	}

	wg.Wait()
}

func BenchmarkThread_Call_Inactive(b *testing.B) {
	th := New().Thread()
	defer th.Close()

	for b.Loop() {
		instrumented(th)
	}
}

func BenchmarkThread_Call_Active(b *testing.B) {
	src := New()
	_ = src.Subscribe(trace.KindAll, trace.HandlerFunc(func(trace.Event) {}))
	th := src.Thread()
	defer th.Close()

	for b.Loop() {
		instrumented(th)
	}
}
