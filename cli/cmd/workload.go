package cmd

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/ardnew/lineprof/probe"
)

// workloadFile is the path of this file when it was compiled.
var workloadFile = func() string {
	_, file, _, _ := runtime.Caller(0)

	return file
}()

// workload is the program profiled by [Demo]. Its functions are instrumented
// by hand with probe calls: a main loop and a worker goroutine both call a
// helper that waits, computes, and allocates.
type workload struct {
	src  *probe.Source
	size int
}

func (w workload) run(ctx context.Context) error {
	th := w.src.Thread()
	defer th.Close()
	defer th.Call()()

	var wg sync.WaitGroup

	th.Line()
	wg.Go(func() { w.worker(ctx) })
	th.Line()
	w.outer(ctx, th)
	th.Line()
	wg.Wait()

	return context.Cause(ctx)
}

func (w workload) outer(ctx context.Context, th *probe.Thread) {
	defer th.Call()()

	th.Line()
	time.Sleep(time.Millisecond)

	for range w.size {
		if ctx.Err() != nil {
			return
		}

		th.Line()
		w.inner(th)
	}
}

func (w workload) worker(ctx context.Context) {
	th := w.src.Thread()
	defer th.Close()
	defer th.Call()()

	for range w.size / 2 {
		if ctx.Err() != nil {
			return
		}

		th.Line()
		w.inner(th)
	}
}

func (w workload) inner(th *probe.Thread) int {
	defer th.Call()()

	th.Line()
	time.Sleep(100 * time.Microsecond)

	var n int

	th.Do(func() { n = fib(20) })
	th.Line()
	buf := make([]byte, n%64+1)
	th.Line()

	return len(buf)
}

func fib(n int) int {
	if n < 2 {
		return n
	}

	return fib(n-1) + fib(n-2)
}
