// Package probe is a [trace.Source] for Go code instrumented by hand or by a
// source rewriter.
//
// Each goroutine that reports events obtains its own [Thread], closes it when
// done, and marks its activations and lines:
//
//	func (s *server) handle(src *probe.Source, req *request) {
//		th := src.Thread()
//		defer th.Close()
//		defer th.Call()()
//
//		th.Line()
//		body := decode(req)
//		th.Do(func() { s.store(body) })
//	}
//
// Call reports the line that called the instrumented function. Do reports the
// line that called Do and charges fn to it. Line reports the line following
// the call to Line. Every method returns after a single atomic load when no
// subscriber is installed, and none allocates while one is.
//
// Call sites are reported unresolved; subscribers call [trace.Event.Resolve]
// for their file and line.
package probe

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/ardnew/lineprof/trace"
)

type subscriber struct {
	h     trace.Handler
	kinds trace.Kind
}

// Source delivers the events of its threads to at most one subscriber.
type Source struct {
	mu   sync.Mutex
	sub  atomic.Pointer[subscriber]
	next atomic.Uint64
}

// New returns a [Source] with no subscriber.
func New() *Source { return &Source{} }

// Subscribe implements [trace.Source]. It returns [trace.ErrSubscribed] if a
// subscriber is already installed.
func (s *Source) Subscribe(kinds trace.Kind, h trace.Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sub.Load() != nil {
		return trace.ErrSubscribed
	}

	s.sub.Store(&subscriber{h: h, kinds: kinds})

	return nil
}

// Unsubscribe implements [trace.Source].
func (s *Source) Unsubscribe() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sub.Store(nil)
}

// Active reports whether a subscriber is installed.
func (s *Source) Active() bool { return s.sub.Load() != nil }

// Pinned implements [trace.Pinned]. A thread locks its goroutine to the
// current OS thread when it first delivers an event, until closed.
func (s *Source) Pinned() bool { return true }

// Thread returns a new [Thread] with a unique id. A Thread must only be used
// by one goroutine, which should call [Thread.Close] when done with it.
func (s *Source) Thread() *Thread {
	t := &Thread{src: s, id: trace.ThreadID(s.next.Add(1))}
	t.ret = func() { t.exit(recover()) }

	return t
}

// Thread reports the events of one logical thread.
type Thread struct {
	src    *Source
	ret    func()
	id     trace.ThreadID
	locked bool
}

// Close releases the OS thread the goroutine was locked to while delivering
// events. It must be called by the goroutine using t and is safe to call more
// than once.
func (t *Thread) Close() {
	if t.locked {
		t.locked = false

		runtime.UnlockOSThread()
	}
}

// ID returns the thread's id.
func (t *Thread) ID() trace.ThreadID { return t.id }

// subscriber returns the installed subscriber if it accepts kind. The
// calling goroutine is locked to its OS thread before its first event.
func (t *Thread) subscriber(kind trace.Kind) *subscriber {
	sub := t.src.sub.Load()
	if sub == nil || sub.kinds&kind == 0 {
		return nil
	}

	if !t.locked {
		runtime.LockOSThread()

		t.locked = true
	}

	return sub
}

// Emit reports an arbitrary event at file:line.
func (t *Thread) Emit(kind trace.Kind, file string, line int) {
	if sub := t.subscriber(kind); sub != nil {
		sub.h.HandleEvent(trace.Event{Kind: kind, File: file, Line: line, Thread: t.id})
	}
}

// emitCaller reports kind at the location skip frames above its caller,
// offset by offset lines. The location is left for the subscriber to resolve
// so that reporting it does not allocate.
func (t *Thread) emitCaller(kind trace.Kind, skip, offset int) {
	sub := t.subscriber(kind)
	if sub == nil {
		return
	}

	var pc [1]uintptr
	if runtime.Callers(skip+3, pc[:]) == 0 {
		return
	}

	sub.h.HandleEvent(trace.Event{Kind: kind, Line: offset, Thread: t.id, PC: pc[0]})
}

func nop() {}

// Call reports entry to the calling function, charged to the line that
// called it, and returns the function that reports its exit. Use it as
//
//	defer th.Call()()
//
// If the function exits by panicking, the exit is reported as a raise and the
// panic continues.
func (t *Thread) Call() func() {
	if !t.src.Active() {
		return nop
	}

	t.emitCaller(trace.KindCall, 1, 0)

	return t.ret
}

// Do runs fn as one activation charged to the line that called Do.
func (t *Thread) Do(fn func()) {
	if !t.src.Active() {
		fn()

		return
	}

	t.emitCaller(trace.KindCall, 0, 0)

	defer func() { t.exit(recover()) }()

	fn()
}

// Line reports that control reached the statement on the line following the
// call to Line.
func (t *Thread) Line() {
	if !t.src.Active() {
		return
	}

	t.emitCaller(trace.KindLine, 0, 1)
}

func (t *Thread) exit(r any) {
	if r == nil {
		t.Emit(trace.KindReturn, "", 0)

		return
	}

	t.Emit(trace.KindRaise, "", 0)
	panic(r)
}
