package clock

import (
	"runtime"
	"testing"
	"time"
)

func TestNew_Linux_ReadersAvailable(t *testing.T) {
	for _, kind := range []Kind{KindProcess, KindThread, KindRusage} {
		t.Run(kind.String(), func(t *testing.T) {
			c, err := New(kind)
			if err != nil {
				t.Fatalf("New(%v): %v", kind, err)
			}
			if !c.HasCPU() {
				t.Errorf("%v: expected processor time", kind)
			}
		})
	}
}

func TestNew_Thread_CountsLockedThreadOnly(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	c, err := New(KindThread)
	if err != nil {
		t.Fatal(err)
	}

	if !PerThread(c) {
		t.Error("PerThread() = false, want true")
	}

	before := c.CPU()

	spin(5 * time.Millisecond)

	if dc := c.CPU() - before; dc < int64(time.Millisecond) {
		t.Errorf("thread cpu advanced %v, want >= 1ms", time.Duration(dc))
	}
}

func TestDefaultFor_Linux(t *testing.T) {
	if got := DefaultFor(true); got != KindThread {
		t.Errorf("DefaultFor(true) = %v, want %v", got, KindThread)
	}
	if got := DefaultFor(false); got != DefaultKind {
		t.Errorf("DefaultFor(false) = %v, want %v", got, DefaultKind)
	}
}
