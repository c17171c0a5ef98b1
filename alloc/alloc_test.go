package alloc

import (
	"sync/atomic"
	"testing"
)

var sink []*[64]byte

func TestRuntime_CountsHeapObjects(t *testing.T) {
	c := Runtime()
	if !c.Available() {
		t.Skip("allocation metric unavailable")
	}

	const n = 10000

	before := c.Allocs()

	sink = make([]*[64]byte, n)
	for i := range sink {
		sink[i] = new([64]byte)
	}

	if got := c.Allocs() - before; got < n/2 {
		t.Errorf("counted %d allocations, want about %d", got, n)
	}

	sink = nil
}

func TestRuntime_NeverDecreases(t *testing.T) {
	c := Runtime()

	prev := c.Allocs()
	for range 100 {
		sink = append(sink, new([64]byte))

		now := c.Allocs()
		if now < prev {
			t.Fatalf("count decreased: %d < %d", now, prev)
		}

		prev = now
	}

	sink = nil
}

func TestMemStats_CountsExactly(t *testing.T) {
	c := MemStats()
	if !c.Available() {
		t.Fatal("expected MemStats counter to be available")
	}

	tests := []struct {
		name string
		n    int
	}{
		{"one", 1},
		{"few", 7},
		{"many", 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]*[64]byte, tt.n)

			before := c.Allocs()
			for i := range buf {
				buf[i] = new([64]byte)
			}
			got := c.Allocs() - before

			if got != uint64(tt.n) {
				t.Errorf("counted %d allocations, want %d", got, tt.n)
			}

			sink = buf
		})
	}

	sink = nil
}

func TestNone_IsUnavailable(t *testing.T) {
	c := None()
	if c.Available() || c.Allocs() != 0 {
		t.Errorf("None() = (%d, %v)", c.Allocs(), c.Available())
	}
}

func TestFunc_ForwardsReading(t *testing.T) {
	var n atomic.Uint64

	c := Func(func() uint64 { return n.Add(1) })
	if !c.Available() {
		t.Error("expected Func counter to be available")
	}
	if c.Allocs() != 1 || c.Allocs() != 2 {
		t.Error("expected each read to call the function")
	}
}

func BenchmarkRuntime_Allocs(b *testing.B) {
	c := Runtime()

	b.ReportAllocs()

	for b.Loop() {
		_ = c.Allocs()
	}
}

func BenchmarkMemStats_Allocs(b *testing.B) {
	c := MemStats()

	b.ReportAllocs()

	for b.Loop() {
		_ = c.Allocs()
	}
}
