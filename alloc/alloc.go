// Package alloc counts heap objects allocated by the running program.
package alloc

import (
	"runtime"
	"runtime/metrics"
	"sync"
)

// Counter reports a monotonically non-decreasing count of allocated heap
// objects. Implementations must be safe for concurrent use.
type Counter interface {
	Allocs() uint64
	Available() bool
}

// allocsMetric is the cumulative count of heap objects allocated by the
// runtime, including tiny allocations.
const allocsMetric = "/gc/heap/allocs:objects"

var samplePool = sync.Pool{
	New: func() any {
		return &[1]metrics.Sample{{Name: allocsMetric}}
	},
}

type runtimeCounter struct{ ok bool }

// Runtime returns a [Counter] backed by [runtime/metrics].
//
// The runtime accounts small objects a span at a time, so a reading is exact
// only to within one span of each size class. Readings never decrease.
func Runtime() Counter {
	for _, d := range metrics.All() {
		if d.Name == allocsMetric {
			return runtimeCounter{ok: d.Kind == metrics.KindUint64}
		}
	}

	return runtimeCounter{}
}

func (c runtimeCounter) Allocs() uint64 {
	if !c.ok {
		return 0
	}

	s := samplePool.Get().(*[1]metrics.Sample) //nolint:forcetypeassert
	metrics.Read(s[:])
	n := s[0].Value.Uint64()
	samplePool.Put(s)

	return n
}

func (c runtimeCounter) Available() bool { return c.ok }

type memStats struct {
	sync.Mutex
	m runtime.MemStats
}

// MemStats returns a [Counter] backed by [runtime.ReadMemStats].
//
// The runtime flushes every per-processor cache before it reports, so a
// reading counts each object exactly. Each reading stops the world.
func MemStats() Counter { return new(memStats) }

func (c *memStats) Allocs() uint64 {
	c.Lock()
	defer c.Unlock()

	runtime.ReadMemStats(&c.m)

	return c.m.Mallocs
}

func (*memStats) Available() bool { return true }

type none struct{}

// None returns a [Counter] that is never available and always reads zero.
func None() Counter { return none{} }

func (none) Allocs() uint64   { return 0 }
func (none) Available() bool { return false }

// Func adapts fn to an available [Counter].
type Func func() uint64

func (f Func) Allocs() uint64  { return f() }
func (Func) Available() bool { return true }
