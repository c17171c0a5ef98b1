package clock

import "sync/atomic"

// Manual is a [Clock] whose readings are set explicitly. It drives profiles of
// recorded traces and deterministic tests.
type Manual struct {
	wall      atomic.Int64
	cpu       atomic.Int64
	hasCPU    bool
	perThread bool
}

// NewManual returns a [Manual] clock reading zero.
func NewManual(hasCPU bool) *Manual { return &Manual{hasCPU: hasCPU} }

// NewManualThread returns a [Manual] clock reading zero whose processor time
// is reported as per-thread.
func NewManualThread() *Manual { return &Manual{hasCPU: true, perThread: true} }

func (m *Manual) Wall() int64 { return m.wall.Load() }

// CPU returns the last processor time set, or zero if the clock was created
// without processor time.
func (m *Manual) CPU() int64 {
	if !m.hasCPU {
		return 0
	}

	return m.cpu.Load()
}

func (m *Manual) HasCPU() bool { return m.hasCPU }

// PerThread reports whether the clock was created by [NewManualThread].
func (m *Manual) PerThread() bool { return m.perThread }

// Set replaces both readings.
func (m *Manual) Set(wall, cpu int64) {
	m.wall.Store(wall)
	m.cpu.Store(cpu)
}

// Advance adds to both readings.
func (m *Manual) Advance(wall, cpu int64) {
	m.wall.Add(wall)
	m.cpu.Add(cpu)
}
