package clock

import (
	"errors"
	"slices"
	"testing"
	"time"
)

func spin(d time.Duration) {
	for start := time.Now(); time.Since(start) < d; {
	}
}

func TestParseKind_NamesEveryKind(t *testing.T) {
	for name := range Kinds() {
		t.Run(name, func(t *testing.T) {
			k, err := ParseKind(name)
			if err != nil {
				t.Fatalf("ParseKind(%q): %v", name, err)
			}
			if k.String() != name {
				t.Errorf("round trip = %q, want %q", k.String(), name)
			}
		})
	}
}

func TestParseKind_RejectsUnknown(t *testing.T) {
	k, err := ParseKind("sundial")
	if !errors.Is(err, ErrInvalidKind) {
		t.Errorf("expected ErrInvalidKind, got %v", err)
	}
	if k != DefaultKind {
		t.Errorf("expected default kind, got %v", k)
	}
}

func TestKinds_ListsDefaultFirst(t *testing.T) {
	names := slices.Collect(Kinds())
	if len(names) != 5 || names[0] != DefaultKind.String() {
		t.Errorf("unexpected kinds %v", names)
	}
	if Kind(42).String() != "Kind(42)" {
		t.Errorf("out of range kind = %q", Kind(42).String())
	}
}

func TestNew_None_ReportsWallOnly(t *testing.T) {
	c, err := New(KindNone)
	if err != nil {
		t.Fatal(err)
	}
	if c.HasCPU() {
		t.Error("expected no processor time")
	}

	if PerThread(c) || PerThread(NewManual(true)) {
		t.Error("expected process-wide clocks")
	}

	spin(time.Millisecond)

	if c.CPU() != 0 {
		t.Errorf("expected zero CPU, got %d", c.CPU())
	}
	if c.Wall() < int64(time.Millisecond) {
		t.Errorf("expected at least 1ms wall, got %d", c.Wall())
	}
}

func TestNew_Default_TracksBusyWork(t *testing.T) {
	c, err := New(DefaultKind)
	if errors.Is(err, ErrCPUUnavailable) {
		t.Skip("processor time unavailable on this platform")
	}
	if err != nil {
		t.Fatal(err)
	}

	w0, c0 := c.Wall(), c.CPU()

	spin(5 * time.Millisecond)

	dw, dc := c.Wall()-w0, c.CPU()-c0
	if dw < int64(5*time.Millisecond) {
		t.Errorf("wall advanced %v, want >= 5ms", time.Duration(dw))
	}
	if dc < int64(time.Millisecond) {
		t.Errorf("cpu advanced %v, want >= 1ms", time.Duration(dc))
	}
}

func TestNew_Default_IdleCostsLittleCPU(t *testing.T) {
	c, err := New(DefaultKind)
	if err != nil {
		t.Skip("processor time unavailable on this platform")
	}

	c0 := c.CPU()

	time.Sleep(20 * time.Millisecond)

	if dc := c.CPU() - c0; dc > int64(15*time.Millisecond) {
		t.Errorf("sleep charged %v of processor time", time.Duration(dc))
	}
}

func TestNew_Psutil_ReadsProcessTimes(t *testing.T) {
	c, err := New(KindPsutil)
	if err != nil {
		t.Skipf("psutil unavailable: %v", err)
	}
	if !c.HasCPU() {
		t.Fatal("expected processor time")
	}

	spin(20 * time.Millisecond)

	if c.CPU() <= 0 {
		t.Errorf("expected positive CPU reading, got %d", c.CPU())
	}
}

func TestWall_IsMonotonic(t *testing.T) {
	c := Wall()

	prev := c.Wall()
	for range 1000 {
		now := c.Wall()
		if now < prev {
			t.Fatalf("wall went backwards: %d < %d", now, prev)
		}

		prev = now
	}
}

func TestManual_SetAndAdvance(t *testing.T) {
	tests := []struct {
		name    string
		hasCPU  bool
		wantCPU int64
	}{
		{"with cpu", true, 15},
		{"wall only", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManual(tt.hasCPU)
			m.Set(100, 10)
			m.Advance(50, 5)

			if m.Wall() != 150 {
				t.Errorf("Wall() = %d, want 150", m.Wall())
			}
			if m.CPU() != tt.wantCPU {
				t.Errorf("CPU() = %d, want %d", m.CPU(), tt.wantCPU)
			}
			if m.HasCPU() != tt.hasCPU {
				t.Errorf("HasCPU() = %v", m.HasCPU())
			}
		})
	}
}

func BenchmarkClock_CPU(b *testing.B) {
	c, err := New(DefaultKind)
	if err != nil {
		b.Skip(err)
	}

	for b.Loop() {
		_ = c.CPU()
	}
}
