// Package clock reads the wall and processor time used to cost profiled code.
//
// A [Clock] reports both readings in nanoseconds relative to its creation.
// Wall time is always available. Processor time comes from one of several
// readers selected by [Kind]; when the selected reader does not work on the
// running platform, [New] returns a wall-only clock together with
// [ErrCPUUnavailable] so the caller can degrade instead of failing.
package clock
