// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package timesource provides the time capability the worker pool and
// timer-adjacent code need.
//
// The original C source (tsl/time.h) models this as a struct-of-function-pointers
// "time_ops" attached to an opaque "time_source", settable globally so
// tests can substitute a fake clock. Per spec.md's DESIGN NOTES on
// polymorphism and on avoiding ambient globals, this is modeled as a
// small capability interface passed explicitly to whatever needs it
// (a worker pool, a timer), rather than a process-wide singleton.
package timesource

import "time"

// Source reports the current time, in nanoseconds on some monotonic or
// wall-clock timeline. Only relative differences between calls need to
// be meaningful; callers must not assume any relationship to wall-clock
// time unless the concrete Source documents one.
type Source interface {
	NowNanos() int64
}

// System is the default Source, backed by the wall clock
// (time.Now().UnixNano()).
type System struct{}

// NowNanos returns wall-clock nanoseconds since the Unix epoch. The
// monotonic clock reading is not used, so the value follows any
// adjustment of the system clock.
func (System) NowNanos() int64 {
	return time.Now().UnixNano()
}

// Fixed is a Source that always returns the same instant, advanced
// explicitly. Useful for deterministic tests of deadline logic, the Go
// equivalent of substituting a fake time_source in the original.
type Fixed struct {
	nanos int64
}

// NewFixed creates a Fixed source starting at the given instant.
func NewFixed(nanos int64) *Fixed {
	return &Fixed{nanos: nanos}
}

// NowNanos returns the current fixed instant.
func (f *Fixed) NowNanos() int64 {
	return f.nanos
}

// Advance moves the fixed instant forward by delta nanoseconds. delta
// may be negative only if the caller is deliberately testing clock
// skew; callers relying on monotonic behavior should not do this.
func (f *Fixed) Advance(delta int64) {
	f.nanos += delta
}
