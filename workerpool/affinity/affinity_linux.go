// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package affinity

import "golang.org/x/sys/unix"

// Apply restricts the calling OS thread to s's CPUs via
// sched_setaffinity. The caller must have already called
// runtime.LockOSThread, or the restriction will apply to whichever
// thread the scheduler hands the calling goroutine to next rather than
// the one the caller expects.
//
// An empty Set is a no-op.
func (s Set) Apply() error {
	if s.Empty() {
		return nil
	}
	var set unix.CPUSet
	set.Zero()
	for _, cpu := range s.cpus {
		set.Set(cpu)
	}
	return unix.SchedSetaffinity(0, &set)
}
