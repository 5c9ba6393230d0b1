// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package affinity pins the calling OS thread to a CPU set.
//
// Grounded on the original C source's tsl/cpumask.c, which wraps
// sched.h's cpu_set_t so a worker thread can be pinned to a single
// core at creation time. Go schedules goroutines onto OS threads
// opportunistically, so pinning a goroutine requires first locking it
// to its carrier thread (runtime.LockOSThread) before applying the
// mask — the caller (workerpool.WorkerThread's loop goroutine) is
// responsible for that call; this package only wraps the syscall.
package affinity

// Set names the CPUs a thread should be restricted to. The zero value
// names no restriction.
type Set struct {
	cpus []int
}

// New returns a Set naming the given CPU numbers.
func New(cpus ...int) Set {
	return Set{cpus: append([]int(nil), cpus...)}
}

// CPUs returns the CPU numbers in the set.
func (s Set) CPUs() []int { return s.cpus }

// Empty reports whether the set names no CPUs (no restriction applied).
func (s Set) Empty() bool { return len(s.cpus) == 0 }
