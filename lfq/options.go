// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfq

// Options configures queue creation.
type Options struct {
	// Capacity (rounds up to next power of 2)
	capacity int
}

// Builder creates queues with fluent configuration.
//
// Example:
//
//	q := lfq.BuildSPSC[Event](lfq.New(1024).SingleProducer().SingleConsumer())
type Builder struct {
	opts Options
}

// New creates a queue builder with the given capacity.
//
// Capacity rounds up to the next power of 2.
// For example, capacity=4 results in actual capacity=4, capacity=1000 results
// in actual capacity=1024.
//
// Panics if capacity < 2.
func New(capacity int) *Builder {
	if capacity < 2 {
		panic("lfq: capacity must be >= 2")
	}
	return &Builder{opts: Options{capacity: capacity}}
}

// SingleProducer declares that only one goroutine will enqueue.
// SPSC requires this constraint; the method exists to document intent
// at the call site and to keep the fluent builder chain readable.
func (b *Builder) SingleProducer() *Builder {
	return b
}

// SingleConsumer declares that only one goroutine will dequeue.
// SPSC requires this constraint; the method exists to document intent
// at the call site and to keep the fluent builder chain readable.
func (b *Builder) SingleConsumer() *Builder {
	return b
}

// BuildSPSC creates an SPSC queue with compile-time type safety.
func BuildSPSC[T any](b *Builder) *SPSC[T] {
	return NewSPSC[T](b.opts.capacity)
}

// roundToPow2 rounds n up to the next power of 2.
func roundToPow2(n int) int {
	if n < 2 {
		return 2
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// pad is cache line padding to prevent false sharing.
type pad [64]byte
