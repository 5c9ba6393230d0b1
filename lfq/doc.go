// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package lfq provides a bounded single-producer single-consumer FIFO queue.
//
// SPSC is a Lamport ring buffer with cached index optimization: the producer
// caches the consumer's dequeue index and vice versa, reducing cross-core
// cache line traffic compared to loading the peer's index on every operation.
//
// # Quick Start
//
//	q := lfq.NewSPSC[Event](1024)
//
// Builder API, for call sites that want to spell out the access pattern:
//
//	q := lfq.BuildSPSC[Event](lfq.New(1024).SingleProducer().SingleConsumer())
//
// # Basic Usage
//
//	q := lfq.NewSPSC[int](1024)
//
//	// Enqueue (producer goroutine only)
//	value := 42
//	err := q.Enqueue(&value)
//	if lfq.IsWouldBlock(err) {
//	    // Queue is full - handle backpressure
//	}
//
//	// Dequeue (consumer goroutine only)
//	elem, err := q.Dequeue()
//	if lfq.IsWouldBlock(err) {
//	    // Queue is empty - try again later
//	}
//
// # Handoff Ring Pattern
//
// SPSC is the natural fit for a single dispatcher handing work to a single
// dedicated consumer, e.g. a poll-loop worker's submission ring:
//
//	ring := lfq.NewSPSC[Task](1024)
//
//	go func() { // dispatcher (producer)
//	    backoff := iox.Backoff{}
//	    for task := range tasks {
//	        for ring.Enqueue(&task) != nil {
//	            backoff.Wait()
//	        }
//	        backoff.Reset()
//	    }
//	}()
//
//	go func() { // worker poll loop (consumer)
//	    for {
//	        task, err := ring.Dequeue()
//	        if err == nil {
//	            task.Run()
//	        }
//	    }
//	}()
//
// # Error Handling
//
// Enqueue and Dequeue return [ErrWouldBlock] when they cannot proceed
// (queue full or empty respectively). This error is sourced from
// [code.hybscloud.com/iox] for ecosystem consistency.
//
//	backoff := iox.Backoff{}
//	for {
//	    err := q.Enqueue(&item)
//	    if err == nil {
//	        backoff.Reset()
//	        break
//	    }
//	    if !lfq.IsWouldBlock(err) {
//	        return err // Unexpected error
//	    }
//	    backoff.Wait()
//	}
//
// For semantic error classification (delegates to iox):
//
//	lfq.IsWouldBlock(err)  // true if queue full/empty
//	lfq.IsSemantic(err)    // true if control flow signal
//	lfq.IsNonFailure(err)  // true if nil or ErrWouldBlock
//
// # Capacity and Length
//
// Capacity rounds up to the next power of 2:
//
//	q := lfq.NewSPSC[int](3)     // Actual capacity: 4
//	q := lfq.NewSPSC[int](4)     // Actual capacity: 4
//	q := lfq.NewSPSC[int](1000)  // Actual capacity: 1024
//
// Minimum capacity is 2 (already a power of 2). Panics if capacity < 2.
//
// Length is intentionally not provided because accurate counts in lock-free
// algorithms require expensive cross-core synchronization. Track counts in
// application logic when needed.
//
// # Thread Safety
//
// SPSC requires exactly one producer goroutine and one consumer goroutine.
// Violating this constraint (e.g. two goroutines calling Enqueue) causes
// undefined behavior including data corruption and races.
//
// # Race Detection
//
// Go's race detector is not designed for lock-free algorithm verification.
// The race detector tracks explicit synchronization primitives (mutex, channels,
// WaitGroup) but cannot observe happens-before relationships established through
// atomic memory orderings (acquire-release semantics).
//
// SPSC uses head/tail cursors with acquire-release semantics to protect the
// ring buffer slots. The algorithm is correct, but the race detector may
// report false positives because it cannot track synchronization provided
// by atomic operations on separate variables.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors and
// [code.hybscloud.com/atomix] for atomic primitives with explicit
// memory ordering.
package lfq
