// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package workerpool runs CPU-pinned worker threads, each executing a
// cooperative poll loop over a dynamic set of endpoints.
//
// Grounded on the original C source's tsl/offload/{thread,pool,
// endpoint}.{c,h}: a worker thread repeatedly drains newly submitted
// endpoints from a small SPSC handoff ring, calls startup on each, then
// polls every adopted endpoint whose deadline has come due, sleeping
// for the shortest requested wait between rounds. An endpoint that
// fails a poll is shut down and dropped; the thread otherwise runs
// until told to stop. A pool owns a set of such threads keyed by a
// monotonically issued id.
//
// The original pins each worker to an OS thread via sched_setaffinity
// and represents the handoff ring as a fixed-size SPSC queue; this
// package keeps both: each [WorkerThread]'s loop runs on a
// runtime.LockOSThread'd goroutine so [code.hybscloud.com/tsl/
// workerpool/affinity] can actually pin it, and the handoff ring is a
// [code.hybscloud.com/tsl/lfq.SPSC] of Endpoint values.
package workerpool

import (
	"runtime"
	"time"

	"github.com/rs/zerolog"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/tsl"
	"code.hybscloud.com/tsl/internal/list"
	"code.hybscloud.com/tsl/internal/timesource"
	"code.hybscloud.com/tsl/lfq"
	"code.hybscloud.com/tsl/workerpool/affinity"
)

// handoffCapacity is the fixed small power-of-two size of each
// worker thread's endpoint handoff ring.
const handoffCapacity = 32

// pollCeilingUs is the wait ceiling used before any endpoint has been
// polled in a given round, mirroring the original's 5 ms initial
// min_wait.
const pollCeilingUs = 5000

// Endpoint is a polymorphic unit of work a worker thread polls
// cooperatively, alongside any number of others.
//
// Grounded on struct work_endpoint_ops{startup,poll,shutdown}.
type Endpoint interface {
	// Startup is called exactly once, on the owning worker thread,
	// before the first Poll. A returned error aborts adoption: the
	// endpoint is discarded without ever being polled or shut down.
	Startup() error
	// Poll advances the endpoint's work by one quantum and writes the
	// requested delay, in microseconds, until it should be polled
	// again. A returned error causes the thread to call Shutdown and
	// drop the endpoint from its list.
	Poll(outWaitUs *uint32) error
	// Shutdown is called exactly once, always on the owning worker
	// thread, always before the endpoint is discarded.
	Shutdown()
}

// Thread state machine values. Mirrors the table in the worker-thread
// lifecycle: starting_up -> running -> shutdown_requested -> shutdown.
// shutdown_forced is reserved for a future forced-teardown path and is
// never entered by this implementation.
const (
	stateStartingUp int32 = iota
	stateRunning
	stateShutdownRequested
	stateShutdownForced
	stateShutdown
)

type endpointEntry struct {
	ep               Endpoint
	nextPollDeadline int64 // nanoseconds, per the clock source
}

// WorkerThread is a single CPU-pinned poll loop over a dynamic set of
// endpoints.
type WorkerThread struct {
	id       uint64
	affinity affinity.Set
	clock    timesource.Source
	log      zerolog.Logger
	state    atomix.Int32
	handoff  *lfq.SPSC[Endpoint]
	done     chan struct{}
}

func newWorkerThread(affinitySet affinity.Set, clock timesource.Source, log zerolog.Logger) *WorkerThread {
	wt := &WorkerThread{
		affinity: affinitySet,
		clock:    clock,
		log:      log,
		handoff:  lfq.NewSPSC[Endpoint](handoffCapacity),
		done:     make(chan struct{}),
	}
	wt.state.StoreRelease(stateStartingUp)
	return wt
}

// ID returns the thread's pool-assigned identifier.
func (wt *WorkerThread) ID() uint64 { return wt.id }

// AddEndpoint submits ep to this thread's handoff ring for adoption on
// its next poll-loop iteration. Fails with Busy if the ring is full;
// submitters may retry.
func (wt *WorkerThread) AddEndpoint(ep Endpoint) error {
	if err := wt.handoff.Enqueue(&ep); err != nil {
		return tsl.ErrBusy
	}
	return nil
}

// RequestShutdown asks the thread to stop after its current poll
// round. Idempotent; safe to call more than once or after the thread
// has already stopped.
func (wt *WorkerThread) RequestShutdown() {
	for {
		cur := wt.state.LoadAcquire()
		if cur == stateShutdownRequested || cur == stateShutdown {
			return
		}
		if wt.state.CompareAndSwapAcqRel(cur, stateShutdownRequested) {
			return
		}
	}
}

// Stopped reports whether the loop has exited and all endpoints have
// been shut down. Non-blocking; used by Pool.Destroy's bounded retry.
func (wt *WorkerThread) Stopped() bool {
	select {
	case <-wt.done:
		return true
	default:
		return false
	}
}

// start launches the poll loop on a dedicated, OS-thread-locked
// goroutine so the requested affinity actually applies to it.
func (wt *WorkerThread) start() {
	go wt.run()
}

func (wt *WorkerThread) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(wt.done)

	if err := wt.affinity.Apply(); err != nil {
		// Pinning is a performance concern, not correctness: fall
		// through and run unpinned rather than refusing to serve any
		// endpoints at all.
		_ = err
	}

	wt.state.CompareAndSwapAcqRel(stateStartingUp, stateRunning)

	endpoints := list.New[*endpointEntry]()

	for wt.state.LoadAcquire() == stateRunning {
		wt.drainHandoff(endpoints)

		now := wt.clock.NowNanos()
		minWaitUs := uint32(pollCeilingUs)

		endpoints.Each(func(e list.Elem[*endpointEntry], entry *endpointEntry) {
			if entry.nextPollDeadline > now {
				return
			}
			var waitUs uint32
			if err := entry.ep.Poll(&waitUs); err != nil {
				wt.log.Warn().Uint64("thread_id", wt.id).Err(err).Msg("workerpool: endpoint poll failed, shutting it down")
				entry.ep.Shutdown()
				endpoints.Remove(e)
				return
			}
			if waitUs < minWaitUs {
				minWaitUs = waitUs
			}
			entry.nextPollDeadline = now + int64(waitUs)*1000
		})

		if minWaitUs > 0 {
			time.Sleep(time.Duration(minWaitUs) * time.Microsecond)
		}
	}

	endpoints.Each(func(e list.Elem[*endpointEntry], entry *endpointEntry) {
		entry.ep.Shutdown()
		endpoints.Remove(e)
	})
	wt.state.StoreRelease(stateShutdown)
}

// drainHandoff adopts up to half the handoff ring's capacity of newly
// submitted endpoints per iteration, matching the original's
// WORK_THREAD_MAX_QUEUED_ENDPOINTS/2 cap so a burst of submissions
// can't starve already-adopted endpoints of poll time.
func (wt *WorkerThread) drainHandoff(endpoints *list.List[*endpointEntry]) {
	limit := wt.handoff.Cap() / 2
	for i := 0; i < limit; i++ {
		ep, err := wt.handoff.Dequeue()
		if err != nil {
			return
		}
		if err := ep.Startup(); err != nil {
			wt.log.Warn().Uint64("thread_id", wt.id).Err(err).Msg("workerpool: endpoint startup failed, discarding")
			continue
		}
		endpoints.PushBack(&endpointEntry{ep: ep})
	}
}
