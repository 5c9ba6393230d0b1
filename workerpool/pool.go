// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package workerpool

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"code.hybscloud.com/tsl"
	"code.hybscloud.com/tsl/internal/timesource"
	"code.hybscloud.com/tsl/workerpool/affinity"
)

// destroyRetryLimit bounds how many non-blocking checks Destroy makes
// per thread while waiting for its loop to exit, mirroring
// work_pool_destroy's literal 100000-iteration spin.
const destroyRetryLimit = 100000

// Pool owns a set of worker threads, each identified by a
// monotonically increasing id starting at 1.
//
// Grounded on work_pool_create/add_thread/add_endpoint/destroy.
type Pool struct {
	mu      sync.Mutex
	threads map[uint64]*WorkerThread
	nextID  uint64
	clock   timesource.Source
	log     zerolog.Logger
}

// NewPool returns an empty pool using the system clock and a silent
// logger. Use WithClock for test-controlled time and WithLogger to
// observe thread/endpoint lifecycle events.
func NewPool() *Pool {
	return &Pool{
		threads: make(map[uint64]*WorkerThread),
		nextID:  1,
		clock:   timesource.System{},
		log:     zerolog.Nop(),
	}
}

// WithClock overrides the clock used by threads started after this
// call; threads already started keep the clock they were created
// with.
func (p *Pool) WithClock(clock timesource.Source) *Pool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clock = clock
	return p
}

// WithLogger attaches a logger emitting diagnostics at the points the
// original emitted DIAG/PDIAG calls: thread start, endpoint adoption
// failure, poll failure, and destroy-retry exhaustion. The default is
// silent.
func (p *Pool) WithLogger(logger zerolog.Logger) *Pool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.log = logger
	return p
}

// AddThread starts a new worker thread pinned to core (if core >= 0)
// and returns its pool-assigned id.
func (p *Pool) AddThread(core int) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var cpus affinity.Set
	if core >= 0 {
		cpus = affinity.New(core)
	}
	wt := newWorkerThread(cpus, p.clock, p.log)
	wt.id = p.nextID
	p.nextID++
	p.threads[wt.id] = wt
	wt.start()
	p.log.Info().Uint64("thread_id", wt.id).Ints("cpus", cpus.CPUs()).Msg("workerpool: thread started")
	return wt.id, nil
}

// AddEndpoint submits ep to the named thread's handoff ring.
func (p *Pool) AddEndpoint(threadID uint64, ep Endpoint) error {
	p.mu.Lock()
	wt, ok := p.threads[threadID]
	p.mu.Unlock()
	if !ok {
		return tsl.ErrNotFound
	}
	return wt.AddEndpoint(ep)
}

// Shutdown requests every thread in the pool to stop after its
// current poll round. It does not wait for them to finish; call
// Destroy to do that. Never call Shutdown from inside a worker
// thread's own Endpoint callbacks — it would deadlock waiting for
// itself if later joined.
func (p *Pool) Shutdown() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, wt := range p.threads {
		wt.RequestShutdown()
	}
	return nil
}

// Destroy requests shutdown of every thread and blocks, polling with
// a bounded retry count per thread, until each has exited. Returns
// Busy if any thread fails to stop within the retry budget; threads
// that did stop are still removed from the pool.
func (p *Pool) Destroy() error {
	p.mu.Lock()
	all := make([]*WorkerThread, 0, len(p.threads))
	for _, wt := range p.threads {
		wt.RequestShutdown()
		all = append(all, wt)
	}
	p.mu.Unlock()

	var stuck bool
	for _, wt := range all {
		stopped := false
		for i := 0; i < destroyRetryLimit; i++ {
			if wt.Stopped() {
				stopped = true
				break
			}
			time.Sleep(time.Microsecond)
		}
		if !stopped {
			stuck = true
			p.log.Warn().Uint64("thread_id", wt.id).Int("retry_limit", destroyRetryLimit).
				Msg("workerpool: thread did not stop within destroy retry budget")
			continue
		}
		p.mu.Lock()
		delete(p.threads, wt.id)
		p.mu.Unlock()
	}

	if stuck {
		return tsl.ErrBusy
	}
	return nil
}

// ThreadCount returns the number of threads currently owned by the
// pool.
func (p *Pool) ThreadCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.threads)
}
