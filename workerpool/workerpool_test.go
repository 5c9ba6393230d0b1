// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package workerpool_test

import (
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/tsl"
	"code.hybscloud.com/tsl/workerpool"
)

type countingEndpoint struct {
	mu          sync.Mutex
	startupErr  error
	pollErr     error
	startupCall int
	pollCalls   int
	shutdownCalls int
	waitUs      uint32
}

func (e *countingEndpoint) Startup() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.startupCall++
	return e.startupErr
}

func (e *countingEndpoint) Poll(outWaitUs *uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pollCalls++
	*outWaitUs = e.waitUs
	return e.pollErr
}

func (e *countingEndpoint) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.shutdownCalls++
}

func (e *countingEndpoint) polls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pollCalls
}

func (e *countingEndpoint) shutdowns() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shutdownCalls
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not satisfied within %s", timeout)
}

func TestEndpointAdoptionAndPolling(t *testing.T) {
	p := workerpool.NewPool()
	id, err := p.AddThread(-1)
	if err != nil {
		t.Fatalf("AddThread: %v", err)
	}

	ep := &countingEndpoint{waitUs: 1000}
	if err := p.AddEndpoint(id, ep); err != nil {
		t.Fatalf("AddEndpoint: %v", err)
	}

	waitUntil(t, time.Second, func() bool { return ep.polls() >= 3 })

	if err := p.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if ep.shutdowns() != 1 {
		t.Fatalf("expected exactly one shutdown, got %d", ep.shutdowns())
	}
}

func TestEndpointStartupFailureIsNeverPolled(t *testing.T) {
	p := workerpool.NewPool()
	id, err := p.AddThread(-1)
	if err != nil {
		t.Fatalf("AddThread: %v", err)
	}

	ep := &countingEndpoint{startupErr: tsl.ErrInvalid}
	if err := p.AddEndpoint(id, ep); err != nil {
		t.Fatalf("AddEndpoint: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if err := p.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if ep.polls() != 0 {
		t.Fatalf("expected no polls after failed startup, got %d", ep.polls())
	}
	if ep.shutdowns() != 0 {
		t.Fatalf("expected no shutdown for an endpoint whose startup failed, got %d", ep.shutdowns())
	}
}

func TestPollFailureJettisonsEndpoint(t *testing.T) {
	p := workerpool.NewPool()
	id, err := p.AddThread(-1)
	if err != nil {
		t.Fatalf("AddThread: %v", err)
	}

	ep := &countingEndpoint{pollErr: tsl.ErrInvalid}
	if err := p.AddEndpoint(id, ep); err != nil {
		t.Fatalf("AddEndpoint: %v", err)
	}

	waitUntil(t, time.Second, func() bool { return ep.shutdowns() == 1 })
	if ep.polls() != 1 {
		t.Fatalf("expected exactly one poll before jettison, got %d", ep.polls())
	}

	if err := p.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if ep.shutdowns() != 1 {
		t.Fatalf("endpoint shut down twice: once on poll failure, once more on pool teardown")
	}
}

func TestAddEndpointUnknownThread(t *testing.T) {
	p := workerpool.NewPool()
	if err := p.AddEndpoint(999, &countingEndpoint{}); err != tsl.ErrNotFound {
		t.Fatalf("expected NotFound for unknown thread id, got %v", err)
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	p := workerpool.NewPool()
	if _, err := p.AddThread(-1); err != nil {
		t.Fatalf("AddThread: %v", err)
	}
	if err := p.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := p.Shutdown(); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
	if err := p.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if p.ThreadCount() != 0 {
		t.Fatalf("expected pool empty after Destroy, got %d threads", p.ThreadCount())
	}
}

func TestHandoffRingFullReturnsBusy(t *testing.T) {
	p := workerpool.NewPool()
	id, err := p.AddThread(-1)
	if err != nil {
		t.Fatalf("AddThread: %v", err)
	}

	var lastErr error
	for i := 0; i < 64; i++ {
		lastErr = p.AddEndpoint(id, &countingEndpoint{startupErr: tsl.ErrInvalid, waitUs: 1000})
		if lastErr != nil {
			break
		}
	}
	if lastErr == nil {
		t.Fatalf("expected a full handoff ring to eventually report Busy")
	}
	if !tsl.IsBusy(lastErr) {
		t.Fatalf("expected Busy, got %v", lastErr)
	}

	_ = p.Destroy()
}

func TestMultipleThreadsIndependentDestroy(t *testing.T) {
	p := workerpool.NewPool()
	ids := make([]uint64, 0, 3)
	for i := 0; i < 3; i++ {
		id, err := p.AddThread(-1)
		if err != nil {
			t.Fatalf("AddThread: %v", err)
		}
		ids = append(ids, id)
	}
	if p.ThreadCount() != 3 {
		t.Fatalf("expected 3 threads, got %d", p.ThreadCount())
	}

	eps := make([]*countingEndpoint, len(ids))
	for i, id := range ids {
		eps[i] = &countingEndpoint{waitUs: 500}
		if err := p.AddEndpoint(id, eps[i]); err != nil {
			t.Fatalf("AddEndpoint: %v", err)
		}
	}
	for _, ep := range eps {
		waitUntil(t, time.Second, func() bool { return ep.polls() > 0 })
	}

	if err := p.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	for _, ep := range eps {
		if ep.shutdowns() != 1 {
			t.Fatalf("expected every endpoint shut down exactly once")
		}
	}
}
