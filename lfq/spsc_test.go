// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfq

import (
	"sync"
	"testing"
)

func TestSPSCBasic(t *testing.T) {
	q := NewSPSC[int](3)
	if got := q.Cap(); got != 4 {
		t.Fatalf("Cap() = %d, want 4", got)
	}

	for i := 0; i < 4; i++ {
		v := i
		if err := q.Enqueue(&v); err != nil {
			t.Fatalf("Enqueue(%d) = %v, want nil", i, err)
		}
	}

	v := 99
	if err := q.Enqueue(&v); !IsWouldBlock(err) {
		t.Fatalf("Enqueue on full queue = %v, want ErrWouldBlock", err)
	}

	for i := 0; i < 4; i++ {
		got, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue() #%d = %v, want nil", i, err)
		}
		if got != i {
			t.Fatalf("Dequeue() #%d = %d, want %d", i, got, i)
		}
	}

	if _, err := q.Dequeue(); !IsWouldBlock(err) {
		t.Fatalf("Dequeue on empty queue = %v, want ErrWouldBlock", err)
	}
}

func TestSPSCWrapAround(t *testing.T) {
	q := NewSPSC[int](4)
	for round := 0; round < 10; round++ {
		for i := 0; i < 4; i++ {
			v := round*100 + i
			if err := q.Enqueue(&v); err != nil {
				t.Fatalf("round %d: Enqueue(%d) = %v, want nil", round, i, err)
			}
		}
		for i := 0; i < 4; i++ {
			got, err := q.Dequeue()
			if err != nil {
				t.Fatalf("round %d: Dequeue() #%d = %v, want nil", round, i, err)
			}
			want := round*100 + i
			if got != want {
				t.Fatalf("round %d: Dequeue() #%d = %d, want %d", round, i, got, want)
			}
		}
	}
}

func TestSPSCCapacityRounding(t *testing.T) {
	cases := []struct{ in, want int }{
		{2, 2},
		{3, 4},
		{4, 4},
		{5, 8},
		{7, 8},
		{8, 8},
		{9, 16},
		{100, 128},
		{1000, 1024},
	}
	for _, c := range cases {
		q := NewSPSC[int](c.in)
		if got := q.Cap(); got != c.want {
			t.Errorf("NewSPSC(%d).Cap() = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestSPSCPanicOnSmallCapacity(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("NewSPSC(1) did not panic")
		}
	}()
	NewSPSC[int](1)
}

func TestSPSCConcurrentProducerConsumer(t *testing.T) {
	const n = 100_000
	q := NewSPSC[int](64)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			v := i
			for q.Enqueue(&v) != nil {
				// spin until the consumer makes room
			}
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			var got int
			var err error
			for {
				got, err = q.Dequeue()
				if err == nil {
					break
				}
			}
			if got != i {
				t.Errorf("Dequeue() #%d = %d, want %d", i, got, i)
			}
		}
	}()

	wg.Wait()
}
