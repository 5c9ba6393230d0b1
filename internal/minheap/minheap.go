// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package minheap provides a fixed-capacity generic min-heap.
//
// Grounded on the original C source's tsl/fixed_heap.{c,h}: a
// fixed-size array heap with a caller-supplied comparator, sized once
// at creation rather than growing unbounded. The comparator there
// returns negative/zero/positive for a max-heap and is meant to be
// flipped for min-heap behavior; this package bakes in min-heap order
// directly since that is the only orientation spec.md's supporting
// primitives need (deadline scheduling — earliest deadline first).
package minheap

// Heap is a fixed-capacity min-heap ordered by less.
//
// Not safe for concurrent use.
type Heap[T any] struct {
	items []T
	less  func(a, b T) bool
}

// New creates an empty heap with the given capacity and ordering.
// Panics if capacity is 0.
func New[T any](capacity int, less func(a, b T) bool) *Heap[T] {
	if capacity <= 0 {
		panic("minheap: capacity must be > 0")
	}
	return &Heap[T]{
		items: make([]T, 0, capacity),
		less:  less,
	}
}

// Len returns the number of items currently in the heap.
func (h *Heap[T]) Len() int { return len(h.items) }

// Push inserts an item. Returns false without modifying the heap if the
// heap is already at capacity.
func (h *Heap[T]) Push(item T) bool {
	if len(h.items) == cap(h.items) {
		return false
	}
	h.items = append(h.items, item)
	h.siftUp(len(h.items) - 1)
	return true
}

// Peek returns the minimum item without removing it.
func (h *Heap[T]) Peek() (item T, ok bool) {
	if len(h.items) == 0 {
		return item, false
	}
	return h.items[0], true
}

// Pop removes and returns the minimum item.
func (h *Heap[T]) Pop() (item T, ok bool) {
	n := len(h.items)
	if n == 0 {
		return item, false
	}
	item = h.items[0]
	last := h.items[n-1]
	h.items = h.items[:n-1]
	if n > 1 {
		h.items[0] = last
		h.siftDown(0)
	}
	return item, true
}

func (h *Heap[T]) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.less(h.items[i], h.items[parent]) {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *Heap[T]) siftDown(i int) {
	n := len(h.items)
	for {
		left := 2*i + 1
		right := 2*i + 2
		smallest := i
		if left < n && h.less(h.items[left], h.items[smallest]) {
			smallest = left
		}
		if right < n && h.less(h.items[right], h.items[smallest]) {
			smallest = right
		}
		if smallest == i {
			return
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}
