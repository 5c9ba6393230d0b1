// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package list provides a generic owning doubly linked list.
//
// The original C source (tsl/list.h) uses an intrusive list plus a
// container-of macro to recover the outer struct from an embedded node.
// Go has no pointer-to-member arithmetic, so this package takes the
// simpler of the two options spec.md's DESIGN NOTES name for that
// pattern: an owning list whose nodes carry the payload directly,
// rather than a typed intrusive list over caller-embedded nodes. That is
// sufficient here because nothing in this module needs an endpoint to be
// a member of more than one list at a time.
package list

// List is a doubly linked list of values of type T.
//
// Not safe for concurrent use; every list in this module is owned by a
// single goroutine (a worker thread's private endpoint list).
type List[T any] struct {
	root node[T]
	len  int
}

type node[T any] struct {
	prev, next *node[T]
	value      T
}

// Elem is an opaque handle to a node in a List, returned by PushBack and
// consumed by Remove.
type Elem[T any] struct {
	n *node[T]
}

// Init (re)initializes an empty list. The zero value of List is also
// usable: PushBack initializes it on first use, and Len and Each treat
// it as empty.
func (l *List[T]) Init() *List[T] {
	l.root.next = &l.root
	l.root.prev = &l.root
	l.len = 0
	return l
}

// New returns an initialized empty list.
func New[T any]() *List[T] {
	return new(List[T]).Init()
}

// Len returns the number of elements in the list.
func (l *List[T]) Len() int { return l.len }

// PushBack appends value to the end of the list and returns a handle to
// it for later removal.
func (l *List[T]) PushBack(value T) Elem[T] {
	if l.root.next == nil {
		l.Init()
	}
	n := &node[T]{value: value}
	last := l.root.prev
	n.prev = last
	n.next = &l.root
	last.next = n
	l.root.prev = n
	l.len++
	return Elem[T]{n: n}
}

// Remove detaches e from the list. Removing the same Elem twice, or an
// Elem from a different list, is a caller error and corrupts the list.
func (l *List[T]) Remove(e Elem[T]) {
	e.n.prev.next = e.n.next
	e.n.next.prev = e.n.prev
	e.n.next = nil
	e.n.prev = nil
	l.len--
}

// Each calls fn for every value currently in the list, in order. fn may
// call l.Remove(cur) for the element it was just given (the iteration
// already holds the next pointer), but must not remove other elements.
func (l *List[T]) Each(fn func(e Elem[T], value T)) {
	if l.root.next == nil {
		return
	}
	for n := l.root.next; n != &l.root; {
		next := n.next
		fn(Elem[T]{n: n}, n.value)
		n = next
	}
}
