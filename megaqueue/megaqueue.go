// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package megaqueue is a named, single-producer / multi-consumer
// bounded ring living in POSIX shared memory, addressed by 64-bit
// monotonic indices so it can be shared across process boundaries.
//
// Grounded on the original C source's tsl/megaqueue/megaqueue.{c,h,
// megaqueue_priv.h}: a page-sized header (producer/consumer cursors
// plus object size/count metadata) followed by a flat array of fixed
// size slots, all backed by a single shm_open+mmap mapping. The
// original ships two variants of the header — one with a two-cursor
// (head/tail) model, one with a three-cursor (head/tail/delete) model
// — and two variants of the fullness check that disagree on whether
// "full" compares against tail or against delete. This package
// implements the three-cursor form throughout: it is the superset,
// and is the only one of the two that lets a reader and a separate
// reclaimer make independent progress.
package megaqueue

import (
	"os"
	"unsafe"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/tsl"
)

// cacheLineBytes is the padding unit used to keep each header cursor
// on its own cache line, avoiding false sharing between the producer,
// the reader, and the reclaimer.
const cacheLineBytes = 64

// header is the on-disk/mapped layout of a megaqueue's first page.
// Each field is immediately followed by padding to the next cache
// line. Mapped directly over shared-memory bytes via unsafe.Pointer,
// so its field order and sizes are load-bearing: do not reorder or add
// fields without also updating the page-size assumptions in Open.
type header struct {
	head atomix.Uint64
	_    [cacheLineBytes - 8]byte
	tail atomix.Uint64
	_    [cacheLineBytes - 8]byte
	del  atomix.Uint64
	_    [cacheLineBytes - 8]byte
	producerPID atomix.Uint64
	_           [cacheLineBytes - 8]byte
	objectSize atomix.Uint64
	_          [cacheLineBytes - 8]byte
	objectCount atomix.Uint64
	_           [cacheLineBytes - 8]byte
}

// Mode selects the shm_open-style access semantics a Queue is opened
// with.
type Mode uint8

const (
	// Read grants read access to an existing queue.
	Read Mode = 1 << iota
	// Write grants write access.
	Write
	// Create creates the backing shared-memory object if it does not
	// already exist, and stamps a fresh header. Implies Write.
	Create
)

// ReadWrite is shorthand for Read|Write.
const ReadWrite = Read | Write

// platformRegion is what platformOpen (implemented per-OS in
// shm_linux.go for Linux, shm_other.go elsewhere) returns: the mapped
// region and a closer that releases the mapping (and optionally
// unlinks the backing name). Open validates the object size/count
// stored in the region's header itself.
type platformRegion struct {
	bytes  []byte
	closer func(unlink bool) error
}

// Queue is an open handle to a named megaqueue ring.
type Queue struct {
	name        string
	mode        Mode
	hdr         *header
	slots       []byte
	objectSize  uint64
	objectCount uint64
	closer      func(unlink bool) error
}

// Open opens (or, with Create, creates) a named megaqueue ring of
// objectCount slots of objectSize bytes each.
//
// Grounded on megaqueue_open: on Create, the backing region is sized
// to objectSize*objectCount plus one page for the header, pre-faulted
// up to the first 512 MB, and stamped with a fresh superblock. On
// plain open, the stored object_size/object_count are authoritative;
// a caller-supplied size or count that disagrees with them fails with
// Invalid rather than silently reinterpreting the ring.
func Open(mode Mode, name string, objectSize, objectCount uint64) (*Queue, error) {
	if name == "" || objectSize == 0 || objectCount == 0 {
		return nil, tsl.ErrBadArgs
	}
	if mode&Create != 0 {
		mode |= Write
	}

	pageSize := uint64(os.Getpagesize())
	regionSize := objectSize*objectCount + pageSize
	if regionSize > uint64(^uint(0)>>1) {
		return nil, tsl.ErrBadArgs
	}

	pr, err := platformOpen(mode, name, int(regionSize))
	if err != nil {
		return nil, err
	}
	if len(pr.bytes) != int(regionSize) {
		_ = pr.closer(false)
		return nil, tsl.ErrInvalid
	}

	hdr := (*header)(unsafe.Pointer(&pr.bytes[0]))
	q := &Queue{
		name:        name,
		mode:        mode,
		hdr:         hdr,
		slots:       pr.bytes[pageSize:],
		objectSize:  objectSize,
		objectCount: objectCount,
		closer:      pr.closer,
	}

	if mode&Create != 0 {
		prefetch := regionSize
		if prefetch > 512<<20 {
			prefetch = 512 << 20
		}
		prefaultRange(pr.bytes, prefetch)

		hdr.head.StoreRelease(0)
		hdr.tail.StoreRelease(0)
		hdr.del.StoreRelease(0)
		hdr.producerPID.StoreRelease(uint64(os.Getpid()))
		hdr.objectSize.StoreRelease(objectSize)
		hdr.objectCount.StoreRelease(objectCount)
	} else {
		if hdr.objectSize.LoadAcquire() != objectSize || hdr.objectCount.LoadAcquire() != objectCount {
			_ = q.closer(false)
			return nil, tsl.ErrInvalid
		}
	}

	return q, nil
}

// prefaultRange destructively touches one word at the start of each
// page within the first n bytes of region, forcing physical frames to
// be wired in before production begins. Mirrors
// __megaqueue_prefault_range; must not be called on pages that already
// hold live data.
func prefaultRange(region []byte, n uint64) {
	pageSize := uint64(os.Getpagesize())
	if n > uint64(len(region)) {
		n = uint64(len(region))
	}
	for off := uint64(0); off+8 <= n; off += pageSize {
		*(*uint64)(unsafe.Pointer(&region[off])) = 0xdead
	}
}

// Close unmaps the queue's region and closes its underlying handle.
// If unlink is true, the backing shared-memory object is also removed
// so no other process can open it afterward.
func (q *Queue) Close(unlink bool) error {
	return q.closer(unlink)
}

// ObjectSize returns the configured slot size in bytes.
func (q *Queue) ObjectSize() uint64 { return q.objectSize }

// ObjectCount returns the configured slot count.
func (q *Queue) ObjectCount() uint64 { return q.objectCount }

// ProducerPID returns the PID stamped into the header by whichever
// process created the queue.
func (q *Queue) ProducerPID() uint64 { return q.hdr.producerPID.LoadAcquire() }

func (q *Queue) isFull() bool {
	head := q.hdr.head.LoadAcquire()
	del := q.hdr.del.LoadAcquire()
	return del == (head+1)%q.objectCount
}

func (q *Queue) isEmpty() bool {
	tail := q.hdr.tail.LoadAcquire()
	head := q.hdr.head.LoadAcquire()
	return tail == head
}

func (q *Queue) slotAt(index uint64) []byte {
	start := index * q.objectSize
	return q.slots[start : start+q.objectSize]
}

// NextSlot returns the producer's next writable slot without
// consuming it. One slot is always left wasted to disambiguate
// empty from full, so a queue with objectCount slots holds at most
// objectCount-1 live entries.
func (q *Queue) NextSlot() ([]byte, error) {
	if q.isFull() {
		return nil, tsl.ErrNoSpace
	}
	return q.slotAt(q.hdr.head.LoadAcquire()), nil
}

// Advance commits the slot most recently returned by NextSlot,
// advancing head. Callers must ensure their write to the slot bytes
// happens-before this call.
func (q *Queue) Advance() error {
	if q.isFull() {
		return tsl.ErrNoSpace
	}
	head := q.hdr.head.LoadAcquire()
	q.hdr.head.StoreRelease((head + 1) % q.objectCount)
	return nil
}

// ReadNextSlot returns the consumer's next readable slot without
// consuming it.
func (q *Queue) ReadNextSlot() ([]byte, error) {
	if q.isEmpty() {
		return nil, tsl.ErrEmpty
	}
	return q.slotAt(q.hdr.tail.LoadAcquire()), nil
}

// ReadOnlyAdvance advances tail past the slot most recently returned
// by ReadNextSlot, leaving delete behind for a separate reclaimer.
func (q *Queue) ReadOnlyAdvance() error {
	if q.isEmpty() {
		return tsl.ErrEmpty
	}
	tail := q.hdr.tail.LoadAcquire()
	q.hdr.tail.StoreRelease((tail + 1) % q.objectCount)
	return nil
}

// DeleteAdvance advances the reclamation cursor past the slot the
// reader has already passed, making it available to the producer
// again. Fails with Empty if delete has already caught up to tail —
// there is nothing left for this reclaimer to reclaim.
//
// Mutually exclusive with ReadAdvance on a given consumer: pick one
// reclaim discipline and use it consistently.
func (q *Queue) DeleteAdvance() error {
	tail := q.hdr.tail.LoadAcquire()
	del := q.hdr.del.LoadAcquire()
	if del == tail {
		return tsl.ErrEmpty
	}
	q.hdr.del.StoreRelease((del + 1) % q.objectCount)
	return nil
}

// ReadAdvance is the legacy combined helper from the original
// two-cursor megaqueue: it advances tail and delete together, so a
// consumer using only ReadAdvance never needs a separate reclaimer.
// Mutually exclusive with DeleteAdvance on a given consumer.
func (q *Queue) ReadAdvance() error {
	if q.isEmpty() {
		return tsl.ErrEmpty
	}
	tail := q.hdr.tail.LoadAcquire()
	next := (tail + 1) % q.objectCount
	q.hdr.tail.StoreRelease(next)
	q.hdr.del.StoreRelease(next)
	return nil
}
