// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tsl

import "errors"

// Result codes shared by every core component. Components return these
// sentinels (directly, or wrapped with additional context via fmt.Errorf's
// %w) instead of inventing package-local error values, so callers composing
// logalloc, megaqueue, and workerpool can use a single errors.Is vocabulary.
var (
	// ErrNoMem indicates the operation is out of resources: an allocator
	// request that cannot be satisfied, or a producer-side queue that is
	// full at the allocation layer.
	ErrNoMem = errors.New("tsl: no memory")
	// ErrBadArgs indicates a contract violation by the caller.
	ErrBadArgs = errors.New("tsl: bad arguments")
	// ErrNotFound indicates a key or id that does not resolve.
	ErrNotFound = errors.New("tsl: not found")
	// ErrBusy indicates contention or overflow: an over-referenced cell, a
	// full handoff ring, or a worker thread that is still running at
	// destroy time.
	ErrBusy = errors.New("tsl: busy")
	// ErrInvalid indicates a state or argument invariant was violated.
	ErrInvalid = errors.New("tsl: invalid")
	// ErrEmpty indicates a queue is empty on the consumer side.
	ErrEmpty = errors.New("tsl: empty")
	// ErrNoSpace indicates a ring is full on the producer side.
	ErrNoSpace = errors.New("tsl: no space")
	// ErrExist indicates an entity the caller expected to create already
	// exists. Used by surrounding layers (e.g. a config loader naming an
	// already-registered endpoint), not by the core ops in this module.
	ErrExist = errors.New("tsl: already exists")
	// ErrNotEntity indicates the supplied value does not name an entity
	// of the expected kind. Used by surrounding layers, not by core ops.
	ErrNotEntity = errors.New("tsl: not an entity")
	// ErrDone indicates an operation has nothing further to contribute.
	// Used by surrounding layers (e.g. a drain loop), not by core ops.
	ErrDone = errors.New("tsl: done")
)

// IsNoMem reports whether err is or wraps ErrNoMem.
func IsNoMem(err error) bool { return errors.Is(err, ErrNoMem) }

// IsBusy reports whether err is or wraps ErrBusy.
func IsBusy(err error) bool { return errors.Is(err, ErrBusy) }

// IsInvalid reports whether err is or wraps ErrInvalid.
func IsInvalid(err error) bool { return errors.Is(err, ErrInvalid) }

// IsEmpty reports whether err is or wraps ErrEmpty.
func IsEmpty(err error) bool { return errors.Is(err, ErrEmpty) }

// IsNoSpace reports whether err is or wraps ErrNoSpace.
func IsNoSpace(err error) bool { return errors.Is(err, ErrNoSpace) }

// IsWouldBlock reports whether err is a control-flow signal meaning the
// operation cannot proceed right now — ErrNoSpace on the producer side or
// ErrEmpty on the consumer side — as opposed to a genuine failure. Mirrors
// the teacher package's IsWouldBlock, generalized to the two distinct
// full/empty sentinels this module's components use.
func IsWouldBlock(err error) bool {
	return errors.Is(err, ErrNoSpace) || errors.Is(err, ErrEmpty)
}
