// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package logalloc is a log-structured, reference-counted region
// allocator for variable-size objects.
//
// Grounded on the original C source's tsl/alloc/logalloc.c: a single
// contiguous region is carved into fixed-size cells, a run of one or
// more cells is handed out per allocation, and a monotonically
// advancing log head scans forward for free runs, wrapping to the
// start of the region when it runs off the end. Reclaimed cells are
// never compacted; they are simply left behind for the log head to
// walk over again once every live reference is dropped.
//
// Cell headers. The original packs a run's header into 2 bytes
// (an 8-bit run length and an 8-bit refcount) immediately before the
// run's payload, so pointer arithmetic alone recovers the header from
// a user pointer. Go has no portable 8-bit atomic and no pointer-minus
// trick worth reaching for unsafe over, so this package keeps cell
// metadata in a parallel, Go-native header array instead of inline
// with the payload bytes — a [Ptr] is an (arena, cell index) pair
// rather than a raw pointer. The cell-size rounding formula still adds
// the original's 2-byte header cost before rounding up to a power of
// two, so cell counts and byte capacities match the original's worked
// examples exactly even though no payload byte is actually spent on
// the header in this implementation.
package logalloc

import (
	"math/bits"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
	"code.hybscloud.com/tsl"
)

// headerOverheadBytes is the original's packed (nr_cells, refcnt)
// header size, used only to reproduce its cell-size rounding
// arithmetic; see the package doc comment.
const headerOverheadBytes = 2

// maxRunCells is the largest run length a single cell header can
// describe (an 8-bit run-length field), matching the original's
// uint8_t nr_cells.
const maxRunCells = 255

// cellHeader describes the run of cells starting at a given index.
//
// nrCells is written only by the arena's owning goroutine (Alloc,
// PrepareRegion, FinalizeRegion all assume single-writer discipline,
// per spec's concurrency model) so it needs no atomic type. refcnt is
// read and written from any goroutine via Ptr.Reference/Ptr.Free, so
// it is backed by an atomic word.
type cellHeader struct {
	// nrCells is the run length in cells. Zero is a sentinel meaning
	// "free from here to the end of the region" — used instead of a
	// literal count whenever a free run's end coincides with the
	// physical end of the region, so the field never has to represent
	// a run longer than 255 cells.
	nrCells uint8
	refcnt  atomix.Int32
}

// Params configures an Arena's interaction with the outside world.
type Params struct {
	// Alloc obtains the backing bytes for a new arena's region. When
	// nil, DefaultParams' allocator (plain make([]byte, n)) is used.
	Alloc func(n int) ([]byte, error)
	// Free releases a region's backing bytes when an Arena is deleted.
	// When nil, DefaultParams' no-op (let the garbage collector
	// reclaim it) is used.
	Free func(region []byte) error
	// OnRefcntOverflow is invoked when a reference would push a cell's
	// refcnt past its legitimate live range (see [Ptr.Reference]).
	// Overflow is meant to be unreachable in well-behaved programs; the
	// default policy aborts the process. Tests that want to exercise
	// the boundary behavior described for [Ptr.Reference] can install a
	// callback that simply returns, allowing the cell to settle at the
	// trap floor instead of terminating.
	OnRefcntOverflow func(p Ptr)
	// MaxAllocBytes caps a single allocation or prepared-region
	// request. Zero means unlimited.
	MaxAllocBytes int
}

// DefaultParams returns the Params an Arena uses when given a nil
// Params at construction: plain heap allocation, GC-managed release,
// and an aborting overflow policy.
func DefaultParams() Params {
	return Params{
		Alloc: func(n int) ([]byte, error) { return make([]byte, n), nil },
		Free:  func([]byte) error { return nil },
		OnRefcntOverflow: func(p Ptr) {
			panic("logalloc: refcnt overflow on cell " + itoa(p.cell))
		},
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Arena is a log-structured allocator over a single fixed-size region.
//
// Not safe for concurrent Alloc/PrepareRegion/FinalizeRegion calls:
// exactly one goroutine is expected to own allocation (mirroring the
// original's single-threaded producer assumption). [Ptr.Reference] and
// [Ptr.Free] are safe to call concurrently from any goroutine.
type Arena struct {
	region   []byte
	headers  []cellHeader
	cellSize int
	nrCells  int
	logHead  int
	params   Params
}

// New creates an Arena holding nrCells cells, each large enough to
// hold userCellSize bytes of payload plus the original's 2-byte header
// bookkeeping cost, rounded up to a power of two.
//
// If params is nil, DefaultParams is used.
func New(userCellSize, nrCells int, params *Params) (*Arena, error) {
	if userCellSize <= 0 || nrCells <= 0 {
		return nil, tsl.ErrBadArgs
	}
	p := DefaultParams()
	if params != nil {
		if params.Alloc != nil {
			p.Alloc = params.Alloc
		}
		if params.Free != nil {
			p.Free = params.Free
		}
		if params.OnRefcntOverflow != nil {
			p.OnRefcntOverflow = params.OnRefcntOverflow
		}
		p.MaxAllocBytes = params.MaxAllocBytes
	}

	cellSize := roundUpPow2(userCellSize + headerOverheadBytes)
	region, err := p.Alloc(cellSize * nrCells)
	if err != nil {
		return nil, err
	}
	if len(region) != cellSize*nrCells {
		return nil, tsl.ErrBadArgs
	}

	a := &Arena{
		region:   region,
		headers:  make([]cellHeader, nrCells),
		cellSize: cellSize,
		nrCells:  nrCells,
		logHead:  0,
		params:   p,
	}
	// The whole region starts as a single free run spanning to the end;
	// the sentinel form means it never matters that nrCells may exceed
	// the 8-bit run-length budget.
	a.headers[0] = cellHeader{nrCells: 0}
	return a, nil
}

// Delete releases the arena's backing region via its configured Free.
// The Arena must not be used afterward.
func (a *Arena) Delete() error {
	return a.params.Free(a.region)
}

// CellSize returns the rounded per-cell byte size.
func (a *Arena) CellSize() int { return a.cellSize }

// NrCells returns the total number of cells in the region.
func (a *Arena) NrCells() int { return a.nrCells }

// Ptr is an opaque handle to a live allocation: the Go analogue of the
// original's user pointer, since Go cannot recover an owning arena and
// cell index from pointer arithmetic alone.
type Ptr struct {
	arena *Arena
	cell  int
}

// IsZero reports whether p is the zero Ptr (never returned by a
// successful call in this package, useful for callers holding Ptr in
// a struct field before an allocation has happened).
func (p Ptr) IsZero() bool { return p.arena == nil }

// Bytes returns the payload bytes for the cells backing this
// allocation: reqCells*cellSize bytes, exactly the capacity reported
// at allocation time.
func (p Ptr) Bytes() []byte {
	h := &p.arena.headers[p.cell]
	n := int(h.nrCells) * p.arena.cellSize
	start := p.cell * p.arena.cellSize
	return p.arena.region[start : start+n]
}

func ceilDiv(n, d int) int {
	return (n + d - 1) / d
}

func roundUpPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// writeFreeRun stamps the header(s) describing a free run of length
// cells starting at cell index start, segmenting into ≤255-cell chunks
// when the run doesn't reach the physical end of the region, and using
// the zero-length sentinel when it does. Positions are always derived
// from the caller-supplied (start, length) pair rather than from
// a.logHead, so this helper is safe to call both when marking the
// remainder after a commit and when marking a skipped tail during a
// wrap — the two cases the original's commented "log_head index
// arithmetic" open question warns about conflating.
func (a *Arena) writeFreeRun(start, length int) {
	if length <= 0 {
		return
	}
	if start+length == a.nrCells {
		a.headers[start].nrCells = 0
		a.headers[start].refcnt.StoreRelease(0)
		return
	}
	cur, remaining := start, length
	for remaining > 0 {
		chunk := remaining
		if chunk > maxRunCells {
			chunk = maxRunCells
		}
		a.headers[cur].nrCells = uint8(chunk)
		a.headers[cur].refcnt.StoreRelease(0)
		cur += chunk
		remaining -= chunk
	}
}

// scanFree walks forward from start accumulating the length of a
// contiguous free run, stopping as soon as it has found at least want
// cells, or as soon as it hits a live (refcnt != 0) cell. limit bounds
// how far from start the scan may walk (normally nrCells-start) — the
// caller is responsible for only scanning within a range it has
// already established is free-run territory.
//
// Returns the number of free cells found (which may exceed want) and
// whether a free run of at least want cells was found before hitting
// a live cell or the limit.
func (a *Arena) scanFree(start, want, limit int) (found int, ok bool) {
	i := 0
	for i < want && i < limit {
		idx := start + i
		h := &a.headers[idx]
		if h.refcnt.LoadAcquire() != 0 {
			return i, false
		}
		if h.nrCells == 0 {
			// Sentinel: free from here to the end of the region.
			return limit, true
		}
		i += int(h.nrCells)
	}
	if i >= want {
		return i, true
	}
	return i, false
}

// Alloc reserves a run of cells large enough to hold size bytes and
// returns a handle to it with refcnt 1.
//
// Grounded on logalloc_alloc: compute the required cell count, try to
// satisfy it starting from the current log head, wrapping to cell 0 if
// the request cannot possibly fit between the log head and the
// physical end of the region. Unlike the original, this does not
// special-case "the cell at the literal (pre-wrap) log head is
// occupied" as an immediate failure independent of whether wrapping
// would succeed — the original's invariant that log_head always names
// either a free run or the head of a live run already makes that check
// redundant with the general scan below, and treating it as
// independent can reject a request wrapping to 0 could have satisfied.
func (a *Arena) Alloc(size int) (Ptr, error) {
	if size <= 0 {
		return Ptr{}, tsl.ErrBadArgs
	}
	if a.params.MaxAllocBytes > 0 && size > a.params.MaxAllocBytes {
		return Ptr{}, tsl.ErrNoMem
	}
	reqCells := ceilDiv(size, a.cellSize)
	if reqCells > maxRunCells || reqCells > a.nrCells {
		return Ptr{}, tsl.ErrNoMem
	}

	start := a.logHead
	limit := a.nrCells - a.logHead
	if limit < reqCells {
		start = 0
		limit = a.nrCells
	}

	found, ok := a.scanFree(start, reqCells, limit)
	if !ok {
		return Ptr{}, tsl.ErrNoMem
	}

	head := start
	a.headers[head].nrCells = uint8(reqCells)
	a.headers[head].refcnt.StoreRelease(1)
	a.logHead = (head + reqCells) % a.nrCells

	if remainder := found - reqCells; remainder > 0 {
		a.writeFreeRun(head+reqCells, remainder)
	}
	return Ptr{arena: a, cell: head}, nil
}

// Reference atomically increments the cell's reference count.
//
// Live refcounts occupy 1..255; 0 means the cell has already been
// fully freed and 255 is the overflow trap floor. A call that finds
// refcnt already 0 or 255 fails with Busy, leaving the value
// unchanged. A call that would take 254 to 255 first invokes the
// arena's OnRefcntOverflow policy (default: abort the process); if
// that callback returns instead of aborting, the increment completes
// and the cell settles at 255, after which further Reference calls
// fail with Busy per the boundary behavior above.
func (p Ptr) Reference() error {
	h := &p.arena.headers[p.cell]
	var w spin.Wait
	for {
		cur := h.refcnt.LoadAcquire()
		if cur == 0 || cur == maxRunCells {
			return tsl.ErrBusy
		}
		next := cur + 1
		if next == maxRunCells {
			p.arena.params.OnRefcntOverflow(p)
		}
		if h.refcnt.CompareAndSwapAcqRel(cur, next) {
			return nil
		}
		w.Once()
	}
}

// Free atomically decrements the cell's reference count. A call on a
// cell whose refcnt is already 0 fails with Invalid. Dropping the
// count to 0 does not reclaim the cells: they are left for the log
// head to walk over and reuse once it scans past them again.
func (p Ptr) Free() error {
	h := &p.arena.headers[p.cell]
	var w spin.Wait
	for {
		cur := h.refcnt.LoadAcquire()
		if cur == 0 {
			return tsl.ErrInvalid
		}
		if h.refcnt.CompareAndSwapAcqRel(cur, cur-1) {
			return nil
		}
		w.Once()
	}
}

// PrepareRegion reserves up to 255 cells able to hold sizeHint bytes
// and returns a handle plus the exact byte capacity reserved
// (cellsReserved*cellSize, which may exceed sizeHint — callers stream
// into the returned bytes and report back how much they actually used
// via FinalizeRegion). The reservation starts with refcnt 0: it is not
// yet a live allocation until finalized.
//
// Grounded on logalloc_prepare_region. The original computes whether
// the request fits between the current log head and the physical end
// of the region, and contains a branch — "if avail_cells < nr_cells"
// nested inside code already guarded by avail_cells >= nr_cells — that
// can never execute. The evident intent, matching Alloc's own
// wrap-on-insufficient-room behavior, is to fall back to scanning from
// cell 0 whenever the request cannot fit from the current log head;
// that is what this implementation does instead of reproducing the
// dead branch.
func (a *Arena) PrepareRegion(sizeHint int) (Ptr, int, error) {
	if sizeHint <= 0 {
		return Ptr{}, 0, tsl.ErrBadArgs
	}
	if a.params.MaxAllocBytes > 0 && sizeHint > a.params.MaxAllocBytes {
		return Ptr{}, 0, tsl.ErrNoMem
	}
	reqCells := ceilDiv(sizeHint, a.cellSize)
	if reqCells > maxRunCells {
		reqCells = maxRunCells
	}

	start := a.logHead
	limit := a.nrCells - a.logHead
	if limit < reqCells {
		start = 0
		limit = a.nrCells
	}
	found, ok := a.scanFree(start, reqCells, limit)
	if !ok {
		return Ptr{}, 0, tsl.ErrNoMem
	}

	head := start
	a.headers[head].nrCells = uint8(reqCells)
	a.headers[head].refcnt.StoreRelease(0)
	a.logHead = head

	if remainder := found - reqCells; remainder > 0 {
		a.writeFreeRun(head+reqCells, remainder)
	}
	return Ptr{arena: a, cell: head}, reqCells * a.cellSize, nil
}

// FinalizeRegion commits a region previously returned by PrepareRegion,
// trimming it to the cells actually needed for usedBytes and setting
// its refcnt to 1 — a live allocation from here on, indistinguishable
// from one returned by Alloc. Cells beyond what usedBytes requires are
// returned to the free pool.
//
// Grounded on logalloc_finalize_region. The original's exact-fit path
// ("ch->nr_cells == nr_cells_used") jumps to its cleanup label before
// reaching the line that sets refcnt to 1, so a region finalized with
// no leftover cells is committed with refcnt still 0 — silently
// unreferenced and eligible for the log head to overwrite even though
// the caller believes it holds a live allocation. Every documented
// contract for this operation (and for Reference/Free's refcnt
// semantics generally) says a finalized region is live; this
// implementation always sets refcnt to 1, exact fit or not.
func (a *Arena) FinalizeRegion(p Ptr, usedBytes int) error {
	if usedBytes < 0 {
		return tsl.ErrBadArgs
	}
	h := &a.headers[p.cell]
	nrCellsUsed := ceilDiv(usedBytes, a.cellSize)
	if usedBytes == 0 {
		nrCellsUsed = 0
	}
	if nrCellsUsed > int(h.nrCells) {
		return tsl.ErrInvalid
	}

	// Advance the log head past the committed cells, not the reserved
	// run: the trimmed remainder below is freed, and logHead must land
	// on it (or on p.cell itself, when nothing was used) so the next
	// scan can reclaim it instead of skipping over it forever.
	a.logHead = (p.cell + nrCellsUsed) % a.nrCells

	if nrCellsUsed == int(h.nrCells) {
		h.refcnt.StoreRelease(1)
		return nil
	}

	remainder := int(h.nrCells) - nrCellsUsed
	if nrCellsUsed == 0 {
		// The caller used nothing: there is no live head cell to keep,
		// the whole reservation returns to the free pool.
		a.writeFreeRun(p.cell, remainder)
		return nil
	}
	h.nrCells = uint8(nrCellsUsed)
	h.refcnt.StoreRelease(1)
	a.writeFreeRun(p.cell+nrCellsUsed, remainder)
	return nil
}
