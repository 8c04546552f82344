// Package heap is the kernel's general-purpose allocator: an intrusive
// doubly-linked list of segments, each carrying a header immediately
// before its data, with best-fit search and address-order coalescing.
// Directly ported from the teacher's heap.go (same header shape, same
// best-fit-then-split allocation strategy, same prev/next coalescing on
// free) and extended with a boundary-aware variant the xHCI driver needs
// for rings and contexts that must not straddle a 64 KiB page boundary.
package heap

import (
	"sync"
	"unsafe"

	"github.com/kestrel-os/kestrel/internal/kerr"
)

const (
	defaultAlign = 16
	minSplit     = 2 * headerSize
)

type segment struct {
	next        *segment
	prev        *segment
	isAllocated bool
	size        uint32 // total size of this segment, including the header
}

const headerSize = uint32(unsafe.Sizeof(segment{}))

// Heap is a process-wide free-list allocator over a fixed backing region,
// established once at boot and never released.
type Heap struct {
	mu   sync.Mutex
	head *segment
}

// Init carves a new Heap out of the region [base, base+size). The caller
// owns the lifetime of that memory; Init never allocates outside it.
func Init(base unsafe.Pointer, size uint32) *Heap {
	head := (*segment)(base)
	*head = segment{size: size}
	return &Heap{head: head}
}

func alignUp(v, align uint32) uint32 {
	return (v + align - 1) &^ (align - 1)
}

// Alloc returns size bytes aligned to 16 bytes, best-fit among free
// segments, splitting the chosen segment when the leftover is large enough
// to host another header.
func (h *Heap) Alloc(size uint32) (unsafe.Pointer, error) {
	return h.AllocAligned(size, defaultAlign)
}

// AllocAligned is Alloc with an explicit alignment (must be a power of
// two).
func (h *Heap) AllocAligned(size, align uint32) (unsafe.Pointer, error) {
	if size == 0 {
		return nil, kerr.New("heap.Alloc", kerr.IndexOutOfRange)
	}
	total := alignUp(size+headerSize, align)

	h.mu.Lock()
	defer h.mu.Unlock()

	var best *segment
	bestDiff := int64(-1)
	for cur := h.head; cur != nil; cur = cur.next {
		if cur.isAllocated {
			continue
		}
		if cur.size < total {
			continue
		}
		diff := int64(cur.size) - int64(total)
		if bestDiff == -1 || diff < bestDiff {
			best = cur
			bestDiff = diff
		}
	}
	if best == nil {
		return nil, kerr.New("heap.Alloc", kerr.NoEnoughMemory)
	}

	h.maybeSplit(best, total)
	best.isAllocated = true

	return unsafe.Add(unsafe.Pointer(best), headerSize), nil
}

// maybeSplit carves a new free segment of the remainder out of seg when the
// leftover after total bytes is large enough to host another header, so
// the tail doesn't become permanently unusable.
func (h *Heap) maybeSplit(seg *segment, total uint32) {
	if seg.size-total < minSplit {
		return
	}
	newSeg := (*segment)(unsafe.Add(unsafe.Pointer(seg), total))
	*newSeg = segment{next: seg.next, prev: seg, size: seg.size - total}
	if newSeg.next != nil {
		newSeg.next.prev = newSeg
	}
	seg.next = newSeg
	seg.size = total
}

// AllocBoundary returns size bytes, aligned to align, whose entire range
// lies inside a single boundary-aligned window (boundary must be a power
// of two no smaller than size). Required because xHCI rings and device
// contexts must never straddle a 64 KiB page.
func (h *Heap) AllocBoundary(size, align, boundary uint32) (unsafe.Pointer, error) {
	if size == 0 || boundary < size {
		return nil, kerr.New("heap.AllocBoundary", kerr.IndexOutOfRange)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for cur := h.head; cur != nil; cur = cur.next {
		if cur.isAllocated {
			continue
		}
		dataStart := uint32(uintptr(unsafe.Pointer(cur))) + headerSize
		segEnd := uint32(uintptr(unsafe.Pointer(cur))) + cur.size

		candidate := alignUp(dataStart, align)
		for candidate+size <= segEnd {
			windowEnd := alignUp(candidate+1, boundary)
			if candidate+size <= windowEnd {
				return h.carveAt(cur, candidate, size)
			}
			candidate = windowEnd
			candidate = alignUp(candidate, align)
		}
	}
	return nil, kerr.New("heap.AllocBoundary", kerr.NoEnoughMemory)
}

// carveAt splits seg so that a total-sized allocated block begins exactly
// at dataStart, leaving any leading and trailing slack as new free
// segments.
func (h *Heap) carveAt(seg *segment, dataStart, size uint32) (unsafe.Pointer, error) {
	segAddr := uint32(uintptr(unsafe.Pointer(seg)))
	headerAt := dataStart - headerSize
	leading := headerAt - segAddr

	target := seg
	if leading >= minSplit || (leading > 0 && leading >= headerSize) {
		newSeg := (*segment)(unsafe.Add(unsafe.Pointer(seg), leading))
		*newSeg = segment{next: seg.next, prev: seg, size: seg.size - leading}
		if newSeg.next != nil {
			newSeg.next.prev = newSeg
		}
		seg.next = newSeg
		seg.size = leading
		target = newSeg
	} else if leading != 0 {
		// Not enough room to carve a header in front; this candidate
		// cannot be used cleanly.
		return nil, kerr.New("heap.AllocBoundary", kerr.NoEnoughMemory)
	}

	total := size + headerSize
	h.maybeSplit(target, total)
	target.isAllocated = true
	return unsafe.Add(unsafe.Pointer(target), headerSize), nil
}

// Free releases memory previously returned by Alloc/AllocAligned/
// AllocBoundary, coalescing with address-adjacent free neighbours.
func (h *Heap) Free(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	seg := (*segment)(unsafe.Add(ptr, -int(headerSize)))
	seg.isAllocated = false

	for seg.prev != nil && !seg.prev.isAllocated {
		prev := seg.prev
		prev.next = seg.next
		prev.size += seg.size
		if seg.next != nil {
			seg.next.prev = prev
		}
		seg = prev
	}
	for seg.next != nil && !seg.next.isAllocated {
		next := seg.next
		seg.size += next.size
		seg.next = next.next
		if next.next != nil {
			next.next.prev = seg
		}
	}
}
