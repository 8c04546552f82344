// Package frame implements the physical-frame bitmap allocator: one bit per
// 4 KiB frame over a bounded physical window, first-fit with no
// backtracking. Grounded on the teacher's page.go free-list bootstrap,
// narrowed to the flat bitmap-over-range shape the driver above it needs.
package frame

import (
	"sync"

	"github.com/kestrel-os/kestrel/internal/kerr"
)

const Size = 4096

// Bitmap is a process-wide singleton tracking allocation state for frames
// in [begin, end). Frames outside that range are always treated as
// allocated. Frame 0 is conventionally reserved and never handed out.
type Bitmap struct {
	mu    sync.Mutex
	bits  []uint64
	begin uint64
	end   uint64
}

// New creates a Bitmap covering frame indices [begin, end), all initially
// free.
func New(begin, end uint64) *Bitmap {
	words := (end + 63) / 64
	return &Bitmap{bits: make([]uint64, words), begin: begin, end: end}
}

func (b *Bitmap) testBit(i uint64) bool {
	return b.bits[i/64]&(1<<(i%64)) != 0
}

func (b *Bitmap) setBit(i uint64) {
	b.bits[i/64] |= 1 << (i % 64)
}

func (b *Bitmap) clearBit(i uint64) {
	b.bits[i/64] &^= 1 << (i % 64)
}

// MarkAllocated unconditionally sets n bits starting at p, used by boot-time
// seeding to carve out regions the UEFI map reports as unusable or already
// consumed.
func (b *Bitmap) MarkAllocated(p, n uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := uint64(0); i < n; i++ {
		if p+i < uint64(len(b.bits))*64 {
			b.setBit(p + i)
		}
	}
}

// Allocate returns the index of the first of n contiguous free frames
// inside [begin, end) and marks them allocated. Linear first-fit: on
// hitting an allocated frame mid-run, the scan restarts immediately past
// it, never backtracking.
func (b *Bitmap) Allocate(n uint64) (uint64, error) {
	if n == 0 {
		return 0, kerr.New("frame.Allocate", kerr.IndexOutOfRange)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	runStart := b.begin
	runLen := uint64(0)
	for i := b.begin; i < b.end; i++ {
		if b.testBit(i) {
			runLen = 0
			runStart = i + 1
			continue
		}
		runLen++
		if runLen == n {
			for j := runStart; j < runStart+n; j++ {
				b.setBit(j)
			}
			return runStart, nil
		}
	}
	return 0, kerr.New("frame.Allocate", kerr.NoEnoughMemory)
}

// Free clears n bits starting at p. Callers must pass a pair previously
// returned by Allocate.
func (b *Bitmap) Free(p, n uint64) error {
	if p < b.begin || p+n > b.end {
		return kerr.New("frame.Free", kerr.IndexOutOfRange)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := uint64(0); i < n; i++ {
		b.clearBit(p + i)
	}
	return nil
}

// MemoryDescriptor is the subset of a UEFI memory-map entry the seeding
// pass needs. It is declared locally to avoid an import cycle with
// internal/bootcfg; callers adapt bootcfg.MemoryDescriptor to it.
type MemoryDescriptor struct {
	PhysStart uint64
	PageCount uint64
	Available bool // Conventional, BootServicesCode, or BootServicesData
}

// Seed walks a UEFI-style memory map in ascending address order and builds
// a Bitmap covering the usable range. Gaps between descriptors and
// descriptors marked unavailable are reserved; the final usable range is
// [1, availableEnd), availableEnd being the frame index just past the last
// available descriptor.
func Seed(descriptors []MemoryDescriptor) *Bitmap {
	var highestFrame uint64
	for _, d := range descriptors {
		end := d.PhysStart/Size + d.PageCount
		if end > highestFrame {
			highestFrame = end
		}
	}

	b := New(0, highestFrame)
	var availableEnd uint64

	for _, d := range descriptors {
		startFrame := d.PhysStart / Size
		if startFrame > availableEnd {
			b.MarkAllocated(availableEnd, startFrame-availableEnd)
		}
		if d.Available {
			availableEnd = startFrame + d.PageCount
		} else {
			b.MarkAllocated(startFrame, d.PageCount)
		}
	}

	b.begin = 1
	b.end = availableEnd
	b.MarkAllocated(0, 1)
	return b
}
