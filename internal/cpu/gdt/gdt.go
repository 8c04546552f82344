// Package gdt installs the flat 64-bit code/data global descriptor table
// the kernel runs under. Grounded on original_source/kernel/src/segment.rs
// (descriptor bit layout, long-mode/granularity flags) with the
// architecture access folded through internal/asm/amd64 instead of raw
// asm! blocks.
package gdt

import (
	"unsafe"

	"github.com/kestrel-os/kestrel/internal/asm/amd64"
)

// Selector indices into the GDT, in units of 8 bytes.
const (
	SelectorNull     = 0x00
	SelectorKernelCS = 0x08
	SelectorKernelDS = 0x10
	SelectorUserCS   = 0x18 // present for STAR-MSR selector-pair arithmetic; unused, no user mode
	SelectorUserDS   = 0x20
)

type descriptorType uint8

const (
	typeReadWrite  descriptorType = 2
	typeExecuteRead descriptorType = 10
)

// descriptor is a single 8-byte GDT entry, laid out field-by-field to match
// the hardware format rather than packed through reflection — there are
// only ever five of these and they're set once.
type descriptor uint64

func makeDescriptor(ty descriptorType, dpl uint64, longMode, defaultOpSize bool) descriptor {
	var d uint64
	// limit_low=0xffff, base=0, granularity+limit_high=0xf -> 4GiB w/ 4K granularity
	d |= 0xffff                  // limit_low
	d |= uint64(ty&0xf) << 40    // type
	d |= 1 << 44                 // system_segment (code/data, not a system descriptor)
	d |= (dpl & 0x3) << 45       // DPL
	d |= 1 << 47                 // present
	d |= 0xf << 48               // limit_high
	d |= 1 << 55                 // granularity
	if longMode {
		d |= 1 << 53
	}
	if defaultOpSize {
		d |= 1 << 54
	}
	return descriptor(d)
}

// Table is the five-entry flat GDT: null, kernel code, kernel data, and an
// unused user code/data pair kept only so STAR-MSR-style selector
// arithmetic (cs+8 == ss) holds even though user mode is never entered.
type Table [5]descriptor

var table Table

type pseudoDescriptor struct {
	limit uint16
	base  uintptr
}

// Install builds the flat GDT and loads it with LGDT. It does not reload
// the segment registers; they keep the selectors they held before the call.
func Install() {
	table[0] = 0
	table[SelectorKernelCS/8] = makeDescriptor(typeExecuteRead, 0, true, false)
	table[SelectorKernelDS/8] = makeDescriptor(typeReadWrite, 0, false, true)
	table[SelectorUserCS/8] = makeDescriptor(typeExecuteRead, 3, true, false)
	table[SelectorUserDS/8] = makeDescriptor(typeReadWrite, 3, false, true)

	desc := pseudoDescriptor{
		limit: uint16(unsafe.Sizeof(table) - 1),
		base:  uintptr(unsafe.Pointer(&table)),
	}
	amd64.Lgdt(unsafe.Pointer(&desc))
}
