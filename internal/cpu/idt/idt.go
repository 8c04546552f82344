// Package idt builds the 256-entry interrupt descriptor table and loads
// it. Grounded on original_source/kernel/src/interrupt.rs for the gate
// shape (offset split across three fields, attr word, present/DPL/IST),
// with the attribute byte packed through internal/bitfield instead of
// hand-assembled shifts, since that layout is one the kernel chooses
// itself (unlike a TRB's hardware-fixed layout).
package idt

import (
	"unsafe"

	"github.com/kestrel-os/kestrel/internal/asm/amd64"
	"github.com/kestrel-os/kestrel/internal/bitfield"
	"github.com/kestrel-os/kestrel/internal/cpu/gdt"
)

// Vectors the kernel programs explicitly.
const (
	VectorXHCI  = 0x40
	VectorTimer = 0x41
)

type gateType uint8

const (
	GateInterrupt gateType = 14
	GateTrap      gateType = 15
)

// attr packs the same fields original_source's InterruptDescriptorAttr
// does: IST index, gate type, DPL, and the present bit.
type attr struct {
	IST     uint8 `bitfield:",3"`
	Zero    uint8 `bitfield:",5"`
	Type    uint8 `bitfield:",4"`
	Zero2   uint8 `bitfield:",1"`
	DPL     uint8 `bitfield:",2"`
	Present bool  `bitfield:",1"`
}

func packAttr(ty gateType, dpl uint8, present bool, ist uint8) uint16 {
	v, _ := bitfield.Pack(attr{IST: ist, Type: uint8(ty), DPL: dpl, Present: present}, &bitfield.Config{NumBits: 16})
	return uint16(v)
}

// gate is the 16-byte hardware interrupt-gate descriptor.
type gate struct {
	offsetLow  uint16
	selector   uint16
	attr       uint16
	offsetMid  uint16
	offsetHigh uint32
	reserved   uint32
}

// Table is the process-wide 256-entry IDT, a once-init singleton per
// spec.md §9's global-mutable-state guidance.
type Table struct {
	entries [256]gate
}

var table Table

// SetEntry installs a single gate, following the contract named in spec.md
// §4.E: set_idt_entry(vector, attr, handler_addr, cs).
func SetEntry(vector uint8, ty gateType, dpl uint8, present bool, ist uint8, handler uintptr, cs uint16) {
	g := &table.entries[vector]
	g.attr = packAttr(ty, dpl, present, ist)
	g.offsetLow = uint16(handler)
	g.offsetMid = uint16(handler >> 16)
	g.offsetHigh = uint32(handler >> 32)
	g.selector = cs
}

type pseudoDescriptor struct {
	limit uint16
	base  uintptr
}

// Load issues the architectural IDT load.
func Load() {
	desc := pseudoDescriptor{
		limit: uint16(unsafe.Sizeof(table.entries) - 1),
		base:  uintptr(unsafe.Pointer(&table.entries[0])),
	}
	amd64.Lidt(unsafe.Pointer(&desc))
}

// InstallDefaults wires the two vectors spec.md §4.E names: xHCI's MSI
// target and the LAPIC timer, both as present interrupt gates running on
// the kernel code selector with no dedicated IST stack.
func InstallDefaults(xhciHandler, timerHandler uintptr) {
	SetEntry(VectorXHCI, GateInterrupt, 0, true, 0, xhciHandler, gdt.SelectorKernelCS)
	SetEntry(VectorTimer, GateInterrupt, 0, true, 0, timerHandler, gdt.SelectorKernelCS)
	Load()
}
