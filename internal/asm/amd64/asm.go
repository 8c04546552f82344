// Package amd64 declares the handful of privileged instructions the kernel
// needs and that Go cannot express directly: port I/O, table loads, and
// control-register access. Each function is a body-less declaration backed
// by asm_amd64.s, following the same declare-in-Go/define-in-asm split the
// teacher uses for its system-register accessors.
package amd64

import "unsafe"

//go:noescape
func Inb(port uint16) uint8

//go:noescape
func Inw(port uint16) uint16

//go:noescape
func Inl(port uint16) uint32

//go:noescape
func Outb(port uint16, value uint8)

//go:noescape
func Outw(port uint16, value uint16)

//go:noescape
func Outl(port uint16, value uint32)

// Hlt halts the CPU until the next interrupt.
//
//go:noescape
func Hlt()

// Cli disables maskable interrupts.
//
//go:noescape
func Cli()

// Sti enables maskable interrupts.
//
//go:noescape
func Sti()

// Lgdt loads the GDTR from a 10-byte pseudo-descriptor (2-byte limit,
// 8-byte base).
//
//go:noescape
func Lgdt(descriptor unsafe.Pointer)

// Lidt loads the IDTR from a 10-byte pseudo-descriptor.
//
//go:noescape
func Lidt(descriptor unsafe.Pointer)

// Invlpg invalidates the TLB entry covering addr.
//
//go:noescape
func Invlpg(addr uintptr)

// Rdmsr reads model-specific register msr.
//
//go:noescape
func Rdmsr(msr uint32) uint64

// Wrmsr writes value to model-specific register msr.
//
//go:noescape
func Wrmsr(msr uint32, value uint64)

// Rdtsc returns the processor timestamp counter.
//
//go:noescape
func Rdtsc() uint64

// ReadCR3 returns the current page-table base register.
//
//go:noescape
func ReadCR3() uintptr

// WriteCR3 installs a new page-table base register, flushing the TLB.
//
//go:noescape
func WriteCR3(base uintptr)

// Pause emits the PAUSE instruction, a hint for spin-wait loops.
//
//go:noescape
func Pause()
