// Package kpanic is the panic path spec.md §7 names: disable interrupts,
// walk the RBP chain to resolve return addresses against the loader's
// symtab/strtab, dump to serial, and render to the framebuffer through a
// writer that depends on neither the allocator nor the window manager
// (both may be the thing that panicked). Grounded directly on
// original_source/kernel/src/{panic,backtrace}.rs.
package kpanic

import (
	"unsafe"

	"github.com/kestrel-os/kestrel/internal/asm/amd64"
	"github.com/kestrel-os/kestrel/internal/klog"
)

type elf64Sym struct {
	Name   uint32
	Info   uint8
	Other  uint8
	Shndx  uint16
	Value  uint64
	Size   uint64
}

// SymbolTable resolves a return address to a function name using the
// loader-supplied ELF symtab/strtab, exactly as backtrace.rs's
// init_backtrace/print_fn_name do.
type SymbolTable struct {
	base       uint64
	symtabPtr  uintptr
	symtabNum  int
	strtabPtr  uintptr
}

var table SymbolTable

// Init records the loader-handed symbol table; a zero base or nil
// pointer leaves the table uninitialized so Resolve silently no-ops,
// matching backtrace.rs's defensive early return.
func Init(base uint64, symtabPtr uintptr, symtabNum int, strtabPtr uintptr) {
	if base == 0 || symtabPtr == 0 || symtabNum == 0 || strtabPtr == 0 {
		return
	}
	table = SymbolTable{base: base, symtabPtr: symtabPtr, symtabNum: symtabNum, strtabPtr: strtabPtr}
}

// Resolve returns the name of the function containing rip, or "" if the
// table is uninitialized or no symbol covers the address.
func Resolve(rip uint64) string {
	if table.symtabPtr == 0 {
		return ""
	}
	syms := unsafe.Slice((*elf64Sym)(unsafe.Pointer(table.symtabPtr)), table.symtabNum)
	for _, sym := range syms {
		start := table.base + sym.Value
		if start <= rip && rip < start+sym.Size {
			return cString(table.strtabPtr + uintptr(sym.Name))
		}
	}
	return ""
}

func cString(ptr uintptr) string {
	p := (*byte)(unsafe.Pointer(ptr))
	n := 0
	for *(*byte)(unsafe.Add(unsafe.Pointer(p), n)) != 0 {
		n++
	}
	return unsafe.String(p, n)
}

// FrameWriter is the minimal framebuffer writer the panic path uses
// instead of the full compositor — no allocation, no window manager
// lock, just direct pixel writes into a pre-mapped linear buffer, per
// panic.rs's PanicWriter.
type FrameWriter struct {
	Base              unsafe.Pointer
	PixelsPerScanLine uint32
	HorizontalRes     uint32
	VerticalRes       uint32
	x, y              uint32
}

func (w *FrameWriter) WriteString(s string) {
	if w.Base == nil {
		return
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\n' {
			w.x = 0
			w.y += 16
			continue
		}
		if w.HorizontalRes < w.x+8 {
			w.x = 0
			w.y += 16
		}
		if w.VerticalRes < w.y+16 {
			return
		}
		w.drawGlyph(c)
		w.x += 8
	}
}

func (w *FrameWriter) drawGlyph(c byte) {
	bitmap := glyph8x8(c)
	for row := 0; row < 8; row++ {
		rowBits := bitmap[row]
		for col := 0; col < 8; col++ {
			on := rowBits&(1<<uint(7-col)) != 0
			var v uint32
			if on {
				v = 0xFFFFFFFF
			}
			offset := uintptr(w.PixelsPerScanLine)*uintptr(w.y+uint32(row))*4 + uintptr(w.x+uint32(col))*4
			*(*uint32)(unsafe.Add(w.Base, offset)) = v
		}
	}
}

// Walk walks the RBP chain from the current frame, calling visit(retAddr)
// for each saved return address until a zero frame pointer terminates
// the chain, mirroring backtrace.rs's print_backtrace loop exactly
// (`while *rbp != 0 { ret = *(rbp+8); rbp = *rbp }`).
func Walk(rbp uintptr, visit func(retAddr uint64)) {
	for rbp != 0 {
		saved := *(*uintptr)(unsafe.Pointer(rbp))
		if saved == 0 {
			return
		}
		ret := *(*uint64)(unsafe.Pointer(rbp + 8))
		visit(ret)
		rbp = saved
	}
}

// Handle is the top-level panic entry point: disable interrupts (the
// panic path never re-enables them — there is no recovering from a
// kernel panic), walk the backtrace to serial, log the message, render
// it to the framebuffer if one was provided, and halt forever.
func Handle(log *klog.Logger, fw *FrameWriter, rbp uintptr, message string) {
	amd64.Cli()

	Walk(rbp, func(ret uint64) {
		name := Resolve(ret)
		if log != nil {
			if name != "" {
				log.Errorf("  at 0x%x (%s)", ret, name)
			} else {
				log.Errorf("  at 0x%x", ret)
			}
		}
	})

	if log != nil {
		log.Errorf("panic: %s", message)
	}
	if fw != nil {
		fw.WriteString("panic: ")
		fw.WriteString(message)
	}

	for {
		amd64.Hlt()
	}
}
