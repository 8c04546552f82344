// Package bootcfg decodes the boot-configuration block the UEFI loader
// hands to the kernel entry point. The loader itself — file I/O, ELF
// parsing, relocation, and the hand-off sequence — is an external
// collaborator and is not implemented here; this package only consumes the
// fixed C-layout struct it produces.
package bootcfg

import (
	"unsafe"

	"github.com/kestrel-os/kestrel/internal/kerr"
)

// Magic identifies a well-formed boot-configuration block. The kernel
// refuses to continue booting from a mismatched loader build.
const Magic uint64 = 0x4b45535452454c30 // "KESTREL0"

// PixelFormat selects the in-memory channel order of the framebuffer.
type PixelFormat uint32

const (
	PixelFormatRGB PixelFormat = 0
	PixelFormatBGR PixelFormat = 1
)

// MemoryType mirrors the subset of UEFI memory descriptor types the frame
// allocator's seeding pass cares about.
type MemoryType uint32

const (
	MemTypeReserved MemoryType = iota
	MemTypeLoaderCode
	MemTypeLoaderData
	MemTypeBootServicesCode
	MemTypeBootServicesData
	MemTypeRuntimeServicesCode
	MemTypeRuntimeServicesData
	MemTypeConventional
	MemTypeUnusable
	MemTypeACPIReclaim
	MemTypeACPINVS
	MemTypeMMIO
	MemTypeMMIOPortSpace
	MemTypePalCode
)

// Framebuffer describes the linear framebuffer handed off by the loader.
type Framebuffer struct {
	BasePtr          uintptr
	PixelsPerScanLine uint32
	HorizontalRes    uint32
	VerticalRes      uint32
	PixelFormat      PixelFormat
}

// MemoryDescriptor is one entry of the UEFI memory map, as laid out by the
// loader for the kernel to walk.
type MemoryDescriptor struct {
	PhysStart  uint64
	PageCount  uint64
	Type       MemoryType
	Attributes uint64
}

// rawConfig mirrors the sysv64 C struct the loader constructs. Field order
// and sizes must match exactly; this is the one place in the kernel where
// layout is dictated by an external, non-Go producer.
type rawConfig struct {
	Magic   uint64
	Version uint64

	FBBasePtr          uintptr
	FBPixelsPerScanLine uint32
	FBHorizontalRes    uint32
	FBVerticalRes      uint32
	FBPixelFormat      uint32

	MemMapPtr   uintptr
	MemMapCount uint64

	AcpiRSDPPtr uintptr
	KernelBase  uintptr

	SymtabPtr   uintptr
	SymtabCount uint64
	StrtabPtr   uintptr
}

// Config is the decoded, Go-native view of the boot-configuration block.
type Config struct {
	Version     uint64
	Framebuffer Framebuffer
	MemoryMap   []MemoryDescriptor
	AcpiRSDPPtr uintptr
	KernelBase  uintptr
	SymtabPtr   uintptr
	SymtabCount uint64
	StrtabPtr   uintptr
}

// Decode interprets ptr as a pointer to the loader's boot-configuration
// block and returns a Go view over it. It validates Magic before touching
// any other field; a mismatch is the only expected failure mode here, and
// callers are expected to panic immediately rather than attempt recovery.
func Decode(ptr unsafe.Pointer) (*Config, error) {
	if ptr == nil {
		return nil, kerr.New("bootcfg.Decode", kerr.InvalidDescriptor)
	}
	raw := (*rawConfig)(ptr)
	if raw.Magic != Magic {
		return nil, kerr.New("bootcfg.Decode", kerr.InvalidDescriptor)
	}

	cfg := &Config{
		Version: raw.Version,
		Framebuffer: Framebuffer{
			BasePtr:           raw.FBBasePtr,
			PixelsPerScanLine: raw.FBPixelsPerScanLine,
			HorizontalRes:     raw.FBHorizontalRes,
			VerticalRes:       raw.FBVerticalRes,
			PixelFormat:       PixelFormat(raw.FBPixelFormat),
		},
		AcpiRSDPPtr: raw.AcpiRSDPPtr,
		KernelBase:  raw.KernelBase,
		SymtabPtr:   raw.SymtabPtr,
		SymtabCount: raw.SymtabCount,
		StrtabPtr:   raw.StrtabPtr,
	}

	if raw.MemMapCount > 0 {
		entries := (*[1 << 20]MemoryDescriptor)(unsafe.Pointer(raw.MemMapPtr))[:raw.MemMapCount:raw.MemMapCount]
		cfg.MemoryMap = entries
	}

	return cfg, nil
}
