package bootcfg

import (
	"testing"
	"unsafe"

	"github.com/kestrel-os/kestrel/internal/kerr"
)

func TestDecodeRejectsBadMagic(t *testing.T) {
	raw := rawConfig{Magic: 0xdeadbeef}
	_, err := Decode(unsafe.Pointer(&raw))
	if !kerr.Is(err, kerr.InvalidDescriptor) {
		t.Fatalf("Decode() error = %v, want InvalidDescriptor", err)
	}
}

func TestDecodeNilPointer(t *testing.T) {
	_, err := Decode(nil)
	if !kerr.Is(err, kerr.InvalidDescriptor) {
		t.Fatalf("Decode(nil) error = %v, want InvalidDescriptor", err)
	}
}

func TestDecodeHappyPath(t *testing.T) {
	mm := [2]MemoryDescriptor{
		{PhysStart: 0, PageCount: 1, Type: MemTypeReserved},
		{PhysStart: 0x1000, PageCount: 10, Type: MemTypeConventional},
	}
	raw := rawConfig{
		Magic:               Magic,
		Version:             1,
		FBBasePtr:           0xC0000000,
		FBPixelsPerScanLine: 1024,
		FBHorizontalRes:     1024,
		FBVerticalRes:       768,
		FBPixelFormat:       uint32(PixelFormatBGR),
		MemMapPtr:           uintptr(unsafe.Pointer(&mm[0])),
		MemMapCount:         uint64(len(mm)),
		AcpiRSDPPtr:         0x7000,
		KernelBase:          0x100000,
	}

	cfg, err := Decode(unsafe.Pointer(&raw))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if cfg.Framebuffer.HorizontalRes != 1024 || cfg.Framebuffer.VerticalRes != 768 {
		t.Errorf("framebuffer dims = %dx%d, want 1024x768", cfg.Framebuffer.HorizontalRes, cfg.Framebuffer.VerticalRes)
	}
	if cfg.Framebuffer.PixelFormat != PixelFormatBGR {
		t.Errorf("pixel format = %v, want BGR", cfg.Framebuffer.PixelFormat)
	}
	if len(cfg.MemoryMap) != 2 {
		t.Fatalf("len(MemoryMap) = %d, want 2", len(cfg.MemoryMap))
	}
	if cfg.MemoryMap[1].Type != MemTypeConventional {
		t.Errorf("MemoryMap[1].Type = %v, want Conventional", cfg.MemoryMap[1].Type)
	}
}
