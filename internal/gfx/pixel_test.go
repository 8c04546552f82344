package gfx

import (
	"testing"
	"unsafe"
)

func TestReadPixelRoundTripsRGB(t *testing.T) {
	var px uint32
	ptr := unsafe.Pointer(&px)
	writeRGB(ptr, 0x11, 0x22, 0x33)

	r, g, b := ReadPixel(ptr, FormatRGB)
	if r != 0x11 || g != 0x22 || b != 0x33 {
		t.Fatalf("ReadPixel(RGB) = (%x,%x,%x), want (11,22,33)", r, g, b)
	}
}

func TestReadPixelRoundTripsBGR(t *testing.T) {
	var px uint32
	ptr := unsafe.Pointer(&px)
	writeBGR(ptr, 0x11, 0x22, 0x33)

	r, g, b := ReadPixel(ptr, FormatBGR)
	if r != 0x11 || g != 0x22 || b != 0x33 {
		t.Fatalf("ReadPixel(BGR) = (%x,%x,%x), want (11,22,33) — channel order must survive a BGR round trip", r, g, b)
	}
}

func TestBlendOverOpaqueSourceOverwrites(t *testing.T) {
	var px uint32
	ptr := unsafe.Pointer(&px)
	write := BindWriteFunc(FormatRGB)
	writeRGB(ptr, 0xFF, 0xFF, 0xFF)

	BlendOver(ptr, write, FormatRGB, 0x10, 0x20, 0x30, 255)

	r, g, b := ReadPixel(ptr, FormatRGB)
	if r != 0x10 || g != 0x20 || b != 0x30 {
		t.Fatalf("after opaque blend = (%x,%x,%x), want (10,20,30)", r, g, b)
	}
}

func TestBlendOverZeroAlphaLeavesDestinationUnchanged(t *testing.T) {
	var px uint32
	ptr := unsafe.Pointer(&px)
	write := BindWriteFunc(FormatBGR)
	writeBGR(ptr, 0xAA, 0xBB, 0xCC)

	BlendOver(ptr, write, FormatBGR, 0x00, 0x00, 0x00, 0)

	r, g, b := ReadPixel(ptr, FormatBGR)
	if r != 0xAA || g != 0xBB || b != 0xCC {
		t.Fatalf("after zero-alpha blend = (%x,%x,%x), want unchanged (aa,bb,cc)", r, g, b)
	}
}

func TestBlendOverHalfAlphaAverages(t *testing.T) {
	var px uint32
	ptr := unsafe.Pointer(&px)
	write := BindWriteFunc(FormatRGB)
	writeRGB(ptr, 0, 0, 0)

	// Source components are premultiplied, as in the image.RGBA shadow
	// buffers: 200 at alpha 128 is stored as 100.
	BlendOver(ptr, write, FormatRGB, 100, 100, 100, 128)

	r, _, _ := ReadPixel(ptr, FormatRGB)
	// Over a black destination premultiplied-over yields the stored source
	// value, 100: half of the unpremultiplied 200, strictly between 0 and 200.
	if r == 0 || r >= 200 {
		t.Fatalf("half-alpha blend r = %d, want strictly between 0 and 200", r)
	}
}
