package gfx

import (
	"testing"
	"unsafe"
)

func newTestFramebuffer(t *testing.T, w, h int, format Format) (*Framebuffer, []byte) {
	t.Helper()
	buf := make([]byte, w*h*4)
	fb := &Framebuffer{
		Base:              unsafe.Pointer(&buf[0]),
		PixelsPerScanLine: uint32(w),
		Width:             uint32(w),
		Height:            uint32(h),
		Format:            format,
	}
	return fb, buf
}

// TestDrawPaintsOpaqueWindowPixels implements spec.md §8 property 4
// literally: a full redraw blits an opaque window's shadow-buffer pixels
// onto the screen unchanged, through BindWriteFunc's format-bound path.
func TestDrawPaintsOpaqueWindowPixels(t *testing.T) {
	fb, _ := newTestFramebuffer(t, 16, 16, FormatRGB)
	wm := NewWindowManager(fb)

	win := NewWindow(1, Rect{X: 2, Y: 2, W: 4, H: 4}, false, false, "")
	win.Context().SetRGB255(0x10, 0x20, 0x30)
	win.Context().Clear()
	wm.AddWindow(win)

	wm.Draw()

	r, g, b := ReadPixel(fb.ptrAt(3, 3), fb.Format)
	if r != 0x10 || g != 0x20 || b != 0x30 {
		t.Fatalf("screen pixel at (3,3) = (%x,%x,%x), want (10,20,30)", r, g, b)
	}
	// Outside the window's rect the screen buffer is untouched (zero).
	r, g, b = ReadPixel(fb.ptrAt(10, 10), fb.Format)
	if r != 0 || g != 0 || b != 0 {
		t.Fatalf("screen pixel outside window = (%x,%x,%x), want (0,0,0)", r, g, b)
	}
}

// TestDrawBlendsAlphaWindowOverBackground exercises the UsesAlpha branch of
// drawRectLocked against a BGR-format framebuffer, the exact combination
// the ReadPixel channel-order bug hid: a premultiplied half-alpha window
// drawn over a known background pixel must land strictly between the two,
// not just report the background back mislabeled.
func TestDrawBlendsAlphaWindowOverBackground(t *testing.T) {
	fb, _ := newTestFramebuffer(t, 8, 8, FormatBGR)
	wm := NewWindowManager(fb)

	background := NewWindow(1, Rect{X: 0, Y: 0, W: 8, H: 8}, false, false, "")
	background.Context().SetRGB255(0, 0, 0)
	background.Context().Clear()
	wm.AddWindow(background)

	overlay := NewWindow(2, Rect{X: 0, Y: 0, W: 8, H: 8}, true, false, "")
	overlay.Context().SetRGBA255(200, 200, 200, 128)
	overlay.Context().Clear()
	wm.AddWindow(overlay)

	wm.Draw()

	r, _, _ := ReadPixel(fb.ptrAt(4, 4), fb.Format)
	if r == 0 || r >= 200 {
		t.Fatalf("blended pixel r = %d, want strictly between background 0 and overlay 200", r)
	}
}

// TestDrawRectAreaClipsToGivenRect confirms a partial redraw leaves pixels
// outside the invalidated area untouched, the behavior a cursor-drag's
// DrawRectArea call after a full Draw relies on.
func TestDrawRectAreaClipsToGivenRect(t *testing.T) {
	fb, _ := newTestFramebuffer(t, 16, 16, FormatRGB)
	wm := NewWindowManager(fb)

	win := NewWindow(1, Rect{X: 0, Y: 0, W: 16, H: 16}, false, false, "")
	win.Context().SetRGB255(1, 2, 3)
	win.Context().Clear()
	wm.AddWindow(win)

	wm.DrawRectArea(Rect{X: 0, Y: 0, W: 4, H: 4})

	r, g, b := ReadPixel(fb.ptrAt(1, 1), fb.Format)
	if r != 1 || g != 2 || b != 3 {
		t.Fatalf("pixel inside redrawn rect = (%d,%d,%d), want (1,2,3)", r, g, b)
	}
	r, g, b = ReadPixel(fb.ptrAt(10, 10), fb.Format)
	if r != 0 || g != 0 || b != 0 {
		t.Fatalf("pixel outside redrawn rect = (%d,%d,%d), want untouched (0,0,0)", r, g, b)
	}
}
