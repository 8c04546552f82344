package console

import (
	"testing"
	"unsafe"

	"github.com/kestrel-os/kestrel/internal/gfx"
)

func newTestConsole(t *testing.T, cols, rows int) (*Console, *gfx.WindowManager) {
	t.Helper()
	w, h := cols*charWidth, rows*charHeight
	buf := make([]byte, w*h*4)
	fb := &gfx.Framebuffer{
		Base:              unsafe.Pointer(&buf[0]),
		PixelsPerScanLine: uint32(w),
		Width:             uint32(w),
		Height:            uint32(h),
		Format:            gfx.FormatRGB,
	}
	wm := gfx.NewWindowManager(fb)
	win := gfx.NewWindow(1, gfx.Rect{X: 0, Y: 0, W: w, H: h}, false, false, "")
	wm.AddWindow(win)
	return New(wm, win, [3]uint8{255, 255, 255}, [3]uint8{0, 0, 0}), wm
}

func TestWriteByteAdvancesCursor(t *testing.T) {
	c, _ := newTestConsole(t, 10, 4)
	c.WriteByte('h')
	c.WriteByte('i')
	if c.cursorX != 2 {
		t.Fatalf("cursorX = %d, want 2", c.cursorX)
	}
}

func TestNewlineResetsColumn(t *testing.T) {
	c, _ := newTestConsole(t, 10, 4)
	c.WriteByte('a')
	c.WriteByte('\n')
	if c.cursorX != 0 || c.cursorY != 1 {
		t.Fatalf("cursor = (%d,%d), want (0,1)", c.cursorX, c.cursorY)
	}
}

func TestScrollOnOverflow(t *testing.T) {
	c, _ := newTestConsole(t, 10, 2)
	c.WriteByte('\n')
	c.WriteByte('\n')
	c.WriteByte('\n')
	if c.cursorY != c.rows-1 {
		t.Fatalf("cursorY = %d, want pinned at %d after overflow", c.cursorY, c.rows-1)
	}
}
