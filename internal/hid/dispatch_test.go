package hid

import (
	"testing"
	"unsafe"

	"github.com/kestrel-os/kestrel/internal/gfx"
	"github.com/kestrel-os/kestrel/internal/hid/keymap"
)

func newTestWindowManager(t *testing.T, w, h int) *gfx.WindowManager {
	t.Helper()
	buf := make([]byte, w*h*4)
	fb := &gfx.Framebuffer{
		Base:              unsafe.Pointer(&buf[0]),
		PixelsPerScanLine: uint32(w),
		Width:             uint32(w),
		Height:            uint32(h),
		Format:            gfx.FormatRGB,
	}
	return gfx.NewWindowManager(fb)
}

// TestCursorDragScenario implements spec.md §8 scenario 5 literally: a
// draggable window at (100,100), cursor at (110,110); a mouse report
// with the left button held and a (+5,+3) displacement moves the window
// to (105,103); a report with no displacement is a no-op; a report with
// the button released ends the drag.
func TestCursorDragScenario(t *testing.T) {
	wm := newTestWindowManager(t, 640, 480)

	win := gfx.NewWindow(1, gfx.Rect{X: 100, Y: 100, W: 50, H: 50}, false, true, "")
	wm.AddWindow(win)

	cursor := gfx.NewWindow(2, gfx.Rect{X: 110, Y: 110, W: 1, H: 1}, false, false, "")
	wm.AddWindow(cursor)

	md := NewMouseDispatcher(wm, 2, 640, 480)

	md.Handle(MouseReport{Buttons: 0x01, DX: 5, DY: 3})
	if win.Rect.X != 105 || win.Rect.Y != 103 {
		t.Fatalf("window rect = (%d,%d), want (105,103)", win.Rect.X, win.Rect.Y)
	}
	if !md.dragging {
		t.Fatal("expected dragging to be true after left-button-down over draggable window")
	}

	md.Handle(MouseReport{Buttons: 0x01, DX: 0, DY: 0})
	if win.Rect.X != 105 || win.Rect.Y != 103 {
		t.Fatalf("window rect after no-op report = (%d,%d), want unchanged (105,103)", win.Rect.X, win.Rect.Y)
	}

	md.Handle(MouseReport{Buttons: 0x00, DX: 0, DY: 0})
	if md.dragging {
		t.Fatal("expected dragging to end once the left button is released")
	}
}

func TestKeyboardDispatcherEmitsOnlyNewlyPressed(t *testing.T) {
	var out []byte
	c := &recordingConsole{out: &out}
	d := NewKeyboardDispatcher(c)

	d.Handle(KeyboardReport{Keys: [6]uint8{4}}) // 'a'
	d.Handle(KeyboardReport{Keys: [6]uint8{4}}) // held, no repeat
	d.Handle(KeyboardReport{Keys: [6]uint8{4, 5}}) // 'a' held, 'b' newly pressed

	if string(out) != "ab" {
		t.Fatalf("emitted %q, want %q", out, "ab")
	}
}

func TestKeyboardDispatcherAppliesShift(t *testing.T) {
	var out []byte
	c := &recordingConsole{out: &out}
	d := NewKeyboardDispatcher(c)

	d.Handle(KeyboardReport{Modifiers: keymap.ModLeftShift, Keys: [6]uint8{4}})
	if string(out) != "A" {
		t.Fatalf("emitted %q, want %q", out, "A")
	}
}

type recordingConsole struct{ out *[]byte }

func (c *recordingConsole) WriteByte(b byte) { *c.out = append(*c.out, b) }
