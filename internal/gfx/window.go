package gfx

import (
	"image"

	"github.com/fogleman/gg"
)

// Rect is an axis-aligned pixel rectangle, exclusive of Max.
type Rect struct {
	X, Y, W, H int
}

func (r Rect) Max() (int, int) { return r.X + r.W, r.Y + r.H }

// Union returns the smallest Rect containing both r and o — used to
// compute the invalidated region a drag spans, per spec.md §8 scenario 5.
func (r Rect) Union(o Rect) Rect {
	x0, y0 := r.X, r.Y
	if o.X < x0 {
		x0 = o.X
	}
	if o.Y < y0 {
		y0 = o.Y
	}
	rMaxX, rMaxY := r.Max()
	oMaxX, oMaxY := o.Max()
	maxX, maxY := rMaxX, rMaxY
	if oMaxX > maxX {
		maxX = oMaxX
	}
	if oMaxY > maxY {
		maxY = oMaxY
	}
	return Rect{X: x0, Y: y0, W: maxX - x0, H: maxY - y0}
}

// WindowID uniquely identifies a window within a WindowManager's Z-stack;
// a window appears in the stack at most once, per spec.md §3.
type WindowID uint32

const titleBarHeight = 18

// Window is one compositor surface: its screen rectangle, a gg.Context
// shadow buffer it owns (the teacher's gg_circle_qemu.go pattern,
// generalized from a single full-screen backbuffer to one per window),
// and the drag/alpha/title flags spec.md §3 and SPEC_FULL.md's Module J
// supplement name.
type Window struct {
	ID         WindowID
	Rect       Rect
	UsesAlpha  bool
	Draggable  bool
	Title      string // empty means no titlebar strip is rendered
	shadow     *gg.Context
}

// NewWindow allocates a window's shadow buffer sized to its rect (plus a
// titlebar strip when draggable and titled).
func NewWindow(id WindowID, rect Rect, usesAlpha, draggable bool, title string) *Window {
	h := rect.H
	if draggable && title != "" {
		h += titleBarHeight
	}
	return &Window{
		ID:        id,
		Rect:      Rect{X: rect.X, Y: rect.Y, W: rect.W, H: h},
		UsesAlpha: usesAlpha,
		Draggable: draggable,
		Title:     title,
		shadow:    gg.NewContext(rect.W, h),
	}
}

// Image exposes the shadow buffer's backing *image.RGBA for the
// compositor's blit loop.
func (w *Window) Image() *image.RGBA {
	im, _ := w.shadow.Image().(*image.RGBA)
	return im
}

// Context exposes the gg drawing surface for client code (console text,
// HID cursor rendering, titlebar text) to draw into.
func (w *Window) Context() *gg.Context { return w.shadow }

// MoveTo repositions the window's top-left corner, returning the union
// of its old and new screen rects — the region the compositor must
// redraw, per spec.md §8 scenario 5.
func (w *Window) MoveTo(x, y int) Rect {
	old := w.Rect
	w.Rect.X, w.Rect.Y = x, y
	return old.Union(w.Rect)
}

// DrawTitleBar renders the titlebar strip into the top of the shadow
// buffer when the window is draggable and titled. NewWindow does not call
// it; callers invoke it explicitly.
func (w *Window) DrawTitleBar(bg, fg [3]uint8) {
	if !w.Draggable || w.Title == "" {
		return
	}
	w.shadow.SetRGB255(int(bg[0]), int(bg[1]), int(bg[2]))
	w.shadow.DrawRectangle(0, 0, float64(w.Rect.W), titleBarHeight)
	w.shadow.Fill()
	w.shadow.SetRGB255(int(fg[0]), int(fg[1]), int(fg[2]))
	w.shadow.DrawString(w.Title, 4, 13)
}
