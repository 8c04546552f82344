package gfx

import (
	"sync"
	"unsafe"
)

// Framebuffer is the boot-handed linear scanout buffer the compositor
// blits into.
type Framebuffer struct {
	Base             unsafe.Pointer
	PixelsPerScanLine uint32
	Width, Height    uint32
	Format           Format
}

func (fb *Framebuffer) ptrAt(x, y int) unsafe.Pointer {
	offset := uintptr(y)*uintptr(fb.PixelsPerScanLine)*4 + uintptr(x)*4
	return unsafe.Add(fb.Base, offset)
}

// WindowManager owns the Z-ordered window stack and the screen
// framebuffer, under a single spin lock per spec.md §5's lock-ordering
// rule (at most one of {window manager, timer heap, allocator} held at
// once).
type WindowManager struct {
	mu      sync.Mutex
	fb      *Framebuffer
	write   WriteFunc
	zstack  []*Window
	byID    map[WindowID]*Window
	nextID  WindowID
}

func NewWindowManager(fb *Framebuffer) *WindowManager {
	return &WindowManager{
		fb:    fb,
		write: BindWriteFunc(fb.Format),
		byID:  make(map[WindowID]*Window),
	}
}

// AddWindow pushes w onto the top of the Z-stack. A window already
// present is a programming error the caller must avoid — spec.md §3
// requires at-most-once membership, so AddWindow is not idempotent by
// design and panics on a duplicate ID to surface the bug immediately
// rather than silently reordering the stack.
func (wm *WindowManager) AddWindow(w *Window) {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	if _, exists := wm.byID[w.ID]; exists {
		panic("gfx: window already present in Z-stack")
	}
	wm.byID[w.ID] = w
	wm.zstack = append(wm.zstack, w)
}

// RemoveWindow drops a window from the Z-stack.
func (wm *WindowManager) RemoveWindow(id WindowID) {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	delete(wm.byID, id)
	for i, w := range wm.zstack {
		if w.ID == id {
			wm.zstack = append(wm.zstack[:i], wm.zstack[i+1:]...)
			return
		}
	}
}

// RaiseToTop moves a window to the top of the Z-stack (the frontmost
// window), used when the cursor begins dragging it.
func (wm *WindowManager) RaiseToTop(id WindowID) {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	for i, w := range wm.zstack {
		if w.ID == id {
			wm.zstack = append(append(wm.zstack[:i], wm.zstack[i+1:]...), w)
			return
		}
	}
}

// Window looks up a window by id without exposing the Z-stack directly.
func (wm *WindowManager) Window(id WindowID) *Window {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	return wm.byID[id]
}

// TopWindowAt returns the frontmost window whose rect contains (x, y),
// searching the Z-stack back to front, or nil if none does.
func (wm *WindowManager) TopWindowAt(x, y int) *Window {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	for i := len(wm.zstack) - 1; i >= 0; i-- {
		w := wm.zstack[i]
		maxX, maxY := w.Rect.Max()
		if x >= w.Rect.X && x < maxX && y >= w.Rect.Y && y < maxY {
			return w
		}
	}
	return nil
}

// Draw performs a full redraw: every window's shadow buffer, bottom to
// top, blitted onto the whole screen.
func (wm *WindowManager) Draw() {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	wm.drawRectLocked(Rect{X: 0, Y: 0, W: int(wm.fb.Width), H: int(wm.fb.Height)})
}

// DrawRectArea redraws only the windows intersecting area, clipped to
// area — the partial-redraw path spec.md §4.J names, used after a cursor
// drag invalidates a small region instead of the whole screen.
func (wm *WindowManager) DrawRectArea(area Rect) {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	wm.drawRectLocked(area)
}

func (wm *WindowManager) drawRectLocked(area Rect) {
	areaMaxX, areaMaxY := area.Max()
	for _, w := range wm.zstack {
		im := w.Image()
		if im == nil {
			continue
		}
		wMaxX, wMaxY := w.Rect.Max()
		x0, y0 := max(area.X, w.Rect.X), max(area.Y, w.Rect.Y)
		x1, y1 := min(areaMaxX, wMaxX), min(areaMaxY, wMaxY)
		if x0 >= x1 || y0 >= y1 {
			continue
		}

		stride := im.Stride
		for y := y0; y < y1; y++ {
			srcY := y - w.Rect.Y
			row := im.Pix[srcY*stride:]
			for x := x0; x < x1; x++ {
				srcX := (x - w.Rect.X) * 4
				r, g, b, a := row[srcX], row[srcX+1], row[srcX+2], row[srcX+3]
				dst := wm.fb.ptrAt(x, y)
				if w.UsesAlpha {
					BlendOver(dst, wm.write, wm.fb.Format, r, g, b, a)
				} else {
					wm.write(dst, r, g, b)
				}
			}
		}
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
