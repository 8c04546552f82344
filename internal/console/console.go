// Package console is the kernel's scrollback text window: a
// gfx.Window whose shadow buffer receives character output, grounded on
// the teacher's framebuffer_text.go (fixed 8x8 glyph cells, cursor
// advance with line-wrap, scroll-on-overflow), generalized from a
// full-screen text surface to one compositor window among several.
package console

import (
	"golang.org/x/image/font/basicfont"

	"github.com/kestrel-os/kestrel/internal/gfx"
)

const (
	charWidth  = 8
	charHeight = 13 // basicfont.Face7x13's cell height
)

// Console owns a gfx.Window and renders a scrolling grid of text into
// its shadow buffer, one WriteByte at a time.
type Console struct {
	win           *gfx.Window
	wm            *gfx.WindowManager
	cols, rows    int
	cursorX, cursorY int
	fg, bg        [3]uint8
}

func New(wm *gfx.WindowManager, win *gfx.Window, fg, bg [3]uint8) *Console {
	c := &Console{
		win:  win,
		wm:   wm,
		cols: win.Rect.W / charWidth,
		rows: win.Rect.H / charHeight,
		fg:   fg,
		bg:   bg,
	}
	c.clear()
	return c
}

func (c *Console) clear() {
	ctx := c.win.Context()
	ctx.SetRGB255(int(c.bg[0]), int(c.bg[1]), int(c.bg[2]))
	ctx.Clear()
}

// WriteByte appends one byte to the console, handling newline and
// end-of-line wrap the way the teacher's AdvanceCursor/HandleNewline do,
// and scrolling the whole buffer up one row on overflow.
func (c *Console) WriteByte(b byte) {
	switch {
	case b == '\n':
		c.newline()
	case b >= 32 && b < 127:
		c.putChar(b)
		c.advance()
	}
	c.wm.DrawRectArea(c.win.Rect)
}

// WriteLine implements klog.Sink: a formatted log line is written one byte
// at a time through WriteByte, then terminated with a newline so each call
// starts its own row, the same framing the serial port gets.
func (c *Console) WriteLine(line string) {
	for i := 0; i < len(line); i++ {
		c.WriteByte(line[i])
	}
	c.WriteByte('\n')
}

func (c *Console) putChar(b byte) {
	ctx := c.win.Context()
	ctx.SetFontFace(basicfont.Face7x13)
	ctx.SetRGB255(int(c.fg[0]), int(c.fg[1]), int(c.fg[2]))
	x := float64(c.cursorX * charWidth)
	y := float64((c.cursorY+1)*charHeight - 3)
	ctx.DrawString(string(b), x, y)
}

func (c *Console) advance() {
	c.cursorX++
	if c.cursorX >= c.cols {
		c.newline()
	}
}

func (c *Console) newline() {
	c.cursorX = 0
	c.cursorY++
	if c.cursorY >= c.rows {
		c.scrollUp()
		c.cursorY = c.rows - 1
	}
}

// scrollUp shifts the shadow buffer's pixel rows up by one character
// height and clears the newly exposed bottom row, a direct generalization
// of the teacher's ScrollScreenUp (there implemented as a per-scanline
// MemmoveBytes over the hardware framebuffer; here as a row-copy over the
// window's own *image.RGBA backing store, since the compositor — not this
// window — owns the hardware framebuffer).
func (c *Console) scrollUp() {
	im := c.win.Image()
	if im == nil {
		return
	}
	stride := im.Stride
	rowBytes := charHeight * stride
	copy(im.Pix, im.Pix[rowBytes:])
	for i := len(im.Pix) - rowBytes; i < len(im.Pix); i += 4 {
		im.Pix[i+0], im.Pix[i+1], im.Pix[i+2], im.Pix[i+3] = c.bg[0], c.bg[1], c.bg[2], 255
	}
}
