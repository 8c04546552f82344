// Package hid dispatches USB HID boot-protocol reports — keyboard and
// mouse — onto the console and compositor, grounded on
// original_source/kernel/src/{keyboard,mouse}.rs's diff-against-previous-
// state and move_relative-with-clamp patterns, generalized from a single
// fixed text console and cursor sprite to the compositor's window-drag
// model SPEC_FULL.md's Module K supplement describes.
package hid

import (
	"github.com/kestrel-os/kestrel/internal/gfx"
	"github.com/kestrel-os/kestrel/internal/hid/keymap"
)

// KeyboardReport is the 8-byte USB HID boot-protocol keyboard report:
// a modifier byte plus up to six simultaneously pressed usage codes.
type KeyboardReport struct {
	Modifiers uint8
	Keys      [6]uint8
}

// MouseReport is the 3-byte USB HID boot-protocol mouse report: a button
// bitmask (bit 0 = left) plus signed X/Y displacement.
type MouseReport struct {
	Buttons uint8
	DX, DY  int8
}

const mouseButtonLeft = 1 << 0

// ConsoleWriter is the narrow surface keyboard dispatch writes into —
// satisfied by internal/console.Console.
type ConsoleWriter interface {
	WriteByte(b byte)
}

// KeyboardDispatcher diffs successive boot-protocol reports and emits
// newly pressed keys' ASCII translation to the console, mirroring
// keyboard.rs's "only keys that just transitioned to pressed are emitted"
// behavior: a held key never repeats, and every newly pressed key in a
// report is emitted, in slot order.
type KeyboardDispatcher struct {
	console  ConsoleWriter
	prevMods uint8
	prevKeys [6]uint8
}

func NewKeyboardDispatcher(console ConsoleWriter) *KeyboardDispatcher {
	return &KeyboardDispatcher{console: console}
}

// Handle processes one report, emitting the translation of every key that
// was not present in the previous report, in slot order.
func (d *KeyboardDispatcher) Handle(r KeyboardReport) {
	defer func() { d.prevMods, d.prevKeys = r.Modifiers, r.Keys }()

	for _, usage := range r.Keys {
		if usage == 0 {
			continue
		}
		if d.isHeld(usage) {
			continue
		}
		if b, ok := keymap.Translate(usage, r.Modifiers); ok {
			d.console.WriteByte(b)
		}
	}
}

func (d *KeyboardDispatcher) isHeld(usage uint8) bool {
	for _, k := range d.prevKeys {
		if k == usage {
			return true
		}
	}
	return false
}

// MouseDispatcher moves the cursor window and implements dragging of the
// frontmost draggable window under it, invalidating the union of the old
// and new rects via DrawRectArea — the exact bookkeeping spec.md §8
// scenario 5 exercises.
type MouseDispatcher struct {
	wm         *gfx.WindowManager
	cursorID   gfx.WindowID
	screenW    int
	screenH    int
	dragging   bool
	dragTarget gfx.WindowID
}

func NewMouseDispatcher(wm *gfx.WindowManager, cursorID gfx.WindowID, screenW, screenH int) *MouseDispatcher {
	return &MouseDispatcher{wm: wm, cursorID: cursorID, screenW: screenW, screenH: screenH}
}

// Handle applies one mouse report: moves the cursor window (clamped to
// screen bounds), and on a left-button edge either begins or continues a
// drag of whatever draggable window the cursor started over, or ends the
// drag on release.
func (m *MouseDispatcher) Handle(r MouseReport) {
	cursor := m.wm.Window(m.cursorID)
	if cursor == nil {
		return
	}

	newX := clamp(cursor.Rect.X+int(r.DX), 0, m.screenW-cursor.Rect.W)
	newY := clamp(cursor.Rect.Y+int(r.DY), 0, m.screenH-cursor.Rect.H)
	cursorDirty := cursor.MoveTo(newX, newY)

	leftDown := r.Buttons&mouseButtonLeft != 0

	switch {
	case leftDown && !m.dragging:
		if target := m.wm.TopWindowAt(newX, newY); target != nil && target.Draggable {
			m.dragging = true
			m.dragTarget = target.ID
			m.wm.RaiseToTop(target.ID)
		}
		m.wm.DrawRectArea(cursorDirty)

	case leftDown && m.dragging:
		target := m.wm.Window(m.dragTarget)
		if target == nil {
			m.dragging = false
			m.wm.DrawRectArea(cursorDirty)
			return
		}
		dirty := target.MoveTo(target.Rect.X+int(r.DX), target.Rect.Y+int(r.DY))
		m.wm.DrawRectArea(dirty.Union(cursorDirty))

	default: // button up: end any in-progress drag
		m.dragging = false
		m.wm.DrawRectArea(cursorDirty)
	}
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
