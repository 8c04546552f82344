// Package keymap translates USB HID boot-keyboard usage codes into ASCII,
// grounded on original_source/kernel/src/keyboard.rs's two parallel
// KEYCODE/KEYCODE_SHIFTED arrays indexed by usage code.
package keymap

const (
	ModLeftCtrl   uint8 = 1 << 0
	ModLeftShift  uint8 = 1 << 1
	ModLeftAlt    uint8 = 1 << 2
	ModLeftGUI    uint8 = 1 << 3
	ModRightCtrl  uint8 = 1 << 4
	ModRightShift uint8 = 1 << 5
	ModRightAlt   uint8 = 1 << 6
	ModRightGUI   uint8 = 1 << 7
)

// unshifted is indexed by USB HID usage code (0x04 = 'a' ... 0x67 '=').
var unshifted = [104]byte{
	0, 0, 0, 0, 'a', 'b', 'c', 'd',
	'e', 'f', 'g', 'h', 'i', 'j', 'k', 'l',
	'm', 'n', 'o', 'p', 'q', 'r', 's', 't',
	'u', 'v', 'w', 'x', 'y', 'z', '1', '2',
	'3', '4', '5', '6', '7', '8', '9', '0',
	'\n', 0x1b, 0x7f, '\t', ' ', '-', '=', '[',
	']', '\\', '#', ';', '\'', '`', ',', '.',
	'/', 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, '/', '*', '-', '+',
	'\n', '1', '2', '3', '4', '5', '6', '7',
	'8', '9', '0', '.', '\\', 0, 0, '=',
}

var shifted = [104]byte{
	0, 0, 0, 0, 'A', 'B', 'C', 'D',
	'E', 'F', 'G', 'H', 'I', 'J', 'K', 'L',
	'M', 'N', 'O', 'P', 'Q', 'R', 'S', 'T',
	'U', 'V', 'W', 'X', 'Y', 'Z', '!', '@',
	'#', '$', '%', '^', '&', '*', '(', ')',
	'\n', 0x1b, 0x7f, '\t', ' ', '_', '+', '{',
	'}', '|', '~', ':', '"', '~', '<', '>',
	'?', 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, '/', '*', '-', '+',
	'\n', '1', '2', '3', '4', '5', '6', '7',
	'8', '9', '0', '.', '\\', 0, 0, '=',
}

// Translate returns the ASCII byte for a usage code under the given
// modifier mask, and whether the code has any ASCII mapping at all. A
// usage code with no mapping (e.g. a modifier key itself, or an unused
// table slot) returns ok=false.
func Translate(usage uint8, modifiers uint8) (b byte, ok bool) {
	if int(usage) >= len(unshifted) {
		return 0, false
	}
	table := &unshifted
	if modifiers&(ModLeftShift|ModRightShift) != 0 {
		table = &shifted
	}
	v := table[usage]
	return v, v != 0
}
