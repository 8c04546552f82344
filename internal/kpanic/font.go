package kpanic

// glyph8x8 returns an 8-row bitmap for the panic writer's minimal glyph
// rendering. The panic path must not depend on the full compositor font
// (golang.org/x/image/font/basicfont lives behind the heap-backed gg
// context any window owns, and a panic may be the allocator itself
// failing) — printable characters render as a solid block, matching
// panic.rs's own "get the message on screen by any means" priority over
// legibility.
func glyph8x8(c byte) [8]byte {
	if c < ' ' || c > '~' || c == ' ' {
		return [8]byte{}
	}
	return [8]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
}
