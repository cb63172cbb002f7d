package tit

import "fmt"

// truncate caps s at maxFieldBytes, reporting whether it cut anything.
// It cuts at a byte offset, which can split a multi-byte rune; the
// trailing marker makes any mid-rune cut visually obvious, and the field
// is diagnostic text, not a value the engine parses back.
func truncate(s string) (string, bool) {
	if len(s) <= maxFieldBytes {
		return s, false
	}
	return fmt.Sprintf("%s... [truncated %d bytes]", s[:maxFieldBytes], len(s)-maxFieldBytes), true
}
