package boundary

import (
	"unicode/utf8"
	"unsafe"
)

// maxCStringLen bounds the NUL scan so a missing terminator cannot walk the
// whole address space.
const maxCStringLen = 1 << 30

// goString copies the NUL-terminated string at p. ok is false when the bytes
// are not valid UTF-8 or no terminator is found within maxCStringLen.
func goString(p unsafe.Pointer) (s string, ok bool) {
	n := 0
	for *(*byte)(unsafe.Add(p, n)) != 0 {
		n++
		if n == maxCStringLen {
			return "", false
		}
	}
	b := unsafe.Slice((*byte)(p), n)
	if !utf8.Valid(b) {
		return "", false
	}
	return string(b), true
}
