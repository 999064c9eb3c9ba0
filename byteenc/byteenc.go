// Package byteenc implements the GPT-2 byte-to-unicode bijection that
// byte-level BPE encodes raw bytes through: every byte maps to exactly one
// rune in a fixed 256-rune alphabet, so that arbitrary binary input can be
// represented as printable text before BPE merges run over it.
package byteenc

import "strings"

var byteToRune [256]rune
var runeToByte map[rune]byte

func init() {
	runeToByte = make(map[rune]byte, 256)
	n := rune(0)
	for b := 0; b < 256; b++ {
		if printable(byte(b)) {
			byteToRune[b] = rune(b)
			runeToByte[rune(b)] = byte(b)
		} else {
			byteToRune[b] = 256 + n
			runeToByte[256+n] = byte(b)
			n++
		}
	}
}

// printable reports whether b falls in GPT-2's three printable Latin-1
// ranges, which map to themselves rather than into the 256+ overflow block.
func printable(b byte) bool {
	return (b >= '!' && b <= '~') || (b >= 0xA1 && b <= 0xAC) || (b >= 0xAE && b <= 0xFF)
}

// Encode maps raw bytes to their byte-level representation: a string of
// runes from the fixed 256-rune alphabet, one rune per input byte.
func Encode(raw []byte) string {
	var sb strings.Builder
	sb.Grow(len(raw) * 2)
	for _, b := range raw {
		sb.WriteRune(byteToRune[b])
	}
	return sb.String()
}

// Decode maps a byte-level string back to raw bytes. Runes outside the
// 256-rune alphabet are passed through as their own UTF-8 encoding, matching
// the reference's fallback for malformed input.
func Decode(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if b, ok := runeToByte[r]; ok {
			out = append(out, b)
		} else {
			out = append(out, string(r)...)
		}
	}
	return out
}

// RuneForByte returns the single-rune byte-level encoding of b.
func RuneForByte(b byte) rune { return byteToRune[b] }

// ByteForRune returns the raw byte a byte-level rune decodes to, and whether
// r is part of the 256-rune alphabet at all.
func ByteForRune(r rune) (byte, bool) {
	b, ok := runeToByte[r]
	return b, ok
}
