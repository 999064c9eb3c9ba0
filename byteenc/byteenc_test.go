package byteenc

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := [][]byte{
		[]byte("hello world"),
		[]byte("\x00\x01\x02 \n\t"),
		[]byte("日本語"),
		{},
	}
	for _, raw := range cases {
		enc := Encode(raw)
		got := Decode(enc)
		if diff := cmp.Diff(raw, got); diff != "" {
			t.Errorf("round trip mismatch for %q (-want +got):\n%s", raw, diff)
		}
	}
}

func TestBijection(t *testing.T) {
	seen := make(map[rune]bool, 256)
	for b := 0; b < 256; b++ {
		r := RuneForByte(byte(b))
		if seen[r] {
			t.Fatalf("rune %d assigned to more than one byte", r)
		}
		seen[r] = true

		back, ok := ByteForRune(r)
		if !ok || back != byte(b) {
			t.Fatalf("ByteForRune(%d) = %d, %v; want %d, true", r, back, ok, b)
		}
	}
}

func TestSpaceMapsOutOfPrintableRange(t *testing.T) {
	// ' ' (0x20) is not in any of the three printable ranges, so it must map
	// into the 256+ overflow block, not to itself.
	r := RuneForByte(' ')
	if r == ' ' {
		t.Fatalf("space must not map to itself")
	}
	if r < 256 {
		t.Fatalf("space must map into the overflow block, got rune %d", r)
	}
}

func TestPrintableASCIIMapsToItself(t *testing.T) {
	for b := byte('!'); b <= '~'; b++ {
		if got := RuneForByte(b); got != rune(b) {
			t.Errorf("RuneForByte(%q) = %d, want %d", b, got, b)
		}
	}
}
