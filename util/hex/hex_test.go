package hex

import (
	"strings"
	"testing"
)

func TestFormatQuad(t *testing.T) {
	var b strings.Builder
	FormatQuad(&b, []uint64{0x1234567890ABCDEF})
	if got, want := b.String(), "1234567890ABCDEF "; got != want {
		t.Errorf("FormatQuad() = %q, want %q", got, want)
	}
}

func TestFormatWord(t *testing.T) {
	var b strings.Builder
	FormatWord(&b, []uint32{0xDEADBEEF})
	if got, want := b.String(), "DEADBEEF "; got != want {
		t.Errorf("FormatWord() = %q, want %q", got, want)
	}
}

func TestFormatBytesSpacing(t *testing.T) {
	var b strings.Builder
	FormatBytes(&b, true, []byte{0xAB, 0xCD})
	if got, want := b.String(), "AB CD "; got != want {
		t.Errorf("FormatBytes(space) = %q, want %q", got, want)
	}

	b.Reset()
	FormatBytes(&b, false, []byte{0xAB, 0xCD})
	if got, want := b.String(), "ABCD"; got != want {
		t.Errorf("FormatBytes(no space) = %q, want %q", got, want)
	}
}

func TestFormatByte(t *testing.T) {
	var b strings.Builder
	FormatByte(&b, 0x0F)
	if got, want := b.String(), "0F"; got != want {
		t.Errorf("FormatByte() = %q, want %q", got, want)
	}
}
