package isotp

import (
	"bytes"
	"testing"
)

func TestFormatParseBytes(t *testing.T) {
	b := []byte{0x3C, 0x03, 0x22, 0x12, 0x34, 0xFF}
	s := FormatBytes(b)
	if s != "3c-03-22-12-34-ff" {
		t.Fatalf("FormatBytes = %q", s)
	}

	for _, in := range []string{s, "3C03221234FF", "0x3c 03 22 12 34 ff", "3c:03:22:12:34:ff"} {
		got, err := ParseBytes(in)
		if err != nil || !bytes.Equal(got, b) {
			t.Fatalf("ParseBytes(%q) = % X, %v", in, got, err)
		}
	}

	if _, err := ParseBytes("3c-0"); err == nil {
		t.Fatalf("expected error for odd digit count")
	}
}

func TestFrameAccessors(t *testing.T) {
	f := Frame{0x0A, 0x21, 1, 2, 3, 4, 5, 6}
	if f.Address() != 0x0A || f.Type() != FrameTypeConsecutive || f.PCI() != 0x21 {
		t.Fatalf("frame %s decoded as %s", f, f.Type())
	}
	if !bytes.Equal(f.Data(), []byte{1, 2, 3, 4, 5, 6}) {
		t.Fatalf("Data = % X", f.Data())
	}
}
