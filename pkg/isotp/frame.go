// Package isotp implements the segmented transport used for diagnostic requests on a
// LIN bus: payloads up to 4095 bytes are split into fixed-size 8 byte frames made of a
// node address, a Protocol Control Information (PCI) byte and up to six data bytes.
package isotp

import (
	"encoding/hex"
	"strings"
)

const (
	FrameSize      = 8
	FillByte       = 0xFF
	MaxPayloadSize = 4095

	SingleFrameCapacity      = FrameSize - 2
	FirstFrameCapacity       = FrameSize - 3
	ConsecutiveFrameCapacity = FrameSize - 2

	// AddressWildcard is the LIN broadcast NAD. A Transport configured with it
	// accepts frames from any node.
	AddressWildcard = 0x7F
)

// FrameType is the high nibble of the PCI byte.
type FrameType byte

const (
	FrameTypeSingle      FrameType = 0x0
	FrameTypeFirst       FrameType = 0x1
	FrameTypeConsecutive FrameType = 0x2
)

func (t FrameType) String() string {
	switch t {
	case FrameTypeSingle:
		return "single"
	case FrameTypeFirst:
		return "first"
	case FrameTypeConsecutive:
		return "consecutive"
	default:
		return "unknown(0x" + hex.EncodeToString([]byte{byte(t)}) + ")"
	}
}

// Frame is one link frame: [NAD][PCI][DATA x6].
type Frame [FrameSize]byte

func (f Frame) Address() byte {
	return f[0]
}

func (f Frame) PCI() byte {
	return f[1]
}

func (f Frame) Type() FrameType {
	return FrameType(f[1] >> 4)
}

// Data returns the six bytes following the PCI, padding included.
func (f Frame) Data() []byte {
	return f[2:]
}

func (f Frame) String() string {
	return FormatBytes(f[:])
}

// FormatBytes renders b as dash separated hex, e.g. "3c-03-22-12-34-ff-ff-ff".
func FormatBytes(b []byte) string {
	hexDigits := hex.EncodeToString(b)
	var builder strings.Builder
	for i, r := range hexDigits {
		switch {
		case i > 0 && i%2 == 0:
			builder.WriteString("-")
		}
		builder.WriteRune(r)
	}
	return builder.String()
}

// ParseBytes is the inverse of FormatBytes. Dashes, colons and spaces between bytes
// are ignored, as is a leading "0x".
func ParseBytes(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	s = strings.NewReplacer("-", "", ":", "", " ", "").Replace(s)
	return hex.DecodeString(s)
}

func newFrame(address, pci byte, data []byte) Frame {
	var f Frame
	f[0] = address
	f[1] = pci
	n := copy(f[2:], data)
	for i := 2 + n; i < FrameSize; i++ {
		f[i] = FillByte
	}
	return f
}
