package isotp

import "fmt"

// Encode splits payload into the frames that carry it, addressed to address.
// Payloads of up to SingleFrameCapacity bytes fit one Single frame; longer ones use a
// First frame followed by Consecutive frames numbered 1, 2, ... 15, 0, 1, ...
func Encode(address byte, payload []byte) ([]Frame, error) {
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes, maximum is %d", ErrPayloadTooLarge, len(payload), MaxPayloadSize)
	}

	if len(payload) <= SingleFrameCapacity {
		pci := byte(FrameTypeSingle)<<4 | byte(len(payload))
		return []Frame{newFrame(address, pci, payload)}, nil
	}

	frames := make([]Frame, 0, numFrames(len(payload)))

	// First frame carries 12 bits of length: low nibble of the PCI plus one byte.
	pci := byte(FrameTypeFirst)<<4 | byte(len(payload)>>8)
	first := make([]byte, 0, SingleFrameCapacity)
	first = append(first, byte(len(payload)))
	first = append(first, payload[:FirstFrameCapacity]...)
	frames = append(frames, newFrame(address, pci, first))

	rest := payload[FirstFrameCapacity:]
	seq := byte(1)
	for len(rest) > 0 {
		n := min(len(rest), ConsecutiveFrameCapacity)
		pci := byte(FrameTypeConsecutive)<<4 | seq
		frames = append(frames, newFrame(address, pci, rest[:n]))
		rest = rest[n:]
		seq = (seq + 1) % 16
	}

	return frames, nil
}

func numFrames(n int) int {
	if n <= SingleFrameCapacity {
		return 1
	}
	rest := n - FirstFrameCapacity
	return 1 + (rest+ConsecutiveFrameCapacity-1)/ConsecutiveFrameCapacity
}
