package isotp

import (
	"errors"
	"fmt"
)

var (
	ErrPayloadTooLarge = errors.New("isotp: payload too large")
	ErrNoFrame         = errors.New("isotp: no frame available")

	// ErrFraming and ErrSequence match *FramingError and *SequenceError with errors.Is.
	ErrFraming  = errors.New("isotp: framing error")
	ErrSequence = errors.New("isotp: sequence error")
)

// FramingError reports a frame that is not legal in the current reassembly state.
type FramingError struct {
	State  State
	PCI    byte
	Reason string
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("isotp: framing error in state %s (pci 0x%02X): %s", e.State, e.PCI, e.Reason)
}

func (e *FramingError) Is(target error) bool {
	return target == ErrFraming
}

// SequenceError reports a consecutive frame whose sequence number is not the expected one.
// No resynchronisation is attempted; it usually means a frame was lost or repeated.
type SequenceError struct {
	Expected byte
	Got      byte
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("isotp: sequence error: expected %d, got %d", e.Expected, e.Got)
}

func (e *SequenceError) Is(target error) bool {
	return target == ErrSequence
}
