package isotp

import "fmt"

// State is the reassembly state of one inbound message.
type State int

const (
	StateAwaitingFirstOrSingle State = iota
	StateAwaitingConsecutive
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAwaitingFirstOrSingle:
		return "awaiting-first-or-single"
	case StateAwaitingConsecutive:
		return "awaiting-consecutive"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Reassembler rebuilds one message from its frames. It holds at most one message;
// call Reset before reusing it after completion or failure.
type Reassembler struct {
	state     State
	buf       []byte
	remaining int
	seq       byte
}

func NewReassembler() *Reassembler {
	return &Reassembler{}
}

func (r *Reassembler) State() State {
	return r.state
}

// Payload returns the reassembled message once the state is StateComplete.
func (r *Reassembler) Payload() []byte {
	if r.state != StateComplete {
		return nil
	}
	return r.buf
}

// Remaining is the number of bytes still expected from consecutive frames.
func (r *Reassembler) Remaining() int {
	return r.remaining
}

func (r *Reassembler) Reset() {
	*r = Reassembler{}
}

// Feed consumes one frame. It returns done once the message is complete. Any error
// leaves the reassembler in StateFailed.
//
// A first frame must announce more than SingleFrameCapacity bytes. Lengths of 5 or 6,
// which some stacks still split, are rejected with a *FramingError rather than
// reassembled.
func (r *Reassembler) Feed(f Frame) (done bool, err error) {
	switch r.state {
	case StateAwaitingFirstOrSingle:
		err = r.feedStart(f)
	case StateAwaitingConsecutive:
		err = r.feedConsecutive(f)
	default:
		err = &FramingError{State: r.state, PCI: f.PCI(), Reason: "frame received after message ended"}
	}
	if err != nil {
		r.state = StateFailed
		return false, err
	}
	return r.state == StateComplete, nil
}

func (r *Reassembler) feedStart(f Frame) error {
	pci := f.PCI()
	data := f.Data()

	switch f.Type() {
	case FrameTypeSingle:
		length := int(pci & 0x0F)
		if length > SingleFrameCapacity {
			return &FramingError{State: r.state, PCI: pci, Reason: fmt.Sprintf("single frame length %d exceeds %d", length, SingleFrameCapacity)}
		}
		r.buf = append(make([]byte, 0, length), data[:length]...)
		r.state = StateComplete
		return nil

	case FrameTypeFirst:
		total := int(pci&0x0F)<<8 | int(data[0])
		if total <= SingleFrameCapacity {
			return &FramingError{State: r.state, PCI: pci, Reason: fmt.Sprintf("first frame announces %d bytes, which fit a single frame", total)}
		}
		r.buf = make([]byte, 0, total)
		r.buf = append(r.buf, data[1:1+FirstFrameCapacity]...)
		r.remaining = total - FirstFrameCapacity
		r.seq = 1
		r.state = StateAwaitingConsecutive
		return nil

	case FrameTypeConsecutive:
		return &FramingError{State: r.state, PCI: pci, Reason: "consecutive frame without a first frame"}

	default:
		return &FramingError{State: r.state, PCI: pci, Reason: "unknown frame type " + f.Type().String()}
	}
}

func (r *Reassembler) feedConsecutive(f Frame) error {
	pci := f.PCI()
	if f.Type() != FrameTypeConsecutive {
		return &FramingError{State: r.state, PCI: pci, Reason: fmt.Sprintf("expected consecutive frame, got %s", f.Type())}
	}

	if got := pci & 0x0F; got != r.seq {
		return &SequenceError{Expected: r.seq, Got: got}
	}

	n := min(ConsecutiveFrameCapacity, r.remaining)
	r.buf = append(r.buf, f.Data()[:n]...)
	r.remaining -= n
	r.seq = (r.seq + 1) % 16

	if r.remaining == 0 {
		r.state = StateComplete
	}
	return nil
}
