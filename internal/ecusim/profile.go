package ecusim

import (
	"encoding/binary"

	"github.com/seagrayinc/linuds/pkg/uds"
)

// Well-known identifiers served by the default profile.
const (
	DIDVIN           uint16 = 0xF190
	DIDSerialNumber  uint16 = 0xF18C
	DIDSoftwareLevel uint16 = 0xF195
	DIDCounter       uint16 = 0x0100

	RoutineSelfTest uint16 = 0xFF00
)

// SelfTest is a routine that reports whether it is running and how often it ran.
type SelfTest struct {
	running bool
	runs    uint16
}

func (s *SelfTest) Run(kind uds.RoutineKind, _ []byte) ([]byte, byte) {
	switch kind {
	case uds.RoutineStart:
		if s.running {
			return nil, uds.NRCRequestSequenceError
		}
		s.running = true
		s.runs++
		return []byte{0x01}, 0
	case uds.RoutineStop:
		if !s.running {
			return nil, uds.NRCRequestSequenceError
		}
		s.running = false
		return []byte{0x00}, 0
	default:
		state := byte(0x00)
		if s.running {
			state = 0x01
		}
		return binary.BigEndian.AppendUint16([]byte{state}, s.runs), 0
	}
}

// DefaultProfile returns the options of a small demo ECU.
func DefaultProfile() []Option {
	selfTest := &SelfTest{}
	return []Option{
		WithDID(DIDVIN, []byte("WLN0UDS0000000042"), true),
		WithDID(DIDSerialNumber, []byte("ECU-SIM-01"), true),
		WithDID(DIDSoftwareLevel, []byte{0x01, 0x04}, true),
		WithDID(DIDCounter, []byte{0x00, 0x00}, false),
		WithRoutine(RoutineSelfTest, selfTest.Run),
	}
}
