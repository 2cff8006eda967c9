// Package uds implements a small set of Unified Diagnostic Services (ISO 14229) requests on
// top of a message transport: ReadDataByIdentifier, WriteDataByIdentifier and RoutineControl.
//
// Every exchange is strictly sequential: the request is written, the session waits for the
// given delay, then the response is read and checked against the request that produced it.
package uds

import "fmt"

// Service identifiers.
const (
	ServiceReadDataByIdentifier  byte = 0x22
	ServiceWriteDataByIdentifier byte = 0x2E
	ServiceRoutineControl        byte = 0x31

	// NegativeResponse is the SID of every negative response: [0x7F, SID, NRC].
	NegativeResponse byte = 0x7F

	// PositiveResponseOffset is added to a request SID to form its positive response SID.
	PositiveResponseOffset byte = 0x40
)

var serviceNames = map[byte]string{
	ServiceReadDataByIdentifier:  "ReadDataByIdentifier",
	ServiceWriteDataByIdentifier: "WriteDataByIdentifier",
	ServiceRoutineControl:        "RoutineControl",
	NegativeResponse:             "NegativeResponse",
}

// ServiceName returns a readable name for a SID, or its hex value.
func ServiceName(sid byte) string {
	if name, ok := serviceNames[sid]; ok {
		return name
	}
	return fmt.Sprintf("0x%02X", sid)
}

// PositiveResponse returns the positive response SID for a request SID.
func PositiveResponse(sid byte) byte {
	return sid + PositiveResponseOffset
}

// RoutineKind is the RoutineControl sub-function.
type RoutineKind byte

const (
	RoutineStart          RoutineKind = 0x01
	RoutineStop           RoutineKind = 0x02
	RoutineRequestResults RoutineKind = 0x03
)

func (k RoutineKind) String() string {
	switch k {
	case RoutineStart:
		return "start"
	case RoutineStop:
		return "stop"
	case RoutineRequestResults:
		return "request-results"
	default:
		return fmt.Sprintf("RoutineKind(0x%02X)", byte(k))
	}
}

// ParseRoutineKind accepts the names returned by RoutineKind.String.
func ParseRoutineKind(s string) (RoutineKind, error) {
	switch s {
	case "start":
		return RoutineStart, nil
	case "stop":
		return RoutineStop, nil
	case "request-results", "results":
		return RoutineRequestResults, nil
	default:
		return 0, fmt.Errorf("unknown routine kind %q", s)
	}
}
