// Package lin models the LIN bus operations a diagnostic commander needs and adapts them
// into an isotp.Link.
package lin

import (
	"context"
	"fmt"
	"strings"
)

const (
	// MaxDataLen is the largest LIN frame payload.
	MaxDataLen = 8

	// MaxID is the largest LIN frame identifier.
	MaxID = 0x3F

	// CommanderID carries diagnostic requests (master request frame).
	CommanderID = 0x3C
	// ResponderID carries diagnostic responses (slave response frame).
	ResponderID = 0x3D

	DefaultBitrate = 19200
)

type Mode uint8

const (
	ModeCommander Mode = 0
	ModeResponder Mode = 1
)

func (m Mode) String() string {
	switch m {
	case ModeCommander:
		return "commander"
	case ModeResponder:
		return "responder"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

type Checksum uint8

const (
	ChecksumClassic  Checksum = 0
	ChecksumEnhanced Checksum = 1
	ChecksumAuto     Checksum = 2
)

func (c Checksum) String() string {
	switch c {
	case ChecksumClassic:
		return "classic"
	case ChecksumEnhanced:
		return "enhanced"
	case ChecksumAuto:
		return "auto"
	default:
		return fmt.Sprintf("Checksum(%d)", uint8(c))
	}
}

// Message is one LIN frame as seen by the adapter.
type Message struct {
	ID       uint8
	Data     []byte
	Checksum Checksum
}

func (m Message) String() string {
	hex := make([]string, len(m.Data))
	for i, b := range m.Data {
		hex[i] = fmt.Sprintf("%02x", b)
	}
	return fmt.Sprintf("LINMessage(id=0x%02x,type=%s,data={%s})", m.ID, m.Checksum, strings.Join(hex, "-"))
}

// Status reports the outcome of the last frame published in responder mode.
type Status struct {
	ID      uint8
	Success bool
}

// Bus is a LIN adapter. Read returns ok=false when no frame is buffered for id.
type Bus interface {
	SetMode(ctx context.Context, mode Mode) error
	SetRate(ctx context.Context, bitrate uint32) error
	SetFilter(ctx context.Context, id uint8, dataLen int, checksum Checksum) error
	Write(ctx context.Context, msg Message) error
	Read(ctx context.Context, id uint8) (msg Message, ok bool, err error)
}
