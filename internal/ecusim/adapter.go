package ecusim

import (
	"context"
	"encoding/binary"
	"io"
	"os"
	"sync"

	"github.com/seagrayinc/linuds/pkg/jabi"
	"github.com/seagrayinc/linuds/pkg/lin"
)

// SerialNumber is reported by the simulated adapter.
const SerialNumber = "SIM-0001"

// Adapter speaks the adapter side of the jabi wire format with the ECU on LIN
// instance 0. Wrap it with jabi.NewPacketInterface to drive it like a USB device.
type Adapter struct {
	ecu *ECU

	mu      sync.Mutex
	pending []byte
	closed  bool
}

func NewAdapter(ecu *ECU) *Adapter {
	return &Adapter{ecu: ecu}
}

// Write takes one request packet and queues its response packet for Read.
func (a *Adapter) Write(p []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return 0, os.ErrClosed
	}

	req, err := jabi.ParseRequest(p)
	if err != nil {
		a.pending = jabi.EncodeResponse(jabi.RetcodeInvalidArgsFormat, nil)
		return len(p), nil
	}
	// The request payload aliases p, which the caller may reuse.
	req.Payload = append([]byte{}, req.Payload...)

	payload, code := a.serve(context.Background(), req)
	if code != jabi.RetcodeOK {
		payload = nil
	}
	a.pending = jabi.EncodeResponse(code, payload)
	return len(p), nil
}

// Read returns the response to the last request in one transfer.
func (a *Adapter) Read(p []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return 0, os.ErrClosed
	}
	if a.pending == nil {
		return 0, io.EOF
	}
	if len(p) < len(a.pending) {
		return 0, io.ErrShortBuffer
	}
	n := copy(p, a.pending)
	a.pending = nil
	return n, nil
}

func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	a.pending = nil
	return nil
}

func (a *Adapter) serve(ctx context.Context, req jabi.Request) ([]byte, jabi.Retcode) {
	switch req.Periph {
	case jabi.PeriphMetadata:
		return a.metadata(req)
	case jabi.PeriphLIN:
		if req.Index != 0 {
			return nil, jabi.RetcodeInvalidArgs
		}
		return a.lin(ctx, req)
	default:
		return nil, jabi.RetcodeNotSupported
	}
}

func (a *Adapter) metadata(req jabi.Request) ([]byte, jabi.Retcode) {
	switch req.Fn {
	case 0:
		return []byte(SerialNumber), jabi.RetcodeOK
	case 1:
		if len(req.Payload) != 2 {
			return nil, jabi.RetcodeInvalidArgsFormat
		}
		n := uint16(0)
		if binary.LittleEndian.Uint16(req.Payload) == jabi.PeriphLIN {
			n = 1
		}
		return binary.LittleEndian.AppendUint16(nil, n), jabi.RetcodeOK
	case 2:
		return req.Payload, jabi.RetcodeOK
	case 3, 4:
		return binary.LittleEndian.AppendUint32(nil, jabi.DefaultMaxPayloadSize), jabi.RetcodeOK
	default:
		return nil, jabi.RetcodeNotSupported
	}
}

func (a *Adapter) lin(ctx context.Context, req jabi.Request) ([]byte, jabi.Retcode) {
	p := req.Payload

	switch req.Fn {
	case 0:
		if len(p) != 1 {
			return nil, jabi.RetcodeInvalidArgsFormat
		}
		return nil, status(a.ecu.SetMode(ctx, lin.Mode(p[0])))
	case 1:
		if len(p) != 4 {
			return nil, jabi.RetcodeInvalidArgsFormat
		}
		return nil, status(a.ecu.SetRate(ctx, binary.LittleEndian.Uint32(p)))
	case 2:
		if len(p) != 3 {
			return nil, jabi.RetcodeInvalidArgsFormat
		}
		return nil, status(a.ecu.SetFilter(ctx, p[0], int(p[2]), lin.Checksum(p[1])))
	case 3:
		a.ecu.mu.Lock()
		defer a.ecu.mu.Unlock()
		return []byte{byte(a.ecu.mode)}, jabi.RetcodeOK
	case 4:
		return []byte{0xFF, 0x00, 0x00}, jabi.RetcodeOK
	case 5:
		if len(p) < 2 || len(p) > 2+lin.MaxDataLen {
			return nil, jabi.RetcodeInvalidArgsFormat
		}
		msg := lin.Message{ID: p[0], Checksum: lin.Checksum(p[1]), Data: p[2:]}
		return nil, status(a.ecu.Write(ctx, msg))
	case 6:
		if len(p) != 1 {
			return nil, jabi.RetcodeInvalidArgsFormat
		}
		msg, ok, err := a.ecu.Read(ctx, p[0])
		if err != nil {
			return nil, jabi.RetcodePeripheral
		}
		if !ok {
			return nil, jabi.RetcodeOK
		}
		a.ecu.mu.Lock()
		left := len(a.ecu.tx)
		a.ecu.mu.Unlock()

		resp := binary.LittleEndian.AppendUint16(nil, uint16(left))
		resp = append(resp, msg.ID, byte(msg.Checksum))
		return append(resp, msg.Data...), jabi.RetcodeOK
	default:
		return nil, jabi.RetcodeNotSupported
	}
}

func status(err error) jabi.Retcode {
	if err != nil {
		return jabi.RetcodeInvalidArgs
	}
	return jabi.RetcodeOK
}
