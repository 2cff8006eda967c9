// Package ecusim simulates a LIN diagnostic responder. It implements lin.Bus from the
// commander's side: frames written on the request identifier are reassembled and
// answered, and the response frames are served on the response identifier.
package ecusim

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"

	"github.com/seagrayinc/linuds/pkg/isotp"
	"github.com/seagrayinc/linuds/pkg/lin"
	"github.com/seagrayinc/linuds/pkg/uds"
)

// RoutineFunc runs one RoutineControl sub-function. A non-zero nrc produces a negative
// response.
type RoutineFunc func(kind uds.RoutineKind, data []byte) (result []byte, nrc byte)

type did struct {
	value    []byte
	readOnly bool
}

// ECU is a simulated diagnostic responder.
type ECU struct {
	mu       sync.Mutex
	nad      byte
	dids     map[uint16]*did
	routines map[uint16]RoutineFunc
	latency  int

	mode    lin.Mode
	bitrate uint32
	filters map[uint8]lin.Checksum

	rx      *isotp.Reassembler
	tx      []isotp.Frame
	waiting int
	served  int
}

type Option func(*ECU)

// WithNAD sets the node address the ECU answers to. The broadcast address is always accepted.
func WithNAD(nad byte) Option {
	return func(e *ECU) {
		e.nad = nad
	}
}

// WithDID stores a data identifier.
func WithDID(id uint16, value []byte, readOnly bool) Option {
	return func(e *ECU) {
		e.dids[id] = &did{value: append([]byte{}, value...), readOnly: readOnly}
	}
}

func WithRoutine(id uint16, fn RoutineFunc) Option {
	return func(e *ECU) {
		e.routines[id] = fn
	}
}

// WithLatency makes every response appear only after n empty reads.
func WithLatency(n int) Option {
	return func(e *ECU) {
		e.latency = n
	}
}

func New(opts ...Option) *ECU {
	e := &ECU{
		dids:     make(map[uint16]*did),
		routines: make(map[uint16]RoutineFunc),
		filters:  make(map[uint8]lin.Checksum),
		rx:       isotp.NewReassembler(),
		bitrate:  lin.DefaultBitrate,
		mode:     lin.ModeResponder,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DID returns the current value of a data identifier.
func (e *ECU) DID(id uint16) ([]byte, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	d, ok := e.dids[id]
	if !ok {
		return nil, false
	}
	return append([]byte{}, d.value...), true
}

// Served returns the number of requests answered so far.
func (e *ECU) Served() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.served
}

func (e *ECU) SetMode(_ context.Context, mode lin.Mode) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mode = mode
	return nil
}

func (e *ECU) SetRate(_ context.Context, bitrate uint32) error {
	if bitrate == 0 {
		return fmt.Errorf("invalid bitrate %d", bitrate)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bitrate = bitrate
	return nil
}

func (e *ECU) SetFilter(_ context.Context, id uint8, dataLen int, checksum lin.Checksum) error {
	if id > lin.MaxID || dataLen < 0 || dataLen > lin.MaxDataLen {
		return fmt.Errorf("invalid filter id 0x%02X len %d", id, dataLen)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.filters[id] = checksum
	return nil
}

// Write accepts a commander frame.
func (e *ECU) Write(_ context.Context, msg lin.Message) error {
	if len(msg.Data) > lin.MaxDataLen {
		return fmt.Errorf("lin data of %d bytes too long", len(msg.Data))
	}
	if msg.ID != lin.CommanderID || len(msg.Data) != isotp.FrameSize {
		return nil
	}

	var f isotp.Frame
	copy(f[:], msg.Data)

	e.mu.Lock()
	defer e.mu.Unlock()

	if f.Address() != e.nad && f.Address() != isotp.AddressWildcard {
		return nil
	}

	// A new request cancels a response the commander never collected.
	if e.rx.State() == isotp.StateAwaitingFirstOrSingle && len(e.tx) > 0 {
		slog.Debug("ecusim discarded pending response", slog.Int("frames", len(e.tx)))
		e.tx = nil
		e.waiting = 0
	}

	done, err := e.rx.Feed(f)
	if err != nil {
		slog.Debug("ecusim dropped request", slog.Any("error", err))
		e.rx.Reset()
		return nil
	}
	if !done {
		return nil
	}

	req := e.rx.Payload()
	e.rx.Reset()

	resp := e.handle(req)
	frames, err := isotp.Encode(e.nad, resp)
	if err != nil {
		return err
	}
	e.tx = append(e.tx, frames...)
	e.waiting = e.latency
	e.served++

	slog.Debug("ecusim answered",
		slog.String("request", isotp.FormatBytes(req)),
		slog.String("response", isotp.FormatBytes(resp)),
	)
	return nil
}

// Read pops the next response frame when id is the response identifier.
func (e *ECU) Read(_ context.Context, id uint8) (lin.Message, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if id != lin.ResponderID || len(e.tx) == 0 {
		return lin.Message{}, false, nil
	}
	if e.waiting > 0 {
		e.waiting--
		return lin.Message{}, false, nil
	}

	f := e.tx[0]
	e.tx = e.tx[1:]
	checksum, ok := e.filters[id]
	if !ok {
		checksum = lin.ChecksumClassic
	}
	return lin.Message{ID: id, Data: append([]byte{}, f[:]...), Checksum: checksum}, true, nil
}

func negative(service, nrc byte) []byte {
	return []byte{uds.NegativeResponse, service, nrc}
}

func (e *ECU) handle(req []byte) []byte {
	if len(req) == 0 {
		return negative(0x00, uds.NRCIncorrectMessageLengthOrInvalidFormat)
	}

	sid := req[0]
	switch sid {
	case uds.ServiceReadDataByIdentifier:
		if len(req) != 3 {
			return negative(sid, uds.NRCIncorrectMessageLengthOrInvalidFormat)
		}
		id := binary.BigEndian.Uint16(req[1:])
		d, ok := e.dids[id]
		if !ok {
			return negative(sid, uds.NRCRequestOutOfRange)
		}
		return append([]byte{uds.PositiveResponse(sid), req[1], req[2]}, d.value...)

	case uds.ServiceWriteDataByIdentifier:
		if len(req) < 4 {
			return negative(sid, uds.NRCIncorrectMessageLengthOrInvalidFormat)
		}
		id := binary.BigEndian.Uint16(req[1:])
		d, ok := e.dids[id]
		if !ok {
			return negative(sid, uds.NRCRequestOutOfRange)
		}
		if d.readOnly {
			return negative(sid, uds.NRCSecurityAccessDenied)
		}
		d.value = append([]byte{}, req[3:]...)
		return []byte{uds.PositiveResponse(sid), req[1], req[2]}

	case uds.ServiceRoutineControl:
		if len(req) < 4 {
			return negative(sid, uds.NRCIncorrectMessageLengthOrInvalidFormat)
		}
		kind := uds.RoutineKind(req[1])
		if kind < uds.RoutineStart || kind > uds.RoutineRequestResults {
			return negative(sid, uds.NRCSubFunctionNotSupported)
		}
		fn, ok := e.routines[binary.BigEndian.Uint16(req[2:])]
		if !ok {
			return negative(sid, uds.NRCRequestOutOfRange)
		}
		result, nrc := fn(kind, req[4:])
		if nrc != 0 {
			return negative(sid, nrc)
		}
		return append([]byte{uds.PositiveResponse(sid), req[1], req[2], req[3]}, result...)

	default:
		return negative(sid, uds.NRCServiceNotSupported)
	}
}
