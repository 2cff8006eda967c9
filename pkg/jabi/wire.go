package jabi

import (
	"encoding/binary"
	"fmt"
)

const (
	RequestHeaderSize  = 8
	ResponseHeaderSize = 4

	// DefaultMaxPayloadSize applies until the adapter reports its own limits.
	DefaultMaxPayloadSize = 512
)

// Request addresses function Fn of instance Index of peripheral Periph.
type Request struct {
	Periph  uint16
	Index   uint16
	Fn      uint16
	Payload []byte
}

// MarshalBinary encodes r as {periph_id, periph_idx, periph_fn, payload_len, payload},
// all little endian.
func (r Request) MarshalBinary() ([]byte, error) {
	if len(r.Payload) > 0xFFFF {
		return nil, fmt.Errorf("%w: request payload of %d bytes", ErrPacketFormat, len(r.Payload))
	}

	b := make([]byte, RequestHeaderSize, RequestHeaderSize+len(r.Payload))
	binary.LittleEndian.PutUint16(b[0:], r.Periph)
	binary.LittleEndian.PutUint16(b[2:], r.Index)
	binary.LittleEndian.PutUint16(b[4:], r.Fn)
	binary.LittleEndian.PutUint16(b[6:], uint16(len(r.Payload)))
	return append(b, r.Payload...), nil
}

func (r Request) String() string {
	return fmt.Sprintf("%s[%d].fn%d(% X)", PeriphName(r.Periph), r.Index, r.Fn, r.Payload)
}

// ResponseHeader precedes every response payload.
type ResponseHeader struct {
	Retcode    Retcode
	PayloadLen uint16
}

func parseResponseHeader(b []byte) (ResponseHeader, error) {
	if len(b) < ResponseHeaderSize {
		return ResponseHeader{}, fmt.Errorf("%w: response of %d bytes", ErrPacketFormat, len(b))
	}
	return ResponseHeader{
		Retcode:    Retcode(int16(binary.LittleEndian.Uint16(b[0:]))),
		PayloadLen: binary.LittleEndian.Uint16(b[2:]),
	}, nil
}

// DecodeResponse parses a complete response packet and returns its payload. A non-zero
// retcode is returned as a *RetcodeError.
func DecodeResponse(req Request, b []byte) ([]byte, error) {
	hdr, err := parseResponseHeader(b)
	if err != nil {
		return nil, err
	}
	if len(b) != ResponseHeaderSize+int(hdr.PayloadLen) {
		return nil, fmt.Errorf("%w: response length %d, header says %d", ErrPacketFormat, len(b), ResponseHeaderSize+int(hdr.PayloadLen))
	}
	if hdr.Retcode != RetcodeOK {
		return nil, &RetcodeError{Request: req, Code: hdr.Retcode}
	}
	return b[ResponseHeaderSize:], nil
}

// EncodeResponse builds a response packet.
func EncodeResponse(code Retcode, payload []byte) []byte {
	b := make([]byte, ResponseHeaderSize, ResponseHeaderSize+len(payload))
	binary.LittleEndian.PutUint16(b[0:], uint16(int16(code)))
	binary.LittleEndian.PutUint16(b[2:], uint16(len(payload)))
	return append(b, payload...)
}

// ParseRequest decodes a request packet, as an adapter would.
func ParseRequest(b []byte) (Request, error) {
	if len(b) < RequestHeaderSize {
		return Request{}, fmt.Errorf("%w: request of %d bytes", ErrPacketFormat, len(b))
	}
	n := int(binary.LittleEndian.Uint16(b[6:]))
	if len(b) != RequestHeaderSize+n {
		return Request{}, fmt.Errorf("%w: request length %d, header says %d", ErrPacketFormat, len(b), RequestHeaderSize+n)
	}
	return Request{
		Periph:  binary.LittleEndian.Uint16(b[0:]),
		Index:   binary.LittleEndian.Uint16(b[2:]),
		Fn:      binary.LittleEndian.Uint16(b[4:]),
		Payload: b[RequestHeaderSize:],
	}, nil
}
