package jabi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Interface carries one request and returns the response payload.
type Interface interface {
	Send(ctx context.Context, req Request) ([]byte, error)
	Close() error
}

// PacketConn moves whole packets, one transfer per packet, as USB bulk endpoints do.
type PacketConn interface {
	Write(p []byte) (int, error)
	Read(p []byte) (int, error)
	Close() error
}

// DefaultPacketTimeout bounds one request/response transfer on a packet interface.
const DefaultPacketTimeout = time.Second

// ErrInterfaceClosed is returned by a packet interface that was closed, including after
// a transfer was abandoned on timeout.
var ErrInterfaceClosed = errors.New("jabi: interface closed")

// PacketOption configures NewPacketInterface.
type PacketOption func(*packetInterface)

// WithPacketTimeout overrides DefaultPacketTimeout.
func WithPacketTimeout(d time.Duration) PacketOption {
	return func(p *packetInterface) {
		if d > 0 {
			p.timeout = d
		}
	}
}

type packetInterface struct {
	conn        PacketConn
	maxRespSize int
	timeout     time.Duration

	closeOnce sync.Once
	closeErr  error
	closed    atomic.Bool
}

// NewPacketInterface returns an Interface that expects each response in a single read.
// A transfer that outlives ctx or the packet timeout is abandoned: the conn is closed
// and every later Send fails with ErrInterfaceClosed.
func NewPacketInterface(conn PacketConn, opts ...PacketOption) Interface {
	p := &packetInterface{conn: conn, maxRespSize: DefaultMaxPayloadSize, timeout: DefaultPacketTimeout}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type transferResult struct {
	payload []byte
	err     error
}

func (p *packetInterface) Send(ctx context.Context, req Request) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.closed.Load() {
		return nil, ErrInterfaceClosed
	}

	b, err := req.MarshalBinary()
	if err != nil {
		return nil, err
	}
	// A transfer filling whole packets needs a zero length packet to terminate.
	if mp, ok := p.conn.(interface{ MaxPacketSize() int }); ok {
		if size := mp.MaxPacketSize(); size > 0 && len(b)%size == 0 {
			return nil, fmt.Errorf("%w: %d byte request is a multiple of the %d byte packet size", ErrPacketFormat, len(b), size)
		}
	}

	done := make(chan transferResult, 1)
	go func() {
		payload, err := p.transfer(req, b)
		done <- transferResult{payload: payload, err: err}
	}()

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case r := <-done:
		return r.payload, r.err
	case <-ctx.Done():
		select {
		case r := <-done:
			return r.payload, r.err
		default:
		}
		p.abandon()
		return nil, fmt.Errorf("%w: %w", ErrPacketTimeout, ctx.Err())
	case <-timer.C:
		p.abandon()
		return nil, fmt.Errorf("%w: no response within %s", ErrPacketTimeout, p.timeout)
	}
}

func (p *packetInterface) transfer(req Request, b []byte) ([]byte, error) {
	if _, err := p.conn.Write(b); err != nil {
		return nil, err
	}

	buf := make([]byte, ResponseHeaderSize+p.maxRespSize)
	n, err := p.conn.Read(buf)
	if err != nil {
		return nil, timeoutOr(err)
	}
	return DecodeResponse(req, buf[:n])
}

// abandon closes the conn so the blocked transfer returns and no later request reads
// its late response.
func (p *packetInterface) abandon() {
	slog.Warn("jabi transfer abandoned, closing interface")
	p.Close()
}

func (p *packetInterface) setMaxResponseSize(n int) {
	p.maxRespSize = n
}

func (p *packetInterface) Close() error {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		p.closeErr = p.conn.Close()
	})
	return p.closeErr
}

// discarder is implemented by streams that pad their transfers, e.g. HID reports.
type discarder interface {
	Discard()
}

type streamInterface struct {
	rw io.ReadWriteCloser
}

// NewStreamInterface returns an Interface over a byte stream such as a serial port. The
// response header is read first and tells how many payload bytes follow.
func NewStreamInterface(rw io.ReadWriteCloser) Interface {
	return &streamInterface{rw: rw}
}

func (s *streamInterface) Send(ctx context.Context, req Request) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b, err := req.MarshalBinary()
	if err != nil {
		return nil, err
	}
	if _, err := s.rw.Write(b); err != nil {
		return nil, err
	}
	if d, ok := s.rw.(discarder); ok {
		defer d.Discard()
	}

	hdrBuf := make([]byte, ResponseHeaderSize)
	if _, err := io.ReadFull(s.rw, hdrBuf); err != nil {
		return nil, timeoutOr(err)
	}
	hdr, err := parseResponseHeader(hdrBuf)
	if err != nil {
		return nil, err
	}

	payload := make([]byte, hdr.PayloadLen)
	if _, err := io.ReadFull(s.rw, payload); err != nil {
		return nil, timeoutOr(err)
	}

	if hdr.Retcode != RetcodeOK {
		return nil, &RetcodeError{Request: req, Code: hdr.Retcode}
	}
	return payload, nil
}

func (s *streamInterface) Close() error {
	return s.rw.Close()
}

type timeout interface {
	Timeout() bool
}

func timeoutOr(err error) error {
	var t timeout
	if errors.Is(err, os.ErrDeadlineExceeded) || (errors.As(err, &t) && t.Timeout()) {
		return fmt.Errorf("%w: %w", ErrPacketTimeout, err)
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %w", ErrPacketFormat, err)
	}
	return err
}
