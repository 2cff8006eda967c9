package jabi

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Device is a connected adapter. Requests from concurrent callers are serialised.
type Device struct {
	mu         sync.Mutex
	iface      Interface
	logger     *slog.Logger
	maxReqSize int
}

type DeviceOption func(*Device)

func WithDeviceLogger(logger *slog.Logger) DeviceOption {
	return func(d *Device) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDevice wraps iface without talking to the adapter.
func NewDevice(iface Interface, opts ...DeviceOption) *Device {
	d := &Device{
		iface:      iface,
		logger:     slog.Default(),
		maxReqSize: DefaultMaxPayloadSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Connect wraps iface and checks that an adapter answers on it, adopting the payload
// limits it reports.
func Connect(ctx context.Context, iface Interface, opts ...DeviceOption) (*Device, error) {
	d := NewDevice(iface, opts...)

	reqMax, err := d.ReqMaxSize(ctx)
	if err != nil {
		return nil, fmt.Errorf("adapter not responding: %w", err)
	}
	respMax, err := d.RespMaxSize(ctx)
	if err != nil {
		return nil, fmt.Errorf("adapter not responding: %w", err)
	}

	d.mu.Lock()
	d.maxReqSize = int(reqMax)
	if s, ok := iface.(interface{ setMaxResponseSize(int) }); ok {
		s.setMaxResponseSize(int(respMax))
	}
	d.mu.Unlock()

	d.logger.Debug("jabi adapter connected", slog.Any("req_max", reqMax), slog.Any("resp_max", respMax))
	return d, nil
}

// Do sends one request and returns the response payload.
func (d *Device) Do(ctx context.Context, periph, idx, fn uint16, payload []byte) ([]byte, error) {
	req := Request{Periph: periph, Index: idx, Fn: fn, Payload: payload}

	d.mu.Lock()
	defer d.mu.Unlock()

	if len(payload) > d.maxReqSize {
		return nil, fmt.Errorf("%w: payload of %d bytes exceeds adapter limit %d", ErrPacketFormat, len(payload), d.maxReqSize)
	}

	resp, err := d.iface.Send(ctx, req)
	if err != nil {
		d.logger.Debug("jabi request failed", slog.String("request", req.String()), slog.Any("error", err))
		return nil, err
	}

	d.logger.Debug("jabi request", slog.String("request", req.String()), slog.String("response", fmt.Sprintf("% X", resp)))
	return resp, nil
}

// doEmpty runs a request whose successful response carries no payload.
func (d *Device) doEmpty(ctx context.Context, periph, idx, fn uint16, payload []byte) error {
	resp, err := d.Do(ctx, periph, idx, fn, payload)
	if err != nil {
		return err
	}
	if len(resp) != 0 {
		return fmt.Errorf("%w: unexpected payload length %d", ErrPacketFormat, len(resp))
	}
	return nil
}

func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.iface.Close()
}
