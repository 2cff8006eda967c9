package jabi

import (
	"context"
	"encoding/binary"
	"fmt"
)

// Serial returns the adapter's serial number.
func (d *Device) Serial(ctx context.Context) (string, error) {
	resp, err := d.Do(ctx, PeriphMetadata, 0, fnMetadataSerial, nil)
	if err != nil {
		return "", err
	}
	return string(resp), nil
}

// NumInstances returns how many instances of periph the adapter exposes.
func (d *Device) NumInstances(ctx context.Context, periph uint16) (int, error) {
	resp, err := d.Do(ctx, PeriphMetadata, 0, fnMetadataNumInst, binary.LittleEndian.AppendUint16(nil, periph))
	if err != nil {
		return 0, err
	}
	if len(resp) != 2 {
		return 0, fmt.Errorf("%w: unexpected payload length %d", ErrPacketFormat, len(resp))
	}
	return int(binary.LittleEndian.Uint16(resp)), nil
}

// Echo returns s as bounced back by the adapter.
func (d *Device) Echo(ctx context.Context, s string) (string, error) {
	resp, err := d.Do(ctx, PeriphMetadata, 0, fnMetadataEcho, []byte(s))
	if err != nil {
		return "", err
	}
	return string(resp), nil
}

// ReqMaxSize returns the largest request payload the adapter accepts.
func (d *Device) ReqMaxSize(ctx context.Context) (uint32, error) {
	return d.size(ctx, fnMetadataReqMaxSize)
}

// RespMaxSize returns the largest response payload the adapter sends.
func (d *Device) RespMaxSize(ctx context.Context) (uint32, error) {
	return d.size(ctx, fnMetadataRespMaxSize)
}

func (d *Device) size(ctx context.Context, fn uint16) (uint32, error) {
	resp, err := d.Do(ctx, PeriphMetadata, 0, fn, nil)
	if err != nil {
		return 0, err
	}
	if len(resp) != 4 {
		return 0, fmt.Errorf("%w: unexpected payload length %d", ErrPacketFormat, len(resp))
	}
	return binary.LittleEndian.Uint32(resp), nil
}
