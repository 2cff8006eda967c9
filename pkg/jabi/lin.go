package jabi

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/seagrayinc/linuds/pkg/lin"
)

func (d *Device) LINSetMode(ctx context.Context, idx uint16, mode lin.Mode) error {
	return d.doEmpty(ctx, PeriphLIN, idx, fnLINSetMode, []byte{byte(mode)})
}

func (d *Device) LINSetRate(ctx context.Context, idx uint16, bitrate uint32) error {
	return d.doEmpty(ctx, PeriphLIN, idx, fnLINSetRate, binary.LittleEndian.AppendUint32(nil, bitrate))
}

// LINSetFilter configures reception of frame id. A dataLen of zero lets the adapter
// detect the length.
func (d *Device) LINSetFilter(ctx context.Context, idx uint16, id uint8, dataLen int, checksum lin.Checksum) error {
	if id > lin.MaxID {
		return fmt.Errorf("lin identifier 0x%02X out of range", id)
	}
	if dataLen < 0 || dataLen > lin.MaxDataLen {
		return fmt.Errorf("lin filter length %d out of range", dataLen)
	}
	return d.doEmpty(ctx, PeriphLIN, idx, fnLINSetFilter, []byte{id, byte(checksum), byte(dataLen)})
}

func (d *Device) LINMode(ctx context.Context, idx uint16) (lin.Mode, error) {
	resp, err := d.Do(ctx, PeriphLIN, idx, fnLINMode, nil)
	if err != nil {
		return 0, err
	}
	if len(resp) != 1 {
		return 0, fmt.Errorf("%w: unexpected payload length %d", ErrPacketFormat, len(resp))
	}
	return lin.Mode(resp[0]), nil
}

// LINStatus returns, and clears, the status of the last frame published in responder mode.
func (d *Device) LINStatus(ctx context.Context, idx uint16) (lin.Status, error) {
	resp, err := d.Do(ctx, PeriphLIN, idx, fnLINStatus, nil)
	if err != nil {
		return lin.Status{}, err
	}
	if len(resp) != 3 {
		return lin.Status{}, fmt.Errorf("%w: unexpected payload length %d", ErrPacketFormat, len(resp))
	}
	return lin.Status{
		ID:      resp[0],
		Success: int16(binary.LittleEndian.Uint16(resp[1:])) == 0,
	}, nil
}

func (d *Device) LINWrite(ctx context.Context, idx uint16, msg lin.Message) error {
	if len(msg.Data) > lin.MaxDataLen {
		return fmt.Errorf("lin data of %d bytes too long", len(msg.Data))
	}
	payload := append([]byte{msg.ID, byte(msg.Checksum)}, msg.Data...)
	return d.doEmpty(ctx, PeriphLIN, idx, fnLINWrite, payload)
}

// LINRead pops one buffered frame for id. ok is false when nothing is buffered;
// left is the number of frames still buffered after this one.
func (d *Device) LINRead(ctx context.Context, idx uint16, id uint8) (msg lin.Message, left int, ok bool, err error) {
	resp, err := d.Do(ctx, PeriphLIN, idx, fnLINRead, []byte{id})
	if err != nil {
		return lin.Message{}, 0, false, err
	}
	if len(resp) == 0 {
		return lin.Message{}, 0, false, nil
	}
	if len(resp) < 4 || len(resp)-4 > lin.MaxDataLen {
		return lin.Message{}, 0, false, fmt.Errorf("%w: unexpected payload length %d", ErrPacketFormat, len(resp))
	}

	msg = lin.Message{
		ID:       resp[2],
		Checksum: lin.Checksum(resp[3]),
		Data:     append([]byte{}, resp[4:]...),
	}
	return msg, int(binary.LittleEndian.Uint16(resp)), true, nil
}

// LINBus exposes LIN instance idx as a lin.Bus.
func (d *Device) LINBus(idx uint16) lin.Bus {
	return &linBus{dev: d, idx: idx}
}

type linBus struct {
	dev *Device
	idx uint16
}

func (b *linBus) SetMode(ctx context.Context, mode lin.Mode) error {
	return b.dev.LINSetMode(ctx, b.idx, mode)
}

func (b *linBus) SetRate(ctx context.Context, bitrate uint32) error {
	return b.dev.LINSetRate(ctx, b.idx, bitrate)
}

func (b *linBus) SetFilter(ctx context.Context, id uint8, dataLen int, checksum lin.Checksum) error {
	return b.dev.LINSetFilter(ctx, b.idx, id, dataLen, checksum)
}

func (b *linBus) Write(ctx context.Context, msg lin.Message) error {
	return b.dev.LINWrite(ctx, b.idx, msg)
}

func (b *linBus) Read(ctx context.Context, id uint8) (lin.Message, bool, error) {
	msg, _, ok, err := b.dev.LINRead(ctx, b.idx, id)
	return msg, ok, err
}
