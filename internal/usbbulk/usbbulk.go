// Package usbbulk talks to vendor-class USB devices over a pair of bulk endpoints.
package usbbulk

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/karalabe/usb"
)

const (
	// DefaultVendorID and DefaultProductID are the stock Zephyr USB device identifiers
	// the adapter firmware ships with.
	DefaultVendorID  = 0x2FE3
	DefaultProductID = 0x0100

	DefaultMaxPacketSize = 64
)

var (
	ErrNotFound = errors.New("usbbulk: no matching device")
	ErrNeedsZLP = errors.New("usbbulk: transfer needs a zero length packet")
)

// Info describes one enumerated device.
type Info struct {
	Path         string
	VendorID     uint16
	ProductID    uint16
	Serial       string
	Manufacturer string
	Product      string
	Interface    int
}

// Filter selects devices by identifiers; a zero field matches anything.
type Filter struct {
	VendorID  uint16
	ProductID uint16
	Path      string
	Serial    string
}

func (f Filter) match(info usb.DeviceInfo) bool {
	if f.Path != "" && info.Path != f.Path {
		return false
	}
	if f.Serial != "" && info.Serial != f.Serial {
		return false
	}
	return true
}

// List enumerates raw (non-HID) USB devices matching f.
func List(f Filter) ([]Info, error) {
	if !usb.Supported() {
		return nil, errors.New("usbbulk: usb not supported on this platform")
	}

	infos, err := usb.EnumerateRaw(f.VendorID, f.ProductID)
	if err != nil {
		return nil, fmt.Errorf("usb enumerate: %w", err)
	}

	out := make([]Info, 0, len(infos))
	for _, info := range infos {
		if !f.match(info) {
			continue
		}
		out = append(out, Info{
			Path:         info.Path,
			VendorID:     info.VendorID,
			ProductID:    info.ProductID,
			Serial:       info.Serial,
			Manufacturer: info.Manufacturer,
			Product:      info.Product,
			Interface:    info.Interface,
		})
	}
	return out, nil
}

// Device is an opened bulk device.
type Device struct {
	dev           usb.Device
	info          Info
	maxPacketSize int
}

func newDevice(dev usb.Device, info Info) *Device {
	return &Device{dev: dev, info: info, maxPacketSize: DefaultMaxPacketSize}
}

// Open opens the first device matching f.
func Open(f Filter) (*Device, error) {
	infos, err := usb.EnumerateRaw(f.VendorID, f.ProductID)
	if err != nil {
		return nil, fmt.Errorf("usb enumerate: %w", err)
	}

	for _, info := range infos {
		if !f.match(info) {
			continue
		}

		dev, err := info.Open()
		if err != nil {
			slog.Warn("failed to open usb device", slog.String("path", info.Path), slog.Any("error", err))
			continue
		}

		return newDevice(dev, Info{
			Path:         info.Path,
			VendorID:     info.VendorID,
			ProductID:    info.ProductID,
			Serial:       info.Serial,
			Manufacturer: info.Manufacturer,
			Product:      info.Product,
			Interface:    info.Interface,
		}), nil
	}

	return nil, fmt.Errorf("%w (VID:0x%04X PID:0x%04X)", ErrNotFound, f.VendorID, f.ProductID)
}

func (d *Device) Info() Info {
	return d.info
}

// MaxPacketSize is the bulk endpoint packet size. Transfers that are an exact multiple
// of it would need a zero length packet to terminate, which the raw backend cannot send.
func (d *Device) MaxPacketSize() int {
	return d.maxPacketSize
}

// Write sends p as one bulk transfer. Empty transfers and transfers that are an exact
// multiple of the packet size are refused with ErrNeedsZLP before touching the device.
func (d *Device) Write(p []byte) (int, error) {
	if len(p) == 0 || len(p)%d.maxPacketSize == 0 {
		return 0, fmt.Errorf("%w: %d byte transfer", ErrNeedsZLP, len(p))
	}
	n, err := d.dev.Write(p)
	if err != nil {
		return n, fmt.Errorf("usb write: %w", err)
	}
	if n != len(p) {
		return n, fmt.Errorf("usb write: short transfer %d/%d", n, len(p))
	}
	return n, nil
}

// Read receives one bulk transfer into p.
func (d *Device) Read(p []byte) (int, error) {
	n, err := d.dev.Read(p)
	if err != nil {
		return n, fmt.Errorf("usb read: %w", err)
	}
	return n, nil
}

func (d *Device) Close() error {
	return d.dev.Close()
}
