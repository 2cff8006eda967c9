package jabi

import (
	"context"
	"fmt"
	"time"

	"github.com/seagrayinc/linuds/internal/hid"
	"github.com/seagrayinc/linuds/internal/uart"
	"github.com/seagrayinc/linuds/internal/usbbulk"
)

// USBFilter selects a USB adapter; zero fields match anything.
type USBFilter = usbbulk.Filter

type USBInfo = usbbulk.Info

// DefaultUSBFilter matches adapters with the stock firmware identifiers.
var DefaultUSBFilter = USBFilter{
	VendorID:  usbbulk.DefaultVendorID,
	ProductID: usbbulk.DefaultProductID,
}

// ListUSB enumerates USB adapters without opening them.
func ListUSB(f USBFilter) ([]USBInfo, error) {
	return usbbulk.List(f)
}

// OpenUSB opens the first USB adapter matching f.
func OpenUSB(ctx context.Context, f USBFilter, opts ...DeviceOption) (*Device, error) {
	dev, err := usbbulk.Open(f)
	if err != nil {
		return nil, err
	}

	d, err := Connect(ctx, NewPacketInterface(dev), opts...)
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("usb %s: %w", dev.Info().Path, err)
	}
	return d, nil
}

// OpenUART opens an adapter on serial port name.
func OpenUART(ctx context.Context, name string, baud int, timeout time.Duration, opts ...DeviceOption) (*Device, error) {
	port, err := uart.Open(name, baud, timeout)
	if err != nil {
		return nil, err
	}

	d, err := Connect(ctx, NewStreamInterface(port), opts...)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("uart %s: %w", name, err)
	}
	return d, nil
}

// ListUART returns the serial ports present on the host.
func ListUART() ([]uart.PortInfo, error) {
	return uart.List()
}

// OpenHID opens an adapter that tunnels its stream through HID reports with reportID.
// Stock jabi firmware only exposes the vendor bulk interface and UART; this carrier is
// for HID bridge builds that forward the UART stream unchanged.
func OpenHID(ctx context.Context, vendorID, productID uint16, reportID byte, opts ...DeviceOption) (*Device, error) {
	dev, err := hid.NewManager().OpenVIDPID(vendorID, productID)
	if err != nil {
		return nil, err
	}

	stream, err := hid.NewStream(dev, reportID)
	if err != nil {
		dev.Close()
		return nil, err
	}

	d, err := Connect(ctx, NewStreamInterface(stream), opts...)
	if err != nil {
		stream.Close()
		return nil, fmt.Errorf("hid %04x:%04x: %w", vendorID, productID, err)
	}
	return d, nil
}

// ListHID enumerates HID devices.
func ListHID() ([]hid.Info, error) {
	return hid.NewManager().List()
}
