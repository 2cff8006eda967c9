// Package hid carries byte streams over HID input and output reports.
package hid

import "errors"

var ErrNotFound = errors.New("hid: no matching device")

// Report is one HID report without its length prefix.
type Report struct {
	ID   byte
	Data []byte
}

// Device represents an opened HID device capable of report I/O.
type Device interface {
	WriteReport(r Report) error
	ReadReport() (Report, error)

	// ReportLens returns the input and output report lengths from the descriptor.
	ReportLens() (in, out int)
	Close() error
}

// Info represents a HID device descriptor.
type Info struct {
	Path         string
	VendorID     uint16
	ProductID    uint16
	Serial       string
	Product      string
	Manufacturer string
}

// Manager enumerates and opens HID devices.
type Manager interface {
	List() ([]Info, error)
	Open(info Info) (Device, error)
	OpenVIDPID(vendorID, productID uint16) (Device, error)
}

func NewManager() Manager {
	return &usbManager{}
}
