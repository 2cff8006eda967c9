package hid

import (
	"errors"
	"fmt"

	usbhid "rafaelmartins.com/p/usbhid"
)

type usbManager struct{}

func (m *usbManager) List() ([]Info, error) {
	devs, err := usbhid.Enumerate(nil)
	if err != nil {
		return nil, err
	}
	out := make([]Info, 0, len(devs))
	for _, d := range devs {
		out = append(out, Info{
			Path:         d.Path(),
			VendorID:     d.VendorId(),
			ProductID:    d.ProductId(),
			Serial:       d.SerialNumber(),
			Product:      d.Product(),
			Manufacturer: d.Manufacturer(),
		})
	}
	return out, nil
}

type usbDevice struct{ d *usbhid.Device }

func (m *usbManager) Open(info Info) (Device, error) {
	return m.get(func(dev *usbhid.Device) bool {
		return dev.Path() == info.Path
	})
}

func (m *usbManager) OpenVIDPID(vendorID, productID uint16) (Device, error) {
	return m.get(func(dev *usbhid.Device) bool {
		return dev.VendorId() == vendorID && dev.ProductId() == productID
	})
}

func (m *usbManager) get(filter func(*usbhid.Device) bool) (Device, error) {
	d, err := usbhid.Get(filter, true, false)
	if errors.Is(err, usbhid.ErrNoDeviceFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("hid open: %w", err)
	}
	return &usbDevice{d}, nil
}

func (d *usbDevice) WriteReport(r Report) error {
	return d.d.SetOutputReport(r.ID, r.Data)
}

func (d *usbDevice) ReadReport() (Report, error) {
	id, buf, err := d.d.GetInputReport()
	if err != nil {
		return Report{}, err
	}
	return Report{ID: id, Data: buf}, nil
}

func (d *usbDevice) ReportLens() (int, int) {
	return int(d.d.GetInputReportLength()), int(d.d.GetOutputReportLength())
}

func (d *usbDevice) Close() error { return d.d.Close() }
