// Package uart opens serial ports for the adapter's UART interface.
package uart

import (
	"fmt"
	"log/slog"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

const (
	DefaultBaudRate = 115200
	DefaultTimeout  = 2 * time.Second
)

type timeoutError struct{}

func (timeoutError) Error() string { return "uart: read timeout" }
func (timeoutError) Timeout() bool { return true }

// ErrTimeout is returned by Read when no byte arrives within the read timeout.
var ErrTimeout error = timeoutError{}

// Port is an 8N1 serial port without flow control.
type Port struct {
	port serial.Port
	name string
}

// Open opens name at baud (DefaultBaudRate when zero). A zero timeout selects DefaultTimeout.
func Open(name string, baud int, timeout time.Duration) (*Port, error) {
	if baud == 0 {
		baud = DefaultBaudRate
	}
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("uart: failed to open %s: %w", name, err)
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("uart: failed to set timeout: %w", err)
	}
	if err := port.ResetInputBuffer(); err != nil {
		slog.Warn("failed to flush uart input", slog.String("port", name), slog.Any("error", err))
	}

	slog.Debug("uart opened", slog.String("port", name), slog.Int("baud", baud))
	return &Port{port: port, name: name}, nil
}

func (p *Port) Name() string {
	return p.name
}

func (p *Port) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// Read returns ErrTimeout instead of a zero length read.
func (p *Port) Read(b []byte) (int, error) {
	n, err := p.port.Read(b)
	if err != nil {
		return n, err
	}
	if n == 0 && len(b) > 0 {
		return 0, ErrTimeout
	}
	return n, nil
}

func (p *Port) Close() error {
	return p.port.Close()
}

// PortInfo describes a serial port found on the host.
type PortInfo struct {
	Name         string
	IsUSB        bool
	VendorID     string
	ProductID    string
	SerialNumber string
	Product      string
}

// List returns the serial ports present on the host.
func List() ([]PortInfo, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("uart: list ports: %w", err)
	}

	out := make([]PortInfo, 0, len(ports))
	for _, p := range ports {
		out = append(out, PortInfo{
			Name:         p.Name,
			IsUSB:        p.IsUSB,
			VendorID:     p.VID,
			ProductID:    p.PID,
			SerialNumber: p.SerialNumber,
			Product:      p.Product,
		})
	}
	return out, nil
}
