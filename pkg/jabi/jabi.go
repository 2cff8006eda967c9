// Package jabi is a client for jabi USB/UART peripheral adapters. Every operation is one
// request/response exchange addressed to a peripheral, an instance of that peripheral
// and one of its functions.
package jabi

import "fmt"

// Peripheral identifiers.
const (
	PeriphMetadata uint16 = 0
	PeriphCAN      uint16 = 1
	PeriphI2C      uint16 = 2
	PeriphGPIO     uint16 = 3
	PeriphPWM      uint16 = 4
	PeriphADC      uint16 = 5
	PeriphDAC      uint16 = 6
	PeriphSPI      uint16 = 7
	PeriphUART     uint16 = 8
	PeriphLIN      uint16 = 9
)

var periphNames = []string{"metadata", "can", "i2c", "gpio", "pwm", "adc", "dac", "spi", "uart", "lin"}

// PeriphName returns the short name of a peripheral identifier.
func PeriphName(id uint16) string {
	if int(id) < len(periphNames) {
		return periphNames[id]
	}
	return fmt.Sprintf("periph(%d)", id)
}

// Peripherals lists every known peripheral identifier.
func Peripherals() []uint16 {
	ids := make([]uint16, len(periphNames))
	for i := range ids {
		ids[i] = uint16(i)
	}
	return ids
}

// Metadata functions.
const (
	fnMetadataSerial      uint16 = 0
	fnMetadataNumInst     uint16 = 1
	fnMetadataEcho        uint16 = 2
	fnMetadataReqMaxSize  uint16 = 3
	fnMetadataRespMaxSize uint16 = 4
)

// LIN functions.
const (
	fnLINSetMode   uint16 = 0
	fnLINSetRate   uint16 = 1
	fnLINSetFilter uint16 = 2
	fnLINMode      uint16 = 3
	fnLINStatus    uint16 = 4
	fnLINWrite     uint16 = 5
	fnLINRead      uint16 = 6
)
