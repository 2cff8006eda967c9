package jabi

import (
	"errors"
	"fmt"
)

var (
	// ErrPacketFormat reports a malformed request or response.
	ErrPacketFormat = errors.New("jabi: packet format error")

	// ErrPacketTimeout reports an adapter that stopped responding mid-exchange.
	ErrPacketTimeout = errors.New("jabi: packet timeout")
)

// Retcode is the status an adapter returns with every response.
type Retcode int16

const (
	RetcodeOK                Retcode = 0
	RetcodeNotSupported      Retcode = 1
	RetcodeInvalidArgsFormat Retcode = 2
	RetcodeUninitialized     Retcode = 3
	RetcodePeripheral        Retcode = 4
	RetcodeInvalidArgs       Retcode = 5
	RetcodeBusy              Retcode = 6
	RetcodeTimeout           Retcode = 7
)

func (c Retcode) String() string {
	switch c {
	case RetcodeOK:
		return "ok"
	case RetcodeNotSupported:
		return "not supported"
	case RetcodeInvalidArgsFormat:
		return "invalid args format"
	case RetcodeUninitialized:
		return "uninitialized"
	case RetcodePeripheral:
		return "peripheral error"
	case RetcodeInvalidArgs:
		return "invalid args"
	case RetcodeBusy:
		return "busy"
	case RetcodeTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("unknown (%d)", int16(c))
	}
}

// RetcodeError is returned when the adapter answers with a non-zero retcode.
type RetcodeError struct {
	Request Request
	Code    Retcode
}

func (e *RetcodeError) Error() string {
	return fmt.Sprintf("jabi: %s[%d] function %d: %s", PeriphName(e.Request.Periph), e.Request.Index, e.Request.Fn, e.Code)
}

// IsRetcode reports whether err carries the given adapter retcode.
func IsRetcode(err error, code Retcode) bool {
	var re *RetcodeError
	return errors.As(err, &re) && re.Code == code
}
