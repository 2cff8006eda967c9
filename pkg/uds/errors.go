package uds

import (
	"errors"
	"fmt"
)

// ErrUnexpectedResponse matches every *UnexpectedResponseError.
var ErrUnexpectedResponse = errors.New("uds: unexpected response")

// Negative response codes.
const (
	NRCGeneralReject                           byte = 0x10
	NRCServiceNotSupported                     byte = 0x11
	NRCSubFunctionNotSupported                 byte = 0x12
	NRCIncorrectMessageLengthOrInvalidFormat   byte = 0x13
	NRCResponseTooLong                         byte = 0x14
	NRCBusyRepeatRequest                       byte = 0x21
	NRCConditionsNotCorrect                    byte = 0x22
	NRCRequestSequenceError                    byte = 0x24
	NRCRequestOutOfRange                       byte = 0x31
	NRCSecurityAccessDenied                    byte = 0x33
	NRCGeneralProgrammingFailure               byte = 0x72
	NRCRequestCorrectlyReceivedResponsePending byte = 0x78
	NRCServiceNotSupportedInActiveSession      byte = 0x7F
)

var nrcNames = map[byte]string{
	NRCGeneralReject:                           "generalReject",
	NRCServiceNotSupported:                     "serviceNotSupported",
	NRCSubFunctionNotSupported:                 "subFunctionNotSupported",
	NRCIncorrectMessageLengthOrInvalidFormat:   "incorrectMessageLengthOrInvalidFormat",
	NRCResponseTooLong:                         "responseTooLong",
	NRCBusyRepeatRequest:                       "busyRepeatRequest",
	NRCConditionsNotCorrect:                    "conditionsNotCorrect",
	NRCRequestSequenceError:                    "requestSequenceError",
	NRCRequestOutOfRange:                       "requestOutOfRange",
	NRCSecurityAccessDenied:                    "securityAccessDenied",
	NRCGeneralProgrammingFailure:               "generalProgrammingFailure",
	NRCRequestCorrectlyReceivedResponsePending: "requestCorrectlyReceivedResponsePending",
	NRCServiceNotSupportedInActiveSession:      "serviceNotSupportedInActiveSession",
}

// NRCName returns a readable name for a negative response code.
func NRCName(nrc byte) string {
	if name, ok := nrcNames[nrc]; ok {
		return name
	}
	return fmt.Sprintf("0x%02X", nrc)
}

// UnexpectedResponseError is returned when a response does not match its request.
type UnexpectedResponseError struct {
	// Service is the SID of the request.
	Service byte

	Reason   string
	Response []byte

	// NRC is set when the responder sent a negative response.
	NRC byte
}

func (e *UnexpectedResponseError) Error() string {
	if e.NRC != 0 {
		return fmt.Sprintf("uds: %s: negative response %s (0x%02X)", ServiceName(e.Service), NRCName(e.NRC), e.NRC)
	}
	return fmt.Sprintf("uds: %s: unexpected response % X: %s", ServiceName(e.Service), e.Response, e.Reason)
}

func (e *UnexpectedResponseError) Is(target error) bool {
	return target == ErrUnexpectedResponse
}

// Negative reports whether the responder rejected the request.
func (e *UnexpectedResponseError) Negative() bool {
	return e.NRC != 0
}

func unexpected(service byte, resp []byte, format string, args ...any) error {
	return &UnexpectedResponseError{
		Service:  service,
		Reason:   fmt.Sprintf(format, args...),
		Response: resp,
	}
}

// checkHeader validates the leading SID of a response, decoding negative responses.
func checkHeader(service byte, resp []byte, minLen int) error {
	if len(resp) >= 3 && resp[0] == NegativeResponse && resp[1] == service {
		return &UnexpectedResponseError{
			Service:  service,
			Reason:   "negative response",
			Response: resp,
			NRC:      resp[2],
		}
	}
	if len(resp) < minLen {
		return unexpected(service, resp, "length %d, want at least %d", len(resp), minLen)
	}
	if want := PositiveResponse(service); resp[0] != want {
		return unexpected(service, resp, "response SID 0x%02X, want 0x%02X", resp[0], want)
	}
	return nil
}
