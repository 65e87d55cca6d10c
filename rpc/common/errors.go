package common

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is the failure type returned by every layer of the protocol client.
// It wraps an error code (of type ErrCode) and a message. For protocol errors
// Msg is the text sent by the server, for unrecognized statuses Status holds the raw byte.
type Error struct {
	Code   ErrCode // The error code
	Status Status  // Raw status byte (only for ErrCProtocol and ErrCUnrecognizedStatus)
	Msg    string  // The error message
	Cause  error   // Underlying error, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Code {
	case ErrCProtocol:
		return fmt.Sprintf("Error: %s", e.Msg)
	case ErrCUnrecognizedStatus:
		return fmt.Sprintf("unrecognized status %d", uint8(e.Status))
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
// This makes the sentinel values below usable with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// NewErrorf creates a new Error with a formatted message.
func NewErrorf(code ErrCode, format string, args ...interface{}) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// NewProtocolError creates the error for a status 2 response carrying msg
func NewProtocolError(msg string) *Error {
	return &Error{Code: ErrCProtocol, Status: StatusError, Msg: msg}
}

// NewUnrecognizedStatusError creates the error for a response with an unknown status byte
func NewUnrecognizedStatusError(status Status) *Error {
	return &Error{Code: ErrCUnrecognizedStatus, Status: status}
}

// WrapError creates a new Error with the given code that wraps cause
func WrapError(code ErrCode, msg string, cause error) *Error {
	return &Error{Code: code, Msg: msg, Cause: cause}
}

// --------------------------------------------------------------------------
// Error Codes
// --------------------------------------------------------------------------

type ErrCode uint8

const (
	ErrCUnknown            ErrCode = iota // 0: Unclassified failure.
	ErrCTimeout                           // 1: No datagram arrived within the configured window.
	ErrCFraming                           // 2: Buffer too short or not consumed exactly.
	ErrCProtocol                          // 3: Server answered with status 2.
	ErrCUnrecognizedStatus                // 4: Server answered with a status other than 0 and 2.
	ErrCInvalidRequest                    // 5: The request could not be encoded (e.g. database name too long).
)

// String returns the string representation of an ErrCode.
func (c ErrCode) String() string {
	switch c {
	case ErrCTimeout:
		return "timeout"
	case ErrCFraming:
		return "framing error"
	case ErrCProtocol:
		return "protocol error"
	case ErrCUnrecognizedStatus:
		return "unrecognized status"
	case ErrCInvalidRequest:
		return "invalid request"
	default:
		return "unknown error"
	}
}

// Sentinel values for errors.Is
var (
	ErrTimeout            = &Error{Code: ErrCTimeout}
	ErrFraming            = &Error{Code: ErrCFraming}
	ErrProtocol           = &Error{Code: ErrCProtocol}
	ErrUnrecognizedStatus = &Error{Code: ErrCUnrecognizedStatus}
	ErrInvalidRequest     = &Error{Code: ErrCInvalidRequest}
)
