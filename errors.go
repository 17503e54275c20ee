package thermcore

import (
	"errors"
	"fmt"
	"syscall"
)

// Error represents a structured acquisition-core error with context and
// errno mapping.
type Error struct {
	Op    string    // Operation that failed (e.g., "OPEN_SESSION", "READ_FRAME")
	DevID string    // Device identity (VID:PID string, empty if not applicable)
	Queue int       // Transfer slot number (-1 if not applicable)
	Code  ErrorCode // High-level error category
	Errno syscall.Errno
	Msg   string
	Inner error
}

func (e *Error) Error() string {
	var parts []string

	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.DevID != "" {
		parts = append(parts, fmt.Sprintf("dev=%s", e.DevID))
	}
	if e.Queue >= 0 {
		parts = append(parts, fmt.Sprintf("slot=%d", e.Queue))
	}
	if e.Errno != 0 {
		parts = append(parts, fmt.Sprintf("errno=%d", e.Errno))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}

	if len(parts) > 0 {
		return fmt.Sprintf("thermcore: %s (%s)", msg, parts[0])
	}
	return fmt.Sprintf("thermcore: %s", msg)
}

func (e *Error) Unwrap() error {
	return e.Inner
}

// Is provides errors.Is support, including against the legacy SentinelError
// constants.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if se, ok := target.(SentinelError); ok {
		return e.Code == ErrorCode(se)
	}
	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}
	return false
}

// ErrorCode represents high-level error categories (§7).
type ErrorCode string

const (
	ErrCodeDeviceNotFound   ErrorCode = "device not found"
	ErrCodeDeviceBusy       ErrorCode = "device busy"
	ErrCodeInvalidParams    ErrorCode = "invalid parameters"
	ErrCodePermissionDenied ErrorCode = "permission denied"
	ErrCodeTransferFailed   ErrorCode = "bulk transfer failed"
	ErrCodeResyncFailed     ErrorCode = "frame resynchronization failed"
	ErrCodeBadFrameLength   ErrorCode = "frame has unexpected length"
	ErrCodeQueueOverflow    ErrorCode = "byte queue overflow"
	ErrCodeTimeout          ErrorCode = "timeout"
	ErrCodeClosed           ErrorCode = "session closed"
)

// SentinelError is a flat string-const error type for simple comparisons,
// kept alongside the structured Error.
type SentinelError string

func (e SentinelError) Error() string {
	return string(e)
}

const (
	ErrDeviceNotFound   SentinelError = "device not found"
	ErrDeviceBusy       SentinelError = "device busy"
	ErrInvalidParams    SentinelError = "invalid parameters"
	ErrPermissionDenied SentinelError = "permission denied"
	ErrSessionClosed    SentinelError = "session closed"
)

// NewError creates a new structured error.
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Queue: -1, Code: code, Msg: msg}
}

// NewErrorWithErrno creates a new structured error carrying a kernel errno.
func NewErrorWithErrno(op string, code ErrorCode, errno syscall.Errno) *Error {
	return &Error{Op: op, Queue: -1, Code: code, Errno: errno, Msg: errno.Error()}
}

// NewDeviceError creates a device-scoped error.
func NewDeviceError(op, devID string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, DevID: devID, Queue: -1, Code: code, Msg: msg}
}

// NewTransferError creates a transfer-slot-scoped error (C3).
func NewTransferError(op, devID string, slot int, code ErrorCode, msg string) *Error {
	return &Error{Op: op, DevID: devID, Queue: slot, Code: code, Msg: msg}
}

// WrapError wraps an existing error with acquisition-core context.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}

	if se, ok := inner.(*Error); ok {
		return &Error{
			Op: op, DevID: se.DevID, Queue: se.Queue,
			Code: se.Code, Errno: se.Errno, Msg: se.Msg, Inner: se.Inner,
		}
	}

	if errno, ok := inner.(syscall.Errno); ok {
		return &Error{
			Op: op, Queue: -1, Code: mapErrnoToCode(errno),
			Errno: errno, Msg: errno.Error(), Inner: inner,
		}
	}

	return &Error{Op: op, Queue: -1, Code: ErrCodeTransferFailed, Msg: inner.Error(), Inner: inner}
}

func mapErrnoToCode(errno syscall.Errno) ErrorCode {
	switch errno {
	case syscall.ENOENT, syscall.ENODEV:
		return ErrCodeDeviceNotFound
	case syscall.EBUSY:
		return ErrCodeDeviceBusy
	case syscall.EINVAL, syscall.E2BIG:
		return ErrCodeInvalidParams
	case syscall.EPERM, syscall.EACCES:
		return ErrCodePermissionDenied
	case syscall.ETIMEDOUT:
		return ErrCodeTimeout
	default:
		return ErrCodeTransferFailed
	}
}

// IsCode reports whether err is a structured Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsErrno reports whether err is a structured Error carrying the given errno.
func IsErrno(err error, errno syscall.Errno) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Errno == errno
	}
	return false
}
