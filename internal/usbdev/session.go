// Package usbdev implements the Device Session (C1): it locates the sensor
// by USB vendor/product ID, claims its interface, and runs the fixed
// descriptor-read control-transfer sequence the device expects before any
// bulk transfer will succeed.
package usbdev

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/thermview/thermcore/internal/constants"
	"github.com/thermview/thermcore/internal/interfaces"
)

// ControlStep describes one entry in the fixed ten-transfer open sequence
// (§6). RequestType/Request/Value/Index/Length mirror the USB control
// transfer's bmRequestType/bRequest/wValue/wIndex/wLength fields exactly.
type ControlStep struct {
	RequestType uint8
	Request     uint8
	Value       uint16
	Index       uint16
	Length      uint16
}

// OpenSequence is the fixed sequence of control transfers the device
// requires at open, in order. Entry 8 is the SET_CONFIGURATION request
// (request 0x09); every other entry is a descriptor read (request 0x06).
var OpenSequence = []ControlStep{
	{RequestType: controlRequestTypeIn, Request: 0x06, Value: 0x0100, Index: 0x0000, Length: 0x12},
	{RequestType: controlRequestTypeIn, Request: 0x06, Value: 0x0200, Index: 0x0000, Length: 0x09},
	{RequestType: controlRequestTypeIn, Request: 0x06, Value: 0x0200, Index: 0x0000, Length: 0x20},
	{RequestType: controlRequestTypeIn, Request: 0x06, Value: 0x0300, Index: 0x0000, Length: 0xff},
	{RequestType: controlRequestTypeIn, Request: 0x06, Value: 0x0302, Index: 0x0409, Length: 0xff},
	{RequestType: controlRequestTypeIn, Request: 0x06, Value: 0x0301, Index: 0x0409, Length: 0xff},
	{RequestType: controlRequestTypeIn, Request: 0x06, Value: 0x0303, Index: 0x0409, Length: 0xff},
	{RequestType: 0x00, Request: 0x09, Value: 0x0001, Index: 0x0000, Length: 0x00},
	{RequestType: controlRequestTypeIn, Request: 0x06, Value: 0x0304, Index: 0x0409, Length: 0xff},
	{RequestType: controlRequestTypeIn, Request: 0x06, Value: 0x0305, Index: 0x0409, Length: 0xff},
}

// Session is an open handle to the sensor's USB device node, usable by the
// transfer engine (C3) to submit bulk reads and the one-time config write.
type Session struct {
	fd   int
	path string

	mu     sync.Mutex
	closed bool
}

// Config identifies the device to open; callers normally pass
// DefaultConfig().
type Config struct {
	VendorID        uint16
	ProductID       uint16
	InterfaceNumber int
}

// DefaultConfig returns the sensor's fixed identity (§6).
func DefaultConfig() Config {
	return Config{
		VendorID:        constants.VendorID,
		ProductID:       constants.ProductID,
		InterfaceNumber: constants.InterfaceNumber,
	}
}

// Open locates the first device matching cfg's vendor/product ID, claims
// its interface, and runs the fixed control-transfer sequence. Any
// non-negative control transfer status counts as success; a negative
// status or a failed device lookup/claim is fatal (§4.1).
func Open(cfg Config, logger interfaces.Logger) (*Session, error) {
	devPath, err := findDevice(cfg.VendorID, cfg.ProductID)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Open(devPath, unix.O_RDWR, 0)
	if err != nil {
		return nil, deviceErrorf("OPEN_SESSION", devID(cfg), unwrapErrno(err), "open %s: %v", devPath, err)
	}

	if err := claimInterface(fd, cfg.InterfaceNumber); err != nil {
		unix.Close(fd)
		return nil, deviceErrorf("CLAIM_INTERFACE", devID(cfg), unwrapErrno(err), "claim interface %d: %v", cfg.InterfaceNumber, err)
	}

	s := &Session{fd: fd, path: devPath}

	for i, step := range OpenSequence {
		if _, err := s.controlTransfer(step); err != nil {
			unix.Close(fd)
			return nil, deviceErrorf("CONTROL_TRANSFER", devID(cfg), unwrapErrno(err), "step %d/%d: %v", i+1, len(OpenSequence), err)
		}
		if logger != nil {
			logger.Debugf("control transfer %d/%d complete", i+1, len(OpenSequence))
		}
	}

	if logger != nil {
		logger.Infof("device session opened: %s", devPath)
	}
	return s, nil
}

// Fd returns the underlying usbdevfs file descriptor, used by the transfer
// engine (C3) to submit asynchronous bulk URBs.
func (s *Session) Fd() int {
	return s.fd
}

// WriteConfig sends the 64-byte configuration record once, via a
// synchronous bulk-OUT transfer, with no timeout (§4.3).
func (s *Session) WriteConfig(record []byte) error {
	if len(record) != constants.ConfigRecordLength {
		return fmt.Errorf("usbdev: config record must be %d bytes, got %d", constants.ConfigRecordLength, len(record))
	}

	xfer := bulkTransfer{
		Endpoint: uint32(constants.EndpointOut),
		Length:   uint32(len(record)),
		Timeout:  0,
		Data:     uint64(uintptr(unsafe.Pointer(&record[0]))),
	}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(s.fd), ioctlUSBDEVFSBulk, uintptr(unsafe.Pointer(&xfer)))
	if errno != 0 {
		return fmt.Errorf("usbdev: write config: %w", errno)
	}
	return nil
}

// Close releases the claimed interface and the device node. Idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	unix.Syscall(unix.SYS_IOCTL, uintptr(s.fd), ioctlUSBDEVFSReleaseInterface, 0)
	return unix.Close(s.fd)
}

func (s *Session) controlTransfer(step ControlStep) (int, error) {
	buf := make([]byte, step.Length)
	var dataPtr uint64
	if step.Length > 0 {
		dataPtr = uint64(uintptr(unsafe.Pointer(&buf[0])))
	}

	xfer := ctrlTransfer{
		RequestType: step.RequestType,
		Request:     step.Request,
		Value:       step.Value,
		Index:       step.Index,
		Length:      step.Length,
		Timeout:     0,
		Data:        dataPtr,
	}

	n, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(s.fd), ioctlUSBDEVFSControl, uintptr(unsafe.Pointer(&xfer)))
	if errno != 0 {
		return 0, errno
	}
	return int(n), nil
}

func claimInterface(fd int, iface int) error {
	n := uint32(iface)
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), ioctlUSBDEVFSClaimInterface, uintptr(unsafe.Pointer(&n)))
	if errno != 0 {
		return errno
	}
	return nil
}

// findDevice scans /sys/bus/usb/devices for the first node whose
// idVendor/idProduct match, and returns the corresponding /dev/bus/usb node.
func findDevice(vendor, product uint16) (string, error) {
	const sysBase = "/sys/bus/usb/devices"
	entries, err := os.ReadDir(sysBase)
	if err != nil {
		return "", fmt.Errorf("usbdev: read %s: %w", sysBase, err)
	}

	for _, e := range entries {
		dir := filepath.Join(sysBase, e.Name())
		gotVendor, ok := readHexID(filepath.Join(dir, "idVendor"))
		if !ok || gotVendor != vendor {
			continue
		}
		gotProduct, ok := readHexID(filepath.Join(dir, "idProduct"))
		if !ok || gotProduct != product {
			continue
		}

		busnum, ok1 := readDecimal(filepath.Join(dir, "busnum"))
		devnum, ok2 := readDecimal(filepath.Join(dir, "devnum"))
		if !ok1 || !ok2 {
			continue
		}
		return fmt.Sprintf("/dev/bus/usb/%03d/%03d", busnum, devnum), nil
	}

	return "", fmt.Errorf("usbdev: no device found for vendor=0x%04x product=0x%04x: %w", vendor, product, syscall.ENODEV)
}

func readHexID(path string) (uint16, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(data)), 16, 16)
	if err != nil {
		return 0, false
	}
	return uint16(v), true
}

func readDecimal(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, false
	}
	return v, true
}

func devID(cfg Config) string {
	return fmt.Sprintf("%04x:%04x", cfg.VendorID, cfg.ProductID)
}

func unwrapErrno(err error) syscall.Errno {
	if errno, ok := err.(syscall.Errno); ok {
		return errno
	}
	return 0
}

func deviceErrorf(op, devID string, errno syscall.Errno, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	return &SessionError{Op: op, DevID: devID, Errno: errno, Msg: msg}
}

// SessionError is a structured error returned by Open, mirroring the
// acquisition core's top-level *Error (kept package-local to avoid an
// import cycle with the public package).
type SessionError struct {
	Op    string
	DevID string
	Errno syscall.Errno
	Msg   string
}

func (e *SessionError) Error() string {
	if e.Errno != 0 {
		return fmt.Sprintf("usbdev: %s dev=%s: %s (errno %d)", e.Op, e.DevID, e.Msg, e.Errno)
	}
	return fmt.Sprintf("usbdev: %s dev=%s: %s", e.Op, e.DevID, e.Msg)
}

func (e *SessionError) Unwrap() error {
	if e.Errno != 0 {
		return e.Errno
	}
	return nil
}

