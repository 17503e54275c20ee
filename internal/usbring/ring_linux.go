//go:build linux

package usbring

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/thermview/thermcore/internal/constants"
)

// Linux usbdevfs ioctl request numbers (linux/usbdevice_fs.h), pinned the
// same way internal/usbdev pins the control/bulk/claim numbers.
const (
	ioctlUSBDEVFSBulk          = 0xc0185502
	ioctlUSBDEVFSSubmitURB     = 0x8038550a
	ioctlUSBDEVFSReapURBNDelay = 0x4008550d
)

const usbdevfsURBTypeBulk = 3

// bulkTransfer mirrors struct usbdevfs_bulktransfer.
type bulkTransfer struct {
	Endpoint uint32
	Length   uint32
	Timeout  uint32
	Data     uint64
}

// urb mirrors the subset of struct usbdevfs_urb needed for a single bulk
// transfer (no iso packets, no union beyond the buffer pointer).
type urb struct {
	Type          uint8
	Endpoint      uint8
	Status        int32
	Flags         uint32
	Buffer        uint64
	BufferLength  int32
	ActualLength  int32
	StartFrame    int32
	StreamIDOrPkt int32
	ErrorCount    int32
	SigNr         uint32
	UserContext   uint64
}

// linuxRing drives bulk transfers against a usbdevfs device node via
// SUBMITURB/REAPURB, the real analogue of the teacher's io_uring ring.
type linuxRing struct {
	fd int

	urbs    []urb
	pending map[uint64]*urb
}

// NewLinuxRing wraps an already-opened usbdevfs file descriptor (from
// usbdev.Session.Fd()) with the Ring contract.
func NewLinuxRing(fd int) (Ring, error) {
	return &linuxRing{fd: fd, pending: make(map[uint64]*urb)}, nil
}

func (r *linuxRing) Close() error {
	return nil
}

func (r *linuxRing) SubmitConfig(record []byte) error {
	if len(record) == 0 {
		return fmt.Errorf("usbring: empty config record")
	}
	xfer := bulkTransfer{
		Endpoint: uint32(constants.EndpointOut),
		Length:   uint32(len(record)),
		Timeout:  0,
		Data:     uint64(uintptr(unsafe.Pointer(&record[0]))),
	}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(r.fd), ioctlUSBDEVFSBulk, uintptr(unsafe.Pointer(&xfer)))
	if errno != 0 {
		return fmt.Errorf("usbring: submit config: %w", errno)
	}
	return nil
}

func (r *linuxRing) PrepareRead(buf []byte, userData uint64) error {
	if len(buf) == 0 {
		return fmt.Errorf("usbring: empty read buffer")
	}
	u := &urb{
		Type:         usbdevfsURBTypeBulk,
		Endpoint:     uint8(constants.EndpointIn),
		Buffer:       uint64(uintptr(unsafe.Pointer(&buf[0]))),
		BufferLength: int32(len(buf)),
		UserContext:  userData,
	}
	r.pending[userData] = u
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(r.fd), ioctlUSBDEVFSSubmitURB, uintptr(unsafe.Pointer(u)))
	if errno != 0 {
		delete(r.pending, userData)
		return fmt.Errorf("usbring: submit urb: %w", errno)
	}
	return nil
}

// FlushSubmissions is a no-op: PrepareRead submits immediately because
// usbdevfs has no batched-submission ioctl analogous to io_uring_enter.
func (r *linuxRing) FlushSubmissions() (uint32, error) {
	return uint32(len(r.pending)), nil
}

func (r *linuxRing) WaitForCompletion(timeoutMs int) ([]Result, error) {
	var out []Result
	// REAPURB[NDELAY] fills the caller's cell with a pointer to the
	// completed usbdevfs_urb (the one passed to SUBMITURB), not the urb
	// by value: the ioctl arg type is struct usbdevfs_urb **.
	var reapedPtr *urb
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(r.fd), ioctlUSBDEVFSReapURBNDelay, uintptr(unsafe.Pointer(&reapedPtr)))
	if errno == unix.EAGAIN {
		return out, nil
	}
	if errno != 0 {
		return out, fmt.Errorf("usbring: reap urb: %w", errno)
	}

	reaped := *reapedPtr
	delete(r.pending, reaped.UserContext)
	res := Result{UserData: reaped.UserContext, N: int(reaped.ActualLength)}
	if reaped.Status != 0 {
		res.Err = fmt.Errorf("usbring: transfer status %d", reaped.Status)
	}
	out = append(out, res)
	return out, nil
}
