package usbdev

import "unsafe"

// Linux usbdevfs ioctl request numbers (linux/usbdevice_fs.h). golang.org/x/sys/unix
// does not export these (they live in a header outside its generated const
// tables), so they are pinned here the way the teacher pins ublk's own
// UAPI ioctl numbers in internal/uapi.
const (
	ioctlUSBDEVFSControl         = 0xc0185500
	ioctlUSBDEVFSBulk            = 0xc0185502
	ioctlUSBDEVFSClaimInterface  = 0x8004550f
	ioctlUSBDEVFSReleaseInterface = 0x80045510
	ioctlUSBDEVFSSubmitURB       = 0x8038550a
	ioctlUSBDEVFSReapURBNDelay   = 0x4008550d
	ioctlUSBDEVFSDiscardURB      = 0x0000550b
)

// ctrlTransfer mirrors struct usbdevfs_ctrltransfer (linux/usbdevice_fs.h).
type ctrlTransfer struct {
	RequestType uint8
	Request     uint8
	Value       uint16
	Index       uint16
	Length      uint16
	Timeout     uint32 // milliseconds, 0 = unlimited
	Data        uint64 // pointer to response buffer
}

var _ [24]byte = [unsafe.Sizeof(ctrlTransfer{})]byte{}

// bulkTransfer mirrors struct usbdevfs_bulktransfer.
type bulkTransfer struct {
	Endpoint uint32
	Length   uint32
	Timeout  uint32
	Data     uint64
}

var _ [24]byte = [unsafe.Sizeof(bulkTransfer{})]byte{}

// urb mirrors the subset of struct usbdevfs_urb needed to submit and reap an
// asynchronous bulk transfer. The kernel struct carries a union and an
// embedded iso-packet-descriptor array that single bulk transfers never use;
// they are omitted here the same way UblksrvCtrlCmd omits kernel fields the
// control path never touches.
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

const (
	usbdevfsURBTypeBulk = 3
)

// requestType bit for an IN (device-to-host) control transfer.
const controlRequestTypeIn = 0x80
