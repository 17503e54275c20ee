// Package wire implements the binary layouts of the Frame (C5) and the
// Config Record (C8): fixed-offset structs marshaled and unmarshaled with
// manual little-endian field access, the same style as the teacher's
// internal/uapi marshal functions rather than reflection or unsafe casts.
package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/thermview/thermcore/internal/constants"
)

// ErrBadFrameLength is returned by ParseFrame when the input is not
// exactly constants.FrameLength bytes.
type ErrBadFrameLength struct {
	Got int
}

func (e ErrBadFrameLength) Error() string {
	return fmt.Sprintf("wire: bad frame length: got %d bytes, want %d", e.Got, constants.FrameLength)
}

// Frame is the parsed record for one sensor frame (§3/§4.5). PixelPlane is
// decoded into its own []uint16 (not reinterpreted in place over buf),
// since Go cannot safely reinterpret a []byte as a []uint16 without
// assuming host endianness matches the wire.
type Frame struct {
	ID                uint32
	SensorTemperature uint16
	FrameNumber       uint16
	PixelPlane        []uint16 // length constants.PixelCount, row-major 384x288
}

// field offsets and lengths per §3's frame layout table.
const (
	offID          = 6
	offSensorTemp  = 26
	offFrameNumber = 48
)

// ParseFrame decodes a sentinel-validated, exactly constants.FrameLength
// byte frame (as produced by the resynchronizer) into a Frame. It does not
// re-validate sentinels: that is the resynchronizer's job. Scalars and
// pixel counts are decoded as little-endian with encoding/binary, which
// yields the same values whatever the host byte order.
func ParseFrame(buf []byte) (Frame, error) {
	if len(buf) != constants.FrameLength {
		return Frame{}, ErrBadFrameLength{Got: len(buf)}
	}

	f := Frame{
		ID:                binary.LittleEndian.Uint32(buf[offID : offID+4]),
		SensorTemperature: binary.LittleEndian.Uint16(buf[offSensorTemp : offSensorTemp+2]),
		FrameNumber:       binary.LittleEndian.Uint16(buf[offFrameNumber : offFrameNumber+2]),
	}

	plane := buf[constants.PixelPlaneOffset : constants.PixelPlaneOffset+constants.PixelPlaneByteLength]
	f.PixelPlane = make([]uint16, constants.PixelCount)
	for i := range f.PixelPlane {
		f.PixelPlane[i] = binary.LittleEndian.Uint16(plane[i*2 : i*2+2])
	}

	return f, nil
}
