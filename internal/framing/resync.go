// Package framing implements the Frame Resynchronizer (C4): it consumes a
// continuous byte stream and locates fixed-length, sentinel-delimited
// frames within it, recovering alignment automatically after any split or
// corruption.
package framing

import (
	"bytes"

	"github.com/thermview/thermcore/internal/constants"
	"github.com/thermview/thermcore/internal/interfaces"
)

// ByteSource is the pull side of the Byte Queue (C2) that the
// Resynchronizer drains. Read blocks until n bytes are available or the
// source is closed, in which case it returns fewer than n bytes.
type ByteSource interface {
	Read(n int) []byte
}

// Resynchronizer is the Frame Resynchronizer (C4). It is not safe for
// concurrent use: the spec assigns it a single consumer (W2).
type Resynchronizer struct {
	source    ByteSource
	carryover []byte
	observer  interfaces.Observer
}

// New builds a Resynchronizer draining source. observer may be nil.
func New(source ByteSource, observer interfaces.Observer) *Resynchronizer {
	if observer == nil {
		observer = noopObserver{}
	}
	return &Resynchronizer{source: source, observer: observer}
}

// NextFrame runs one pass of the read_frame() algorithm (§4.4) and returns
// the next complete, sentinel-validated frame, or ok=false if no frame is
// available yet (either a resync miss or the source ran dry).
func (r *Resynchronizer) NextFrame() (frame []byte, ok bool) {
	working := r.refill(r.carryover)

	idx := bytes.Index(working, constants.StartSentinel[:])
	if idx < 0 {
		r.carryover = lastN(working, len(constants.StartSentinel)-1)
		r.observer.ObserveResyncMiss()
		return nil, false
	}
	working = working[idx:]

	working = r.refill(working)
	if len(working) < constants.FrameLength {
		r.carryover = working
		return nil, false
	}

	if bytes.Equal(working[constants.FrameLength-len(constants.EndSentinel):constants.FrameLength], constants.EndSentinel[:]) {
		r.carryover = nil
		return working[:constants.FrameLength], true
	}

	r.carryover = append([]byte(nil), working[len(constants.StartSentinel):]...)
	r.observer.ObserveResyncMiss()
	return nil, false
}

// refill appends bytes pulled from the source until buf reaches
// constants.FrameLength, or the source runs dry.
func (r *Resynchronizer) refill(buf []byte) []byte {
	for len(buf) < constants.FrameLength {
		need := constants.FrameLength - len(buf)
		chunk := r.source.Read(need)
		if len(chunk) == 0 {
			break
		}
		buf = append(buf, chunk...)
	}
	return buf
}

func lastN(buf []byte, n int) []byte {
	if n <= 0 {
		return nil
	}
	if len(buf) <= n {
		return append([]byte(nil), buf...)
	}
	return append([]byte(nil), buf[len(buf)-n:]...)
}

type noopObserver struct{}

func (noopObserver) ObserveFrame(uint64) {}
func (noopObserver) ObserveResyncMiss() {}
func (noopObserver) ObserveQueueDrop()  {}
func (noopObserver) ObserveCalibration() {}
