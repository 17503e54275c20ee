//go:build integration

// Package integration hosts the scripted end-to-end resync+parse+calibrate
// round trip (§8 properties 1-3) plus a best-effort real-hardware open,
// gated the way the teacher gates its root/kernel-module-requiring tests.
package integration

import (
	"context"
	"encoding/binary"
	"os"
	"testing"
	"time"

	thermcore "github.com/thermview/thermcore"
	"github.com/thermview/thermcore/calibration"
	"github.com/thermview/thermcore/internal/constants"
	"github.com/thermview/thermcore/internal/framing"
	"github.com/thermview/thermcore/internal/wire"
)

func requireRoot(t *testing.T) {
	if os.Getuid() != 0 {
		t.Skip("this test requires root privileges to claim the USB interface")
	}
}

// chunkSource feeds a fixed byte slice to the resynchronizer, returning as
// many bytes as each Read requests until the slice is exhausted.
type chunkSource struct {
	data []byte
	pos  int
}

func (s *chunkSource) Read(n int) []byte {
	if s.pos >= len(s.data) {
		return nil
	}
	end := s.pos + n
	if end > len(s.data) {
		end = len(s.data)
	}
	out := s.data[s.pos:end]
	s.pos = end
	return out
}

func buildFrame(t *testing.T, id uint32, frameNumber, sensorTemp uint16, fill uint16) []byte {
	t.Helper()
	buf := make([]byte, constants.FrameLength)
	copy(buf[0:4], constants.StartSentinel[:])
	binary.LittleEndian.PutUint32(buf[6:10], id)
	binary.LittleEndian.PutUint16(buf[26:28], sensorTemp)
	binary.LittleEndian.PutUint16(buf[48:50], frameNumber)

	plane := buf[60 : 60+constants.PixelPlaneByteLength]
	for i := 0; i < constants.PixelCount; i++ {
		binary.LittleEndian.PutUint16(plane[i*2:i*2+2], fill)
	}
	copy(buf[constants.FrameLength-4:], constants.EndSentinel[:])
	return buf
}

// TestResyncParseCalibrateRoundTrip drives 60 synthetic frames (noisy
// prefix, split arbitrarily across resynchronizer refills) through the
// Frame Resynchronizer (C4), the Frame Parser (C5), and the Calibration
// Engine (C6), and checks the pipeline produces a displayable 8-bit plane
// of the right shape (§8 properties 1-3).
func TestResyncParseCalibrateRoundTrip(t *testing.T) {
	var stream []byte
	stream = append(stream, []byte{0xff, 0x00, 0x11}...) // noise before the first frame
	const total = 60
	for i := 0; i < total; i++ {
		stream = append(stream, buildFrame(t, uint32(i), uint16(i), 300, uint16(1000+i))...)
	}

	src := &chunkSource{data: stream}
	resync := framing.New(src, nil)

	var planes [][]uint16
	for attempts := 0; len(planes) < total && attempts < total*4; attempts++ {
		raw, ok := resync.NextFrame()
		if !ok {
			continue
		}
		f, err := wire.ParseFrame(raw)
		if err != nil {
			t.Fatalf("ParseFrame: %v", err)
		}
		if len(f.PixelPlane) != constants.PixelCount {
			t.Fatalf("pixel plane length = %d, want %d", len(f.PixelPlane), constants.PixelCount)
		}
		planes = append(planes, f.PixelPlane)
	}
	if len(planes) != total {
		t.Fatalf("collected %d frames, want %d", len(planes), total)
	}

	eng := calibration.New(calibration.DefaultConfig())
	if err := eng.Seed(planes[:constants.InitialCalibrationFrames]); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	for _, p := range planes[constants.InitialCalibrationFrames:] {
		processed := eng.Process(p)
		if len(processed) != constants.PixelCount {
			t.Fatalf("processed plane length = %d, want %d", len(processed), constants.PixelCount)
		}
	}
}

// TestOpenRealSensor best-effort opens a real attached sensor. In a CI
// environment without the hardware this is expected to fail at the
// device-open step; the test only verifies that failure path doesn't
// panic and returns a structured error, mirroring the teacher's
// TestIntegrationDeviceLifecycle tolerance for an expected failure.
func TestOpenRealSensor(t *testing.T) {
	requireRoot(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	session, err := thermcore.Open(ctx, thermcore.DefaultParams(), thermcore.Options{
		Display: thermcore.NewMockDisplay(),
	})
	if err != nil {
		t.Logf("expected failure without attached hardware: %v", err)
		return
	}
	defer session.Close()
	t.Logf("opened real sensor session, state=%s", session.State())
}
