package thermcore

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/thermview/thermcore/internal/constants"
	"github.com/thermview/thermcore/internal/wire"
	"github.com/thermview/thermcore/radiometric"
)

// Frame is a processed, displayable frame emitted once per application
// loop iteration (C9 step 4). Image is the 8-bit calibrated image (§6);
// Raw is the underlying sensor counts, retained for CelsiusAt.
type Frame struct {
	ID                uint32
	FrameNumber       uint16
	SensorTemperature uint16

	Image *image.Gray
	Raw   []uint16 // raw sensor counts, row-major 384x288

	Stats FrameStats
}

// FrameStats holds the lightweight per-frame statistics a display
// collaborator would otherwise have to recompute itself (supplemented
// feature, grounded on the original source's DisplayThread overlay).
type FrameStats struct {
	Min uint8
	Max uint8
	FPS float64
}

// CelsiusAt converts the raw sensor count at pixel (x, y) to degrees
// Celsius, for a mouse-hover temperature readout (supplemented feature).
func (f *Frame) CelsiusAt(x, y int) (radiometric.Celsius, error) {
	if x < 0 || x >= constants.FrameWidth || y < 0 || y >= constants.FrameHeight {
		return 0, fmt.Errorf("thermcore: pixel (%d,%d) out of bounds (%dx%d)", x, y, constants.FrameWidth, constants.FrameHeight)
	}
	idx := y*constants.FrameWidth + x
	return radiometric.FromCount(float64(f.Raw[idx])), nil
}

// Display receives every processed frame (W4, §5). Specified only at its
// interface, per §6; rendering is out of scope.
type Display interface {
	Emit(*Frame)
}

// AnnotationSink is invoked every SessionParams.AnnotationInterval
// processed frames (supplemented feature grounded on application.py's
// save_interval/frame_counter gate). Model inference itself stays out of
// scope.
type AnnotationSink interface {
	Annotate(*Frame)
}

// runInitialCalibration implements C9 step 3: consume the next 50
// successfully-parsed frames and seed the Calibration Engine.
func (s *Session) runInitialCalibration() error {
	planes := make([][]uint16, 0, constants.InitialCalibrationFrames)
	for len(planes) < constants.InitialCalibrationFrames {
		raw, ok := s.resync.NextFrame()
		if !ok {
			if s.engine.State() != StateRunning {
				break
			}
			continue
		}
		frame, err := wire.ParseFrame(raw)
		if err != nil {
			continue
		}
		planes = append(planes, frame.PixelPlane)
	}
	return s.calib.Seed(planes)
}

// Run executes the application loop (C9 step 4): drain frames, parse,
// calibrate, and emit to the display (and optionally annotation)
// collaborators, until ctx is cancelled or the engine stops. On return
// the transfer engine has not been stopped; callers should call Close.
func (s *Session) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		raw, ok := s.resync.NextFrame()
		if !ok {
			if s.engine.State() != StateRunning {
				return nil
			}
			continue
		}

		wireFrame, err := wire.ParseFrame(raw)
		if err != nil {
			// BadFrameLength (§7): log and skip, session continues.
			if s.opts.Logger != nil {
				s.opts.Logger.Warnf("thermcore: dropping malformed frame: %v", err)
			}
			s.metrics.RecordBadLengthFrame()
			continue
		}

		processed := s.calib.Process(wireFrame.PixelPlane)
		img := grayImageFromPlane(processed)

		now := time.Now()
		fps := s.updateFPS(now)

		frame := &Frame{
			ID:                wireFrame.ID,
			FrameNumber:       wireFrame.FrameNumber,
			SensorTemperature: wireFrame.SensorTemperature,
			Image:             img,
			Raw:               wireFrame.PixelPlane,
			Stats:             computeFrameStats(processed, fps),
		}

		s.metrics.RecordFrame(uint64(time.Since(now).Nanoseconds()))
		s.opts.Display.Emit(frame)

		s.frameCounter++
		if s.opts.AnnotationSink != nil && s.params.AnnotationInterval > 0 &&
			s.frameCounter%uint64(s.params.AnnotationInterval) == 0 {
			s.opts.AnnotationSink.Annotate(frame)
		}

		s.calib.MaybeRecalibrate(now)
	}
}

func (s *Session) updateFPS(now time.Time) float64 {
	if s.lastFrameAt.IsZero() {
		s.lastFrameAt = now
		return 0
	}
	dt := now.Sub(s.lastFrameAt).Seconds()
	s.lastFrameAt = now
	if dt <= 0 {
		return s.fps
	}
	instant := 1 / dt
	if s.fps == 0 {
		s.fps = instant
	} else {
		// Exponential smoothing, same damping style as the calibration
		// engine's brightness auto-adjust.
		s.fps = s.fps + constants.BrightnessDampingFactor*(instant-s.fps)
	}
	return s.fps
}

func grayImageFromPlane(plane []uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, constants.FrameWidth, constants.FrameHeight))
	copy(img.Pix, plane)
	return img
}

func computeFrameStats(plane []uint8, fps float64) FrameStats {
	if len(plane) == 0 {
		return FrameStats{FPS: fps}
	}
	min, max := plane[0], plane[0]
	for _, v := range plane[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return FrameStats{Min: min, Max: max, FPS: fps}
}
