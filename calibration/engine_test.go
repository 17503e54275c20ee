package calibration

import (
	"testing"
	"time"

	"github.com/thermview/thermcore/internal/constants"
)

func constantPlane(v uint16) []uint16 {
	p := make([]uint16, 16)
	for i := range p {
		p[i] = v
	}
	return p
}

func TestSeedRejectsTooFewFrames(t *testing.T) {
	e := New(DefaultConfig())
	err := e.Seed([][]uint16{constantPlane(100)})
	if err != ErrCalibrationUnderflow {
		t.Fatalf("expected ErrCalibrationUnderflow, got %v", err)
	}
}

func TestSeedComputesPerPixelMean(t *testing.T) {
	e := New(DefaultConfig())
	frames := make([][]uint16, constants.InitialCalibrationFrames)
	for i := range frames {
		frames[i] = constantPlane(uint16(100 + i%2)) // alternates 100/101
	}
	if err := e.Seed(frames); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	for i, v := range e.Reference() {
		if v < 100.0 || v > 101.0 {
			t.Fatalf("reference[%d] = %v, want ~100.5", i, v)
		}
	}
}

func TestProcessAppliesOffsetAndClips(t *testing.T) {
	e := New(DefaultConfig())
	frames := make([][]uint16, constants.InitialCalibrationFrames)
	for i := range frames {
		frames[i] = constantPlane(100)
	}
	if err := e.Seed(frames); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	// reference == 100, default offset 70: F = (100-100)+70 = 70.
	out := e.Process(constantPlane(100))
	for _, v := range out {
		if v != 70 {
			t.Fatalf("got %d, want 70", v)
		}
	}

	// A raw value far above the reference should clip to 255.
	out = e.Process(constantPlane(60000))
	for _, v := range out {
		if v != 255 {
			t.Fatalf("got %d, want clipped 255", v)
		}
	}
}

func TestMaybeRecalibrateDisabledByDefault(t *testing.T) {
	e := New(DefaultConfig())
	frames := make([][]uint16, constants.InitialCalibrationFrames)
	for i := range frames {
		frames[i] = constantPlane(100)
	}
	e.Seed(frames)

	for i := 0; i < constants.RecalibrationFrameSample; i++ {
		e.Process(constantPlane(100))
	}

	if e.MaybeRecalibrate(time.Now().Add(time.Hour)) {
		t.Fatal("recalibration must be off by default")
	}
}

func TestMaybeRecalibrateBlendsReference(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RecalibrationOn = true
	e := New(cfg)

	frames := make([][]uint16, constants.InitialCalibrationFrames)
	for i := range frames {
		frames[i] = constantPlane(100)
	}
	e.Seed(frames)

	for i := 0; i < constants.RecalibrationFrameSample; i++ {
		e.Process(constantPlane(200))
	}

	before := e.Reference()[0]
	due := e.sessionStart.Add(constants.RecalibrationIntervalFast)
	if !e.MaybeRecalibrate(due) {
		t.Fatal("expected recalibration to run when due with enough samples")
	}
	after := e.Reference()[0]

	want := float32(constants.RecalibrationBlendWeight)*before + float32(1-constants.RecalibrationBlendWeight)*200
	if diff := after - want; diff > 0.01 || diff < -0.01 {
		t.Fatalf("blended reference = %v, want ~%v", after, want)
	}
}

func TestOffsetStaysWithinBounds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RecalibrationOn = true
	e := New(cfg)

	frames := make([][]uint16, constants.InitialCalibrationFrames)
	for i := range frames {
		frames[i] = constantPlane(0)
	}
	e.Seed(frames)

	// Push raw values far above the reference, repeatedly recalibrating,
	// to push brightness offset against its upper clip.
	now := e.sessionStart
	for round := 0; round < 50; round++ {
		for i := 0; i < constants.RecalibrationFrameSample; i++ {
			e.Process(constantPlane(60000))
		}
		now = now.Add(constants.RecalibrationIntervalFast)
		e.MaybeRecalibrate(now)

		if e.Offset() < constants.BrightnessOffsetMin || e.Offset() > constants.BrightnessOffsetMax {
			t.Fatalf("offset escaped bounds: %v", e.Offset())
		}
	}
}
