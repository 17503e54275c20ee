package calibration

import (
	"fmt"
	"time"

	"github.com/thermview/thermcore/internal/constants"
	"github.com/thermview/thermcore/internal/interfaces"
)

// ErrCalibrationUnderflow is returned by Seed when fewer than
// constants.InitialCalibrationFrames valid frames were supplied, a fatal
// startup condition per §7 (CalibrationUnderflow).
var ErrCalibrationUnderflow = fmt.Errorf("calibration: fewer than %d frames available for initial calibration", constants.InitialCalibrationFrames)

// Config configures the Calibration Engine.
type Config struct {
	RollingBufferSize int
	RecalibrationOn   bool
	Observer          interfaces.Observer
}

// DefaultConfig returns the sensor module's defaults: a 300-frame rolling
// buffer and rolling recalibration disabled.
func DefaultConfig() Config {
	return Config{RollingBufferSize: constants.DefaultRollingBufferSize}
}

// Engine is the Calibration Engine (C6). It owns reference, offset, and
// the rolling buffer, and is exclusively used by a single goroutine (the
// frame pipeline, W2); it performs no internal locking.
type Engine struct {
	cfg Config

	reference []float32
	offset    float64

	rolling       *RollingBuffer
	sessionStart  time.Time
	lastRecalTime time.Time
	seeded        bool
}

// New constructs a Calibration Engine; Seed must be called once before
// Process.
func New(cfg Config) *Engine {
	if cfg.RollingBufferSize <= 0 {
		cfg.RollingBufferSize = constants.DefaultRollingBufferSize
	}
	if cfg.Observer == nil {
		cfg.Observer = noopObserver{}
	}
	return &Engine{
		cfg:       cfg,
		offset:    constants.BrightnessOffsetDefault,
		rolling:   NewRollingBuffer(cfg.RollingBufferSize),
		sessionStart: time.Now(),
	}
}

// Seed runs the initial calibration (§4.6): the per-pixel mean of the
// given raw pixel planes becomes the flat-field reference. frames must
// contain at least constants.InitialCalibrationFrames planes; fewer is a
// fatal startup error (ErrCalibrationUnderflow).
func (e *Engine) Seed(frames [][]uint16) error {
	if len(frames) < constants.InitialCalibrationFrames {
		return ErrCalibrationUnderflow
	}

	sample := frames[:constants.InitialCalibrationFrames]
	planeLen := len(sample[0])
	sum := make([]float64, planeLen)
	for _, plane := range sample {
		for i, v := range plane {
			sum[i] += float64(v)
		}
	}

	e.reference = make([]float32, planeLen)
	for i, s := range sum {
		e.reference[i] = float32(s / float64(len(sample)))
	}
	e.seeded = true
	return nil
}

// Offset returns the current brightness offset.
func (e *Engine) Offset() float64 {
	return e.offset
}

// Reference returns the current flat-field reference. The returned slice
// must not be mutated by the caller.
func (e *Engine) Reference() []float32 {
	return e.reference
}

// Process runs the per-frame normalization (§4.6 step 2): F = (P -
// reference) + offset, clipped to [0, 255] and cast to uint8. It also
// pushes raw into the rolling buffer so later recalibration can sample it.
func (e *Engine) Process(raw []uint16) []uint8 {
	out := make([]uint8, len(raw))
	offset32 := float32(e.offset)
	for i, p := range raw {
		f := (float32(p) - e.reference[i]) + offset32
		out[i] = clip8(f)
	}
	e.rolling.Push(raw)
	return out
}

// MaybeRecalibrate runs the rolling recalibration and brightness
// auto-adjust (§4.6) if enabled, due by elapsed wall-clock time, and the
// rolling buffer holds enough samples. now is the caller's clock reading,
// passed in rather than read internally so callers (and tests) control
// timing deterministically. Returns true if a blend was applied.
func (e *Engine) MaybeRecalibrate(now time.Time) bool {
	if !e.cfg.RecalibrationOn {
		return false
	}
	if e.rolling.Len() < constants.RecalibrationFrameSample {
		return false
	}
	if !e.due(now) {
		return false
	}

	newMean := e.rolling.MeanOfLast(constants.RecalibrationFrameSample)
	for i := range e.reference {
		e.reference[i] = float32(constants.RecalibrationBlendWeight)*e.reference[i] +
			float32(1-constants.RecalibrationBlendWeight)*newMean[i]
	}
	e.lastRecalTime = now
	e.cfg.Observer.ObserveCalibration()

	e.adjustBrightness()
	return true
}

// due reports whether the recalibration interval has elapsed: every 30s
// during the first 300s of the session, every 300s thereafter.
func (e *Engine) due(now time.Time) bool {
	if e.lastRecalTime.IsZero() {
		e.lastRecalTime = e.sessionStart
	}
	interval := constants.RecalibrationIntervalSlow
	if now.Sub(e.sessionStart) < constants.RecalibrationWarmupDuration {
		interval = constants.RecalibrationIntervalFast
	}
	return now.Sub(e.lastRecalTime) >= interval
}

// adjustBrightness implements the brightness auto-adjust step: mean_value
// = mean(last_raw - reference); offset <- clip(offset + 0.5*(128 -
// mean_value), 50, 150).
func (e *Engine) adjustBrightness() {
	last := e.rolling.Latest()
	if last == nil {
		return
	}

	var sum float64
	for i, v := range last {
		sum += float64(v) - float64(e.reference[i])
	}
	meanValue := sum / float64(len(last))

	e.offset += constants.BrightnessDampingFactor * (constants.BrightnessTargetMean - meanValue)
	if e.offset < constants.BrightnessOffsetMin {
		e.offset = constants.BrightnessOffsetMin
	}
	if e.offset > constants.BrightnessOffsetMax {
		e.offset = constants.BrightnessOffsetMax
	}
}

func clip8(f float32) uint8 {
	if f < 0 {
		return 0
	}
	if f > 255 {
		return 255
	}
	return uint8(f)
}

type noopObserver struct{}

func (noopObserver) ObserveFrame(uint64)   {}
func (noopObserver) ObserveResyncMiss()    {}
func (noopObserver) ObserveQueueDrop()     {}
func (noopObserver) ObserveCalibration()   {}
