// Package thermcore is the acquisition and processing core for a
// USB-attached thermal imaging sensor: it opens the device, drives its
// bulk-transfer pipeline, resynchronizes and parses frames, and runs
// flat-field calibration and radiometric conversion, exposing processed
// frames to display/annotation collaborators.
package thermcore

import (
	"context"
	"fmt"
	"time"

	"github.com/thermview/thermcore/calibration"
	"github.com/thermview/thermcore/internal/constants"
	"github.com/thermview/thermcore/internal/framing"
	"github.com/thermview/thermcore/internal/interfaces"
	"github.com/thermview/thermcore/internal/logging"
	"github.com/thermview/thermcore/internal/usbdev"
	"github.com/thermview/thermcore/internal/usbring"
	"github.com/thermview/thermcore/internal/wire"
)

// State mirrors the Session State machine (§3): Inactive, Running,
// Canceling, transitioning monotonically within a session.
type State = usbring.State

const (
	StateInactive  = usbring.StateInactive
	StateRunning   = usbring.StateRunning
	StateCanceling = usbring.StateCanceling
)

// SessionParams configures a Session, mirroring the teacher's
// DeviceParams/DefaultParams pairing in backend.go.
type SessionParams struct {
	// VendorID/ProductID/InterfaceNumber identify the USB device (§6).
	VendorID        uint16
	ProductID       uint16
	InterfaceNumber int

	// QueueCapacity bounds the Byte Queue (C2).
	QueueCapacity int

	// RollingBufferSize is K, the Calibration Engine's rolling buffer depth.
	RollingBufferSize int
	// RecalibrationEnabled turns on the optional rolling recalibration
	// and brightness auto-adjust loop (§4.6); default off, per spec.
	RecalibrationEnabled bool

	// AnnotationInterval, if > 0, invokes the Options.AnnotationSink
	// every Nth processed frame.
	AnnotationInterval int
}

// DefaultParams returns the sensor module's default configuration.
func DefaultParams() SessionParams {
	return SessionParams{
		VendorID:          constants.VendorID,
		ProductID:         constants.ProductID,
		InterfaceNumber:   constants.InterfaceNumber,
		QueueCapacity:     constants.DefaultQueueCapacity,
		RollingBufferSize: constants.DefaultRollingBufferSize,
	}
}

// Options carries cross-cutting collaborators, mirroring the teacher's
// Options struct in backend.go.
type Options struct {
	Logger   interfaces.Logger
	Observer interfaces.Observer

	// Display receives every processed frame (W4, §5); required.
	Display Display
	// AnnotationSink, if set, is invoked every SessionParams.AnnotationInterval
	// processed frames (supplemented feature, not in spec.md).
	AnnotationSink AnnotationSink
}

// Session is an open thermal sensor acquisition session (C1-C9 wired
// together). Use Open to construct one.
type Session struct {
	params SessionParams
	opts   Options

	dev    *usbdev.Session
	ring   usbring.Ring
	queue  *usbring.ByteQueue
	engine *usbring.Engine
	resync *framing.Resynchronizer
	calib  *calibration.Engine

	metrics *Metrics

	frameCounter uint64
	lastFrameAt  time.Time
	fps          float64
}

// Open opens the USB device (C1), starts the transfer engine (C3), and
// runs initial calibration (C6). The returned Session is Running; call
// Run to drive the application loop and Close to tear it down.
func Open(ctx context.Context, params SessionParams, opts Options) (*Session, error) {
	if opts.Display == nil {
		return nil, fmt.Errorf("thermcore: Options.Display is required")
	}
	if params.QueueCapacity <= 0 {
		params.QueueCapacity = constants.DefaultQueueCapacity
	}
	if params.RollingBufferSize <= 0 {
		params.RollingBufferSize = constants.DefaultRollingBufferSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}

	devCfg := usbdev.Config{VendorID: params.VendorID, ProductID: params.ProductID, InterfaceNumber: params.InterfaceNumber}
	dev, err := usbdev.Open(devCfg, logger)
	if err != nil {
		return nil, err
	}

	ring, err := usbring.NewLinuxRing(dev.Fd())
	if err != nil {
		dev.Close()
		return nil, WrapError("OPEN_RING", err)
	}

	metrics := NewMetrics()
	observer := opts.Observer
	if observer == nil {
		observer = NewMetricsObserver(metrics)
	}

	queue := usbring.NewByteQueue(params.QueueCapacity, observer)
	engine := usbring.NewEngine(ring, queue, usbring.EngineConfig{Logger: logger, Observer: observer})

	if err := engine.Start(ctx, wire.DefaultConfigRecord().Marshal()); err != nil {
		dev.Close()
		return nil, WrapError("START_ENGINE", err)
	}

	resync := framing.New(queue, observer)

	calibCfg := calibration.DefaultConfig()
	calibCfg.RollingBufferSize = params.RollingBufferSize
	calibCfg.RecalibrationOn = params.RecalibrationEnabled
	calibCfg.Observer = observer
	calib := calibration.New(calibCfg)

	s := &Session{
		params:  params,
		opts:    opts,
		dev:     dev,
		ring:    ring,
		queue:   queue,
		engine:  engine,
		resync:  resync,
		calib:   calib,
		metrics: metrics,
	}

	if err := s.runInitialCalibration(); err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

// State returns the Transfer Engine's lifecycle state.
func (s *Session) State() State {
	return s.engine.State()
}

// Metrics returns the session's metrics counters.
func (s *Session) Metrics() *Metrics {
	return s.metrics
}

// Close stops the transfer engine and closes the USB device session.
// Idempotent.
func (s *Session) Close() error {
	s.engine.Stop()
	s.metrics.Stop()
	return s.dev.Close()
}
