// Package constants holds the numeric and timing constants for the
// thermal sensor wire protocol and acquisition pipeline.
package constants

import "time"

// USB device identity (§6).
const (
	// VendorID is the USB vendor ID the session looks for.
	VendorID = 0x1772
	// ProductID is the USB product ID the session looks for.
	ProductID = 0x0002
	// InterfaceNumber is the USB interface claimed at open.
	InterfaceNumber = 0

	// EndpointIn is the bulk-IN endpoint carrying the pixel stream.
	EndpointIn = 0x81
	// EndpointOut is the bulk-OUT endpoint carrying the configuration record.
	EndpointOut = 0x02
)

// Frame wire layout (§3).
const (
	// FrameLength is the exact size in bytes of one framed packet.
	FrameLength = 221696

	// PixelPlaneOffset is the byte offset of the first pixel value.
	PixelPlaneOffset = 60
	// PixelPlaneByteLength is the byte length of the pixel plane (110592 uint16).
	PixelPlaneByteLength = 221184

	// FrameWidth and FrameHeight are the sensor array dimensions.
	FrameWidth  = 384
	FrameHeight = 288
	// PixelCount is FrameWidth*FrameHeight.
	PixelCount = FrameWidth * FrameHeight
)

// StartSentinel and EndSentinel delimit a frame in the byte stream.
var (
	StartSentinel = [4]byte{0xA5, 0xA5, 0xD5, 0xA5}
	EndSentinel   = [4]byte{0xA5, 0xA5, 0xA5, 0xA5}
)

// Transfer engine sizing (§4.3). PacketSize is the nominal USB payload
// size used to size the incoming buffer pool.
const (
	PacketSize       = 221688
	BulkBufferLength = 16384

	// IncomingTransferCount is B = ceil(PacketSize / BulkBufferLength).
	IncomingTransferCount = (PacketSize + BulkBufferLength - 1) / BulkBufferLength

	// ConfigRecordLength is the size of the outgoing configuration record.
	ConfigRecordLength = 64
)

// Byte queue sizing (C2).
const (
	// DefaultQueueCapacity bounds the number of in-flight byte chunks
	// the byte queue holds before it starts dropping the newest chunk.
	DefaultQueueCapacity = 4096
)

// Calibration engine defaults (C6, §4.6).
const (
	// InitialCalibrationFrames is the burst size averaged to seed the
	// reference image at session start.
	InitialCalibrationFrames = 50

	// DefaultRollingBufferSize is K, the rolling buffer depth.
	DefaultRollingBufferSize = 300

	// RecalibrationFrameSample is the number of most-recent rolling
	// frames averaged into a new reference candidate.
	RecalibrationFrameSample = 50

	// RecalibrationBlendWeight is the weight given to the existing
	// reference when blending in a new mean (reference keeps 0.9 of itself).
	RecalibrationBlendWeight = 0.9

	// RecalibrationWarmupDuration is how long after session start the
	// fast recalibration interval applies.
	RecalibrationWarmupDuration = 300 * time.Second
	// RecalibrationIntervalFast applies during the warmup window.
	RecalibrationIntervalFast = 30 * time.Second
	// RecalibrationIntervalSlow applies after the warmup window.
	RecalibrationIntervalSlow = 300 * time.Second

	// BrightnessOffsetDefault, Min, Max bound the dynamic brightness offset.
	BrightnessOffsetDefault = 70.0
	BrightnessOffsetMin     = 50.0
	BrightnessOffsetMax     = 150.0
	// BrightnessTargetMean is the desired mean pixel value post-calibration.
	BrightnessTargetMean = 128.0
	// BrightnessDampingFactor damps the per-step offset correction.
	BrightnessDampingFactor = 0.5
)

// Radiometric mapper constants (C7, §4.7). Fixed per the sensor module;
// must be preserved exactly.
const (
	PlanckR1 = 17711.559
	PlanckB  = 1447.2
	PlanckF  = 0.57999998
	PlanckO  = -4096
	PlanckR2 = 0.025931966
	PlanckE  = 0.987

	// PlanckLogDomainFloor is substituted for L when L <= 0 to keep the
	// logarithm defined.
	PlanckLogDomainFloor = 1e-3
	// PlanckCalibrationAdditive is the sensor module's unexplained "+25"
	// term in the inversion; preserved verbatim per spec.
	PlanckCalibrationAdditive = 25.0
	// KelvinToCelsiusOffset converts the intermediate kelvin-like value.
	KelvinToCelsiusOffset = 273.15
)
