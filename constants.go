package thermcore

import "github.com/thermview/thermcore/internal/constants"

// Re-export constants for public API.
const (
	VendorID        = constants.VendorID
	ProductID       = constants.ProductID
	InterfaceNumber = constants.InterfaceNumber

	FrameLength = constants.FrameLength
	FrameWidth  = constants.FrameWidth
	FrameHeight = constants.FrameHeight
	PixelCount  = constants.PixelCount

	ConfigRecordLength = constants.ConfigRecordLength

	DefaultQueueCapacity     = constants.DefaultQueueCapacity
	DefaultRollingBufferSize = constants.DefaultRollingBufferSize

	BrightnessOffsetDefault = constants.BrightnessOffsetDefault
	BrightnessOffsetMin     = constants.BrightnessOffsetMin
	BrightnessOffsetMax     = constants.BrightnessOffsetMax
)
