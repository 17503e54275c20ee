//go:build !linux

package usbring

import "fmt"

// NewLinuxRing is only available on Linux, where usbdevfs ioctls exist.
// Non-Linux builds (and hosts without a real sensor attached) use
// NewSimRing instead.
func NewLinuxRing(fd int) (Ring, error) {
	return nil, fmt.Errorf("usbring: usbdevfs backend requires linux")
}
