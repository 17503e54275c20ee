package usbring

import "errors"

// ErrRingFull is returned when the submission queue is full. With Engine's
// submit-then-resubmit-on-completion discipline this should never happen:
// at most one outstanding submission exists per transfer slot.
var ErrRingFull = errors.New("usbring: submission queue full")

// Ring is the asynchronous bulk-transfer submission/completion contract the
// Transfer Engine (C3) needs. It generalizes the "submit N concurrent reads,
// harvest completions, resubmit" shape to raw USB bulk transfers instead of
// block-device commands.
type Ring interface {
	// Close releases any resources held by the ring.
	Close() error

	// SubmitConfig performs the one-time synchronous bulk-OUT transfer of
	// the configuration record (C8).
	SubmitConfig(record []byte) error

	// PrepareRead queues an incoming bulk-IN read into buf, tagged with
	// userData. The usbdevfs ring submits it to the kernel at once; the
	// simulated ring holds it until the next WaitForCompletion.
	PrepareRead(buf []byte, userData uint64) error

	// FlushSubmissions reports how many reads are in flight (usbdevfs
	// ring) or staged (simulated ring). Neither implementation submits
	// anything here.
	FlushSubmissions() (uint32, error)

	// WaitForCompletion returns the completions that have arrived. Both
	// implementations poll: they ignore timeoutMs and return at once,
	// possibly with no results.
	WaitForCompletion(timeoutMs int) ([]Result, error)
}

// Result is one completed (or failed) bulk transfer.
type Result struct {
	UserData uint64
	N        int
	Err      error
}
