package usbring

import (
	"fmt"
	"sync"
)

// SimRing is a deterministic, in-memory Ring implementation used by tests.
// It delivers bytes from a
// caller-supplied source in whatever chunk sizes PrepareRead requests, the
// same role NewStubRunner plays for the teacher's queue runner.
type SimRing struct {
	mu     sync.Mutex
	source func(p []byte) (int, error)

	staged  []stagedRead
	written [][]byte
	closed  bool
}

type stagedRead struct {
	buf      []byte
	userData uint64
}

// NewSimRing creates a SimRing that serves bulk-IN reads by repeatedly
// calling source, mirroring how a real usbdevfs URB fills its buffer.
func NewSimRing(source func(p []byte) (int, error)) *SimRing {
	return &SimRing{source: source}
}

// WrittenConfigRecords returns every record passed to SubmitConfig, for
// test assertions.
func (r *SimRing) WrittenConfigRecords() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.written...)
}

func (r *SimRing) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *SimRing) SubmitConfig(record []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]byte, len(record))
	copy(cp, record)
	r.written = append(r.written, cp)
	return nil
}

func (r *SimRing) PrepareRead(buf []byte, userData uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("usbring: ring closed")
	}
	r.staged = append(r.staged, stagedRead{buf: buf, userData: userData})
	return nil
}

func (r *SimRing) FlushSubmissions() (uint32, error) {
	r.mu.Lock()
	n := uint32(len(r.staged))
	r.mu.Unlock()
	return n, nil
}

func (r *SimRing) WaitForCompletion(timeoutMs int) ([]Result, error) {
	r.mu.Lock()
	staged := r.staged
	r.staged = nil
	r.mu.Unlock()

	results := make([]Result, 0, len(staged))
	for _, s := range staged {
		n, err := r.source(s.buf)
		results = append(results, Result{UserData: s.userData, N: n, Err: err})
	}
	return results, nil
}
