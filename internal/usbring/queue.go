package usbring

import (
	"sync"

	"github.com/thermview/thermcore/internal/interfaces"
	"github.com/thermview/thermcore/internal/queue"
)

// ByteQueue is the bounded multi-producer/single-consumer FIFO of raw byte
// chunks (C2). Producers are transfer completion callbacks; the sole
// consumer is the frame resynchronizer (C4).
type ByteQueue struct {
	mu      sync.Mutex
	notify  *sync.Cond
	pending [][]byte
	buf     []byte
	closed  bool

	capacity int
	observer interfaces.Observer
}

// NewByteQueue creates a ByteQueue bounded to capacity chunks. observer may
// be nil.
func NewByteQueue(capacity int, observer interfaces.Observer) *ByteQueue {
	if observer == nil {
		observer = noopObserver{}
	}
	q := &ByteQueue{capacity: capacity, observer: observer}
	q.notify = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends a chunk. Non-blocking: if the queue is at capacity the
// newest chunk is dropped and a QueueOverflow is reported (§7).
func (q *ByteQueue) Enqueue(chunk []byte) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	if len(q.pending) >= q.capacity {
		q.observer.ObserveQueueDrop()
		return
	}
	q.pending = append(q.pending, chunk)
	q.notify.Signal()
}

// Read returns exactly n bytes by concatenating and slicing queued chunks,
// holding back any tail for the next call. It blocks until n bytes are
// available or the queue is closed, in which case it returns whatever it
// has (possibly fewer than n bytes, possibly zero).
func (q *ByteQueue) Read(n int) []byte {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.buf) < n && !q.closed {
		if len(q.pending) == 0 {
			q.notify.Wait()
			continue
		}
		q.buf = append(q.buf, q.pending[0]...)
		queue.PutChunk(q.pending[0])
		q.pending = q.pending[1:]
	}

	if len(q.buf) < n {
		out := q.buf
		q.buf = nil
		return out
	}

	out := make([]byte, n)
	copy(out, q.buf[:n])
	q.buf = q.buf[n:]
	return out
}

// Close unblocks any pending Read call and makes future Reads return
// whatever remains without blocking.
func (q *ByteQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.notify.Broadcast()
}

type noopObserver struct{}

func (noopObserver) ObserveFrame(uint64) {}
func (noopObserver) ObserveResyncMiss()  {}
func (noopObserver) ObserveQueueDrop()   {}
func (noopObserver) ObserveCalibration() {}
